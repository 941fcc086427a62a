// Package tui implements the interactive dashboard shown with --tui. It
// polls the live manifest.Progress of a build and renders counters,
// throughput, host resources and probe failures.
package tui

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/tilemanifest/internal/config"
	"github.com/agbru/tilemanifest/internal/format"
	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/sysmon"
)

// BuildFunc runs one manifest build, publishing counters to progress and
// per-probe events to observer.
type BuildFunc func(ctx context.Context, progress *manifest.Progress, observer manifest.Observer) (*manifest.Result, error)

// Layout constants.
const (
	headerHeight          = 1
	footerHeight          = 1
	minBodyHeight         = 8
	LogsPanelWidthPercent = 50
	MetricsPanelHeight    = 8
	tickInterval          = 250 * time.Millisecond
)

// LayoutManager holds terminal dimensions and derives panel sizes.
type LayoutManager struct {
	width  int
	height int
}

func (l LayoutManager) bodyHeight() int {
	return max(l.height-headerHeight-footerHeight, minBodyHeight)
}

func (l LayoutManager) logsWidth() int {
	return l.width * LogsPanelWidthPercent / 100
}

func (l LayoutManager) rightWidth() int {
	return l.width - l.logsWidth()
}

func (l LayoutManager) metricsHeight() int {
	return min(MetricsPanelHeight, l.bodyHeight()/2)
}

func (l LayoutManager) chartHeight() int {
	return l.bodyHeight() - l.metricsHeight()
}

// Model is the root bubbletea model of the dashboard.
type Model struct {
	header  HeaderModel
	logs    LogsModel
	metrics MetricsModel
	chart   ChartModel
	footer  FooterModel
	keymap  KeyMap

	LayoutManager

	ctx      context.Context
	cancel   context.CancelFunc
	build    BuildFunc
	progress *manifest.Progress
	eta      *format.ProgressWithETA
	sampler  *sysmon.Sampler
	ref      *programRef
	outcome  *buildOutcome

	paused bool
	done   bool
}

// NewModel prepares a dashboard for a build described by cfg. fdLimit is
// the soft descriptor limit, or zero when unknown.
func NewModel(parent context.Context, cfg config.AppConfig, version string, build BuildFunc, fdLimit uint64) Model {
	ctx, cancel := context.WithCancel(parent)

	logs := NewLogsModel()
	logs.AddExecutionConfig(cfg)

	return Model{
		header:   NewHeaderModel(version, cfg.Format),
		logs:     logs,
		metrics:  NewMetricsModel(cfg.MaxInFlight, fdLimit),
		chart:    NewChartModel(),
		footer:   NewFooterModel(),
		keymap:   DefaultKeyMap(),
		ctx:      ctx,
		cancel:   cancel,
		build:    build,
		progress: &manifest.Progress{},
		eta:      format.NewProgressWithETA(),
		sampler:  sysmon.NewSampler(),
		ref:      &programRef{},
		outcome:  newBuildOutcome(),
	}
}

// Init starts the sampling loop and the context watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), watchContextCmd(m.ctx))
}

// startBuild runs the build in its own goroutine and reports completion to
// the program.
func (m Model) startBuild() {
	go func() {
		res, err := m.build(m.ctx, m.progress, failureObserver{ref: m.ref})
		m.outcome.set(res, err)
		m.ref.Send(BuildCompleteMsg{Result: res, Err: err})
	}()
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanels()
		return m, nil

	case TickMsg:
		if !m.paused {
			m.refreshProgress()
		}
		if m.done {
			return m, nil
		}
		if m.paused {
			return m, tickCmd()
		}
		return m, tea.Batch(sampleMemStatsCmd(), m.sampleSysStatsCmd(), tickCmd())

	case MemStatsMsg:
		m.metrics.UpdateMemStats(msg)
		return m, nil

	case SysStatsMsg:
		m.chart.UpdateSysStats(msg.CPUPercent, msg.MemPercent)
		m.metrics.UpdateOpenFiles(msg.OpenFiles)
		return m, nil

	case ProbeFailedMsg:
		m.logs.AddFailure(msg.Coord, msg.Err)
		return m, nil

	case BuildCompleteMsg:
		m.done = true
		m.refreshProgress()
		m.logs.AddResult(msg.Result, msg.Err)
		m.header.SetDone()
		m.chart.SetDone()
		m.footer.SetDone(true)
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.footer.SetError(true)
		}
		return m, nil

	case ContextCancelledMsg:
		m.header.SetDone()
		m.footer.SetDone(true)
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) refreshProgress() {
	snap := m.progress.Snapshot()
	fraction, eta := m.eta.Update(m.progress.Fraction())
	m.metrics.UpdateProgress(snap, eta)
	m.chart.AddDataPoint(fraction, m.metrics.Rate())
	m.logs.AddProgress(fraction)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Pause):
		m.paused = !m.paused
		m.footer.SetPaused(m.paused)
		return m, nil

	case key.Matches(msg, m.keymap.Up), key.Matches(msg, m.keymap.Down),
		key.Matches(msg, m.keymap.PageUp), key.Matches(msg, m.keymap.PageDown):
		m.logs.Update(msg)
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	rightCol := lipgloss.JoinVertical(lipgloss.Left, m.metrics.View(), m.chart.View())
	logs := m.logs.renderToHeight(lipgloss.Height(rightCol))
	body := lipgloss.JoinHorizontal(lipgloss.Top, logs, rightCol)
	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body, m.footer.View())
}

func (m *Model) layoutPanels() {
	m.header.SetWidth(m.width)
	m.footer.SetWidth(m.width)
	m.logs.SetSize(m.logsWidth(), m.bodyHeight())
	m.metrics.SetSize(m.rightWidth(), m.metricsHeight())
	m.chart.SetSize(m.rightWidth(), m.chartHeight())
}

// Run shows the dashboard while build runs and returns the build's result
// once both the build and the dashboard have finished. Quitting the
// dashboard early cancels the build.
func Run(ctx context.Context, cfg config.AppConfig, version string, build BuildFunc, fdLimit uint64) (*manifest.Result, error) {
	initTUIStyles()

	model := NewModel(ctx, cfg, version, build, fdLimit)
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.ref.SetProgram(p)
	model.startBuild()

	_, runErr := p.Run()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		model.cancel()
		res, _ := model.outcome.wait()
		return res, fmt.Errorf("dashboard: %w", runErr)
	}
	model.cancel()
	return model.outcome.wait()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func sampleMemStatsCmd() tea.Cmd {
	return func() tea.Msg {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return MemStatsMsg{
			Alloc:        ms.Alloc,
			HeapSys:      ms.HeapSys,
			NumGC:        ms.NumGC,
			NumGoroutine: runtime.NumGoroutine(),
		}
	}
}

func (m Model) sampleSysStatsCmd() tea.Cmd {
	sampler := m.sampler
	return func() tea.Msg {
		s := sampler.Sample()
		return SysStatsMsg{CPUPercent: s.CPUPercent, MemPercent: s.MemPercent, OpenFiles: s.OpenFiles}
	}
}

func watchContextCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return ContextCancelledMsg{Err: ctx.Err()}
	}
}
