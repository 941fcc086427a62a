package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agbru/tilemanifest/internal/config"
	"github.com/agbru/tilemanifest/internal/format"
	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/tile"
)

// maxLogEntries bounds the log history.
const maxLogEntries = 1000

type logKind int

const (
	logInfo logKind = iota
	logSuccess
	logError
)

type logEntry struct {
	at   time.Duration
	kind logKind
	text string
}

// LogsModel is the scrollable event panel: configuration, milestones and
// probe failures.
type LogsModel struct {
	entries    []logEntry
	start      time.Time
	offset     int // lines scrolled up from the bottom
	milestones int // last progress decile logged
	keys       KeyMap
	width      int
	height     int
}

// NewLogsModel creates an empty log whose timestamps are relative to now.
func NewLogsModel() LogsModel {
	return LogsModel{start: time.Now(), keys: DefaultKeyMap()}
}

// SetSize updates dimensions.
func (l *LogsModel) SetSize(w, h int) {
	l.width = w
	l.height = h
}

func (l *LogsModel) add(kind logKind, msg string, args ...any) {
	l.entries = append(l.entries, logEntry{at: time.Since(l.start), kind: kind, text: fmt.Sprintf(msg, args...)})
	if over := len(l.entries) - maxLogEntries; over > 0 {
		l.entries = l.entries[over:]
	}
}

// AddExecutionConfig logs the run parameters.
func (l *LogsModel) AddExecutionConfig(cfg config.AppConfig) {
	rng := cfg.Range()
	l.add(logInfo, "Template %s", cfg.Format)
	l.add(logInfo, "Range %s, %s tiles", rng, format.FormatCount(rng.Count()))
	l.add(logInfo, "Up to %d probes in flight, %s order", cfg.MaxInFlight, cfg.ClaimOrder())
	if cfg.ProbeURL != "" {
		l.add(logInfo, "Probing remote service %s", cfg.ProbeURL)
	}
}

// AddProgress logs every completed tenth of the range once.
func (l *LogsModel) AddProgress(fraction float64) {
	decile := int(fraction * 10)
	for l.milestones < decile && l.milestones < 10 {
		l.milestones++
		l.add(logInfo, "%d%% probed", l.milestones*10)
	}
}

// AddFailure logs a failed probe.
func (l *LogsModel) AddFailure(c tile.Coord, err error) {
	l.add(logError, "%s: %v", c, err)
}

// AddResult logs the build outcome.
func (l *LogsModel) AddResult(res *manifest.Result, err error) {
	switch {
	case err != nil && res != nil:
		l.add(logError, "Stopped after %d probes: %v", res.Probed, err)
	case err != nil:
		l.add(logError, "Build failed: %v", err)
	}
	if res == nil {
		return
	}
	kind := logSuccess
	if len(res.Failures) > 0 {
		kind = logError
	}
	l.add(kind, "Found %s of %s tiles (%d failed) in %s",
		format.FormatCount(res.Found.Len()), format.FormatCount(res.Range.Count()),
		len(res.Failures), format.FormatExecutionDuration(res.Duration))
}

// Update scrolls on navigation keys.
func (l *LogsModel) Update(msg tea.KeyMsg) {
	page := max(l.visibleLines(), 1)
	switch {
	case key.Matches(msg, l.keys.Up):
		l.offset++
	case key.Matches(msg, l.keys.Down):
		l.offset--
	case key.Matches(msg, l.keys.PageUp):
		l.offset += page
	case key.Matches(msg, l.keys.PageDown):
		l.offset -= page
	}
	l.offset = min(max(l.offset, 0), max(len(l.entries)-page, 0))
}

func (l LogsModel) visibleLines() int { return max(l.height-3, 1) }

// View renders the panel at its configured height.
func (l LogsModel) View() string {
	return l.renderToHeight(l.height)
}

// renderToHeight renders the panel so that it is exactly h lines tall.
func (l LogsModel) renderToHeight(h int) string {
	visible := max(h-3, 1)
	end := max(len(l.entries)-l.offset, 0)
	start := max(end-visible, 0)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Events"))
	for _, e := range l.entries[start:end] {
		b.WriteString("\n")
		b.WriteString(l.renderEntry(e))
	}
	return panelStyle.
		Width(max(l.width-2, 0)).
		Height(max(h-2, 0)).
		Render(b.String())
}

func (l LogsModel) renderEntry(e logEntry) string {
	ts := logTimeStyle.Render(fmt.Sprintf("[%7s]", format.FormatExecutionDuration(e.at.Truncate(time.Millisecond))))
	text := e.text
	if limit := l.width - 16; limit > 3 && len(text) > limit {
		text = text[:limit-3] + "..."
	}
	switch e.kind {
	case logSuccess:
		text = logSuccessStyle.Render(text)
	case logError:
		text = logErrorStyle.Render(text)
	default:
		text = logInfoStyle.Render(text)
	}
	return ts + " " + text
}
