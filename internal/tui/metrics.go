package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/tilemanifest/internal/format"
	"github.com/agbru/tilemanifest/internal/manifest"
)

// MetricsModel shows the build counters, throughput and process resources.
type MetricsModel struct {
	snap         manifest.Snapshot
	maxInFlight  int
	rate         float64 // probes per second, smoothed
	lastResolved int
	lastUpdate   time.Time
	eta          time.Duration

	alloc        uint64
	heapSys      uint64
	numGC        uint32
	numGoroutine int
	openFiles    int
	fdLimit      uint64

	width  int
	height int
}

// NewMetricsModel creates the panel. fdLimit is the soft descriptor limit,
// or zero when unknown.
func NewMetricsModel(maxInFlight int, fdLimit uint64) MetricsModel {
	return MetricsModel{
		maxInFlight: maxInFlight,
		fdLimit:     fdLimit,
		openFiles:   -1,
		lastUpdate:  time.Now(),
	}
}

// SetSize updates dimensions.
func (m *MetricsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// UpdateProgress records a progress snapshot and refreshes the rate.
func (m *MetricsModel) UpdateProgress(snap manifest.Snapshot, eta time.Duration) {
	m.updateProgressAt(snap, eta, time.Now())
}

func (m *MetricsModel) updateProgressAt(snap manifest.Snapshot, eta time.Duration, now time.Time) {
	resolved := snap.Total - snap.Remaining - snap.InFlight
	if dt := now.Sub(m.lastUpdate).Seconds(); dt > 0.05 {
		if dp := resolved - m.lastResolved; dp >= 0 {
			instant := float64(dp) / dt
			if m.rate > 0 {
				m.rate = 0.7*m.rate + 0.3*instant
			} else {
				m.rate = instant
			}
		}
		m.lastResolved = resolved
		m.lastUpdate = now
	}
	m.snap = snap
	m.eta = eta
}

// Rate returns the smoothed probes-per-second figure.
func (m MetricsModel) Rate() float64 { return m.rate }

// UpdateMemStats stores Go runtime statistics.
func (m *MetricsModel) UpdateMemStats(msg MemStatsMsg) {
	m.alloc = msg.Alloc
	m.heapSys = msg.HeapSys
	m.numGC = msg.NumGC
	m.numGoroutine = msg.NumGoroutine
}

// UpdateOpenFiles stores the descriptor count; -1 means unknown.
func (m *MetricsModel) UpdateOpenFiles(n int) {
	m.openFiles = n
}

// View renders the metrics panel.
func (m MetricsModel) View() string {
	colWidth := max((m.width-6)/2, 10)
	left := []string{
		formatMetricCol("Total:", format.FormatCount(m.snap.Total), colWidth),
		formatMetricCol("Remaining:", format.FormatCount(m.snap.Remaining), colWidth),
		formatMetricCol("In flight:", fmt.Sprintf("%d / %d", m.snap.InFlight, m.maxInFlight), colWidth),
		formatMetricCol("Rate:", fmt.Sprintf("%.1f/s", m.rate), colWidth),
	}
	right := []string{
		formatStyledCol("Found:", foundValueStyle.Render(format.FormatCount(m.snap.Found)), colWidth),
		formatStyledCol("Failed:", m.failedValue(), colWidth),
		formatMetricCol("ETA:", format.FormatETA(m.eta), colWidth),
		formatMetricCol("Goroutines:", fmt.Sprintf("%d", m.numGoroutine), colWidth),
	}

	var rows strings.Builder
	rows.WriteString(fmt.Sprintf("%s %s%s%s %s",
		metricLabelStyle.Render("Heap:"),
		metricValueStyle.Render(formatBytes(m.alloc)+" / "+formatBytes(m.heapSys)),
		metricLabelStyle.Render(" | "),
		metricLabelStyle.Render("FDs:"),
		metricValueStyle.Render(m.descriptors())))
	for i := range left {
		rows.WriteString("\n")
		rows.WriteString(left[i] + "  " + right[i])
	}

	return panelStyle.
		Width(max(m.width-2, 0)).
		Height(max(m.height-2, 0)).
		Render(titleStyle.Render("Probes") + "\n" + rows.String())
}

func (m MetricsModel) failedValue() string {
	s := format.FormatCount(m.snap.Failed)
	if m.snap.Failed > 0 {
		return failedValueStyle.Render(s)
	}
	return metricValueStyle.Render(s)
}

func (m MetricsModel) descriptors() string {
	switch {
	case m.openFiles < 0:
		return "n/a"
	case m.fdLimit > 0:
		return fmt.Sprintf("%d / %d", m.openFiles, m.fdLimit)
	default:
		return fmt.Sprintf("%d", m.openFiles)
	}
}

// formatMetricCol renders a label and a value padded to width.
func formatMetricCol(label, value string, width int) string {
	return formatStyledCol(label, metricValueStyle.Render(value), width)
}

func formatStyledCol(label, styledValue string, width int) string {
	cell := metricLabelStyle.Render(fmt.Sprintf("%-11s", label)) + " " + styledValue
	return cell + spaces(width-lipgloss.Width(cell))
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
