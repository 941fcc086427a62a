package tui

import (
	"fmt"
	"strings"
)

const historySize = 256

// ChartModel plots probe throughput over time with the overall progress
// bar and host CPU and memory sparklines.
type ChartModel struct {
	fraction    float64
	rateHistory *RingBuffer
	cpuHistory  *RingBuffer
	memHistory  *RingBuffer
	done        bool
	width       int
	height      int
}

// NewChartModel creates an empty chart.
func NewChartModel() ChartModel {
	return ChartModel{
		rateHistory: NewRingBuffer(historySize),
		cpuHistory:  NewRingBuffer(historySize),
		memHistory:  NewRingBuffer(historySize),
	}
}

// SetSize updates dimensions.
func (c *ChartModel) SetSize(w, h int) {
	c.width = w
	c.height = h
}

// AddDataPoint records the completed fraction and the current rate.
func (c *ChartModel) AddDataPoint(fraction, rate float64) {
	c.fraction = fraction
	c.rateHistory.Push(rate)
}

// UpdateSysStats records a host sample.
func (c *ChartModel) UpdateSysStats(cpuPercent, memPercent float64) {
	c.cpuHistory.Push(cpuPercent)
	c.memHistory.Push(memPercent)
}

// SetDone marks the build as finished.
func (c *ChartModel) SetDone() {
	c.done = true
	c.fraction = 1
}

func (c ChartModel) innerWidth() int { return max(c.width-4, 10) }

// View renders the chart panel.
func (c ChartModel) View() string {
	w := c.innerWidth()
	chartRows := max(c.height-6, 1)

	var b strings.Builder
	title := "Throughput"
	if c.done {
		title += " (done)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  peak %.1f/s", peak(c.rateHistory.Slice()))))
	for _, row := range RenderBrailleChart(Normalize(c.rateHistory.Slice()), w, chartRows) {
		b.WriteString("\n")
		b.WriteString(chartBarStyle.Render(row))
	}
	b.WriteString("\n")
	b.WriteString(c.renderProgressBar())
	b.WriteString("\n")
	b.WriteString(c.renderSparkline("CPU", c.cpuHistory, cpuSparklineStyle.Render, w))
	b.WriteString("\n")
	b.WriteString(c.renderSparkline("MEM", c.memHistory, memSparklineStyle.Render, w))

	return panelStyle.
		Width(max(c.width-2, 0)).
		Height(max(c.height-2, 0)).
		Render(b.String())
}

// renderProgressBar draws the overall completion bar.
func (c ChartModel) renderProgressBar() string {
	barWidth := max(c.innerWidth()-8, 1)
	filled := int(c.fraction * float64(barWidth))
	bar := chartBarStyle.Render(strings.Repeat("█", filled)) +
		chartEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s %5.1f%%", bar, c.fraction*100)
}

func (c ChartModel) renderSparkline(label string, rb *RingBuffer, render func(...string) string, w int) string {
	values := rb.Slice()
	width := max(w-12, 1)
	if len(values) > width {
		values = values[len(values)-width:]
	}
	return fmt.Sprintf("%s %s %s",
		metricLabelStyle.Render(label),
		render(RenderSparkline(values)),
		metricValueStyle.Render(fmt.Sprintf("%4.0f%%", rb.Last())))
}

func peak(values []float64) float64 {
	p := 0.0
	for _, v := range values {
		p = max(p, v)
	}
	return p
}

