package format

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MaxETA caps estimates so a stalled run does not print absurd values.
const MaxETA = 24 * time.Hour

// rateSmoothing weights the newest rate sample in the moving average.
const rateSmoothing = 0.3

// ProgressWithETA tracks the completed fraction of a run and estimates the
// time remaining from an exponentially smoothed completion rate.
// It is safe for concurrent use.
type ProgressWithETA struct {
	mu           sync.Mutex
	now          func() time.Time
	startTime    time.Time
	lastUpdate   time.Time
	lastProgress float64
	progress     float64
	progressRate float64 // fraction per second
}

// NewProgressWithETA starts tracking at the current time.
func NewProgressWithETA() *ProgressWithETA {
	return newProgressWithClock(time.Now)
}

func newProgressWithClock(now func() time.Time) *ProgressWithETA {
	t := now()
	return &ProgressWithETA{now: now, startTime: t, lastUpdate: t}
}

// Update records the completed fraction, clamped to [0, 1], and returns it
// together with the current estimate.
func (p *ProgressWithETA) Update(fraction float64) (float64, time.Duration) {
	fraction = clamp01(fraction)

	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.now()
	if dt := t.Sub(p.lastUpdate).Seconds(); dt > 0 && fraction > p.lastProgress {
		sample := (fraction - p.lastProgress) / dt
		if p.progressRate == 0 {
			p.progressRate = sample
		} else {
			p.progressRate = rateSmoothing*sample + (1-rateSmoothing)*p.progressRate
		}
		p.lastProgress = fraction
		p.lastUpdate = t
	}
	p.progress = fraction
	return fraction, p.etaLocked()
}

// Progress returns the last recorded fraction.
func (p *ProgressWithETA) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Elapsed returns the time since tracking started.
func (p *ProgressWithETA) Elapsed() time.Duration {
	return p.now().Sub(p.startTime)
}

// GetETA returns the estimated time remaining, or 0 when no rate is known.
func (p *ProgressWithETA) GetETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.etaLocked()
}

func (p *ProgressWithETA) etaLocked() time.Duration {
	if p.progressRate <= 0 || p.progress >= 1 {
		return 0
	}
	secs := (1 - p.progress) / p.progressRate
	if secs >= MaxETA.Seconds() {
		return MaxETA
	}
	return time.Duration(secs * float64(time.Second))
}

// FormatETA renders an estimate compactly: "< 1s", "45s", "2m30s", "1h15m".
// Non-positive values mean no estimate is available yet.
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		m := int(eta.Minutes())
		s := int(eta.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		h := int(eta.Hours())
		m := int(eta.Minutes()) % 60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	}
}

// ProgressBar draws a bar of the given width for a fraction in [0, 1].
func ProgressBar(progress float64, length int) string {
	progress = clamp01(progress)
	count := int(progress * float64(length))
	var builder strings.Builder
	builder.Grow(length * 3)
	for i := 0; i < length; i++ {
		if i < count {
			builder.WriteRune('█')
		} else {
			builder.WriteRune('░')
		}
	}
	return builder.String()
}

// FormatProgressBarWithETA renders "[bar]  42.00% ETA: 1m5s".
func FormatProgressBarWithETA(progress float64, eta time.Duration, width int) string {
	progress = clamp01(progress)
	return fmt.Sprintf("[%s] %6.2f%% ETA: %s", ProgressBar(progress, width), progress*100, FormatETA(eta))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
