package format

import (
	"strings"
	"testing"
	"time"
)

// fakeClock is advanced manually by tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestProgress() (*ProgressWithETA, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return newProgressWithClock(clock.now), clock
}

// TestNewProgressWithETA verifies proper initialization.
func TestNewProgressWithETA(t *testing.T) {
	t.Parallel()
	p := NewProgressWithETA()

	if p.progressRate != 0 {
		t.Errorf("initial progressRate = %f, want 0", p.progressRate)
	}
	if p.startTime.IsZero() {
		t.Error("startTime should not be zero")
	}
	if eta := p.GetETA(); eta != 0 {
		t.Errorf("initial ETA = %v, want 0", eta)
	}
}

// TestUpdateWithETA verifies the rate estimate from steady progress.
func TestUpdateWithETA(t *testing.T) {
	t.Parallel()
	p, clock := newTestProgress()

	clock.advance(time.Second)
	progress, eta := p.Update(0.1)
	if progress != 0.1 {
		t.Errorf("progress = %f, want 0.1", progress)
	}
	// 10% per second with 90% remaining.
	if want := 9 * time.Second; eta < want-time.Second || eta > want+time.Second {
		t.Errorf("ETA = %v, want approximately %v", eta, want)
	}

	clock.advance(4 * time.Second)
	_, eta = p.Update(0.5)
	if want := 5 * time.Second; eta < want-time.Second || eta > want+time.Second {
		t.Errorf("ETA = %v, want approximately %v", eta, want)
	}
	if got := p.Elapsed(); got != 5*time.Second {
		t.Errorf("Elapsed() = %v, want 5s", got)
	}
}

// TestUpdateNoProgress verifies a repeated value does not reset the rate.
func TestUpdateNoProgress(t *testing.T) {
	t.Parallel()
	p, clock := newTestProgress()

	clock.advance(time.Second)
	p.Update(0.2)
	rate := p.progressRate

	clock.advance(time.Second)
	p.Update(0.2)
	if p.progressRate != rate {
		t.Errorf("progressRate changed from %f to %f without progress", rate, p.progressRate)
	}
}

// TestUpdateComplete verifies a finished run reports no remaining time.
func TestUpdateComplete(t *testing.T) {
	t.Parallel()
	p, clock := newTestProgress()
	clock.advance(time.Second)
	if _, eta := p.Update(1.0); eta != 0 {
		t.Errorf("ETA at completion = %v, want 0", eta)
	}
}

// TestFormatETA verifies ETA formatting.
func TestFormatETA(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		eta      time.Duration
		expected string
	}{
		{"Zero duration", 0, "calculating..."},
		{"Negative duration", -time.Second, "calculating..."},
		{"Less than a second", 500 * time.Millisecond, "< 1s"},
		{"One second", time.Second, "1s"},
		{"Multiple seconds", 45 * time.Second, "45s"},
		{"One minute", time.Minute, "1m"},
		{"Minutes and seconds", 2*time.Minute + 30*time.Second, "2m30s"},
		{"One hour", time.Hour, "1h"},
		{"Hours and minutes", time.Hour + 15*time.Minute, "1h15m"},
		{"Multiple hours", 3*time.Hour + 45*time.Minute, "3h45m"},
		{"Hours only (no minutes)", 2 * time.Hour, "2h"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := FormatETA(tc.eta)
			if result != tc.expected {
				t.Errorf("FormatETA(%v) = %q, want %q", tc.eta, result, tc.expected)
			}
		})
	}
}

// TestFormatProgressBarWithETA verifies combined progress and ETA formatting.
func TestFormatProgressBarWithETA(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		progress float64
		eta      time.Duration
		width    int
		wantPct  string
	}{
		{"Zero progress", 0, time.Minute, 10, "0.00%"},
		{"50% progress", 0.5, 30 * time.Second, 20, "50.00%"},
		{"Complete", 1.0, 0, 10, "100.00%"},
		{"Overflow", 1.7, 0, 10, "100.00%"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := FormatProgressBarWithETA(tc.progress, tc.eta, tc.width)

			if !strings.Contains(result, "ETA:") {
				t.Errorf("result should contain 'ETA:', got %q", result)
			}
			if !strings.Contains(result, tc.wantPct) {
				t.Errorf("result should contain %q, got %q", tc.wantPct, result)
			}
			if !strings.HasPrefix(result, "[") || !strings.Contains(result, "]") {
				t.Errorf("result should contain progress bar brackets, got %q", result)
			}
		})
	}
}

// TestProgressWithETAEdgeCases verifies clamping of out-of-range fractions.
func TestProgressWithETAEdgeCases(t *testing.T) {
	t.Parallel()
	t.Run("Progress exceeds 1.0", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestProgress()
		if got, _ := p.Update(1.5); got != 1.0 {
			t.Errorf("progress = %f, want 1.0", got)
		}
	})

	t.Run("Negative progress", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestProgress()
		if got, _ := p.Update(-0.5); got != 0 {
			t.Errorf("progress = %f, want 0", got)
		}
	})
}

// TestETACapping verifies that ETA is capped at reasonable values.
func TestETACapping(t *testing.T) {
	t.Parallel()
	p, _ := newTestProgress()
	p.Update(0.001)
	p.progressRate = 0.0000001

	if eta := p.GetETA(); eta > MaxETA {
		t.Errorf("ETA = %v, should be capped at %v", eta, MaxETA)
	}
}

// TestProgressBar verifies progress bar rendering.
func TestProgressBar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		progress float64
		length   int
		expected string
	}{
		{0.0, 10, "░░░░░░░░░░"},
		{0.5, 10, "█████░░░░░"},
		{1.0, 10, "██████████"},
		{1.2, 10, "██████████"}, // Cap at 1.0
		{-0.1, 10, "░░░░░░░░░░"}, // Floor at 0.0
	}

	for _, tt := range tests {
		got := ProgressBar(tt.progress, tt.length)
		if got != tt.expected {
			t.Errorf("ProgressBar(%f, %d) = %s; want %s", tt.progress, tt.length, got, tt.expected)
		}
	}
}

// TestFormatExecutionDuration verifies duration formatting.
func TestFormatExecutionDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{500 * time.Nanosecond, "0µs"},
		{10 * time.Microsecond, "10µs"},
		{10 * time.Millisecond, "10ms"},
		{2 * time.Second, "2s"},
		{2*time.Second + 345678*time.Microsecond, "2.346s"},
	}

	for _, tt := range tests {
		got := FormatExecutionDuration(tt.d)
		if got != tt.expected {
			t.Errorf("FormatExecutionDuration(%v) = %s; want %s", tt.d, got, tt.expected)
		}
	}
}

// TestFormatNumberString verifies thousand separator formatting.
func TestFormatNumberString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"1", "1"},
		{"12", "12"},
		{"123", "123"},
		{"1234", "1,234"},
		{"123456", "123,456"},
		{"1234567", "1,234,567"},
		{"-1234", "-1,234"},
	}

	for _, tt := range tests {
		got := FormatNumberString(tt.input)
		if got != tt.expected {
			t.Errorf("FormatNumberString(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatCountAndRate(t *testing.T) {
	t.Parallel()
	if got := FormatCount(65536); got != "65,536" {
		t.Errorf("FormatCount(65536) = %q", got)
	}
	tests := []struct {
		count    int
		elapsed  time.Duration
		expected string
	}{
		{0, time.Second, "0/s"},
		{10, 0, "0/s"},
		{25, 10 * time.Second, "2.5/s"},
		{1000, 2 * time.Second, "500/s"},
	}
	for _, tt := range tests {
		if got := FormatRate(tt.count, tt.elapsed); got != tt.expected {
			t.Errorf("FormatRate(%d, %v) = %q; want %q", tt.count, tt.elapsed, got, tt.expected)
		}
	}
}
