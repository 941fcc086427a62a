package manifest

import "sync/atomic"

// Progress is the live view of a running build. Remaining is the number of
// coordinates not yet claimed by any worker; InFlight is the number of probes
// issued but not yet resolved. Readers may see values that trail the true
// state by one update.
//
// The zero value is ready to use. A Progress may be shared with a UI
// goroutine that polls it while the build runs.
type Progress struct {
	total     atomic.Int64
	remaining atomic.Int64
	inFlight  atomic.Int64
	found     atomic.Int64
	failed    atomic.Int64
	done      atomic.Bool
}

// reset prepares the counter for a run over total coordinates.
func (p *Progress) reset(total int) {
	p.done.Store(false)
	p.inFlight.Store(0)
	p.found.Store(0)
	p.failed.Store(0)
	p.total.Store(int64(total))
	p.remaining.Store(int64(total))
}

// lower publishes a new remaining count. Concurrent workers can observe
// WorkSet sizes out of order, so only decreases are stored.
func (p *Progress) lower(n int) {
	v := int64(n)
	for {
		cur := p.remaining.Load()
		if v >= cur || p.remaining.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Total returns the number of coordinates in the current run.
func (p *Progress) Total() int { return int(p.total.Load()) }

// Remaining returns the number of coordinates not yet claimed.
func (p *Progress) Remaining() int { return int(p.remaining.Load()) }

// InFlight returns the number of probes currently outstanding.
func (p *Progress) InFlight() int { return int(p.inFlight.Load()) }

// Pending returns unclaimed plus in-flight coordinates; it reaches zero
// exactly when the last probe resolves.
func (p *Progress) Pending() int { return p.Remaining() + p.InFlight() }

// Found returns the number of coordinates confirmed so far.
func (p *Progress) Found() int { return int(p.found.Load()) }

// Failed returns the number of probes that errored so far.
func (p *Progress) Failed() int { return int(p.failed.Load()) }

// Done reports whether the run has finished.
func (p *Progress) Done() bool { return p.done.Load() }

// Fraction returns completed work in [0, 1]. An empty run counts as complete
// once it is done.
func (p *Progress) Fraction() float64 {
	total := p.Total()
	if total == 0 {
		if p.Done() {
			return 1
		}
		return 0
	}
	f := float64(total-p.Pending()) / float64(total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Snapshot is a point-in-time copy of a Progress.
type Snapshot struct {
	Total     int
	Remaining int
	InFlight  int
	Found     int
	Failed    int
	Done      bool
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		Total:     p.Total(),
		Remaining: p.Remaining(),
		InFlight:  p.InFlight(),
		Found:     p.Found(),
		Failed:    p.Failed(),
		Done:      p.Done(),
	}
}
