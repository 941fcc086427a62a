package manifest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"

	apperrors "github.com/agbru/tilemanifest/internal/errors"
	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/probe/mocks"
	"github.com/agbru/tilemanifest/internal/tile"
)

const testFormat = "tiles/{z}/{y}/{x}.png"

// square is the 2x2x1 range used by the reference scenarios.
var square = tile.NewRange(tile.Coord{}, tile.Coord{X: 2, Y: 2, Z: 1})

// TestBuildManifest_Scenario probes the 2x2x1 square where only (0,0,0) and
// (1,1,0) exist and expects exactly one probe per coordinate.
func TestBuildManifest_Scenario(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	p := mocks.NewMockExistenceProbe(ctrl)

	present := map[tile.Coord]bool{{X: 0, Y: 0, Z: 0}: true, {X: 1, Y: 1, Z: 0}: true}
	for _, c := range square.Flatten() {
		p.EXPECT().Exists(gomock.Any(), testFormat, c).Return(present[c], nil).Times(1)
	}

	var progress Progress
	res, err := BuildManifest(context.Background(), testFormat, square, 2, p, WithProgress(&progress))
	if err != nil {
		t.Fatalf("BuildManifest() unexpected error: %v", err)
	}

	want := []tile.Coord{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}}
	if diff := cmp.Diff(want, res.Coords()); diff != "" {
		t.Errorf("found coordinates mismatch (-want +got):\n%s", diff)
	}
	if res.Probed != 4 {
		t.Errorf("Probed = %d, want 4", res.Probed)
	}
	if res.Workers != 2 {
		t.Errorf("Workers = %d, want 2", res.Workers)
	}
	if len(res.Failures) != 0 {
		t.Errorf("Failures = %v, want none", res.Failures)
	}
	if progress.Remaining() != 0 || progress.Pending() != 0 || !progress.Done() {
		t.Errorf("progress = %+v, want drained and done", progress.Snapshot())
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
}

// TestBuildManifest_ProbeFailureTolerance checks that a failing probe only
// drops its own coordinate.
func TestBuildManifest_ProbeFailureTolerance(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	p := mocks.NewMockExistenceProbe(ctrl)

	broken := tile.Coord{X: 1, Y: 0, Z: 0}
	errTransport := errors.New("connection reset by peer")
	for _, c := range square.Flatten() {
		if c == broken {
			p.EXPECT().Exists(gomock.Any(), testFormat, c).Return(false, errTransport)
			continue
		}
		p.EXPECT().Exists(gomock.Any(), testFormat, c).Return(true, nil)
	}

	res, err := BuildManifest(context.Background(), testFormat, square, 2, p)
	if err != nil {
		t.Fatalf("BuildManifest() should absorb probe errors, got: %v", err)
	}

	want := []tile.Coord{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0}}
	if diff := cmp.Diff(want, res.Coords()); diff != "" {
		t.Errorf("found coordinates mismatch (-want +got):\n%s", diff)
	}
	if res.Found.Contains(broken) {
		t.Errorf("failed coordinate %v must not be in the result", broken)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("Failures = %v, want exactly one", res.Failures)
	}
	f := res.Failures[0]
	if f.Coord != broken {
		t.Errorf("Failure.Coord = %v, want %v", f.Coord, broken)
	}
	var probeErr apperrors.ProbeError
	if !errors.As(f.Err, &probeErr) || probeErr.Coord != broken {
		t.Errorf("Failure.Err = %v, want ProbeError for %v", f.Err, broken)
	}
	if !errors.Is(f.Err, errTransport) {
		t.Errorf("Failure.Err should wrap the transport error, got %v", f.Err)
	}
}

// TestBuildManifest_EmptyRange checks that empty ranges return immediately.
func TestBuildManifest_EmptyRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		rng  tile.Range
	}{
		{"Begin equals end", tile.NewRange(tile.Coord{X: 3, Y: 3, Z: 3}, tile.Coord{X: 3, Y: 3, Z: 3})},
		{"Origin", tile.NewRange(tile.Coord{}, tile.Coord{})},
		{"Flat z", tile.NewRange(tile.Coord{}, tile.Coord{X: 5, Y: 5})},
		{"Inverted", tile.NewRange(tile.Coord{X: 4, Y: 4, Z: 4}, tile.Coord{X: 1, Y: 1, Z: 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
				t.Error("probe must not be called for an empty range")
				return false, nil
			})
			var progress Progress
			res, err := BuildManifest(context.Background(), testFormat, tt.rng, 4, p, WithProgress(&progress))
			if err != nil {
				t.Fatalf("BuildManifest() unexpected error: %v", err)
			}
			if n := res.Found.Len(); n != 0 {
				t.Errorf("found %d coordinates, want 0", n)
			}
			if res.Workers != 0 || res.Probed != 0 {
				t.Errorf("Workers=%d Probed=%d, want 0/0", res.Workers, res.Probed)
			}
			if progress.Total() != 0 || progress.Remaining() != 0 || !progress.Done() {
				t.Errorf("progress = %+v, want zero and done", progress.Snapshot())
			}
		})
	}
}

// TestBuildManifest_InvalidArguments checks synchronous argument rejection.
func TestBuildManifest_InvalidArguments(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	counting := probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	tests := []struct {
		name        string
		maxInFlight int
		probe       probe.ExistenceProbe
		field       string
	}{
		{"Zero concurrency", 0, counting, "max-in-flight"},
		{"Negative concurrency", -3, counting, "max-in-flight"},
		{"Nil probe", 2, nil, "probe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := BuildManifest(context.Background(), testFormat, square, tt.maxInFlight, tt.probe)
			var validationErr apperrors.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", validationErr.Field, tt.field)
			}
			if res != nil {
				t.Errorf("result should be nil on invalid arguments, got %+v", res)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("probe called %d times, want 0", n)
	}
}

// TestBuildManifest_RangeTooLarge checks that an uncountable range is
// rejected before any tile is probed or any progress is published.
func TestBuildManifest_RangeTooLarge(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	p := probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
		calls.Add(1)
		return true, nil
	})
	huge := tile.NewRange(tile.Coord{}, tile.Coord{X: 3_000_000, Y: 3_000_000, Z: 3_000_000})

	var progress Progress
	res, err := BuildManifest(context.Background(), testFormat, huge, 4, p, WithProgress(&progress))
	var validationErr apperrors.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "range" {
		t.Fatalf("expected ValidationError for range, got %v", err)
	}
	if res != nil {
		t.Errorf("result should be nil, got %+v", res)
	}
	if calls.Load() != 0 || progress.Total() != 0 || progress.Done() {
		t.Errorf("calls=%d progress=%+v, want nothing started", calls.Load(), progress.Snapshot())
	}
}

// TestBuildManifest_LargeRangeIsLazy checks that a countable but huge range
// starts probing without expanding every coordinate up front.
func TestBuildManifest_LargeRangeIsLazy(t *testing.T) {
	t.Parallel()
	huge := tile.NewRange(tile.Coord{}, tile.Coord{X: 1 << 20, Y: 1 << 20, Z: 1 << 20})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var first tile.Coord
	var once sync.Once
	p := probe.Func(func(_ context.Context, _ string, c tile.Coord) (bool, error) {
		once.Do(func() {
			first = c
			cancel()
		})
		return false, nil
	})

	res, err := BuildManifest(ctx, testFormat, huge, 1, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	want := tile.Coord{X: 1<<20 - 1, Y: 1<<20 - 1, Z: 1<<20 - 1}
	if first != want || res.Probed != 1 {
		t.Errorf("first claim = %v after %d probes, want %v after 1", first, res.Probed, want)
	}
}

// TestBuildManifest_ConcurrencyBound checks that the pool never exceeds
// min(maxInFlight, total) outstanding probes and that it does saturate.
func TestBuildManifest_ConcurrencyBound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		rng         tile.Range
		maxInFlight int
		wantBound   int
	}{
		{"Serial", tile.NewRange(tile.Coord{}, tile.Coord{X: 4, Y: 4, Z: 1}), 1, 1},
		{"Three wide", tile.NewRange(tile.Coord{}, tile.Coord{X: 4, Y: 4, Z: 1}), 3, 3},
		{"Eight wide", tile.NewRange(tile.Coord{}, tile.Coord{X: 4, Y: 4, Z: 2}), 8, 8},
		{"Capped by size", tile.NewRange(tile.Coord{}, tile.Coord{X: 5, Y: 1, Z: 1}), 100, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var (
				current, peak atomic.Int32
				saturated     = make(chan struct{})
				once          sync.Once
			)
			p := probe.Func(func(ctx context.Context, _ string, _ tile.Coord) (bool, error) {
				n := current.Add(1)
				defer current.Add(-1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				if int(n) == tt.wantBound {
					once.Do(func() { close(saturated) })
				}
				select {
				case <-saturated:
				case <-time.After(2 * time.Second):
				}
				return true, nil
			})

			res, err := BuildManifest(context.Background(), testFormat, tt.rng, tt.maxInFlight, p)
			if err != nil {
				t.Fatalf("BuildManifest() unexpected error: %v", err)
			}
			if got := int(peak.Load()); got != tt.wantBound {
				t.Errorf("peak in-flight = %d, want %d", got, tt.wantBound)
			}
			if res.Workers != tt.wantBound {
				t.Errorf("Workers = %d, want %d", res.Workers, tt.wantBound)
			}
			if res.Found.Len() != tt.rng.Count() {
				t.Errorf("found %d, want %d", res.Found.Len(), tt.rng.Count())
			}
		})
	}
}

// TestBuildManifest_Completeness checks that every coordinate is probed once.
func TestBuildManifest_Completeness(t *testing.T) {
	t.Parallel()
	rng := tile.NewRange(tile.Coord{X: -1, Y: 2, Z: 0}, tile.Coord{X: 2, Y: 6, Z: 5})

	var mu sync.Mutex
	seen := make(map[tile.Coord]int)
	p := probe.Func(func(_ context.Context, key string, c tile.Coord) (bool, error) {
		if key != testFormat {
			t.Errorf("format key = %q, want %q", key, testFormat)
		}
		mu.Lock()
		seen[c]++
		mu.Unlock()
		return (c.X+c.Y+c.Z)%2 == 0, nil
	})

	res, err := BuildManifest(context.Background(), testFormat, rng, 7, p)
	if err != nil {
		t.Fatalf("BuildManifest() unexpected error: %v", err)
	}
	if len(seen) != rng.Count() {
		t.Errorf("probed %d distinct coordinates, want %d", len(seen), rng.Count())
	}
	var want []tile.Coord
	for _, c := range rng.Flatten() {
		if seen[c] != 1 {
			t.Errorf("coordinate %v probed %d times, want 1", c, seen[c])
		}
		if (c.X+c.Y+c.Z)%2 == 0 {
			want = append(want, c)
		}
	}
	if diff := cmp.Diff(want, res.Coords()); diff != "" {
		t.Errorf("found coordinates mismatch (-want +got):\n%s", diff)
	}
}

// TestBuildManifest_ClaimOrder pins the claim order with a single worker.
func TestBuildManifest_ClaimOrder(t *testing.T) {
	t.Parallel()
	rng := tile.NewRange(tile.Coord{}, tile.Coord{X: 2, Y: 2, Z: 2})
	flat := rng.Flatten()
	reversed := make([]tile.Coord, len(flat))
	for i, c := range flat {
		reversed[len(flat)-1-i] = c
	}

	tests := []struct {
		name  string
		opts  []Option
		order []tile.Coord
	}{
		{"Default is LIFO", nil, reversed},
		{"Explicit LIFO", []Option{WithClaimOrder(ClaimLIFO)}, reversed},
		{"FIFO", []Option{WithClaimOrder(ClaimFIFO)}, flat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []tile.Coord
			p := probe.Func(func(_ context.Context, _ string, c tile.Coord) (bool, error) {
				got = append(got, c)
				return true, nil
			})
			if _, err := BuildManifest(context.Background(), testFormat, rng, 1, p, tt.opts...); err != nil {
				t.Fatalf("BuildManifest() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.order, got); diff != "" {
				t.Errorf("claim order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestBuildManifest_ProgressMonotonic samples the counter from inside the
// probes and checks it never increases.
func TestBuildManifest_ProgressMonotonic(t *testing.T) {
	t.Parallel()
	rng := tile.NewRange(tile.Coord{}, tile.Coord{X: 6, Y: 6, Z: 2})

	var (
		progress Progress
		mu       sync.Mutex
		samples  []int
	)
	p := probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		samples = append(samples, progress.Remaining())
		mu.Unlock()
		return false, nil
	})

	if _, err := BuildManifest(context.Background(), testFormat, rng, 4, p, WithProgress(&progress)); err != nil {
		t.Fatalf("BuildManifest() unexpected error: %v", err)
	}
	if len(samples) != rng.Count() {
		t.Fatalf("collected %d samples, want %d", len(samples), rng.Count())
	}
	for i := 1; i < len(samples); i++ {
		if samples[i] > samples[i-1] {
			t.Fatalf("progress increased from %d to %d at sample %d", samples[i-1], samples[i], i)
		}
	}
	if samples[0] >= rng.Count() {
		t.Errorf("first sample %d should already reflect a claim", samples[0])
	}
	if progress.Remaining() != 0 || progress.InFlight() != 0 {
		t.Errorf("final progress = %+v, want drained", progress.Snapshot())
	}
	if progress.Fraction() != 1 {
		t.Errorf("Fraction() = %f, want 1", progress.Fraction())
	}
}

// TestBuildManifest_ProbeTimeout checks that a stuck probe is cut off and
// counted as a failure.
func TestBuildManifest_ProbeTimeout(t *testing.T) {
	t.Parallel()
	stuck := tile.Coord{X: 0, Y: 1, Z: 0}
	p := probe.Func(func(ctx context.Context, _ string, c tile.Coord) (bool, error) {
		if c == stuck {
			<-ctx.Done()
			return false, ctx.Err()
		}
		return true, nil
	})

	res, err := BuildManifest(context.Background(), testFormat, square, 2, p, WithProbeTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("BuildManifest() unexpected error: %v", err)
	}
	if res.Found.Len() != 3 || res.Found.Contains(stuck) {
		t.Errorf("found = %v, want the three responsive tiles", res.Coords())
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0].Err, context.DeadlineExceeded) {
		t.Fatalf("Failures = %v, want one deadline failure", res.Failures)
	}
	var timeoutErr apperrors.TimeoutError
	if !errors.As(res.Failures[0].Err, &timeoutErr) || timeoutErr.Limit != 20*time.Millisecond {
		t.Errorf("failure %v should carry a TimeoutError with the 20ms limit", res.Failures[0].Err)
	}
}

// TestBuildManifest_LateAnswerIsTimeout checks that a probe ignoring its
// context still counts as timed out.
func TestBuildManifest_LateAnswerIsTimeout(t *testing.T) {
	t.Parallel()
	one := tile.NewRange(tile.Coord{}, tile.Coord{X: 1, Y: 1, Z: 1})
	p := probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
		time.Sleep(30 * time.Millisecond)
		return true, nil
	})

	res, err := BuildManifest(context.Background(), testFormat, one, 1, p, WithProbeTimeout(5*time.Millisecond))
	if err != nil {
		t.Fatalf("BuildManifest() unexpected error: %v", err)
	}
	if res.Found.Len() != 0 || len(res.Failures) != 1 {
		t.Errorf("found=%v failures=%v, want late answer treated as failure", res.Coords(), res.Failures)
	}
}

// TestBuildManifest_Cancellation checks that cancellation stops new claims
// while the in-flight probe is allowed to finish.
func TestBuildManifest_Cancellation(t *testing.T) {
	t.Parallel()
	rng := tile.NewRange(tile.Coord{}, tile.Coord{X: 4, Y: 4, Z: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	p := probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
		calls.Add(1)
		cancel()
		return true, nil
	})

	var progress Progress
	res, err := BuildManifest(ctx, testFormat, rng, 1, p, WithProgress(&progress))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil {
		t.Fatal("partial result should be returned on cancellation")
	}
	if calls.Load() != 1 || res.Probed != 1 {
		t.Errorf("calls=%d Probed=%d, want 1/1", calls.Load(), res.Probed)
	}
	if res.Found.Len() != 1 {
		t.Errorf("in-flight probe result should be kept, found %d", res.Found.Len())
	}
	if progress.Remaining() != rng.Count()-1 {
		t.Errorf("Remaining() = %d, want %d", progress.Remaining(), rng.Count()-1)
	}
	if !progress.Done() {
		t.Error("progress should be marked done")
	}
}

// TestBuilder_ProgressReusedAcrossRuns checks that a shared Progress reports
// only the latest of two sequential runs.
func TestBuilder_ProgressReusedAcrossRuns(t *testing.T) {
	t.Parallel()
	p := probe.Func(func(context.Context, string, tile.Coord) (bool, error) { return true, nil })
	var progress Progress
	builder, err := NewBuilder(p, 2, WithProgress(&progress))
	if err != nil {
		t.Fatalf("NewBuilder() error: %v", err)
	}

	if _, err := builder.Build(context.Background(), testFormat, square); err != nil {
		t.Fatalf("first Build() error: %v", err)
	}
	one := tile.NewRange(tile.Coord{}, tile.Coord{X: 1, Y: 1, Z: 1})
	if _, err := builder.Build(context.Background(), testFormat, one); err != nil {
		t.Fatalf("second Build() error: %v", err)
	}
	if progress.Total() != 1 || progress.Found() != 1 || progress.Pending() != 0 || !progress.Done() {
		t.Errorf("progress = %+v, want the single-tile run only", progress.Snapshot())
	}
}

// TestBuildManifest_CancellationLetsInFlightFinish checks that probes which
// honor their context are not aborted when the run is canceled.
func TestBuildManifest_CancellationLetsInFlightFinish(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	p := probe.Func(func(ctx context.Context, _ string, _ tile.Coord) (bool, error) {
		started <- struct{}{}
		select {
		case <-release:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := BuildManifest(ctx, testFormat, square, 2, p)
		done <- outcome{res, err}
	}()

	<-started
	<-started
	cancel()
	// Give a wrongly canceled probe the chance to return first.
	time.Sleep(20 * time.Millisecond)
	close(release)

	var got outcome
	select {
	case got = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("build did not return")
	}
	if !errors.Is(got.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", got.err)
	}
	if got.res.Probed != 2 || got.res.Found.Len() != 2 || len(got.res.Failures) != 0 {
		t.Errorf("Probed=%d found=%v failures=%v, want both in-flight probes to finish as found",
			got.res.Probed, got.res.Coords(), got.res.Failures)
	}
}

// TestBuildManifest_CompletedRunIgnoresLateCancel checks that a run whose
// every coordinate was probed is not reported as canceled.
func TestBuildManifest_CompletedRunIgnoresLateCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	p := probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
		if calls.Add(1) == int32(square.Count()) {
			cancel()
		}
		return true, nil
	})
	res, err := BuildManifest(ctx, testFormat, square, 1, p)
	if err != nil {
		t.Fatalf("BuildManifest() unexpected error: %v", err)
	}
	if res.Found.Len() != 4 {
		t.Errorf("found %d tiles, want 4", res.Found.Len())
	}
}

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	started, finished, failed atomic.Int32
}

func (r *recordingObserver) ProbeStarted(tile.Coord) { r.started.Add(1) }

func (r *recordingObserver) ProbeFinished(_ tile.Coord, _ bool, err error, _ time.Duration) {
	r.finished.Add(1)
	if err != nil {
		r.failed.Add(1)
	}
}

// TestBuilder_Observer checks that observers see every probe.
func TestBuilder_Observer(t *testing.T) {
	t.Parallel()
	a, b := &recordingObserver{}, &recordingObserver{}
	p := probe.Func(func(_ context.Context, _ string, c tile.Coord) (bool, error) {
		if c.X == 1 {
			return false, errors.New("bad gateway")
		}
		return true, nil
	})

	builder, err := NewBuilder(p, 3, WithObserver(a), WithObserver(nil), WithObserver(b))
	if err != nil {
		t.Fatalf("NewBuilder() unexpected error: %v", err)
	}
	for run := 0; run < 2; run++ {
		if _, err := builder.Build(context.Background(), testFormat, square); err != nil {
			t.Fatalf("Build() run %d unexpected error: %v", run, err)
		}
	}
	for _, ob := range []*recordingObserver{a, b} {
		if ob.started.Load() != 8 || ob.finished.Load() != 8 || ob.failed.Load() != 4 {
			t.Errorf("observer saw started=%d finished=%d failed=%d, want 8/8/4",
				ob.started.Load(), ob.finished.Load(), ob.failed.Load())
		}
	}
}
