package manifest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/tilemanifest/internal/errors"
	"github.com/agbru/tilemanifest/internal/logging"
	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/tile"
)

// tracerName is the instrumentation scope for manifest spans.
const tracerName = "github.com/agbru/tilemanifest/internal/manifest"

// Observer receives a callback around every probe call. Callbacks run on
// worker goroutines and must be safe for concurrent use.
type Observer interface {
	ProbeStarted(c tile.Coord)
	ProbeFinished(c tile.Coord, exists bool, err error, elapsed time.Duration)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

// ProbeStarted does nothing.
func (NopObserver) ProbeStarted(tile.Coord) {}

// ProbeFinished does nothing.
func (NopObserver) ProbeFinished(tile.Coord, bool, error, time.Duration) {}

// Observers fans callbacks out to several observers in order.
type Observers []Observer

// ProbeStarted forwards to every observer.
func (o Observers) ProbeStarted(c tile.Coord) {
	for _, ob := range o {
		ob.ProbeStarted(c)
	}
}

// ProbeFinished forwards to every observer.
func (o Observers) ProbeFinished(c tile.Coord, exists bool, err error, elapsed time.Duration) {
	for _, ob := range o {
		ob.ProbeFinished(c, exists, err, elapsed)
	}
}

// Result is the outcome of one build.
type Result struct {
	// RunID identifies the build in logs and traces.
	RunID string
	// Format is the format key every probe received.
	Format string
	// Range is the coordinate range that was walked.
	Range tile.Range
	// Found holds the coordinates whose probe answered true.
	Found *ResultSet
	// Failures lists probes that errored, ordered like the range.
	Failures []Failure
	// Probed counts probe calls that resolved, successfully or not.
	Probed int
	// Workers is the effective pool size.
	Workers int
	// Duration is the wall time of the build.
	Duration time.Duration
}

// Coords returns the found coordinates in flattened range order.
func (r *Result) Coords() []tile.Coord {
	if r == nil || r.Found == nil {
		return nil
	}
	return r.Found.Sorted()
}

// Builder walks a coordinate range with a bounded pool of probe workers.
// A Builder holds configuration only and can run any number of builds,
// sequentially or concurrently.
type Builder struct {
	probe        probe.ExistenceProbe
	maxInFlight  int
	order        ClaimOrder
	probeTimeout time.Duration
	progress     *Progress
	logger       logging.Logger
	observer     Observer
	tracer       trace.Tracer
}

// Option configures a Builder.
type Option func(*Builder)

// WithProgress publishes live counters into p. The caller keeps the pointer
// and may poll it from another goroutine while the build runs. Each Build
// resets p, so a Progress belongs to one run at a time; concurrent builds
// need a Builder (or BuildManifest call) each.
func WithProgress(p *Progress) Option {
	return func(b *Builder) { b.progress = p }
}

// WithProbeTimeout bounds every probe call; a timeout counts as a failure.
// Zero disables the bound.
func WithProbeTimeout(d time.Duration) Option {
	return func(b *Builder) { b.probeTimeout = d }
}

// WithClaimOrder selects the claim order. The default is ClaimLIFO.
func WithClaimOrder(o ClaimOrder) Option {
	return func(b *Builder) { b.order = o }
}

// WithLogger sets the logger used for run summaries and probe failures.
func WithLogger(l logging.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithObserver registers probe callbacks. Repeated options add observers,
// which are called in registration order.
func WithObserver(o Observer) Option {
	return func(b *Builder) {
		if o == nil {
			return
		}
		switch cur := b.observer.(type) {
		case NopObserver:
			b.observer = o
		case Observers:
			b.observer = append(cur[:len(cur):len(cur)], o)
		default:
			b.observer = Observers{cur, o}
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer. By default the global
// provider is used, which is a no-op unless the program installs one.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) {
		if t != nil {
			b.tracer = t
		}
	}
}

// NewBuilder validates its arguments and returns a Builder. maxInFlight
// must be positive and p must not be nil.
func NewBuilder(p probe.ExistenceProbe, maxInFlight int, opts ...Option) (*Builder, error) {
	if p == nil {
		return nil, apperrors.ValidationError{Field: "probe", Message: "must not be nil"}
	}
	if maxInFlight <= 0 {
		return nil, apperrors.ValidationError{
			Field:   "max-in-flight",
			Message: fmt.Sprintf("must be positive, got %d", maxInFlight),
		}
	}
	b := &Builder{
		probe:       p,
		maxInFlight: maxInFlight,
		order:       ClaimLIFO,
		logger:      logging.Nop(),
		observer:    NopObserver{},
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BuildManifest probes every coordinate of rng with at most maxInFlight
// probes outstanding and returns the coordinates that exist.
//
// Probe errors never fail the build: the coordinate is omitted and recorded
// in Result.Failures. The only errors returned are invalid arguments, which
// are reported before any probe runs, and cancellation of ctx, in which case
// the partial result is returned alongside the error.
func BuildManifest(ctx context.Context, formatKey string, rng tile.Range, maxInFlight int, p probe.ExistenceProbe, opts ...Option) (*Result, error) {
	b, err := NewBuilder(p, maxInFlight, opts...)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, formatKey, rng)
}

// Build runs one manifest build over rng. A range with more coordinates
// than an int can count is rejected with a ValidationError before anything
// is probed.
func (b *Builder) Build(ctx context.Context, formatKey string, rng tile.Range) (*Result, error) {
	start := time.Now()
	total, ok := rng.CheckedCount()
	if !ok {
		return nil, apperrors.ValidationError{
			Field:   "range",
			Message: fmt.Sprintf("%s holds too many tiles to enumerate", rng),
		}
	}

	progress := b.progress
	if progress == nil {
		progress = &Progress{}
	}
	progress.reset(total)
	defer progress.done.Store(true)

	workers := min(b.maxInFlight, total)
	res := &Result{
		RunID:   uuid.NewString(),
		Format:  formatKey,
		Range:   rng,
		Found:   &ResultSet{},
		Workers: workers,
	}
	if total == 0 {
		return res, nil
	}

	ctx, span := b.tracer.Start(ctx, "manifest.Build", trace.WithAttributes(
		attribute.String("manifest.run_id", res.RunID),
		attribute.String("manifest.format", formatKey),
		attribute.Int("manifest.total", total),
		attribute.Int("manifest.workers", workers),
	))
	defer span.End()

	log := b.logger
	log.Info("manifest build started",
		logging.String("run_id", res.RunID),
		logging.String("format", formatKey),
		logging.Stringer("range", rng),
		logging.Int("total", total),
		logging.Int("workers", workers),
		logging.String("order", b.order.String()),
	)

	ws := NewWorkSet(rng, b.order)
	var (
		failures failureLog
		probed   atomic.Int64
		g        errgroup.Group
	)
	for range workers {
		g.Go(func() error {
			for ctx.Err() == nil {
				c, left, ok := ws.Claim()
				if !ok {
					return nil
				}
				progress.inFlight.Add(1)
				progress.lower(left)

				exists, err := b.probeOne(ctx, formatKey, c)
				probed.Add(1)
				switch {
				case err != nil:
					failures.add(c, err)
					progress.failed.Add(1)
					log.Debug("probe failed", logging.Stringer("coord", c), logging.Err(err))
				case exists:
					res.Found.Add(c)
					progress.found.Add(1)
				}
				progress.inFlight.Add(-1)
				progress.lower(ws.Len())
			}
			return ctx.Err()
		})
	}
	// A worker only fails when it stopped claiming because ctx ended. Claimed
	// coordinates are always probed, so an empty set means the run completed.
	waitErr := g.Wait()
	if ws.Len() == 0 {
		waitErr = nil
	}

	res.Failures = failures.list()
	res.Probed = int(probed.Load())
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("manifest.found", res.Found.Len()),
		attribute.Int("manifest.failed", len(res.Failures)),
	)
	if err := waitErr; err != nil {
		span.SetStatus(codes.Error, "canceled")
		log.Error("manifest build interrupted", err,
			logging.String("run_id", res.RunID),
			logging.Int("probed", res.Probed),
			logging.Int("remaining", ws.Len()),
		)
		return res, apperrors.WrapError(err, "build manifest")
	}

	log.Info("manifest build finished",
		logging.String("run_id", res.RunID),
		logging.Int("found", res.Found.Len()),
		logging.Int("failed", len(res.Failures)),
		logging.Int("probed", res.Probed),
		logging.Duration("elapsed", res.Duration),
	)
	return res, nil
}

// probeOne runs a single probe with the optional timeout, tracing and
// observer callbacks. Any error comes back as an apperrors.ProbeError.
//
// The probe does not see cancellation of the run: a claimed coordinate is
// always probed to completion, bounded only by the per-probe timeout.
func (b *Builder) probeOne(ctx context.Context, formatKey string, c tile.Coord) (bool, error) {
	ctx, span := b.tracer.Start(context.WithoutCancel(ctx), "manifest.Probe", trace.WithAttributes(
		attribute.IntSlice("tile.coord", []int{c.X, c.Y, c.Z}),
	))
	defer span.End()

	if b.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.probeTimeout)
		defer cancel()
	}

	b.observer.ProbeStarted(c)
	started := time.Now()
	exists, err := b.probe.Exists(ctx, formatKey, c)
	if b.probeTimeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Answers arriving after the bound count as a timeout too.
		err = apperrors.TimeoutError{Operation: "probe " + c.String(), Limit: b.probeTimeout}
	}
	if err != nil {
		var probeErr apperrors.ProbeError
		if !errors.As(err, &probeErr) {
			err = apperrors.NewProbeError(c, err)
		}
		exists = false
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
	}
	span.SetAttributes(attribute.Bool("tile.exists", exists))
	b.observer.ProbeFinished(c, exists, err, time.Since(started))
	return exists, err
}
