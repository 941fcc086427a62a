package probe

import (
	"context"
	"time"

	"github.com/agbru/tilemanifest/internal/metrics"
	"github.com/agbru/tilemanifest/internal/tile"
)

type instrumented struct {
	next    ExistenceProbe
	metrics *metrics.ProbeMetrics
}

// Instrumented wraps p so every call is recorded in m.
func Instrumented(p ExistenceProbe, m *metrics.ProbeMetrics) ExistenceProbe {
	if m == nil {
		return p
	}
	return &instrumented{next: p, metrics: m}
}

func (i *instrumented) Exists(ctx context.Context, formatKey string, c tile.Coord) (bool, error) {
	i.metrics.ProbeStarted(c)
	start := time.Now()
	exists, err := i.next.Exists(ctx, formatKey, c)
	i.metrics.ProbeFinished(c, exists, err, time.Since(start))
	return exists, err
}
