//go:generate mockgen -source=probe.go -destination=mocks/mock_probe.go -package=mocks

package probe

import (
	"context"

	"github.com/agbru/tilemanifest/internal/tile"
)

// ExistenceProbe answers whether the tile at a coordinate exists for a
// given format key. Implementations must tolerate being called from many
// goroutines at once for arbitrary coordinates.
//
// A non-nil error means the question could not be answered (transport or
// decoding failure); callers treat it the same as "does not exist".
type ExistenceProbe interface {
	Exists(ctx context.Context, formatKey string, c tile.Coord) (bool, error)
}

// Func is a function adapter that implements ExistenceProbe.
type Func func(ctx context.Context, formatKey string, c tile.Coord) (bool, error)

// Exists calls the underlying function.
func (f Func) Exists(ctx context.Context, formatKey string, c tile.Coord) (bool, error) {
	return f(ctx, formatKey, c)
}

// Set is a fixed in-memory answer table, mostly useful for dry runs and tests.
type Set map[tile.Coord]bool

// Exists reports whether c is marked present.
func (s Set) Exists(_ context.Context, _ string, c tile.Coord) (bool, error) {
	return s[c], nil
}

// Verify interface compliance.
var (
	_ ExistenceProbe = Func(nil)
	_ ExistenceProbe = Set(nil)
)
