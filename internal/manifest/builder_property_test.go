package manifest

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/tile"
)

// TestBuildManifestProperties checks soundness and completeness over random
// ranges, presence sets and pool sizes.
func TestBuildManifestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60
	parameters.MaxSize = 6

	properties := gopter.NewProperties(parameters)

	properties.Property("result equals the probed-true subset of the range", prop.ForAll(
		func(dx, dy, dz, workers int, seed int64) bool {
			rng := tile.NewRange(tile.Coord{X: -2, Y: 1}, tile.Coord{X: -2 + dx, Y: 1 + dy, Z: dz})
			present := make(probe.Set)
			for i, c := range rng.Flatten() {
				if (seed>>(uint(i)%63))&1 == 1 {
					present[c] = true
				}
			}

			res, err := BuildManifest(context.Background(), "k", rng, workers, present)
			if err != nil {
				return false
			}
			if res.Probed != rng.Count() || res.Found.Len() != len(present) {
				return false
			}
			for _, c := range res.Coords() {
				if !present[c] || !rng.Contains(c) {
					return false
				}
			}
			return res.Workers == min(workers, rng.Count())
		},
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
		gen.IntRange(0, 3),
		gen.IntRange(1, 12),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
