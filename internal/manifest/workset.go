package manifest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/agbru/tilemanifest/internal/tile"
)

// ClaimOrder selects which end of the flattened coordinate sequence is
// claimed next.
type ClaimOrder int

const (
	// ClaimLIFO claims the most recently generated coordinate first, so tiles
	// near the end of the range are probed before tiles near its beginning.
	ClaimLIFO ClaimOrder = iota
	// ClaimFIFO claims coordinates in generation order.
	ClaimFIFO
)

// String returns the flag spelling of the order.
func (o ClaimOrder) String() string {
	switch o {
	case ClaimLIFO:
		return "lifo"
	case ClaimFIFO:
		return "fifo"
	}
	return fmt.Sprintf("ClaimOrder(%d)", int(o))
}

// ParseClaimOrder parses "lifo" or "fifo" (case-insensitive).
func ParseClaimOrder(s string) (ClaimOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lifo", "stack":
		return ClaimLIFO, nil
	case "fifo", "queue":
		return ClaimFIFO, nil
	}
	return ClaimLIFO, fmt.Errorf("unknown claim order %q (want lifo or fifo)", s)
}

// WorkSet holds the coordinates that have not been claimed yet as a window
// [lo, hi) of flattened range positions; coordinates are computed on claim.
// Claim is the only mutation; it is safe for concurrent use and never waits
// on anything but the internal mutex.
type WorkSet struct {
	mu     sync.Mutex
	rng    tile.Range
	lo, hi int
	order  ClaimOrder
}

// NewWorkSet returns a WorkSet over every coordinate of r, in flattened
// order (z outermost, x innermost). r must be countable.
func NewWorkSet(r tile.Range, order ClaimOrder) *WorkSet {
	return &WorkSet{rng: r, hi: r.Count(), order: order}
}

// Claim removes one coordinate and returns it with the number of
// coordinates still unclaimed. ok is false once the set is empty.
func (w *WorkSet) Claim() (c tile.Coord, remaining int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lo >= w.hi {
		return tile.Coord{}, 0, false
	}
	var i int
	if w.order == ClaimFIFO {
		i = w.lo
		w.lo++
	} else {
		w.hi--
		i = w.hi
	}
	return w.rng.At(i), w.hi - w.lo, true
}

// Len returns the number of unclaimed coordinates.
func (w *WorkSet) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hi - w.lo
}
