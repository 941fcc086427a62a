package tile

import (
	"fmt"
	"math"
	"math/bits"
)

// Range bounds a block of tiles: Begin is inclusive and End is exclusive on
// every axis. An axis whose Begin is not below its End contributes zero
// iterations, so the whole range is empty.
type Range struct {
	Begin Coord `json:"begin" yaml:"begin"`
	End   Coord `json:"end" yaml:"end"`
}

// NewRange is a convenience constructor.
func NewRange(begin, end Coord) Range {
	return Range{Begin: begin, End: end}
}

// String renders the range as "[bx by bz, ex ey ez)".
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Begin, r.End)
}

// span returns the number of steps along axis i, never negative. ok is
// false when the span does not fit in an int.
func (r Range) span(i int) (n int, ok bool) {
	begin, end := r.Begin.Axis(i), r.End.Axis(i)
	if end <= begin {
		return 0, true
	}
	d := uint64(end) - uint64(begin)
	if d > math.MaxInt {
		return 0, false
	}
	return int(d), true
}

// CheckedCount returns the number of coordinates in the range. ok is false
// when the count does not fit in an int.
func (r Range) CheckedCount() (n int, ok bool) {
	total := uint64(1)
	for i := 0; i < 3; i++ {
		s, ok := r.span(i)
		if !ok {
			return 0, false
		}
		if s == 0 {
			return 0, true
		}
		hi, lo := bits.Mul64(total, uint64(s))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		total = lo
	}
	return int(total), true
}

// Count returns the number of coordinates in the range, saturated at
// math.MaxInt for ranges too large to count.
func (r Range) Count() int {
	n, ok := r.CheckedCount()
	if !ok {
		return math.MaxInt
	}
	return n
}

// Empty reports whether the range contains no coordinates.
func (r Range) Empty() bool {
	return r.Count() == 0
}

// Contains reports whether c lies inside the range.
func (r Range) Contains(c Coord) bool {
	for i := 0; i < 3; i++ {
		if c.Axis(i) < r.Begin.Axis(i) || c.Axis(i) >= r.End.Axis(i) {
			return false
		}
	}
	return true
}

// Index returns the position of c in the flattened order, or -1 if c is
// outside the range.
func (r Range) Index(c Coord) int {
	if !r.Contains(c) {
		return -1
	}
	nx, _ := r.span(0)
	ny, _ := r.span(1)
	return ((c.Z-r.Begin.Z)*ny+(c.Y-r.Begin.Y))*nx + (c.X - r.Begin.X)
}

// Each visits every coordinate with z outermost, y in the middle and x
// innermost. Iteration stops early if fn returns false.
func (r Range) Each(fn func(Coord) bool) {
	if r.Empty() {
		return
	}
	for z := r.Begin.Z; z < r.End.Z; z++ {
		for y := r.Begin.Y; y < r.End.Y; y++ {
			for x := r.Begin.X; x < r.End.X; x++ {
				if !fn(Coord{X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}

// At returns the coordinate at position i of the flattened order. i must be
// in [0, Count()).
func (r Range) At(i int) Coord {
	nx, _ := r.span(0)
	ny, _ := r.span(1)
	return Coord{
		X: r.Begin.X + i%nx,
		Y: r.Begin.Y + (i/nx)%ny,
		Z: r.Begin.Z + i/(nx*ny),
	}
}

// Flatten expands the range into a slice in Each order. It is meant for
// small ranges; the result holds every coordinate.
func (r Range) Flatten() []Coord {
	out := make([]Coord, 0, r.Count())
	r.Each(func(c Coord) bool {
		out = append(out, c)
		return true
	})
	return out
}
