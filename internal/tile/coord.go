package tile

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord identifies one tile in a three-dimensional grid.
// It is a plain value type: equality and map keys work by value.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// String renders the coordinate as "x y z", the manifest line format.
func (c Coord) String() string {
	return fmt.Sprintf("%d %d %d", c.X, c.Y, c.Z)
}

// Axis returns the component for axis 0 (x), 1 (y) or 2 (z).
func (c Coord) Axis(i int) int {
	switch i {
	case 0:
		return c.X
	case 1:
		return c.Y
	case 2:
		return c.Z
	}
	panic(fmt.Sprintf("tile: axis %d out of range", i))
}

// Array returns the coordinate as a [x, y, z] triple.
func (c Coord) Array() [3]int {
	return [3]int{c.X, c.Y, c.Z}
}

// FromArray builds a Coord from a [x, y, z] triple.
func FromArray(a [3]int) Coord {
	return Coord{X: a[0], Y: a[1], Z: a[2]}
}

// ParseCoord parses "x,y,z" (whitespace around components is ignored).
func ParseCoord(s string) (Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Coord{}, fmt.Errorf("tile: coordinate %q: expected x,y,z", s)
	}
	var a [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Coord{}, fmt.Errorf("tile: coordinate %q: %w", s, err)
		}
		a[i] = v
	}
	return FromArray(a), nil
}
