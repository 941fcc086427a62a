package manifest

import (
	"cmp"
	"slices"
	"sync"

	"github.com/agbru/tilemanifest/internal/tile"
)

// ResultSet collects the coordinates confirmed to exist. It only grows,
// and appends from concurrent workers are serialized.
type ResultSet struct {
	mu     sync.Mutex
	coords []tile.Coord
}

// Add appends c.
func (s *ResultSet) Add(c tile.Coord) {
	s.mu.Lock()
	s.coords = append(s.coords, c)
	s.mu.Unlock()
}

// Len returns the number of coordinates collected so far.
func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.coords)
}

// Coords returns a copy in the order the probes completed.
func (s *ResultSet) Coords() []tile.Coord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.coords)
}

// Sorted returns a copy ordered z, then y, then x, matching the order the
// range is flattened in.
func (s *ResultSet) Sorted() []tile.Coord {
	out := s.Coords()
	slices.SortFunc(out, compareCoords)
	return out
}

// Contains reports whether c has been collected.
func (s *ResultSet) Contains(c tile.Coord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.coords, c)
}

func compareCoords(a, b tile.Coord) int {
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// Failure records a probe that returned an error. The coordinate is left out
// of the ResultSet.
type Failure struct {
	Coord tile.Coord
	Err   error
}

// failureLog is the mutex-guarded list behind Result.Failures.
type failureLog struct {
	mu       sync.Mutex
	failures []Failure
}

func (f *failureLog) add(c tile.Coord, err error) {
	f.mu.Lock()
	f.failures = append(f.failures, Failure{Coord: c, Err: err})
	f.mu.Unlock()
}

func (f *failureLog) list() []Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.failures)
	slices.SortFunc(out, func(a, b Failure) int { return compareCoords(a.Coord, b.Coord) })
	return out
}
