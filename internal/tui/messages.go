package tui

import (
	"time"

	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/tile"
)

// TickMsg drives periodic sampling of progress and resources.
type TickMsg time.Time

// SysStatsMsg carries a resource sample.
type SysStatsMsg struct {
	CPUPercent float64
	MemPercent float64
	OpenFiles  int
}

// MemStatsMsg carries Go runtime memory statistics.
type MemStatsMsg struct {
	Alloc        uint64
	HeapSys      uint64
	NumGC        uint32
	NumGoroutine int
}

// ProbeFailedMsg reports a probe that returned an error.
type ProbeFailedMsg struct {
	Coord tile.Coord
	Err   error
}

// BuildCompleteMsg reports the end of the build.
type BuildCompleteMsg struct {
	Result *manifest.Result
	Err    error
}

// ContextCancelledMsg reports that the parent context ended.
type ContextCancelledMsg struct {
	Err error
}
