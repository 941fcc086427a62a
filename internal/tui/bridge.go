package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/tile"
)

// programRef is a shared reference to the tea.Program. Bubbletea copies the
// model on every Update, so the build goroutine needs a pointer that
// survives copies.
type programRef struct {
	mu      sync.RWMutex
	program *tea.Program
}

// SetProgram sets the tea.Program reference.
func (r *programRef) SetProgram(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Send forwards msg to the program. It is a no-op before SetProgram.
func (r *programRef) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// failureObserver forwards probe failures to the dashboard.
type failureObserver struct {
	ref *programRef
}

var _ manifest.Observer = failureObserver{}

func (failureObserver) ProbeStarted(tile.Coord) {}

func (o failureObserver) ProbeFinished(c tile.Coord, _ bool, err error, _ time.Duration) {
	if err != nil {
		o.ref.Send(ProbeFailedMsg{Coord: c, Err: err})
	}
}

// buildOutcome holds the result of the build once it has returned. The
// model may quit before the build goroutine finishes, so Run waits on done.
type buildOutcome struct {
	done   chan struct{}
	once   sync.Once
	result *manifest.Result
	err    error
}

func newBuildOutcome() *buildOutcome {
	return &buildOutcome{done: make(chan struct{})}
}

func (b *buildOutcome) set(res *manifest.Result, err error) {
	b.once.Do(func() {
		b.result, b.err = res, err
		close(b.done)
	})
}

func (b *buildOutcome) wait() (*manifest.Result, error) {
	<-b.done
	return b.result, b.err
}
