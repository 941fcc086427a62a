//go:generate mockgen -source=ui.go -destination=mocks/mock_ui.go -package=mocks

package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/tilemanifest/internal/format"
	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/ui"
)

const (
	// ProgressRefreshRate is how often the progress line is redrawn.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth is the width in characters of the progress bar.
	ProgressBarWidth = 40
)

// Spinner abstracts the terminal spinner so DisplayProgress can be tested
// without a terminal.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	// Same interval as ProgressRefreshRate so frames and redraws line up.
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// ProgressReporter renders the live progress of a build.
type ProgressReporter interface {
	DisplayProgress(ctx context.Context, wg *sync.WaitGroup, p *manifest.Progress, out io.Writer)
}

// CLIProgressReporter draws a spinner with a progress bar.
type CLIProgressReporter struct{}

// DisplayProgress implements ProgressReporter.
func (CLIProgressReporter) DisplayProgress(ctx context.Context, wg *sync.WaitGroup, p *manifest.Progress, out io.Writer) {
	DisplayProgress(ctx, wg, p, out)
}

// NullProgressReporter displays nothing. Quiet mode and the dashboard use it.
type NullProgressReporter struct{}

// DisplayProgress implements ProgressReporter.
func (NullProgressReporter) DisplayProgress(_ context.Context, wg *sync.WaitGroup, _ *manifest.Progress, _ io.Writer) {
	wg.Done()
}

// DisplayProgress polls p and redraws a spinner line until the build is done
// or ctx is canceled. It calls wg.Done on return.
func DisplayProgress(ctx context.Context, wg *sync.WaitGroup, p *manifest.Progress, out io.Writer) {
	defer wg.Done()

	eta := format.NewProgressWithETA()
	s := newSpinner(spinner.WithWriter(out))
	s.UpdateSuffix(" Probing tiles...")
	s.Start()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			printFinalProgress(out, p, eta)
			return
		case <-ticker.C:
			if p.Done() {
				s.Stop()
				printFinalProgress(out, p, eta)
				return
			}
			s.UpdateSuffix(" " + progressLine(p.Snapshot(), eta))
		}
	}
}

// progressLine renders the bar, the estimate and the live counters.
func progressLine(snap manifest.Snapshot, eta *format.ProgressWithETA) string {
	fraction := 0.0
	if snap.Total > 0 {
		fraction = float64(snap.Total-snap.Remaining-snap.InFlight) / float64(snap.Total)
	} else if snap.Done {
		fraction = 1
	}
	progress, remaining := eta.Update(fraction)
	line := fmt.Sprintf("%s | %s%s%s left, %d in flight, %s%s%s found",
		format.FormatProgressBarWithETA(progress, remaining, ProgressBarWidth),
		ui.ColorBold(), format.FormatCount(snap.Remaining), ui.ColorReset(),
		snap.InFlight,
		ui.ColorGreen(), format.FormatCount(snap.Found), ui.ColorReset())
	if snap.Failed > 0 {
		line += fmt.Sprintf(", %s%s failed%s", ui.ColorRed(), format.FormatCount(snap.Failed), ui.ColorReset())
	}
	return line
}

func printFinalProgress(out io.Writer, p *manifest.Progress, eta *format.ProgressWithETA) {
	fmt.Fprintf(out, "%s\n", progressLine(p.Snapshot(), eta))
}
