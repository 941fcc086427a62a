package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/agbru/tilemanifest/internal/config"
	"github.com/agbru/tilemanifest/internal/format"
	"github.com/agbru/tilemanifest/internal/ui"
)

// PrintExecutionConfig displays the resolved configuration of a build: the
// template, the range, the probe backend and the concurrency limits.
func PrintExecutionConfig(cfg config.AppConfig, out io.Writer) {
	rng := cfg.Range()
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Template %s%s%s over %s%s%s (%s%s%s tiles) with a timeout of %s%s%s.\n",
		ui.ColorMagenta(), cfg.Format, ui.ColorReset(),
		ui.ColorCyan(), rng, ui.ColorReset(),
		ui.ColorBold(), format.FormatCount(rng.Count()), ui.ColorReset(),
		ui.ColorYellow(), cfg.Timeout, ui.ColorReset())
	fmt.Fprintf(out, "Probe: %s%s%s.\n", ui.ColorCyan(), describeProbe(cfg), ui.ColorReset())

	probeTimeout := "none"
	if cfg.ProbeTimeout > 0 {
		probeTimeout = cfg.ProbeTimeout.String()
	}
	fmt.Fprintf(out, "Concurrency: %s%d%s probes in flight, %s order, per-probe timeout %s%s%s.\n",
		ui.ColorCyan(), cfg.MaxInFlight, ui.ColorReset(), cfg.ClaimOrder(),
		ui.ColorYellow(), probeTimeout, ui.ColorReset())
	fmt.Fprintf(out, "Environment: %s%d%s logical processors, Go %s%s%s.\n",
		ui.ColorCyan(), runtime.NumCPU(), ui.ColorReset(), ui.ColorCyan(), runtime.Version(), ui.ColorReset())
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}

func describeProbe(cfg config.AppConfig) string {
	switch {
	case cfg.ProbeURL != "":
		return "remote service at " + cfg.ProbeURL
	case cfg.Root != "":
		return "local files under " + cfg.Root
	default:
		return "local files and URLs"
	}
}
