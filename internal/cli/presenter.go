package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/agbru/tilemanifest/internal/format"
	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/ui"
)

// maxListedFailures bounds the failure list printed in verbose mode.
const maxListedFailures = 50

// DisplaySummary prints the outcome of a build. With verbose set it also
// lists failed probes.
func DisplaySummary(res *manifest.Result, verbose bool, out io.Writer) {
	found := res.Found.Len()
	failed := len(res.Failures)
	missing := res.Probed - found - failed

	fmt.Fprintf(out, "\n--- Manifest Summary ---\n")
	rows := [][2]string{
		{"Run", res.RunID},
		{"Range", res.Range.String()},
		{"Tiles", format.FormatCount(res.Range.Count())},
		{"Found", ui.ColorGreen() + format.FormatCount(found) + ui.ColorReset()},
		{"Missing", format.FormatCount(missing)},
		{"Failed", colorIf(failed > 0, ui.ColorRed(), format.FormatCount(failed))},
		{"Workers", fmt.Sprintf("%d", res.Workers)},
		{"Duration", fmt.Sprintf("%s%s%s (%s)", ui.ColorYellow(), formatDuration(res.Duration), ui.ColorReset(),
			format.FormatRate(res.Probed, res.Duration))},
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%s%s:%s%s %s\n", ui.ColorGrey(), r[0], ui.ColorReset(), padRight("", width-len(r[0])), r[1])
	}

	switch {
	case res.Probed < res.Range.Count():
		fmt.Fprintf(out, "Status: %s⚠️  Interrupted (%d of %d probed)%s\n",
			ui.ColorYellow(), res.Probed, res.Range.Count(), ui.ColorReset())
	case failed > 0:
		fmt.Fprintf(out, "Status: %s⚠️  Partial (%d probe(s) failed)%s\n", ui.ColorYellow(), failed, ui.ColorReset())
	default:
		fmt.Fprintf(out, "Status: %s✅ Complete%s\n", ui.ColorGreen(), ui.ColorReset())
	}

	if verbose && failed > 0 {
		DisplayFailures(res.Failures, out)
	}
}

// DisplayFailures lists failed probes, at most maxListedFailures of them.
func DisplayFailures(failures []manifest.Failure, out io.Writer) {
	fmt.Fprintf(out, "\nFailed probes:\n")
	for i, f := range failures {
		if i == maxListedFailures {
			fmt.Fprintf(out, "  ... and %d more\n", len(failures)-maxListedFailures)
			return
		}
		fmt.Fprintf(out, "  %s%s%s: %v\n", ui.ColorBlue(), f.Coord, ui.ColorReset(), f.Err)
	}
}

// DisplayExport confirms where the manifest was written.
func DisplayExport(target, name string, count int, out io.Writer) {
	fmt.Fprintf(out, "Manifest of %s%s%s tile(s) written to %s%s%s (%s).\n",
		ui.ColorBold(), format.FormatCount(count), ui.ColorReset(),
		ui.ColorCyan(), target, ui.ColorReset(), name)
}

// padRight returns s followed by length spaces.
func padRight(s string, length int) string {
	if length <= 0 {
		return s
	}
	return s + fmt.Sprintf("%*s", length, "")
}

func colorIf(cond bool, color, s string) string {
	if !cond {
		return s
	}
	return color + s + ui.ColorReset()
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "< 1µs"
	}
	return format.FormatExecutionDuration(d)
}
