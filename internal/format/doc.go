// Package format holds the display helpers shared by the CLI and the TUI:
// durations, counts, rates, progress bars and remaining-time estimates.
package format
