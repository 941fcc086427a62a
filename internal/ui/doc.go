// Package ui provides theme and color support for the command-line output
// and the dashboard. It defines ANSI color schemes for the CLI and
// lipgloss palettes for the TUI, so presentation packages share one source
// of colors.
package ui
