package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FooterModel renders key hints and the run status.
type FooterModel struct {
	keys   KeyMap
	paused bool
	done   bool
	failed bool
	width  int
}

// NewFooterModel creates a footer with the default bindings.
func NewFooterModel() FooterModel {
	return FooterModel{keys: DefaultKeyMap()}
}

func (f *FooterModel) SetWidth(w int)     { f.width = w }
func (f *FooterModel) SetPaused(p bool)   { f.paused = p }
func (f *FooterModel) SetDone(d bool)     { f.done = d }
func (f *FooterModel) SetError(fail bool) { f.failed = fail }

// View renders the footer.
func (f FooterModel) View() string {
	var hints []string
	for _, b := range f.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, footerKeyStyle.Render(h.Key)+" "+footerDescStyle.Render(h.Desc))
	}
	left := strings.Join(hints, "  ")
	right := f.status()
	gap := max(f.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return " " + left + spaces(gap) + right
}

func (f FooterModel) status() string {
	switch {
	case f.failed:
		return statusErrorStyle.Render("STOPPED")
	case f.done:
		return statusDoneStyle.Render("DONE")
	case f.paused:
		return statusPausedStyle.Render("FROZEN")
	default:
		return statusRunningStyle.Render("PROBING")
	}
}
