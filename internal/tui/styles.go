package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
)

// lineStyles renders the progress lines printed outside of a program.
// They are bound to the output writer so colors are dropped when it is
// not a terminal.
type lineStyles struct {
	label lipgloss.Style
	hint  lipgloss.Style
	ok    lipgloss.Style
}

func newLineStyles(out io.Writer) lineStyles {
	r := lipgloss.NewRenderer(out, termenv.WithColorCache(true))
	return lineStyles{
		label: r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		hint:  r.NewStyle().Foreground(lipgloss.Color("241")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}
