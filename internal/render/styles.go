package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	ok   lipgloss.Style
	warn lipgloss.Style
	bad  lipgloss.Style
	dim  lipgloss.Style
}

// newStyles binds the palette to w so that colors are dropped when w is not
// a terminal.
func newStyles(w io.Writer) styles {
	re := lipgloss.NewRenderer(w)
	return styles{
		ok:   re.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warn: re.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		bad:  re.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dim:  re.NewStyle().Foreground(lipgloss.Color("8")),
	}
}
