package prompt

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen = lipgloss.Color("42")
	colorRed   = lipgloss.Color("196")
	colorCyan  = lipgloss.Color("51")
	colorDim   = lipgloss.Color("240")
	colorWhite = lipgloss.Color("255")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	labelFocusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	errStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	keyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	choiceStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)
)

// renderMarkdown converts a markdown message body to styled terminal
// output, falling back to the raw input if rendering fails.
func renderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
