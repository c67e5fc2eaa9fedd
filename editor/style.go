package editor

import "github.com/charmbracelet/lipgloss"

// Style controls the editor's rendering. The zero value renders plain text
// with an invisible cursor.
type Style struct {
	Gutter        lipgloss.Style
	LineNum       lipgloss.Style
	LineNumActive lipgloss.Style

	Text      lipgloss.Style
	Selection lipgloss.Style
	Cursor    lipgloss.Style
}

// DefaultStyle adapts to light and dark terminal backgrounds.
func DefaultStyle() Style {
	dim := lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "240"})
	return Style{
		Gutter:        dim,
		LineNum:       dim,
		LineNumActive: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "236", Dark: "250"}).Bold(true),
		Selection:     lipgloss.NewStyle().Background(lipgloss.AdaptiveColor{Light: "253", Dark: "237"}),
		Cursor:        lipgloss.NewStyle().Reverse(true),
	}
}
