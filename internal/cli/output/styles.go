package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Key     lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusRunning lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer so that the color
// profile of the destination writer is respected.
func NewStyles(r *lipgloss.Renderer) *Styles {
	green := lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#66BB6A"}
	red := lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#EF5350"}
	yellow := lipgloss.AdaptiveColor{Light: "#F57F17", Dark: "#FFCA28"}
	blue := lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#42A5F5"}
	gray := lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"}

	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(blue).Underline(true),
		Header2: r.NewStyle().Bold(true).Foreground(blue),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(gray),
		Success: r.NewStyle().Foreground(green),
		Warning: r.NewStyle().Foreground(yellow),
		Error:   r.NewStyle().Foreground(red).Bold(true),
		Info:    r.NewStyle().Foreground(blue),
		Key:     r.NewStyle().Foreground(gray).Width(18),

		StatusSuccess: r.NewStyle().Foreground(green).Bold(true),
		StatusFailed:  r.NewStyle().Foreground(red).Bold(true),
		StatusRunning: r.NewStyle().Foreground(yellow),
	}
}
