package main

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#3b82f6") // blue-500
	colorDim    = lipgloss.Color("#6b7280") // gray-500
	colorMuted  = lipgloss.Color("#9ca3af") // gray-400
	colorFail   = lipgloss.Color("#ef4444") // red-500
)

// styles holds the lipgloss styles shared by complete and try.
type styles struct {
	Label    lipgloss.Style
	Selected lipgloss.Style
	Detail   lipgloss.Style
	Kind     lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style

	SymbolPointer string
}

func defaultStyles() *styles {
	return &styles{
		Label:    lipgloss.NewStyle().Bold(true),
		Selected: lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Detail:   lipgloss.NewStyle().Foreground(colorMuted),
		Kind:     lipgloss.NewStyle().Foreground(colorDim).Italic(true),
		Error:    lipgloss.NewStyle().Foreground(colorFail).Bold(true),
		Help:     lipgloss.NewStyle().Foreground(colorDim),

		SymbolPointer: "❯",
	}
}
