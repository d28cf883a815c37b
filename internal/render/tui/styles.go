// Package tui is the interactive renderer (--tui): a Bubble Tea program
// with a scrolling, searchable log pane and a fuzzy-filterable pod legend,
// selected via charmbracelet/bubbles components. Grounded on
// khelper/pkg/ui/styles.go's one-lipgloss.Style-per-concern idiom, trimmed
// to the concerns a log viewer needs.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	PrimaryColor   = lipgloss.Color("#7C3AED")
	SecondaryColor = lipgloss.Color("#10B981")
	AccentColor    = lipgloss.Color("#F59E0B")
	ErrorColor     = lipgloss.Color("#EF4444")
	WarningColor   = lipgloss.Color("#F59E0B")
	MutedColor     = lipgloss.Color("#6B7280")
	TextColor      = lipgloss.Color("#F3F4F6")
	HighlightBg    = lipgloss.Color("#374151")

	BaseStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	InfoStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	InputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(SecondaryColor).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	ListItemStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			PaddingLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true).
				PaddingLeft(2)

	MatchStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			MarginTop(1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(HighlightBg).
			Padding(0, 1)

	CursorStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	PromptStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)
)

// RenderError creates a styled error message.
func RenderError(msg string) string {
	return ErrorStyle.Render("✗ " + msg)
}

// RenderLoading creates a styled loading message.
func RenderLoading(msg string) string {
	return InfoStyle.Render("⏳ " + msg)
}
