package render

import (
	"github.com/charmbracelet/lipgloss"

	"filediff/internal/gitdiff"
)

// Color constants for consistent theming
var (
	colorBlue   = lipgloss.Color("blue")
	colorYellow = lipgloss.Color("yellow")

	colorGray243 = lipgloss.Color("243") // Medium gray
	colorGray244 = lipgloss.Color("244") // Subtle gray
	colorGray245 = lipgloss.Color("245") // Light gray

	colorGreen142 = lipgloss.Color("142") // Soft green (diff content)
	colorGreen86  = lipgloss.Color("86")  // Bright green
	colorRed203   = lipgloss.Color("203") // Soft red (diff content)
	colorRed196   = lipgloss.Color("196") // Bright red

	colorSoftBlue75 = lipgloss.Color("75")
	colorSoftYellow = lipgloss.Color("229")
	colorPurple147  = lipgloss.Color("147")
)

var (
	fileHeaderStyle = lipgloss.NewStyle().
			Foreground(colorSoftBlue75).
			Bold(true)

	headerLineStyle = lipgloss.NewStyle().
			Foreground(colorGray244)

	hunkStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	addedStyle = lipgloss.NewStyle().
			Foreground(colorGreen142)

	addedPrefixStyle = lipgloss.NewStyle().
				Foreground(colorGreen86).
				Bold(true)

	removedStyle = lipgloss.NewStyle().
			Foreground(colorRed203)

	removedPrefixStyle = lipgloss.NewStyle().
				Foreground(colorRed196).
				Bold(true)

	contextStyle = lipgloss.NewStyle().
			Foreground(colorGray245)

	// Edits caused by the rebase are dimmed and marked.
	rebaseMarkerStyle = lipgloss.NewStyle().
				Foreground(colorPurple147).
				Italic(true)

	rebaseLineStyle = lipgloss.NewStyle().
			Foreground(colorGray243)

	statsStyle = lipgloss.NewStyle().
			Foreground(colorSoftYellow).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorGray243).
			Italic(true)

	statusAddedStyle = lipgloss.NewStyle().
				Foreground(colorGreen86).
				Bold(true)

	statusModifiedStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)

	statusDeletedStyle = lipgloss.NewStyle().
				Foreground(colorRed196).
				Bold(true)
)

// StatusStyle returns the style for a change type.
func StatusStyle(changeType gitdiff.ChangeType) lipgloss.Style {
	switch changeType {
	case gitdiff.Added:
		return statusAddedStyle
	case gitdiff.Deleted:
		return statusDeletedStyle
	default:
		return statusModifiedStyle
	}
}

// StatusSymbol returns the one-letter symbol git uses for a change type.
func StatusSymbol(changeType gitdiff.ChangeType) string {
	switch changeType {
	case gitdiff.Added:
		return "A"
	case gitdiff.Deleted:
		return "D"
	case gitdiff.Renamed:
		return "R"
	case gitdiff.Copied:
		return "C"
	case gitdiff.Rewrite:
		return "W"
	default:
		return "M"
	}
}
