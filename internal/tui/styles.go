package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/csvstats/csvstats/internal/api"
)

// Color constants.
const (
	primaryColor   = "#7C3AED" // Purple
	secondaryColor = "#10B981" // Green
	warningColor   = "#F59E0B" // Amber
	errorColor     = "#EF4444" // Red
	infoColor      = "#3B82F6" // Blue
	dimColor       = "#6B7280" // Gray
)

// Style variables for consistent TUI rendering.
var (
	// BoxStyle provides a rounded border box with primary color.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2)

	// TitleStyle renders titles in primary color with bold.
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// DimStyle renders dim/muted text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	// SuccessStyle renders success messages in green.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor))

	// ErrorStyle renders error messages in red.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor))

	// WarningStyle renders warning messages in amber.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningColor))

	// InfoStyle renders informational text in blue.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(infoColor))

	// StatusBarStyle renders the key hints at the foot of a screen.
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)

	// ActiveTabStyle renders the active tab.
	ActiveTabStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(primaryColor)).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2)
)

// StatusStyle picks the style for an upload status: validated is a success,
// a failed validation an error, validating a warning and anything else info.
func StatusStyle(status api.UploadStatus) lipgloss.Style {
	switch status {
	case api.StatusValidated:
		return SuccessStyle
	case api.StatusValidationFailed:
		return ErrorStyle
	case api.StatusValidating:
		return WarningStyle
	default:
		return InfoStyle
	}
}
