// Package tui provides an interactive search browser for upm.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette - matches existing CLI colors
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorText      = lipgloss.Color("#F3F4F6") // Light gray
	ColorBgAlt     = lipgloss.Color("#374151") // Dark gray
)

// SourceColors maps each package source to its brand color.
var SourceColors = map[string]lipgloss.Color{
	"apt":     lipgloss.Color("#A80030"), // Debian red
	"snap":    lipgloss.Color("#E95420"), // Ubuntu orange
	"flatpak": lipgloss.Color("#4A90D9"), // Flatpak blue
}

// Styles contains all the lipgloss styles used in the TUI
type Styles struct {
	Header    lipgloss.Style
	Footer    lipgloss.Style
	StatusBar lipgloss.Style

	Title       lipgloss.Style
	Description lipgloss.Style

	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style

	PackageName    lipgloss.Style
	PackageVersion lipgloss.Style
	PackageDesc    lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	InputPrompt lipgloss.Style

	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

// DefaultStyles returns the default style configuration
func DefaultStyles() *Styles {
	s := &Styles{}

	s.Header = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorBgAlt).
		Padding(0, 1).
		Bold(true)

	s.Footer = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(0, 1)

	s.StatusBar = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorBgAlt).
		Padding(0, 1)

	s.Title = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true).
		MarginBottom(1)

	s.Description = lipgloss.NewStyle().
		Foreground(ColorMuted)

	s.ListItem = lipgloss.NewStyle().
		PaddingLeft(2)

	s.ListItemSelected = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		PaddingLeft(0).
		SetString("> ")

	s.PackageName = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true)

	s.PackageVersion = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	s.PackageDesc = lipgloss.NewStyle().
		Foreground(ColorMuted)

	s.Success = lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Bold(true)

	s.Warning = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Bold(true)

	s.Error = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)

	s.Info = lipgloss.NewStyle().
		Foreground(ColorSecondary)

	s.InputPrompt = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	s.HelpKey = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)

	s.HelpDesc = lipgloss.NewStyle().
		Foreground(ColorMuted)

	return s
}

// Badge creates a badge-style label
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// SourceBadge creates a badge for a package source
func SourceBadge(source string) string {
	color, ok := SourceColors[source]
	if !ok {
		color = ColorMuted
	}
	return Badge(source, color)
}
