package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/studenttracker/client/internal/model"
)

// One Dark Pro color palette
var (
	// Background colors
	ColorBgPrimary   = lipgloss.Color("#282C34")
	ColorBgSecondary = lipgloss.Color("#21252B")
	ColorBgHighlight = lipgloss.Color("#2C313C")

	// Foreground colors
	ColorFgPrimary   = lipgloss.Color("#ABB2BF")
	ColorFgSecondary = lipgloss.Color("#828997")
	ColorFgMuted     = lipgloss.Color("#636B78")
	ColorFgComment   = lipgloss.Color("#5C6370")

	// Syntax colors
	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")
	ColorCyan    = lipgloss.Color("#56B6C2")
	ColorOrange  = lipgloss.Color("#D19A66")

	// UI colors
	ColorBorder = lipgloss.Color("#3F4451")
)

// Component styles
var (
	// Header
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	RoleBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorBgPrimary).
			Background(ColorMagenta).
			Padding(0, 1).
			Bold(true)

	// Sidebar
	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	SidebarFocusedStyle = SidebarStyle.
				BorderForeground(ColorBlue)

	SidebarTitleStyle = lipgloss.NewStyle().
				Foreground(ColorMagenta).
				Bold(true)

	NavItemStyle = lipgloss.NewStyle().
			Foreground(ColorFgSecondary)

	NavActiveStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	// Content area
	ContentStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	ContentFocusedStyle = ContentStyle.
				BorderForeground(ColorBlue)

	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(ColorMagenta).
				Bold(true).
				MarginBottom(1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 2).
			MarginRight(1)

	CardValueStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorFgSecondary).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	// Auth screen
	AuthBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Padding(1, 3)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			Padding(0, 2)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ColorBgPrimary).
			Background(ColorBlue).
			Padding(0, 2).
			Bold(true)

	// Forms
	FormLabelStyle = lipgloss.NewStyle().
			Foreground(ColorFgSecondary).
			Width(16)

	FormLabelFocusedStyle = FormLabelStyle.
				Foreground(ColorGreen).
				Bold(true)

	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	ChoiceStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingRight(1)

	ChoiceActiveStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true).
				PaddingRight(1)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorYellow).
			Padding(1, 2)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1).
			PaddingRight(1)

	StatusBusyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	StatusIdleStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	// Help overlay
	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	HelpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Width(12)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	// Toasts
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	// Dimmed/info style for less important text
	DimStyle = lipgloss.NewStyle().
			Foreground(ColorFgComment)
)

// statusStyle colors an attendance status
func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusPresent:
		return SuccessStyle
	case model.StatusAbsent:
		return ErrorStyle
	case model.StatusLate:
		return WarningStyle
	default:
		return DimStyle
	}
}

// tableStyles restyles the bubbles table in the palette
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true).
		Foreground(ColorMagenta).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorBgPrimary).
		Background(ColorBlue).
		Bold(false)
	return s
}
