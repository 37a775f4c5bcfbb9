package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/version"
)

// Application branding constants
const (
	AppName = "BACKLIGHT"
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants
const (
	MinTerminalWidth = 40 // Narrowest width the grid still fits in
	CellWidth        = 10 // Swatch cell width, border excluded
	CellHeight       = 3  // Swatch cell height, border excluded
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor   = lipgloss.Color("#FFFFFF") // White
	SubtleColor = lipgloss.Color("#626262") // Gray
	BorderColor = lipgloss.Color("#7D56F4") // Purple (same as primary)
)

// Common styles
var (
	// Title style
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// Subtitle style
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	// Button style for the action row
	ButtonStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	// StatusOKStyle is the status line after a successful push
	StatusOKStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// StatusErrorStyle is the status line after a failed push
	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	// Spinner style
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// PickerStyle frames the color picker
	PickerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	// PickerErrorStyle is the picker's validation message
	PickerErrorStyle = lipgloss.NewStyle().
				Foreground(WarningColor)
)

// contrast picks black or white text for legibility on c.
func contrast(c color.RGB) lipgloss.Color {
	if c.IsLight() {
		return lipgloss.Color("#000000")
	}
	return lipgloss.Color("#FFFFFF")
}

// cellStyle is a filled swatch cell. The cursor gets a thick border, every
// other cell a hidden one so the grid does not shift.
func cellStyle(c color.RGB, focused bool) lipgloss.Style {
	border := lipgloss.HiddenBorder()
	if focused {
		border = lipgloss.ThickBorder()
	}
	return lipgloss.NewStyle().
		Width(CellWidth).
		Height(CellHeight).
		Align(lipgloss.Center, lipgloss.Center).
		Background(lipgloss.Color(c.Hex())).
		Foreground(contrast(c)).
		Bold(true).
		Border(border).
		BorderForeground(PrimaryColor)
}

// addCellStyle is the trailing "+" cell.
func addCellStyle(focused bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	fg := SubtleColor
	if focused {
		border = lipgloss.ThickBorder()
		fg = PrimaryColor
	}
	return lipgloss.NewStyle().
		Width(CellWidth).
		Height(CellHeight).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(fg).
		Border(border).
		BorderForeground(fg)
}

// renderChip renders a small solid block of c.
func renderChip(c color.RGB, width int) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(c.Hex())).
		Render(strings.Repeat(" ", width))
}

// BuildHeaderContent creates the header: app name and version on the left,
// the trigger button showing the published color on the right.
func BuildHeaderContent(published color.RGB, target string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	trigger := lipgloss.JoinHorizontal(lipgloss.Top,
		renderChip(published, 4), " ",
		lipgloss.NewStyle().Foreground(TextColor).Render(published.Hex()),
	)

	right := lipgloss.NewStyle().Foreground(SubtleColor).Render(target)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", trigger, "  ", right)
}

// RenderApplicationContainer wraps a screen with the header and a footer
// holding the help text. A zero width or height renders unframed content,
// which is what tests and the first frame before a WindowSizeMsg see.
func RenderApplicationContainer(header, content, footerText string, width, height int) string {
	if width <= 0 || height <= 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, "", content, "", footerText)
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Foreground(SubtleColor).
		Width(width-4).
		Padding(0, 1)

	inner := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(header),
		lipgloss.NewStyle().Width(width-4).Padding(1, 1).Render(content),
		footerStyle.Render(footerText),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2).
		Height(height - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, bordered)
}
