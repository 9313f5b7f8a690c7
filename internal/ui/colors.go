package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication. ANSI codes keep output readable
// on any terminal palette.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// spinnerColors cycle while a spinner animates.
var spinnerColors = []lipgloss.Color{ColorInfo, ColorSecondary, ColorSuccess}

// DisableColors switches all rendering to plain text.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// StatusColor maps a host or check status to its color.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "online", "pass":
		return ColorSuccess
	case "warn":
		return ColorWarning
	case "offline", "error", "fail":
		return ColorError
	default:
		return ColorMuted
	}
}

// ThresholdColor colors resource usage: under 60% green, under 80% yellow,
// red above.
func ThresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
