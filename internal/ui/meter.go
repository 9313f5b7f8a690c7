package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bar block characters.
const (
	barFilled = '█'
	barEmpty  = '░'
)

// RenderBar draws a usage bar: [████░░░░]  45%.
// percent is clamped to 0-100 and colored by ThresholdColor.
func RenderBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = max(0, min(100, percent))

	filled := int((percent / 100.0) * float64(width))
	bar := "[" + strings.Repeat(string(barFilled), filled) +
		strings.Repeat(string(barEmpty), width-filled) + "]"

	style := lipgloss.NewStyle().Foreground(ThresholdColor(percent))
	return style.Render(bar) + fmt.Sprintf(" %3.0f%%", percent)
}
