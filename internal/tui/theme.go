package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Color is a lipgloss.TerminalColor that can be read from a theme file, either
// as a single "#rrggbb" string or as a ["#light", "#dark"] pair.
type Color struct {
	lipgloss.TerminalColor
}

// Theme contains the colors and icons for the application.
type Theme struct {
	Primary  Color
	Subtle   Color
	Success  Color
	Error    Color
	Normal   Color
	Disabled Color
	Border   Color

	SignalHigh Color
	SignalLow  Color

	TitleIcon         string
	NetworkSecureIcon string
	NetworkOpenIcon   string
}

// CurrentTheme is the active theme for the application.
var CurrentTheme = NewDefaultTheme()

// NewDefaultTheme creates a new default theme.
func NewDefaultTheme() Theme {
	return Theme{
		Primary:  Color{lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#D359E3"}}, // Purple/Pink
		Subtle:   Color{lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}}, // Gray
		Success:  Color{lipgloss.AdaptiveColor{Light: "#388E3C", Dark: "#81C784"}}, // Green
		Error:    Color{lipgloss.AdaptiveColor{Light: "#D32F2F", Dark: "#E57373"}}, // Red
		Normal:   Color{lipgloss.AdaptiveColor{Light: "#212121", Dark: "#FFFFFF"}}, // Black/White
		Disabled: Color{lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#424242"}},
		Border:   Color{lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}},

		SignalHigh: Color{lipgloss.AdaptiveColor{Light: "#00B300", Dark: "#00FF00"}},
		SignalLow:  Color{lipgloss.AdaptiveColor{Light: "#D05F00", Dark: "#BC3C00"}},

		TitleIcon:         "📶 ",
		NetworkSecureIcon: "🔒 ",
		NetworkOpenIcon:   "   ",
	}
}

// hex resolves c to a hex string for the current background, or "" if it is
// not a hex color.
func (c Color) hex() string {
	switch v := c.TerminalColor.(type) {
	case lipgloss.Color:
		return string(v)
	case lipgloss.AdaptiveColor:
		if lipgloss.HasDarkBackground() {
			return v.Dark
		}
		return v.Light
	}
	return ""
}

// signalColor blends SignalLow into SignalHigh by strength (0-100).
func (t Theme) signalColor(strength uint8) lipgloss.TerminalColor {
	low, errLow := colorful.Hex(t.SignalLow.hex())
	high, errHigh := colorful.Hex(t.SignalHigh.hex())
	if errLow != nil || errHigh != nil {
		return t.SignalHigh
	}
	blend := low.BlendRgb(high, float64(min(strength, 100))/100.0)
	return lipgloss.Color(blend.Hex())
}
