package viz

import (
	"fmt"
	"image/color"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/tdmraster/internal/raster"
)

// Theme defines color scheme for the TUI
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	BitSet    lipgloss.Color
	Separator lipgloss.Color
}

// Available themes
var (
	ThemeClassic = Theme{
		Name:      "classic",
		Primary:   lipgloss.Color("#00ff00"),
		Accent:    lipgloss.Color("#ffffff"),
		Text:      lipgloss.Color("#e0e0e0"),
		Muted:     lipgloss.Color("#808080"),
		Error:     lipgloss.Color("#ff0000"),
		BitSet:    lipgloss.Color("#00ff00"),
		Separator: lipgloss.Color("#ffffff"),
	}

	ThemeAmber = Theme{
		Name:      "amber",
		Primary:   lipgloss.Color("#ffb000"),
		Accent:    lipgloss.Color("#ffd27f"),
		Text:      lipgloss.Color("#ffcc66"),
		Muted:     lipgloss.Color("#805800"),
		Error:     lipgloss.Color("#ff4040"),
		BitSet:    lipgloss.Color("#ffb000"),
		Separator: lipgloss.Color("#664400"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Accent:    lipgloss.Color("#0088ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Error:     lipgloss.Color("#ff0000"),
		BitSet:    lipgloss.Color("#ffffff"),
		Separator: lipgloss.Color("#444444"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Error:     lipgloss.Color("#ff4444"),
		BitSet:    lipgloss.Color("#00ff88"),
		Separator: lipgloss.Color("#0077be"),
	}

	Themes = []Theme{
		ThemeClassic,
		ThemeAmber,
		ThemeMinimal,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name, falling back to classic.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeClassic
}

// Next is the theme after t in Themes, wrapping around.
func (t Theme) Next() Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return ThemeClassic
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Foreground maps a painted color to the terminal color of a cell. Bit and
// separator colors follow the theme; RGB layout colors are shown as painted.
func (t Theme) Foreground(c color.RGBA) lipgloss.Color {
	switch c {
	case raster.BitSet:
		return t.BitSet
	case raster.Separator:
		return t.Separator
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
