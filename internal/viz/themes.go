package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the particle canvas and the stats panel.
type Theme struct {
	Name      string
	Particles lipgloss.Color
	Border    lipgloss.Color
	Accent    lipgloss.Color
	Muted     lipgloss.Color
	Warning   lipgloss.Color
}

var Themes = []Theme{
	{
		Name:      "cyberpunk",
		Particles: lipgloss.Color("#00ffff"),
		Border:    lipgloss.Color("#444466"),
		Accent:    lipgloss.Color("#ff00ff"),
		Muted:     lipgloss.Color("#666688"),
		Warning:   lipgloss.Color("#ffaa00"),
	},
	{
		Name:      "retro",
		Particles: lipgloss.Color("#00ff00"), // green phosphor
		Border:    lipgloss.Color("#005500"),
		Accent:    lipgloss.Color("#88ff88"),
		Muted:     lipgloss.Color("#007700"),
		Warning:   lipgloss.Color("#ffff00"),
	},
	{
		Name:      "minimal",
		Particles: lipgloss.Color("#ffffff"),
		Border:    lipgloss.Color("#888888"),
		Accent:    lipgloss.Color("#0088ff"),
		Muted:     lipgloss.Color("#888888"),
		Warning:   lipgloss.Color("#ffaa00"),
	},
}

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(t Theme) Theme {
	for i := range Themes {
		if Themes[i].Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
