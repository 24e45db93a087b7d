package terminal

import "fmt"

// Theme is the terminal palette.
type Theme struct {
	Name       string
	Background string
	Foreground string
	Cursor     string
}

var (
	DarkTheme = Theme{
		Name:       "dark",
		Background: "#0f172a",
		Foreground: "#f8fafc",
		Cursor:     "#f8fafc",
	}
	LightTheme = Theme{
		Name:       "light",
		Background: "#ffffff",
		Foreground: "#0f172a",
		Cursor:     "#0f172a",
	}
)

// ThemeByName returns the named palette.
func ThemeByName(name string) (Theme, error) {
	switch name {
	case "", "dark":
		return DarkTheme, nil
	case "light":
		return LightTheme, nil
	}
	return Theme{}, fmt.Errorf("unknown theme %q", name)
}

// Toggle returns the other palette.
func (t Theme) Toggle() Theme {
	if t.Name == LightTheme.Name {
		return DarkTheme
	}
	return LightTheme
}
