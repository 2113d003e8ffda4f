package plot

// Theme selects the chart color scheme.
type Theme string

const (
	// ThemeLight renders dark text on a light page.
	ThemeLight Theme = "light"
	// ThemeDark renders light text on a dark page.
	ThemeDark Theme = "dark"
)

// ThemeConfig holds the colors used by a chart.
type ThemeConfig struct {
	PageBackground  string
	ChartBackground string
	ChartGrid       string
	ChartAxis       string
	ChartText       string
	ChartTextMuted  string

	// OtherSeries and ABBASeries color the two histograms.
	OtherSeries string
	ABBASeries  string
}

// GetThemeConfig returns the configuration for theme, falling back to light.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeDark {
		return darkTheme
	}

	return lightTheme
}

var lightTheme = ThemeConfig{
	PageBackground:  "#fafaf9", // stone-50.
	ChartBackground: "transparent",
	ChartGrid:       "#e7e5e4", // stone-200.
	ChartAxis:       "#a8a29e", // stone-400.
	ChartText:       "#44403c", // stone-700.
	ChartTextMuted:  "#78716c", // stone-500.
	OtherSeries:     "#0369a1", // sky-700.
	ABBASeries:      "#c2410c", // orange-700.
}

var darkTheme = ThemeConfig{
	PageBackground:  "#0c0a09", // stone-950.
	ChartBackground: "transparent",
	ChartGrid:       "#44403c", // stone-700.
	ChartAxis:       "#57534e", // stone-600.
	ChartText:       "#d6d3d1", // stone-300.
	ChartTextMuted:  "#a8a29e", // stone-400.
	OtherSeries:     "#38bdf8", // sky-400.
	ABBASeries:      "#fb923c", // orange-400.
}
