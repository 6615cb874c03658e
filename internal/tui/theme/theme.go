package theme

import "github.com/charmbracelet/lipgloss"

// Palette is a named set of colors.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	Muted     lipgloss.Color
	Highlight lipgloss.Color
}

var palettes = map[string]Palette{
	"default": {
		Primary:   "39",  // Azure blue
		Secondary: "241", // Gray
		Success:   "42",  // Green
		Warning:   "214", // Orange
		Error:     "196", // Red
		Border:    "238", // Dark gray
		Muted:     "245", // Light gray
		Highlight: "229", // Yellow
	},
	"mono": {
		Primary:   "255",
		Secondary: "244",
		Success:   "252",
		Warning:   "250",
		Error:     "255",
		Border:    "240",
		Muted:     "244",
		Highlight: "231",
	},
}

var (
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorSuccess   lipgloss.Color
	ColorWarning   lipgloss.Color
	ColorError     lipgloss.Color
	ColorBorder    lipgloss.Color
	ColorMuted     lipgloss.Color
	ColorHighlight lipgloss.Color
)

// Shared styles used across TUI components.
var (
	StyleBorder       lipgloss.Style
	StyleActiveBorder lipgloss.Style
	StyleTitle        lipgloss.Style
	StyleMuted        lipgloss.Style
	StyleError        lipgloss.Style
	StyleWarning      lipgloss.Style
	StyleSuccess      lipgloss.Style
	StyleStatusBar    lipgloss.Style
)

func init() {
	Apply("default")
}

// Apply switches to the named palette. Unknown names select "default".
// It reports whether name was known.
func Apply(name string) bool {
	p, ok := palettes[name]
	if !ok {
		p = palettes["default"]
	}

	ColorPrimary = p.Primary
	ColorSecondary = p.Secondary
	ColorSuccess = p.Success
	ColorWarning = p.Warning
	ColorError = p.Error
	ColorBorder = p.Border
	ColorMuted = p.Muted
	ColorHighlight = p.Highlight

	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleActiveBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary)

	StyleTitle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleError = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)

	StyleStatusBar = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1)

	return ok
}
