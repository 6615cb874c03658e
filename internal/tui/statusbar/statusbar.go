package statusbar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/telequery/internal/tui/theme"
)

// Model is the status bar component.
type Model struct {
	width      int
	connected  bool
	target     string
	dialect    string
	timespan   string
	activePane string
	message    string
}

// New creates a new status bar model.
func New() Model {
	return Model{
		activePane: "explorer",
	}
}

func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetConnected updates the target shown on the left.
func (m *Model) SetConnected(connected bool, target, dialect string) {
	m.connected = connected
	m.target = target
	m.dialect = dialect
}

// SetTimespan updates the default timespan display.
func (m *Model) SetTimespan(ts string) {
	m.timespan = ts
}

func (m *Model) SetActivePane(pane string) {
	m.activePane = pane
}

// SetMessage replaces the key hints until cleared with "".
func (m *Model) SetMessage(msg string) {
	m.message = msg
}

// Message returns the current status message.
func (m Model) Message() string {
	return m.message
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(_ tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	var left string
	if m.connected {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorSuccess).
			Render("●") + " " + m.target
		if m.dialect != "" {
			left += " [" + m.dialect + "]"
		}
		if m.timespan != "" {
			left += " " + m.timespan
		}
	} else {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorError).
			Render("●") + " disconnected"
	}

	right := "Ctrl+E: Run │ Tab: Switch pane │ ?: Help │ q: Quit"
	if m.message != "" {
		right = m.message
	}

	padding := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-4)
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
