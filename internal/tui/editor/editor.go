package editor

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/tui/theme"
)

// ExecuteQueryMsg is sent when the user triggers query execution.
type ExecuteQueryMsg struct {
	Query string
}

// Model is the query editor component.
type Model struct {
	textarea textarea.Model
	width    int
	height   int
	focused  bool
	dialect  telemetry.Dialect

	// Completion state
	tableNames  []string
	completing  bool
	completions []string
	compIndex   int
}

// New creates a new editor model.
func New() Model {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0 // unlimited
	ta.Prompt = "│ "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorPrimary)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorBorder)

	m := Model{textarea: ta}
	m.SetDialect(telemetry.DialectKQL)
	return m
}

// SetDialect selects keyword formatting, completion rules and placeholder.
func (m *Model) SetDialect(d telemetry.Dialect) {
	m.dialect = d
	if d == telemetry.DialectSQL {
		m.textarea.Placeholder = "Enter SQL query..."
	} else {
		m.textarea.Placeholder = "Enter KQL query, e.g. AppRequests | take 10"
	}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.textarea.SetWidth(w - 2)
	m.textarea.SetHeight(h - 2)
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

func (m Model) Focused() bool {
	return m.focused
}

// Value returns the current editor content.
func (m Model) Value() string {
	return m.textarea.Value()
}

// SetQuery replaces the editor content.
func (m *Model) SetQuery(query string) {
	m.textarea.SetValue(query)
}

// SetTableNames sets the table names offered by completion.
func (m *Model) SetTableNames(names []string) {
	m.tableNames = names
}

// CompletionActive reports whether Tab is cycling completion candidates.
func (m Model) CompletionActive() bool {
	return m.completing
}

// Clear empties the editor.
func (m *Model) Clear() {
	m.textarea.Reset()
	m.cancelCompletion()
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		key := msg.String()

		switch key {
		case "ctrl+e", "f5":
			query := strings.TrimSpace(m.textarea.Value())
			if query == "" {
				return m, nil
			}
			m.cancelCompletion()
			return m, func() tea.Msg {
				return ExecuteQueryMsg{Query: query}
			}

		case "ctrl+k":
			m.Clear()
			return m, nil

		case "ctrl+l":
			m.textarea.SetValue(FormatKeywords(m.dialect, m.textarea.Value()))
			return m, nil

		case "tab", "ctrl+@", "ctrl+ ":
			if m.tryCompletion() {
				return m, nil
			}

		case "esc":
			if m.completing {
				m.cancelCompletion()
				return m, nil
			}
		}

		if m.completing && key != "tab" {
			m.cancelCompletion()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// FormatKeywords rewrites the keywords of query in the canonical case of
// d. Quoted strings and // comments are left untouched.
func FormatKeywords(d telemetry.Dialect, query string) string {
	if query == "" {
		return ""
	}

	var (
		out     strings.Builder
		word    strings.Builder
		quote   rune
		comment bool
		prev    rune
	)
	flush := func() {
		if word.Len() > 0 {
			out.WriteString(d.FormatKeyword(word.String()))
			word.Reset()
		}
	}

	for _, ch := range query {
		switch {
		case comment:
			out.WriteRune(ch)
			if ch == '\n' {
				comment = false
			}
		case quote != 0:
			out.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			flush()
			quote = ch
			out.WriteRune(ch)
		case ch == '/' && prev == '/':
			flush()
			comment = true
			out.WriteRune(ch)
		case unicode.IsLetter(ch) || ch == '_' || ch == '-' && word.Len() > 0:
			word.WriteRune(ch)
		default:
			flush()
			out.WriteRune(ch)
		}
		prev = ch
	}
	flush()

	return out.String()
}

// Completions returns the table names matching the partial word at the
// end of text, or nil when the position does not expect a table.
func Completions(d telemetry.Dialect, tables []string, text string) []string {
	partial := lastWord(text)
	if partial == "" {
		return nil
	}
	before := strings.TrimSuffix(strings.TrimRight(text, " \t\r\n"), partial)
	if !d.TableContext(before) {
		return nil
	}

	lower := strings.ToLower(partial)
	var matches []string
	for _, name := range tables {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			matches = append(matches, name)
		}
	}
	return matches
}

func (m *Model) tryCompletion() bool {
	if m.completing && len(m.completions) > 0 {
		m.compIndex = (m.compIndex + 1) % len(m.completions)
		m.applyCompletion()
		return true
	}

	matches := Completions(m.dialect, m.tableNames, m.textarea.Value())
	if len(matches) == 0 {
		return false
	}

	m.completing = true
	m.completions = matches
	m.compIndex = 0
	m.applyCompletion()
	return true
}

// applyCompletion replaces the last word with the active candidate.
func (m *Model) applyCompletion() {
	val := strings.TrimRight(m.textarea.Value(), " \t\r\n")
	base := strings.TrimSuffix(val, lastWord(val))
	m.textarea.SetValue(base + m.completions[m.compIndex])
}

func (m *Model) cancelCompletion() {
	m.completing = false
	m.completions = nil
	m.compIndex = 0
}

func lastWord(s string) string {
	s = strings.TrimRight(s, " \t\n\r")
	i := len(s) - 1
	for i >= 0 && isIdentChar(rune(s[i])) {
		i--
	}
	return s[i+1:]
}

func isIdentChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '.'
}

// View renders the editor.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	title := titleStyle.Render("Query Editor (" + m.dialect.String() + ")")

	var completionHint string
	if m.completing && len(m.completions) > 1 {
		hint := make([]string, 0, len(m.completions))
		for i, c := range m.completions {
			if i == m.compIndex {
				hint = append(hint, lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true).Render(c))
			} else {
				hint = append(hint, theme.StyleMuted.Render(c))
			}
		}
		completionHint = "\n" + lipgloss.NewStyle().Padding(0, 1).Render(
			theme.StyleMuted.Render("Tab: ")+strings.Join(hint, " │ "),
		)
	}

	return title + "\n" + m.textarea.View() + completionHint
}
