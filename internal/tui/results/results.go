package results

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/telequery/internal/render"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/tui/theme"
)

const maxColWidth = 40

// Model is the query results component. It shows one table of the
// result at a time, as an aligned grid or as raw rendered lines.
type Model struct {
	result    *telemetry.QueryResult
	err       error
	tableIdx  int
	cells     [][]string // formatted values of the current table
	colWidths []int
	raw       bool
	rawLines  []string
	rawErr    error

	lastQuery string
	dialect   telemetry.Dialect

	width     int
	height    int
	focused   bool
	loading   bool
	cursorX   int
	cursorY   int
	scrollY   int
	colOffset int
}

// New creates a new results model.
func New() Model {
	return Model{dialect: telemetry.DialectKQL}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
}

func (m Model) Focused() bool {
	return m.focused
}

func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetDialect selects the language of generated filter queries.
func (m *Model) SetDialect(d telemetry.Dialect) {
	m.dialect = d
}

// SetResult shows r, starting at its first table.
func (m *Model) SetResult(r *telemetry.QueryResult, query string) {
	m.result = r
	m.err = nil
	m.lastQuery = query
	m.loading = false
	m.selectTable(0)
}

// SetError shows err instead of a result.
func (m *Model) SetError(err error) {
	m.err = err
	m.result = nil
	m.cells = nil
	m.colWidths = nil
	m.loading = false
}

// Table returns the table being shown.
func (m Model) Table() (telemetry.Table, bool) {
	if m.result == nil || m.tableIdx >= len(m.result.Tables) {
		return telemetry.Table{}, false
	}
	return m.result.Tables[m.tableIdx], true
}

func (m *Model) selectTable(i int) {
	m.tableIdx = i
	m.cursorX, m.cursorY, m.scrollY, m.colOffset = 0, 0, 0, 0

	table, ok := m.Table()
	if !ok {
		m.cells, m.colWidths, m.rawLines, m.rawErr = nil, nil, nil, nil
		return
	}

	m.cells = make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		m.cells[r] = make([]string, len(row))
		for c, v := range row {
			m.cells[r][c] = render.Format(v)
		}
	}
	m.colWidths = columnWidths(table.Columns, m.cells)
	m.rawLines, m.rawErr = render.RenderTable(table, render.DefaultOptions())
}

func columnWidths(cols []telemetry.Column, cells [][]string) []int {
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = lipgloss.Width(col.Name)
	}
	for _, row := range cells {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], 1), maxColWidth)
	}
	return widths
}

func (m Model) rowCount() int {
	if m.raw {
		return len(m.rawLines)
	}
	return len(m.cells)
}

func (m Model) visibleRows() int {
	return max(1, m.height-4)
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		m.moveY(-1)
	case "down", "j":
		m.moveY(1)
	case "pgup":
		m.moveY(-m.visibleRows())
	case "pgdown":
		m.moveY(m.visibleRows())
	case "g", "home":
		m.moveY(-m.rowCount())
	case "G", "end":
		m.moveY(m.rowCount())
	case "left", "h":
		if m.cursorX > 0 {
			m.cursorX--
		}
		m.clampColumns()
	case "right", "l":
		if table, ok := m.Table(); ok && m.cursorX < len(table.Columns)-1 {
			m.cursorX++
		}
		m.clampColumns()
	case "n":
		if m.result != nil && len(m.result.Tables) > 1 {
			m.selectTable((m.tableIdx + 1) % len(m.result.Tables))
		}
	case "N", "p":
		if m.result != nil && len(m.result.Tables) > 1 {
			m.selectTable((m.tableIdx + len(m.result.Tables) - 1) % len(m.result.Tables))
		}
	case "r":
		m.raw = !m.raw
		m.cursorY, m.scrollY = 0, 0
	case "y":
		return m, m.copyCell()
	case "Y":
		return m, m.copyRowJSON()
	case "c":
		return m, m.copyRowCSV()
	case "t":
		return m, m.copyRowText()
	case "f":
		return m, m.filterByValue()
	case "e":
		return m, m.exportCSVCmd()
	case "E":
		return m, m.exportJSONCmd()
	}

	return m, nil
}

func (m *Model) moveY(delta int) {
	n := m.rowCount()
	if n == 0 {
		return
	}
	m.cursorY = min(max(m.cursorY+delta, 0), n-1)

	visible := m.visibleRows()
	if m.cursorY < m.scrollY {
		m.scrollY = m.cursorY
	}
	if m.cursorY >= m.scrollY+visible {
		m.scrollY = m.cursorY - visible + 1
	}
}

// clampColumns scrolls horizontally so the cursor column is visible.
func (m *Model) clampColumns() {
	if m.cursorX < m.colOffset {
		m.colOffset = m.cursorX
		return
	}
	for m.colOffset < m.cursorX && m.lastVisibleColumn() < m.cursorX {
		m.colOffset++
	}
}

func (m Model) lastVisibleColumn() int {
	avail := m.width - 2
	last := m.colOffset
	used := 0
	for i := m.colOffset; i < len(m.colWidths); i++ {
		used += m.colWidths[i] + 3
		if used > avail && i > m.colOffset {
			break
		}
		last = i
	}
	return last
}

// View renders the results pane.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	switch {
	case m.loading:
		return titleStyle.Render("Results") + "\n" + theme.StyleMuted.Render("  Running query...")
	case m.err != nil:
		return titleStyle.Render("Results") + "\n" + theme.StyleError.Render("  Error: "+m.err.Error())
	case m.result == nil:
		return titleStyle.Render("Results") + "\n" + theme.StyleMuted.Render("  Run a query to see results")
	}

	table, ok := m.Table()
	if !ok {
		return titleStyle.Render("Results") + "\n" + theme.StyleMuted.Render("  No results for query")
	}

	stats := fmt.Sprintf("%s (%d/%d) | %d row(s) | %s",
		table.Name, m.tableIdx+1, len(m.result.Tables),
		len(table.Rows), m.result.Duration.Round(1000).String())
	header := titleStyle.Render("Results") + "  " + theme.StyleMuted.Render(stats)
	if m.result.PartialErr != nil {
		header += "  " + theme.StyleWarning.Render("partial: "+m.result.PartialErr.Error())
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	if m.raw {
		m.writeRaw(&b)
		return b.String()
	}

	b.WriteString(m.renderRow(columnNames(table.Columns), -1))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	end := min(len(m.cells), m.scrollY+m.visibleRows())
	for i := m.scrollY; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(m.cells[i], i))
	}

	return b.String()
}

func (m Model) writeRaw(b *strings.Builder) {
	if m.rawErr != nil {
		b.WriteString(theme.StyleError.Render("  " + m.rawErr.Error()))
		return
	}
	end := min(len(m.rawLines), m.scrollY+m.visibleRows()+2)
	for i := m.scrollY; i < end; i++ {
		line := m.rawLines[i]
		if m.width > 2 && len([]rune(line)) > m.width-2 {
			line = string([]rune(line)[:m.width-3]) + "…"
		}
		if i == m.cursorY {
			line = lipgloss.NewStyle().Foreground(theme.ColorHighlight).Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
}

func columnNames(cols []telemetry.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// renderRow renders the visible columns of one row; row is -1 for the header.
func (m Model) renderRow(cells []string, row int) string {
	last := m.lastVisibleColumn()
	parts := make([]string, 0, last-m.colOffset+1)

	for i := m.colOffset; i <= last && i < len(cells); i++ {
		width := 10
		if i < len(m.colWidths) {
			width = m.colWidths[i]
		}
		display := fit(cells[i], width)

		switch {
		case row < 0:
			display = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorPrimary).Render(display)
		case m.focused && row == m.cursorY && i == m.cursorX:
			display = lipgloss.NewStyle().Reverse(true).Render(display)
		case row == m.cursorY:
			display = lipgloss.NewStyle().Foreground(theme.ColorHighlight).Render(display)
		}
		parts = append(parts, display)
	}
	return "  " + strings.Join(parts, " │ ")
}

// fit truncates or pads s to exactly width display cells.
func fit(s string, width int) string {
	width = max(width, 1)
	if lipgloss.Width(s) > width {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func (m Model) renderSeparator() string {
	last := m.lastVisibleColumn()
	var parts []string
	for i := m.colOffset; i <= last && i < len(m.colWidths); i++ {
		parts = append(parts, strings.Repeat("─", max(m.colWidths[i], 1)))
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}
