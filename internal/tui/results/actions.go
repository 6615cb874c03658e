package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joacominatel/telequery/internal/render"
	"github.com/joacominatel/telequery/internal/telemetry"
)

// clipboardWrite is swapped in tests.
var clipboardWrite = clipboard.WriteAll

func notify(msg string) tea.Cmd {
	return func() tea.Msg {
		return StatusNotifyMsg{Message: msg}
	}
}

func (m Model) currentRow() (telemetry.Row, bool) {
	table, ok := m.Table()
	if !ok || m.cursorY < 0 || m.cursorY >= len(table.Rows) {
		return nil, false
	}
	return table.Rows[m.cursorY], true
}

func (m Model) toClipboard(text, done string) tea.Cmd {
	if err := clipboardWrite(text); err != nil {
		return notify("Copy failed: " + err.Error())
	}
	return notify(done)
}

func (m Model) copyCell() tea.Cmd {
	row, ok := m.currentRow()
	if !ok || m.cursorX >= len(row) {
		return notify("Nothing to copy")
	}
	val := render.Format(row[m.cursorX])
	return m.toClipboard(val, "Copied: "+truncateStatus(val, 40))
}

func (m Model) copyRowJSON() tea.Cmd {
	row, ok := m.currentRow()
	if !ok {
		return notify("No row to copy")
	}
	table, _ := m.Table()
	return m.toClipboard(rowToJSON(table.Columns, row), "Copied row as JSON")
}

func (m Model) copyRowCSV() tea.Cmd {
	row, ok := m.currentRow()
	if !ok {
		return notify("No row to copy")
	}
	table, _ := m.Table()

	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(columnNames(table.Columns))
	_ = w.Write(csvRecord(row))
	w.Flush()
	return m.toClipboard(b.String(), "Copied row as CSV")
}

func (m Model) copyRowText() tea.Cmd {
	row, ok := m.currentRow()
	if !ok {
		return notify("No row to copy")
	}
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = render.Format(v)
	}
	return m.toClipboard(strings.Join(cells, "\t"), "Copied row as text")
}

// filterByValue puts a query restricting the source table to the
// selected cell's value into the editor.
func (m Model) filterByValue() tea.Cmd {
	table, ok := m.Table()
	row, rowOK := m.currentRow()
	if !ok || !rowOK || m.cursorX >= len(table.Columns) || m.cursorX >= len(row) {
		return notify("Cannot filter: no cell selected")
	}
	source := sourceTable(m.dialect, m.lastQuery)
	if source == "" {
		return notify("Cannot filter: source table unknown")
	}

	query := FilterQuery(m.dialect, source, table.Columns[m.cursorX].Name, row[m.cursorX])
	return func() tea.Msg {
		return SetEditorQueryMsg{Query: query}
	}
}

// FilterQuery builds a query selecting the rows of table where column
// equals v.
func FilterQuery(d telemetry.Dialect, table, column string, v any) string {
	if d == telemetry.DialectSQL {
		if v == nil {
			return fmt.Sprintf("SELECT * FROM %s WHERE %s IS NULL", table, column)
		}
		return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", table, column, literal(v, "'", "''"))
	}
	if v == nil {
		return fmt.Sprintf("%s | where isnull(%s)", table, column)
	}
	return fmt.Sprintf("%s | where %s == %s", table, column, literal(v, "'", `\'`))
}

func literal(v any, quote, escaped string) string {
	switch v.(type) {
	case bool, int, int32, int64, float32, float64, json.Number:
		return render.Format(v)
	case time.Time:
		return "datetime(" + render.Format(v) + ")"
	}
	return quote + strings.ReplaceAll(render.Format(v), quote, escaped) + quote
}

// sourceTable guesses the table a query reads from: the first token of a
// KQL query, or the name after FROM in SQL.
func sourceTable(d telemetry.Dialect, query string) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}
	if d != telemetry.DialectSQL {
		name := strings.TrimRight(tokens[0], "|;")
		if name == "" || strings.HasPrefix(name, "//") || name == "let" || name == "union" {
			return ""
		}
		return name
	}
	for i, tok := range tokens {
		if strings.EqualFold(tok, "FROM") && i+1 < len(tokens) {
			return strings.TrimRight(tokens[i+1], ";,()")
		}
	}
	return ""
}

// --- Export ---

func (m Model) exportJSONCmd() tea.Cmd {
	table, ok := m.Table()
	if !ok {
		return notify("Nothing to export")
	}
	return func() tea.Msg {
		filename := exportName("json")
		f, err := os.Create(filename)
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		defer func() { _ = f.Close() }()

		if err := WriteJSON(f, table); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(table.Rows), filename)}
	}
}

func (m Model) exportCSVCmd() tea.Cmd {
	table, ok := m.Table()
	if !ok {
		return notify("Nothing to export")
	}
	return func() tea.Msg {
		filename := exportName("csv")
		f, err := os.Create(filename)
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		defer func() { _ = f.Close() }()

		if err := WriteCSV(f, table); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(table.Rows), filename)}
	}
}

func exportName(ext string) string {
	return fmt.Sprintf("telequery_export_%s.%s", time.Now().Format("20060102_150405"), ext)
}

// WriteCSV writes table with a header record. Nulls are empty fields.
func WriteCSV(w io.Writer, table telemetry.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columnNames(table.Columns)); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := cw.Write(csvRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes table as an array of objects keyed by column name, in
// column order.
func WriteJSON(w io.Writer, table telemetry.Table) error {
	var b strings.Builder
	b.WriteString("[")
	for i, row := range table.Rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n  ")
		b.WriteString(rowToJSON(table.Columns, row))
	}
	if len(table.Rows) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("]\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func csvRecord(row telemetry.Row) []string {
	rec := make([]string, len(row))
	for i, v := range row {
		if v != nil {
			rec[i] = render.Format(v)
		}
	}
	return rec
}

// rowToJSON preserves column order unlike map marshaling
func rowToJSON(columns []telemetry.Column, row telemetry.Row) string {
	var b strings.Builder
	b.WriteString("{")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		key, _ := json.Marshal(col.Name)
		b.Write(key)
		b.WriteString(": ")

		var v any
		if i < len(row) {
			v = row[i]
		}
		val, err := json.Marshal(v)
		if err != nil {
			val, _ = json.Marshal(render.Format(v))
		}
		b.Write(val)
	}
	b.WriteString("}")
	return b.String()
}

func truncateStatus(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
