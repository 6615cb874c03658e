package results

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/joacominatel/telequery/internal/telemetry"
)

func sampleResult() *telemetry.QueryResult {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &telemetry.QueryResult{
		Tables: []telemetry.Table{
			{
				Name: "PrimaryResult",
				Columns: []telemetry.Column{
					{Name: "TimeGenerated", Type: "datetime"},
					{Name: "Name", Type: "string"},
					{Name: "DurationMs", Type: "real"},
				},
				Rows: []telemetry.Row{
					{ts, "GET /", 12.5},
					{ts, `say "hi", o'k`, nil},
				},
			},
			{
				Name:    "Stats",
				Columns: []telemetry.Column{{Name: "n", Type: "long"}},
				Rows:    []telemetry.Row{{int64(2)}},
			},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newFocused() Model {
	m := New()
	m.SetSize(120, 20)
	m.SetFocused(true)
	m.SetResult(sampleResult(), "AppRequests | take 2")
	return m
}

func TestRowToJSON(t *testing.T) {
	res := sampleResult()
	got := rowToJSON(res.Tables[0].Columns, res.Tables[0].Rows[1])

	want := `{"TimeGenerated": "2024-05-01T10:00:00Z", "Name": "say \"hi\", o'k", "DurationMs": null}`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult().Tables[0]); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := "TimeGenerated,Name,DurationMs\n" +
		"2024-05-01T10:00:00Z,GET /,12.5\n" +
		"2024-05-01T10:00:00Z,\"say \"\"hi\"\", o'k\",\n"
	if got := buf.String(); got != want {
		t.Errorf("csv mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult().Tables[1]); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := buf.String(); got != "[\n  {\"n\": 2}\n]\n" {
		t.Errorf("unexpected JSON %q", got)
	}

	buf.Reset()
	if err := WriteJSON(&buf, telemetry.Table{}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestFilterQuery(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		dialect telemetry.Dialect
		value   any
		want    string
	}{
		{"kql string", telemetry.DialectKQL, "o'k", `T | where C == 'o\'k'`},
		{"kql number", telemetry.DialectKQL, int64(5), "T | where C == 5"},
		{"kql datetime", telemetry.DialectKQL, ts, "T | where C == datetime(2024-05-01T10:00:00Z)"},
		{"kql null", telemetry.DialectKQL, nil, "T | where isnull(C)"},
		{"sql string", telemetry.DialectSQL, "o'k", "SELECT * FROM T WHERE C = 'o''k'"},
		{"sql bool", telemetry.DialectSQL, true, "SELECT * FROM T WHERE C = true"},
		{"sql null", telemetry.DialectSQL, nil, "SELECT * FROM T WHERE C IS NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterQuery(tt.dialect, "T", "C", tt.value); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSourceTable(t *testing.T) {
	tests := []struct {
		dialect telemetry.Dialect
		query   string
		want    string
	}{
		{telemetry.DialectKQL, "AppRequests | take 10", "AppRequests"},
		{telemetry.DialectKQL, "AppRequests| take 10", "AppRequests"},
		{telemetry.DialectKQL, "let x = 1; T", ""},
		{telemetry.DialectSQL, "select * from public.events limit 5", "public.events"},
		{telemetry.DialectSQL, "SELECT 1", ""},
		{telemetry.DialectSQL, "", ""},
	}

	for _, tt := range tests {
		if got := sourceTable(tt.dialect, tt.query); got != tt.want {
			t.Errorf("sourceTable(%q): expected %q, got %q", tt.query, tt.want, got)
		}
	}
}

func TestNavigation(t *testing.T) {
	m := newFocused()

	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("down"))
	if m.cursorY != 1 {
		t.Errorf("expected cursor clamped to last row, got %d", m.cursorY)
	}

	m, _ = m.Update(key("right"))
	if m.cursorX != 1 {
		t.Errorf("expected cursorX 1, got %d", m.cursorX)
	}

	m, _ = m.Update(key("n"))
	table, _ := m.Table()
	if table.Name != "Stats" || m.cursorX != 0 || m.cursorY != 0 {
		t.Errorf("expected second table with reset cursor, got %q (%d,%d)", table.Name, m.cursorX, m.cursorY)
	}

	m, _ = m.Update(key("n"))
	if table, _ := m.Table(); table.Name != "PrimaryResult" {
		t.Errorf("expected wrap to first table, got %q", table.Name)
	}
}

func TestRawMode(t *testing.T) {
	m := newFocused()
	m, _ = m.Update(key("n"))
	m, _ = m.Update(key("r"))

	want := []string{"| n(long) ", "| 2 "}
	if diff := cmp.Diff(want, m.rawLines); diff != "" {
		t.Errorf("raw lines mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.View(), "| n(long) ") {
		t.Errorf("expected raw lines in view, got:\n%s", m.View())
	}
}

func TestMalformedTableShowsErrorInRawMode(t *testing.T) {
	m := New()
	m.SetSize(80, 10)
	m.SetFocused(true)
	m.SetResult(&telemetry.QueryResult{Tables: []telemetry.Table{{
		Name:    "Broken",
		Columns: []telemetry.Column{{Name: "a", Type: "string"}, {Name: "b", Type: "string"}},
		Rows:    []telemetry.Row{{"only one"}},
	}}}, "Broken")

	m, _ = m.Update(key("r"))
	if m.rawErr == nil {
		t.Fatal("expected malformed row error")
	}
	if !strings.Contains(m.View(), "malformed row 0") {
		t.Errorf("expected error in view, got:\n%s", m.View())
	}
}

func TestCopyCell(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })

	m := newFocused()
	m, _ = m.Update(key("right"))

	_, cmd := m.Update(key("y"))
	if cmd == nil {
		t.Fatal("expected a status command")
	}
	msg, ok := cmd().(StatusNotifyMsg)
	if !ok || !strings.HasPrefix(msg.Message, "Copied") {
		t.Errorf("unexpected message %#v", msg)
	}
	if copied != "GET /" {
		t.Errorf("expected %q copied, got %q", "GET /", copied)
	}
}

func TestFilterByValueSendsEditorQuery(t *testing.T) {
	m := newFocused()
	m, _ = m.Update(key("right"))

	_, cmd := m.Update(key("f"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(SetEditorQueryMsg)
	if !ok {
		t.Fatalf("expected SetEditorQueryMsg, got %#v", cmd())
	}
	if msg.Query != "AppRequests | where Name == 'GET /'" {
		t.Errorf("unexpected query %q", msg.Query)
	}
}
