package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/tui/results"
)

type stubLogs struct {
	queries []telemetry.LogsQuery
}

func (s *stubLogs) QueryWorkspace(_ context.Context, q telemetry.LogsQuery) (*telemetry.QueryResult, error) {
	s.queries = append(s.queries, q)
	return &telemetry.QueryResult{Tables: []telemetry.Table{{
		Name:    "PrimaryResult",
		Columns: []telemetry.Column{{Name: "Count", Type: "long"}},
		Rows:    []telemetry.Row{{int64(3)}},
	}}}, nil
}

func (s *stubLogs) QueryBatch(context.Context, []telemetry.BatchQuery) ([]telemetry.QueryResult, error) {
	return nil, nil
}

func (s *stubLogs) ListTables(context.Context, string) ([]string, error) {
	return []string{"AppTraces", "AppRequests"}, nil
}

func (s *stubLogs) GetColumns(context.Context, string, string) ([]telemetry.Column, error) {
	return []telemetry.Column{{Name: "TimeGenerated", Type: "datetime"}}, nil
}

func (s *stubLogs) Dialect() telemetry.Dialect { return telemetry.DialectKQL }

func (s *stubLogs) Close() error { return nil }

func openStub(logs *stubLogs) Opener {
	return func(_ context.Context, p config.Profile) (*app.Service, error) {
		return app.NewService(logs, nil, p), nil
	}
}

func TestNewModelStartsOnDefaultProfile(t *testing.T) {
	cfg := &config.Config{
		Profiles: []config.Profile{
			{Name: "dev", WorkspaceID: "ws-dev"},
			{Name: "prod", WorkspaceID: "ws-prod"},
		},
		Preferences: config.Preferences{DefaultProfile: "prod"},
	}

	m := NewModel(Options{Config: cfg})
	if m.mode != ModeSelectProfile {
		t.Fatalf("mode = %v, want ModeSelectProfile", m.mode)
	}
	if m.profileCursor != 1 {
		t.Errorf("profileCursor = %d, want 1", m.profileCursor)
	}
}

func TestNewModelWithoutProfiles(t *testing.T) {
	m := NewModel(Options{})
	if m.mode != ModeConnect {
		t.Errorf("mode = %v, want ModeConnect", m.mode)
	}
}

func TestOpenAndQuery(t *testing.T) {
	logs := &stubLogs{}
	p := config.Profile{Name: "prod", WorkspaceID: "ws-prod"}
	m := NewModel(Options{Config: &config.Config{}, Open: openStub(logs)})

	opened := m.openCmd(p, false)()
	next, _ := m.Update(opened)
	m = next.(Model)
	if m.mode != ModeMain {
		t.Fatalf("mode = %v, want ModeMain", m.mode)
	}
	if m.service == nil {
		t.Fatal("service not set")
	}

	next, _ = m.Update(m.loadSchemaCmd()())
	m = next.(Model)
	if m.err != nil {
		t.Fatalf("schema error: %v", m.err)
	}

	next, _ = m.Update(m.executeQueryCmd("", "AppTraces | count")())
	m = next.(Model)

	table, ok := m.results.Table()
	if !ok {
		t.Fatal("no result table")
	}
	if diff := cmp.Diff([]telemetry.Row{{int64(3)}}, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	want := []telemetry.LogsQuery{{WorkspaceID: "ws-prod", Query: "AppTraces | count", Timespan: "P1D"}}
	if diff := cmp.Diff(want, logs.queries); diff != "" {
		t.Errorf("queries mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveProfileAfterManualOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	m := NewModel(Options{Config: cfg, ConfigDir: dir})

	p, err := config.ParseTarget("ws-1")
	if err != nil {
		t.Fatal(err)
	}

	next, _ := m.Update(m.saveProfileCmd(p)())
	m = next.(Model)
	if !m.cfg.HasProfile(p.Name) {
		t.Fatalf("profile %q not added to config", p.Name)
	}

	loaded, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if !loaded.HasProfile(p.Name) {
		t.Errorf("profile %q not persisted", p.Name)
	}
}

func TestFilterMessageFillsEditor(t *testing.T) {
	m := NewModel(Options{Open: openStub(&stubLogs{})})
	next, _ := m.Update(m.openCmd(config.Profile{Name: "prod", WorkspaceID: "ws"}, false)())
	m = next.(Model)

	next, _ = m.Update(results.SetEditorQueryMsg{Query: "AppRequests | where Name == 'GET /'"})
	m = next.(Model)

	if got := m.editor.Value(); got != "AppRequests | where Name == 'GET /'" {
		t.Errorf("editor = %q", got)
	}
	if m.activePane != PaneEditor {
		t.Errorf("activePane = %v, want editor", m.activePane)
	}
}

func TestQuitFromProfileList(t *testing.T) {
	cfg := &config.Config{Profiles: []config.Profile{{Name: "dev", WorkspaceID: "ws"}}}
	m := NewModel(Options{Config: cfg})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
