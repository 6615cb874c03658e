package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/telemetry/restapi"
)

const twoRowTable = `{"tables":[{"name":"PrimaryResult",
	"columns":[{"name":"X","type":"string"},{"name":"Y","type":"int"}],
	"rows":[["a",1],["b",2]]}]}`

type testRun struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	err    error
}

func run(t *testing.T, stdin string, args ...string) *testRun {
	t.Helper()

	r := &testRun{}
	a := NewApp()
	a.Stdout = &r.stdout
	a.Stderr = &r.stderr
	a.Stdin = strings.NewReader(stdin)
	a.Tokens = func(string) auth.TokenProvider { return auth.StaticToken("test-token") }

	r.err = a.Execute(context.Background(), args)
	return r
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestLogsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/workspaces/ws-1/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		_, _ = w.Write([]byte(twoRowTable))
	}))
	defer server.Close()

	res := run(t, "", "--config-dir", t.TempDir(), "--logs-endpoint", server.URL,
		"logs", "query", "-w", "ws-1", "-t", "PT1H", "T | take 2")
	if res.err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", res.err, res.stderr.String())
	}

	want := []string{"| X(string) | Y(int) ", "| 'a' | 1 ", "| 'b' | 2 "}
	if diff := cmp.Diff(want, lines(res.stdout.String())); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLogsQuery_TitleNamesQueryAndTimespan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(twoRowTable))
	}))
	defer server.Close()

	res := run(t, "", "--config-dir", t.TempDir(), "--logs-endpoint", server.URL,
		"logs", "query", "--title", "-w", "ws-1", "-t", "PT1H", "T | take 2")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}

	want := []string{
		"Printing results from query 'T | take 2' for 'PT1H'",
		"X(string) | Y(int) ",
		"'a' | 1 ",
		"'b' | 2 ",
	}
	if diff := cmp.Diff(want, lines(res.stdout.String())); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLogsQuery_UsesConfiguredProfileAndTimespan(t *testing.T) {
	var gotTimespan string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/workspaces/saved-ws/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Timespan string `json:"timespan"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotTimespan = body.Timespan
		_, _ = w.Write([]byte(`{"tables":[]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		Profiles:    []config.Profile{{Name: "prod", Backend: config.BackendLogAnalytics, WorkspaceID: "saved-ws", LogsEndpoint: server.URL}},
		Preferences: config.Preferences{Timespan: "P7D"},
	}
	if err := config.SaveTo(dir, cfg); err != nil {
		t.Fatal(err)
	}

	res := run(t, "", "--config-dir", dir, "logs", "query", "T")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if gotTimespan != "P7D" {
		t.Errorf("expected configured timespan, got %q", gotTimespan)
	}
	if diff := cmp.Diff([]string{"No results for query"}, lines(res.stdout.String())); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLogsQuery_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BadArgumentError","message":"syntax error"}}`))
	}))
	defer server.Close()

	res := run(t, "", "--config-dir", t.TempDir(), "--logs-endpoint", server.URL,
		"logs", "query", "-w", "ws-1", "T |")
	if res.err == nil {
		t.Fatal("expected error")
	}
	if code := ExitCode(res.err); code != ExitUser {
		t.Errorf("expected exit code %d, got %d", ExitUser, code)
	}
	if !strings.Contains(res.stderr.String(), "syntax error") {
		t.Errorf("expected service message on stderr, got %q", res.stderr.String())
	}
	if res.stdout.Len() != 0 {
		t.Errorf("expected no stdout, got %q", res.stdout.String())
	}
}

func TestLogsQuery_NoWorkspace(t *testing.T) {
	res := run(t, "", "--config-dir", t.TempDir(), "logs", "query", "T")
	if code := ExitCode(res.err); code != ExitUser {
		t.Errorf("expected exit code %d, got %d (%v)", ExitUser, code, res.err)
	}
}

func TestLogsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/$batch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Requests []struct {
				ID   string `json:"id"`
				Body struct {
					Query string `json:"query"`
				} `json:"body"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Requests) != 3 {
			t.Errorf("expected 3 requests, got %d", len(req.Requests))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Answer out of order; the second query fails.
		_, _ = fmt.Fprintf(w, `{"responses":[
			{"id":%q,"status":200,"body":{"tables":[]}},
			{"id":%q,"status":400,"body":{"error":{"code":"SemanticError","message":"unknown table"}}},
			{"id":%q,"status":200,"body":%s}]}`,
			req.Requests[2].ID, req.Requests[1].ID, req.Requests[0].ID, twoRowTable)
	}))
	defer server.Close()

	file := filepath.Join(t.TempDir(), "queries.kql")
	if err := os.WriteFile(file, []byte("// counts\nMissing | count\n\nEmpty\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	res := run(t, "", "--config-dir", t.TempDir(), "--logs-endpoint", server.URL,
		"logs", "batch", "-w", "ws-1", "-t", "P1D", "-q", "T | take 2", "--file", file)
	if res.err == nil {
		t.Fatal("expected error for the failed query")
	}
	if !strings.Contains(res.err.Error(), "1 of 3 queries failed") {
		t.Errorf("unexpected error %v", res.err)
	}

	want := []string{
		"Printing results from query 'T | take 2' for 'P1D'",
		"X(string) | Y(int) ",
		"'a' | 1 ",
		"'b' | 2 ",
		"Error in query 2 'Missing | count': SemanticError: unknown table",
		"No results for query 'Empty'",
	}
	if diff := cmp.Diff(want, lines(res.stdout.String())); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLogsBatch_Stdin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Requests []struct {
				ID string `json:"id"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = fmt.Fprintf(w, `{"responses":[{"id":%q,"status":200,"body":{"tables":[]}}]}`, req.Requests[0].ID)
	}))
	defer server.Close()

	res := run(t, "Heartbeat\n", "--config-dir", t.TempDir(), "--logs-endpoint", server.URL,
		"logs", "batch", "-w", "ws-1", "-f", "-")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(res.stdout.String(), "No results for query 'Heartbeat'") {
		t.Errorf("unexpected output %q", res.stdout.String())
	}
}

func TestLogsBatch_NoQueries(t *testing.T) {
	res := run(t, "", "--config-dir", t.TempDir(), "logs", "batch", "-w", "ws-1")
	if code := ExitCode(res.err); code != ExitUser {
		t.Errorf("expected exit code %d, got %d (%v)", ExitUser, code, res.err)
	}
}

func TestMetricsDefinitions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/providers/Microsoft.Insights/metricDefinitions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"value":[{"name":{"value":"Requests"},"unit":"Count",
			"primaryAggregationType":"Total","supportedAggregationTypes":["Total","Count"],
			"dimensions":[{"value":"Instance"}]}]}`))
	}))
	defer server.Close()

	res := run(t, "", "--config-dir", t.TempDir(), "--metrics-endpoint", server.URL,
		"metrics", "definitions", "-r", "/subscriptions/s/resourceGroups/g/providers/Microsoft.Web/sites/app")
	if res.err != nil {
		t.Fatalf("unexpected error: %v (stderr %s)", res.err, res.stderr.String())
	}

	want := []string{
		"| name(string) | unit(string) | primaryAggregation(string) | aggregations(string) | dimensions(string) ",
		"| 'Requests' | 'Count' | 'Total' | 'Total,Count' | 'Instance' ",
	}
	if diff := cmp.Diff(want, lines(res.stdout.String())); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestMetricsQuery_RequiresMetric(t *testing.T) {
	res := run(t, "", "--config-dir", t.TempDir(), "metrics", "query", "-r", "/subscriptions/s")
	if code := ExitCode(res.err); code != ExitUser {
		t.Errorf("expected exit code %d, got %d (%v)", ExitUser, code, res.err)
	}
}

func TestConfigAddAndProfiles(t *testing.T) {
	dir := t.TempDir()

	res := run(t, "", "--config-dir", dir, "config", "add", "prod", "-w", "ws-1", "--additional-workspace", "ws-2")
	if res.err != nil {
		t.Fatalf("config add: %v", res.err)
	}
	res = run(t, "", "--config-dir", dir, "config", "add", "mirror", "--dsn", "postgres://reader@db/logs")
	if res.err != nil {
		t.Fatalf("config add: %v", res.err)
	}

	res = run(t, "", "--config-dir", dir, "config", "add", "prod", "-w", "ws-3")
	if code := ExitCode(res.err); code != ExitUser {
		t.Errorf("expected duplicate profile to be a user error, got %d (%v)", code, res.err)
	}

	res = run(t, "", "--config-dir", dir, "config", "profiles")
	if res.err != nil {
		t.Fatalf("config profiles: %v", res.err)
	}
	want := []string{
		"| name(string) | backend(string) | target(string) | default(bool) ",
		"| 'prod' | 'loganalytics' | 'ws-1 +1' | true ",
		"| 'mirror' | 'postgres' | 'reader@db/logs' | false ",
	}
	if diff := cmp.Diff(want, lines(res.stdout.String())); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownProfile(t *testing.T) {
	res := run(t, "", "--config-dir", t.TempDir(), "--profile", "nope", "logs", "query", "T")
	var cfgErr *app.ErrConfig
	if !errors.As(res.err, &cfgErr) {
		t.Fatalf("expected ErrConfig, got %v", res.err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	res := run(t, "", "--config-dir", t.TempDir(), "--log-level", "loud", "config", "profiles")
	if code := ExitCode(res.err); code != ExitUser {
		t.Errorf("expected exit code %d, got %d (%v)", ExitUser, code, res.err)
	}
}

func TestTUIRequiresTerminal(t *testing.T) {
	res := run(t, "", "--config-dir", t.TempDir(), "tui")
	if !errors.Is(res.err, errNotTerminal) {
		t.Fatalf("expected errNotTerminal, got %v", res.err)
	}
}

func TestExitCode(t *testing.T) {
	apiErr := func(status int) error {
		return &restapi.ContextualError{Method: "POST", URL: "u", StatusCode: status, Err: &restapi.APIError{StatusCode: status}}
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), ExitCanceled},
		{"no token", &app.ErrAuth{Cause: auth.ErrNoToken}, ExitAuth},
		{"unauthorized", apiErr(http.StatusUnauthorized), ExitAuth},
		{"not found", apiErr(http.StatusNotFound), ExitNotFound},
		{"throttled", &app.ErrQuery{Query: "T", Cause: apiErr(http.StatusTooManyRequests)}, ExitRateLimit},
		{"bad request", apiErr(http.StatusBadRequest), ExitUser},
		{"server error", apiErr(http.StatusBadGateway), ExitSystem},
		{"config", &app.ErrConfig{Cause: errors.New("bad")}, ExitUser},
		{"usage", usageError(errors.New("bad flag")), ExitUser},
		{"other", errors.New("boom"), ExitSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
