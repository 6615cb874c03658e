package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joacominatel/telequery/internal/telemetry"
)

func TestFormatKeywords(t *testing.T) {
	tests := []struct {
		name    string
		dialect telemetry.Dialect
		in      string
		want    string
	}{
		{
			name:    "sql upper-cases keywords",
			dialect: telemetry.DialectSQL,
			in:      "select name from users where id = 1",
			want:    "SELECT name FROM users WHERE id = 1",
		},
		{
			name:    "sql leaves strings alone",
			dialect: telemetry.DialectSQL,
			in:      "select 'from where' from t",
			want:    "SELECT 'from where' FROM t",
		},
		{
			name:    "kql lower-cases operators",
			dialect: telemetry.DialectKQL,
			in:      "AppRequests | WHERE Success == false | Summarize count() by Name",
			want:    "AppRequests | where Success == false | summarize count() by Name",
		},
		{
			name:    "kql keeps comments",
			dialect: telemetry.DialectKQL,
			in:      "// TAKE some rows\nT | TAKE 5",
			want:    "// TAKE some rows\nT | take 5",
		},
		{
			name:    "empty",
			dialect: telemetry.DialectSQL,
			in:      "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatKeywords(tt.dialect, tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCompletions(t *testing.T) {
	tables := []string{"AppRequests", "AppExceptions", "Heartbeat", "public.events"}

	tests := []struct {
		name    string
		dialect telemetry.Dialect
		text    string
		want    []string
	}{
		{"kql query start", telemetry.DialectKQL, "App", []string{"AppRequests", "AppExceptions"}},
		{"kql after union", telemetry.DialectKQL, "Heartbeat | union heart", []string{"Heartbeat"}},
		{"kql after operator", telemetry.DialectKQL, "Heartbeat | where App", nil},
		{"sql after from", telemetry.DialectSQL, "SELECT * FROM pub", []string{"public.events"}},
		{"sql select list", telemetry.DialectSQL, "SELECT App", nil},
		{"no partial", telemetry.DialectSQL, "SELECT * FROM ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Completions(tt.dialect, tables, tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("completions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
