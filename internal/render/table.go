// Package render turns query results into deterministic text lines.
//
// Rendering is pure: the functions here never write anywhere, the caller
// decides whether lines are printed, logged or compared in a test.
package render

import (
	"fmt"
	"strings"

	"github.com/joacominatel/telequery/internal/telemetry"
)

const separator = "| "

// Options controls table rendering.
type Options struct {
	// PrefixLines starts every line with "| ".
	PrefixLines bool
}

// DefaultOptions returns the options used for single-query output.
func DefaultOptions() Options {
	return Options{PrefixLines: true}
}

// Context describes the query a result belongs to. It is supplied in batch
// mode, where each result is introduced by a descriptive line.
type Context struct {
	QueryText string
	Timespan  string
}

// MalformedRowError reports a row whose length differs from the column count.
type MalformedRowError struct {
	Row      int
	Expected int
	Actual   int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d: expected %d values, got %d", e.Row, e.Expected, e.Actual)
}

// RenderTable renders a header line followed by one line per row.
func RenderTable(table telemetry.Table, opts Options) ([]string, error) {
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, &MalformedRowError{Row: i, Expected: len(table.Columns), Actual: len(row)}
		}
	}

	lines := make([]string, 0, len(table.Rows)+1)

	cells := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		cells[i] = col.Name + "(" + col.Type + ") "
	}
	lines = append(lines, joinLine(cells, opts))

	for _, row := range table.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = Cell(v) + " "
		}
		lines = append(lines, joinLine(cells, opts))
	}

	return lines, nil
}

// RenderQueryResult renders every table of result. A nil rc selects
// single-query mode; otherwise each table is introduced by a line naming
// the query and timespan and rendered without line prefixes.
func RenderQueryResult(result *telemetry.QueryResult, rc *Context) ([]string, error) {
	if result == nil {
		result = &telemetry.QueryResult{}
	}
	if result.Err != nil {
		return []string{errorLine(result, rc)}, nil
	}

	if len(result.Tables) == 0 {
		if rc != nil {
			return []string{fmt.Sprintf("No results for query '%s'", rc.QueryText)}, nil
		}
		return []string{"No results for query"}, nil
	}

	var lines []string
	opts := DefaultOptions()
	if rc != nil {
		lines = append(lines, fmt.Sprintf("Printing results from query '%s' for '%s'", rc.QueryText, rc.Timespan))
		opts.PrefixLines = false
	}

	for _, table := range result.Tables {
		tableLines, err := RenderTable(table, opts)
		if err != nil {
			return nil, err
		}
		lines = append(lines, tableLines...)
	}

	return lines, nil
}

func errorLine(result *telemetry.QueryResult, rc *Context) string {
	var b strings.Builder
	b.WriteString("Error")
	if result.ID != "" {
		b.WriteString(" in query ")
		b.WriteString(result.ID)
	}
	if rc != nil && rc.QueryText != "" {
		b.WriteString(" '")
		b.WriteString(rc.QueryText)
		b.WriteString("'")
	}
	b.WriteString(": ")
	b.WriteString(result.Err.Error())
	return b.String()
}

func joinLine(cells []string, opts Options) string {
	line := strings.Join(cells, separator)
	if opts.PrefixLines {
		return separator + line
	}
	return line
}
