package telemetry

import (
	"fmt"
	"time"
)

// Column describes one column of a result table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row holds one value per column, aligned by position.
type Row []any

// Table is one tabular result returned by a query.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// QueryError is an error reported by the query service for a single query.
// In batch mode it is carried as data on the QueryResult instead of being returned.
type QueryError struct {
	Code    string
	Message string
	Status  int
}

func (e *QueryError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("query failed with status %d", e.Status)
	}
}

// QueryResult holds the outcome of one logs query.
type QueryResult struct {
	// ID correlates a result with its request in batch mode.
	ID     string
	Tables []Table
	// Err is set when the query failed; Tables is then empty.
	Err *QueryError
	// PartialErr is set when the service returned tables but could not
	// complete the query.
	PartialErr *QueryError
	Duration   time.Duration
}

// RowCount returns the number of rows across all tables.
func (r *QueryResult) RowCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Rows)
	}
	return n
}

// LogsQuery is a single query against a workspace.
type LogsQuery struct {
	WorkspaceID string
	Query       string
	// Timespan is passed to the service as-is (ISO 8601 duration or interval).
	Timespan string
	// AdditionalWorkspaces turns the query into a cross-workspace query.
	AdditionalWorkspaces []string
}

// BatchQuery is one entry of a batched logs request.
type BatchQuery struct {
	ID string
	LogsQuery
}
