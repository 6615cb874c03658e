package loganalytics

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/telemetry/restapi"
)

// queryBody is the request body of a single query.
type queryBody struct {
	Query      string   `json:"query"`
	Timespan   string   `json:"timespan,omitempty"`
	Workspaces []string `json:"workspaces,omitempty"`
}

// queryResponse is the body of a successful (or partially successful) query.
type queryResponse struct {
	Tables []wireTable          `json:"tables"`
	Error  *restapi.ErrorDetail `json:"error,omitempty"`
}

type wireTable struct {
	Name    string             `json:"name"`
	Columns []telemetry.Column `json:"columns"`
	Rows    [][]any            `json:"rows"`
}

type batchRequest struct {
	Requests []batchItem `json:"requests"`
}

type batchItem struct {
	ID        string            `json:"id"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      queryBody         `json:"body"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Workspace string            `json:"workspace"`
}

type batchResponse struct {
	Responses []batchItemResponse `json:"responses"`
}

type batchItemResponse struct {
	ID     string        `json:"id"`
	Status int           `json:"status"`
	Body   queryResponse `json:"body"`
}

func toQueryResult(id string, resp *queryResponse) telemetry.QueryResult {
	result := telemetry.QueryResult{ID: id}
	for _, wt := range resp.Tables {
		result.Tables = append(result.Tables, toTable(wt))
	}
	if resp.Error != nil {
		qe := &telemetry.QueryError{Code: resp.Error.Code, Message: resp.Error.Innermost()}
		if len(result.Tables) > 0 {
			result.PartialErr = qe
		} else {
			result.Err = qe
		}
	}
	return result
}

func toTable(wt wireTable) telemetry.Table {
	t := telemetry.Table{
		Name:    wt.Name,
		Columns: wt.Columns,
		Rows:    make([]telemetry.Row, 0, len(wt.Rows)),
	}
	for _, raw := range wt.Rows {
		row := make(telemetry.Row, len(raw))
		for i, v := range raw {
			typ := ""
			if i < len(wt.Columns) {
				typ = wt.Columns[i].Type
			}
			row[i] = convertValue(typ, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// convertValue maps a decoded JSON cell to a Go value by its column type.
// Values that do not match their declared type are kept as decoded.
func convertValue(typ string, v any) any {
	if v == nil {
		return nil
	}

	switch strings.ToLower(typ) {
	case "datetime":
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts
			}
		}
	case "int", "long":
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i
			}
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	case "real", "double":
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
		// NaN and infinities arrive as strings.
		if s, ok := v.(string); ok {
			return s
		}
	case "bool", "boolean":
		switch b := v.(type) {
		case bool:
			return b
		case json.Number:
			return b.String() != "0"
		}
	case "dynamic":
		if s, ok := v.(string); ok {
			return s
		}
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}

	if n, ok := v.(json.Number); ok {
		return n
	}
	return v
}
