// Package loganalytics implements telemetry.LogsClient against the
// Log Analytics query API.
package loganalytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/telemetry/restapi"
)

// DefaultEndpoint is the public Log Analytics query endpoint.
const DefaultEndpoint = "https://api.loganalytics.io"

// Client queries Log Analytics workspaces.
type Client struct {
	api *restapi.Client
}

// New creates a client for endpoint (DefaultEndpoint when empty).
func New(endpoint string, tokens auth.TokenProvider) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{api: restapi.New(endpoint, tokens)}
}

// NewWithAPI creates a client over an existing transport.
func NewWithAPI(api *restapi.Client) *Client {
	return &Client{api: api}
}

var _ telemetry.LogsClient = (*Client)(nil)

// QueryWorkspace runs one query. Listing AdditionalWorkspaces makes it a
// cross-workspace query.
func (c *Client) QueryWorkspace(ctx context.Context, q telemetry.LogsQuery) (*telemetry.QueryResult, error) {
	if q.WorkspaceID == "" {
		return nil, errors.New("workspace id is required")
	}

	start := time.Now()
	path := "/v1/workspaces/" + url.PathEscape(q.WorkspaceID) + "/query"

	var resp queryResponse
	if err := c.api.Post(ctx, path, toBody(q), &resp); err != nil {
		return nil, err
	}

	result := toQueryResult("", &resp)
	result.Duration = time.Since(start)
	if result.Err != nil {
		return nil, result.Err
	}
	if result.PartialErr != nil {
		slog.Warn("query returned partial results", "workspace", q.WorkspaceID, "error", result.PartialErr.Error())
	}
	return &result, nil
}

// QueryBatch sends all queries in one $batch request. Queries without an ID
// get a generated one. Results come back in the order of queries.
func (c *Client) QueryBatch(ctx context.Context, queries []telemetry.BatchQuery) ([]telemetry.QueryResult, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	req := batchRequest{Requests: make([]batchItem, len(queries))}
	ids := make([]string, len(queries))
	seen := make(map[string]bool, len(queries))
	for i, q := range queries {
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate batch query id %q", id)
		}
		seen[id] = true
		ids[i] = id

		req.Requests[i] = batchItem{
			ID:        id,
			Headers:   map[string]string{"Content-Type": "application/json"},
			Body:      toBody(q.LogsQuery),
			Method:    http.MethodPost,
			Path:      "/query",
			Workspace: q.WorkspaceID,
		}
	}

	start := time.Now()
	var resp batchResponse
	if err := c.api.Post(ctx, "/v1/$batch", req, &resp); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	byID := make(map[string]*batchItemResponse, len(resp.Responses))
	for i := range resp.Responses {
		byID[resp.Responses[i].ID] = &resp.Responses[i]
	}

	results := make([]telemetry.QueryResult, len(queries))
	for i, id := range ids {
		item, ok := byID[id]
		if !ok {
			results[i] = telemetry.QueryResult{
				ID:  id,
				Err: &telemetry.QueryError{Code: "MissingResponse", Message: "no response returned for query"},
			}
			continue
		}

		results[i] = toQueryResult(id, &item.Body)
		results[i].Duration = elapsed
		if item.Status >= 400 && results[i].Err == nil {
			results[i].Err = results[i].PartialErr
			if results[i].Err == nil {
				results[i].Err = &telemetry.QueryError{Status: item.Status}
			}
			results[i].Tables = nil
			results[i].PartialErr = nil
		}
		if results[i].Err != nil {
			results[i].Err.Status = item.Status
		}
	}

	slog.Debug("batch query completed", "queries", len(queries), "duration", elapsed.String())
	return results, nil
}

// ListTables returns the tables that received data in the last seven days.
func (c *Client) ListTables(ctx context.Context, workspaceID string) ([]string, error) {
	result, err := c.QueryWorkspace(ctx, telemetry.LogsQuery{
		WorkspaceID: workspaceID,
		Query:       queryListTables,
		Timespan:    listTablesTimespan,
	})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var tables []string
	for _, row := range firstRows(result) {
		if len(row) == 0 {
			continue
		}
		if name, ok := row[0].(string); ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// GetColumns returns the schema of a table.
func (c *Client) GetColumns(ctx context.Context, workspaceID, table string) ([]telemetry.Column, error) {
	result, err := c.QueryWorkspace(ctx, telemetry.LogsQuery{
		WorkspaceID: workspaceID,
		Query:       queryGetColumns(table),
	})
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	var columns []telemetry.Column
	for _, row := range firstRows(result) {
		if len(row) < 2 {
			continue
		}
		name, _ := row[0].(string)
		typ, _ := row[1].(string)
		columns = append(columns, telemetry.Column{Name: name, Type: typ})
	}
	return columns, nil
}

// Dialect returns KQL.
func (c *Client) Dialect() telemetry.Dialect {
	return telemetry.DialectKQL
}

// Close is a no-op; the client holds no connections of its own.
func (c *Client) Close() error {
	return nil
}

func toBody(q telemetry.LogsQuery) queryBody {
	return queryBody{
		Query:      q.Query,
		Timespan:   q.Timespan,
		Workspaces: q.AdditionalWorkspaces,
	}
}

func firstRows(result *telemetry.QueryResult) []telemetry.Row {
	if result == nil || len(result.Tables) == 0 {
		return nil
	}
	return result.Tables[0].Rows
}
