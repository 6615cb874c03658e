package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/telemetry/restapi"
)

// SchemaTree represents the loaded workspace hierarchy for the explorer.
type SchemaTree struct {
	Target     string
	Workspaces []WorkspaceNode
}

// WorkspaceNode holds a workspace ID and its tables.
type WorkspaceNode struct {
	ID     string
	Tables []string
}

// Service coordinates query operations between the front ends and the
// telemetry collaborators.
type Service struct {
	logs     telemetry.LogsClient
	metrics  telemetry.MetricsClient
	profile  config.Profile
	timespan string
}

// NewService creates a service for profile. metrics may be nil when the
// profile has no metrics backend.
func NewService(logs telemetry.LogsClient, metrics telemetry.MetricsClient, profile config.Profile) *Service {
	return &Service{
		logs:     logs,
		metrics:  metrics,
		profile:  profile,
		timespan: config.DefaultTimespan,
	}
}

// SetTimespan sets the timespan used by queries that don't name one.
func (s *Service) SetTimespan(ts string) {
	s.timespan = ts
}

// Timespan returns the default query timespan.
func (s *Service) Timespan() string {
	return s.timespan
}

// Profile returns the profile the service was opened for.
func (s *Service) Profile() config.Profile {
	return s.profile
}

// Dialect returns the query language of the logs backend.
func (s *Service) Dialect() telemetry.Dialect {
	return s.logs.Dialect()
}

// Close releases the collaborators.
func (s *Service) Close() error {
	return s.logs.Close()
}

// QueryLogs runs one logs query. Empty fields of q are filled from the
// profile and the default timespan.
func (s *Service) QueryLogs(ctx context.Context, q telemetry.LogsQuery) (*telemetry.QueryResult, error) {
	q = s.withDefaults(q)
	if strings.TrimSpace(q.Query) == "" {
		return nil, &ErrQuery{Query: q.Query, Cause: errors.New("empty query")}
	}
	if err := s.requireWorkspace(q.WorkspaceID); err != nil {
		return nil, err
	}

	result, err := s.logs.QueryWorkspace(ctx, q)
	if err != nil {
		return nil, classify(q.Query, err)
	}

	slog.Debug("query executed",
		"workspace", q.WorkspaceID,
		"duration", result.Duration.String(),
		"tables", len(result.Tables),
		"rows", result.RowCount())
	return result, nil
}

// ExecuteQuery runs query text with every other setting defaulted.
func (s *Service) ExecuteQuery(ctx context.Context, query string) (*telemetry.QueryResult, error) {
	return s.QueryLogs(ctx, telemetry.LogsQuery{Query: query})
}

// QueryBatch runs several logs queries. Per-query failures are reported on
// the matching result; the returned error covers the batch as a whole.
func (s *Service) QueryBatch(ctx context.Context, queries []telemetry.BatchQuery) ([]telemetry.QueryResult, error) {
	if len(queries) == 0 {
		return nil, &ErrQuery{Cause: errors.New("no queries")}
	}

	filled := make([]telemetry.BatchQuery, len(queries))
	for i, q := range queries {
		q.LogsQuery = s.withDefaults(q.LogsQuery)
		if err := s.requireWorkspace(q.WorkspaceID); err != nil {
			return nil, err
		}
		filled[i] = q
	}

	results, err := s.logs.QueryBatch(ctx, filled)
	if err != nil {
		return nil, classify(fmt.Sprintf("batch of %d queries", len(filled)), err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Debug("batch executed", "queries", len(filled), "failed", failed)
	return results, nil
}

// ListMetricDefinitions lists the metrics of resourceURI, or of the
// profile's resource when empty.
func (s *Service) ListMetricDefinitions(ctx context.Context, resourceURI, namespace string) ([]telemetry.MetricDefinition, error) {
	if s.metrics == nil {
		return nil, &ErrConfig{Cause: fmt.Errorf("profile %q has no metrics backend", s.profile.Name)}
	}
	if resourceURI == "" {
		resourceURI = s.profile.ResourceURI
	}
	if resourceURI == "" {
		return nil, &ErrConfig{Cause: errors.New("no resource URI given")}
	}
	if namespace == "" {
		namespace = s.profile.MetricNamespace
	}

	defs, err := s.metrics.ListMetricDefinitions(ctx, resourceURI, namespace)
	if err != nil {
		return nil, classify(resourceURI, err)
	}
	return defs, nil
}

// QueryMetrics queries metric values. The resource and namespace default
// to the profile's.
func (s *Service) QueryMetrics(ctx context.Context, q telemetry.MetricsQuery) (*telemetry.MetricsResult, error) {
	if s.metrics == nil {
		return nil, &ErrConfig{Cause: fmt.Errorf("profile %q has no metrics backend", s.profile.Name)}
	}
	if q.ResourceURI == "" {
		q.ResourceURI = s.profile.ResourceURI
	}
	if q.ResourceURI == "" {
		return nil, &ErrConfig{Cause: errors.New("no resource URI given")}
	}
	if q.Namespace == "" {
		q.Namespace = s.profile.MetricNamespace
	}

	result, err := s.metrics.QueryResource(ctx, q)
	if err != nil {
		return nil, classify(strings.Join(q.MetricNames, ","), err)
	}

	slog.Debug("metrics queried",
		"resource", q.ResourceURI,
		"metrics", len(result.Metrics))
	return result, nil
}

// LoadSchemaTree fetches the tables of every workspace in the profile.
func (s *Service) LoadSchemaTree(ctx context.Context) (*SchemaTree, error) {
	tree := &SchemaTree{Target: s.profile.DisplayString()}

	for _, ws := range s.workspaces() {
		tables, err := s.logs.ListTables(ctx, ws)
		if err != nil {
			return nil, classify("list tables", err)
		}
		tree.Workspaces = append(tree.Workspaces, WorkspaceNode{
			ID:     ws,
			Tables: tables,
		})
	}

	return tree, nil
}

// LoadColumns fetches column metadata for a table.
func (s *Service) LoadColumns(ctx context.Context, workspaceID, table string) ([]telemetry.Column, error) {
	cols, err := s.logs.GetColumns(ctx, workspaceID, table)
	if err != nil {
		return nil, classify("columns of "+table, err)
	}
	return cols, nil
}

// AllTableNames returns the sorted, de-duplicated table names of tree.
func (s *Service) AllTableNames(tree *SchemaTree) []string {
	if tree == nil {
		return nil
	}
	var names []string
	for _, ws := range tree.Workspaces {
		names = append(names, ws.Tables...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func (s *Service) withDefaults(q telemetry.LogsQuery) telemetry.LogsQuery {
	if q.WorkspaceID == "" {
		q.WorkspaceID = s.profile.WorkspaceID
		if len(q.AdditionalWorkspaces) == 0 {
			q.AdditionalWorkspaces = s.profile.AdditionalWorkspaces
		}
	}
	if q.Timespan == "" {
		q.Timespan = s.timespan
	}
	return q
}

func (s *Service) requireWorkspace(ws string) error {
	if ws == "" && !s.profile.IsPostgres() {
		return &ErrConfig{Cause: errors.New("no workspace given and the profile has none")}
	}
	return nil
}

// workspaces lists the workspaces shown in the explorer. A postgres
// profile has a single unnamed one.
func (s *Service) workspaces() []string {
	if s.profile.IsPostgres() {
		return []string{""}
	}
	if s.profile.WorkspaceID == "" {
		return nil
	}
	return append([]string{s.profile.WorkspaceID}, s.profile.AdditionalWorkspaces...)
}

func classify(query string, err error) error {
	if errors.Is(err, auth.ErrNoToken) {
		return &ErrAuth{Cause: err}
	}
	switch restapi.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ErrAuth{Cause: err}
	}
	return &ErrQuery{Query: query, Cause: err}
}
