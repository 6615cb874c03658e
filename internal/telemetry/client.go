package telemetry

import "context"

// LogsClient defines the logs query operations.
// All implementations must be safe for concurrent use.
type LogsClient interface {
	// QueryWorkspace runs one query and returns its tables.
	QueryWorkspace(ctx context.Context, q LogsQuery) (*QueryResult, error)

	// QueryBatch runs several queries. The returned results are aligned with
	// queries; a failed sub-query is reported through QueryResult.Err and
	// does not fail the batch.
	QueryBatch(ctx context.Context, queries []BatchQuery) ([]QueryResult, error)

	// ListTables returns the table names available in a workspace.
	ListTables(ctx context.Context, workspaceID string) ([]string, error)

	// GetColumns returns the columns of a table.
	GetColumns(ctx context.Context, workspaceID, table string) ([]Column, error)

	// Dialect returns the query language accepted by QueryWorkspace.
	Dialect() Dialect

	// Close releases any held resources.
	Close() error
}

// MetricsClient defines the resource metrics operations.
type MetricsClient interface {
	// ListMetricDefinitions returns the metrics a resource exposes.
	ListMetricDefinitions(ctx context.Context, resourceURI, namespace string) ([]MetricDefinition, error)

	// QueryResource returns metric time series for a resource.
	QueryResource(ctx context.Context, q MetricsQuery) (*MetricsResult, error)
}
