// Package postgres implements telemetry.LogsClient over a PostgreSQL
// database holding mirrored log tables. Queries are SQL; the workspace ID
// and timespan of a query are accepted for display only.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/joacominatel/telequery/internal/telemetry"
)

const batchConcurrency = 4

// Driver runs log queries against a PostgreSQL connection pool.
type Driver struct {
	pool   *pgxpool.Pool
	dbName string
}

// Open connects to the database described by dsn.
func Open(ctx context.Context, dsn string) (*Driver, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 5
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Driver{pool: pool, dbName: cfg.ConnConfig.Database}, nil
}

var _ telemetry.LogsClient = (*Driver)(nil)

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

// Dialect returns SQL.
func (d *Driver) Dialect() telemetry.Dialect {
	return telemetry.DialectSQL
}

// QueryWorkspace runs a SQL query and returns its rows as one table.
func (d *Driver) QueryWorkspace(ctx context.Context, q telemetry.LogsQuery) (*telemetry.QueryResult, error) {
	if d.pool == nil {
		return nil, errors.New("not connected")
	}
	start := time.Now()

	rows, err := d.pool.Query(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	typeMap := rows.Conn().TypeMap()
	fields := rows.FieldDescriptions()
	table := telemetry.Table{
		Name:    "PrimaryResult",
		Columns: make([]telemetry.Column, len(fields)),
	}
	for i, f := range fields {
		table.Columns[i] = telemetry.Column{Name: f.Name, Type: typeName(typeMap, f.DataTypeOID)}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(telemetry.Row, len(values))
		for i, v := range values {
			row[i] = normalize(v)
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	result := &telemetry.QueryResult{Duration: time.Since(start)}
	// Statements without a result set (DDL, INSERT) produce no table.
	if len(fields) > 0 {
		result.Tables = []telemetry.Table{table}
	}
	return result, nil
}

// QueryBatch runs the queries concurrently on the pool. A failing query is
// reported in its result and does not cancel the others.
func (d *Driver) QueryBatch(ctx context.Context, queries []telemetry.BatchQuery) ([]telemetry.QueryResult, error) {
	results := make([]telemetry.QueryResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, q := range queries {
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		g.Go(func() error {
			res, err := d.QueryWorkspace(gctx, q.LogsQuery)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				results[i] = telemetry.QueryResult{ID: id, Err: queryError(err)}
				return nil
			}
			res.ID = id
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("batch query completed", "queries", len(queries), "database", d.dbName)
	return results, nil
}

// ListTables returns schema-qualified names of the user tables.
func (d *Driver) ListTables(ctx context.Context, _ string) ([]string, error) {
	rows, err := d.pool.Query(ctx, queryListTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, qualify(schema, name))
	}
	return tables, rows.Err()
}

// GetColumns returns column metadata for a table named "schema.table" or
// "table" (public schema).
func (d *Driver) GetColumns(ctx context.Context, _ string, table string) ([]telemetry.Column, error) {
	schema, name := splitQualified(table)

	rows, err := d.pool.Query(ctx, queryGetColumns, schema, name)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	var columns []telemetry.Column
	for rows.Next() {
		var col telemetry.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// queryError turns a driver error into data for a batch result.
func queryError(err error) *telemetry.QueryError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &telemetry.QueryError{Code: pgErr.Code, Message: pgErr.Message}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &telemetry.QueryError{Message: "no rows"}
	}
	return &telemetry.QueryError{Message: err.Error()}
}
