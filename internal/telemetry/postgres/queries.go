package postgres

import "strings"

// SQL queries for PostgreSQL metadata introspection.
const (
	queryListTables = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_schema, table_name`

	queryGetColumns = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position`
)

const defaultSchema = "public"

// qualify returns schema.name, leaving names in the public schema bare.
func qualify(schema, name string) string {
	if schema == defaultSchema {
		return name
	}
	return schema + "." + name
}

func splitQualified(table string) (schema, name string) {
	if i := strings.IndexByte(table, '.'); i >= 0 {
		return table[:i], table[i+1:]
	}
	return defaultSchema, table
}
