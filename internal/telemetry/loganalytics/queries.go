package loganalytics

import "fmt"

// Schema browsing goes through the query endpoint itself.
const (
	queryListTables = `union withsource=TableName *
| distinct TableName
| sort by TableName asc`

	// Only tables with rows inside this window are listed.
	listTablesTimespan = "P7D"
)

func queryGetColumns(table string) string {
	return fmt.Sprintf("%s\n| getschema\n| project ColumnName, ColumnType", quoteIdentifier(table))
}

// quoteIdentifier brackets names that are not plain identifiers.
func quoteIdentifier(name string) string {
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Sprintf("['%s']", name)
		}
	}
	return name
}
