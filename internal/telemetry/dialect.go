package telemetry

import (
	"fmt"
	"strings"
)

// Dialect identifies a query language.
type Dialect string

const (
	DialectKQL Dialect = "kql"
	DialectSQL Dialect = "sql"
)

func (d Dialect) String() string {
	return string(d)
}

// SampleQuery returns a query selecting the first n rows of table.
func (d Dialect) SampleQuery(table string, n int) string {
	if d == DialectSQL {
		return fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, n)
	}
	return fmt.Sprintf("%s | take %d", table, n)
}

// CountQuery returns a query counting the rows of table.
func (d Dialect) CountQuery(table string) string {
	if d == DialectSQL {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	}
	return table + " | count"
}

// IsKeyword reports whether word is a keyword of the dialect.
func (d Dialect) IsKeyword(word string) bool {
	w := strings.ToLower(word)
	if d == DialectSQL {
		return sqlKeywords[w]
	}
	return kqlKeywords[w]
}

// FormatKeyword returns word in the canonical case of the dialect when it
// is a keyword: upper case for SQL, lower case for KQL, which is case sensitive.
func (d Dialect) FormatKeyword(word string) string {
	if !d.IsKeyword(word) {
		return word
	}
	if d == DialectSQL {
		return strings.ToUpper(word)
	}
	return strings.ToLower(word)
}

// TableContext reports whether the text preceding a partial word puts it in
// a position where a table name is expected.
func (d Dialect) TableContext(before string) bool {
	fields := strings.Fields(strings.ToLower(before))
	if len(fields) == 0 {
		// A KQL query starts with its table.
		return d == DialectKQL
	}
	switch last := fields[len(fields)-1]; d {
	case DialectSQL:
		return last == "from" || last == "join" || last == "into" || last == "table" || last == "update"
	default:
		return last == "union" || last == "join" || last == "(" || last == "="
	}
}

var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"insert": true, "into": true, "update": true, "delete": true,
	"create": true, "drop": true, "alter": true, "table": true,
	"index": true, "join": true, "inner": true, "outer": true,
	"left": true, "right": true, "cross": true, "on": true,
	"not": true, "in": true, "is": true, "null": true, "like": true,
	"order": true, "by": true, "group": true, "having": true,
	"limit": true, "offset": true, "as": true, "distinct": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"between": true, "exists": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "values": true,
	"set": true, "union": true, "all": true, "asc": true, "desc": true,
	"true": true, "false": true, "ilike": true, "returning": true,
}

var kqlKeywords = map[string]bool{
	"where": true, "project": true, "extend": true, "summarize": true,
	"by": true, "take": true, "limit": true, "top": true, "sort": true,
	"order": true, "asc": true, "desc": true, "count": true, "join": true,
	"union": true, "let": true, "distinct": true, "render": true,
	"and": true, "or": true, "not": true, "in": true, "between": true,
	"contains": true, "has": true, "startswith": true, "endswith": true,
	"ago": true, "bin": true, "now": true, "kind": true, "on": true,
	"parse": true, "search": true, "getschema": true,
}
