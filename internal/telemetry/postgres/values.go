package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// typeName returns the PostgreSQL type name for an OID, or the OID itself
// when the type is not registered.
func typeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid:%d", oid)
}

// normalize converts pgx decoded values to the kinds the renderer knows.
func normalize(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		if !v.Valid {
			return nil
		}
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			data, _ := v.MarshalJSON()
			return string(data)
		}
		return f.Float64
	case pgtype.Interval:
		if !v.Valid {
			return nil
		}
		return fmt.Sprintf("%d mons %d days %dus", v.Months, v.Days, v.Microseconds)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return v
	}
}
