package storage

import "strconv"

// Row is one result row keyed by the column name the backend reports.
type Row map[string]any

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// NullString returns nil for SQL NULL.
func (r Row) NullString(col string) *string {
	if r[col] == nil {
		return nil
	}
	s := r.String(col)
	return &s
}

func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// NullInt64 returns nil for SQL NULL.
func (r Row) NullInt64(col string) *int64 {
	if r[col] == nil {
		return nil
	}
	n := r.Int64(col)
	return &n
}

// Bool accepts native booleans (postgres, sqlite BOOLEAN columns) and 0/1 integers.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case nil:
		return false
	case string, []byte:
		b, _ := strconv.ParseBool(r.String(col))
		return b
	default:
		return r.Int64(col) != 0
	}
}
