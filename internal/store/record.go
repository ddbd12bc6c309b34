package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"
)

// Record is a single stored row: field name to value.
//
// Values arrive in whatever shape the adapter produces (SQLite returns
// int64 and float64, JSON-backed adapters return float64 for every
// number), so callers read them through the typed accessors below rather
// than type-asserting directly.
type Record map[string]any

// ID returns the record's id field.
func (r Record) ID() string {
	return r.String("id")
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// String returns field as a string; absent and null fields are "".
func (r Record) String(field string) string {
	return stringOf(r[field])
}

func stringOf(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Float returns field as a float64 and whether it was present and numeric.
func (r Record) Float(field string) (float64, bool) {
	return toFloat(r[field])
}

// Int returns field as an int64 and whether it was present and numeric.
func (r Record) Int(field string) (int64, bool) {
	f, ok := toFloat(r[field])
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Bool returns field as a bool. Numeric fields are true when non-zero.
func (r Record) Bool(field string) bool {
	return boolOf(r[field])
}

func boolOf(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		f, ok := toFloat(v)
		return ok && f != 0
	}
}

// Time returns field parsed as a timestamp; the zero time when absent or malformed.
func (r Record) Time(field string) time.Time {
	switch v := r[field].(type) {
	case time.Time:
		return v
	case string:
		return parseTime(v)
	default:
		return time.Time{}
	}
}

// TimeLayout is the stored timestamp format. It is fixed width so that
// string order matches time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t the way records store timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// PostgreSQL timestamptz without the T separator.
		t, err = time.Parse("2006-01-02 15:04:05.999999999Z07:00", s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
