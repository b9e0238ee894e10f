package sequence

import (
	"encoding/json"
	"strconv"
	"time"
)

// Context is the mutable key-value scratch space carried through a
// sequence execution. It is persisted as a flexible JSON document; engine
// logic reads it through the typed accessors below (decode-on-read) so a
// single bad field never crashes a step.
type Context map[string]any

// Well-known context keys maintained by the engine. The map remains
// free-form; these are the engine's own bookkeeping fields.
const (
	KeyIntentScore     = "intent_score"
	KeyConfidence      = "confidence"
	KeyLeadStatus      = "lead_status"
	KeyDomain          = "domain"
	KeyLastProcessedAt = "last_processed_at"
)

// String returns the value as a string.
func (c Context) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns the value as a float64. Integer and json.Number values
// coerce; anything non-numeric reports ok=false rather than erroring.
func (c Context) Float(key string) (float64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

// Int returns the value as an int64, truncating numeric types.
func (c Context) Int(key string) (int64, bool) {
	f, ok := c.Float(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Bool returns the value as a bool.
func (c Context) Bool(key string) (bool, bool) {
	v, ok := c[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Time returns the value as a time.Time. Times are stored as RFC 3339
// strings (encode-on-write via SetTime).
func (c Context) Time(key string) (time.Time, bool) {
	s, ok := c.String(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Set stores a raw value.
func (c Context) Set(key string, value any) {
	c[key] = value
}

// SetTime stores a time as an RFC 3339 string so the context stays a
// plain JSON document.
func (c Context) SetTime(key string, t time.Time) {
	c[key] = t.UTC().Format(time.RFC3339Nano)
}

// Merge copies every entry of updates into the context, overwriting
// existing keys. A nil updates map is a no-op.
func (c Context) Merge(updates map[string]any) {
	for k, v := range updates {
		c[k] = v
	}
}

// Clone returns a shallow-value deep-map copy of the context.
func (c Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// asFloat coerces the numeric types that survive a JSON round trip.
// Strings are not parsed: a string "80" is not a number for comparison
// purposes.
func asFloat(v any) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// formatValue renders a context value for textual comparison (equals and
// contains). Numbers render in shortest form so 80 and 80.0 compare equal.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case json.Number:
		return t.String()
	default:
		if f, ok := asFloat(v); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
