// Package records defines the generic record shape shared by every pipeline
// stage. A Record is one decoded unit of input data (a tweet, a user, a
// compliance action, or a counts bucket) keyed by field name or dot path.
//
// Records come out of encoding/json decoding, so values are limited to the
// JSON universe: nil, bool, string, json.Number, []any, and map[string]any.
package records

// Record is one semi-structured record.
type Record map[string]any

// Clone returns a deep copy of the record. Nested maps and slices are copied
// recursively; scalar values are shared (they are immutable in the JSON
// value universe).
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a single decoded JSON value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case Record:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// IsEmptyValue reports whether v is an empty composite, an empty string, or
// nil. Used to drop fields that carry no information after rewriting.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case Record:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
