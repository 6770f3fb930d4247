package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Meta is the flat string-keyed bag of primitive values carried with a
// notification. It feeds template interpolation at push time and the
// client-side payloads on both transports.
//
// Entries are primitives only (string/number/bool). Nil and empty-string
// values are dropped at insertion so the serialized form never contains
// "null" entries.
type Meta map[string]any

// Set inserts a key/value pair, dropping nil values and empty strings.
// Typed nil pointers are dereferenced when possible so a (*string)(nil)
// never survives serialization.
func (m Meta) Set(key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
		m[key] = v
	case *string:
		if v == nil || *v == "" {
			return
		}
		m[key] = *v
	case *int:
		if v == nil {
			return
		}
		m[key] = *v
	case *bool:
		if v == nil {
			return
		}
		m[key] = *v
	default:
		m[key] = v
	}
}

// Merge copies all entries of other into m (other wins on key collisions)
// and returns m for chaining. A nil other is a no-op.
func (m Meta) Merge(other Meta) Meta {
	for k, v := range other {
		m[k] = v
	}
	return m
}

// Clone returns a shallow copy of m.
func (m Meta) Clone() Meta {
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the entry for key coerced to a string, or "" if absent.
func (m Meta) String(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return stringify(v)
}

// Serialize encodes the bag as a JSON object string for storage and for
// transport payloads. Go's map marshaling sorts keys, so the output is
// deterministic for identical bags.
func (m Meta) Serialize() (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("Meta.Serialize: %w", err)
	}
	return string(b), nil
}

// Flatten converts every entry to its string form, producing the flat
// string map required by the push gateway's data payload.
func (m Meta) Flatten() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = stringify(v)
	}
	return out
}

// ParseMeta decodes a serialized bag back into a Meta. An empty input
// yields an empty bag.
func ParseMeta(s string) (Meta, error) {
	if s == "" {
		return Meta{}, nil
	}
	var m Meta
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("ParseMeta: %w", err)
	}
	if m == nil {
		m = Meta{}
	}
	return m, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
