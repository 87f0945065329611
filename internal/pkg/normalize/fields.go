package normalize

import (
	"strconv"
	"strings"
)

// The provider has shipped several incompatible schema revisions for the
// same endpoints. Instead of typed structs per revision, normalization works
// over map[string]any with ordered candidate-field lookups: the first
// structurally valid value wins, absence stays absent.

// field returns the first present candidate key from m.
func field(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// subObject returns the first candidate key that holds an object.
func subObject(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if obj, ok := v.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// subList returns the first candidate key that holds a non-empty list.
func subList(m map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if list, ok := v.([]any); ok && len(list) > 0 {
				return list, true
			}
		}
	}
	return nil, false
}

// asString coerces scalar values to their string form. Objects, lists and
// booleans do not convert.
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

// asInt parses numbers and numeric strings. Anything else fails.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// asFloat parses numbers and numeric strings. Anything else fails.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// stringField resolves the first candidate key that coerces to a string.
func stringField(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, ok := asString(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// intField resolves the first candidate key that parses as an integer.
func intField(m map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if n, ok := asInt(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// floatField resolves the first candidate key that parses as a float.
func floatField(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if f, ok := asFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}
