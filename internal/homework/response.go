package homework

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	keyHomeworks   = "homeworks"
	keyCurrentDate = "current_date"
)

// ValidateResponse checks the API answer and returns the homeworks list unchanged.
// Rules are checked in order and the first failure wins. An empty list is valid.
func ValidateResponse(raw any) ([]any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, newError(KindTypeMismatch, "API response is not an object (got %s)", typeName(raw))
	}
	if len(m) == 0 {
		return nil, newError(KindEmptyResponse, "API response is an empty object")
	}
	v, ok := m[keyHomeworks]
	if !ok {
		return nil, newError(KindMissingField, "API response has no %q key", keyHomeworks)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, newError(KindTypeMismatch, "%q is not a list (got %s)", keyHomeworks, typeName(v))
	}
	return items, nil
}

// CurrentDate returns the server-side "current_date" timestamp if the response carries one.
func CurrentDate(raw any) (int64, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := m[keyCurrentDate].(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
