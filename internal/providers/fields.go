package providers

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Str reads a scalar profile field as a string. Numeric ids are formatted
// without exponent, so a JSON 12345678 becomes "12345678".
func Str(raw map[string]any, key string) string {
	return scalar(raw[key])
}

// Path walks nested objects: Path(raw, "picture", "data", "url").
func Path(raw map[string]any, keys ...string) string {
	var cur any = raw
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[k]
	}
	return scalar(cur)
}

// FirstOf returns field of the first object in the array under key.
func FirstOf(raw map[string]any, key, field string) string {
	arr, ok := raw[key].([]any)
	if !ok || len(arr) == 0 {
		return ""
	}
	m, ok := arr[0].(map[string]any)
	if !ok {
		return ""
	}
	return scalar(m[field])
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
