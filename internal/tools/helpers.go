// ABOUTME: Shared helpers for decoding hub responses inside tool handlers.
// ABOUTME: Covers envelope unwrapping and loose-typed field access.

package tools

// unwrapData peels the hub's response envelope. Replies usually look like
// {isSuccess, code, message, data: ...}; when there is no data key the
// result itself is the payload.
func unwrapData(result map[string]any) any {
	if data, ok := result["data"]; ok {
		return data
	}
	return result
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// asNumber normalizes JSON numbers, which decode as float64 from the wire
// but may arrive as int from in-process callers.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// boolOrDefault reads an optional boolean field.
func boolOrDefault(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}
