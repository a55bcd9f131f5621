// ABOUTME: Value wrapping for characteristic updates.
// ABOUTME: Maps Go values onto the hub's typed value envelope.

package tools

import (
	"fmt"
	"strconv"
)

// WrapValue converts a value into the hub's typed wrapper: one of boolValue,
// intValue, floatValue, or stringValue. Strings that look like booleans or
// numbers are coerced so "true" and "42" behave like their typed forms.
func WrapValue(value any) map[string]any {
	switch v := value.(type) {
	case bool:
		return map[string]any{"boolValue": v}
	case int:
		return map[string]any{"intValue": int64(v)}
	case int64:
		return map[string]any{"intValue": v}
	case float64:
		// JSON numbers decode as float64; keep whole numbers integral.
		if v == float64(int64(v)) {
			return map[string]any{"intValue": int64(v)}
		}
		return map[string]any{"floatValue": v}
	case string:
		return wrapStringValue(v)
	default:
		return map[string]any{"stringValue": fmt.Sprintf("%v", v)}
	}
}

func wrapStringValue(s string) map[string]any {
	switch s {
	case "true":
		return map[string]any{"boolValue": true}
	case "false":
		return map[string]any{"boolValue": false}
	}
	if num, err := strconv.ParseFloat(s, 64); err == nil {
		if num == float64(int64(num)) {
			return map[string]any{"intValue": int64(num)}
		}
		return map[string]any{"floatValue": num}
	}
	return map[string]any{"stringValue": s}
}
