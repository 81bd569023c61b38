package profile

import "strconv"
import "strings"

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func boolOr(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// parseInt accepts an int, int64, float64, or string (decimal or
// 0x-prefixed hex, matching how signature profiles author addresses) and
// returns its integer value. nil yields 0.
func parseInt(v any, label string) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		text := strings.TrimSpace(x)
		if text == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return 0, errorf("invalid integer for %s: %s", label, x)
		}
		return n, nil
	default:
		return 0, errorf("invalid integer type for %s", label)
	}
}

func parseFieldNames(v any, label string, fallback []string, allowEmpty bool) ([]string, error) {
	if v == nil {
		return fallback, nil
	}
	var rawItems []any
	switch x := v.(type) {
	case string:
		rawItems = []any{x}
	case []any:
		rawItems = x
	default:
		return nil, errorf("%s must be a string or list of strings", label)
	}

	out := make([]string, 0, len(rawItems))
	seen := make(map[string]bool, len(rawItems))
	for i, item := range rawItems {
		name := strings.TrimSpace(stringOr(item, ""))
		if name == "" {
			return nil, errorf("%s[%d] must be non-empty", label, i)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) > 0 {
		return out, nil
	}
	if allowEmpty {
		return []string{}, nil
	}
	if len(fallback) > 0 {
		return fallback, nil
	}
	return nil, errorf("%s must include at least one field", label)
}
