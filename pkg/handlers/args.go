package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// stringArg returns args[key] as a string. ok is false when the key is
// absent or null.
func stringArg(args map[string]any, key string) (string, bool, error) {
	v, present := args[key]
	if !present || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("invalid %s parameter: expected string, got %T", key, v)
	}
	return s, true, nil
}

// intArg returns args[key] as an int, or def when absent or null.
// Integral floats (the JSON decoding of any number) and numeric strings are
// accepted.
func intArg(args map[string]any, key string, def int) (int, error) {
	v, present := args[key]
	if !present || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("invalid %s parameter: expected integer, got %v", key, x)
		}
		return int(x), nil
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid %s parameter: %w", key, err)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, fmt.Errorf("invalid %s parameter: expected integer, got %q", key, x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid %s parameter: expected integer, got %T", key, v)
	}
}

// floatArg returns args[key] as a float64. The key must be present.
func floatArg(args map[string]any, key string) (float64, error) {
	switch x := args[key].(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid %s parameter: %w", key, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s parameter: expected number, got %q", key, x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("invalid %s parameter: expected number, got %T", key, args[key])
	}
}

func isNull(args map[string]any, key string) bool {
	v, present := args[key]
	return !present || v == nil
}
