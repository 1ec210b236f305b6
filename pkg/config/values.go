package config

import (
	"fmt"
	"time"
)

// JSON numbers decode as float64; durations may also arrive as strings ("1.2s")
// or as nanosecond counts written by older files.

func durationValue(key string, value any) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		return d, nil
	case float64:
		return time.Duration(v), nil
	case int:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	case time.Duration:
		return v, nil
	}
	return 0, fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
}

func intValue(key string, value any) (int, error) {
	switch v := value.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("invalid value for %s: %v is not an integer", key, v)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	}
	return 0, fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
}

func boolValue(key string, value any) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
}

func stringValue(key string, value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
}
