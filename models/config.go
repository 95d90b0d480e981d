package models

import (
	"encoding/json"
	"math"
)

// GameConfig is the open settings map a room is created with. Values usually
// arrive from JSON, so numbers may be float64 or json.Number.
type GameConfig map[string]any

// Int returns the integer stored under key. ok is false when the key is
// missing or the value is not a whole number.
func (c GameConfig) Int(key string) (int, bool) {
	v, exists := c[key]
	if !exists {
		return 0, false
	}
	return AsInt(v)
}

// String returns the string stored under key.
func (c GameConfig) String(key string) (string, bool) {
	v, exists := c[key]
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy.
func (c GameConfig) Clone() GameConfig {
	out := make(GameConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// AsInt converts a decoded JSON value to an int, rejecting fractions.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
