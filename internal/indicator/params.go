package indicator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidParameter marks a parameter that failed validation, e.g. a
// non-positive or NaN period. The orchestrator skips that one indicator and
// continues with the rest of the batch.
var ErrInvalidParameter = errors.New("invalid parameter")

// Params carries the merged parameter map for one handler invocation:
// store defaults overlaid with the caller's per-request overrides, already
// type-coerced by the orchestrator.
type Params map[string]any

// Period returns a window-length parameter. A value that is present but not
// a positive finite integer is rejected with ErrInvalidParameter; an absent
// key falls back to def. Every period-like knob goes through here so the
// validation policy is uniform across the library.
func (p Params) Period(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		if def <= 0 {
			return 0, fmt.Errorf("%w: %s has no usable default", ErrInvalidParameter, key)
		}
		return def, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidParameter, key, v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s=%d must be positive", ErrInvalidParameter, key, n)
	}
	return n, nil
}

// Float returns an optional float knob, falling back to def when absent or
// uncoercible.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Bool returns an optional boolean knob. Strings follow the store's truthy
// convention: "true" and "1" are true.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true" || x == "1"
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return def
	}
}

// String returns an optional string knob.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
