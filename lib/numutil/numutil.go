package numutil

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coerce turns a loosely typed value decoded from a remote response into a
// finite float. `def` is returned with defaulted = true for nil, NaN, +-Inf,
// and anything that cannot be read as a number.
func Coerce(value any, def float64) (out float64, defaulted bool) {
	var f float64
	switch v := value.(type) {
	case nil:
		return def, true
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return def, true
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def, true
		}
		f = parsed
	case *float64:
		if v == nil {
			return def, true
		}
		f = *v
	default:
		return def, true
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def, true
	}
	return f, false
}

// CoerceRaw is Coerce for a raw json value, `null`, missing and non-numeric
// values all produce the default.
func CoerceRaw(raw json.RawMessage, def float64) (float64, bool) {
	if len(raw) == 0 {
		return def, true
	}
	var value any
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return def, true
	}
	return Coerce(value, def)
}

func Clamp(value, lower, upper float64) float64 {
	return math.Max(lower, math.Min(value, upper))
}
