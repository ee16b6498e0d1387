// Package nutrient turns the loosely typed nutrient fields returned by the
// food oracle ("23g", "900mg", 12) into numbers the scorer can compare.
package nutrient

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractNumber returns numeric input unchanged. For strings it keeps only the
// ASCII digits and parses what is left, so "23g" is 23 and "12.5g" is 125.
// Empty input, nil and strings without digits yield 0.
func ExtractNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return digitsOf(v.String())
	case Amount:
		return v.Value()
	case *Amount:
		if v == nil {
			return 0
		}
		return v.Value()
	case string:
		return digitsOf(v)
	default:
		return 0
	}
}

func digitsOf(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
