package nutrient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Amount holds a nutrient quantity exactly as the oracle sent it: either a
// JSON number or a string with a unit. It marshals back in the same shape.
type Amount struct {
	Text   string
	Number *float64
}

// Grams builds a string amount such as "35g".
func Grams(v float64) Amount {
	return Amount{Text: strconv.FormatFloat(v, 'f', -1, 64) + "g"}
}

// Milligrams builds a string amount such as "900mg".
func Milligrams(v float64) Amount {
	return Amount{Text: strconv.FormatFloat(v, 'f', -1, 64) + "mg"}
}

// Number builds a numeric amount.
func Number(v float64) Amount {
	return Amount{Number: &v}
}

// Text builds a string amount.
func Text(s string) Amount {
	return Amount{Text: s}
}

// Value is the coarse magnitude used for scoring.
func (a Amount) Value() float64 {
	if a.Number != nil {
		return *a.Number
	}
	return ExtractNumber(a.Text)
}

// IsZero reports whether nothing was supplied.
func (a Amount) IsZero() bool {
	return a.Number == nil && a.Text == ""
}

func (a Amount) String() string {
	if a.Number != nil {
		return strconv.FormatFloat(*a.Number, 'f', -1, 64)
	}
	return a.Text
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Number != nil {
		return json.Marshal(*a.Number)
	}
	return json.Marshal(a.Text)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*a = Amount{Number: &num}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*a = Amount{Text: str}
		return nil
	}

	return fmt.Errorf("invalid nutrient amount %s", string(data))
}
