package logic

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric configuration field. Decoding never fails: blank,
// null, non-numeric, NaN and infinite inputs all become 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		s = str
	}
	*n = ParseNumber(s)
	return nil
}

// ParseNumber coerces free-form text to a finite number, 0 when it is not one.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	switch s {
	case "", "null":
		return 0
	case "true":
		return 1
	case "false":
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// Flag is a boolean that also accepts 0/1 and strings, as the live edge
// state is written by clients that use numbers for booleans.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = Flag(v)
		return nil
	}
	var n Number
	_ = n.UnmarshalJSON(b)
	*f = n != 0
	return nil
}

func binarize(v float64) float64 {
	if v > 0 {
		return 1
	}
	return 0
}
