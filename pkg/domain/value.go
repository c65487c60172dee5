package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NaN is the literal written to the parameter store for an unset value.
const NaN = "nan"

// Value is an optional float. The zero Value is unset.
type Value struct {
	v  float64
	ok bool
}

// Some returns a set Value. A NaN float is treated as unset.
func Some(v float64) Value {
	if math.IsNaN(v) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// None returns an unset Value.
func None() Value {
	return Value{}
}

// Float returns the value and whether it is set.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// IsSet reports whether the value holds a number.
func (v Value) IsSet() bool {
	return v.ok
}

// OrElse returns the value or def when unset.
func (v Value) OrElse(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.v
}

// String renders the store representation.
func (v Value) String() string {
	if !v.ok {
		return NaN
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// ParseValue converts a store string into a Value. Empty strings and "nan"
// in any case are unset.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NaN) {
		return None(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None(), fmt.Errorf("failed to parse value %q: %w", s, err)
	}
	return Some(f), nil
}

// MarshalJSON encodes unset values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts numbers, null and the "nan" string.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = None()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Some(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid value: %s", data)
	}
	parsed, err := ParseValue(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
