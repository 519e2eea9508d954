package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Attributes maps an attribute name to a scalar: string, float64 or bool.
type Attributes map[string]interface{}

// UnmarshalJSON keeps numbers as float64 and rejects nested objects and arrays.
// Clients may send every value as a quoted string; those are kept verbatim and
// coerced when read through Float or Bool.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	if raw == nil {
		*a = nil
		return nil
	}

	out := make(Attributes, len(raw))
	for name, rawVal := range raw {
		rawVal = bytes.TrimSpace(rawVal)
		if len(rawVal) == 0 || string(rawVal) == "null" {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(rawVal, &v); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		switch v.(type) {
		case string, float64, bool:
			out[name] = v
		default:
			return fmt.Errorf("attribute %q: value must be a string, number or boolean", name)
		}
	}
	*a = out
	return nil
}

// Float returns the attribute as a number. String values holding a number
// ("1500", "28.5") are coerced. NaN and infinities are not numbers here.
func (a Attributes) Float(name string) (float64, bool) {
	v, ok := a[name]
	if !ok {
		return 0, false
	}
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Bool returns the attribute as a boolean, coercing "true"/"false" strings.
func (a Attributes) Bool(name string) (bool, bool) {
	switch b := a[name].(type) {
	case bool:
		return b, true
	case string:
		v, err := strconv.ParseBool(strings.TrimSpace(b))
		return v, err == nil
	}
	return false, false
}

// String returns the attribute in its canonical textual form. Numbers are
// formatted without trailing zeros so 5 and 5.0 compare equal.
func (a Attributes) String(name string) (string, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	}
	if f, ok := a.Float(name); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return fmt.Sprint(v), true
}
