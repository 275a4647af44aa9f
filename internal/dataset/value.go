package dataset

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ValueKind tags the scalar held by a Value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueNumber
	ValueString
)

// Value is a tagged scalar cell: number, string, or null.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number wraps a float.
func Number(f float64) Value { return Value{kind: ValueNumber, num: f} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: ValueString, str: s} }

// numericPattern accepts plain decimal and exponent notation only; no hex, inf or nan.
var numericPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// Coerce turns raw cell text into a typed value: empty -> null, numeric text -> number.
func Coerce(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null()
	}
	if numericPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Number(f)
		}
	}
	return Text(raw)
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == ValueNull }
func (v Value) IsNumber() bool  { return v.kind == ValueNumber }

// Float returns the numeric payload and whether the value is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != ValueNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the value for display. Null renders as "null".
func (v Value) String() string {
	switch v.kind {
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueString:
		return v.str
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}
