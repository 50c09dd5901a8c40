package trough

import (
	"strconv"
	"strings"
)

// Kind discriminates the variants of a coerced response field.
type Kind uint8

const (
	KindInt Kind = iota
	KindReal
	KindBool
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is one response field after coercion. The zero Value is Int 0.
// Values are comparable with ==.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

func Int(v int64) Value    { return Value{kind: KindInt, i: v} }
func Real(v float64) Value { return Value{kind: KindReal, f: v} }
func Bool(v bool) Value    { return Value{kind: KindBool, b: v} }
func Text(v string) Value  { return Value{kind: KindText, s: v} }

// Coerce converts one raw field into a Value. Attempts run in strict
// order: integer, real, boolean, then unchanged text. The order is
// load-bearing: "1" must become Int 1, never Bool.
func Coerce(field string) Value {
	if i, err := strconv.ParseInt(field, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return Real(f)
	}
	switch strings.ToLower(field) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return Text(field)
}

func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload, or 0 for non-integer values.
func (v Value) Int() int64 {
	if v.kind == KindInt {
		return v.i
	}
	return 0
}

// Real returns the numeric payload as a float64. Integer values convert;
// everything else is 0.
func (v Value) Real() float64 {
	switch v.kind {
	case KindReal:
		return v.f
	case KindInt:
		return float64(v.i)
	default:
		return 0
	}
}

func (v Value) Bool() bool {
	return v.kind == KindBool && v.b
}

// Text returns the raw text payload, or "" for non-text values.
func (v Value) Text() string {
	if v.kind == KindText {
		return v.s
	}
	return ""
}

// Interface returns the payload as a plain Go value, for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindReal:
		return v.f
	case KindBool:
		return v.b
	default:
		return v.s
	}
}

// String renders the canonical text form. Coercing the result yields the
// same Value back: reals keep a decimal point so they do not collapse
// into integers on a round trip.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return s
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Fields is an ordered sequence of coerced response fields.
type Fields []Value

func (fs Fields) String() string {
	parts := make([]string, len(fs))
	for i, v := range fs {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}
