package value

import (
	"encoding/json"
	"fmt"
)

// RangeKind identifies which predicate a Range holds.
type RangeKind string

const (
	RangeAny         RangeKind = "any"
	RangeEqBool      RangeKind = "eq_bool"
	RangeEqString    RangeKind = "eq_string"
	RangeLeq         RangeKind = "leq"
	RangeGeq         RangeKind = "geq"
	RangeBetweenEq   RangeKind = "between_eq"
	RangeOutOfStrict RangeKind = "out_of_strict"
)

// Range is a predicate over values, used by monitor conditions.
//
// A Range is immutable once constructed. Use the constructor functions
// (Any, EqBool, EqString, Leq, Geq, BetweenEq, OutOfStrict).
type Range struct {
	kind RangeKind

	boolEq bool
	strEq  string
	min    float64
	max    float64
}

// Any returns the range that matches every value.
func Any() Range {
	return Range{kind: RangeAny}
}

// EqBool returns the range matching boolean values equal to b.
func EqBool(b bool) Range {
	return Range{kind: RangeEqBool, boolEq: b}
}

// EqString returns the range matching string values equal to s.
func EqString(s string) Range {
	return Range{kind: RangeEqString, strEq: s}
}

// Leq returns the range matching numeric values <= max.
func Leq(max float64) Range {
	return Range{kind: RangeLeq, max: max}
}

// Geq returns the range matching numeric values >= min.
func Geq(min float64) Range {
	return Range{kind: RangeGeq, min: min}
}

// BetweenEq returns the inclusive two-sided range min <= x <= max.
func BetweenEq(min, max float64) Range {
	return Range{kind: RangeBetweenEq, min: min, max: max}
}

// OutOfStrict returns the exclusive-exterior range x < min OR max < x.
func OutOfStrict(min, max float64) Range {
	return Range{kind: RangeOutOfStrict, min: min, max: max}
}

// Kind returns the predicate tag of the range.
func (r Range) Kind() RangeKind {
	return r.kind
}

// Matches reports whether the value satisfies the range predicate.
//
// This is a total function over every (value, range) pairing:
//
//   - Any matches every value, regardless of kind.
//   - EqBool matches only boolean values with equal payload.
//   - EqString matches only string values with equal payload.
//   - Leq, Geq, BetweenEq and OutOfStrict match only numeric values, per
//     their bounds.
//   - Every other pairing (vectors, JSON documents and blobs against any
//     non-Any range, or a kind mismatch against an equality range) is a
//     non-match, not an error.
func (r Range) Matches(v Value) bool {
	if r.kind == RangeAny {
		return true
	}

	switch v.Kind() {
	case KindBool:
		b, _ := v.AsBool()
		return r.kind == RangeEqBool && b == r.boolEq
	case KindString:
		s, _ := v.AsString()
		return r.kind == RangeEqString && s == r.strEq
	case KindNum:
		n, _ := v.AsNum()
		switch r.kind {
		case RangeLeq:
			return n <= r.max
		case RangeGeq:
			return r.min <= n
		case RangeBetweenEq:
			return r.min <= n && n <= r.max
		case RangeOutOfStrict:
			return n < r.min || r.max < n
		default:
			return false
		}
	default:
		// There is no such thing as a range over vectors, documents or blobs.
		return false
	}
}

// rangeJSON is the wire representation of a Range. Script documents carry
// condition predicates in this shape:
//
//	{"type": "any"}
//	{"type": "eq_bool", "bool": true}
//	{"type": "between_eq", "min": 18, "max": 24}
type rangeJSON struct {
	Type Kind     `json:"type"`
	Bool *bool    `json:"bool,omitempty"`
	Str  *string  `json:"string,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// MarshalJSON encodes the range in its tagged wire form.
func (r Range) MarshalJSON() ([]byte, error) {
	out := rangeJSON{Type: Kind(r.kind)}
	switch r.kind {
	case RangeAny:
	case RangeEqBool:
		out.Bool = &r.boolEq
	case RangeEqString:
		out.Str = &r.strEq
	case RangeLeq:
		out.Max = &r.max
	case RangeGeq:
		out.Min = &r.min
	case RangeBetweenEq, RangeOutOfStrict:
		out.Min = &r.min
		out.Max = &r.max
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a range from its tagged wire form.
func (r *Range) UnmarshalJSON(data []byte) error {
	var in rangeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding range: %w", err)
	}

	switch RangeKind(in.Type) {
	case RangeAny:
		*r = Any()
	case RangeEqBool:
		if in.Bool == nil {
			return fmt.Errorf("%w: eq_bool range missing payload", ErrMalformedValue)
		}
		*r = EqBool(*in.Bool)
	case RangeEqString:
		if in.Str == nil {
			return fmt.Errorf("%w: eq_string range missing payload", ErrMalformedValue)
		}
		*r = EqString(*in.Str)
	case RangeLeq:
		if in.Max == nil {
			return fmt.Errorf("%w: leq range missing max", ErrMalformedValue)
		}
		*r = Leq(*in.Max)
	case RangeGeq:
		if in.Min == nil {
			return fmt.Errorf("%w: geq range missing min", ErrMalformedValue)
		}
		*r = Geq(*in.Min)
	case RangeBetweenEq:
		if in.Min == nil || in.Max == nil {
			return fmt.Errorf("%w: between_eq range missing bounds", ErrMalformedValue)
		}
		*r = BetweenEq(*in.Min, *in.Max)
	case RangeOutOfStrict:
		if in.Min == nil || in.Max == nil {
			return fmt.Errorf("%w: out_of_strict range missing bounds", ErrMalformedValue)
		}
		*r = OutOfStrict(*in.Min, *in.Max)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, in.Type)
	}
	return nil
}

// String implements fmt.Stringer for logging.
func (r Range) String() string {
	switch r.kind {
	case RangeAny:
		return "any"
	case RangeEqBool:
		return fmt.Sprintf("eq_bool(%t)", r.boolEq)
	case RangeEqString:
		return fmt.Sprintf("eq_string(%q)", r.strEq)
	case RangeLeq:
		return fmt.Sprintf("leq(%g)", r.max)
	case RangeGeq:
		return fmt.Sprintf("geq(%g)", r.min)
	case RangeBetweenEq:
		return fmt.Sprintf("between_eq(%g, %g)", r.min, r.max)
	case RangeOutOfStrict:
		return fmt.Sprintf("out_of_strict(%g, %g)", r.min, r.max)
	}
	return "range(unknown)"
}
