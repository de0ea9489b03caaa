package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Kind identifies which variant a Value holds.
type Kind string

const (
	KindBool   Kind = "bool"
	KindString Kind = "string"
	KindNum    Kind = "num"
	KindVec    Kind = "vec"
	KindJSON   Kind = "json"
	KindBlob   Kind = "blob"
)

// Value is a tagged sensor or actuator value.
//
// A Value is immutable once constructed. Use the constructor functions
// (Bool, String, Num, Vec, JSON, Blob) rather than building one by hand.
type Value struct {
	kind Kind

	boolVal bool
	strVal  string
	numVal  float64
	vecVal  []Value
	jsonVal json.RawMessage
	blobVal []byte
	mime    string
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, boolVal: b}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, strVal: s}
}

// Num returns a numeric Value.
func Num(n float64) Value {
	return Value{kind: KindNum, numVal: n}
}

// Vec returns a vector Value holding the given elements in order.
func Vec(elems ...Value) Value {
	cpy := make([]Value, len(elems))
	copy(cpy, elems)
	return Value{kind: KindVec, vecVal: cpy}
}

// JSON returns a structured-document Value wrapping a raw JSON payload.
// The payload is not validated here; bridges are expected to hand over
// well-formed documents.
func JSON(raw json.RawMessage) Value {
	cpy := make(json.RawMessage, len(raw))
	copy(cpy, raw)
	return Value{kind: KindJSON, jsonVal: cpy}
}

// Blob returns an opaque binary Value with its MIME type.
func Blob(data []byte, mimeType string) Value {
	cpy := make([]byte, len(data))
	copy(cpy, data)
	return Value{kind: KindBlob, blobVal: cpy, mime: mimeType}
}

// Kind returns the variant tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// AsBool returns the boolean payload. The second return is false when the
// value is not a boolean.
func (v Value) AsBool() (bool, bool) {
	return v.boolVal, v.kind == KindBool
}

// AsString returns the string payload. The second return is false when the
// value is not a string.
func (v Value) AsString() (string, bool) {
	return v.strVal, v.kind == KindString
}

// AsNum returns the numeric payload. The second return is false when the
// value is not numeric.
func (v Value) AsNum() (float64, bool) {
	return v.numVal, v.kind == KindNum
}

// AsVec returns the vector elements. The second return is false when the
// value is not a vector. The returned slice must not be mutated.
func (v Value) AsVec() ([]Value, bool) {
	return v.vecVal, v.kind == KindVec
}

// AsJSON returns the raw JSON document. The second return is false when the
// value is not a JSON document.
func (v Value) AsJSON() (json.RawMessage, bool) {
	return v.jsonVal, v.kind == KindJSON
}

// AsBlob returns the binary payload and its MIME type. The third return is
// false when the value is not a blob.
func (v Value) AsBlob() ([]byte, string, bool) {
	return v.blobVal, v.mime, v.kind == KindBlob
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.boolVal == other.boolVal
	case KindString:
		return v.strVal == other.strVal
	case KindNum:
		return v.numVal == other.numVal
	case KindVec:
		if len(v.vecVal) != len(other.vecVal) {
			return false
		}
		for i := range v.vecVal {
			if !v.vecVal[i].Equal(other.vecVal[i]) {
				return false
			}
		}
		return true
	case KindJSON:
		return bytes.Equal(v.jsonVal, other.jsonVal)
	case KindBlob:
		return v.mime == other.mime && bytes.Equal(v.blobVal, other.blobVal)
	}
	return false
}

// String implements fmt.Stringer for logging.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.boolVal)
	case KindString:
		return fmt.Sprintf("string(%q)", v.strVal)
	case KindNum:
		return fmt.Sprintf("num(%g)", v.numVal)
	case KindVec:
		return fmt.Sprintf("vec(len=%d)", len(v.vecVal))
	case KindJSON:
		return fmt.Sprintf("json(%d bytes)", len(v.jsonVal))
	case KindBlob:
		return fmt.Sprintf("blob(%s, %d bytes)", v.mime, len(v.blobVal))
	}
	return "value(unknown)"
}

// valueJSON is the wire representation of a Value.
// Bridges publish state updates in this shape:
//
//	{"type": "num", "num": 21.5}
//	{"type": "vec", "vec": [{"type": "bool", "bool": true}]}
//	{"type": "blob", "blob": "AAEC", "mime": "application/octet-stream"}
type valueJSON struct {
	Type Kind            `json:"type"`
	Bool *bool           `json:"bool,omitempty"`
	Str  *string         `json:"string,omitempty"`
	Num  *float64        `json:"num,omitempty"`
	Vec  []Value         `json:"vec,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
	Blob string          `json:"blob,omitempty"`
	MIME string          `json:"mime,omitempty"`
}

// MarshalJSON encodes the value in its tagged wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Type: v.kind}
	switch v.kind {
	case KindBool:
		out.Bool = &v.boolVal
	case KindString:
		out.Str = &v.strVal
	case KindNum:
		out.Num = &v.numVal
	case KindVec:
		out.Vec = v.vecVal
		if out.Vec == nil {
			out.Vec = []Value{}
		}
	case KindJSON:
		out.JSON = v.jsonVal
	case KindBlob:
		out.Blob = base64.StdEncoding.EncodeToString(v.blobVal)
		out.MIME = v.mime
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, v.kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a value from its tagged wire form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}

	switch in.Type {
	case KindBool:
		if in.Bool == nil {
			return fmt.Errorf("%w: bool value missing payload", ErrMalformedValue)
		}
		*v = Bool(*in.Bool)
	case KindString:
		if in.Str == nil {
			return fmt.Errorf("%w: string value missing payload", ErrMalformedValue)
		}
		*v = String(*in.Str)
	case KindNum:
		if in.Num == nil {
			return fmt.Errorf("%w: num value missing payload", ErrMalformedValue)
		}
		*v = Num(*in.Num)
	case KindVec:
		*v = Vec(in.Vec...)
	case KindJSON:
		*v = JSON(in.JSON)
	case KindBlob:
		raw, err := base64.StdEncoding.DecodeString(in.Blob)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedValue, err)
		}
		*v = Blob(raw, in.MIME)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, in.Type)
	}
	return nil
}
