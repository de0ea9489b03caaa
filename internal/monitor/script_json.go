package monitor

import (
	"encoding/json"
	"fmt"

	"github.com/hearthlabs/hearth-core/internal/value"
)

// exprJSON is the wire representation of an Expression. Script documents
// carry statement arguments in this shape:
//
//	{"kind": "value", "value": {"type": "num", "num": 80}}
//	{"kind": "vec", "vec": [...]}
//	{"kind": "input", "source": 0, "capability": "temperature"}
type exprJSON struct {
	Kind       ExprKind        `json:"kind"`
	Value      *value.Value    `json:"value,omitempty"`
	Vec        []Expression    `json:"vec,omitempty"`
	Source     *int            `json:"source,omitempty"`
	Capability InputCapability `json:"capability,omitempty"`
}

// MarshalJSON encodes the expression in its tagged wire form.
func (e Expression) MarshalJSON() ([]byte, error) {
	out := exprJSON{Kind: e.Kind}
	switch e.Kind {
	case ExprValue:
		v := e.Value
		out.Value = &v
	case ExprVec:
		out.Vec = e.Vec
		if out.Vec == nil {
			out.Vec = []Expression{}
		}
	case ExprInput:
		if e.Input == nil {
			return nil, fmt.Errorf("%w: input expression missing reference", ErrInvalidScript)
		}
		src := e.Input.Source
		out.Source = &src
		out.Capability = e.Input.Capability
	default:
		return nil, fmt.Errorf("%w: unknown expression kind %q", ErrInvalidScript, e.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an expression from its tagged wire form.
func (e *Expression) UnmarshalJSON(data []byte) error {
	var in exprJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding expression: %w", err)
	}

	switch in.Kind {
	case ExprValue:
		if in.Value == nil {
			return fmt.Errorf("%w: value expression missing payload", ErrInvalidScript)
		}
		*e = ValueExpr(*in.Value)
	case ExprVec:
		*e = VecExpr(in.Vec...)
	case ExprInput:
		if in.Source == nil {
			return fmt.Errorf("%w: input expression missing source", ErrInvalidScript)
		}
		*e = InputExpr(*in.Source, in.Capability)
	default:
		return fmt.Errorf("%w: unknown expression kind %q", ErrInvalidScript, in.Kind)
	}
	return nil
}

// ParseScript decodes and validates one script document.
//
// Returns:
//   - *Script: The decoded script
//   - error: ErrInvalidScript when the document is malformed or fails
//     structural validation
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if err := ValidateScript(&script); err != nil {
		return nil, err
	}
	return &script, nil
}
