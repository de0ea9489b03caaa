package monitor

import (
	"errors"
	"fmt"

	"github.com/hearthlabs/hearth-core/internal/value"
)

// IsMet carries a guard's previous and newly computed truth value. The
// trigger fires only on Old == false, New == true.
type IsMet struct {
	Old bool
	New bool
}

// Rising reports whether the transition is a false→true edge.
func (m IsMet) Rising() bool {
	return m.New && !m.Old
}

// IsMet recomputes the trigger's guard. It delegates to the conjunction.
func (t *CompiledTrigger) IsMet() IsMet {
	return t.Condition.IsMet()
}

// IsMet recomputes the conjunction: true iff all child conditions are true.
//
// Every child is visited even once the aggregate outcome is settled, because
// each child's own stored flag must be refreshed for downstream readers.
// The stored aggregate flag is updated as a side effect.
func (c *CompiledConjunction) IsMet() IsMet {
	old := c.isMet
	met := true
	for _, single := range c.All {
		if !single.IsMet().New {
			met = false
			// Don't break. Every condition's own flag must be updated.
		}
	}
	c.isMet = met
	return IsMet{Old: old, New: met}
}

// Met returns the conjunction's last computed truth value.
func (c *CompiledConjunction) Met() bool {
	return c.isMet
}

// IsMet recomputes the condition: true iff any of its cells currently holds
// a value matching the range. A cell that has never received a value never
// satisfies the condition. The stored flag is updated as a side effect.
func (c *CompiledCondition) IsMet() IsMet {
	old := c.isMet
	met := false
	for _, cell := range c.Inputs {
		state, ok := cell.Load()
		if !ok {
			// No measurement received yet.
			continue
		}
		if c.Range.Matches(state.Data) {
			met = true
			break
		}
	}
	c.isMet = met
	return IsMet{Old: old, New: met}
}

// Met returns the condition's last computed truth value.
func (c *CompiledCondition) Met() bool {
	return c.isMet
}

// Eval evaluates every argument expression and dispatches the action to each
// destination device.
//
// An argument that fails to evaluate is fatal to the whole statement: no
// sends are attempted. A failed send to one device does not prevent sends to
// the remaining devices; all send failures are joined into the returned
// error for the caller to log.
func (s *CompiledStatement) Eval(env DevEnv) error {
	args := make(map[string]value.Value, len(s.Arguments))
	for name, expr := range s.Arguments {
		v, err := expr.Eval()
		if err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
		args[name] = v
	}

	var errs []error
	for _, device := range s.Destination {
		if err := env.Send(device, s.Action, args); err != nil {
			errs = append(errs, fmt.Errorf("%w: device %q action %q: %w", ErrSendFailed, device, s.Action, err))
		}
	}
	return errors.Join(errs...)
}

// Eval reduces the expression to a concrete value.
//
// Constants evaluate to themselves; vectors evaluate element-wise preserving
// order. Input reads are a deferred feature and fail with ErrInputEval
// rather than silently coercing to a default.
func (e *CompiledExpression) Eval() (value.Value, error) {
	switch e.Kind {
	case ExprValue:
		return e.Value, nil
	case ExprVec:
		elems := make([]value.Value, 0, len(e.Vec))
		for _, sub := range e.Vec {
			v, err := sub.Eval()
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, v)
		}
		return value.Vec(elems...), nil
	case ExprInput:
		return value.Value{}, ErrInputEval
	default:
		return value.Value{}, fmt.Errorf("%w: unknown expression kind %q", ErrInvalidScript, e.Kind)
	}
}
