package monitor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateScript checks the structural invariants of an unchecked script.
//
// It verifies:
//   - requirements and allocations have the same length (index-aligned)
//   - every condition's source index references an existing requirement
//   - every statement's destination index references an existing requirement
//   - every statement names an action and every input expression reference
//     is in range
//
// Returns ErrInvalidScript (wrapped with detail) on the first group of
// failures found.
func ValidateScript(script *Script) error {
	if script == nil {
		return fmt.Errorf("%w: nil script", ErrInvalidScript)
	}

	var errs []string

	if len(script.Requirements) != len(script.Allocations) {
		errs = append(errs, fmt.Sprintf("requirements (%d) and allocations (%d) must have the same length",
			len(script.Requirements), len(script.Allocations)))
	}

	n := len(script.Requirements)
	for ri := range script.Rules {
		rule := &script.Rules[ri]
		for ci, cond := range rule.Condition.All {
			if cond.Source < 0 || cond.Source >= n {
				errs = append(errs, fmt.Sprintf("rule %d condition %d: source %d out of range", ri, ci, cond.Source))
			}
		}
		for si, stmt := range rule.Execute {
			if stmt.Destination < 0 || stmt.Destination >= n {
				errs = append(errs, fmt.Sprintf("rule %d statement %d: destination %d out of range", ri, si, stmt.Destination))
			}
			if stmt.Action == "" {
				errs = append(errs, fmt.Sprintf("rule %d statement %d: action is required", ri, si))
			}
			for name, expr := range stmt.Arguments {
				if err := validateExpression(expr, n); err != nil {
					errs = append(errs, fmt.Sprintf("rule %d statement %d argument %q: %v", ri, si, name, err))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(errs, "; "))
	}
	return nil
}

// validateExpression checks expression structure recursively.
func validateExpression(expr Expression, requirements int) error {
	switch expr.Kind {
	case ExprValue:
		return nil
	case ExprVec:
		for i, sub := range expr.Vec {
			if err := validateExpression(sub, requirements); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	case ExprInput:
		if expr.Input == nil {
			return fmt.Errorf("input expression missing reference")
		}
		if expr.Input.Source < 0 || expr.Input.Source >= requirements {
			return fmt.Errorf("input source %d out of range", expr.Input.Source)
		}
		return nil
	default:
		return fmt.Errorf("unknown expression kind %q", expr.Kind)
	}
}

// GenerateID creates a new UUID for an execution or firing record.
func GenerateID() string {
	return uuid.New().String()
}
