package monitor

import (
	"fmt"
)

// EnvBinder resolves a script's abstract requirements against the device
// registry and produces the compiled tree.
//
// Resolution rules, per requirement:
//
//   - A non-empty allocation is taken as-is: every named device must exist,
//     be of the required kind, and support the required capabilities.
//   - An empty allocation is resolved automatically to every device of the
//     required kind supporting the required capabilities; if none exists,
//     binding fails with ErrUnsatisfiedRequirement.
//
// Conditions reading the same (device, capability) pair share one cell, so
// one update refreshes every condition watching that input.
type EnvBinder struct {
	devices DeviceRegistry
}

// NewEnvBinder creates a binder resolving against the given registry.
func NewEnvBinder(devices DeviceRegistry) *EnvBinder {
	return &EnvBinder{devices: devices}
}

// cellKey identifies one shared cell.
type cellKey struct {
	device     DeviceID
	capability InputCapability
}

// Bind validates the script, resolves every requirement to concrete devices
// and returns the compiled tree. No live state escapes on failure.
func (b *EnvBinder) Bind(script *Script) (*CompiledScript, error) {
	if err := ValidateScript(script); err != nil {
		return nil, err
	}

	allocations, err := b.resolveAllocations(script)
	if err != nil {
		return nil, err
	}

	// Shared cells, one per (device, capability) pair across the tree.
	cells := make(map[cellKey]*Cell)
	cellFor := func(device DeviceID, capability InputCapability) *Cell {
		key := cellKey{device: device, capability: capability}
		if cell, ok := cells[key]; ok {
			return cell
		}
		cell := NewCell(device, capability)
		cells[key] = cell
		return cell
	}

	compiled := &CompiledScript{Rules: make([]*CompiledTrigger, 0, len(script.Rules))}
	for i := range script.Rules {
		rule := &script.Rules[i]

		conj := &CompiledConjunction{All: make([]*CompiledCondition, 0, len(rule.Condition.All))}
		for _, cond := range rule.Condition.All {
			cc := &CompiledCondition{
				Capability: cond.Capability,
				Range:      cond.Range,
			}
			for _, device := range allocations[cond.Source] {
				cc.Inputs = append(cc.Inputs, cellFor(device, cond.Capability))
			}
			conj.All = append(conj.All, cc)
		}

		trigger := &CompiledTrigger{Condition: conj}
		for _, stmt := range rule.Execute {
			cs := &CompiledStatement{
				Destination: allocations[stmt.Destination],
				Action:      stmt.Action,
				Arguments:   make(map[string]*CompiledExpression, len(stmt.Arguments)),
			}
			for name, expr := range stmt.Arguments {
				cs.Arguments[name] = compileExpression(expr, allocations, cellFor)
			}
			trigger.Execute = append(trigger.Execute, cs)
		}
		compiled.Rules = append(compiled.Rules, trigger)
	}

	return compiled, nil
}

// resolveAllocations produces the concrete device list for every requirement.
func (b *EnvBinder) resolveAllocations(script *Script) ([][]DeviceID, error) {
	allocations := make([][]DeviceID, len(script.Requirements))

	for i, req := range script.Requirements {
		given := script.Allocations[i].Devices
		if len(given) > 0 {
			for _, id := range given {
				info, ok := b.devices.Device(id)
				if !ok {
					return nil, fmt.Errorf("requirement %d: %w: %q", i, ErrUnknownDevice, id)
				}
				if err := checkDevice(info, req); err != nil {
					return nil, fmt.Errorf("requirement %d: device %q: %w", i, id, err)
				}
			}
			allocations[i] = append([]DeviceID(nil), given...)
			continue
		}

		var resolved []DeviceID
		for _, info := range b.devices.DevicesByKind(req.Kind) {
			if checkDevice(info, req) == nil {
				resolved = append(resolved, info.ID)
			}
		}
		if len(resolved) == 0 {
			return nil, fmt.Errorf("requirement %d: %w: kind %q", i, ErrUnsatisfiedRequirement, req.Kind)
		}
		allocations[i] = resolved
	}

	return allocations, nil
}

// checkDevice verifies one device against a requirement's kind and
// capability sets.
func checkDevice(info DeviceInfo, req Requirement) error {
	if info.Kind != req.Kind {
		return fmt.Errorf("%w: kind %q does not match %q", ErrUnsatisfiedRequirement, info.Kind, req.Kind)
	}
	for _, in := range req.Inputs {
		if !containsInput(info.Inputs, in) {
			return fmt.Errorf("%w: missing input capability %q", ErrUnsatisfiedRequirement, in)
		}
	}
	for _, out := range req.Outputs {
		if !containsOutput(info.Outputs, out) {
			return fmt.Errorf("%w: missing output capability %q", ErrUnsatisfiedRequirement, out)
		}
	}
	return nil
}

// compileExpression lowers an expression, resolving input reads to shared
// cells. Input expressions bind but remain unevaluable (ErrInputEval).
func compileExpression(expr Expression, allocations [][]DeviceID, cellFor func(DeviceID, InputCapability) *Cell) *CompiledExpression {
	out := &CompiledExpression{Kind: expr.Kind}
	switch expr.Kind {
	case ExprValue:
		out.Value = expr.Value
	case ExprVec:
		out.Vec = make([]*CompiledExpression, 0, len(expr.Vec))
		for _, sub := range expr.Vec {
			out.Vec = append(out.Vec, compileExpression(sub, allocations, cellFor))
		}
	case ExprInput:
		for _, device := range allocations[expr.Input.Source] {
			out.InputCells = append(out.InputCells, cellFor(device, expr.Input.Capability))
		}
	}
	return out
}

func containsInput(haystack []InputCapability, needle InputCapability) bool {
	for _, c := range haystack {
		if c == needle {
			return true
		}
	}
	return false
}

func containsOutput(haystack []OutputCapability, needle OutputCapability) bool {
	for _, c := range haystack {
		if c == needle {
			return true
		}
	}
	return false
}
