package monitor

import "github.com/hearthlabs/hearth-core/internal/value"

// DeviceID identifies one concrete device in the gateway's inventory.
type DeviceID string

// DeviceKind is an abstract device category a requirement asks for,
// e.g. "motion_sensor" or "siren".
type DeviceKind string

// InputCapability names a readable value a device exposes,
// e.g. "temperature" or "contact".
type InputCapability string

// OutputCapability names an action a device accepts,
// e.g. "set_level" or "play_sound".
type OutputCapability string

// Script is one unchecked monitor application: a set of abstract device
// requirements, the resources allocated to them, and the rules to run.
//
// Metadata (author, version, permissions) is handled by outer layers and is
// opaque here.
//
// Invariant: len(Requirements) == len(Allocations), index-aligned. Conditions
// and statements reference requirements by index; the binder resolves those
// references to live devices.
type Script struct {
	// Requirements are abstract device needs, e.g. "a motion sensor that
	// reports presence".
	Requirements []Requirement `json:"requirements"`

	// Allocations are the resources satisfying each requirement, in the
	// same order. An empty allocation asks the binder to resolve the
	// requirement itself.
	Allocations []Resource `json:"allocations"`

	// Rules is the ordered set of triggers.
	Rules []Trigger `json:"rules"`
}

// Requirement describes a device the script needs: a kind plus the input and
// output capabilities it must support. Purely descriptive; resolved by the
// binder.
type Requirement struct {
	Kind    DeviceKind         `json:"kind"`
	Inputs  []InputCapability  `json:"inputs,omitempty"`
	Outputs []OutputCapability `json:"outputs,omitempty"`
}

// Resource holds the concrete devices allocated to one requirement.
// Owned by the Script, one-to-one with a Requirement by index.
type Resource struct {
	Devices []DeviceID `json:"devices"`
}

// Trigger is one rule: when the guard conjunction becomes true, execute the
// statements in order. Triggers live for the whole execution.
//
// No cooldown exists yet; a trigger that toggles rapidly fires on every
// rising edge. TODO: add a minimum interval between firings once the policy
// is decided.
type Trigger struct {
	// Condition is the guard; the trigger fires on its false→true edge.
	Condition Conjunction `json:"condition"`

	// Execute is what to do once the guard is met.
	Execute []Statement `json:"execute"`
}

// Conjunction is an "all of" list of conditions.
type Conjunction struct {
	All []Condition `json:"all"`
}

// Condition is a range test over the inputs of one requirement: true iff any
// device allocated to the requirement currently holds a value matching Range
// on Capability.
type Condition struct {
	// Source is the index of the requirement whose devices feed this
	// condition.
	Source int `json:"source"`

	// Capability selects which input value to read.
	Capability InputCapability `json:"capability"`

	// Range is the predicate tested against the latest value.
	Range value.Range `json:"range"`
}

// Statement is one effect: send Action with the evaluated Arguments to every
// device allocated to the destination requirement.
type Statement struct {
	// Destination is the index of the requirement whose devices receive
	// the action.
	Destination int `json:"destination"`

	// Action is the output capability to invoke.
	Action OutputCapability `json:"action"`

	// Arguments maps argument names to expressions. All arguments must be
	// fully evaluable (no unresolved inputs) at execution time.
	Arguments map[string]Expression `json:"arguments,omitempty"`
}

// ExprKind identifies which variant an Expression holds.
type ExprKind string

const (
	ExprValue ExprKind = "value"
	ExprVec   ExprKind = "vec"
	ExprInput ExprKind = "input"
)

// Expression is a value that may be sent to an output: a constant, a vector
// of expressions, or a read from a live input (a deferred feature; compiles,
// but fails loudly at evaluation time).
type Expression struct {
	Kind  ExprKind
	Value value.Value // when Kind == ExprValue
	Vec   []Expression
	Input *InputRef
}

// InputRef names the input an ExprInput expression would read.
type InputRef struct {
	Source     int
	Capability InputCapability
}

// ValueExpr returns a constant expression.
func ValueExpr(v value.Value) Expression {
	return Expression{Kind: ExprValue, Value: v}
}

// VecExpr returns a vector expression over the given elements, in order.
func VecExpr(elems ...Expression) Expression {
	cpy := make([]Expression, len(elems))
	copy(cpy, elems)
	return Expression{Kind: ExprVec, Vec: cpy}
}

// InputExpr returns an input-read expression. Binding resolves it, but
// evaluation is unsupported in the current design and fails with
// ErrInputEval.
func InputExpr(source int, capability InputCapability) Expression {
	return Expression{Kind: ExprInput, Input: &InputRef{Source: source, Capability: capability}}
}
