package monitor

import (
	"errors"
	"testing"

	"github.com/hearthlabs/hearth-core/internal/value"
)

func TestEnvBinder_BindExplicitAllocation(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	compiled, err := binder.Bind(alarmScript())
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(compiled.Rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(compiled.Rules))
	}

	rule := compiled.Rules[0]
	if len(rule.Condition.All) != 1 {
		t.Fatalf("conditions = %d, want 1", len(rule.Condition.All))
	}
	cond := rule.Condition.All[0]
	if len(cond.Inputs) != 1 || cond.Inputs[0].Device != "motion-01" {
		t.Errorf("condition inputs = %+v, want one cell for motion-01", cond.Inputs)
	}
	if len(rule.Execute) != 1 {
		t.Fatalf("statements = %d, want 1", len(rule.Execute))
	}
	stmt := rule.Execute[0]
	if len(stmt.Destination) != 1 || stmt.Destination[0] != "siren-01" {
		t.Errorf("statement destination = %v, want [siren-01]", stmt.Destination)
	}
}

func TestEnvBinder_BindAutoResolvesEmptyAllocation(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	script := alarmScript()
	script.Allocations[0].Devices = nil

	compiled, err := binder.Bind(script)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	// Both motion sensors in the registry satisfy the requirement.
	cond := compiled.Rules[0].Condition.All[0]
	if len(cond.Inputs) != 2 {
		t.Errorf("condition inputs = %d, want 2 auto-resolved cells", len(cond.Inputs))
	}
}

func TestEnvBinder_BindUnknownDevice(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	script := alarmScript()
	script.Allocations[1].Devices = []DeviceID{"siren-99"}

	if _, err := binder.Bind(script); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Bind error = %v, want ErrUnknownDevice", err)
	}
}

func TestEnvBinder_BindKindMismatch(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	script := alarmScript()
	// A thermostat allocated to the siren requirement.
	script.Allocations[1].Devices = []DeviceID{"thermo-01"}

	if _, err := binder.Bind(script); !errors.Is(err, ErrUnsatisfiedRequirement) {
		t.Errorf("Bind error = %v, want ErrUnsatisfiedRequirement", err)
	}
}

func TestEnvBinder_BindMissingCapability(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	script := alarmScript()
	script.Requirements[0].Inputs = []InputCapability{"presence", "battery_level"}

	if _, err := binder.Bind(script); !errors.Is(err, ErrUnsatisfiedRequirement) {
		t.Errorf("Bind error = %v, want ErrUnsatisfiedRequirement", err)
	}
}

func TestEnvBinder_BindNoDeviceOfKind(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	script := alarmScript()
	script.Requirements[0].Kind = "sprinkler"
	script.Allocations[0].Devices = nil

	if _, err := binder.Bind(script); !errors.Is(err, ErrUnsatisfiedRequirement) {
		t.Errorf("Bind error = %v, want ErrUnsatisfiedRequirement", err)
	}
}

func TestEnvBinder_SharedCells(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	// Two rules conditioned on the same input must share a single cell so
	// one update refreshes both.
	script := alarmScript()
	script.Rules = append(script.Rules, Trigger{
		Condition: Conjunction{All: []Condition{
			{Source: 0, Capability: "presence", Range: value.EqBool(false)},
		}},
		Execute: []Statement{
			{Destination: 1, Action: "play_sound", Arguments: map[string]Expression{}},
		},
	})

	compiled, err := binder.Bind(script)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	first := compiled.Rules[0].Condition.All[0].Inputs[0]
	second := compiled.Rules[1].Condition.All[0].Inputs[0]
	if first != second {
		t.Error("conditions on the same (device, capability) did not share a cell")
	}
}

func TestEnvBinder_BindInputExpression(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	script := alarmScript()
	script.Rules[0].Execute[0].Arguments["echo"] = InputExpr(0, "presence")

	compiled, err := binder.Bind(script)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	expr := compiled.Rules[0].Execute[0].Arguments["echo"]
	if expr.Kind != ExprInput {
		t.Fatalf("expression kind = %q, want %q", expr.Kind, ExprInput)
	}
	if len(expr.InputCells) != 1 || expr.InputCells[0].Device != "motion-01" {
		t.Errorf("input cells = %+v, want one cell for motion-01", expr.InputCells)
	}

	// Bound but not evaluable.
	if _, err := expr.Eval(); !errors.Is(err, ErrInputEval) {
		t.Errorf("Eval error = %v, want ErrInputEval", err)
	}
}

func TestEnvBinder_BindRejectsInvalidScript(t *testing.T) {
	binder := NewEnvBinder(newMockRegistry())

	script := alarmScript()
	script.Rules[0].Condition.All[0].Source = 7

	if _, err := binder.Bind(script); !errors.Is(err, ErrInvalidScript) {
		t.Errorf("Bind error = %v, want ErrInvalidScript", err)
	}
}
