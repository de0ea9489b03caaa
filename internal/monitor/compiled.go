package monitor

import (
	"sync"
	"time"

	"github.com/hearthlabs/hearth-core/internal/value"
)

// DatedValue is the last known reading of one device input, stamped with the
// time the event loop recorded it.
type DatedValue struct {
	Updated time.Time
	Data    value.Value
}

// Cell is the shared live state for one (device, capability) pair: the last
// known value, or nothing if no measurement has arrived yet.
//
// A cell is shared by every compiled condition reading the same pair and
// written by the execution task that owns it. The lock exists for future
// readers outside the task goroutine (UI, debugging); the task itself is the
// only writer.
type Cell struct {
	Device     DeviceID
	Capability InputCapability

	mu    sync.RWMutex
	state *DatedValue
}

// NewCell returns an empty cell for the given pair.
func NewCell(device DeviceID, capability InputCapability) *Cell {
	return &Cell{Device: device, Capability: capability}
}

// Load returns the last recorded value. The second return is false when no
// measurement has been received yet.
func (c *Cell) Load() (DatedValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == nil {
		return DatedValue{}, false
	}
	return *c.state, true
}

// Store records a new value.
func (c *Cell) Store(dv DatedValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = &dv
}

// CompiledScript is a script bound to live devices, ready to execute.
// Produced by a Binder; never constructed by hand.
type CompiledScript struct {
	Rules []*CompiledTrigger
}

// CompiledTrigger is one bound rule.
type CompiledTrigger struct {
	Condition *CompiledConjunction
	Execute   []*CompiledStatement
}

// CompiledConjunction is an "all of" list of bound conditions plus the
// stored aggregate truth flag.
//
// Invariant: isMet always reflects the AND of all children's last-computed
// truth values. Only the execution task's goroutine touches it.
type CompiledConjunction struct {
	All   []*CompiledCondition
	isMet bool
}

// CompiledCondition is a bound range test: true iff any of its input cells
// currently holds a value matching Range.
type CompiledCondition struct {
	// Inputs is the ordered set of cells to read. Cells are shared with
	// every other condition on the same (device, capability) pair.
	Inputs []*Cell

	Capability InputCapability
	Range      value.Range

	isMet bool
}

// CompiledStatement is a bound effect: one send per destination device.
type CompiledStatement struct {
	// Destination is the resolved set of devices to act on.
	Destination []DeviceID

	Action    OutputCapability
	Arguments map[string]*CompiledExpression
}

// CompiledExpression mirrors Expression with input reads resolved to cells.
type CompiledExpression struct {
	Kind  ExprKind
	Value value.Value
	Vec   []*CompiledExpression

	// InputCells is populated for ExprInput expressions. Binding resolves
	// the cells, but evaluation remains unsupported (ErrInputEval).
	InputCells []*Cell
}
