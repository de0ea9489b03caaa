package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hearthlabs/hearth-core/internal/value"
)

// defaultQueueSize is the inbound op channel buffer for one execution.
// Large enough that watcher callbacks are never dropped in normal operation;
// see the callback in newTask for the overflow policy.
const defaultQueueSize = 256

// opKind tags the messages flowing into an execution task.
type opKind int

const (
	// opUpdate: an input has been updated, time to re-evaluate triggers.
	opUpdate opKind = iota

	// opStop: time to stop executing the script.
	opStop
)

// executionOp is one message on a task's inbound channel.
type executionOp struct {
	kind opKind

	// Update fields. index addresses the task's immutable cell list;
	// eventAt is stamped in the watch callback (the cell itself is
	// re-stamped at dequeue time).
	index   int
	eventAt time.Time
	value   value.Value

	// Stop completion callback.
	done func(error)
}

// Execution runs and controls a single monitor script.
//
// The handle side (Start, Stop) runs on the caller's goroutine and never
// blocks on device I/O; the script itself runs on a dedicated goroutine
// owned by this execution. At most one task runs per handle at a time.
type Execution struct {
	name   string
	binder Binder
	env    DevEnv
	hooks  Hooks
	logger Logger

	queueSize int

	mu  sync.Mutex
	ops chan executionOp // nil while no task is running
}

// NewExecution creates an idle execution handle for one named monitor.
//
// Parameters:
//   - name: Monitor name, used for logging and firing records
//   - binder: Resolves unchecked scripts to compiled ones
//   - env: Device environment (watcher + action dispatch)
//   - hooks: Optional collaborators; any field may be nil
func NewExecution(name string, binder Binder, env DevEnv, hooks Hooks) *Execution {
	logger := hooks.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Execution{
		name:      name,
		binder:    binder,
		env:       env,
		hooks:     hooks,
		logger:    logger,
		queueSize: defaultQueueSize,
	}
}

// Name returns the monitor name this handle controls.
func (e *Execution) Name() string {
	return e.name
}

// IsRunning reports whether a task is currently active on this handle.
func (e *Execution) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ops != nil
}

// Start begins executing the script.
//
// on_result is invoked exactly once: with ErrAlreadyRunning immediately if a
// task is already active (the script is left untouched), with a wrapped
// ErrCompile or ErrWatchFailed if task construction fails, or with nil once
// the task is fully constructed and its event loop is about to run.
func (e *Execution) Start(script *Script, onResult func(error)) {
	e.mu.Lock()
	if e.ops != nil {
		e.mu.Unlock()
		onResult(ErrAlreadyRunning)
		return
	}
	ops := make(chan executionOp, e.queueSize)
	e.ops = ops
	e.mu.Unlock()

	go func() {
		task, err := newTask(e, script, ops)
		if err != nil {
			// The loop never runs on a partially bound tree; return the
			// handle to its idle state before reporting. If a Stop or
			// Close detached the channel first, its stop op is queued
			// or in flight and must still be answered.
			stopped := e.forget(ops)
			e.logger.Error("monitor start failed", "monitor", e.name, "error", err)
			onResult(err)
			if stopped {
				drainUntilStop(ops)
			}
			return
		}

		e.logger.Info("monitor started",
			"monitor", e.name,
			"rules", len(task.script.Rules),
			"cells", len(task.cells),
		)
		if e.hooks.Events != nil {
			e.hooks.Events.Broadcast("monitor.started", map[string]any{
				"monitor": e.name,
				"rules":   len(task.script.Rules),
			})
		}

		onResult(nil)
		task.run()
		e.forget(ops)
	}()
}

// Stop requests termination of the running task, asynchronously.
//
// The call returns immediately; completion is signalled later by invoking
// on_result from the task's goroutine once the stop message is drained. The
// handle forgets its task reference right away, so a second Stop issued
// before the task drains the message fails with ErrNotRunning — exactly as
// if nothing were running.
func (e *Execution) Stop(onResult func(error)) {
	e.mu.Lock()
	ops := e.ops
	e.ops = nil
	e.mu.Unlock()

	if ops == nil {
		onResult(ErrNotRunning)
		return
	}

	// A stop is just another message: it is processed after every update
	// enqueued before it and before any enqueued after it.
	ops <- executionOp{kind: opStop, done: onResult}
}

// Close issues a best-effort stop with a no-op completion callback.
// Failures (including ErrNotRunning) are swallowed.
func (e *Execution) Close() error {
	e.mu.Lock()
	ops := e.ops
	e.ops = nil
	e.mu.Unlock()

	if ops != nil {
		ops <- executionOp{kind: opStop, done: func(error) {}}
	}
	return nil
}

// forget clears the handle's channel reference if it still points at the
// given task. It reports whether something else detached the channel first:
// the only way that happens is a Stop or Close capturing it, and each
// capturer always sends exactly one stop op before returning. (A newer
// Start can only exist downstream of such a capture.)
func (e *Execution) forget(ops chan executionOp) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ops == ops {
		e.ops = nil
		return false
	}
	return true
}

// drainUntilStop consumes ops until the single in-flight stop op arrives,
// then answers it with ErrNotRunning. Called on the start-failure path when
// a Stop captured the channel before the failure was known: the receive
// both keeps the stop callback from being lost and unblocks a sender stuck
// behind a full queue of updates that will never be evaluated.
func drainUntilStop(ops chan executionOp) {
	for {
		op := <-ops
		if op.kind == opStop {
			op.done(ErrNotRunning)
			return
		}
	}
}

// task is one script bound and running: the compiled tree, the flat cell
// index, and the witnesses holding the watch registrations alive.
type task struct {
	exec   *Execution
	script *CompiledScript

	// cells is the flat ordered list of watched cells. It is built once
	// during construction and never mutated afterwards: in-flight update
	// messages address cells purely by index into this list.
	cells []*Cell

	witnesses []Witness
	ops       chan executionOp
}

// newTask binds the script and registers a watch for every cell referenced
// by a condition. On any failure every witness registered so far is closed
// and the task is discarded.
//
// The same (device, capability) pair may be watched more than once when it
// appears in several conditions; deduplication is left to the watcher.
func newTask(e *Execution, script *Script, ops chan executionOp) (*task, error) {
	compiled, err := e.binder.Bind(script)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	t := &task{
		exec:   e,
		script: compiled,
		ops:    ops,
	}

	for _, rule := range compiled.Rules {
		for _, cond := range rule.Condition.All {
			for _, cell := range cond.Inputs {
				t.cells = append(t.cells, cell)
				index := len(t.cells) - 1

				witness, watchErr := e.env.Watch(cell.Device, cond.Capability, cond.Range, func(v value.Value) {
					// Watcher goroutine: hand off and return. If the
					// queue is full the update is dropped; once the task
					// has stopped nobody drains the channel, and a
					// blocking send would pin the watcher forever.
					select {
					case ops <- executionOp{
						kind:    opUpdate,
						index:   index,
						eventAt: time.Now().UTC(),
						value:   v,
					}:
					default:
						e.logger.Warn("update queue full, dropping value",
							"monitor", e.name,
							"device", cell.Device,
							"capability", cond.Capability,
						)
					}
				})
				if watchErr != nil {
					t.closeWitnesses()
					return nil, fmt.Errorf("%w: device %q capability %q: %w",
						ErrWatchFailed, cell.Device, cond.Capability, watchErr)
				}
				t.witnesses = append(t.witnesses, witness)
			}
		}
	}

	return t, nil
}

// run is the event loop. It executes on the task's own goroutine and blocks
// only while waiting for the next message.
func (t *task) run() {
	defer t.closeWitnesses()

	for {
		op := <-t.ops
		switch op.kind {
		case opStop:
			// Queued-but-undelivered updates are discarded; the watch
			// registrations are released on exit.
			t.exec.logger.Info("monitor stopped", "monitor", t.exec.name)
			if t.exec.hooks.Events != nil {
				t.exec.hooks.Events.Broadcast("monitor.stopped", map[string]any{
					"monitor": t.exec.name,
				})
			}
			op.done(nil)
			return

		case opUpdate:
			t.handleUpdate(op)
		}
	}
}

// handleUpdate writes the new value into its cell and re-evaluates every
// trigger, firing those whose guard transitioned false→true.
func (t *task) handleUpdate(op executionOp) {
	cell := t.cells[op.index]

	// The recorded update time is resampled here rather than reusing the
	// callback's stamp; the original event time still rides along in the
	// op for the firing record.
	cell.Store(DatedValue{
		Updated: time.Now().UTC(),
		Data:    op.value,
	})

	if t.exec.hooks.Telemetry != nil {
		t.exec.hooks.Telemetry.RecordCellUpdate(string(cell.Device), string(cell.Capability), op.value)
	}

	for i, rule := range t.script.Rules {
		met := rule.IsMet()
		if !met.Rising() {
			// Fire only on a false→true transition. Either the guard was
			// already true or it is not true yet.
			continue
		}
		t.fire(i, rule, op)
	}
}

// fire evaluates every statement of one trigger, in order. A failure in one
// statement is reported and does not abort the remaining statements, the
// remaining triggers, or the loop.
func (t *task) fire(ruleIndex int, rule *CompiledTrigger, op executionOp) {
	firedAt := time.Now().UTC()
	var failures []string

	for si, stmt := range rule.Execute {
		if err := stmt.Eval(t.exec.env); err != nil {
			failures = append(failures, err.Error())
			t.exec.logger.Error("statement evaluation failed",
				"monitor", t.exec.name,
				"trigger", ruleIndex,
				"statement", si,
				"error", err,
			)
		}
	}

	t.exec.logger.Info("trigger fired",
		"monitor", t.exec.name,
		"trigger", ruleIndex,
		"statements", len(rule.Execute),
		"failed", len(failures),
	)

	firing := &TriggerFiring{
		ID:               GenerateID(),
		Monitor:          t.exec.name,
		TriggerIndex:     ruleIndex,
		FiredAt:          firedAt,
		EventAt:          op.eventAt,
		StatementsTotal:  len(rule.Execute),
		StatementsFailed: len(failures),
		Failures:         failures,
	}

	if t.exec.hooks.Firings != nil {
		if err := t.exec.hooks.Firings.RecordFiring(context.Background(), firing); err != nil {
			t.exec.logger.Error("failed to record firing", "monitor", t.exec.name, "error", err)
		}
	}
	if t.exec.hooks.Telemetry != nil {
		t.exec.hooks.Telemetry.RecordTriggerFiring(firing)
	}
	if t.exec.hooks.Events != nil {
		t.exec.hooks.Events.Broadcast("monitor.fired", map[string]any{
			"monitor":           t.exec.name,
			"trigger":           ruleIndex,
			"fired_at":          firedAt.Format(time.RFC3339Nano),
			"statements_failed": len(failures),
		})
	}
}

// closeWitnesses releases every watch registration held by the task.
func (t *task) closeWitnesses() {
	for _, w := range t.witnesses {
		if err := w.Close(); err != nil {
			t.exec.logger.Warn("failed to close watch", "monitor", t.exec.name, "error", err)
		}
	}
	t.witnesses = nil
}
