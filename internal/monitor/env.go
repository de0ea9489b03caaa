package monitor

import (
	"context"

	"github.com/hearthlabs/hearth-core/internal/value"
)

// WatchCallback is invoked by the device environment's watcher on every raw
// value change for a watched input.
//
// Callbacks run on goroutines owned by the watcher, not the execution task.
// They must only hand the value off (the engine's callbacks enqueue a
// message) and never touch script state directly.
type WatchCallback func(v value.Value)

// Witness is a revocable handle to one watch registration. Closing it
// releases the watcher's registration.
type Witness interface {
	Close() error
}

// DevEnv is the device environment the engine executes against: the watcher
// that raises value-change callbacks, and the dispatch surface for actions.
//
// The range passed to Watch is advisory: the watcher may use it to optimise
// I/O, but the engine re-checks every delivered value itself. Watching the
// same (device, capability) pair more than once is allowed; deduplication is
// the watcher's concern, not the engine's.
type DevEnv interface {
	// Watch registers interest in one device input and returns a witness
	// that revokes the registration when closed.
	Watch(device DeviceID, capability InputCapability, r value.Range, cb WatchCallback) (Witness, error)

	// Send dispatches an action with named arguments to one device.
	// Sends are expected to be non-blocking from the engine's perspective.
	Send(device DeviceID, capability OutputCapability, args map[string]value.Value) error
}

// Binder turns an unchecked script into a compiled one bound to live device
// cells, or fails with a compile error (unsatisfiable requirement, unknown
// device, malformed tree). The engine treats binder failure as fatal to
// Start; the event loop never runs on a partially bound tree.
type Binder interface {
	Bind(script *Script) (*CompiledScript, error)
}

// DeviceInfo is the minimal device description the binder needs to resolve
// requirements.
type DeviceInfo struct {
	ID      DeviceID
	Kind    DeviceKind
	Inputs  []InputCapability
	Outputs []OutputCapability
}

// DeviceRegistry is the interface the binder needs from the device package.
type DeviceRegistry interface {
	// DevicesByKind lists every known device of the given kind.
	DevicesByKind(kind DeviceKind) []DeviceInfo

	// Device retrieves one device by ID for allocation verification.
	Device(id DeviceID) (DeviceInfo, bool)
}

// Logger defines the logging interface used by the engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventSink receives engine lifecycle events for UI relays (WebSocket hub,
// MQTT event topics). Implementations must not block.
type EventSink interface {
	Broadcast(channel string, payload any)
}

// FiringRecorder persists trigger firings for later inspection.
type FiringRecorder interface {
	RecordFiring(ctx context.Context, firing *TriggerFiring) error
}

// TelemetryRecorder receives every processed cell update and every trigger
// firing, for time-series storage. Implementations must not block.
type TelemetryRecorder interface {
	RecordCellUpdate(device string, capability string, v value.Value)
	RecordTriggerFiring(firing *TriggerFiring)
}

// Hooks bundles the optional collaborators an execution reports to. The zero
// value is valid: every field may be nil.
type Hooks struct {
	Logger    Logger
	Events    EventSink
	Firings   FiringRecorder
	Telemetry TelemetryRecorder
}
