package monitor

import "errors"

// Domain errors for the monitor package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, monitor.ErrAlreadyRunning) {
//	    // handle double-start
//	}
var (
	// ErrAlreadyRunning is returned when Start is called on an execution
	// that already has a running task.
	ErrAlreadyRunning = errors.New("monitor: already running")

	// ErrNotRunning is returned when Stop is called with no active task.
	ErrNotRunning = errors.New("monitor: not running")

	// ErrCompile wraps any binder failure reported at start time.
	ErrCompile = errors.New("monitor: compile failed")

	// ErrUnsatisfiedRequirement is returned by the binder when no device
	// can satisfy a requirement's kind and capability set.
	ErrUnsatisfiedRequirement = errors.New("monitor: no device satisfies requirement")

	// ErrUnknownDevice is returned by the binder when an allocation names
	// a device the registry does not know.
	ErrUnknownDevice = errors.New("monitor: unknown device")

	// ErrInvalidScript is returned when script validation fails.
	ErrInvalidScript = errors.New("monitor: invalid script")

	// ErrInputEval is returned when evaluating an input-read expression.
	// Dynamic expressions that read a live input are a deferred feature;
	// evaluation fails loudly rather than returning a placeholder.
	ErrInputEval = errors.New("monitor: input expressions cannot be evaluated yet")

	// ErrSendFailed wraps device environment send failures during
	// statement evaluation.
	ErrSendFailed = errors.New("monitor: send failed")

	// ErrMonitorNotFound is returned when a monitor name is not registered
	// with the manager.
	ErrMonitorNotFound = errors.New("monitor: not found")

	// ErrMonitorExists is returned when registering a monitor under a name
	// that is already taken.
	ErrMonitorExists = errors.New("monitor: already exists")

	// ErrInvalidName is returned when registering a monitor whose name is
	// not an acceptable slug (see ValidName).
	ErrInvalidName = errors.New("monitor: invalid name")

	// ErrWatchFailed wraps watcher registration failures during task
	// construction.
	ErrWatchFailed = errors.New("monitor: watch registration failed")
)
