package device

import (
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
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

// Registry holds the gateway's device inventory in memory.
//
// The inventory is loaded once at startup (see LoadFile) and rarely changes
// afterwards, so a mutex-guarded map is all the structure needed. Lookups
// return deep copies; callers can safely modify results.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  Logger
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Add validates a device and places it in the inventory.
// Returns ErrDeviceExists if the ID is taken.
func (r *Registry) Add(d Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[d.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDeviceExists, d.ID)
	}
	r.devices[d.ID] = d.DeepCopy()

	r.logger.Debug("device added", "device", d.ID, "kind", d.Kind)
	return nil
}

// Get retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d.DeepCopy(), nil
}

// List returns every device in the inventory, sorted by ID.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// ByKind returns every device of the given kind, sorted by ID.
func (r *Registry) ByKind(kind string) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []Device
	for _, d := range r.devices {
		if d.Kind == kind {
			devices = append(devices, *d.DeepCopy())
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// Remove deletes a device from the inventory.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	delete(r.devices, id)

	r.logger.Debug("device removed", "device", id)
	return nil
}

// Count returns the number of devices in the inventory.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
