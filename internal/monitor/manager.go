package monitor

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"
)

// namePattern restricts monitor names to lowercase slugs so they can appear
// in MQTT topics and URLs without escaping.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// maxNameLen limits monitor name length.
const maxNameLen = 64

// ValidName reports whether name is an acceptable monitor slug: lowercase
// letters, digits and interior hyphens, at most 64 characters. The rule
// applies to every registration path, API and script autoload alike.
func ValidName(name string) bool {
	return name != "" && len(name) <= maxNameLen && namePattern.MatchString(name)
}

// MonitorInfo is a read-only summary of one registered monitor, suitable for
// API responses.
type MonitorInfo struct {
	Name         string    `json:"name"`
	Requirements int       `json:"requirements"`
	Rules        int       `json:"rules"`
	Running      bool      `json:"running"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Manager holds the gateway's registered monitors behind one thread-safe
// surface: registration, lookup, and start/stop lifecycle. Each monitor owns
// an independent Execution handle; no state is shared between monitors.
//
// All public methods are thread-safe.
type Manager struct {
	binder Binder
	env    DevEnv
	hooks  Hooks
	logger Logger

	mu       sync.RWMutex
	monitors map[string]*managedMonitor
}

// managedMonitor pairs a registered script with its execution handle.
type managedMonitor struct {
	script       *Script
	exec         *Execution
	registeredAt time.Time
}

// NewManager creates an empty monitor manager. The binder, environment and
// hooks are handed to every execution it creates.
func NewManager(binder Binder, env DevEnv, hooks Hooks) *Manager {
	logger := hooks.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		binder:   binder,
		env:      env,
		hooks:    hooks,
		logger:   logger,
		monitors: make(map[string]*managedMonitor),
	}
}

// Register adds a named monitor. The script is validated structurally but
// not bound; binding happens at start time against the live registry.
//
// Returns ErrInvalidName if the name is not a valid slug, ErrMonitorExists
// if the name is taken, or ErrInvalidScript if validation fails.
func (m *Manager) Register(name string, script *Script) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	if err := ValidateScript(script); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.monitors[name]; exists {
		return ErrMonitorExists
	}
	m.monitors[name] = &managedMonitor{
		script:       script,
		exec:         NewExecution(name, m.binder, m.env, m.hooks),
		registeredAt: time.Now().UTC(),
	}

	m.logger.Info("monitor registered", "monitor", name, "rules", len(script.Rules))
	return nil
}

// Deregister stops a monitor if running (best effort) and removes it.
func (m *Manager) Deregister(name string) error {
	m.mu.Lock()
	entry, ok := m.monitors[name]
	if ok {
		delete(m.monitors, name)
	}
	m.mu.Unlock()

	if !ok {
		return ErrMonitorNotFound
	}

	_ = entry.exec.Close()
	m.logger.Info("monitor deregistered", "monitor", name)
	return nil
}

// Get returns the summary for one monitor.
func (m *Manager) Get(name string) (MonitorInfo, error) {
	m.mu.RLock()
	entry, ok := m.monitors[name]
	m.mu.RUnlock()

	if !ok {
		return MonitorInfo{}, ErrMonitorNotFound
	}
	return infoFor(name, entry), nil
}

// List returns summaries for every registered monitor, sorted by name.
func (m *Manager) List() []MonitorInfo {
	m.mu.RLock()
	infos := make([]MonitorInfo, 0, len(m.monitors))
	for name, entry := range m.monitors {
		infos = append(infos, infoFor(name, entry))
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Start begins executing a registered monitor and waits for the start
// outcome (binding included).
//
// Returns ErrMonitorNotFound, ErrAlreadyRunning, a wrapped compile error, or
// nil once the event loop is running. Context cancellation abandons the wait
// but not the start itself.
func (m *Manager) Start(ctx context.Context, name string) error {
	m.mu.RLock()
	entry, ok := m.monitors[name]
	m.mu.RUnlock()

	if !ok {
		return ErrMonitorNotFound
	}

	result := make(chan error, 1)
	entry.exec.Start(entry.script, func(err error) { result <- err })

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop requests termination of a running monitor and waits for the stop
// message to drain.
//
// Returns ErrMonitorNotFound, ErrNotRunning, or nil once the task has
// exited. Context cancellation abandons the wait but not the stop itself.
func (m *Manager) Stop(ctx context.Context, name string) error {
	m.mu.RLock()
	entry, ok := m.monitors[name]
	m.mu.RUnlock()

	if !ok {
		return ErrMonitorNotFound
	}

	result := make(chan error, 1)
	entry.exec.Stop(func(err error) { result <- err })

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close issues a best-effort stop to every running monitor. Used during
// gateway shutdown.
func (m *Manager) Close() error {
	m.mu.RLock()
	entries := make([]*managedMonitor, 0, len(m.monitors))
	for _, entry := range m.monitors {
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	for _, entry := range entries {
		_ = entry.exec.Close()
	}
	return nil
}

// infoFor builds the read-only summary of one entry.
func infoFor(name string, entry *managedMonitor) MonitorInfo {
	return MonitorInfo{
		Name:         name,
		Requirements: len(entry.script.Requirements),
		Rules:        len(entry.script.Rules),
		Running:      entry.exec.IsRunning(),
		RegisteredAt: entry.registeredAt,
	}
}
