package mqttenv

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hearthlabs/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthlabs/hearth-core/internal/monitor"
	"github.com/hearthlabs/hearth-core/internal/value"
)

// MQTTClient is the interface for broker operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes the handler for a topic pattern.
	Unsubscribe(topic string) error
}

// DeviceDirectory resolves a device ID to its transport route.
// This interface is satisfied by *device.Binding.
type DeviceDirectory interface {
	// Route returns the protocol and address for one device.
	Route(id monitor.DeviceID) (protocol, address string, err error)
}

// Logger defines the logging interface used by the environment.
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

// statePayload is the wire format for device state updates.
type statePayload struct {
	Capability string      `json:"capability"`
	Value      value.Value `json:"value"`
}

// commandPayload is the wire format for device commands.
type commandPayload struct {
	ID     string                 `json:"id"`
	Action string                 `json:"action"`
	Args   map[string]value.Value `json:"args,omitempty"`
}

// watcher is one live watch registration on a state topic.
type watcher struct {
	capability monitor.InputCapability
	cb         monitor.WatchCallback
}

// subscription tracks all watchers sharing one broker subscription.
type subscription struct {
	watchers map[uint64]*watcher
}

// Environment translates monitor watch and send requests into broker
// traffic. One broker subscription is held per watched device, shared by
// every monitor watching it.
//
// Thread Safety: All methods are safe for concurrent use.
type Environment struct {
	client MQTTClient
	dir    DeviceDirectory
	topics mqtt.Topics
	qos    byte
	logger Logger

	mu     sync.Mutex
	subs   map[string]*subscription
	nextID uint64
	closed bool
}

// Option configures the environment.
type Option func(*Environment)

// WithQoS sets the QoS level for subscriptions and publishes.
// Default is 1 (at least once).
func WithQoS(qos byte) Option {
	return func(e *Environment) { e.qos = qos }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(logger Logger) Option {
	return func(e *Environment) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an environment backed by the given broker client and device
// directory.
func New(client MQTTClient, dir DeviceDirectory, opts ...Option) *Environment {
	e := &Environment{
		client: client,
		dir:    dir,
		qos:    1,
		logger: noopLogger{},
		subs:   make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Watch subscribes to the device's state topic and dispatches updates for
// the given capability to cb. The range is advisory and not used for
// filtering; the engine re-checks every delivered value.
//
// Returns a witness that revokes the registration when closed. The broker
// subscription is released when the last witness for a device closes.
func (e *Environment) Watch(device monitor.DeviceID, capability monitor.InputCapability, _ value.Range, cb monitor.WatchCallback) (monitor.Witness, error) {
	protocol, address, err := e.dir.Route(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}
	topic := e.stateTopic(protocol, address, device)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	sub, ok := e.subs[topic]
	if !ok {
		if err := e.client.Subscribe(topic, e.qos, e.makeHandler(topic)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}
		sub = &subscription{watchers: make(map[uint64]*watcher)}
		e.subs[topic] = sub
	}

	e.nextID++
	id := e.nextID
	sub.watchers[id] = &watcher{capability: capability, cb: cb}

	e.logger.Debug("watch registered",
		"device", string(device),
		"capability", string(capability),
		"topic", topic,
	)

	return &witness{env: e, topic: topic, id: id}, nil
}

// Send publishes a command to the device's command topic. The command
// carries a fresh UUID so bridges can acknowledge it unambiguously.
func (e *Environment) Send(device monitor.DeviceID, capability monitor.OutputCapability, args map[string]value.Value) error {
	protocol, address, err := e.dir.Route(device)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}

	payload, err := json.Marshal(commandPayload{
		ID:     uuid.NewString(),
		Action: string(capability),
		Args:   args,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	topic := e.commandTopic(protocol, address, device)
	if err := e.client.Publish(topic, payload, e.qos, false); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}

	e.logger.Debug("command sent",
		"device", string(device),
		"action", string(capability),
		"topic", topic,
	)
	return nil
}

// Close releases every broker subscription and rejects further watches.
// Open witnesses become no-ops.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	for topic := range e.subs {
		if err := e.client.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.subs, topic)
	}
	return firstErr
}

// makeHandler returns the broker callback for one state topic. Updates are
// fanned out to every watcher interested in the update's capability.
func (e *Environment) makeHandler(topic string) mqtt.MessageHandler {
	return func(_ string, payload []byte) error {
		var state statePayload
		if err := json.Unmarshal(payload, &state); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if state.Capability == "" {
			return fmt.Errorf("%w: capability is required", ErrInvalidPayload)
		}

		e.mu.Lock()
		sub, ok := e.subs[topic]
		var callbacks []monitor.WatchCallback
		if ok {
			for _, w := range sub.watchers {
				if string(w.capability) == state.Capability {
					callbacks = append(callbacks, w.cb)
				}
			}
		}
		e.mu.Unlock()

		// Callbacks run outside the lock: they enqueue into execution
		// queues and must not hold up other topic handlers.
		for _, cb := range callbacks {
			cb(state.Value)
		}
		return nil
	}
}

// stateTopic returns the state topic for a routed device. Virtual devices
// have no bridge address and use their ID instead.
func (e *Environment) stateTopic(protocol, address string, device monitor.DeviceID) string {
	if address == "" {
		address = string(device)
	}
	return e.topics.BridgeState(protocol, address)
}

func (e *Environment) commandTopic(protocol, address string, device monitor.DeviceID) string {
	if address == "" {
		address = string(device)
	}
	return e.topics.BridgeCommand(protocol, address)
}

// witness revokes one watch registration.
type witness struct {
	env   *Environment
	topic string
	id    uint64

	once sync.Once
}

// Close removes the registration. When the last watcher on a topic closes,
// the broker subscription is released. Close is idempotent.
func (w *witness) Close() error {
	var err error
	w.once.Do(func() {
		err = w.env.release(w.topic, w.id)
	})
	return err
}

func (e *Environment) release(topic string, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub, ok := e.subs[topic]
	if !ok {
		return nil
	}
	delete(sub.watchers, id)
	if len(sub.watchers) > 0 {
		return nil
	}
	delete(e.subs, topic)
	if e.closed {
		return nil
	}
	return e.client.Unsubscribe(topic)
}
