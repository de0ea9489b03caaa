package device

// Protocol identifies the transport a device's updates and commands travel
// over.
type Protocol string

const (
	// ProtocolMQTT is a device bridged over the MQTT broker.
	ProtocolMQTT Protocol = "mqtt"

	// ProtocolVirtual is a device that exists only inside the gateway
	// (simulated sensors, scenes, test fixtures).
	ProtocolVirtual Protocol = "virtual"
)

// Valid reports whether the protocol is one the gateway understands.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolMQTT, ProtocolVirtual:
		return true
	}
	return false
}

// Device describes one entry in the gateway's inventory: a sensor or
// actuator that monitor scripts can be bound against.
type Device struct {
	// Identity
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Kind is the abstract device class scripts request, e.g.
	// "motion_sensor" or "siren". Binding resolves a requirement's kind
	// against this field.
	Kind string `json:"kind" yaml:"kind"`

	// Protocol information. Address is the protocol-specific locator; for
	// MQTT devices it is the topic path segment under the gateway's state
	// and command hierarchies, e.g. "hallway/motion-01".
	Protocol Protocol `json:"protocol" yaml:"protocol"`
	Address  string   `json:"address,omitempty" yaml:"address,omitempty"`

	// Capabilities. Inputs are the channels the device reports on
	// (watchable); Outputs are the actions it accepts (sendable).
	Inputs  []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// DeepCopy creates a complete independent copy of the Device.
// Slice fields are cloned so modifications to the copy do not affect the
// original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.Inputs != nil {
		cpy.Inputs = make([]string, len(d.Inputs))
		copy(cpy.Inputs, d.Inputs)
	}
	if d.Outputs != nil {
		cpy.Outputs = make([]string, len(d.Outputs))
		copy(cpy.Outputs, d.Outputs)
	}

	return &cpy
}

// HasInput reports whether the device reports on the given channel.
func (d *Device) HasInput(capability string) bool {
	for _, c := range d.Inputs {
		if c == capability {
			return true
		}
	}
	return false
}

// HasOutput reports whether the device accepts the given action.
func (d *Device) HasOutput(capability string) bool {
	for _, c := range d.Outputs {
		if c == capability {
			return true
		}
	}
	return false
}
