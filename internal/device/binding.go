package device

import (
	"github.com/hearthlabs/hearth-core/internal/monitor"
)

// Binding adapts the inventory to the lookup interface the monitor binder
// consumes.
type Binding struct {
	registry *Registry
}

// NewBinding wraps a registry for use by the monitor engine.
func NewBinding(registry *Registry) *Binding {
	return &Binding{registry: registry}
}

// DevicesByKind returns binder-facing summaries of every device of the
// given kind.
func (b *Binding) DevicesByKind(kind monitor.DeviceKind) []monitor.DeviceInfo {
	devices := b.registry.ByKind(string(kind))
	if len(devices) == 0 {
		return nil
	}
	infos := make([]monitor.DeviceInfo, 0, len(devices))
	for i := range devices {
		infos = append(infos, infoFor(&devices[i]))
	}
	return infos
}

// Device returns the binder-facing summary of one device.
func (b *Binding) Device(id monitor.DeviceID) (monitor.DeviceInfo, bool) {
	d, err := b.registry.Get(string(id))
	if err != nil {
		return monitor.DeviceInfo{}, false
	}
	return infoFor(d), true
}

// Route returns the transport protocol and address for one device. The MQTT
// environment uses it to derive state and command topics.
func (b *Binding) Route(id monitor.DeviceID) (protocol, address string, err error) {
	d, err := b.registry.Get(string(id))
	if err != nil {
		return "", "", err
	}
	return string(d.Protocol), d.Address, nil
}

func infoFor(d *Device) monitor.DeviceInfo {
	info := monitor.DeviceInfo{
		ID:   monitor.DeviceID(d.ID),
		Kind: monitor.DeviceKind(d.Kind),
	}
	for _, c := range d.Inputs {
		info.Inputs = append(info.Inputs, monitor.InputCapability(c))
	}
	for _, c := range d.Outputs {
		info.Outputs = append(info.Outputs, monitor.OutputCapability(c))
	}
	return info
}
