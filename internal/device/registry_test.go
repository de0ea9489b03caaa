package device

import (
	"errors"
	"testing"
)

func validDevice() Device {
	return Device{
		ID:       "motion-01",
		Name:     "Hallway motion",
		Kind:     "motion_sensor",
		Protocol: ProtocolMQTT,
		Address:  "hallway/motion-01",
		Inputs:   []string{"presence"},
	}
}

func TestRegistry_AddAndGet(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(validDevice()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := reg.Get("motion-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != "motion_sensor" || got.Address != "hallway/motion-01" {
		t.Errorf("Get = %+v", got)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegistry_AddDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(validDevice()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(validDevice()); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("second Add error = %v, want ErrDeviceExists", err)
	}
}

func TestRegistry_AddInvalid(t *testing.T) {
	reg := NewRegistry()

	d := validDevice()
	d.Kind = ""

	if err := reg.Add(d); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("Add error = %v, want ErrInvalidDevice", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Get("ghost"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add(validDevice()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	first, _ := reg.Get("motion-01")
	first.Inputs[0] = "tampered"

	second, _ := reg.Get("motion-01")
	if second.Inputs[0] != "presence" {
		t.Error("mutation of a returned device leaked into the registry")
	}
}

func TestRegistry_ByKind(t *testing.T) {
	reg := NewRegistry()

	for _, d := range []Device{
		{ID: "motion-02", Name: "Porch motion", Kind: "motion_sensor", Protocol: ProtocolMQTT, Address: "porch/motion-02", Inputs: []string{"presence"}},
		validDevice(),
		{ID: "siren-01", Name: "Garage siren", Kind: "siren", Protocol: ProtocolMQTT, Address: "garage/siren-01", Outputs: []string{"play_sound"}},
	} {
		if err := reg.Add(d); err != nil {
			t.Fatalf("Add %s: %v", d.ID, err)
		}
	}

	sensors := reg.ByKind("motion_sensor")
	if len(sensors) != 2 {
		t.Fatalf("ByKind = %d devices, want 2", len(sensors))
	}
	if sensors[0].ID != "motion-01" || sensors[1].ID != "motion-02" {
		t.Errorf("ByKind not sorted by ID: %s, %s", sensors[0].ID, sensors[1].ID)
	}
	if got := reg.ByKind("sprinkler"); got != nil {
		t.Errorf("ByKind(sprinkler) = %v, want nil", got)
	}
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add(validDevice()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := reg.Remove("motion-01"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := reg.Get("motion-01"); !errors.Is(err, ErrDeviceNotFound) {
		t.Error("device still present after Remove")
	}
	if err := reg.Remove("motion-01"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Remove error = %v, want ErrDeviceNotFound", err)
	}
}

func TestDevice_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr error
	}{
		{"valid", func(*Device) {}, nil},
		{"empty id", func(d *Device) { d.ID = "" }, ErrInvalidDevice},
		{"uppercase id", func(d *Device) { d.ID = "Motion-01" }, ErrInvalidDevice},
		{"trailing hyphen", func(d *Device) { d.ID = "motion-" }, ErrInvalidDevice},
		{"empty name", func(d *Device) { d.Name = "" }, ErrInvalidDevice},
		{"empty kind", func(d *Device) { d.Kind = "" }, ErrInvalidDevice},
		{"bad protocol", func(d *Device) { d.Protocol = "zigbee" }, ErrInvalidProtocol},
		{"mqtt without address", func(d *Device) { d.Address = "" }, ErrInvalidDevice},
		{"no capabilities", func(d *Device) { d.Inputs = nil }, ErrInvalidDevice},
		{"duplicate input", func(d *Device) { d.Inputs = []string{"presence", "presence"} }, ErrInvalidDevice},
		{"virtual without address", func(d *Device) { d.Protocol = ProtocolVirtual; d.Address = "" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDevice()
			tt.mutate(&d)

			err := d.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
