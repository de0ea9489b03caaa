package device

import (
	"fmt"
	"regexp"
)

// idPattern constrains device IDs to lowercase slugs: letters, digits and
// hyphens, starting and ending with an alphanumeric.
var idPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Validate checks a device's structural invariants.
//
// It verifies:
//   - ID is a non-empty lowercase slug
//   - Name and Kind are non-empty
//   - Protocol is recognised, and MQTT devices carry an address
//   - the device has at least one capability, with no duplicates
//
// Returns ErrInvalidDevice (wrapped with detail) on failure.
func (d *Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("%w: id %q must be a lowercase slug", ErrInvalidDevice, d.ID)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidDevice, d.ID)
	}
	if d.Kind == "" {
		return fmt.Errorf("%w: %s: kind is required", ErrInvalidDevice, d.ID)
	}
	if !d.Protocol.Valid() {
		return fmt.Errorf("%w: %s: %q", ErrInvalidProtocol, d.ID, d.Protocol)
	}
	if d.Protocol == ProtocolMQTT && d.Address == "" {
		return fmt.Errorf("%w: %s: mqtt devices require an address", ErrInvalidDevice, d.ID)
	}
	if len(d.Inputs) == 0 && len(d.Outputs) == 0 {
		return fmt.Errorf("%w: %s: at least one capability is required", ErrInvalidDevice, d.ID)
	}
	if dup := firstDuplicate(d.Inputs); dup != "" {
		return fmt.Errorf("%w: %s: duplicate input capability %q", ErrInvalidDevice, d.ID, dup)
	}
	if dup := firstDuplicate(d.Outputs); dup != "" {
		return fmt.Errorf("%w: %s: duplicate output capability %q", ErrInvalidDevice, d.ID, dup)
	}
	return nil
}

func firstDuplicate(caps []string) string {
	seen := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		if _, ok := seen[c]; ok {
			return c
		}
		seen[c] = struct{}{}
	}
	return ""
}
