package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// inventoryFile is the YAML shape of a device inventory:
//
//	devices:
//	  - id: motion-01
//	    name: Hallway motion
//	    kind: motion_sensor
//	    protocol: mqtt
//	    address: hallway/motion-01
//	    inputs: [presence]
type inventoryFile struct {
	Devices []Device `yaml:"devices"`
}

// LoadInventory reads and parses a YAML inventory file. Every device is
// validated; the first invalid entry fails the whole load.
func LoadInventory(path string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInventory, path, err)
	}

	var file inventoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInventory, path, err)
	}

	for i := range file.Devices {
		if err := file.Devices[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s entry %d: %v", ErrInventory, path, i, err)
		}
	}
	return file.Devices, nil
}

// LoadFile populates the registry from a YAML inventory file.
func (r *Registry) LoadFile(path string) error {
	devices, err := LoadInventory(path)
	if err != nil {
		return err
	}

	for _, d := range devices {
		if err := r.Add(d); err != nil {
			return err
		}
	}

	r.logger.Info("device inventory loaded", "path", path, "count", len(devices))
	return nil
}
