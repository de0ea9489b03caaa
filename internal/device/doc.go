// Package device holds the gateway's device inventory: the set of sensors
// and actuators the monitor engine can bind scripts against.
//
// # Architecture
//
//	┌──────────────────┐     LoadFile      ┌──────────────────┐
//	│  devices.yaml    │ ────────────────► │     Registry     │
//	│  (inventory)     │                   │  (in-memory map) │
//	└──────────────────┘                   └────────┬─────────┘
//	                                                │ Binding
//	                                                ▼
//	                                       ┌──────────────────┐
//	                                       │  monitor binder  │
//	                                       │ (kind + caps     │
//	                                       │  resolution)     │
//	                                       └──────────────────┘
//
// The inventory is declarative: devices are described in a YAML file loaded
// at startup, not discovered or persisted at runtime. Each entry names the
// device's kind (the abstract class scripts request, e.g. "motion_sensor"),
// its input and output capabilities, and the protocol address updates and
// commands travel over.
//
// # Thread safety
//
// All Registry methods are safe for concurrent use. Lookups return deep
// copies, so callers can modify results freely.
package device
