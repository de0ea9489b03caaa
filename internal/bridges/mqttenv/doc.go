// Package mqttenv connects the monitor engine to devices bridged over the
// MQTT broker.
//
// # Architecture
//
// The environment sits between running monitors and protocol bridges:
//
//	┌─────────────────┐          ┌─────────────────┐          ┌──────────┐
//	│    Monitor      │  Watch/  │   Environment   │   MQTT   │  Bridge  │
//	│   Executions    │◄────────►│   (this pkg)    │◄────────►│ Daemons  │
//	└─────────────────┘   Send   └─────────────────┘          └──────────┘
//
// # Key Responsibilities
//
//   - Subscribe to bridge state topics for watched device inputs
//   - Dispatch decoded value updates to watch callbacks
//   - Deduplicate subscriptions when several monitors watch one device
//   - Publish command messages for monitor actions
//
// # Topics and Payloads
//
// State updates arrive on hearth/state/{protocol}/{address} as JSON:
//
//	{"capability": "temperature", "value": {"type": "num", "num": 21.5}}
//
// Commands are published to hearth/command/{protocol}/{address}:
//
//	{"id": "<uuid>", "action": "play_sound", "args": {"volume": {"type": "num", "num": 80}}}
//
// Each command carries a unique ID so bridges can acknowledge on the ack
// topic without ambiguity.
//
// # Usage
//
//	env := mqttenv.New(client, binding, mqttenv.WithQoS(1))
//	w, err := env.Watch("motion-01", "presence", value.EqBool(true), onChange)
//	...
//	w.Close()
package mqttenv
