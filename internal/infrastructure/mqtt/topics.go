package mqtt

import "fmt"

// Topic prefixes for the Hearth MQTT hierarchy.
//
// Bridge topics use the flat scheme: hearth/{category}/{protocol}/{address}.
// Addresses may themselves contain slashes (room/device), so subscribers
// matching a whole category need a multi-level wildcard.
const (
	// TopicPrefixBridge is the base for all bridge traffic.
	TopicPrefixBridge = "hearth"

	// TopicPrefixSystem is the base for gateway lifecycle topics.
	TopicPrefixSystem = "hearth/system"
)

// Topics provides builders for Hearth MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("mqtt", "hallway/motion-01")
//	// Returns: "hearth/state/mqtt/hallway/motion-01"
type Topics struct{}

// BridgeState returns the topic a bridge publishes device readings on.
//
// Example: hearth/state/mqtt/hallway/motion-01
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic a bridge accepts device commands on.
//
// Example: hearth/command/mqtt/garage/siren-01
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// SystemStatus returns the gateway online/offline status topic. The LWT
// and the graceful shutdown message are both published here, retained.
//
// Example: hearth/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
