package mqttenv

import "errors"

// Domain errors for the MQTT environment package.
var (
	// ErrUnknownDevice is returned when a watched or commanded device has
	// no route in the inventory.
	ErrUnknownDevice = errors.New("mqttenv: unknown device")

	// ErrSubscribeFailed is returned when the broker subscription for a
	// watch cannot be established.
	ErrSubscribeFailed = errors.New("mqttenv: subscribe failed")

	// ErrPublishFailed is returned when a command cannot be published.
	ErrPublishFailed = errors.New("mqttenv: publish failed")

	// ErrClosed is returned when the environment has been shut down.
	ErrClosed = errors.New("mqttenv: environment closed")

	// ErrInvalidPayload is returned when a state message cannot be decoded.
	ErrInvalidPayload = errors.New("mqttenv: invalid state payload")
)
