package value

import "errors"

// Domain errors for the value package.
// Use errors.Is() to check for these in calling code.
var (
	// ErrUnknownKind is returned when encoding or decoding a value with an
	// unrecognised variant tag.
	ErrUnknownKind = errors.New("value: unknown kind")

	// ErrMalformedValue is returned when a wire payload does not carry the
	// field its tag promises.
	ErrMalformedValue = errors.New("value: malformed payload")
)
