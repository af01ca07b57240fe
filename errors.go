package ayrelink

import "errors"

var (
	// ErrInvalidInput is returned when an input number is outside 1..6.
	ErrInvalidInput = errors.New("ayrelink: invalid input")

	// ErrInvalidState is returned for an operating-state code other than N, M or F.
	ErrInvalidState = errors.New("ayrelink: invalid operating state")

	// ErrUnsupported is returned when no profile exists for the requested model.
	ErrUnsupported = errors.New("ayrelink: unsupported device model")

	// ErrUnconfigured is returned when a session has no serial port to open.
	ErrUnconfigured = errors.New("ayrelink: no serial port configured")

	// ErrClosed is returned when writing to a session that is not open.
	ErrClosed = errors.New("ayrelink: session closed")
)

// ErrUnknownCommand is returned by Encoder.Command for an unrecognised verb.
var ErrUnknownCommand = errors.New("ayrelink: unknown command")
