package mixer

import "errors"

// Domain errors for the mixer package.
var (
	// ErrConnectionFailed is returned when the initial handshake with the
	// console fails.
	ErrConnectionFailed = errors.New("mixer: connection failed")

	// ErrNotConnected is returned when a command is issued on a closed or
	// lost session.
	ErrNotConnected = errors.New("mixer: not connected")

	// ErrCommandFailed is returned when a control command cannot be
	// delivered.
	ErrCommandFailed = errors.New("mixer: command failed")

	// ErrProbeTimeout signals that the console stopped answering liveness
	// probes and the session is considered lost.
	ErrProbeTimeout = errors.New("mixer: console stopped responding")

	// ErrMalformedPacket is returned when an OSC packet cannot be decoded.
	ErrMalformedPacket = errors.New("mixer: malformed OSC packet")

	// ErrUnknownKind is returned for a mixer kind this package does not
	// know the channel layout of.
	ErrUnknownKind = errors.New("mixer: unknown mixer kind")

	// ErrInvalidChannel is returned when a channel number is outside the
	// console's strip range.
	ErrInvalidChannel = errors.New("mixer: invalid channel")
)
