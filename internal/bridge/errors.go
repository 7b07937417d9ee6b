package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrMixerUnavailable is returned by action submission when no mixer
	// session is currently established.
	ErrMixerUnavailable = errors.New("bridge: mixer session unavailable")
)
