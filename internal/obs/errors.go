package obs

import "errors"

var (
	// ErrConnectionFailed indicates the websocket dial or handshake failed.
	ErrConnectionFailed = errors.New("obs: connection failed")

	// ErrAuthFailed indicates the server rejected our credentials, or
	// requires a password we were not given.
	ErrAuthFailed = errors.New("obs: authentication failed")

	// ErrProtocol indicates the server sent something the handshake or
	// request path could not make sense of.
	ErrProtocol = errors.New("obs: protocol error")

	// ErrRequestFailed indicates the server answered a request with a
	// non-success status.
	ErrRequestFailed = errors.New("obs: request failed")

	// ErrNotConnected indicates the session has already been closed or lost.
	ErrNotConnected = errors.New("obs: not connected")
)
