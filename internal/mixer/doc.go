// Package mixer provides a control client for Behringer XAir and X32
// digital mixing consoles.
//
// The consoles speak OSC (Open Sound Control) over UDP. This package
// implements the small slice of the protocol scenemix needs:
//
//   - /xinfo handshake on connect (returns console ip, name, model and
//     firmware) and as a periodic liveness probe
//   - /xremote keepalive so the console keeps talking to us
//   - /ch/NN/mix/on to mute and unmute individual channel strips
//
// # Liveness
//
// UDP has no connection state, so loss is detected actively: the client
// probes the console with /xinfo on an interval, and declares the session
// lost when several consecutive probes go unanswered. The loss is reported
// on Done; reconnection policy belongs to the caller (the bridge package's
// Supervisor redials).
//
// # Mute semantics
//
// The console's native parameter is "on": /ch/01/mix/on with argument 1
// means the channel is audible, 0 means muted. SetChannelMute takes the
// mute flag and inverts it at the wire boundary.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use.
package mixer
