// Package bridge contains the core scene-to-mute logic of scenemix.
//
// The bridge sits between two long-lived sessions: an event stream from the
// video switcher (OBS) and a control channel to the mixing console (XAir).
// When the switcher reports a scene change, the bridge computes the minimal
// set of mute/unmute commands that moves the console from its current state
// to the state the new scene wants, and submits them in order.
//
// # Architecture
//
//	┌─────────┐  scene events  ┌─────────────┐  mute commands  ┌─────────┐
//	│   OBS   │───────────────►│   Bridge    │────────────────►│  XAir   │
//	│ session │                │ (this pkg)  │                 │ session │
//	└─────────┘                └─────────────┘                 └─────────┘
//
// Three pieces make up the package:
//
//   - Reconcile: a pure function turning (new scene, scene map, known mixer
//     state) into an ordered action list. Unmutes always precede mutes so a
//     transition never passes through full silence.
//   - Supervisor: one per endpoint. Keeps a session dialled, retries with
//     bounded exponential backoff and jitter, and reports state transitions.
//     The two supervisors fail and recover independently of each other.
//   - Bridge: the single-threaded dispatch loop. All scene events and
//     session lifecycle events funnel into one channel, so mixer state is
//     only ever touched by one goroutine and events are processed strictly
//     in arrival order.
//
// # State ownership
//
// MixerState (the set of channels believed unmuted) and the active scene are
// owned by the Bridge run loop. Sessions communicate with the loop through
// events, never by mutating its state. When the mixer session drops, the
// state is marked unknown and the next scene change triggers a full resync
// instead of a diff.
//
// # Thread Safety
//
// Bridge and Supervisor methods are safe for concurrent use. Reconcile is a
// pure function and trivially safe.
package bridge
