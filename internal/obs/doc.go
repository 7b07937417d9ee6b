// Package obs implements a client for the obs-websocket 5.x protocol.
//
// The client covers the slice of the protocol this service needs: the
// Hello/Identify handshake (with challenge-response authentication when the
// server requires it), program-scene-change and exit events, and a small
// request path used to fetch version details for the startup banner.
//
// # Session model
//
// A Client is one logical session. Connect dials the websocket, completes
// the handshake and starts a read loop; event callbacks registered in the
// Config fire from that loop, in the order the server sent them. When the
// connection drops the cause is delivered on Done and the Client is
// finished. Reconnecting means calling Connect again; callers wanting a
// persistent session wrap Connect in a supervisor.
//
// # Event subscription
//
// Identify subscribes to the General and Scenes event groups only. That is
// enough for CurrentProgramSceneChanged (the scene feed) and ExitStarted
// (the server announcing shutdown); everything else stays off the wire.
package obs
