// Package audioroom manages the live audio call with the simulated
// counterpart: one room connection that publishes the local microphone and
// plays back the remote participant's audio.
//
// A Session walks idle -> connecting -> connected -> (error | disconnected).
// The terminal states are final for the instance; reconnecting means
// creating a new Session. Connect acquires the microphone, opens the room
// and publishes the local track in that order, and releases every partial
// resource when a later step fails, so a failed connect never leaves a
// half-open connection.
//
// The room transport is abstracted behind the Transport interface; the
// production implementation in this package speaks WebRTC with a websocket
// signaling channel, and tests substitute in-process fakes.
package audioroom
