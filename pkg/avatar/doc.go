// Package avatar drives the rendered video persona: a control stream that
// accepts speak and interrupt commands and a media surface that gets
// attached to a render target as soon as it is available.
//
// Providers differ in how they hand over the media surface: some deliver
// it inside the stream-ready event, others expose it as a property on the
// control stream. The session probes both and attaches whichever surface
// shows up first, exactly once.
//
// Like the audio room, a Session is single-use: after Disconnect or a
// provider-side stream loss the instance stays in its terminal state.
package avatar
