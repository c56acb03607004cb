package avatar

import "context"

// Credentials bootstrap an avatar control stream: a provider access token
// plus the persona to render.
type Credentials struct {
	Token    string
	AvatarID string
}

// MediaStream is the avatar's media surface. The concrete type carries
// whatever the render target needs to play it.
type MediaStream interface {
	ID() string
}

// RenderTarget displays the avatar's media surface.
type RenderTarget interface {
	// Attach binds the surface for playback. Called at most once per
	// session.
	Attach(stream MediaStream) error

	// Detach releases the surface. Safe to call without a prior Attach.
	Detach()
}

// EventType discriminates control stream events.
type EventType int

const (
	// EventStreamReady reports that the media surface is available. The
	// surface may ride on the event or be exposed via StreamInfo.
	EventStreamReady EventType = iota

	// EventTalkingStarted reports that the avatar began speaking.
	EventTalkingStarted

	// EventTalkingStopped reports that the avatar finished or was
	// interrupted.
	EventTalkingStopped

	// EventDisconnected reports that the provider ended the stream. Err is
	// nil for a deliberate local close.
	EventDisconnected
)

// Event is one control stream event.
type Event struct {
	Type   EventType
	Stream MediaStream
	Err    error
}

// Stream is an open avatar control stream.
type Stream interface {
	// Speak asks the avatar to voice text.
	Speak(ctx context.Context, text string) error

	// Interrupt cuts the avatar off mid-utterance.
	Interrupt(ctx context.Context) error

	// StreamInfo returns the media surface if the provider exposes it as a
	// stream property, nil before it is known.
	StreamInfo() MediaStream

	// Events delivers control stream events. The channel is closed by
	// the stream's read loop after EventDisconnected or once a local
	// Close unblocks it; only that loop ever closes it.
	Events() <-chan Event

	Close() error
}

// Dialer opens avatar control streams.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Stream, error)
}
