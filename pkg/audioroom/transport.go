package audioroom

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media"
)

// Credentials bootstrap a room connection: the transport URL plus a
// backend-issued access token.
type Credentials struct {
	URL   string
	Token string
}

// MicrophoneSource acquires the local capture device. Opening may prompt
// the user for permission and fails when it is denied.
type MicrophoneSource interface {
	Open(ctx context.Context) (MicrophoneTrack, error)
}

// MicrophoneTrack is an open microphone capture track producing encoded
// audio samples.
type MicrophoneTrack interface {
	// ReadSample blocks until the next audio sample is captured.
	ReadSample() (media.Sample, error)
	Close() error
}

// RemoteTrack is the remote participant's inbound audio.
type RemoteTrack interface {
	ID() string
	ReadRTP() (*rtp.Packet, error)
}

// AudioSink plays back remote audio. The session closes the sink when
// playback ends (track unsubscribed or session disconnected).
type AudioSink interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

// Publication is the published local microphone track.
type Publication interface {
	// SetEnabled toggles whether captured audio is forwarded to the room.
	// The change takes effect synchronously.
	SetEnabled(enabled bool)

	// Stop unpublishes the track.
	Stop() error
}

// EventType discriminates room transport events.
type EventType int

const (
	// EventTrackSubscribed reports a new remote audio track.
	EventTrackSubscribed EventType = iota

	// EventTrackUnsubscribed reports that the remote track went away.
	EventTrackUnsubscribed

	// EventActiveSpeakers reports who is currently speaking.
	EventActiveSpeakers

	// EventClosed reports that the transport terminated. Err is nil for a
	// deliberate local close and non-nil for a mid-session loss.
	EventClosed
)

// SpeakerUpdate is the derived speaking indicator for both participants.
// Purely observational; it never drives connection logic.
type SpeakerUpdate struct {
	LocalSpeaking  bool
	RemoteSpeaking bool
}

// Event is one room transport event.
type Event struct {
	Type     EventType
	Track    RemoteTrack
	Speakers SpeakerUpdate
	Err      error
}

// Conn is an established room connection.
type Conn interface {
	// Publish starts sending the local microphone track.
	Publish(track MicrophoneTrack) (Publication, error)

	// Events delivers transport events. EventClosed is the terminal
	// event; implementations may close the channel afterwards but are
	// not required to.
	Events() <-chan Event

	Close() error
}

// Transport dials room connections. Implementations must not retain creds
// beyond the dial.
type Transport interface {
	Connect(ctx context.Context, creds Credentials) (Conn, error)
}
