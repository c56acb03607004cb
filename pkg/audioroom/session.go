package audioroom

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/eventsub"
)

// State is the session connection state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateError
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one audio call. It is single-use: after Disconnect or a
// transport loss the instance stays in its terminal state.
type Session struct {
	transport Transport
	mic       MicrophoneSource
	sink      AudioSink
	log       *slog.Logger

	mu         sync.Mutex
	state      State
	cause      error
	conn       Conn
	micTrack   MicrophoneTrack
	pub        Publication
	muted      bool
	speakers   SpeakerUpdate
	remoteStop chan struct{}
	sinkClosed bool

	states     eventsub.Hub[State]
	speakerSub eventsub.Hub[SpeakerUpdate]
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession builds an idle session. sink may be nil when remote playback
// is not wanted.
func NewSession(transport Transport, mic MicrophoneSource, sink AudioSink, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		mic:       mic,
		sink:      sink,
		log:       slog.Default(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal cause when the session is in the error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Speakers returns the latest speaking indicator.
func (s *Session) Speakers() SpeakerUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakers
}

// OnStateChange subscribes to state transitions. The returned function
// unsubscribes.
func (s *Session) OnStateChange(fn func(State)) func() {
	return s.states.Subscribe(fn)
}

// OnSpeakers subscribes to speaking indicator updates.
func (s *Session) OnSpeakers(fn func(SpeakerUpdate)) func() {
	return s.speakerSub.Subscribe(fn)
}

// Connect acquires the microphone, dials the room and publishes the local
// track. On failure every partially acquired resource is released in
// reverse order and the session lands in the error state with a typed
// cause: *PermissionError, *ConnectError or *PublishError.
func (s *Session) Connect(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("audioroom: connect from state %s", st)
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.states.Publish(StateConnecting)

	micTrack, err := s.mic.Open(ctx)
	if err != nil {
		return s.failConnect(&PermissionError{Cause: err})
	}

	conn, err := s.transport.Connect(ctx, creds)
	if err != nil {
		micTrack.Close()
		return s.failConnect(&ConnectError{Cause: err})
	}

	pub, err := conn.Publish(micTrack)
	if err != nil {
		conn.Close()
		micTrack.Close()
		return s.failConnect(&PublishError{Cause: err})
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Disconnected while the connect steps were still running.
		s.mu.Unlock()
		pub.Stop()
		conn.Close()
		micTrack.Close()
		return ErrMediaDisconnected
	}
	s.conn = conn
	s.micTrack = micTrack
	s.pub = pub
	if s.muted {
		pub.SetEnabled(false)
	}
	s.state = StateConnected
	s.mu.Unlock()

	s.states.Publish(StateConnected)
	go s.pumpEvents(conn)
	return nil
}

func (s *Session) failConnect(cause error) error {
	s.mu.Lock()
	failed := s.state == StateConnecting
	if failed {
		s.state = StateError
		s.cause = cause
	}
	s.mu.Unlock()
	// A Disconnect that raced the connect already published its own
	// terminal state; nothing changed here.
	if failed {
		s.states.Publish(StateError)
	}
	return cause
}

// SetMuted toggles the published microphone track. Idempotent; setting the
// current value is a no-op. Muting keeps the track published but stops
// forwarding audio, so unmute is instant.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.muted == muted {
		return
	}
	s.muted = muted
	if s.pub != nil {
		s.pub.SetEnabled(!muted)
	}
}

// Muted reports the current mute flag.
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Disconnect tears the session down: stops playback, unpublishes the
// microphone and closes the room connection. Idempotent, and safe to call
// while Connect is still running; the session ends disconnected either way.
func (s *Session) Disconnect() {
	s.mu.Lock()
	switch s.state {
	case StateDisconnected, StateError:
		s.mu.Unlock()
		return
	case StateIdle:
		s.state = StateDisconnected
		s.mu.Unlock()
		s.states.Publish(StateDisconnected)
		return
	}
	conn, micTrack, pub := s.conn, s.micTrack, s.pub
	stop := s.remoteStop
	closeSink := s.sink != nil && !s.sinkClosed
	s.conn, s.micTrack, s.pub, s.remoteStop = nil, nil, nil, nil
	s.sinkClosed = true
	s.state = StateDisconnected
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if closeSink {
		s.sink.Close()
	}
	if pub != nil {
		pub.Stop()
	}
	if micTrack != nil {
		micTrack.Close()
	}
	if conn != nil {
		conn.Close()
	}
	s.states.Publish(StateDisconnected)
}

func (s *Session) pumpEvents(conn Conn) {
	for ev := range conn.Events() {
		switch ev.Type {
		case EventTrackSubscribed:
			s.attachRemote(ev.Track)
		case EventTrackUnsubscribed:
			s.detachRemote()
		case EventActiveSpeakers:
			s.mu.Lock()
			s.speakers = ev.Speakers
			s.mu.Unlock()
			s.speakerSub.Publish(ev.Speakers)
		case EventClosed:
			s.handleClosed(ev.Err)
			return
		}
	}
}

// attachRemote starts forwarding the remote track to the sink.
func (s *Session) attachRemote(track RemoteTrack) {
	s.mu.Lock()
	if s.state != StateConnected || s.sink == nil || s.sinkClosed {
		s.mu.Unlock()
		return
	}
	if s.remoteStop != nil {
		close(s.remoteStop)
	}
	stop := make(chan struct{})
	s.remoteStop = stop
	sink := s.sink
	s.mu.Unlock()

	s.log.Debug("audioroom: remote track subscribed", "track", track.ID())
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			pkt, err := track.ReadRTP()
			if err != nil {
				return
			}
			if err := sink.WriteRTP(pkt); err != nil {
				return
			}
		}
	}()
}

// detachRemote stops forwarding and releases playback.
func (s *Session) detachRemote() {
	s.mu.Lock()
	stop := s.remoteStop
	s.remoteStop = nil
	closeSink := s.sink != nil && !s.sinkClosed
	s.sinkClosed = s.sinkClosed || closeSink
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if closeSink {
		s.sink.Close()
	}
}

func (s *Session) handleClosed(err error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	cause := ErrMediaDisconnected
	if err != nil {
		cause = fmt.Errorf("%w: %w", ErrMediaDisconnected, err)
	}
	s.state = StateError
	s.cause = cause
	conn, micTrack, pub := s.conn, s.micTrack, s.pub
	stop := s.remoteStop
	closeSink := s.sink != nil && !s.sinkClosed
	s.conn, s.micTrack, s.pub, s.remoteStop = nil, nil, nil, nil
	s.sinkClosed = true
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if closeSink {
		s.sink.Close()
	}
	if pub != nil {
		pub.Stop()
	}
	if micTrack != nil {
		micTrack.Close()
	}
	if conn != nil {
		conn.Close()
	}
	s.log.Warn("audioroom: transport closed mid-session", "err", err)
	s.states.Publish(StateError)
}
