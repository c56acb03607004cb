package avatar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/eventsub"
)

// Speech longer than this is cut before it reaches the provider; overlong
// utterances stall the renderer.
const maxSpeakRunes = 500

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

// Session is one avatar video session.
type Session struct {
	dialer Dialer
	target RenderTarget
	log    *slog.Logger

	mu       sync.Mutex
	state    State
	cause    error
	stream   Stream
	attached bool
	talking  bool

	states  eventsub.Hub[State]
	talkSub eventsub.Hub[bool]
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession builds an idle session. target may be nil when the video
// surface is not displayed.
func NewSession(dialer Dialer, target RenderTarget, opts ...Option) *Session {
	s := &Session{
		dialer: dialer,
		target: target,
		log:    slog.Default(),
		state:  StateIdle,
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

// Talking reports whether the avatar is currently speaking.
func (s *Session) Talking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.talking
}

// OnStateChange subscribes to state transitions.
func (s *Session) OnStateChange(fn func(State)) func() {
	return s.states.Subscribe(fn)
}

// OnTalking subscribes to the talking indicator.
func (s *Session) OnTalking(fn func(bool)) func() {
	return s.talkSub.Subscribe(fn)
}

// Connect opens the control stream and attaches the media surface as soon
// as it is available, from either the stream-ready event or the stream
// property, whichever surfaces first.
func (s *Session) Connect(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("avatar: connect from state %s", st)
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.states.Publish(StateConnecting)

	stream, err := s.dialer.Dial(ctx, creds)
	if err != nil {
		cause := &ConnectError{Cause: err}
		s.mu.Lock()
		failed := s.state == StateConnecting
		if failed {
			s.state = StateError
			s.cause = cause
		}
		s.mu.Unlock()
		// A Disconnect that raced the dial already published its own
		// terminal state; nothing changed here.
		if failed {
			s.states.Publish(StateError)
		}
		return cause
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Disconnected while dialing.
		s.mu.Unlock()
		stream.Close()
		return ErrNotConnected
	}
	s.stream = stream
	s.state = StateConnected
	s.mu.Unlock()
	s.states.Publish(StateConnected)

	// Property-side probe; the event-side probe runs in the pump.
	if ms := stream.StreamInfo(); ms != nil {
		s.attach(ms)
	}
	go s.pumpEvents(stream)
	return nil
}

// attach binds the media surface exactly once per session.
func (s *Session) attach(ms MediaStream) {
	s.mu.Lock()
	if s.attached || s.target == nil || s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.attached = true
	s.mu.Unlock()

	if err := s.target.Attach(ms); err != nil {
		s.log.Warn("avatar: render target attach failed", "stream", ms.ID(), "err", err)
	}
}

// Speak asks the avatar to voice text. Rejected with ErrNotConnected when
// the session is not connected; text is cut at 500 runes.
func (s *Session) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	stream := s.stream
	s.mu.Unlock()

	if runes := []rune(text); len(runes) > maxSpeakRunes {
		text = string(runes[:maxSpeakRunes])
	}
	return stream.Speak(ctx, text)
}

// Interrupt cuts the avatar off. A no-op unless the avatar is currently
// talking.
func (s *Session) Interrupt(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if !s.talking {
		s.mu.Unlock()
		return nil
	}
	stream := s.stream
	s.mu.Unlock()
	return stream.Interrupt(ctx)
}

// Disconnect ends the session: detaches the render target and closes the
// control stream. Idempotent, and safe while Connect is still dialing.
func (s *Session) Disconnect() {
	s.mu.Lock()
	switch s.state {
	case StateDisconnected, StateError:
		s.mu.Unlock()
		return
	case StateIdle, StateConnecting:
		s.state = StateDisconnected
		s.mu.Unlock()
		s.states.Publish(StateDisconnected)
		return
	}
	stream := s.stream
	detach := s.attached && s.target != nil
	s.stream = nil
	s.attached = false
	s.talking = false
	s.state = StateDisconnected
	s.mu.Unlock()

	if detach {
		s.target.Detach()
	}
	if stream != nil {
		stream.Close()
	}
	s.states.Publish(StateDisconnected)
}

func (s *Session) pumpEvents(stream Stream) {
	for ev := range stream.Events() {
		switch ev.Type {
		case EventStreamReady:
			ms := ev.Stream
			if ms == nil {
				ms = stream.StreamInfo()
			}
			if ms != nil {
				s.attach(ms)
			}
		case EventTalkingStarted:
			s.setTalking(true)
		case EventTalkingStopped:
			s.setTalking(false)
		case EventDisconnected:
			s.handleLost(ev.Err)
			return
		}
	}
}

func (s *Session) setTalking(talking bool) {
	s.mu.Lock()
	if s.talking == talking {
		s.mu.Unlock()
		return
	}
	s.talking = talking
	s.mu.Unlock()
	s.talkSub.Publish(talking)
}

func (s *Session) handleLost(err error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	cause := ErrStreamLost
	if err != nil {
		cause = fmt.Errorf("%w: %w", ErrStreamLost, err)
	}
	s.state = StateError
	s.cause = cause
	stream := s.stream
	detach := s.attached && s.target != nil
	s.stream = nil
	s.attached = false
	s.talking = false
	s.mu.Unlock()

	if detach {
		s.target.Detach()
	}
	if stream != nil {
		stream.Close()
	}
	s.log.Warn("avatar: stream lost", "err", err)
	s.states.Publish(StateError)
}
