package avatar_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/avatar"
)

type fakeSurface struct{ id string }

func (s *fakeSurface) ID() string { return s.id }

type fakeStream struct {
	mu         sync.Mutex
	spoken     []string
	interrupts int
	info       avatar.MediaStream
	events     chan avatar.Event
	closeOnce  sync.Once
	closed     atomic.Bool
}

func newFakeStream(info avatar.MediaStream) *fakeStream {
	return &fakeStream{info: info, events: make(chan avatar.Event, 16)}
}

func (s *fakeStream) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *fakeStream) Interrupt(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupts++
	return nil
}

func (s *fakeStream) StreamInfo() avatar.MediaStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *fakeStream) Events() <-chan avatar.Event { return s.events }

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.events)
	})
	return nil
}

func (s *fakeStream) spokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func (s *fakeStream) interruptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupts
}

type fakeDialer struct {
	stream *fakeStream
	err    error
	gate   chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, _ avatar.Credentials) (avatar.Stream, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakeTarget struct {
	mu       sync.Mutex
	attached []avatar.MediaStream
	detached int
}

func (t *fakeTarget) Attach(stream avatar.MediaStream) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attached = append(t.attached, stream)
	return nil
}

func (t *fakeTarget) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detached++
}

func (t *fakeTarget) attachCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attached)
}

func (t *fakeTarget) detachCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detached
}

func creds() avatar.Credentials {
	return avatar.Credentials{Token: "tok", AvatarID: "hugo"}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestAttachFromStreamProperty(t *testing.T) {
	surface := &fakeSurface{id: "surf-1"}
	stream := newFakeStream(surface)
	target := &fakeTarget{}
	s := avatar.NewSession(&fakeDialer{stream: stream}, target)

	if err := s.Connect(context.Background(), creds()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if n := target.attachCount(); n != 1 {
		t.Fatalf("attach count = %d, want 1", n)
	}

	// A late ready event for the same surface must not re-attach.
	stream.events <- avatar.Event{Type: avatar.EventStreamReady, Stream: surface}
	time.Sleep(20 * time.Millisecond)
	if n := target.attachCount(); n != 1 {
		t.Fatalf("attach count after ready event = %d, want 1", n)
	}
}

func TestAttachFromReadyEvent(t *testing.T) {
	stream := newFakeStream(nil)
	target := &fakeTarget{}
	s := avatar.NewSession(&fakeDialer{stream: stream}, target)

	if err := s.Connect(context.Background(), creds()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if n := target.attachCount(); n != 0 {
		t.Fatalf("attached before surface available: %d", n)
	}

	surface := &fakeSurface{id: "surf-2"}
	stream.events <- avatar.Event{Type: avatar.EventStreamReady, Stream: surface}
	waitFor(t, "attach", func() bool { return target.attachCount() == 1 })

	target.mu.Lock()
	got := target.attached[0]
	target.mu.Unlock()
	if got.ID() != "surf-2" {
		t.Fatalf("attached surface = %q", got.ID())
	}
}

func TestSpeakRequiresConnected(t *testing.T) {
	s := avatar.NewSession(&fakeDialer{stream: newFakeStream(nil)}, nil)
	if err := s.Speak(context.Background(), "hallo"); !errors.Is(err, avatar.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestSpeakTruncates(t *testing.T) {
	stream := newFakeStream(nil)
	s := avatar.NewSession(&fakeDialer{stream: stream}, nil)
	if err := s.Connect(context.Background(), creds()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	long := strings.Repeat("é", 600)
	if err := s.Speak(context.Background(), long); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	spoken := stream.spokenTexts()
	if len(spoken) != 1 {
		t.Fatalf("spoken %d texts", len(spoken))
	}
	if n := utf8.RuneCountInString(spoken[0]); n != 500 {
		t.Fatalf("spoken rune count = %d, want 500", n)
	}
}

func TestInterruptOnlyWhileTalking(t *testing.T) {
	stream := newFakeStream(nil)
	s := avatar.NewSession(&fakeDialer{stream: stream}, nil)
	if err := s.Connect(context.Background(), creds()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := s.Interrupt(context.Background()); err != nil {
		t.Fatalf("Interrupt while silent: %v", err)
	}
	if n := stream.interruptCount(); n != 0 {
		t.Fatalf("interrupt forwarded while silent: %d", n)
	}

	stream.events <- avatar.Event{Type: avatar.EventTalkingStarted}
	waitFor(t, "talking", s.Talking)

	if err := s.Interrupt(context.Background()); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if n := stream.interruptCount(); n != 1 {
		t.Fatalf("interrupt count = %d, want 1", n)
	}
}

func TestTalkingIndicator(t *testing.T) {
	stream := newFakeStream(nil)
	s := avatar.NewSession(&fakeDialer{stream: stream}, nil)
	if err := s.Connect(context.Background(), creds()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	updates := make(chan bool, 4)
	s.OnTalking(func(v bool) { updates <- v })

	stream.events <- avatar.Event{Type: avatar.EventTalkingStarted}
	stream.events <- avatar.Event{Type: avatar.EventTalkingStopped}

	for _, want := range []bool{true, false} {
		select {
		case got := <-updates:
			if got != want {
				t.Fatalf("talking update = %v, want %v", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("talking update not delivered")
		}
	}
}

func TestDisconnectDetachesAndIdempotent(t *testing.T) {
	surface := &fakeSurface{id: "surf-1"}
	stream := newFakeStream(surface)
	target := &fakeTarget{}
	s := avatar.NewSession(&fakeDialer{stream: stream}, target)
	if err := s.Connect(context.Background(), creds()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	s.Disconnect()
	s.Disconnect()

	if n := target.detachCount(); n != 1 {
		t.Fatalf("detach count = %d, want 1", n)
	}
	if !stream.closed.Load() {
		t.Fatal("stream not closed")
	}
	if s.State() != avatar.StateDisconnected {
		t.Fatalf("state = %s", s.State())
	}
}

func TestDisconnectDuringDial(t *testing.T) {
	gate := make(chan struct{})
	stream := newFakeStream(nil)
	dialer := &fakeDialer{stream: stream, gate: gate}
	s := avatar.NewSession(dialer, &fakeTarget{})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(context.Background(), creds()) }()

	waitFor(t, "connecting", func() bool { return s.State() == avatar.StateConnecting })
	s.Disconnect()
	close(gate)

	if err := <-errCh; !errors.Is(err, avatar.ErrNotConnected) {
		t.Fatalf("Connect returned %v, want ErrNotConnected", err)
	}
	if !stream.closed.Load() {
		t.Fatal("late stream not closed")
	}
	if s.State() != avatar.StateDisconnected {
		t.Fatalf("state = %s", s.State())
	}
}

func TestDisconnectDuringFailingDialStaysDisconnected(t *testing.T) {
	gate := make(chan struct{})
	dialer := &fakeDialer{err: errors.New("dial tcp: refused"), gate: gate}
	s := avatar.NewSession(dialer, &fakeTarget{})

	var mu sync.Mutex
	var states []avatar.State
	s.OnStateChange(func(st avatar.State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(context.Background(), creds()) }()

	waitFor(t, "connecting", func() bool { return s.State() == avatar.StateConnecting })
	s.Disconnect()
	close(gate)

	if err := <-errCh; err == nil {
		t.Fatal("Connect succeeded after failed dial")
	}
	if s.State() != avatar.StateDisconnected {
		t.Fatalf("state = %s, want disconnected", s.State())
	}
	mu.Lock()
	defer mu.Unlock()
	want := []avatar.State{avatar.StateConnecting, avatar.StateDisconnected}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Fatalf("states = %v, want %v (no error event after the disconnect won)", states, want)
	}
}

func TestProviderDisconnectEntersError(t *testing.T) {
	surface := &fakeSurface{id: "surf-1"}
	stream := newFakeStream(surface)
	target := &fakeTarget{}
	s := avatar.NewSession(&fakeDialer{stream: stream}, target)
	if err := s.Connect(context.Background(), creds()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	stream.events <- avatar.Event{Type: avatar.EventDisconnected, Err: errors.New("quota exceeded")}
	waitFor(t, "error state", func() bool { return s.State() == avatar.StateError })

	if !errors.Is(s.Err(), avatar.ErrStreamLost) {
		t.Fatalf("Err = %v, want ErrStreamLost", s.Err())
	}
	if n := target.detachCount(); n != 1 {
		t.Fatalf("detach count = %d, want 1", n)
	}
	if err := s.Speak(context.Background(), "te laat"); !errors.Is(err, avatar.ErrNotConnected) {
		t.Fatalf("Speak after loss = %v, want ErrNotConnected", err)
	}
}
