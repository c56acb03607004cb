package avatar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsMessage is one frame on the avatar control channel.
type wsMessage struct {
	Type     string `json:"type"`
	AvatarID string `json:"avatarId,omitempty"`
	Text     string `json:"text,omitempty"`
	TaskID   string `json:"taskId,omitempty"`
	StreamID string `json:"streamId,omitempty"`
	URL      string `json:"url,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

const (
	msgStart              = "start"
	msgSession            = "session"
	msgSpeak              = "speak"
	msgInterrupt          = "interrupt"
	msgStop               = "stop"
	msgStreamReady        = "stream_ready"
	msgStartTalking       = "avatar_start_talking"
	msgStopTalking        = "avatar_stop_talking"
	msgStreamDisconnected = "stream_disconnected"
)

// RemoteStream is the provider's media surface: a stream id plus the
// playback URL.
type RemoteStream struct {
	StreamID string
	PlayURL  string
}

func (s *RemoteStream) ID() string { return s.StreamID }

// WebSocketDialer opens avatar control streams over a websocket. The
// credential token is presented as a bearer header on the dial and the
// persona is requested with the start message.
type WebSocketDialer struct {
	url    string
	dialer *websocket.Dialer
	log    *slog.Logger
}

// DialerOption configures a WebSocketDialer.
type DialerOption func(*WebSocketDialer)

// WithWSDialer overrides the websocket dialer.
func WithWSDialer(d *websocket.Dialer) DialerOption {
	return func(w *WebSocketDialer) { w.dialer = d }
}

// WithDialerLogger sets the logger. Defaults to slog.Default.
func WithDialerLogger(log *slog.Logger) DialerOption {
	return func(w *WebSocketDialer) { w.log = log }
}

// NewWebSocketDialer builds a dialer for the control endpoint at url.
func NewWebSocketDialer(url string, opts ...DialerOption) *WebSocketDialer {
	w := &WebSocketDialer{
		url:    url,
		dialer: websocket.DefaultDialer,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dial connects, requests the persona and returns the control stream.
func (w *WebSocketDialer) Dial(ctx context.Context, creds Credentials) (Stream, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.Token)
	ws, resp, err := w.dialer.DialContext(ctx, w.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("avatar dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("avatar dial: %w", err)
	}

	st := &wsStream{
		ws:     ws,
		log:    w.log,
		events: make(chan Event, 16),
		closed: make(chan struct{}),
	}
	if err := st.write(wsMessage{Type: msgStart, AvatarID: creds.AvatarID}); err != nil {
		ws.Close()
		return nil, fmt.Errorf("avatar start: %w", err)
	}
	go st.readLoop()
	return st, nil
}

type wsStream struct {
	ws  *websocket.Conn
	log *slog.Logger

	writeMu sync.Mutex
	events  chan Event

	mu   sync.Mutex
	info *RemoteStream

	closeOnce sync.Once
	eventOnce sync.Once
	closed    chan struct{}
}

func (s *wsStream) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(wsMessage{Type: msgSpeak, Text: text, TaskID: uuid.NewString()})
}

func (s *wsStream) Interrupt(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(wsMessage{Type: msgInterrupt})
}

func (s *wsStream) StreamInfo() MediaStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return nil
	}
	return s.info
}

func (s *wsStream) Events() <-chan Event { return s.events }

// Close stops the stream. It only signals: the events channel stays owned
// by readLoop, which closes it once the websocket read unblocks.
func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.write(wsMessage{Type: msgStop})
		err = s.ws.Close()
	})
	return err
}

func (s *wsStream) write(msg wsMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(msg)
}

func (s *wsStream) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.closed:
	}
}

// finish reports the stream end and closes the event channel. Only readLoop
// may call it: readLoop is the sole sender on events, so closing here can
// never race an in-flight send.
func (s *wsStream) finish(err error) {
	s.eventOnce.Do(func() {
		select {
		case <-s.closed:
			// Closed locally; the consumer asked for the teardown and
			// gets no disconnect event.
		default:
			select {
			case s.events <- Event{Type: EventDisconnected, Err: err}:
			case <-s.closed:
			}
		}
		close(s.events)
	})
}

func (s *wsStream) readLoop() {
	for {
		var msg wsMessage
		if err := s.ws.ReadJSON(&msg); err != nil {
			s.finish(err)
			return
		}
		switch msg.Type {
		case msgSession:
			// Property surface: some deployments announce the stream on
			// the session ack without a ready event.
			s.setInfo(msg)
		case msgStreamReady:
			s.setInfo(msg)
			s.emit(Event{Type: EventStreamReady, Stream: s.StreamInfo()})
		case msgStartTalking:
			s.emit(Event{Type: EventTalkingStarted})
		case msgStopTalking:
			s.emit(Event{Type: EventTalkingStopped})
		case msgStreamDisconnected:
			s.finish(fmt.Errorf("provider disconnected: %s", msg.Reason))
			return
		default:
			s.log.Debug("avatar: unknown control message", "type", msg.Type)
		}
	}
}

func (s *wsStream) setInfo(msg wsMessage) {
	if msg.StreamID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		s.info = &RemoteStream{StreamID: msg.StreamID, PlayURL: msg.URL}
	}
}
