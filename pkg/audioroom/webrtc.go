package audioroom

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// signalMessage is one frame on the websocket signaling channel.
type signalMessage struct {
	Type        string `json:"type"`
	SDP         string `json:"sdp,omitempty"`
	Participant string `json:"participant,omitempty"`
	Local       bool   `json:"local,omitempty"`
	Remote      bool   `json:"remote,omitempty"`
}

const (
	sigJoin     = "join"
	sigOffer    = "offer"
	sigAnswer   = "answer"
	sigSpeakers = "speakers"
	sigLeave    = "leave"
	sigBye      = "bye"
)

// WebRTCTransport dials rooms over WebRTC with a websocket signaling
// channel. The credential token is presented as a bearer header on the
// signaling dial.
type WebRTCTransport struct {
	dialer     *websocket.Dialer
	iceServers []webrtc.ICEServer
	log        *slog.Logger
}

// TransportOption configures a WebRTCTransport.
type TransportOption func(*WebRTCTransport)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) TransportOption {
	return func(t *WebRTCTransport) { t.dialer = d }
}

// WithICEServers sets the STUN/TURN servers offered to the peer connection.
func WithICEServers(servers []webrtc.ICEServer) TransportOption {
	return func(t *WebRTCTransport) { t.iceServers = servers }
}

// WithTransportLogger sets the logger. Defaults to slog.Default.
func WithTransportLogger(log *slog.Logger) TransportOption {
	return func(t *WebRTCTransport) { t.log = log }
}

// NewWebRTCTransport builds the production room transport.
func NewWebRTCTransport(opts ...TransportOption) *WebRTCTransport {
	t := &WebRTCTransport{
		dialer: websocket.DefaultDialer,
		iceServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect dials the signaling channel, performs the offer/answer exchange
// and returns the established connection.
func (t *WebRTCTransport) Connect(ctx context.Context, creds Credentials) (Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.Token)
	ws, resp, err := t.dialer.DialContext(ctx, creds.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("signaling dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("signaling dial: %w", err)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: t.iceServers})
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		ws.Close()
		return nil, fmt.Errorf("add audio transceiver: %w", err)
	}

	c := &webrtcConn{
		ws:     ws,
		pc:     pc,
		log:    t.log,
		events: make(chan Event, 32),
		closed: make(chan struct{}),
	}

	pc.OnTrack(func(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if tr.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		c.emit(Event{Type: EventTrackSubscribed, Track: &remoteTrack{tr: tr}})
	})
	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		switch st {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			c.fail(fmt.Errorf("peer connection %s", st))
		}
	})

	if err := c.handshake(ctx); err != nil {
		pc.Close()
		ws.Close()
		return nil, err
	}

	go c.signalLoop()
	return c, nil
}

type webrtcConn struct {
	ws  *websocket.Conn
	pc  *webrtc.PeerConnection
	log *slog.Logger

	writeMu sync.Mutex
	events  chan Event

	closeOnce sync.Once
	closed    chan struct{}
	eventOnce sync.Once
}

// handshake joins the room and exchanges the SDP offer/answer over the
// signaling channel.
func (c *webrtcConn) handshake(ctx context.Context) error {
	if err := c.writeSignal(signalMessage{Type: sigJoin, Participant: uuid.NewString()}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.writeSignal(signalMessage{Type: sigOffer, SDP: c.pc.LocalDescription().SDP}); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetReadDeadline(deadline)
	}
	for {
		var msg signalMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read answer: %w", err)
		}
		if msg.Type != sigAnswer {
			continue
		}
		c.ws.SetReadDeadline(time.Time{})
		return c.pc.SetRemoteDescription(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  msg.SDP,
		})
	}
}

// signalLoop forwards room events arriving on the signaling channel.
func (c *webrtcConn) signalLoop() {
	for {
		var msg signalMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			select {
			case <-c.closed:
			default:
				c.fail(fmt.Errorf("signaling read: %w", err))
			}
			return
		}
		switch msg.Type {
		case sigSpeakers:
			c.emit(Event{Type: EventActiveSpeakers, Speakers: SpeakerUpdate{
				LocalSpeaking:  msg.Local,
				RemoteSpeaking: msg.Remote,
			}})
		case sigLeave:
			c.emit(Event{Type: EventTrackUnsubscribed})
		case sigBye:
			c.fail(fmt.Errorf("room closed by server"))
			return
		default:
			c.log.Debug("audioroom: unknown signal", "type", msg.Type)
		}
	}
}

func (c *webrtcConn) writeSignal(msg signalMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

// emit delivers an event unless the connection is shutting down. The
// events channel is never closed: emissions come from the signal loop and
// from pion callback goroutines, so no single sender could close it safely.
// EventClosed is the terminal frame instead.
func (c *webrtcConn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.closed:
	}
}

// fail reports a mid-session transport loss exactly once, then shuts the
// connection down. The terminal event is sent before closed is closed so
// its delivery cannot be dropped.
func (c *webrtcConn) fail(err error) {
	c.eventOnce.Do(func() {
		select {
		case c.events <- Event{Type: EventClosed, Err: err}:
		case <-c.closed:
		}
	})
	c.shutdown()
}

func (c *webrtcConn) Publish(track MicrophoneTrack) (Publication, error) {
	local, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, "audio", "microphone")
	if err != nil {
		return nil, fmt.Errorf("new local track: %w", err)
	}
	sender, err := c.pc.AddTrack(local)
	if err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}

	pub := &webrtcPublication{conn: c, sender: sender, stop: make(chan struct{})}
	pub.enabled.Store(true)

	// Drain sender RTCP so interceptors keep running.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-pub.stop:
				return
			case <-c.closed:
				return
			default:
			}
			sample, err := track.ReadSample()
			if err != nil {
				return
			}
			// Keep reading while muted so capture timing stays intact,
			// but forward nothing.
			if !pub.enabled.Load() {
				continue
			}
			if err := local.WriteSample(sample); err != nil {
				return
			}
		}
	}()
	return pub, nil
}

func (c *webrtcConn) Events() <-chan Event { return c.events }

func (c *webrtcConn) Close() error {
	// Deliver the terminal event so a running event pump winds down. The
	// send is non-blocking: on the connect-failure path no pump exists
	// and nothing drains the buffer.
	c.eventOnce.Do(func() {
		select {
		case c.events <- Event{Type: EventClosed}:
		default:
		}
	})
	return c.shutdown()
}

// shutdown releases the transport exactly once. Safe from both the local
// Close path and the failure path.
func (c *webrtcConn) shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeSignal(signalMessage{Type: sigLeave})
		err = c.pc.Close()
		if werr := c.ws.Close(); err == nil {
			err = werr
		}
	})
	return err
}

type webrtcPublication struct {
	conn    *webrtcConn
	sender  *webrtc.RTPSender
	enabled atomic.Bool
	once    sync.Once
	stop    chan struct{}
}

func (p *webrtcPublication) SetEnabled(enabled bool) { p.enabled.Store(enabled) }

func (p *webrtcPublication) Stop() error {
	var err error
	p.once.Do(func() {
		close(p.stop)
		err = p.conn.pc.RemoveTrack(p.sender)
	})
	return err
}

type remoteTrack struct {
	tr *webrtc.TrackRemote
}

func (r *remoteTrack) ID() string { return r.tr.ID() }

func (r *remoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := r.tr.ReadRTP()
	return pkt, err
}
