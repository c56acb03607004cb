package hugoapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// StreamCallbacks receive the decoded stream. The same shape is used for the
// streaming path and the blocking fallback: a fallback reply arrives as one
// OnToken call followed by OnDone.
type StreamCallbacks struct {
	// OnSession receives the backend conversation id, once at the head of
	// the stream.
	OnSession func(id string)

	// OnToken receives text fragments in exact arrival order.
	OnToken func(token string)

	// OnDone signals successful completion, with trailing metadata when
	// the backend sent any.
	OnDone func(meta *DoneMeta)

	// OnError reports a terminal stream failure. After OnError no other
	// callback fires.
	OnError func(err error)
}

// DoneMeta is trailing metadata attached to the done frame.
type DoneMeta struct {
	Onboarding *OnboardingStatus
	Evaluation json.RawMessage
}

// Handle controls one in-flight stream.
type Handle struct {
	cancelled atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// Cancel aborts the stream. After Cancel no further callbacks fire; frames
// still arriving on the transport are drained and discarded.
func (h *Handle) Cancel() {
	if h.cancelled.CompareAndSwap(false, true) {
		h.cancel()
	}
}

// Done is closed when the stream has fully terminated and its transport
// resources are released.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the terminal error, if any, once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// deliver invokes fn unless the handle was cancelled.
func (h *Handle) deliver(fn func()) {
	if h.cancelled.Load() {
		return
	}
	fn()
}

// fail records err and reports it through OnError.
func (h *Handle) fail(cb StreamCallbacks, err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	h.deliver(func() {
		if cb.OnError != nil {
			cb.OnError(err)
		}
	})
}

// fallbackResult is what a blocking fallback request produced.
type fallbackResult struct {
	SessionID string
	Text      string
	Meta      *DoneMeta
}

type fallbackFunc func(ctx context.Context) (*fallbackResult, error)

// StartStream creates a session over the streaming endpoint. The session
// frame at the head of the stream carries the new conversation id.
func (c *Client) StartStream(ctx context.Context, params SessionParams, cb StreamCallbacks) (*Handle, error) {
	fallback := func(ctx context.Context) (*fallbackResult, error) {
		sess, err := c.CreateSession(ctx, params)
		if err != nil {
			return nil, err
		}
		text := sess.Message
		if text == "" {
			text = sess.InitialMessage
		}
		return &fallbackResult{
			SessionID: sess.ID,
			Text:      text,
			Meta:      &DoneMeta{Onboarding: sess.Onboarding},
		}, nil
	}
	return c.openStream(ctx, "/api/v2/sessions/stream", params, fallback, cb)
}

// SendStream sends one user message over the streaming endpoint.
func (c *Client) SendStream(ctx context.Context, sessionID, text string, cb StreamCallbacks) (*Handle, error) {
	body := map[string]string{"sessionId": sessionID, "message": text}
	fallback := func(ctx context.Context) (*fallbackResult, error) {
		reply, err := c.SendMessage(ctx, sessionID, text)
		if err != nil {
			return nil, err
		}
		return &fallbackResult{
			Text: reply.Response,
			Meta: &DoneMeta{Evaluation: reply.Evaluation},
		}, nil
	}
	return c.openStream(ctx, "/api/v2/session/"+sessionID+"/message/stream", body, fallback, cb)
}

// openStream acquires the in-flight slot and starts the stream goroutine.
func (c *Client) openStream(ctx context.Context, path string, body any, fallback fallbackFunc, cb StreamCallbacks) (*Handle, error) {
	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		return nil, ErrStreamInFlight
	}
	c.inflight = true
	c.mu.Unlock()

	sctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go c.runStream(sctx, h, path, body, fallback, cb)
	return h, nil
}

// runStream consumes the stream and feeds the callbacks. It owns the
// in-flight slot and the response body for its whole lifetime.
func (c *Client) runStream(ctx context.Context, h *Handle, path string, body any, fallback fallbackFunc, cb StreamCallbacks) {
	defer func() {
		h.cancel()
		c.mu.Lock()
		c.inflight = false
		c.mu.Unlock()
		close(h.done)
	}()

	resp, err := c.post(ctx, path, body)
	if err != nil {
		c.runFallback(ctx, h, fallback, cb, err)
		return
	}
	if resp.StatusCode/100 != 2 {
		apiErr := readAPIError(resp)
		resp.Body.Close()
		c.runFallback(ctx, h, fallback, cb, apiErr)
		return
	}
	defer resp.Body.Close()

	fr := newFrameReader(resp.Body)
	tokens := 0
	records := 0

	for {
		payload, err := fr.Next()
		if err != nil {
			if h.cancelled.Load() {
				return
			}
			if errors.Is(err, io.EOF) {
				// Close without a done frame is an implicit error.
				err = errors.New("stream closed before done frame")
			}
			if tokens == 0 {
				c.runFallback(ctx, h, fallback, cb, err)
				return
			}
			h.fail(cb, &StreamProtocolError{Reason: "stream aborted", Cause: err})
			return
		}

		records++
		var f Frame
		if err := json.Unmarshal(payload, &f); err != nil {
			if records == 1 && tokens == 0 {
				// A garbled head usually means we are not talking
				// to the streaming protocol at all.
				c.runFallback(ctx, h, fallback, cb, &StreamProtocolError{Reason: "malformed first record", Cause: err})
				return
			}
			slog.Warn("hugoapi: skipping malformed stream record", "err", err, "payload", truncateForLog(string(payload), 200))
			continue
		}

		switch f.Type {
		case FrameSession:
			id := f.SessionID
			h.deliver(func() {
				if cb.OnSession != nil {
					cb.OnSession(id)
				}
			})

		case FrameToken:
			tokens++
			c.pace(ctx, tokens)
			tok := f.Content
			h.deliver(func() {
				if cb.OnToken != nil {
					cb.OnToken(tok)
				}
			})

		case FrameDone:
			meta := &DoneMeta{Onboarding: f.Onboarding, Evaluation: f.Evaluation}
			h.deliver(func() {
				if cb.OnDone != nil {
					cb.OnDone(meta)
				}
			})
			return

		case FrameError:
			streamErr := &StreamProtocolError{Reason: f.Error}
			if tokens == 0 {
				c.runFallback(ctx, h, fallback, cb, streamErr)
				return
			}
			h.fail(cb, streamErr)
			return

		default:
			slog.Warn("hugoapi: skipping unknown frame type", "type", string(f.Type))
		}
	}
}

// runFallback issues the single blocking request and replays its reply
// through the streaming callback shape.
func (c *Client) runFallback(ctx context.Context, h *Handle, fallback fallbackFunc, cb StreamCallbacks, cause error) {
	if h.cancelled.Load() {
		return
	}
	slog.Debug("hugoapi: stream unavailable, using blocking fallback", "cause", cause)

	res, err := fallback(ctx)
	if err != nil {
		h.fail(cb, &StreamProtocolError{Reason: "blocking fallback failed", Cause: errors.Join(cause, err)})
		return
	}

	if res.SessionID != "" {
		h.deliver(func() {
			if cb.OnSession != nil {
				cb.OnSession(res.SessionID)
			}
		})
	}
	if res.Text != "" {
		h.deliver(func() {
			if cb.OnToken != nil {
				cb.OnToken(res.Text)
			}
		})
	}
	h.deliver(func() {
		if cb.OnDone != nil {
			cb.OnDone(res.Meta)
		}
	})
}

// pace applies the delivery-timing policy before the nth token.
func (c *Client) pace(ctx context.Context, n int) {
	if c.pacing.Delay <= 0 {
		return
	}
	burst := c.pacing.Burst
	if burst <= 0 {
		burst = 1
	}
	if n%burst != 0 {
		return
	}
	t := time.NewTimer(c.pacing.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func truncateForLog(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
