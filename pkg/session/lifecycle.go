package session

import (
	"context"
	"errors"
	"sync"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/hugoapi"
)

// ErrNoSession is returned by operations that require an active session.
var ErrNoSession = errors.New("session: no active session")

// Creator is the backend contract the lifecycle needs: hugoapi.Client
// satisfies it.
type Creator interface {
	CreateSession(ctx context.Context, params hugoapi.SessionParams) (*hugoapi.Session, error)
}

// Canceler is an in-flight operation that can be aborted, typically a
// *hugoapi.Handle.
type Canceler interface {
	Cancel()
}

// Lifecycle owns the backend session identity. All other components receive
// the id by parameter; only a session frame from the stream (via Adopt) or a
// create request may set it.
type Lifecycle struct {
	creator Creator
	sink    Sink

	mu      sync.Mutex
	id      string
	active  bool
	gen     uint64 // bumped by Clear; stale creates must not re-activate
	pending chan struct{}
	lastErr error
	stream  Canceler
	log     *Log
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithSink mirrors every log append into a transcript sink.
func WithSink(s Sink) LifecycleOption {
	return func(l *Lifecycle) { l.sink = s }
}

// NewLifecycle creates a Lifecycle that uses creator for lazy session
// creation.
func NewLifecycle(creator Creator, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{creator: creator}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ensure returns the active session id, creating the backend session if none
// exists. Concurrent callers share a single in-flight create request and all
// receive its result. A Clear issued while the create is in flight discards
// the created identity; Ensure then reports ErrNoSession.
func (l *Lifecycle) Ensure(ctx context.Context, params hugoapi.SessionParams) (string, error) {
	for {
		l.mu.Lock()
		if l.active {
			id := l.id
			l.mu.Unlock()
			return id, nil
		}
		if l.pending != nil {
			pending := l.pending
			l.mu.Unlock()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-pending:
			}
			l.mu.Lock()
			if l.active {
				id := l.id
				l.mu.Unlock()
				return id, nil
			}
			err := l.lastErr
			l.mu.Unlock()
			if err != nil {
				return "", err
			}
			continue
		}

		pending := make(chan struct{})
		l.pending = pending
		gen := l.gen
		l.mu.Unlock()

		sess, err := l.creator.CreateSession(ctx, params)

		l.mu.Lock()
		l.pending = nil
		l.lastErr = err
		// A Clear that raced the create wins: the identity it discarded
		// must not come back, so the result is dropped.
		stale := l.gen != gen
		if err == nil && !stale {
			l.setSessionLocked(sess.ID)
		}
		l.mu.Unlock()
		close(pending)

		if err != nil {
			return "", err
		}
		if stale {
			return "", ErrNoSession
		}
		return sess.ID, nil
	}
}

// Adopt applies a session id received through a stream's session frame.
// This is the only mutation path besides Ensure.
func (l *Lifecycle) Adopt(id string) {
	if id == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active && l.id == id {
		return
	}
	l.setSessionLocked(id)
}

func (l *Lifecycle) setSessionLocked(id string) {
	l.id = id
	l.active = true
	l.lastErr = nil
	l.log = NewLog(id, l.sink)
}

// ID returns the current session id and whether one is active.
func (l *Lifecycle) ID() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id, l.active
}

// Log returns the conversation log of the active session, or nil when no
// session exists.
func (l *Lifecycle) Log() *Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.log
}

// RegisterStream records the in-flight stream tied to the current session so
// Clear can cancel it. Registering replaces any previous handle.
func (l *Lifecycle) RegisterStream(c Canceler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stream = c
}

// Clear marks the session inactive and discards the identity. Any in-flight
// stream registered against the old identity is cancelled. Idempotent.
func (l *Lifecycle) Clear() {
	l.mu.Lock()
	stream := l.stream
	l.stream = nil
	l.id = ""
	l.active = false
	l.log = nil
	l.gen++
	l.mu.Unlock()

	if stream != nil {
		stream.Cancel()
	}
}
