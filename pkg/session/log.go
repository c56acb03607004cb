package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSeller is the practicing user.
	RoleSeller Role = "seller"

	// RoleCustomer is the simulated counterpart.
	RoleCustomer Role = "customer"
)

// Turn is one entry of the conversation log.
type Turn struct {
	Role Role
	Text string
	At   time.Time
}

// Sink receives a copy of every appended turn, e.g. a transcript store.
// Sink failures are logged, never propagated; the in-memory log is the
// source of truth for the running session.
type Sink interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
}

// Log is the append-only conversation log of one session.
type Log struct {
	sessionID string
	sink      Sink

	mu    sync.Mutex
	turns []Turn
}

// NewLog creates a log for the given session. sink may be nil.
func NewLog(sessionID string, sink Sink) *Log {
	return &Log{sessionID: sessionID, sink: sink}
}

// Append adds a turn to the log, stamping it if At is zero.
func (l *Log) Append(turn Turn) {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	l.mu.Lock()
	l.turns = append(l.turns, turn)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.Append(context.Background(), l.sessionID, turn); err != nil {
			slog.Warn("session: transcript sink append failed", "session", l.sessionID, "err", err)
		}
	}
}

// Turns returns a copy of the log in order.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// TokenBuffer accumulates the fragments of one in-flight streamed reply.
// It is flushed into the log at most once; a cancelled stream discards it.
type TokenBuffer struct {
	mu     sync.Mutex
	parts  []string
	closed bool
}

// Append adds a fragment in arrival order. Fragments appended after the
// buffer was flushed or discarded are dropped.
func (b *TokenBuffer) Append(fragment string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.parts = append(b.parts, fragment)
}

// Text returns the accumulated text so far.
func (b *TokenBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.parts, "")
}

// Flush appends the accumulated text to the log as one turn and closes the
// buffer. It reports whether the flush happened; a second call, or a call
// after Discard, is a no-op returning false.
func (b *TokenBuffer) Flush(log *Log, role Role) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.closed = true
	text := strings.Join(b.parts, "")
	b.parts = nil
	b.mu.Unlock()

	log.Append(Turn{Role: role, Text: text})
	return true
}

// Discard drops the accumulated fragments without flushing.
func (b *TokenBuffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.parts = nil
}
