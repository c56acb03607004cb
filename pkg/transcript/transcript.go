// Package transcript persists conversation transcripts per coaching
// session so earlier role-plays can be reviewed after the session ends.
//
// Records are sequence-numbered per session and stored in append order.
// The package includes a BadgerDB-backed implementation for production
// use and an in-memory implementation for testing.
package transcript

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/session"
)

// ErrNotFound is returned when a session has no transcript.
var ErrNotFound = errors.New("transcript: not found")

// Record is one transcript entry.
type Record struct {
	Seq  uint64    `msgpack:"seq"`
	Role string    `msgpack:"role"`
	Text string    `msgpack:"text"`
	At   time.Time `msgpack:"at"`
}

// Store persists transcripts keyed by session id.
type Store interface {
	// Append adds a record to the session's transcript and returns the
	// assigned sequence number. The record's Seq field is ignored on input.
	Append(ctx context.Context, sessionID string, rec Record) (uint64, error)

	// List iterates the session's records in sequence order.
	List(ctx context.Context, sessionID string) iter.Seq2[Record, error]

	// Sessions iterates the ids of all sessions with a transcript.
	Sessions(ctx context.Context) iter.Seq2[string, error]

	// Purge removes the session's transcript. No error if absent.
	Purge(ctx context.Context, sessionID string) error

	// Close releases any resources held by the store.
	Close() error
}

// Sink adapts a Store to the session log sink, so every turn appended to
// the in-memory conversation log is mirrored to persistent storage.
type Sink struct {
	store Store
}

// NewSink wraps store as a session log sink.
func NewSink(store Store) *Sink {
	return &Sink{store: store}
}

// Append implements session.Sink.
func (s *Sink) Append(ctx context.Context, sessionID string, turn session.Turn) error {
	_, err := s.store.Append(ctx, sessionID, Record{
		Role: string(turn.Role),
		Text: turn.Text,
		At:   turn.At,
	})
	return err
}
