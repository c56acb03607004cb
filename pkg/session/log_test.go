package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/session"
)

type memorySink struct {
	mu    sync.Mutex
	turns []session.Turn
}

func (s *memorySink) Append(_ context.Context, _ string, turn session.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return nil
}

func TestTokenBufferFlushOnce(t *testing.T) {
	log := session.NewLog("s1", nil)

	var buf session.TokenBuffer
	buf.Append("Hallo")
	buf.Append(" daar")
	buf.Append("!")

	if got := buf.Text(); got != "Hallo daar!" {
		t.Fatalf("Text = %q", got)
	}
	if !buf.Flush(log, session.RoleCustomer) {
		t.Fatal("first Flush reported false")
	}
	if buf.Flush(log, session.RoleCustomer) {
		t.Fatal("second Flush reported true")
	}

	turns := log.Turns()
	if len(turns) != 1 {
		t.Fatalf("log has %d turns, want 1", len(turns))
	}
	if turns[0].Text != "Hallo daar!" || turns[0].Role != session.RoleCustomer {
		t.Fatalf("turn = %+v", turns[0])
	}
}

func TestTokenBufferDiscard(t *testing.T) {
	log := session.NewLog("s1", nil)

	var buf session.TokenBuffer
	buf.Append("half af")
	buf.Discard()

	if buf.Flush(log, session.RoleCustomer) {
		t.Fatal("Flush after Discard reported true")
	}
	buf.Append("te laat")
	if buf.Text() != "" {
		t.Fatalf("Text after discard = %q, want empty", buf.Text())
	}
	if log.Len() != 0 {
		t.Fatalf("log has %d turns after discard, want 0", log.Len())
	}
}

func TestLogMirrorsToSink(t *testing.T) {
	sink := &memorySink{}
	log := session.NewLog("s1", sink)

	log.Append(session.Turn{Role: session.RoleSeller, Text: "Goedemorgen"})
	log.Append(session.Turn{Role: session.RoleCustomer, Text: "Wat verkoopt u?"})

	if log.Len() != 2 {
		t.Fatalf("Len = %d", log.Len())
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.turns) != 2 || sink.turns[0].Text != "Goedemorgen" {
		t.Fatalf("sink turns = %+v", sink.turns)
	}
	if sink.turns[0].At.IsZero() {
		t.Fatal("turn timestamp not stamped")
	}
}
