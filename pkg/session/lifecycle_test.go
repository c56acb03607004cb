package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/hugoapi"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/session"
)

// slowCreator counts create calls and blocks until released.
type slowCreator struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (c *slowCreator) CreateSession(ctx context.Context, params hugoapi.SessionParams) (*hugoapi.Session, error) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &hugoapi.Session{ID: "sess-1"}, nil
}

func TestEnsureSingleFlight(t *testing.T) {
	creator := &slowCreator{release: make(chan struct{})}
	l := session.NewLifecycle(creator)

	const callers = 8
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = l.Ensure(context.Background(), hugoapi.SessionParams{TechniqueID: "1.1"})
		}(i)
	}

	// Let all callers pile up on the single in-flight create.
	time.Sleep(50 * time.Millisecond)
	close(creator.release)
	wg.Wait()

	if n := creator.calls.Load(); n != 1 {
		t.Fatalf("create calls = %d, want 1", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if ids[i] != "sess-1" {
			t.Fatalf("caller %d id = %q", i, ids[i])
		}
	}
}

func TestEnsureReturnsExistingID(t *testing.T) {
	creator := &slowCreator{}
	l := session.NewLifecycle(creator)

	id1, err := l.Ensure(context.Background(), hugoapi.SessionParams{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	id2, err := l.Ensure(context.Background(), hugoapi.SessionParams{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %q vs %q", id1, id2)
	}
	if n := creator.calls.Load(); n != 1 {
		t.Fatalf("create calls = %d, want 1", n)
	}
}

func TestEnsurePropagatesCreateError(t *testing.T) {
	wantErr := &hugoapi.SessionCreateError{Cause: errors.New("backend unreachable")}
	creator := &slowCreator{err: wantErr}
	l := session.NewLifecycle(creator)

	_, err := l.Ensure(context.Background(), hugoapi.SessionParams{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if _, ok := l.ID(); ok {
		t.Fatal("session active after failed create")
	}

	// A later call retries.
	creator.err = nil
	if _, err := l.Ensure(context.Background(), hugoapi.SessionParams{}); err != nil {
		t.Fatalf("retry Ensure: %v", err)
	}
}

type fakeStream struct{ cancelled atomic.Bool }

func (f *fakeStream) Cancel() { f.cancelled.Store(true) }

func TestClearCancelsRegisteredStream(t *testing.T) {
	l := session.NewLifecycle(&slowCreator{})
	if _, err := l.Ensure(context.Background(), hugoapi.SessionParams{}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	stream := &fakeStream{}
	l.RegisterStream(stream)

	l.Clear()
	if !stream.cancelled.Load() {
		t.Fatal("Clear did not cancel the registered stream")
	}
	if _, ok := l.ID(); ok {
		t.Fatal("session still active after Clear")
	}

	// Idempotent.
	l.Clear()
}

func TestClearDuringCreateDiscardsIdentity(t *testing.T) {
	creator := &slowCreator{release: make(chan struct{})}
	l := session.NewLifecycle(creator)

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := l.Ensure(context.Background(), hugoapi.SessionParams{})
		done <- result{id, err}
	}()

	// Wait until the create is in flight, then clear while it is pending.
	deadline := time.After(time.Second)
	for creator.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("create never started")
		case <-time.After(time.Millisecond):
		}
	}
	l.Clear()
	close(creator.release)

	res := <-done
	if !errors.Is(res.err, session.ErrNoSession) {
		t.Fatalf("Ensure after raced Clear = %q, %v; want ErrNoSession", res.id, res.err)
	}
	if id, ok := l.ID(); ok {
		t.Fatalf("discarded identity %q re-activated after Clear", id)
	}
	if l.Log() != nil {
		t.Fatal("log exists for a discarded session")
	}
}

func TestAdoptFromSessionFrame(t *testing.T) {
	l := session.NewLifecycle(&slowCreator{})

	l.Adopt("")
	if _, ok := l.ID(); ok {
		t.Fatal("empty adopt must not activate a session")
	}

	l.Adopt("sess-frame")
	id, ok := l.ID()
	if !ok || id != "sess-frame" {
		t.Fatalf("ID = %q,%v after Adopt", id, ok)
	}
	if l.Log() == nil {
		t.Fatal("no log after Adopt")
	}
}
