package hugoapi

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// chunked record parsing must be independent of how the transport splits the
// byte stream.
func TestFrameReaderOneByteChunks(t *testing.T) {
	wire := "data: {\"type\":\"session\",\"sessionId\":\"s1\"}\n\n" +
		"data: {\"type\":\"token\",\"content\":\"Hallo\"}\n\n" +
		"data: {\"type\":\"done\"}\n\n"

	fr := newFrameReader(iotest.OneByteReader(strings.NewReader(wire)))

	var payloads []string
	for {
		p, err := fr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		payloads = append(payloads, string(p))
	}
	if len(payloads) != 3 {
		t.Fatalf("got %d payloads, want 3: %v", len(payloads), payloads)
	}
	if !strings.Contains(payloads[0], "session") || !strings.Contains(payloads[2], "done") {
		t.Fatalf("unexpected payloads: %v", payloads)
	}
}

func TestFrameReaderBatchedFragments(t *testing.T) {
	// Two fragments in one record, terminated by a single blank line.
	wire := "data: {\"type\":\"token\",\"content\":\"a\"}\n" +
		"data: {\"type\":\"token\",\"content\":\"b\"}\n\n"

	fr := newFrameReader(strings.NewReader(wire))

	p1, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	p2, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.Contains(string(p1), "\"a\"") || !strings.Contains(string(p2), "\"b\"") {
		t.Fatalf("fragments out of order: %q, %q", p1, p2)
	}
	if _, err := fr.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestFrameReaderIgnoresNoise(t *testing.T) {
	wire := ": keep-alive\n\n" +
		"\n" +
		"data: {\"type\":\"token\",\"content\":\"x\"}\n\n"

	fr := newFrameReader(strings.NewReader(wire))
	p, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.Contains(string(p), "token") {
		t.Fatalf("got %q", p)
	}
}

func TestFrameReaderEOFWithoutTrailingBlank(t *testing.T) {
	wire := "data: {\"type\":\"done\"}\n"
	fr := newFrameReader(strings.NewReader(wire))

	p, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.Contains(string(p), "done") {
		t.Fatalf("got %q", p)
	}
	if _, err := fr.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
