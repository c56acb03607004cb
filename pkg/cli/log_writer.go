package cli

import (
	"strings"
	"sync"
)

// Scrollback is a bounded line buffer keeping the most recent lines.
type Scrollback struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewScrollback creates a scrollback holding at most max lines.
func NewScrollback(max int) *Scrollback {
	return &Scrollback{max: max}
}

// Add appends a line, dropping the oldest when full.
func (s *Scrollback) Add(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	if len(s.lines) > s.max {
		s.lines = s.lines[len(s.lines)-s.max:]
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (s *Scrollback) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// LogWriter implements io.Writer and captures log output for TUI display.
// It stores lines in a scrollback and notifies via a channel so the view
// can redraw.
type LogWriter struct {
	buf *Scrollback
	ch  chan string
}

// NewLogWriter creates a log writer keeping the last maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		buf: NewScrollback(maxLines),
		ch:  make(chan string, 100),
	}
}

// Write implements io.Writer, splitting multi-line input on newlines.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		w.buf.Add(line)
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Lines returns all buffered lines.
func (w *LogWriter) Lines() []string {
	return w.buf.Lines()
}

// Channel returns the notification channel for new lines.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
