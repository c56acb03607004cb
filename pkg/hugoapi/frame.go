package hugoapi

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// FrameType discriminates the records of the token-stream wire protocol.
type FrameType string

const (
	// FrameSession carries the backend conversation id, once at the head
	// of the stream.
	FrameSession FrameType = "session"

	// FrameToken carries one text fragment of the reply.
	FrameToken FrameType = "token"

	// FrameDone signals successful completion, optionally with trailing
	// metadata.
	FrameDone FrameType = "done"

	// FrameError aborts the stream.
	FrameError FrameType = "error"
)

// Frame is one decoded record of the stream.
type Frame struct {
	Type       FrameType         `json:"type"`
	SessionID  string            `json:"sessionId,omitempty"`
	Content    string            `json:"content,omitempty"`
	Error      string            `json:"error,omitempty"`
	Onboarding *OnboardingStatus `json:"onboardingStatus,omitempty"`
	Evaluation json.RawMessage   `json:"evaluation,omitempty"`
}

// framePrefix marks payload lines on the wire.
const framePrefix = "data:"

// frameReader splits the response body into record payloads. Records are
// newline-delimited "data: {json}" lines; a blank line terminates a record
// boundary, and a record may batch several JSON fragments as separate data
// lines. Partial lines are buffered across arbitrary chunk boundaries, so
// Next only returns payloads that end at a full record boundary.
type frameReader struct {
	r       *bufio.Reader
	pending [][]byte
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReader(r)}
}

// Next returns the next frame payload, or io.EOF when the stream ends.
func (fr *frameReader) Next() ([]byte, error) {
	for {
		if len(fr.pending) > 0 {
			p := fr.pending[0]
			fr.pending = fr.pending[1:]
			return p, nil
		}

		var batch [][]byte
		for {
			line, err := fr.r.ReadString('\n')
			if err != nil && err != io.EOF {
				return nil, err
			}

			atEOF := err == io.EOF
			line = strings.TrimRight(line, "\r\n")

			if strings.HasPrefix(line, framePrefix) {
				payload := strings.TrimSpace(strings.TrimPrefix(line, framePrefix))
				if payload != "" {
					batch = append(batch, []byte(payload))
				}
			}
			// Non-prefixed, non-blank lines are ignored (comments,
			// keep-alives).

			if line == "" || atEOF {
				if len(batch) > 0 {
					fr.pending = batch
					break
				}
				if atEOF {
					return nil, io.EOF
				}
				// Blank line with no buffered payload: keep-alive.
			}
		}
	}
}
