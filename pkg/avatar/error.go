package avatar

import (
	"errors"
	"fmt"
)

// ErrNotConnected reports a speak or interrupt on a session that is not
// connected.
var ErrNotConnected = errors.New("avatar: session not connected")

// ErrStreamLost reports a provider-side stream loss. The session lands in
// the error state.
var ErrStreamLost = errors.New("avatar: stream lost")

// ConnectError reports that the avatar control stream could not be opened.
type ConnectError struct {
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("avatar: connect failed: %v", e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }
