package audioroom

import (
	"errors"
	"fmt"
)

// ErrMediaDisconnected reports a mid-session transport loss. The session
// lands in the error state; reconnecting requires a new instance.
var ErrMediaDisconnected = errors.New("audioroom: media transport disconnected")

// PermissionError reports that the microphone could not be acquired,
// typically because the user denied the permission prompt.
type PermissionError struct {
	Cause error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("audioroom: microphone permission denied: %v", e.Cause)
}

func (e *PermissionError) Unwrap() error { return e.Cause }

// ConnectError reports that the room connection could not be established.
type ConnectError struct {
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("audioroom: connect failed: %v", e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// PublishError reports that the local microphone track could not be
// published to the room.
type PublishError struct {
	Cause error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("audioroom: publish failed: %v", e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }
