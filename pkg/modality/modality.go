// Package modality arbitrates which conversation surface is live: plain
// chat, the audio room or the avatar video session. At most one media
// session is connected at a time; switches are serialized, and the old
// session is fully torn down before the new one starts connecting.
package modality

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/eventsub"
)

// Modality names a conversation surface.
type Modality string

const (
	Chat  Modality = "chat"
	Audio Modality = "audio"
	Video Modality = "video"
)

// MediaSession is the common teardown surface of the audio and video
// sessions.
type MediaSession interface {
	Disconnect()
}

// VideoSession additionally voices replies through the avatar.
type VideoSession interface {
	MediaSession
	Speak(ctx context.Context, text string) error
}

// AudioFactory dials credentials and connects a fresh audio session.
type AudioFactory func(ctx context.Context) (MediaSession, error)

// VideoFactory dials credentials and connects a fresh video session.
type VideoFactory func(ctx context.Context) (VideoSession, error)

// SwitchError reports a failed switch. The controller has already
// reverted to chat when it is returned.
type SwitchError struct {
	Target Modality
	Cause  error
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("modality: switch to %s failed: %v", e.Target, e.Cause)
}

func (e *SwitchError) Unwrap() error { return e.Cause }

// Controller owns the active surface.
type Controller struct {
	audio AudioFactory
	video VideoFactory
	log   *slog.Logger

	// switchMu serializes whole switches; mu guards the snapshot.
	switchMu sync.Mutex
	mu       sync.Mutex
	current  Modality
	active   MediaSession
	videoSes VideoSession

	changes eventsub.Hub[Modality]
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// NewController starts in chat.
func NewController(audio AudioFactory, video VideoFactory, opts ...Option) *Controller {
	c := &Controller{
		audio:   audio,
		video:   video,
		log:     slog.Default(),
		current: Chat,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the active modality.
func (c *Controller) Current() Modality {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OnChange subscribes to modality transitions. The returned function
// unsubscribes.
func (c *Controller) OnChange(fn func(Modality)) func() {
	return c.changes.Subscribe(fn)
}

// Switch moves to target. The previous media session is disconnected
// before the new one starts connecting; on a failed connect the
// controller stays in chat and the error is returned wrapped in a
// *SwitchError. Switching to the current modality is a no-op.
func (c *Controller) Switch(ctx context.Context, target Modality) error {
	switch target {
	case Chat, Audio, Video:
	default:
		return fmt.Errorf("modality: unknown target %q", target)
	}

	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.mu.Lock()
	if c.current == target {
		c.mu.Unlock()
		return nil
	}
	old := c.active
	c.active = nil
	c.videoSes = nil
	c.current = Chat
	c.mu.Unlock()

	if old != nil {
		// Must return before the next session dials; the backends reject
		// overlapping media sessions for one coaching session.
		old.Disconnect()
		c.changes.Publish(Chat)
	}
	if target == Chat {
		if old == nil {
			c.changes.Publish(Chat)
		}
		return nil
	}

	var (
		ses   MediaSession
		video VideoSession
		err   error
	)
	switch target {
	case Audio:
		ses, err = c.audio(ctx)
	case Video:
		video, err = c.video(ctx)
		ses = video
	}
	if err != nil {
		c.log.Warn("modality: switch failed, staying in chat", "target", target, "err", err)
		return &SwitchError{Target: target, Cause: err}
	}

	c.mu.Lock()
	c.active = ses
	c.videoSes = video
	c.current = target
	c.mu.Unlock()
	c.changes.Publish(target)
	return nil
}

// SpeakReply voices an assistant reply on the avatar when video is the
// active surface. In chat and audio it is a no-op; those surfaces carry
// the reply themselves.
func (c *Controller) SpeakReply(ctx context.Context, text string) error {
	c.mu.Lock()
	video := c.videoSes
	c.mu.Unlock()
	if video == nil {
		return nil
	}
	return video.Speak(ctx, text)
}

// Shutdown disconnects whatever is active and returns to chat.
func (c *Controller) Shutdown() {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.mu.Lock()
	old := c.active
	changed := c.current != Chat
	c.active = nil
	c.videoSes = nil
	c.current = Chat
	c.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}
	if changed {
		c.changes.Publish(Chat)
	}
}
