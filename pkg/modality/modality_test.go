package modality_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/modality"
)

// journal records the order of session lifecycle calls across fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeMedia struct {
	name string
	j    *journal
}

func (f *fakeMedia) Disconnect() { f.j.add(f.name + ".disconnect") }

type fakeVideo struct {
	fakeMedia
	spoken []string
}

func (f *fakeVideo) Speak(_ context.Context, text string) error {
	f.j.add(f.name + ".speak")
	f.spoken = append(f.spoken, text)
	return nil
}

func newController(j *journal) (*modality.Controller, *fakeVideo) {
	video := &fakeVideo{fakeMedia: fakeMedia{name: "video", j: j}}
	audioFactory := func(context.Context) (modality.MediaSession, error) {
		j.add("audio.connect")
		return &fakeMedia{name: "audio", j: j}, nil
	}
	videoFactory := func(context.Context) (modality.VideoSession, error) {
		j.add("video.connect")
		return video, nil
	}
	return modality.NewController(audioFactory, videoFactory), video
}

func TestSwitchDisconnectsBeforeConnecting(t *testing.T) {
	j := &journal{}
	c, _ := newController(j)

	if err := c.Switch(context.Background(), modality.Audio); err != nil {
		t.Fatalf("switch to audio: %v", err)
	}
	if err := c.Switch(context.Background(), modality.Video); err != nil {
		t.Fatalf("switch to video: %v", err)
	}

	want := []string{"audio.connect", "audio.disconnect", "video.connect"}
	got := j.list()
	if len(got) != len(want) {
		t.Fatalf("journal = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("journal = %v, want %v", got, want)
		}
	}
	if c.Current() != modality.Video {
		t.Fatalf("current = %s", c.Current())
	}
}

func TestSwitchToSameModalityIsNoop(t *testing.T) {
	j := &journal{}
	c, _ := newController(j)

	if err := c.Switch(context.Background(), modality.Audio); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := c.Switch(context.Background(), modality.Audio); err != nil {
		t.Fatalf("repeat switch: %v", err)
	}
	if got := j.list(); len(got) != 1 {
		t.Fatalf("journal = %v, want single connect", got)
	}
}

func TestFailedSwitchRevertsToChat(t *testing.T) {
	dialErr := errors.New("token rejected")
	audioFactory := func(context.Context) (modality.MediaSession, error) {
		return nil, dialErr
	}
	videoFactory := func(context.Context) (modality.VideoSession, error) {
		t.Fatal("video factory called")
		return nil, nil
	}
	c := modality.NewController(audioFactory, videoFactory)

	err := c.Switch(context.Background(), modality.Audio)
	var se *modality.SwitchError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SwitchError", err)
	}
	if !errors.Is(err, dialErr) {
		t.Fatalf("err = %v, want wrapped %v", err, dialErr)
	}
	if c.Current() != modality.Chat {
		t.Fatalf("current = %s after failed switch, want chat", c.Current())
	}
}

func TestFailedSwitchFromAudioDisconnectsOld(t *testing.T) {
	j := &journal{}
	audio := &fakeMedia{name: "audio", j: j}
	audioFactory := func(context.Context) (modality.MediaSession, error) {
		j.add("audio.connect")
		return audio, nil
	}
	videoFactory := func(context.Context) (modality.VideoSession, error) {
		return nil, errors.New("avatar quota exceeded")
	}
	c := modality.NewController(audioFactory, videoFactory)

	if err := c.Switch(context.Background(), modality.Audio); err != nil {
		t.Fatalf("switch to audio: %v", err)
	}
	if err := c.Switch(context.Background(), modality.Video); err == nil {
		t.Fatal("switch to video succeeded unexpectedly")
	}

	got := j.list()
	if len(got) != 2 || got[1] != "audio.disconnect" {
		t.Fatalf("journal = %v, want audio disconnected", got)
	}
	if c.Current() != modality.Chat {
		t.Fatalf("current = %s, want chat", c.Current())
	}
}

func TestSpeakReplyOnlyInVideo(t *testing.T) {
	j := &journal{}
	c, video := newController(j)

	// Chat: no-op.
	if err := c.SpeakReply(context.Background(), "eerste"); err != nil {
		t.Fatalf("SpeakReply in chat: %v", err)
	}

	if err := c.Switch(context.Background(), modality.Audio); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := c.SpeakReply(context.Background(), "tweede"); err != nil {
		t.Fatalf("SpeakReply in audio: %v", err)
	}
	if len(video.spoken) != 0 {
		t.Fatalf("avatar spoke outside video mode: %v", video.spoken)
	}

	if err := c.Switch(context.Background(), modality.Video); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := c.SpeakReply(context.Background(), "derde"); err != nil {
		t.Fatalf("SpeakReply in video: %v", err)
	}
	if len(video.spoken) != 1 || video.spoken[0] != "derde" {
		t.Fatalf("avatar spoke %v, want [derde]", video.spoken)
	}
}

func TestOnChangeObservesTransitions(t *testing.T) {
	j := &journal{}
	c, _ := newController(j)

	var mu sync.Mutex
	var seen []modality.Modality
	c.OnChange(func(m modality.Modality) {
		mu.Lock()
		seen = append(seen, m)
		mu.Unlock()
	})

	if err := c.Switch(context.Background(), modality.Audio); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := c.Switch(context.Background(), modality.Chat); err != nil {
		t.Fatalf("switch: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != modality.Audio || seen[1] != modality.Chat {
		t.Fatalf("transitions = %v, want [audio chat]", seen)
	}
}

func TestShutdownReturnsToChat(t *testing.T) {
	j := &journal{}
	c, _ := newController(j)

	if err := c.Switch(context.Background(), modality.Video); err != nil {
		t.Fatalf("switch: %v", err)
	}
	c.Shutdown()
	c.Shutdown()

	got := j.list()
	if len(got) != 2 || got[1] != "video.disconnect" {
		t.Fatalf("journal = %v", got)
	}
	if c.Current() != modality.Chat {
		t.Fatalf("current = %s", c.Current())
	}
}
