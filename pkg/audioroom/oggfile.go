package audioroom

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
)

const opusClockRate = 48000

// OggSource is a MicrophoneSource backed by an Ogg/Opus file. It feeds the
// room at playback rate, which makes it usable both for headless clients
// and for replaying recorded audio into a role-play.
type OggSource struct {
	path string
}

// NewOggSource reads microphone audio from the Ogg/Opus file at path.
func NewOggSource(path string) *OggSource {
	return &OggSource{path: path}
}

// Open implements MicrophoneSource.
func (s *OggSource) Open(_ context.Context) (MicrophoneTrack, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open audio source: %w", err)
	}
	ogg, _, err := oggreader.NewWith(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("parse ogg container: %w", err)
	}
	return &oggTrack{f: f, ogg: ogg}, nil
}

type oggTrack struct {
	f           *os.File
	ogg         *oggreader.OggReader
	lastGranule uint64
}

// ReadSample returns the next Opus page, sleeping for the page duration so
// the track plays out in real time.
func (t *oggTrack) ReadSample() (media.Sample, error) {
	pageData, pageHeader, err := t.ogg.ParseNextPage()
	if err != nil {
		return media.Sample{}, err
	}
	sampleCount := pageHeader.GranulePosition - t.lastGranule
	t.lastGranule = pageHeader.GranulePosition
	duration := time.Duration(sampleCount) * time.Second / opusClockRate

	time.Sleep(duration)
	return media.Sample{Data: pageData, Duration: duration}, nil
}

func (t *oggTrack) Close() error {
	return t.f.Close()
}

// OggSink records remote audio to an Ogg/Opus file.
type OggSink struct {
	w *oggwriter.OggWriter
}

// NewOggSink writes remote audio to the Ogg/Opus file at path.
func NewOggSink(path string) (*OggSink, error) {
	w, err := oggwriter.New(path, opusClockRate, 2)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	return &OggSink{w: w}, nil
}

// WriteRTP implements AudioSink.
func (s *OggSink) WriteRTP(pkt *rtp.Packet) error {
	return s.w.WriteRTP(pkt)
}

// Close finalizes the recording.
func (s *OggSink) Close() error {
	return s.w.Close()
}
