package cli

import (
	"os"
	"path/filepath"
)

// Paths provides access to the hugocoach directory layout under the
// user's home directory.
type Paths struct {
	// HomeDir is the user's home directory.
	HomeDir string
}

// NewPaths resolves the user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.hugocoach).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.hugocoach/config.yaml).
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// TranscriptDir returns the transcript database directory
// (~/.hugocoach/transcripts).
func (p *Paths) TranscriptDir() string {
	return filepath.Join(p.BaseDir(), "transcripts")
}

// LogDir returns the log directory (~/.hugocoach/logs).
func (p *Paths) LogDir() string {
	return filepath.Join(p.BaseDir(), "logs")
}

// RecordingDir returns the call recording directory
// (~/.hugocoach/recordings).
func (p *Paths) RecordingDir() string {
	return filepath.Join(p.BaseDir(), "recordings")
}

// EnsureBaseDir creates the base directory if it doesn't exist.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0755)
}

// EnsureTranscriptDir creates the transcript directory if it doesn't exist.
func (p *Paths) EnsureTranscriptDir() error {
	return os.MkdirAll(p.TranscriptDir(), 0755)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func (p *Paths) EnsureLogDir() error {
	return os.MkdirAll(p.LogDir(), 0755)
}

// EnsureRecordingDir creates the recording directory if it doesn't exist.
func (p *Paths) EnsureRecordingDir() error {
	return os.MkdirAll(p.RecordingDir(), 0755)
}

// LogPath returns a path within the log directory.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogDir(), name)
}

// RecordingPath returns a path within the recording directory.
func (p *Paths) RecordingPath(name string) string {
	return filepath.Join(p.RecordingDir(), name)
}
