package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Capture format. The rate and channel count are fixed; sources that cannot
// deliver them are converted on open.
const (
	SampleRate    = 44100
	Channels      = 2
	BlockDuration = 16 * time.Millisecond
	BlockFrames   = SampleRate * int(BlockDuration/time.Millisecond) / 1000
	BlockSamples  = BlockFrames * Channels
)

var (
	// ErrDeviceOpen wraps every failure to open a capture source.
	ErrDeviceOpen = errors.New("audio: cannot open capture source")
	// ErrDeviceRead wraps a failed block read during sampling.
	ErrDeviceRead = errors.New("audio: capture read failed")
	// ErrSourceClosed is returned by ReadBlock after Close.
	ErrSourceClosed = errors.New("audio: source closed")
)

// Source delivers interleaved signed 16-bit blocks. ReadBlock fills buf
// completely and may block for up to one block duration.
type Source interface {
	ReadBlock(buf []int16) error
	Name() string
	Close() error
}

var fileExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
}

// IsFileSource reports whether name refers to a supported audio file.
func IsFileSource(name string) bool {
	return fileExtensions[strings.ToLower(filepath.Ext(name))]
}

// Open resolves a source identifier: an audio file path, a device name
// substring, or "" for the auto-detected input device. PortAudio must be
// initialized before opening a device.
func Open(name string) (Source, error) {
	if IsFileSource(name) {
		return OpenFile(name)
	}
	return OpenDevice(name)
}

func openError(name string, err error) error {
	if name == "" {
		name = "default input"
	}
	return fmt.Errorf("%w %q: %w", ErrDeviceOpen, name, err)
}
