package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// PCMSource replays decoded interleaved stereo PCM in a loop. When paced, each
// ReadBlock waits until the block would have been captured in real time.
type PCMSource struct {
	name       string
	pcm        []int16
	sampleRate int
	paced      bool

	mu     sync.Mutex
	pos    int
	next   time.Time
	closed bool
}

// NewPCMSource wraps interleaved stereo samples recorded at sampleRate.
func NewPCMSource(name string, pcm []int16, sampleRate int, paced bool) *PCMSource {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	return &PCMSource{
		name:       name,
		pcm:        pcm,
		sampleRate: sampleRate,
		paced:      paced,
	}
}

// OpenFile decodes a .wav, .mp3 or .flac file into memory and replays it in
// real time. Files are not resampled; pacing follows the file's own rate.
func OpenFile(path string) (*PCMSource, error) {
	pcm, rate, err := decodeFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	if len(pcm) < Channels {
		return nil, openError(path, errors.New("no audio samples"))
	}
	return NewPCMSource(filepath.Base(path), pcm, rate, true), nil
}

func (p *PCMSource) ReadBlock(buf []int16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrSourceClosed
	}
	if len(p.pcm) == 0 {
		return errors.New("empty pcm source")
	}

	for n := 0; n < len(buf); {
		c := copy(buf[n:], p.pcm[p.pos:])
		n += c
		p.pos += c
		if p.pos >= len(p.pcm) {
			p.pos = 0
		}
	}

	if p.paced {
		p.wait(len(buf) / Channels)
	}
	return nil
}

func (p *PCMSource) wait(frames int) {
	block := time.Duration(frames) * time.Second / time.Duration(p.sampleRate)
	now := time.Now()
	if p.next.IsZero() || now.Sub(p.next) > block {
		p.next = now
	}
	p.next = p.next.Add(block)
	if d := time.Until(p.next); d > 0 {
		time.Sleep(d)
	}
}

func (p *PCMSource) Name() string { return p.name }

// SampleRate returns the rate the samples were recorded at.
func (p *PCMSource) SampleRate() int { return p.sampleRate }

func (p *PCMSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func decodeFile(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".flac":
		return decodeFLAC(f)
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}

func decodeWAV(r io.ReadSeeker) ([]int16, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file")
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode WAV: %w", err)
	}
	return interleavedToStereo(buf, int(decoder.BitDepth)), int(decoder.SampleRate), nil
}

func interleavedToStereo(buf *goaudio.IntBuffer, bitDepth int) []int16 {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	pcm := make([]int16, 0, frames*Channels)
	for i := 0; i < frames; i++ {
		base := i * channels
		left := wavTo16(buf.Data[base], bitDepth)
		right := left
		if channels > 1 {
			right = wavTo16(buf.Data[base+1], bitDepth)
		}
		pcm = append(pcm, left, right)
	}
	return pcm
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(r io.Reader) ([]int16, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}
	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("decode MP3: %w", err)
	}
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	// Drop a trailing half frame.
	pcm = pcm[:len(pcm)-len(pcm)%Channels]
	return pcm, decoder.SampleRate(), nil
}

func decodeFLAC(r io.Reader) ([]int16, int, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}
	defer stream.Close()

	var pcm []int16
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		if len(frame.Subframes) == 0 {
			continue
		}
		bits := int(frame.BitsPerSample)
		left := frame.Subframes[0].Samples
		right := left
		if len(frame.Subframes) > 1 {
			right = frame.Subframes[1].Samples
		}
		for i := range left {
			pcm = append(pcm, to16(int(left[i]), bits), to16(int(right[i]), bits))
		}
	}
	return pcm, int(stream.Info.SampleRate), nil
}

// wavTo16 is to16 for WAV data, where 8-bit PCM is unsigned with a 128
// midpoint.
func wavTo16(v, bitDepth int) int16 {
	if bitDepth == 8 {
		v -= 128
	}
	return to16(v, bitDepth)
}

// to16 rescales a signed sample of the given bit depth to 16 bits.
func to16(v, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	case bitDepth > 0 && bitDepth < 16:
		return int16(v << (16 - bitDepth))
	default:
		return int16(v)
	}
}
