package audio

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// SynthSource generates a pulsing test tone so the visual can run without a
// capture device. Loudness follows three slow oscillators plus occasional
// hits, roughly like music with a beat.
type SynthSource struct {
	mu        sync.Mutex
	rng       *rand.Rand
	paced     bool
	next      time.Time
	phase     float64
	phaseBass float64
	phaseMid  float64
	phaseBeat float64
	closed    bool
}

// NewSynthSource creates a synthetic source. Paced sources deliver blocks in
// real time like a device would.
func NewSynthSource(seed int64, paced bool) *SynthSource {
	return &SynthSource{
		rng:   rand.New(rand.NewSource(seed)),
		paced: paced,
	}
}

func (s *SynthSource) ReadBlock(buf []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}

	frames := len(buf) / Channels
	delta := float64(frames) / SampleRate

	s.phaseBass += delta * 0.7
	s.phaseMid += delta * 1.2
	s.phaseBeat += delta * 2.1

	envelope := 0.45 + 0.3*math.Sin(s.phaseBass) + 0.15*math.Sin(s.phaseMid+0.5)
	if beat := math.Sin(s.phaseBeat * 2.0); beat > 0.8 {
		envelope += 0.25
	}
	if s.rng.Float64() < 0.02 {
		envelope = 1.0
	}
	envelope = clamp01(envelope + s.rng.Float64()*0.05)

	step := 2 * math.Pi * 110.0 / SampleRate
	for i := 0; i < frames; i++ {
		s.phase += step
		v := int16(math.Sin(s.phase) * envelope * maxSampleMagnitude)
		buf[i*Channels] = v
		buf[i*Channels+1] = v
	}
	s.phase = math.Mod(s.phase, 2*math.Pi)

	if s.paced {
		block := time.Duration(delta * float64(time.Second))
		now := time.Now()
		if s.next.IsZero() || now.Sub(s.next) > block {
			s.next = now
		}
		s.next = s.next.Add(block)
		if d := time.Until(s.next); d > 0 {
			time.Sleep(d)
		}
	}
	return nil
}

func (s *SynthSource) Name() string { return "synthetic" }

func (s *SynthSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
