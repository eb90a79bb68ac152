package analyzer

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Analyzer turns interleaved stereo capture blocks into smoothed band
// energies for display. It is not safe for concurrent use; see Tracker.
type Analyzer struct {
	sampleRate float64
	channels   int

	bassPeak   float64
	midPeak    float64
	treblePeak float64

	mono   []float64
	window []float64
}

// Config controls Analyzer behavior.
type Config struct {
	SampleRate float64
	Channels   int
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	return &Analyzer{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}
}

// Analyze returns band energies for one interleaved block.
func (a *Analyzer) Analyze(block []int16) Features {
	frames := len(block) / a.channels
	if frames == 0 {
		return Features{}
	}

	size := nextPow2(frames)
	if size < 256 {
		size = 256
	}
	a.ensureWorkspace(frames, size)

	mono := a.mono[:size]
	sumSq := 0.0
	windowSum := 0.0
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < a.channels; ch++ {
			sum += int(block[i*a.channels+ch])
		}
		v := float64(sum) / float64(a.channels) / 32768.0
		sumSq += v * v
		mono[i] = v * a.window[i]
		windowSum += a.window[i]
	}
	for i := frames; i < size; i++ {
		mono[i] = 0
	}

	spectrum := fft.FFTReal(mono)

	// A full-scale sine lands at windowSum/2 in its bin.
	norm := windowSum / 2
	resolution := a.sampleRate / float64(size)
	bass := bandEnergy(spectrum, resolution, norm, 20, 250)
	mid := bandEnergy(spectrum, resolution, norm, 250, 2000)
	treble := bandEnergy(spectrum, resolution, norm, 2000, 8000)

	a.bassPeak = envelope(a.bassPeak, bass, 0.94, 0.75)
	a.midPeak = envelope(a.midPeak, mid, 0.94, 0.78)
	a.treblePeak = envelope(a.treblePeak, treble, 0.94, 0.8)

	return Features{
		Bass:   dynamics(bass, a.bassPeak),
		Mid:    dynamics(mid, a.midPeak),
		Treble: dynamics(treble, a.treblePeak),
		RMS:    math.Sqrt(sumSq / float64(frames)),
	}
}

func (a *Analyzer) ensureWorkspace(frames, size int) {
	if len(a.mono) != size {
		a.mono = make([]float64, size)
	}
	if len(a.window) != frames {
		a.window = window.Hann(frames)
	}
}

func bandEnergy(spectrum []complex128, resolution, norm, minHz, maxHz float64) float64 {
	if minHz >= maxHz || norm <= 0 {
		return 0
	}
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(spectrum)/2 {
		hi = len(spectrum) / 2
	}
	if lo >= hi {
		return 0
	}
	peak := 0.0
	for _, val := range spectrum[lo:hi] {
		if m := cmplx.Abs(val); m > peak {
			peak = m
		}
	}
	return clamp(peak/norm, 0, 1)
}

// Tracker feeds an Analyzer from the capture goroutine and serves the latest
// features to readers.
type Tracker struct {
	mu       sync.Mutex
	analyzer *Analyzer
	last     Features
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{analyzer: New(cfg)}
}

// Observe analyzes one block. The block is not retained.
func (t *Tracker) Observe(block []int16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = t.analyzer.Analyze(block)
}

// Features returns the most recent analysis.
func (t *Tracker) Features() Features {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Reset clears the smoothing state, e.g. after the capture source faulted.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analyzer.bassPeak, t.analyzer.midPeak, t.analyzer.treblePeak = 0, 0, 0
	t.last = Features{}
}

func envelope(current, input, attack, release float64) float64 {
	if input > current {
		return current*attack + input*(1-attack)
	}
	return current * release
}

func dynamics(value, peak float64) float64 {
	if peak < 0.01 {
		return value
	}
	ratio := value / peak
	if ratio < 0 {
		ratio = 0
	}
	expanded := math.Pow(ratio, 0.7) * peak
	if ratio > 0.85 {
		expanded *= 1.0 + (ratio-0.85)*2.0
	}
	if expanded > 1.0 {
		return 1.0
	}
	return expanded
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
