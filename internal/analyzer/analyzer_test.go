package analyzer

import (
	"math"
	"testing"
)

func sineBlock(freq float64, amplitude float64, frames int) []int16 {
	block := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/44100))
		block[i*2] = v
		block[i*2+1] = v
	}
	return block
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0:   1,
		1:   1,
		2:   2,
		3:   4,
		5:   8,
		16:  16,
		31:  32,
		257: 512,
		705: 1024,
	}
	for input, want := range cases {
		if got := nextPow2(input); got != want {
			t.Fatalf("nextPow2(%d)=%d want=%d", input, got, want)
		}
	}
}

func TestDynamicsWithLowPeakReturnsValue(t *testing.T) {
	if got := dynamics(0.5, 0.0); got != 0.5 {
		t.Fatalf("dynamics for zero peak: got=%f want=0.5", got)
	}
}

func TestClamp(t *testing.T) {
	if clamp(2, 0, 1) != 1 {
		t.Fatalf("expected clamp high to be 1")
	}
	if clamp(-1, 0, 1) != 0 {
		t.Fatalf("expected clamp low to be 0")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("expected clamp middle to be unchanged")
	}
}

func TestAnalyzeSilence(t *testing.T) {
	a := New(Config{})
	f := a.Analyze(make([]int16, 705*2))
	if f != (Features{}) {
		t.Fatalf("expected zero features for silence, got %+v", f)
	}
	if f.Dominant() != "" {
		t.Fatalf("silence has dominant band %q", f.Dominant())
	}
	if got := a.Analyze(nil); got != (Features{}) {
		t.Fatalf("expected zero features for empty block")
	}
}

func TestAnalyzeSeparatesBands(t *testing.T) {
	low := New(Config{}).Analyze(sineBlock(100, 0.8, 705))
	if low.Dominant() != "bass" {
		t.Fatalf("100 Hz tone: dominant=%q features=%+v", low.Dominant(), low)
	}
	high := New(Config{}).Analyze(sineBlock(4000, 0.8, 705))
	if high.Dominant() != "treble" {
		t.Fatalf("4 kHz tone: dominant=%q features=%+v", high.Dominant(), high)
	}
	if math.Abs(high.RMS-0.8/math.Sqrt2) > 0.02 {
		t.Fatalf("RMS=%f want≈%f", high.RMS, 0.8/math.Sqrt2)
	}
}

func TestTrackerKeepsLatest(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Observe(sineBlock(440, 0.5, 705))
	if tr.Features().Mid == 0 {
		t.Fatalf("expected mid energy for 440 Hz")
	}
	tr.Reset()
	if tr.Features() != (Features{}) {
		t.Fatalf("Reset did not clear features")
	}
}
