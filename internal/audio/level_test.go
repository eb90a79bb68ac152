package audio

import "testing"

func TestLevelFromPeak(t *testing.T) {
	cases := map[int]uint8{
		0:     0,
		-5:    0,
		1:     0,
		129:   1,
		16384: 128,
		32767: 255,
		32768: 255,
	}
	for peak, want := range cases {
		if got := LevelFromPeak(peak); got != want {
			t.Fatalf("LevelFromPeak(%d)=%d want=%d", peak, got, want)
		}
	}
}

func TestPeakLevelUsesAbsoluteMaximum(t *testing.T) {
	block := []int16{100, -16384, 2000, 0}
	if got := PeakLevel(block); got != 128 {
		t.Fatalf("PeakLevel=%d want=128", got)
	}
	if got := PeakLevel([]int16{-32768}); got != 255 {
		t.Fatalf("PeakLevel(-32768)=%d want=255", got)
	}
	if got := PeakLevel(nil); got != 0 {
		t.Fatalf("PeakLevel(nil)=%d want=0", got)
	}
}

func TestBlockSize(t *testing.T) {
	if BlockFrames != 705 {
		t.Fatalf("BlockFrames=%d want=705", BlockFrames)
	}
	if BlockSamples != BlockFrames*Channels {
		t.Fatalf("BlockSamples=%d", BlockSamples)
	}
}
