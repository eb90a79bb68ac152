package audio

import "math"

const maxSampleMagnitude = 32767.0

// PeakLevel maps the largest absolute sample of a block onto [0,255]:
// round(peak/32767*255), clamped. An empty block is silent.
func PeakLevel(block []int16) uint8 {
	peak := 0
	for _, s := range block {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return LevelFromPeak(peak)
}

// LevelFromPeak scales an absolute sample magnitude onto [0,255].
func LevelFromPeak(peak int) uint8 {
	if peak <= 0 {
		return 0
	}
	level := math.Round(float64(peak) / maxSampleMagnitude * 255)
	if level > 255 {
		return 255
	}
	return uint8(level)
}
