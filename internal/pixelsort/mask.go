package pixelsort

import "fmt"

const (
	MaskExcluded uint8 = 0
	MaskIncluded uint8 = 255
)

// Mask flags which pixels of a congruent frame take part in run sorting.
type Mask struct {
	Width  int
	Height int
	Bits   []uint8
}

// Row returns the mask bytes of row y.
func (m *Mask) Row(y int) []uint8 {
	start := y * m.Width
	return m.Bits[start : start+m.Width]
}

// Congruent reports an error unless the mask and frame share dimensions.
func (m *Mask) Congruent(f *Frame) error {
	if m == nil {
		return fmt.Errorf("%w: nil mask", ErrDimensionMismatch)
	}
	if m.Width != f.Width || m.Height != f.Height || len(m.Bits) != len(f.Pix) {
		return fmt.Errorf("%w: mask %dx%d, frame %dx%d", ErrDimensionMismatch, m.Width, m.Height, f.Width, f.Height)
	}
	return nil
}

// BuildMask includes a pixel iff its lightness lies in [low, high]. Hue and
// saturation are tested against their full range, so they never exclude.
func BuildMask(f *Frame, low, high uint8) *Mask {
	lower := Pixel{0, low, 0}
	upper := Pixel{255, high, 255}

	m := &Mask{
		Width:  f.Width,
		Height: f.Height,
		Bits:   make([]uint8, len(f.Pix)),
	}
	for i, p := range f.Pix {
		if inRange(p, lower, upper) {
			m.Bits[i] = MaskIncluded
		}
	}
	return m
}

func inRange(p, lower, upper Pixel) bool {
	for c := range p {
		if p[c] < lower[c] || p[c] > upper[c] {
			return false
		}
	}
	return true
}
