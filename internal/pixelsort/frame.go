package pixelsort

import (
	"errors"
	"fmt"
)

// Channel indices of the working color space.
const (
	ChannelHue        = 0
	ChannelLightness  = 1
	ChannelSaturation = 2
)

var (
	ErrNilFrame          = errors.New("pixelsort: nil frame")
	ErrDimensionMismatch = errors.New("pixelsort: dimension mismatch")
	ErrInvalidThreshold  = errors.New("pixelsort: low threshold above high threshold")
	ErrInvalidRotation   = errors.New("pixelsort: invalid rotation")
	ErrInvalidSortKey    = errors.New("pixelsort: invalid sort key")
)

// Pixel is one hue/lightness/saturation tuple.
type Pixel [3]uint8

// Frame is a row-major grid of pixels in the working color space.
type Frame struct {
	Width  int
	Height int
	Pix    []Pixel
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]Pixel, width*height),
	}
}

// Validate reports whether the pixel buffer matches the declared size.
func (f *Frame) Validate() error {
	if f == nil {
		return ErrNilFrame
	}
	if f.Width < 0 || f.Height < 0 || len(f.Pix) != f.Width*f.Height {
		return fmt.Errorf("%w: frame %dx%d holds %d pixels", ErrDimensionMismatch, f.Width, f.Height, len(f.Pix))
	}
	return nil
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() *Frame {
	cp := &Frame{
		Width:  f.Width,
		Height: f.Height,
		Pix:    make([]Pixel, len(f.Pix)),
	}
	copy(cp.Pix, f.Pix)
	return cp
}

// Row returns the pixels of row y. The slice aliases the frame.
func (f *Frame) Row(y int) []Pixel {
	start := y * f.Width
	return f.Pix[start : start+f.Width]
}

func (f *Frame) At(x, y int) Pixel {
	return f.Pix[y*f.Width+x]
}

func (f *Frame) Set(x, y int, p Pixel) {
	f.Pix[y*f.Width+x] = p
}

// Equal compares dimensions and every pixel.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Width != other.Width || f.Height != other.Height || len(f.Pix) != len(other.Pix) {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}
