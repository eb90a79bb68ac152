package pixelsort

import "fmt"

// Rotation counts clockwise quarter turns applied before masking.
type Rotation int

const (
	RotateNone Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

var rotationNames = [...]string{"none", "90", "180", "270"}

// ParseRotation maps the 0..3 configuration value onto a Rotation.
func ParseRotation(v int) (Rotation, error) {
	r := Rotation(v)
	if !r.Valid() {
		return RotateNone, fmt.Errorf("%w: %d (want 0..3)", ErrInvalidRotation, v)
	}
	return r, nil
}

func (r Rotation) Valid() bool {
	return r >= RotateNone && r <= Rotate270
}

// Inverse returns the rotation that restores the original orientation.
func (r Rotation) Inverse() Rotation {
	return (4 - r%4) % 4
}

// Next cycles none -> 90 -> 180 -> 270 -> none.
func (r Rotation) Next() Rotation {
	return (r + 1) % 4
}

func (r Rotation) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rotation(%d)", int(r))
	}
	return rotationNames[r]
}

// Rotate returns a new frame turned clockwise by r. Quarter and three-quarter
// turns swap width and height.
func Rotate(src *Frame, r Rotation) *Frame {
	w, h := src.Width, src.Height
	switch r {
	case Rotate90:
		dst := NewFrame(h, w)
		for y := 0; y < h; y++ {
			row := src.Row(y)
			for x, p := range row {
				dst.Pix[x*h+(h-1-y)] = p
			}
		}
		return dst
	case Rotate180:
		dst := NewFrame(w, h)
		n := len(src.Pix)
		for i, p := range src.Pix {
			dst.Pix[n-1-i] = p
		}
		return dst
	case Rotate270:
		dst := NewFrame(h, w)
		for y := 0; y < h; y++ {
			row := src.Row(y)
			for x, p := range row {
				dst.Pix[(w-1-x)*h+y] = p
			}
		}
		return dst
	default:
		return src.Clone()
	}
}
