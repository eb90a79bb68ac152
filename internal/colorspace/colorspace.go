// Package colorspace converts between RGB images and the hue/lightness/
// saturation frames the sorter works on. Every channel uses the full 0..255
// byte range; hue 255 is just short of a full turn.
package colorspace

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/guidoenr/sortwave/internal/pixelsort"
	colorful "github.com/lucasb-eyer/go-colorful"
)

var ErrSizeMismatch = errors.New("colorspace: destination size mismatch")

const hueScale = 255.0 / 360.0

// ToPixel converts one RGB color.
func ToPixel(c color.Color) pixelsort.Pixel {
	col, _ := colorful.MakeColor(c)
	h, s, l := col.Hsl()
	return pixelsort.Pixel{
		toByte(h * hueScale),
		toByte(l * 255),
		toByte(s * 255),
	}
}

// ToColor converts one working-space pixel back to RGB.
func ToColor(p pixelsort.Pixel) color.RGBA {
	col := colorful.Hsl(
		float64(p[pixelsort.ChannelHue])/hueScale,
		float64(p[pixelsort.ChannelSaturation])/255,
		float64(p[pixelsort.ChannelLightness])/255,
	)
	r, g, b := col.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// FromImage converts img into a new frame, converting rows in parallel.
func FromImage(img image.Image, workers int) *pixelsort.Frame {
	bounds := img.Bounds()
	f := pixelsort.NewFrame(bounds.Dx(), bounds.Dy())

	rgba, fast := img.(*image.RGBA)
	pixelsort.ForEachRowRange(f.Height, workers, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			row := f.Row(y)
			if fast {
				off := rgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
				for x := range row {
					i := off + x*4
					row[x] = ToPixel(color.RGBA{rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2], 255})
				}
				continue
			}
			for x := range row {
				row[x] = ToPixel(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	})
	return f
}

// ToRGBA writes f into dst, which must have the same size.
func ToRGBA(f *pixelsort.Frame, dst *image.RGBA, workers int) error {
	bounds := dst.Bounds()
	if bounds.Dx() != f.Width || bounds.Dy() != f.Height {
		return fmt.Errorf("%w: frame %dx%d, image %dx%d", ErrSizeMismatch, f.Width, f.Height, bounds.Dx(), bounds.Dy())
	}
	pixelsort.ForEachRowRange(f.Height, workers, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			off := dst.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x, p := range f.Row(y) {
				c := ToColor(p)
				i := off + x*4
				dst.Pix[i+0] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
				dst.Pix[i+3] = 255
			}
		}
	})
	return nil
}

// NewRGBA converts f into a freshly allocated image.
func NewRGBA(f *pixelsort.Frame, workers int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	_ = ToRGBA(f, dst, workers)
	return dst
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
