// Package imageio loads still images for the visual and scales them to a
// bounding box.
package imageio

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Size is a width/height bounding box. Zero means unbounded.
type Size struct {
	Width  int
	Height int
}

// ParseSize accepts "WxH"; an empty string means no limit.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "0" {
		return Size{}, nil
	}
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Size{}, fmt.Errorf("invalid size %q (want WxH)", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width < 0 {
		return Size{}, fmt.Errorf("invalid width in %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height < 0 {
		return Size{}, fmt.Errorf("invalid height in %q", s)
	}
	return Size{Width: width, Height: height}, nil
}

// Load decodes an image file and returns it as RGBA, scaled down to fit
// bound when bound is non-zero.
func Load(path string, bound Size) (*image.RGBA, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return Fit(img, bound), format, nil
}

// Fit returns img as a zero-origin RGBA no larger than bound, keeping the aspect
// ratio. Images that already fit are copied, never enlarged.
func Fit(img image.Image, bound Size) *image.RGBA {
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), bound)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// FitSize scales w x h down to fit inside bound, keeping at least one pixel.
func FitSize(w, h int, bound Size) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := 1.0
	if bound.Width > 0 && w > bound.Width {
		scale = float64(bound.Width) / float64(w)
	}
	if bound.Height > 0 && float64(h)*scale > float64(bound.Height) {
		scale = float64(bound.Height) / float64(h)
	}
	if scale >= 1 {
		return w, h
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
