package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"regexp"
	"strings"
	"testing"
)

func TestLetterbox(t *testing.T) {
	cases := []struct {
		name       string
		srcW, srcH int
		dstW, dstH int
		want       image.Rectangle
	}{
		{"same aspect", 320, 240, 640, 480, image.Rect(0, 0, 640, 480)},
		{"pillarbox", 100, 100, 200, 100, image.Rect(50, 0, 150, 100)},
		{"letterbox", 200, 100, 100, 100, image.Rect(0, 25, 100, 75)},
		{"empty source", 0, 10, 100, 100, image.Rectangle{}},
	}
	for _, tc := range cases {
		if got := Letterbox(tc.srcW, tc.srcH, tc.dstW, tc.dstH); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{"sdl": ModeSDL, "Terminal": ModeTerminal, "ascii": ModeASCII} {
		got, err := ParseMode(input)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q)=%q,%v want %q", input, got, err, want)
		}
	}
	if _, err := ParseMode("opengl"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRGBToANSI(t *testing.T) {
	if got := rgbToANSI(0, 0, 0); got != 232 {
		t.Fatalf("black: got %d want 232", got)
	}
	if got := rgbToANSI(1, 1, 1); got != 255 {
		t.Fatalf("white: got %d want 255", got)
	}
	if got := rgbToANSI(1, 0, 0); got != 196 {
		t.Fatalf("red: got %d want 196", got)
	}
}

func TestStatusBar(t *testing.T) {
	if got := statusBar("abc", 5); got != "abc  " {
		t.Fatalf("pad: got %q", got)
	}
	if got := statusBar("abcdef", 4); got != "abcd" {
		t.Fatalf("truncate: got %q", got)
	}
}

func TestGlyphEnds(t *testing.T) {
	p := Palette("default")
	if glyph(p, 0) != ' ' || glyph(p, 1) != '@' {
		t.Fatalf("unexpected ramp ends %q %q", glyph(p, 0), glyph(p, 1))
	}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

var redFg = regexp.MustCompile(`\x1b\[38;2;25[45];0;0m`)

func TestTerminalPresentBlocks(t *testing.T) {
	var out bytes.Buffer
	p, err := New(Config{Mode: ModeTerminal, Out: &out, Width: 8, Height: 5, Workers: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out.Reset()
	if err := p.Present(solid(16, 16, color.RGBA{R: 255, A: 255}), "level 12"); err != nil {
		t.Fatalf("Present: %v", err)
	}
	frame := out.String()
	if !redFg.MatchString(frame) {
		t.Fatalf("expected red truecolor foreground in %q", frame)
	}
	if got := strings.Count(frame, "\r\n"); got != 4 {
		t.Fatalf("expected 4 grid rows, got %d", got)
	}
	if !strings.HasSuffix(frame, statusBar("level 12", 8)) {
		t.Fatalf("status bar missing from %q", frame)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.HasSuffix(out.String(), exitAltScreen) {
		t.Fatalf("Close did not leave the alternate screen")
	}
}

func TestTerminalPresentASCII(t *testing.T) {
	var out bytes.Buffer
	p, err := New(Config{Mode: ModeASCII, Out: &out, Width: 4, Height: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out.Reset()
	if err := p.Present(solid(4, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255}), ""); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if !strings.Contains(out.String(), colorCode(255)+"@@@@") {
		t.Fatalf("expected a row of bright glyphs, got %q", out.String())
	}
	if err := p.Present(nil, ""); err == nil {
		t.Fatalf("expected error for nil image")
	}
}

func TestControlForChar(t *testing.T) {
	cases := map[rune]Control{
		'r': ControlRotate,
		'K': ControlKey,
		' ': ControlPause,
		'+': ControlThresholdUp,
		'=': ControlThresholdUp,
		'-': ControlThresholdDown,
	}
	for r, want := range cases {
		if got, ok := ControlForChar(r); !ok || got != want {
			t.Fatalf("%q: got %v, %t want %v", r, got, ok, want)
		}
	}
	if _, ok := ControlForChar('x'); ok {
		t.Fatalf("x should not be bound")
	}
}

func TestSDLStubOrWindow(t *testing.T) {
	if SupportsSDL() {
		t.Skip("built with sdl; window creation needs a display")
	}
	if _, err := New(Config{Mode: ModeSDL}); err == nil || errors.Is(err, ErrPresenterQuit) {
		t.Fatalf("expected a build error from the stub, got %v", err)
	}
}
