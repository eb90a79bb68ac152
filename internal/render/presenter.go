// Package render puts sorted frames on screen: an SDL window when built with
// the sdl tag, or the terminal using half-block or glyph cells.
package render

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
)

// ErrPresenterQuit is returned by Present when the user closed the output.
var ErrPresenterQuit = errors.New("presenter quit requested")

// Presenter displays one frame per call.
type Presenter interface {
	// Present shows img and a one-line status text. It must not retain img.
	Present(img *image.RGBA, status string) error
	Close() error
}

// Mode selects the presenter implementation.
type Mode string

const (
	ModeSDL      Mode = "sdl"
	ModeTerminal Mode = "terminal"
	ModeASCII    Mode = "ascii"
)

// ModeNames lists the accepted output modes.
func ModeNames() []string {
	return []string{string(ModeSDL), string(ModeTerminal), string(ModeASCII)}
}

func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sdl", "window":
		return ModeSDL, nil
	case "terminal", "term", "blocks":
		return ModeTerminal, nil
	case "ascii", "text":
		return ModeASCII, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want %s)", name, strings.Join(ModeNames(), ", "))
	}
}

// Control is an in-window key action forwarded to the caller.
type Control int

const (
	ControlRotate Control = iota
	ControlKey
	ControlPause
	ControlThresholdUp
	ControlThresholdDown
)

func (c Control) String() string {
	switch c {
	case ControlRotate:
		return "rotate"
	case ControlKey:
		return "key"
	case ControlPause:
		return "pause"
	case ControlThresholdUp:
		return "low+"
	case ControlThresholdDown:
		return "low-"
	default:
		return fmt.Sprintf("Control(%d)", int(c))
	}
}

// charControls maps printable keys onto controls for every presenter.
var charControls = map[rune]Control{
	'r': ControlRotate,
	'R': ControlRotate,
	'k': ControlKey,
	'K': ControlKey,
	' ': ControlPause,
	'+': ControlThresholdUp,
	'=': ControlThresholdUp,
	'-': ControlThresholdDown,
	'_': ControlThresholdDown,
}

// ControlForChar returns the control bound to a printable key.
func ControlForChar(r rune) (Control, bool) {
	c, ok := charControls[r]
	return c, ok
}

// Config configures a Presenter.
type Config struct {
	Mode Mode
	// Out receives terminal output. Defaults to os.Stdout.
	Out io.Writer
	// Width and Height fix the terminal grid in cells. Zero queries the
	// terminal on every frame.
	Width   int
	Height  int
	Workers int
	Palette string
	Title   string
	// OnControl receives key actions from presenters that own their input
	// (the SDL window). It is called on the presenting goroutine.
	OnControl func(Control)
}

// New creates the presenter selected by cfg.Mode.
func New(cfg Config) (Presenter, error) {
	if cfg.Title == "" {
		cfg.Title = "sortwave"
	}
	switch cfg.Mode {
	case ModeSDL:
		return newSDL(cfg)
	case ModeTerminal, "":
		return newTerminal(cfg, false), nil
	case ModeASCII:
		return newTerminal(cfg, true), nil
	default:
		return nil, fmt.Errorf("unknown output mode %q", cfg.Mode)
	}
}

// Letterbox returns the largest rectangle with the aspect ratio of a
// srcW x srcH image that fits centered inside dstW x dstH.
func Letterbox(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}
	w, h := dstW, dstW*srcH/srcW
	if h > dstH {
		w, h = dstH*srcW/srcH, dstH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
