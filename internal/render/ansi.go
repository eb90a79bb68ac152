package render

import (
	"math"
	"strconv"
	"strings"
)

const (
	resetANSI      = "\x1b[0m"
	cursorHome     = "\x1b[H"
	clearScreen    = "\x1b[2J"
	hideCursor     = "\x1b[?25l"
	showCursor     = "\x1b[?25h"
	enterAltScreen = "\x1b[?1049h"
	exitAltScreen  = "\x1b[?1049l"
)

var precomputedANSI [256]string

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

// rgbToANSI maps a color onto the xterm 256-colour cube or its gray ramp.
func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
}

// writeTrueColor appends an SGR sequence for a 24-bit color. base is 38 for
// foreground and 48 for background.
func writeTrueColor(b *strings.Builder, base int, r, g, bl uint8) {
	var buf [24]byte
	out := append(buf[:0], "\x1b["...)
	out = strconv.AppendInt(out, int64(base), 10)
	out = append(out, ";2;"...)
	out = strconv.AppendInt(out, int64(r), 10)
	out = append(out, ';')
	out = strconv.AppendInt(out, int64(g), 10)
	out = append(out, ';')
	out = strconv.AppendInt(out, int64(bl), 10)
	out = append(out, 'm')
	b.Write(out)
}

// statusBar pads or truncates text to exactly width cells.
func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return text + strings.Repeat(" ", width-len(runes))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
