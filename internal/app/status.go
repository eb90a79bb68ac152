package app

import (
	"strconv"
	"strings"

	"github.com/guidoenr/sortwave/internal/params"
)

func (a *App) statusLine(p params.Parameters, level uint8) string {
	var b strings.Builder
	b.Grow(128)
	b.WriteString("level ")
	b.WriteString(strconv.Itoa(int(level)))
	b.WriteString(" low ")
	b.WriteString(strconv.Itoa(int(p.Low)))
	b.WriteString(" | rot ")
	b.WriteString(p.Rotation.String())
	b.WriteString(" key ")
	b.WriteString(p.Key.String())
	if p.Paused {
		b.WriteString(" PAUSED")
	}
	b.WriteString(" | fps ")
	appendFloat(&b, a.FPS(), 1)
	b.WriteString(" | ")
	b.WriteString(a.sampler.SourceName())
	if a.sampler.Err() != nil {
		b.WriteString(" AUDIO FAULT")
	} else {
		feat := a.bands.Features()
		b.WriteString(" bass ")
		appendFloat(&b, feat.Bass, 2)
		b.WriteString(" mid ")
		appendFloat(&b, feat.Mid, 2)
		b.WriteString(" treble ")
		appendFloat(&b, feat.Treble, 2)
	}
	return b.String()
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}
