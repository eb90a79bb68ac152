package render

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/term"
)

const (
	fallbackCols = 80
	fallbackRows = 24
)

// terminalPresenter draws frames with ANSI escapes. In block mode every cell
// is an upper half block carrying two vertically stacked pixels; in ascii
// mode the pair is averaged into one glyph with a 256-colour foreground.
type terminalPresenter struct {
	out     io.Writer
	fd      int
	cols    int
	rows    int
	ascii   bool
	palette []rune
	workers int

	grid  *image.RGBA
	lines []string
	buf   bytes.Buffer
}

func newTerminal(cfg Config, ascii bool) *terminalPresenter {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	fd := -1
	if f, ok := out.(*os.File); ok {
		fd = int(f.Fd())
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	t := &terminalPresenter{
		out:     out,
		fd:      fd,
		cols:    cfg.Width,
		rows:    cfg.Height,
		ascii:   ascii,
		palette: Palette(cfg.Palette),
		workers: workers,
	}
	io.WriteString(t.out, enterAltScreen+clearScreen+cursorHome+hideCursor)
	return t
}

func (t *terminalPresenter) size() (int, int) {
	cols, rows := t.cols, t.rows
	if (cols <= 0 || rows <= 0) && t.fd >= 0 && term.IsTerminal(t.fd) {
		if w, h, err := term.GetSize(t.fd); err == nil && w > 0 && h > 0 {
			if cols <= 0 {
				cols = w
			}
			if rows <= 0 {
				rows = h
			}
		}
	}
	if cols <= 0 {
		cols = fallbackCols
	}
	if rows <= 0 {
		rows = fallbackRows
	}
	return cols, rows
}

func (t *terminalPresenter) Present(img *image.RGBA, status string) error {
	if img == nil {
		return fmt.Errorf("present: nil image")
	}
	cols, rows := t.size()
	gridRows := rows - 1
	if gridRows < 1 {
		gridRows = 1
	}

	resized := t.ensureGrid(cols, gridRows*2)
	xdraw.Draw(t.grid, t.grid.Bounds(), image.Black, image.Point{}, xdraw.Src)
	src := img.Bounds()
	dst := Letterbox(src.Dx(), src.Dy(), cols, gridRows*2)
	xdraw.ApproxBiLinear.Scale(t.grid, dst, img, src, xdraw.Src, nil)

	if len(t.lines) != gridRows {
		t.lines = make([]string, gridRows)
	}
	t.renderRows(cols, gridRows)

	t.buf.Reset()
	if resized {
		t.buf.WriteString(clearScreen)
	}
	t.buf.WriteString(cursorHome)
	for _, line := range t.lines {
		t.buf.WriteString(line)
		t.buf.WriteString("\r\n")
	}
	if rows > 1 {
		t.buf.WriteString(statusBar(status, cols))
	}
	if _, err := t.out.Write(t.buf.Bytes()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (t *terminalPresenter) ensureGrid(w, h int) bool {
	if t.grid != nil && t.grid.Rect.Dx() == w && t.grid.Rect.Dy() == h {
		return false
	}
	t.grid = image.NewRGBA(image.Rect(0, 0, w, h))
	return true
}

func (t *terminalPresenter) renderRows(cols, gridRows int) {
	numWorkers := t.workers
	if numWorkers > gridRows {
		numWorkers = gridRows
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	rowJobs := make(chan int, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var builder strings.Builder
			for y := range rowJobs {
				builder.Reset()
				if t.ascii {
					builder.Grow(cols * 4)
					t.glyphRow(&builder, y, cols)
				} else {
					builder.Grow(cols * 24)
					t.blockRow(&builder, y, cols)
				}
				builder.WriteString(resetANSI)
				t.lines[y] = builder.String()
			}
		}()
	}

	for y := 0; y < gridRows; y++ {
		rowJobs <- y
	}
	close(rowJobs)
	wg.Wait()
}

func (t *terminalPresenter) blockRow(b *strings.Builder, y, cols int) {
	var lastFg, lastBg [3]uint8
	first := true
	for x := 0; x < cols; x++ {
		top := t.grid.RGBAAt(x, 2*y)
		bottom := t.grid.RGBAAt(x, 2*y+1)
		fg := [3]uint8{top.R, top.G, top.B}
		bg := [3]uint8{bottom.R, bottom.G, bottom.B}
		if first || fg != lastFg {
			writeTrueColor(b, 38, fg[0], fg[1], fg[2])
			lastFg = fg
		}
		if first || bg != lastBg {
			writeTrueColor(b, 48, bg[0], bg[1], bg[2])
			lastBg = bg
		}
		first = false
		b.WriteRune('▀')
	}
}

func (t *terminalPresenter) glyphRow(b *strings.Builder, y, cols int) {
	lastColor := -1
	for x := 0; x < cols; x++ {
		top := t.grid.RGBAAt(x, 2*y)
		bottom := t.grid.RGBAAt(x, 2*y+1)
		r := (float64(top.R) + float64(bottom.R)) / 510
		g := (float64(top.G) + float64(bottom.G)) / 510
		bl := (float64(top.B) + float64(bottom.B)) / 510
		lum := 0.299*r + 0.587*g + 0.114*bl
		if fg := rgbToANSI(r, g, bl); fg != lastColor {
			b.WriteString(colorCode(fg))
			lastColor = fg
		}
		b.WriteRune(glyph(t.palette, lum))
	}
}

func (t *terminalPresenter) Close() error {
	_, err := io.WriteString(t.out, resetANSI+showCursor+exitAltScreen)
	return err
}
