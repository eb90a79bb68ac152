package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guidoenr/sortwave/internal/audio"
	"github.com/guidoenr/sortwave/internal/colorspace"
	"github.com/guidoenr/sortwave/internal/params"
	"github.com/guidoenr/sortwave/internal/pixelsort"
	"github.com/guidoenr/sortwave/internal/render"
)

type fakePresenter struct {
	mu       sync.Mutex
	frames   []*image.RGBA
	statuses []string
	// done returns true to end the run after this frame.
	done   func(img *image.RGBA, status string, n int) bool
	closed bool
}

func (f *fakePresenter) Present(img *image.RGBA, status string) error {
	cp := image.NewRGBA(img.Rect)
	copy(cp.Pix, img.Pix)

	f.mu.Lock()
	f.frames = append(f.frames, cp)
	f.statuses = append(f.statuses, status)
	n := len(f.frames)
	f.mu.Unlock()

	if f.done != nil && f.done(cp, status, n) {
		return render.ErrPresenterQuit
	}
	if n > 2000 {
		return errors.New("condition never met")
	}
	return nil
}

func (f *fakePresenter) Close() error {
	f.closed = true
	return nil
}

type failingSource struct{}

func (failingSource) ReadBlock([]int16) error { return errors.New("device unplugged") }
func (failingSource) Name() string            { return "failing" }
func (failingSource) Close() error            { return nil }

func fixtureImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*15 + 10),
				G: uint8(y*20 + 5),
				B: uint8((x*y)%200 + 30),
				A: 255,
			})
		}
	}
	return img
}

func constantSource(v int16) audio.Source {
	pcm := make([]int16, audio.BlockSamples*4)
	for i := range pcm {
		pcm[i] = v
	}
	return audio.NewPCMSource("constant", pcm, audio.SampleRate, false)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestApp(t *testing.T, src audio.Source, p params.Parameters, pres *fakePresenter) *App {
	t.Helper()
	a, err := New(Config{
		Image:       fixtureImage(),
		Params:      p,
		Workers:     2,
		Log:         quietLogger(),
		AudioSource: src,
		Presenter:   pres,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func runWithTimeout(t *testing.T, a *App) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.Run(ctx)
	if ctx.Err() != nil {
		t.Fatalf("run timed out")
	}
	return err
}

func expectedFrame(t *testing.T, low, high uint8, p params.Parameters) []byte {
	t.Helper()
	frame := colorspace.FromImage(fixtureImage(), 1)
	if low <= high {
		sorted, err := pixelsort.Sort(frame, low, high, p.Rotation, p.Key)
		if err != nil {
			t.Fatalf("Sort: %v", err)
		}
		frame = sorted
	}
	return colorspace.NewRGBA(frame, 1).Pix
}

func TestRunStopsWhenPresenterQuits(t *testing.T) {
	pres := &fakePresenter{done: func(_ *image.RGBA, _ string, n int) bool { return n == 3 }}
	a := newTestApp(t, constantSource(0), params.Defaults(), pres)
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pres.frames) != 3 {
		t.Fatalf("presented %d frames, want 3", len(pres.frames))
	}
	if got := pres.frames[0].Rect; got != image.Rect(0, 0, 16, 12) {
		t.Fatalf("frame bounds %v", got)
	}
}

func TestSilenceLeavesImageUnsorted(t *testing.T) {
	p := params.Defaults()
	want := expectedFrame(t, 0, 0, p)
	pres := &fakePresenter{done: func(_ *image.RGBA, _ string, n int) bool { return n == 5 }}
	a := newTestApp(t, constantSource(0), p, pres)
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, f := range pres.frames {
		if !bytes.Equal(f.Pix, want) {
			t.Fatalf("frame %d differs from the unsorted image", i)
		}
	}
}

func TestFullLevelSortsWholeRows(t *testing.T) {
	p := params.Defaults()
	want := expectedFrame(t, 0, 255, p)
	pres := &fakePresenter{done: func(img *image.RGBA, _ string, _ int) bool { return bytes.Equal(img.Pix, want) }}
	a := newTestApp(t, constantSource(32767), p, pres)
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := a.Status(); st.Level != 255 {
		t.Fatalf("status level %d want 255", st.Level)
	}
}

func TestLowAboveLevelPassesThrough(t *testing.T) {
	p := params.Defaults()
	p.Low = 200
	want := expectedFrame(t, 200, 0, p)
	pres := &fakePresenter{done: func(_ *image.RGBA, _ string, n int) bool { return n == 3 }}
	a := newTestApp(t, constantSource(0), p, pres)
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(pres.frames[2].Pix, want) {
		t.Fatalf("expected the source image when low exceeds the level")
	}
}

func TestReadFaultKeepsRendering(t *testing.T) {
	pres := &fakePresenter{done: func(_ *image.RGBA, status string, _ int) bool {
		return strings.Contains(status, "AUDIO FAULT")
	}}
	a := newTestApp(t, failingSource{}, params.Defaults(), pres)
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(a.sampler.Err(), audio.ErrDeviceRead) {
		t.Fatalf("sampler error %v", a.sampler.Err())
	}
	if a.level() != 0 {
		t.Fatalf("level after fault %d", a.level())
	}
	if st := a.Status(); st.Fault == "" || st.Level != 0 {
		t.Fatalf("status does not report the fault: %+v", st)
	}
}

func TestContextCancelStopsRun(t *testing.T) {
	pres := &fakePresenter{}
	a := newTestApp(t, constantSource(1000), params.Defaults(), pres)
	a.cfg.TargetFPS = 200
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.sampler.Running() {
		t.Fatalf("sampler still running after Run returned")
	}
}

func TestApplyControl(t *testing.T) {
	a := newTestApp(t, constantSource(0), params.Defaults(), &fakePresenter{})
	a.applyControl(render.ControlRotate)
	a.applyControl(render.ControlKey)
	a.applyControl(render.ControlThresholdUp)
	a.applyControl(render.ControlPause)
	p := a.Params().Get()
	if p.Rotation != pixelsort.Rotate180 || p.Key != pixelsort.KeyLightness || p.Low != lowStep || !p.Paused {
		t.Fatalf("unexpected parameters %+v", p)
	}
	for i := 0; i < 3; i++ {
		a.applyControl(render.ControlThresholdDown)
	}
	if got := a.Params().Get().Low; got != 0 {
		t.Fatalf("low should clamp at 0, got %d", got)
	}
}

func TestPausedFrameFollowsParameterEdits(t *testing.T) {
	pres := &fakePresenter{}
	a := newTestApp(t, constantSource(32767), params.Defaults(), pres)
	a.sampler.Start()
	deadline := time.Now().Add(5 * time.Second)
	for a.level() != 255 {
		if time.Now().After(deadline) {
			t.Fatalf("level never reached 255, got %d", a.level())
		}
		time.Sleep(time.Millisecond)
	}

	step := func() []byte {
		t.Helper()
		if err := a.step(); err != nil {
			t.Fatalf("step: %v", err)
		}
		pres.mu.Lock()
		defer pres.mu.Unlock()
		return pres.frames[len(pres.frames)-1].Pix
	}

	first := step()
	if _, err := a.Params().Update(func(p *params.Parameters) { p.Paused = true }); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got := step(); !bytes.Equal(got, first) {
		t.Fatalf("pausing changed the frame")
	}

	// Same path the control panel takes: a direct store edit.
	edited, err := a.Params().Update(func(p *params.Parameters) {
		p.Key = pixelsort.KeyLightness
		p.Rotation = pixelsort.RotateNone
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got := step()
	if bytes.Equal(got, first) {
		t.Fatalf("frame unchanged after editing key and rotation while paused")
	}
	if !bytes.Equal(got, expectedFrame(t, 0, 255, edited)) {
		t.Fatalf("paused frame does not match the edited parameters")
	}
	if again := step(); !bytes.Equal(again, got) {
		t.Fatalf("paused frame changed without an edit")
	}
}

func TestDeliverQuitReturnsOnCancel(t *testing.T) {
	events := make(chan inputEvent, 1)
	events <- inputEvent{control: render.ControlKey}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		deliver(ctx, events, inputEvent{quit: true})
		close(done)
	}()
	// A control on a full buffer is dropped.
	deliver(ctx, events, inputEvent{control: render.ControlRotate})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("quit delivery blocked after cancel")
	}
	if evt := <-events; evt.control != render.ControlKey {
		t.Fatalf("buffered event replaced: %+v", evt)
	}
}

func TestTranslateKey(t *testing.T) {
	if evt, ok := translateKey('q', 0); !ok || !evt.quit {
		t.Fatalf("q should quit")
	}
	if evt, ok := translateKey('k', 0); !ok || evt.control != render.ControlKey {
		t.Fatalf("k should cycle the key")
	}
	if evt, ok := translateKey('+', 0); !ok || evt.control != render.ControlThresholdUp {
		t.Fatalf("+ should raise the low bound")
	}
	if evt, ok := translateKey('-', 0); !ok || evt.control != render.ControlThresholdDown {
		t.Fatalf("- should lower the low bound")
	}
	if _, ok := translateKey('z', 0); ok {
		t.Fatalf("z should be ignored")
	}
}

func TestNewRejectsMissingImage(t *testing.T) {
	if _, err := New(Config{Log: quietLogger()}); err == nil {
		t.Fatalf("expected error without an image")
	}
}

func TestProfilerWritesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.csv")
	pres := &fakePresenter{done: func(_ *image.RGBA, _ string, n int) bool { return n == 2 }}
	a, err := New(Config{
		Image:       fixtureImage(),
		Params:      params.Defaults(),
		Log:         quietLogger(),
		AudioSource: constantSource(0),
		Presenter:   pres,
		ProfilePath: path,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	sections := map[string]int{}
	for _, rec := range records[1:] {
		sections[rec[2]]++
	}
	// The quitting frame fails in Present, so only the first one is complete.
	for _, name := range []string{"sort", "convert", "present", "frame_total"} {
		if sections[name] == 0 {
			t.Fatalf("section %q missing: %v", name, sections)
		}
	}
}
