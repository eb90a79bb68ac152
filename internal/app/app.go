package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/guidoenr/sortwave/internal/analyzer"
	"github.com/guidoenr/sortwave/internal/audio"
	"github.com/guidoenr/sortwave/internal/colorspace"
	"github.com/guidoenr/sortwave/internal/params"
	"github.com/guidoenr/sortwave/internal/pixelsort"
	"github.com/guidoenr/sortwave/internal/render"
	"github.com/guidoenr/sortwave/internal/web"
	"golang.org/x/sync/errgroup"
)

// Config configures the application runtime.
type Config struct {
	// Image is the picture to sort, already decoded and sized.
	Image *image.RGBA
	// Source is an audio file path, a capture device name substring, or ""
	// for the auto-detected input device.
	Source       string
	DisableAudio bool
	Output       render.Mode
	Width        int
	Height       int
	Palette      string
	Workers      int
	// TargetFPS caps the frame rate. Zero renders as fast as the sort and
	// the presenter allow.
	TargetFPS   float64
	Params      params.Parameters
	WebPort     int
	ProfilePath string
	// Keyboard enables terminal key controls.
	Keyboard bool
	Log      *log.Logger

	// AudioSource and Presenter replace the ones New would open.
	AudioSource audio.Source
	Presenter   render.Presenter
}

// App ties together audio sampling, sorting and presentation.
type App struct {
	cfg       Config
	log       *log.Logger
	params    *params.Store
	frame     *pixelsort.Frame
	sorter    *pixelsort.Sorter
	sampler   *audio.Sampler
	bands     *analyzer.Tracker
	presenter render.Presenter
	web       *web.Server
	profiler  *profiler

	out *image.RGBA
	// rendered holds the parameters out was sorted with; valid when sorted.
	rendered params.Parameters
	sorted   bool
	last     time.Time

	fps       atomic.Uint64
	lastLevel atomic.Uint32
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.Image == nil {
		return nil, errors.New("no image to sort")
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "", 0)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = pixelsort.DefaultWorkers()
	}
	if cfg.TargetFPS < 0 {
		cfg.TargetFPS = 0
	}

	store, err := params.NewStore(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}

	b := cfg.Image.Bounds()
	a := &App{
		cfg:    cfg,
		log:    cfg.Log,
		params: store,
		frame:  colorspace.FromImage(cfg.Image, cfg.Workers),
		sorter: pixelsort.NewSorter(cfg.Workers),
		out:    image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy())),
	}

	src, sampleRate, err := a.openSource()
	if err != nil {
		return nil, err
	}
	a.bands = analyzer.NewTracker(analyzer.Config{SampleRate: sampleRate, Channels: audio.Channels})
	a.sampler = audio.NewSampler(src, audio.Config{
		Log: cfg.Log,
		Tap: a.bands.Observe,
	})

	a.presenter = cfg.Presenter
	if a.presenter == nil {
		a.presenter, err = render.New(render.Config{
			Mode:      cfg.Output,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Workers:   cfg.Workers,
			Palette:   cfg.Palette,
			OnControl: a.applyControl,
		})
		if err != nil {
			a.sampler.Close()
			return nil, fmt.Errorf("presenter: %w", err)
		}
	}

	if cfg.WebPort > 0 {
		a.web = web.NewServer(a, cfg.Log)
	}
	a.profiler = newProfiler(cfg.ProfilePath, cfg.Log)
	return a, nil
}

func (a *App) openSource() (audio.Source, float64, error) {
	src := a.cfg.AudioSource
	switch {
	case src != nil:
	case a.cfg.DisableAudio:
		src = audio.NewSynthSource(time.Now().UnixNano(), true)
		a.log.Println("audio disabled, using synthetic generator")
	default:
		opened, err := audio.Open(a.cfg.Source)
		if err != nil {
			return nil, 0, fmt.Errorf("audio capture: %w", err)
		}
		src = opened
		a.log.Printf("audio capture started on %q", src.Name())
	}

	rate := float64(audio.SampleRate)
	if pcm, ok := src.(*audio.PCMSource); ok {
		rate = float64(pcm.SampleRate())
	}
	return src, rate, nil
}

// Run starts sampling and the render loop and blocks until ctx is cancelled,
// the user quits, or a frame fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	a.sampler.Start()
	defer a.sampler.Stop()

	g.Go(func() error {
		a.watchFaults(gctx)
		return nil
	})

	var events <-chan inputEvent
	if a.cfg.Keyboard && a.cfg.Output != render.ModeSDL {
		events = a.startInputListener(gctx, g)
	}

	if a.web != nil {
		addr := ":" + strconv.Itoa(a.cfg.WebPort)
		g.Go(func() error {
			return a.web.Run(gctx, addr)
		})
	}

	err := a.loop(gctx, events)
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func (a *App) loop(ctx context.Context, events <-chan inputEvent) error {
	var tick <-chan time.Time
	if a.cfg.TargetFPS > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / a.cfg.TargetFPS))
		defer ticker.Stop()
		tick = ticker.C
	}
	a.last = time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if evt.quit {
				return nil
			}
			a.applyControl(evt.control)
			continue
		default:
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}

		if err := a.step(); err != nil {
			if errors.Is(err, render.ErrPresenterQuit) {
				return nil
			}
			return err
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	var errs []error
	if a.presenter != nil {
		errs = append(errs, a.presenter.Close())
	}
	if a.sampler != nil {
		errs = append(errs, a.sampler.Close())
	}
	errs = append(errs, a.profiler.Close())
	return errors.Join(errs...)
}

func (a *App) step() error {
	a.profiler.beginFrame()

	now := time.Now()
	if delta := now.Sub(a.last).Seconds(); delta > 0 {
		a.fps.Store(math.Float64bits(1.0 / delta))
	}
	a.last = now

	p := a.params.Get()
	level := a.level()
	a.lastLevel.Store(uint32(level))

	if !p.Paused || !a.sorted || !sameSort(p, a.rendered) {
		result := a.frame
		// An empty interval selects nothing, so the source passes through.
		if p.Low <= level {
			sorted, err := a.sorter.Sort(a.frame, p.Low, level, p.Rotation, p.Key)
			if err != nil {
				return fmt.Errorf("sort frame: %w", err)
			}
			result = sorted
		}
		a.profiler.markSection("sort")

		if err := colorspace.ToRGBA(result, a.out, a.cfg.Workers); err != nil {
			return fmt.Errorf("convert frame: %w", err)
		}
		a.rendered = p
		a.sorted = true
		a.profiler.markSection("convert")
	}

	if err := a.presenter.Present(a.out, a.statusLine(p, level)); err != nil {
		return err
	}
	a.profiler.markSection("present")
	a.profiler.endFrame()
	return nil
}

// sameSort reports whether a and b produce the same sort at a fixed level.
func sameSort(a, b params.Parameters) bool {
	a.Paused, b.Paused = false, false
	return a == b
}

// level is the sampler level, or zero once sampling has faulted.
func (a *App) level() uint8 {
	if a.sampler.Err() != nil {
		return 0
	}
	return a.sampler.Level()
}

func (a *App) watchFaults(ctx context.Context) {
	select {
	case <-ctx.Done():
	case err := <-a.sampler.Faults():
		a.log.Printf("audio fault, sorting continues at level 0: %v", err)
		a.bands.Reset()
	}
}

func (a *App) applyControl(c render.Control) {
	p, err := a.params.Update(func(p *params.Parameters) {
		switch c {
		case render.ControlRotate:
			p.CycleRotation()
		case render.ControlKey:
			p.CycleKey()
		case render.ControlPause:
			p.TogglePause()
		case render.ControlThresholdUp:
			p.Low = uint8(min(int(p.Low)+lowStep, 255))
		case render.ControlThresholdDown:
			p.Low = uint8(max(int(p.Low)-lowStep, 0))
		}
	})
	if err != nil {
		a.log.Printf("control %s rejected: %v", c, err)
		return
	}
	a.log.Printf("control %s -> low=%d rotation=%s key=%s paused=%t", c, p.Low, p.Rotation, p.Key, p.Paused)
}

const lowStep = 8

// Params exposes the live parameter store.
func (a *App) Params() *params.Store { return a.params }

// FPS returns the rate of the most recent frame.
func (a *App) FPS() float64 {
	return math.Float64frombits(a.fps.Load())
}

// Status snapshots the app for the control panel.
func (a *App) Status() web.Status {
	p := a.params.Get()
	st := web.Status{
		FPS:      a.FPS(),
		Level:    uint8(a.lastLevel.Load()),
		Low:      p.Low,
		Rotation: int(p.Rotation),
		Key:      p.Key.String(),
		Paused:   p.Paused,
		Source:   a.sampler.SourceName(),
		Bands:    a.bands.Features(),
	}
	if err := a.sampler.Err(); err != nil {
		st.Fault = err.Error()
	}
	return st
}
