//go:build sdl

package render

import (
	"fmt"
	"image"

	"github.com/veandco/go-sdl2/sdl"
)

type sdlPresenter struct {
	window    *sdl.Window
	renderer  *sdl.Renderer
	texture   *sdl.Texture
	texW      int
	texH      int
	title     string
	onControl func(Control)
}

func newSDL(cfg Config) (Presenter, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	p := &sdlPresenter{onControl: cfg.OnControl}

	window, err := sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		1280, 720,
		sdl.WINDOW_SHOWN|sdl.WINDOW_FULLSCREEN_DESKTOP,
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("sdl window: %w", err)
	}
	p.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("sdl renderer: %w", err)
	}
	p.renderer = renderer
	return p, nil
}

func (p *sdlPresenter) ensureTexture(w, h int) error {
	if p.texture != nil && p.texW == w && p.texH == h {
		return nil
	}
	if p.texture != nil {
		p.texture.Destroy()
		p.texture = nil
	}
	// image.RGBA stores R,G,B,A bytes, which is ABGR8888 on little endian.
	tex, err := p.renderer.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STREAMING,
		int32(w), int32(h),
	)
	if err != nil {
		return fmt.Errorf("sdl texture: %w", err)
	}
	p.texture = tex
	p.texW = w
	p.texH = h
	return nil
}

func (p *sdlPresenter) Present(img *image.RGBA, status string) error {
	if img == nil {
		return fmt.Errorf("present: nil image")
	}
	b := img.Bounds()
	if err := p.ensureTexture(b.Dx(), b.Dy()); err != nil {
		return err
	}
	if status != "" && status != p.title {
		p.window.SetTitle(status)
		p.title = status
	}

	pix := img.Pix[img.PixOffset(b.Min.X, b.Min.Y):]
	if err := p.texture.Update(nil, pix, img.Stride); err != nil {
		return fmt.Errorf("sdl texture update: %w", err)
	}

	outW, outH, err := p.renderer.GetOutputSize()
	if err != nil {
		return fmt.Errorf("sdl output size: %w", err)
	}
	box := Letterbox(b.Dx(), b.Dy(), int(outW), int(outH))
	dst := sdl.Rect{X: int32(box.Min.X), Y: int32(box.Min.Y), W: int32(box.Dx()), H: int32(box.Dy())}

	if err := p.renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		return err
	}
	if err := p.renderer.Clear(); err != nil {
		return err
	}
	if err := p.renderer.Copy(p.texture, nil, &dst); err != nil {
		return err
	}
	p.renderer.Present()

	return p.pollEvents()
}

func (p *sdlPresenter) pollEvents() error {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return ErrPresenterQuit
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				continue
			}
			switch e.Keysym.Sym {
			case sdl.K_ESCAPE, sdl.K_q:
				return ErrPresenterQuit
			case sdl.K_UP, sdl.K_KP_PLUS:
				p.control(ControlThresholdUp)
			case sdl.K_DOWN, sdl.K_KP_MINUS:
				p.control(ControlThresholdDown)
			default:
				// Printable keycodes are their ASCII values.
				if c, ok := ControlForChar(rune(e.Keysym.Sym)); ok {
					p.control(c)
				}
			}
		}
	}
	return nil
}

func (p *sdlPresenter) control(c Control) {
	if p.onControl != nil {
		p.onControl(c)
	}
}

func (p *sdlPresenter) Close() error {
	if p.texture != nil {
		p.texture.Destroy()
		p.texture = nil
	}
	if p.renderer != nil {
		p.renderer.Destroy()
		p.renderer = nil
	}
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	return nil
}

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool { return true }
