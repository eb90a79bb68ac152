package app

import (
	"context"
	"sync"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/sortwave/internal/render"
	"golang.org/x/sync/errgroup"
)

type inputEvent struct {
	quit    bool
	control render.Control
}

func (a *App) startInputListener(ctx context.Context, g *errgroup.Group) <-chan inputEvent {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		return nil
	}

	events := make(chan inputEvent, 16)

	closeOnce := &sync.Once{}
	g.Go(func() error {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		return nil
	})

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			evt, ok := translateKey(char, key)
			if !ok {
				continue
			}
			deliver(ctx, events, evt)
			if evt.quit {
				return
			}
		}
	}()
	return events
}

// deliver hands evt to the loop. Controls are dropped when the buffer is
// full; a quit waits for room until ctx ends.
func deliver(ctx context.Context, events chan<- inputEvent, evt inputEvent) {
	if evt.quit {
		select {
		case events <- evt:
		case <-ctx.Done():
		}
		return
	}
	select {
	case events <- evt:
	default:
	}
}

func translateKey(char rune, key keyboard.Key) (inputEvent, bool) {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return inputEvent{quit: true}, true
	case char == 'q' || char == 'Q':
		return inputEvent{quit: true}, true
	case key == keyboard.KeySpace:
		return inputEvent{control: render.ControlPause}, true
	case key == keyboard.KeyArrowUp:
		return inputEvent{control: render.ControlThresholdUp}, true
	case key == keyboard.KeyArrowDown:
		return inputEvent{control: render.ControlThresholdDown}, true
	}
	if c, ok := render.ControlForChar(char); ok {
		return inputEvent{control: c}, true
	}
	return inputEvent{}, false
}
