package params

import (
	"fmt"
	"sync"

	"github.com/guidoenr/sortwave/internal/pixelsort"
)

// Parameters are the user-adjustable sort settings. The upper lightness
// bound is not here: it follows the audio level every frame.
type Parameters struct {
	Low      uint8
	Rotation pixelsort.Rotation
	Key      pixelsort.SortKey
	Paused   bool
}

// Defaults sorts along columns by hue with the full lower range open.
func Defaults() Parameters {
	return Parameters{
		Low:      0,
		Rotation: pixelsort.Rotate90,
		Key:      pixelsort.KeyHue,
	}
}

// Validate reports the first out-of-range field.
func (p Parameters) Validate() error {
	if !p.Rotation.Valid() {
		return fmt.Errorf("%w: %d", pixelsort.ErrInvalidRotation, int(p.Rotation))
	}
	if !p.Key.Valid() {
		return fmt.Errorf("%w: %d", pixelsort.ErrInvalidSortKey, int(p.Key))
	}
	return nil
}

func (p *Parameters) CycleRotation() {
	p.Rotation = p.Rotation.Next()
}

func (p *Parameters) CycleKey() {
	p.Key = p.Key.Next()
}

func (p *Parameters) TogglePause() {
	p.Paused = !p.Paused
}

// Store guards one Parameters value shared by the render loop and the
// controls that edit it.
type Store struct {
	mu sync.RWMutex
	p  Parameters
}

// NewStore validates initial and wraps it.
func NewStore(initial Parameters) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Store{p: initial}, nil
}

// Get returns a snapshot.
func (s *Store) Get() Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// Set replaces the parameters if they validate.
func (s *Store) Set(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
	return nil
}

// Update applies fn to a copy and stores it only if the result validates.
func (s *Store) Update(fn func(*Parameters)) (Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.p
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.p, err
	}
	s.p = next
	return next, nil
}
