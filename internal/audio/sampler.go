package audio

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
)

// Config controls how a Sampler is created.
type Config struct {
	// Source is an audio file path, a device name substring, or "" for the
	// auto-detected input device.
	Source string
	Log    *log.Logger
	// Tap, when set, receives every block on the sampler goroutine. The
	// slice is reused for the next read.
	Tap func(block []int16)
	// OnFault is called once, on the sampler goroutine, after a read failure
	// has stopped sampling.
	OnFault func(err error)
}

// Sampler continuously reads blocks from a Source on its own goroutine and
// publishes the peak level of the latest block.
type Sampler struct {
	src     Source
	log     *log.Logger
	tap     func([]int16)
	onFault func(error)

	level atomic.Uint32

	// mu serializes Start/Stop; stop and done belong to the running loop.
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	errMu  sync.Mutex
	err    error
	faults chan error

	closeOnce sync.Once
	closeErr  error
}

// OpenSampler opens the configured capture source. The returned error wraps
// ErrDeviceOpen when the source cannot be opened.
func OpenSampler(cfg Config) (*Sampler, error) {
	src, err := Open(cfg.Source)
	if err != nil {
		return nil, err
	}
	return NewSampler(src, cfg), nil
}

// NewSampler wraps an already open source. The sampler owns src and closes it
// in Close.
func NewSampler(src Source, cfg Config) *Sampler {
	logger := cfg.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sampler{
		src:     src,
		log:     logger,
		tap:     cfg.Tap,
		onFault: cfg.OnFault,
		faults:  make(chan error, 1),
	}
}

// Start begins background sampling. A running sampler is stopped first, so at
// most one goroutine reads the source. Start clears a previous fault.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.setErr(nil)
	select {
	case <-s.faults:
	default:
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done
	go s.run(stop, done)
}

// Stop signals the sampling goroutine and waits for it to exit. It returns
// within one block duration and is safe to call at any time, repeatedly.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Sampler) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
}

// Running reports whether the sampling goroutine is alive.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Level returns the most recent peak level in [0,255]. It never blocks.
func (s *Sampler) Level() uint8 {
	return uint8(s.level.Load())
}

// Err returns the read failure that stopped sampling, if any.
func (s *Sampler) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Faults delivers read failures. It holds at most one pending error.
func (s *Sampler) Faults() <-chan error {
	return s.faults
}

// SourceName names the capture source.
func (s *Sampler) SourceName() string {
	return s.src.Name()
}

// Close stops sampling and releases the capture source.
func (s *Sampler) Close() error {
	s.Stop()
	s.closeOnce.Do(func() {
		s.closeErr = s.src.Close()
	})
	return s.closeErr
}

func (s *Sampler) run(stop <-chan struct{}, done chan<- struct{}) {
	err := s.loop(stop)
	if err != nil {
		// Zero means "no distortion" for consumers that keep reading.
		s.level.Store(0)
		s.setErr(err)
		select {
		case s.faults <- err:
		default:
		}
		s.log.Printf("audio sampling stopped: %v", err)
	}
	close(done)
	if err != nil && s.onFault != nil {
		s.onFault(err)
	}
}

func (s *Sampler) loop(stop <-chan struct{}) error {
	buf := make([]int16, BlockSamples)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := s.src.ReadBlock(buf); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDeviceRead, s.src.Name(), err)
		}
		s.level.Store(uint32(PeakLevel(buf)))
		if s.tap != nil {
			s.tap(buf)
		}
	}
}

func (s *Sampler) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}
