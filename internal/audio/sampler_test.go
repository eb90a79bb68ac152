package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errBroken = errors.New("broken pipe")

// scriptedSource fills every block with a constant peak and can fail after a
// number of reads.
type scriptedSource struct {
	peak      atomic.Int32
	failAfter int32
	reads     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	closes    atomic.Int32
}

func (s *scriptedSource) ReadBlock(buf []int16) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	time.Sleep(time.Millisecond)
	reads := s.reads.Add(1)
	if s.failAfter > 0 && reads > s.failAfter {
		return errBroken
	}
	peak := int16(s.peak.Load())
	for i := range buf {
		buf[i] = 0
	}
	buf[len(buf)/2] = -peak
	return nil
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Close() error {
	s.closes.Add(1)
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSamplerPublishesPeakLevel(t *testing.T) {
	src := &scriptedSource{}
	src.peak.Store(16384)
	s := NewSampler(src, Config{})
	s.Start()
	defer s.Close()

	waitFor(t, "level 128", func() bool { return s.Level() == 128 })

	src.peak.Store(32767)
	waitFor(t, "level 255", func() bool { return s.Level() == 255 })
}

func TestSamplerStopIsSafe(t *testing.T) {
	src := &scriptedSource{}
	s := NewSampler(src, Config{})

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatalf("sampler running before Start")
	}

	s.Start()
	if !s.Running() {
		t.Fatalf("sampler not running after Start")
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatalf("sampler still running after Stop")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := src.closes.Load(); got != 1 {
		t.Fatalf("source closed %d times", got)
	}
}

func TestSamplerRestartKeepsSingleReader(t *testing.T) {
	src := &scriptedSource{}
	s := NewSampler(src, Config{})
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.Start()
		time.Sleep(3 * time.Millisecond)
	}
	if got := src.maxActive.Load(); got != 1 {
		t.Fatalf("observed %d concurrent readers", got)
	}
}

func TestSamplerReadFailureIsReported(t *testing.T) {
	src := &scriptedSource{failAfter: 3}
	src.peak.Store(32767)

	var (
		mu      sync.Mutex
		handled error
	)
	var s *Sampler
	s = NewSampler(src, Config{OnFault: func(err error) {
		// Stopping from the handler must not deadlock.
		s.Stop()
		mu.Lock()
		handled = err
		mu.Unlock()
	}})
	s.Start()
	defer s.Close()

	select {
	case err := <-s.Faults():
		if !errors.Is(err, ErrDeviceRead) || !errors.Is(err, errBroken) {
			t.Fatalf("unexpected fault: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no fault delivered")
	}

	waitFor(t, "fault handler", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled != nil
	})
	if s.Level() != 0 {
		t.Fatalf("level=%d after fault, want 0", s.Level())
	}
	if !errors.Is(s.Err(), ErrDeviceRead) {
		t.Fatalf("Err()=%v", s.Err())
	}
	if s.Running() {
		t.Fatalf("sampler still running after fault")
	}

	src.failAfter = 0
	s.Start()
	if s.Err() != nil {
		t.Fatalf("Start did not clear fault: %v", s.Err())
	}
}

func TestSamplerTapSeesBlocks(t *testing.T) {
	src := &scriptedSource{}
	src.peak.Store(1000)
	var blocks atomic.Int32
	s := NewSampler(src, Config{Tap: func(block []int16) {
		if len(block) == BlockSamples {
			blocks.Add(1)
		}
	}})
	s.Start()
	defer s.Close()

	waitFor(t, "tapped blocks", func() bool { return blocks.Load() >= 3 })
}

func TestSamplerWithSynthSource(t *testing.T) {
	s := NewSampler(NewSynthSource(1, false), Config{})
	s.Start()
	waitFor(t, "non-zero level", func() bool { return s.Level() > 0 })
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.src.ReadBlock(make([]int16, BlockSamples)); !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("expected ErrSourceClosed, got %v", err)
	}
}
