package audio

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	initOnce    sync.Once
	termOnce    sync.Once
	initErr     error
	initialized bool
)

var errNotInitialized = errors.New("portaudio not initialized")

// Initialize wraps portaudio.Initialize with sync.Once so multiple callers are safe.
func Initialize() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
		initialized = initErr == nil
	})
	return initErr
}

// Terminate balances a successful Initialize. Devices must be closed first.
func Terminate() {
	if !initialized {
		return
	}
	termOnce.Do(func() {
		_ = portaudio.Terminate()
	})
}
