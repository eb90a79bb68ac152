//go:build !sdl

package render

import "errors"

func newSDL(Config) (Presenter, error) {
	return nil, errors.New("SDL backend not enabled; rebuild with -tags sdl or use --output=terminal")
}

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool { return false }
