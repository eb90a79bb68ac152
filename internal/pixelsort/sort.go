// Package pixelsort reorders pixels inside masked runs of each row.
//
// A run is a maximal span of consecutive mask-included pixels in one row.
// Pixels inside a run are sorted ascending by one channel; everything outside
// the run, including the excluded pixels that delimit it, stays in place.
package pixelsort

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the channel that orders pixels inside a run.
type SortKey int

const (
	KeyHue SortKey = iota
	KeyLightness
	KeySaturation
)

var sortKeyNames = [...]string{"h", "l", "s"}

// ParseSortKey accepts the short (h, l, s) or long (hue, lightness,
// saturation) names.
func ParseSortKey(name string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "h", "hue":
		return KeyHue, nil
	case "l", "lightness":
		return KeyLightness, nil
	case "s", "saturation":
		return KeySaturation, nil
	default:
		return KeyHue, fmt.Errorf("%w: %q (want h, l or s)", ErrInvalidSortKey, name)
	}
}

// SortKeyNames returns the short names in channel order.
func SortKeyNames() []string {
	return sortKeyNames[:]
}

func (k SortKey) Valid() bool {
	return k >= KeyHue && k <= KeySaturation
}

// Channel returns the pixel channel index compared by this key.
func (k SortKey) Channel() int {
	return int(k)
}

// Next cycles h -> l -> s -> h.
func (k SortKey) Next() SortKey {
	return (k + 1) % 3
}

func (k SortKey) String() string {
	if !k.Valid() {
		return fmt.Sprintf("SortKey(%d)", int(k))
	}
	return sortKeyNames[k]
}

// Sorter runs the masked run sort with a fixed fork-join width.
type Sorter struct {
	workers int
}

// NewSorter creates a sorter using the given number of row workers. Zero or
// negative selects DefaultWorkers.
func NewSorter(workers int) *Sorter {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Sorter{workers: workers}
}

func (s *Sorter) Workers() int { return s.workers }

var defaultSorter = NewSorter(0)

// Sort is Sorter.Sort on a sorter sized to GOMAXPROCS.
func Sort(src *Frame, low, high uint8, rot Rotation, key SortKey) (*Frame, error) {
	return defaultSorter.Sort(src, low, high, rot, key)
}

// Sort returns a new frame whose masked runs are ordered by key. The mask
// includes pixels whose lightness lies in [low, high] after src has been
// turned by rot; the result is turned back so it matches src's orientation.
// src is never modified.
func (s *Sorter) Sort(src *Frame, low, high uint8, rot Rotation, key SortKey) (*Frame, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if low > high {
		return nil, fmt.Errorf("%w: low=%d high=%d", ErrInvalidThreshold, low, high)
	}
	if !rot.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRotation, int(rot))
	}
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSortKey, int(key))
	}

	var dst *Frame
	if rot == RotateNone {
		dst = src.Clone()
	} else {
		dst = Rotate(src, rot)
	}

	mask := BuildMask(dst, low, high)
	if err := s.sortMasked(dst, mask, key); err != nil {
		return nil, err
	}

	if rot != RotateNone {
		dst = Rotate(dst, rot.Inverse())
	}
	return dst, nil
}

// SortMasked sorts the runs of f in place using a caller-built mask.
func (s *Sorter) SortMasked(f *Frame, mask *Mask, key SortKey) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if !key.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSortKey, int(key))
	}
	return s.sortMasked(f, mask, key)
}

func (s *Sorter) sortMasked(f *Frame, mask *Mask, key SortKey) error {
	if err := mask.Congruent(f); err != nil {
		return err
	}
	ch := key.Channel()
	ForEachRowRange(f.Height, s.workers, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			sortRow(f.Row(y), mask.Row(y), ch)
		}
	})
	return nil
}

// SortRow sorts the runs of a single row in place.
func SortRow(row []Pixel, mask []uint8, key SortKey) error {
	if len(row) != len(mask) {
		return fmt.Errorf("%w: row has %d pixels, mask %d", ErrDimensionMismatch, len(row), len(mask))
	}
	if !key.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSortKey, int(key))
	}
	sortRow(row, mask, key.Channel())
	return nil
}

func sortRow(row []Pixel, mask []uint8, ch int) {
	n := len(row)
	j := 0
	for j < n {
		for j < n && mask[j] != MaskIncluded {
			j++
		}
		start := j
		for j < n && mask[j] == MaskIncluded {
			j++
		}
		if j-start > 1 {
			slices.SortStableFunc(row[start:j], func(a, b Pixel) int {
				return cmp.Compare(a[ch], b[ch])
			})
		}
	}
}
