package pixelsort

import (
	"runtime"
	"sync"
)

// DefaultWorkers is the fork-join width used when a caller passes zero.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// ForEachRowRange splits [0, rows) into at most workers contiguous chunks of
// roughly equal size, runs fn on each chunk concurrently and returns once all
// chunks are done. fn must only write to rows inside its own range.
func ForEachRowRange(rows, workers int, fn func(lo, hi int)) {
	if rows <= 0 {
		return
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > rows {
		workers = rows
	}
	if workers == 1 {
		fn(0, rows)
		return
	}

	chunk := rows / workers
	extra := rows % workers

	var wg sync.WaitGroup
	lo := 0
	for w := 0; w < workers; w++ {
		hi := lo + chunk
		if w < extra {
			hi++
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
		lo = hi
	}
	wg.Wait()
}
