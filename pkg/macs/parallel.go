package macs

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minParallelPixels keeps small planes on the calling goroutine and sets the
// least work handed to one goroutine.
const minParallelPixels = 1 << 15

// forRows runs fn over contiguous row bands of [0, height), at most
// GOMAXPROCS at a time. fn must only write rows inside its band.
func forRows(width, height int, fn func(y0, y1 int)) {
	if width*height < minParallelPixels || runtime.GOMAXPROCS(0) == 1 {
		fn(0, height)
		return
	}
	band := max(1, minParallelPixels/width)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y0 := 0; y0 < height; y0 += band {
		y1 := min(y0+band, height)
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	g.Wait()
}
