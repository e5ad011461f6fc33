package core

import (
	"runtime"
	"sync"
)

// ParallelFor executes fn over disjoint chunks of [0, n). Small batches run
// on the calling goroutine.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	numWorkers := runtime.NumCPU()
	if n <= minChunk || numWorkers <= 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelForErr is ParallelFor for bodies that can fail. The error of the
// lowest failing chunk is returned.
func ParallelForErr(n, minChunk int, fn func(start, end int) error) error {
	var (
		mu       sync.Mutex
		firstErr error
		firstAt  = n
	)
	ParallelFor(n, minChunk, func(start, end int) {
		if err := fn(start, end); err != nil {
			mu.Lock()
			if start < firstAt {
				firstAt, firstErr = start, err
			}
			mu.Unlock()
		}
	})
	return firstErr
}
