// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements a soft-limited pool of goroutines used by the point-cloud kernels
// to split their work across CPUs.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool of workers. The zero value is not usable, create it with New.
type Pool struct {
	// maxParallelism is a soft target on the limit of parallel work to do.
	// The actual number of goroutines is higher than that -- because of waits and such.
	maxParallelism int
	mu             sync.Mutex
	numRunning     int
}

// New return a new Pool of workers with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	w := &Pool{}
	w.maxParallelism = runtime.NumCPU()
	return w
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// SetMaxParallelism sets the maxParallelism.
//
// You should only change the parallelism before any workers start running. If changed during the execution
// the behavior is undefined.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.maxParallelism = maxParallelism
}

// NumWorkers returns the maximum number of blocks ParallelFor splits the work into:
// 1 if parallelism is disabled, runtime.NumCPU() if it is unlimited.
func (w *Pool) NumWorkers() int {
	switch {
	case w.maxParallelism == 0:
		return 1
	case w.maxParallelism < 0:
		return runtime.NumCPU()
	default:
		return w.maxParallelism
	}
}

const goroutineToParallelismRatio = 2

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism == 0 {
		return true
	} else if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= goroutineToParallelismRatio*w.maxParallelism
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.mu.Unlock()
	}()
}

// StartIfAvailable runs the task in a separate goroutine, if there are enough workers left.
// It returns true if it found workers to run the function, false otherwise.
//
// It's up to the client to synchronize the end of the function execution.
func (w *Pool) StartIfAvailable(task func()) bool {
	if w.IsUnlimited() {
		go task()
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedIsFull() {
		return false
	}
	w.lockedRunTaskInGoroutine(task)
	return true
}

// ParallelFor splits the range [0, n) into at most NumWorkers contiguous blocks, and calls fn(start, end)
// once for each block, concurrently. It returns when all blocks are done.
//
// Blocks that can't find an available worker run inline, so ParallelFor never blocks waiting for
// the pool. With parallelism disabled, or n <= 1, fn(0, n) is called inline.
func (w *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	numBlocks := min(n, w.NumWorkers())
	if !w.IsEnabled() || numBlocks <= 1 {
		fn(0, n)
		return
	}
	blockSize := (n + numBlocks - 1) / numBlocks
	var wg sync.WaitGroup
	for start := 0; start < n; start += blockSize {
		end := min(start+blockSize, n)
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fn(start, end)
		}
		if !w.StartIfAvailable(task) {
			task()
		}
	}
	wg.Wait()
}
