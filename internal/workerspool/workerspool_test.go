// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ParallelFor(t *testing.T) {
	for _, parallelism := range []int{0, 1, 3, 8, -1} {
		pool := New()
		pool.SetMaxParallelism(parallelism)
		for _, n := range []int{0, 1, 2, 7, 100} {
			var mu sync.Mutex
			visited := make([]int, n)
			var numCalls int
			pool.ParallelFor(n, func(start, end int) {
				mu.Lock()
				defer mu.Unlock()
				numCalls++
				require.Less(t, start, end)
				for ii := start; ii < end; ii++ {
					visited[ii]++
				}
			})
			for ii, v := range visited {
				require.Equalf(t, 1, v, "parallelism=%d, n=%d: index %d visited %d times", parallelism, n, ii, v)
			}
			assert.LessOrEqual(t, numCalls, max(pool.NumWorkers(), 1))
			if parallelism == 0 && n > 0 {
				assert.Equal(t, 1, numCalls)
			}
		}
	}
}

func TestPool_StartIfAvailable(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(1)
	release := make(chan struct{})
	var wg sync.WaitGroup
	started := 0
	for range 2 * goroutineToParallelismRatio {
		wg.Add(1)
		if pool.StartIfAvailable(func() {
			defer wg.Done()
			<-release
		}) {
			started++
		} else {
			wg.Done()
		}
	}
	assert.Equal(t, goroutineToParallelismRatio, started)
	close(release)
	wg.Wait()

	pool.SetMaxParallelism(0)
	assert.False(t, pool.StartIfAvailable(func() {}))
}
