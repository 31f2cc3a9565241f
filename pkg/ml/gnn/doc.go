// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gnn implements the graph utilities used by graph neural networks on point clouds:
//
//   - DenseRelabel: maps integer keys to the dense range {0, ..., k-1}, preserving equality.
//   - IndexAdd: segment-sum of rows into buckets, optionally mapped back to the original rows
//     (e.g. summing edge messages into their destination node).
//   - RadiusGraph: brute-force O(N²) radius graph: all directed pairs of points closer than a threshold,
//     optionally restricted to pairs in the same batch (e.g. the same molecule).
//
// IndexAdd and RadiusGraph are configured with builders, finished with a call to Done:
//
//	sums, err := gnn.IndexAdd(dst, messages).OutDim(numNodes).Done()
//	src, dst, err := gnn.RadiusGraph(pos, 0.8).Batch(batch).Size(1024).Done()
//
// Errors wrap ErrShapeMismatch or ErrInvalidConfiguration, so they can be tested with errors.Is.
// The computations are CPU-bound and split across goroutines, see the Parallelism option of each
// builder. Results don't depend on the parallelism.
package gnn
