// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

const maxDTypes = 32

// dtypeDispatcher maps a dtype to the kernel implementing an operation for it.
// Kernels are registered in init() functions, usually as instances of a generic function.
type dtypeDispatcher[P any] struct {
	name  string
	fnMap [maxDTypes]func(params P)
}

func newDTypeDispatcher[P any](name string) *dtypeDispatcher[P] {
	return &dtypeDispatcher[P]{name: name}
}

// Register a kernel to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *dtypeDispatcher[P]) Register(dtype dtypes.DType, fn func(params P)) {
	if int(dtype) >= maxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.name)
	}
	d.fnMap[dtype] = fn
}

// Supports returns whether there is a kernel registered for dtype.
func (d *dtypeDispatcher[P]) Supports(dtype dtypes.DType) bool {
	return int(dtype) < maxDTypes && d.fnMap[dtype] != nil
}

// Dispatch calls the kernel that matches the dtype. It panics if there is none.
func (d *dtypeDispatcher[P]) Dispatch(dtype dtypes.DType, params P) {
	if !d.Supports(dtype) {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.name)
	}
	d.fnMap[dtype](params)
}
