// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is returned when the inputs have incompatible ranks or dimensions,
	// e.g. an index array whose length differs from the number of rows of the features.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidConfiguration is returned for missing or conflicting options, out-of-range parameters
	// and unsupported dtypes.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// tryCatch runs fn and converts any error thrown with panic (e.g. by the tensors package) into a returned error.
func tryCatch(fn func() error) (err error) {
	exception := exceptions.TryCatch[error](func() {
		err = fn()
	})
	if exception != nil {
		return exception
	}
	return err
}
