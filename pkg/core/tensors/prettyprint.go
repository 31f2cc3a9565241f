// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

var (
	typeFloat16  = reflect.TypeOf(float16.Float16(0))
	typeBFloat16 = reflect.TypeOf(bfloat16.BFloat16(0))
)

// summaryEdgeItems is the number of leading and trailing items printed along an axis before eliding with "...".
const summaryEdgeItems = 3

// Summary returns a multi-line summary of the Tensor's content.
// Inspired by numpy output: long axes only show their first and last 3 elements.
//
// Zero-sized tensors (e.g. an empty edge list) print only their shape.
func (t *Tensor) Summary(precision int) string {
	if t.Shape().IsZeroSize() {
		return t.Shape().String()
	}

	var buf bytes.Buffer
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }

	wValue := func(v reflect.Value) {
		switch {
		case v.Type() == typeFloat16:
			w("%.*g", precision, v.Interface().(float16.Float16).Float32())
			return
		case v.Type() == typeBFloat16:
			w("%.*g", precision, v.Interface().(bfloat16.BFloat16).Float32())
			return
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			w("%d", v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			w("%d", v.Uint())
		case reflect.Complex64, reflect.Complex128:
			c := v.Complex()
			w("(%.*g+%.*gi)", precision, real(c), precision, imag(c))
		case reflect.Bool:
			w("%v", v.Bool())
		default:
			w("%.*g", precision, v.Interface())
		}
	}

	dims := t.Shape().Dimensions
	strides := t.Shape().Strides()
	t.MustConstFlatData(func(flat any) {
		values := reflect.ValueOf(flat)

		// Go type equivalent, e.g.: [2][3]float32
		for _, dim := range dims {
			w("[%d]", dim)
		}
		w("%s", values.Type().Elem())
		if len(dims) == 0 {
			w("(")
			wValue(values.Index(0))
			w(")")
			return
		}

		// visible returns the indices shown along an axis of the given dimension, with -1 marking the ellipsis.
		visible := func(dim int) []int {
			if dim <= 2*summaryEdgeItems {
				indices := make([]int, dim)
				for ii := range indices {
					indices[ii] = ii
				}
				return indices
			}
			indices := make([]int, 0, 2*summaryEdgeItems+1)
			for ii := range summaryEdgeItems {
				indices = append(indices, ii)
			}
			indices = append(indices, -1)
			for ii := dim - summaryEdgeItems; ii < dim; ii++ {
				indices = append(indices, ii)
			}
			return indices
		}

		var printAxis func(axis, offset int)
		printAxis = func(axis, offset int) {
			w("{")
			isLast := axis == len(dims)-1
			indent := strings.Repeat(" ", axis+1)
			if axis == 0 && !isLast {
				w("\n%s", indent)
			}
			for ii, idx := range visible(dims[axis]) {
				if ii > 0 {
					if isLast {
						w(", ")
					} else {
						w(",\n%s", indent)
					}
				}
				if idx < 0 {
					w("...")
					continue
				}
				if isLast {
					wValue(values.Index(offset + idx))
				} else {
					printAxis(axis+1, offset+idx*strides[axis])
				}
			}
			w("}")
		}
		printAxis(0, 0)
	})
	return buf.String()
}
