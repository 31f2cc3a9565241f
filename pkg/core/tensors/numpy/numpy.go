// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package numpy allows one to read/write tensors to Python's NumPy npy and npz file formats.
//
// It is how point clouds, index arrays and edge lists are exchanged with Python pipelines:
// `np.save("pos.npy", pos)` on one side and FromNpyFile on the other.
package numpy

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/support/xslices"
)

const npyMagic = "\x93NUMPY"

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// FromNpyFile reads a .npy file and returns a tensors.Tensor.
func FromNpyFile(filePath string) (*tensors.Tensor, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npy file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	tensor, err := FromNpyReader(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", filePath)
	}
	return tensor, nil
}

// FromNpyReader reads a .npy file from an io.Reader and returns a tensors.Tensor.
// Both C-order and Fortran-order arrays are accepted, the returned tensor is always row-major.
func FromNpyReader(r io.Reader) (*tensors.Tensor, error) {
	preamble := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, errors.Wrapf(err, "failed to read .npy magic string and version")
	}
	if string(preamble[:len(npyMagic)]) != npyMagic {
		return nil, errors.Errorf("invalid .npy file format: magic string mismatch")
	}
	major, minor := preamble[len(npyMagic)], preamble[len(npyMagic)+1]

	var headerLen int
	switch {
	case major == 1:
		lenBytes := make([]byte, 2)
		if _, err := io.ReadFull(r, lenBytes); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length (v1.0)")
		}
		headerLen = int(binary.LittleEndian.Uint16(lenBytes))
	case major >= 2:
		lenBytes := make([]byte, 4)
		if _, err := io.ReadFull(r, lenBytes); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length (v%d.%d)", major, minor)
		}
		headerLen = int(binary.LittleEndian.Uint32(lenBytes))
		if headerLen > 0xFFFF {
			return nil, errors.Errorf("header length %d is too large", headerLen)
		}
	default:
		return nil, errors.Errorf("unsupported .npy version: %d.%d", major, minor)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrapf(err, "failed to read header")
	}
	// Example: "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 2, 3), }"
	dtypeStr, dims, fortranOrder, err := parseNpyHeader(string(headerBytes))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse .npy header")
	}
	if strings.HasPrefix(dtypeStr, ">") && dtypeStr[len(dtypeStr)-1] != '1' {
		return nil, errors.Errorf("big-endian .npy files (descr=%q) are not supported", dtypeStr)
	}
	dtype, err := npyToDType(dtypeStr)
	if err != nil {
		return nil, err
	}
	shape := shapes.Make(dtype, dims...)
	klog.V(2).Infof("numpy: reading %s (descr=%q, fortran_order=%v)", shape, dtypeStr, fortranOrder)

	tensor := tensors.FromShape(shape)
	accessErr := tensor.MutableBytes(func(data []byte) {
		if !fortranOrder || shape.Rank() <= 1 {
			// Row-major (C-order): we just copy over the data.
			if _, err = io.ReadFull(r, data); err != nil {
				err = errors.Wrapf(err, "failed to read tensor data (expected %d bytes)", len(data))
			}
			return
		}
		fortranData := make([]byte, len(data))
		if _, err = io.ReadFull(r, fortranData); err != nil {
			err = errors.Wrapf(err, "failed to read tensor data (expected %d bytes)", len(data))
			return
		}
		fortranToCOrder(shape, fortranData, data)
	})
	if accessErr != nil {
		return nil, accessErr
	}
	if err != nil {
		tensor.FinalizeAll()
		return nil, err
	}
	return tensor, nil
}

// fortranToCOrder copies column-major fortranData into the row-major cData.
func fortranToCOrder(shape shapes.Shape, fortranData, cData []byte) {
	fortranStrides := make([]int, shape.Rank())
	stride := 1
	for axis, dim := range shape.Dimensions {
		fortranStrides[axis] = stride
		stride *= dim
	}
	dtypeSize := shape.DType.Size()
	cOrderIdx := 0
	for _, indices := range shape.Iter() {
		fortranOrderIdx := 0
		for axis, axisIdx := range indices {
			fortranOrderIdx += axisIdx * fortranStrides[axis]
		}
		fortranOrderIdx *= dtypeSize
		copy(cData[cOrderIdx:cOrderIdx+dtypeSize], fortranData[fortranOrderIdx:fortranOrderIdx+dtypeSize])
		cOrderIdx += dtypeSize
	}
}

// parseNpyHeader extracts dtype, shape, and fortran_order from the .npy header string.
// It's a simplified parser, enough for headers written by NumPy itself.
func parseNpyHeader(header string) (dtype string, dims []int, fortranOrder bool, err error) {
	mDescr := reDescr.FindStringSubmatch(header)
	if len(mDescr) < 2 {
		err = errors.Errorf("could not find 'descr' in header: %q", header)
		return
	}
	dtype = mDescr[1]

	mFortran := reFortran.FindStringSubmatch(header)
	if len(mFortran) < 2 {
		err = errors.Errorf("could not find 'fortran_order' in header: %q", header)
		return
	}
	fortranOrder = mFortran[1] == "True"

	mShape := reShape.FindStringSubmatch(header)
	if len(mShape) < 2 {
		err = errors.Errorf("could not find 'shape' in header: %q", header)
		return
	}
	dims = []int{}
	for _, p := range strings.Split(mShape[1], ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			// Trailing comma, as in "(10,)", or a scalar "()".
			continue
		}
		dim, pErr := strconv.Atoi(p)
		if pErr != nil {
			err = errors.Wrapf(pErr, "invalid shape value %q in header", p)
			return
		}
		if dim < 0 {
			err = errors.Errorf("invalid negative dimension %d in header %q", dim, header)
			return
		}
		dims = append(dims, dim)
	}
	return
}

// npyToDType converts a NumPy dtype string (e.g. "<f4") to a dtypes.DType.
func npyToDType(npyType string) (dtypes.DType, error) {
	switch strings.TrimLeft(npyType, "<>=|") {
	case "b1", "?":
		return dtypes.Bool, nil
	case "i1":
		return dtypes.Int8, nil
	case "u1":
		return dtypes.Uint8, nil
	case "i2":
		return dtypes.Int16, nil
	case "u2":
		return dtypes.Uint16, nil
	case "i4":
		return dtypes.Int32, nil
	case "u4":
		return dtypes.Uint32, nil
	case "i8":
		return dtypes.Int64, nil
	case "u8":
		return dtypes.Uint64, nil
	case "f2":
		return dtypes.Float16, nil
	case "f4":
		return dtypes.Float32, nil
	case "f8":
		return dtypes.Float64, nil
	case "c8":
		return dtypes.Complex64, nil
	case "c16":
		return dtypes.Complex128, nil
	default:
		return dtypes.InvalidDType, errors.Errorf("unsupported NumPy dtype: %q", npyType)
	}
}

// dtypeToNpy converts a dtypes.DType to a NumPy dtype string, little-endian for multi-byte types.
func dtypeToNpy(dtype dtypes.DType) (string, error) {
	switch dtype {
	case dtypes.Bool:
		return "|b1", nil
	case dtypes.Int8:
		return "|i1", nil
	case dtypes.Uint8:
		return "|u1", nil
	case dtypes.Int16:
		return "<i2", nil
	case dtypes.Uint16:
		return "<u2", nil
	case dtypes.Int32:
		return "<i4", nil
	case dtypes.Uint32:
		return "<u4", nil
	case dtypes.Int64:
		return "<i8", nil
	case dtypes.Uint64:
		return "<u8", nil
	case dtypes.Float16:
		return "<f2", nil
	case dtypes.Float32:
		return "<f4", nil
	case dtypes.Float64:
		return "<f8", nil
	case dtypes.Complex64:
		return "<c8", nil
	case dtypes.Complex128:
		return "<c16", nil
	default:
		// BFloat16 has no standard NumPy dtype string.
		return "", errors.Errorf("DType %s can't be saved in .npy format", dtype)
	}
}

// FromNpzFile reads a .npz file and returns a map of tensor names to tensors.Tensor.
func FromNpzFile(filePath string) (map[string]*tensors.Tensor, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npz file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat .npz file %q", filePath)
	}
	results, err := FromNpzReader(file, info.Size())
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", filePath)
	}
	return results, nil
}

// FromNpzReader reads a .npz file from an io.ReaderAt and size,
// returning a map of tensor names (without the ".npy" suffix) to tensors.Tensor.
func FromNpzReader(r io.ReaderAt, size int64) (map[string]*tensors.Tensor, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create zip reader for `.npz`")
	}

	results := make(map[string]*tensors.Tensor)
	for _, f := range zipReader.File {
		cleanPath := path.Clean(f.Name)
		if path.IsAbs(cleanPath) || strings.HasPrefix(cleanPath, "..") {
			return nil, errors.Errorf("invalid path in .npz archive: %q (normalized to %q)", f.Name, cleanPath)
		}
		if !strings.HasSuffix(f.Name, ".npy") {
			klog.V(1).Infof("numpy: skipping non-.npy entry %q in .npz archive", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %q within .npz", f.Name)
		}
		tensor, err := FromNpyReader(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to read tensor %q from .npz", f.Name)
		}
		results[strings.TrimSuffix(f.Name, ".npy")] = tensor
	}
	return results, nil
}

// ToNpyWriter serializes a tensors.Tensor to an io.Writer in .npy format (version 1.0).
func ToNpyWriter(tensor *tensors.Tensor, w io.Writer) error {
	if err := tensor.CheckValid(); err != nil {
		return err
	}
	shape := tensor.Shape()
	descr, err := dtypeToNpy(shape.DType)
	if err != nil {
		return err
	}

	// Shape tuple: note the trailing comma for 1D arrays, and empty for scalars.
	var shapeTuple string
	switch shape.Rank() {
	case 0:
		shapeTuple = "()"
	case 1:
		shapeTuple = fmt.Sprintf("(%d,)", shape.Dimensions[0])
	default:
		shapeTuple = "(" + strings.Join(xslices.Map(shape.Dimensions, strconv.Itoa), ", ") + ")"
	}

	// Header padded with spaces so preamble (10 bytes) + header is a multiple of 64, and ends with a newline.
	var headerBuf bytes.Buffer
	_, _ = fmt.Fprintf(&headerBuf, "{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeTuple)
	for (10+headerBuf.Len()+1)%64 != 0 {
		headerBuf.WriteByte(' ')
	}
	headerBuf.WriteByte('\n')

	var preamble bytes.Buffer
	preamble.WriteString(npyMagic)
	preamble.Write([]byte{1, 0})
	_ = binary.Write(&preamble, binary.LittleEndian, uint16(headerBuf.Len()))
	if _, err := w.Write(preamble.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy preamble")
	}
	if _, err := w.Write(headerBuf.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy header")
	}

	var writeErr error
	err = tensor.ConstBytes(func(data []byte) {
		if _, writeErr = w.Write(data); writeErr != nil {
			writeErr = errors.Wrapf(writeErr, "failed to write tensor data")
		}
	})
	if err != nil {
		return err
	}
	return writeErr
}

// ToNpyFile serializes a tensors.Tensor to a .npy file.
func ToNpyFile(tensor *tensors.Tensor, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npy file %q", filePath)
	}
	if err = ToNpyWriter(tensor, file); err != nil {
		_ = file.Close()
		return errors.WithMessagef(err, "writing %q", filePath)
	}
	return errors.Wrapf(file.Close(), "closing %q", filePath)
}

// ToNpzWriter serializes a map of tensors to an io.Writer as a .npz archive.
// Entries are written in sorted order of their names.
func ToNpzWriter(tensorsMap map[string]*tensors.Tensor, w io.Writer) error {
	zipWriter := zip.NewWriter(w)
	for _, name := range xslices.SortedKeys(tensorsMap) {
		npyName := name + ".npy"
		fileWriter, err := zipWriter.Create(npyName)
		if err != nil {
			return errors.Wrapf(err, "failed to create %q in .npz archive", npyName)
		}
		if err := ToNpyWriter(tensorsMap[name], fileWriter); err != nil {
			return errors.WithMessagef(err, "failed to write tensor %q to .npz archive", name)
		}
	}
	return errors.Wrapf(zipWriter.Close(), "failed to close zip archive")
}

// ToNpzFile serializes a map of tensors to a .npz file.
func ToNpzFile(tensorsMap map[string]*tensors.Tensor, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npz file %q", filePath)
	}
	if err = ToNpzWriter(tensorsMap, file); err != nil {
		_ = file.Close()
		return errors.WithMessagef(err, "writing %q", filePath)
	}
	return errors.Wrapf(file.Close(), "closing %q", filePath)
}
