// Package volume reads the geometry and voxel data of MGH/MGZ and NIfTI-1
// images.
package volume

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"electrocoords/pkg/affine"
)

// ErrUnsupportedFormat is returned for files that are neither MGH nor NIfTI-1.
var ErrUnsupportedFormat = errors.New("volume: unsupported image format")

// ErrTooLarge is returned when the dimensions of an image describe more
// voxels than MaxVoxels.
var ErrTooLarge = errors.New("volume: image too large")

// MaxVoxels is the largest voxel count LoadVolume reads into memory.
const MaxVoxels = 1 << 30

// Header exposes the geometry of an image.
type Header interface {
	// Vox2RAS maps voxel indices to scanner RAS millimeters.
	Vox2RAS() affine.Affine

	// Shape returns the first three dimensions of the image.
	Shape() [3]int
}

// TkrHeader is implemented by headers that carry FreeSurfer's surface RAS
// geometry.
type TkrHeader interface {
	Header

	// Vox2RASTkr maps voxel indices to FreeSurfer surface RAS.
	Vox2RASTkr() affine.Affine
}

// Volume is an image header together with its first 3D frame of voxel data.
type Volume struct {
	Header Header

	// data is stored with the first index varying fastest
	data  []float64
	shape [3]int
}

// At returns the value of voxel (i, j, k). ok is false outside the volume.
func (v *Volume) At(i, j, k int) (value float64, ok bool) {
	if i < 0 || j < 0 || k < 0 || i >= v.shape[0] || j >= v.shape[1] || k >= v.shape[2] {
		return 0, false
	}
	return v.data[i+v.shape[0]*(j+v.shape[1]*k)], true
}

// Shape returns the dimensions of the volume.
func (v *Volume) Shape() [3]int { return v.shape }

// newVolume checks that data holds exactly one value per voxel of shape.
func newVolume(h Header, data []float64, shape [3]int) (*Volume, error) {
	n, err := voxelCount(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("expected %d voxels for shape %v, got %d", n, shape, len(data))
	}
	return &Volume{Header: h, data: data, shape: shape}, nil
}

// voxelCount returns the number of voxels in shape, refusing shapes that
// overflow or exceed MaxVoxels.
func voxelCount(shape [3]int) (int, error) {
	n := 1
	for i, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("invalid dimension %d: %d", i, d)
		}
		if n > MaxVoxels/d {
			return 0, fmt.Errorf("%w: shape %v exceeds %d voxels", ErrTooLarge, shape, MaxVoxels)
		}
		n *= d
	}
	return n, nil
}

type format int

const (
	formatMGH format = iota
	formatNIfTI
)

func detectFormat(path string) (format, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".mgz"), strings.HasSuffix(name, ".mgh.gz"):
		return formatMGH, true, nil
	case strings.HasSuffix(name, ".mgh"):
		return formatMGH, false, nil
	case strings.HasSuffix(name, ".nii.gz"):
		return formatNIfTI, true, nil
	case strings.HasSuffix(name, ".nii"):
		return formatNIfTI, false, nil
	}
	return 0, false, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// open returns a reader over the decompressed contents of path.
func open(path string, compressed bool) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !compressed {
		return bufio.NewReader(f), f.Close, nil
	}

	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	closeAll := func() error {
		gz.Close()
		return f.Close()
	}
	return gz, closeAll, nil
}

// LoadHeader reads only the header of the image at path.
func LoadHeader(path string) (Header, error) {
	fmtKind, compressed, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	if fmtKind == formatNIfTI {
		hdr, err := ReadNIfTIHeader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read NIfTI header %s: %w", path, err)
		}
		return hdr, nil
	}

	r, closeFn, err := open(path, compressed)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	hdr, err := ReadMGHHeader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read MGH header %s: %w", path, err)
	}
	return hdr, nil
}

// LoadVolume reads the header and the first frame of voxel data.
func LoadVolume(path string) (*Volume, error) {
	fmtKind, compressed, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	if fmtKind == formatNIfTI {
		vol, err := readNIfTIVolume(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read NIfTI volume %s: %w", path, err)
		}
		return vol, nil
	}

	r, closeFn, err := open(path, compressed)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	vol, err := readMGHVolume(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read MGH volume %s: %w", path, err)
	}
	return vol, nil
}

// readSamples decodes n samples of the given kind into float64 values.
func readSamples(r io.Reader, order binary.ByteOrder, kind sampleKind, n int) ([]float64, error) {
	out := make([]float64, n)
	switch kind {
	case sampleUint8:
		buf := make([]uint8, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case sampleInt16:
		buf := make([]int16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case sampleInt32:
		buf := make([]int32, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case sampleFloat32:
		buf := make([]float32, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported sample type %d", kind)
	}
	return out, nil
}

type sampleKind int

const (
	sampleUint8 sampleKind = iota
	sampleInt16
	sampleInt32
	sampleFloat32
)
