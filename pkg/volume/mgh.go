package volume

import (
	"encoding/binary"
	"fmt"
	"io"

	"electrocoords/pkg/affine"
)

// MGH data types
const (
	MGHTypeUchar = 0
	MGHTypeInt   = 1
	MGHTypeFloat = 3
	MGHTypeShort = 4
)

// mghDataOffset is where voxel data starts in an MGH file
const mghDataOffset = 284

// MGHHeader is the fixed part of a FreeSurfer MGH header. All fields are
// stored big-endian.
type MGHHeader struct {
	Version     int32      // Must be 1
	Dims        [4]int32   // Width, height, depth, frames
	Type        int32      // MGHType* code
	DOF         int32      // Degrees of freedom
	GoodRASFlag int16      // Whether Delta, Mdc and Pxyz are valid
	Delta       [3]float32 // Voxel sizes in mm
	Mdc         [9]float32 // Direction cosines x_ras, y_ras, z_ras
	Pxyz        [3]float32 // RAS of the volume center
}

// ReadMGHHeader decodes an MGH header. When the RAS flag is unset the
// geometry defaults to a 1mm coronal (LIA) volume centered at zero, which is
// what FreeSurfer assumes.
func ReadMGHHeader(r io.Reader) (*MGHHeader, error) {
	h := &MGHHeader{}
	if err := binary.Read(r, binary.BigEndian, h); err != nil {
		return nil, err
	}
	if h.Version != 1 {
		return nil, fmt.Errorf("unexpected MGH version %d", h.Version)
	}
	for i := 0; i < 3; i++ {
		if h.Dims[i] <= 0 {
			return nil, fmt.Errorf("invalid MGH dimension %d: %d", i, h.Dims[i])
		}
	}

	if h.GoodRASFlag <= 0 {
		h.Delta = [3]float32{1, 1, 1}
		h.Mdc = [9]float32{-1, 0, 0, 0, 0, -1, 0, 1, 0}
		h.Pxyz = [3]float32{}
	}
	return h, nil
}

// Shape implements Header.
func (h *MGHHeader) Shape() [3]int {
	return [3]int{int(h.Dims[0]), int(h.Dims[1]), int(h.Dims[2])}
}

// Vox2RAS implements Header. Column j of the linear part is the j-th
// direction cosine scaled by the voxel size, and the translation puts the
// volume center at Pxyz.
func (h *MGHHeader) Vox2RAS() affine.Affine {
	var linear [3][3]float64
	for j := 0; j < 3; j++ {
		for r := 0; r < 3; r++ {
			linear[r][j] = float64(h.Mdc[3*j+r]) * float64(h.Delta[j])
		}
	}

	var translation [3]float64
	for r := 0; r < 3; r++ {
		var center float64
		for j := 0; j < 3; j++ {
			center += linear[r][j] * float64(h.Dims[j]) / 2
		}
		translation[r] = float64(h.Pxyz[r]) - center
	}
	return affine.FromLinear(linear, translation)
}

// Vox2RASTkr implements TkrHeader.
func (h *MGHHeader) Vox2RASTkr() affine.Affine {
	d := [3]float64{float64(h.Delta[0]), float64(h.Delta[1]), float64(h.Delta[2])}
	var half [3]float64
	for i := range half {
		half[i] = float64(h.Dims[i]) * d[i] / 2
	}
	return affine.New([4][4]float64{
		{-d[0], 0, 0, half[0]},
		{0, 0, d[2], -half[2]},
		{0, -d[1], 0, half[1]},
		{0, 0, 0, 1},
	})
}

func (h *MGHHeader) sampleKind() (sampleKind, error) {
	switch h.Type {
	case MGHTypeUchar:
		return sampleUint8, nil
	case MGHTypeInt:
		return sampleInt32, nil
	case MGHTypeFloat:
		return sampleFloat32, nil
	case MGHTypeShort:
		return sampleInt16, nil
	}
	return 0, fmt.Errorf("unsupported MGH data type %d", h.Type)
}

func readMGHVolume(r io.Reader) (*Volume, error) {
	h, err := ReadMGHHeader(r)
	if err != nil {
		return nil, err
	}
	kind, err := h.sampleKind()
	if err != nil {
		return nil, err
	}
	shape := h.Shape()
	n, err := voxelCount(shape)
	if err != nil {
		return nil, err
	}

	// Skip the unused part of the header
	skip := int64(mghDataOffset - binary.Size(h))
	if _, err := io.CopyN(io.Discard, r, skip); err != nil {
		return nil, fmt.Errorf("truncated MGH header: %w", err)
	}

	data, err := readSamples(r, binary.BigEndian, kind, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}
	return newVolume(h, data, shape)
}
