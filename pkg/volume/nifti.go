package volume

import (
	"fmt"
	"math"
	"os"

	"github.com/henghuang/nifti"

	"electrocoords/pkg/affine"
)

// NIfTI-1 data types
const (
	NIfTITypeUint8   = 2
	NIfTITypeInt16   = 4
	NIfTITypeInt32   = 8
	NIfTITypeFloat32 = 16
	NIfTITypeFloat64 = 64
)

const niftiHeaderSize = 348

// NIfTIHeader is a NIfTI-1 header as decoded by the nifti library.
type NIfTIHeader struct {
	nifti.Nifti1Header
}

// safelyNiftiHeaderParse consumes panics emitted by the nifti library and
// turns them into errors.
func safelyNiftiHeaderParse(filename string) (parsed nifti.Nifti1Header, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	parsed.LoadHeader(filename)

	return
}

// safelyNiftiParse is safelyNiftiHeaderParse for the whole image.
func safelyNiftiParse(filename string) (parsed nifti.Nifti1Image, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	parsed.LoadImage(filename, true)

	return
}

// ReadNIfTIHeader reads the header of a .nii or .nii.gz file.
func ReadNIfTIHeader(path string) (*NIfTIHeader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	raw, err := safelyNiftiHeaderParse(path)
	if err != nil {
		return nil, err
	}
	h := &NIfTIHeader{Nifti1Header: raw}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *NIfTIHeader) validate() error {
	if h.SizeofHdr != niftiHeaderSize {
		return fmt.Errorf("invalid header size for nifti-1: %d", h.SizeofHdr)
	}
	if magic := string(h.Magic[:3]); magic != "n+1" && magic != "ni1" {
		return fmt.Errorf("invalid file magic %q", h.Magic[:])
	}
	if h.Dim[0] < 3 || h.Dim[0] > 7 {
		return fmt.Errorf("dim[0] is not in range [3, 7]: %d", h.Dim[0])
	}
	for i := 1; i <= 3; i++ {
		if h.Dim[i] <= 0 {
			return fmt.Errorf("invalid dimension %d: %d", i, h.Dim[i])
		}
	}
	return nil
}

// Shape implements Header.
func (h *NIfTIHeader) Shape() [3]int {
	return [3]int{int(h.Dim[1]), int(h.Dim[2]), int(h.Dim[3])}
}

// Vox2RAS implements Header. The sform is preferred, then the qform, then
// a diagonal affine built from the voxel sizes.
func (h *NIfTIHeader) Vox2RAS() affine.Affine {
	switch {
	case h.SformCode > 0:
		return h.sform()
	case h.QformCode > 0:
		return h.qform()
	}
	return h.baseAffine()
}

func (h *NIfTIHeader) sform() affine.Affine {
	var rows [4][4]float64
	for j := 0; j < 4; j++ {
		rows[0][j] = float64(h.SrowX[j])
		rows[1][j] = float64(h.SrowY[j])
		rows[2][j] = float64(h.SrowZ[j])
	}
	rows[3][3] = 1
	return affine.New(rows)
}

func (h *NIfTIHeader) qform() affine.Affine {
	b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
	a := math.Sqrt(math.Max(0, 1-(b*b+c*c+d*d)))

	rot := [3][3]float64{
		{a*a + b*b - c*c - d*d, 2 * (b*c - a*d), 2 * (b*d + a*c)},
		{2 * (b*c + a*d), a*a + c*c - b*b - d*d, 2 * (c*d - a*b)},
		{2 * (b*d - a*c), 2 * (c*d + a*b), a*a + d*d - b*b - c*c},
	}

	qfac := float64(h.Pixdim[0])
	if qfac == 0 {
		qfac = 1
	}
	zooms := [3]float64{float64(h.Pixdim[1]), float64(h.Pixdim[2]), float64(h.Pixdim[3]) * qfac}

	var linear [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			linear[i][j] = rot[i][j] * zooms[j]
		}
	}
	return affine.FromLinear(linear, [3]float64{float64(h.QoffsetX), float64(h.QoffsetY), float64(h.QoffsetZ)})
}

// baseAffine centers the volume on the origin with a flipped x axis.
func (h *NIfTIHeader) baseAffine() affine.Affine {
	shape := h.Shape()
	zooms := [3]float64{-float64(h.Pixdim[1]), float64(h.Pixdim[2]), float64(h.Pixdim[3])}
	var linear [3][3]float64
	var translation [3]float64
	for i := 0; i < 3; i++ {
		if zooms[i] == 0 {
			zooms[i] = 1
		}
		linear[i][i] = zooms[i]
		translation[i] = -float64(shape[i]-1) / 2 * zooms[i]
	}
	return affine.FromLinear(linear, translation)
}

func (h *NIfTIHeader) checkDatatype() error {
	switch h.Datatype {
	case NIfTITypeUint8, NIfTITypeInt16, NIfTITypeInt32, NIfTITypeFloat32, NIfTITypeFloat64:
		return nil
	}
	return fmt.Errorf("unsupported NIfTI data type %d", h.Datatype)
}

// readNIfTIVolume reads the first 3D frame of a single-file NIfTI-1 image.
// The header is checked before any voxel data is allocated.
func readNIfTIVolume(path string) (*Volume, error) {
	h, err := ReadNIfTIHeader(path)
	if err != nil {
		return nil, err
	}
	if h.Magic[1] != '+' {
		return nil, fmt.Errorf("data must be stored in same file as header")
	}
	if err := h.checkDatatype(); err != nil {
		return nil, err
	}
	shape := h.Shape()
	n, err := voxelCount(shape)
	if err != nil {
		return nil, err
	}

	img, err := safelyNiftiParse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}
	dims := img.GetDims()
	if dims[0] != shape[0] || dims[1] != shape[1] || dims[2] != shape[2] {
		return nil, fmt.Errorf("image dimensions %v do not match header shape %v", dims, shape)
	}

	data := make([]float64, 0, n)
	for k := 0; k < shape[2]; k++ {
		for j := 0; j < shape[1]; j++ {
			for i := 0; i < shape[0]; i++ {
				data = append(data, float64(img.GetAt(i, j, k, 0)))
			}
		}
	}
	return newVolume(h, data, shape)
}
