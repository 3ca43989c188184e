package volume_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electrocoords/internal/models"
	"electrocoords/internal/testutil"
	"electrocoords/pkg/affine"
	"electrocoords/pkg/volume"
)

var conformed = affine.New([4][4]float64{
	{-1, 0, 0, 128},
	{0, 0, 1, -128},
	{0, -1, 0, 128},
	{0, 0, 0, 1},
})

func TestMGHConformedGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "T1.mgz")
	testutil.WriteMGH(t, path, testutil.ConformedMGH(256, [3]float32{}), nil)

	hdr, err := volume.LoadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, [3]int{256, 256, 256}, hdr.Shape())
	assert.True(t, hdr.Vox2RAS().ApproxEqual(conformed, affine.DefaultTolerance), hdr.Vox2RAS().String())

	tkr, ok := hdr.(volume.TkrHeader)
	require.True(t, ok, "MGH headers should expose vox2ras-tkr")
	assert.True(t, tkr.Vox2RASTkr().ApproxEqual(conformed, affine.DefaultTolerance))
}

func TestMGHCenterShiftsScannerRASOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orig.mgh")
	testutil.WriteMGH(t, path, testutil.ConformedMGH(256, [3]float32{5, -10, 20}), nil)

	hdr, err := volume.LoadHeader(path)
	require.NoError(t, err)

	rows := hdr.Vox2RAS().Rows()
	assert.InDelta(t, 133.0, rows[0][3], 1e-6)
	assert.InDelta(t, -138.0, rows[1][3], 1e-6)
	assert.InDelta(t, 148.0, rows[2][3], 1e-6)

	// surface RAS ignores the center
	tkr := hdr.(volume.TkrHeader).Vox2RASTkr()
	assert.True(t, tkr.ApproxEqual(conformed, affine.DefaultTolerance))
}

func TestMGHDefaultsWithoutRASFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.mgz")
	hdr := testutil.ConformedMGH(256, [3]float32{7, 7, 7})
	hdr.GoodRASFlag = 0
	hdr.Delta = [3]float32{2, 2, 2}
	testutil.WriteMGH(t, path, hdr, nil)

	got, err := volume.LoadHeader(path)
	require.NoError(t, err)
	assert.True(t, got.Vox2RAS().ApproxEqual(conformed, affine.DefaultTolerance))
}

func TestMGHVolumeData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aparc+aseg.mgz")
	hdr := testutil.ConformedMGH(2, [3]float32{})
	hdr.Type = volume.MGHTypeInt
	testutil.WriteMGH(t, path, hdr, []float64{0, 1, 2, 3, 4, 5, 6, 1028})

	vol, err := volume.LoadVolume(path)
	require.NoError(t, err)

	v, ok := vol.At(1, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = vol.At(0, 1, 0)
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = vol.At(1, 1, 1)
	require.True(t, ok)
	assert.Equal(t, 1028.0, v)

	_, ok = vol.At(2, 0, 0)
	assert.False(t, ok)
	_, ok = vol.At(-1, 0, 0)
	assert.False(t, ok)
}

func TestNIfTISform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub-01_T1w.nii.gz")
	sform := [3][4]float32{
		{-1, 0, 0, 130},
		{0, 0, 1, -120},
		{0, -1, 0, 140},
	}
	testutil.WriteNIfTI(t, path, testutil.NIfTI([3]int16{256, 256, 256}, volume.NIfTITypeUint8, sform), nil)

	hdr, err := volume.LoadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, [3]int{256, 256, 256}, hdr.Shape())

	_, ok := hdr.(volume.TkrHeader)
	assert.False(t, ok, "NIfTI headers carry no surface RAS geometry")

	got := hdr.Vox2RAS().Apply([]models.Point{{0, 0, 0}})
	assert.Equal(t, models.Point{130, -120, 140}, got[0])
}

func TestNIfTIQform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.nii")
	h := testutil.NIfTI([3]int16{10, 10, 10}, volume.NIfTITypeUint8, [3][4]float32{})
	h.SformCode = 0
	h.QformCode = 1
	h.Pixdim = [8]float32{1, 2, 2, 3}
	// 180 degree rotation about z
	h.QuaternD = 1
	h.QoffsetX, h.QoffsetY, h.QoffsetZ = 1, 2, 3
	testutil.WriteNIfTI(t, path, h, nil)

	hdr, err := volume.LoadHeader(path)
	require.NoError(t, err)

	got := hdr.Vox2RAS().Apply([]models.Point{{1, 1, 1}})
	assert.InDelta(t, -1.0, got[0][0], 1e-6)
	assert.InDelta(t, 0.0, got[0][1], 1e-6)
	assert.InDelta(t, 6.0, got[0][2], 1e-6)
}

func TestNIfTIVolumeData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.nii")
	h := testutil.NIfTI([3]int16{2, 2, 2}, volume.NIfTITypeInt16, [3][4]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}})
	testutil.WriteNIfTI(t, path, h, []float64{10, 11, 12, 13, 14, 15, 16, 17})

	vol, err := volume.LoadVolume(path)
	require.NoError(t, err)

	v, ok := vol.At(1, 1, 1)
	require.True(t, ok)
	assert.Equal(t, 17.0, v)
	assert.Equal(t, [3]int{2, 2, 2}, vol.Shape())
}

func TestLoadHeaderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := volume.LoadHeader(filepath.Join(dir, "image.png"))
	assert.ErrorIs(t, err, volume.ErrUnsupportedFormat)

	_, err = volume.LoadHeader(filepath.Join(dir, "missing.nii"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.nii")
	testutil.WriteText(t, bad, "not a nifti header")
	_, err = volume.LoadHeader(bad)
	assert.Error(t, err)
}

func TestLoadVolumeRejectsOversizedHeaders(t *testing.T) {
	dir := t.TempDir()

	huge := testutil.ConformedMGH(2, [3]float32{})
	huge.Dims = [4]int32{1 << 30, 1 << 30, 1 << 30, 1}
	mgh := filepath.Join(dir, "huge.mgz")
	testutil.WriteMGH(t, mgh, huge, nil)

	_, err := volume.LoadVolume(mgh)
	assert.ErrorIs(t, err, volume.ErrTooLarge)

	// the geometry alone is still readable
	hdr, err := volume.LoadHeader(mgh)
	require.NoError(t, err)
	assert.Equal(t, [3]int{1 << 30, 1 << 30, 1 << 30}, hdr.Shape())

	nii := filepath.Join(dir, "huge.nii")
	testutil.WriteNIfTI(t, nii, testutil.NIfTI([3]int16{32767, 32767, 32767}, volume.NIfTITypeUint8, [3][4]float32{}), nil)
	_, err = volume.LoadVolume(nii)
	assert.ErrorIs(t, err, volume.ErrTooLarge)
}

func TestLoadVolumeTruncatedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.mgh")
	hdr := testutil.ConformedMGH(2, [3]float32{})
	testutil.WriteMGH(t, path, hdr, []float64{1, 2, 3})

	_, err := volume.LoadVolume(path)
	assert.Error(t, err)
}
