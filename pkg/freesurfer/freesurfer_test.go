package freesurfer

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electrocoords/internal/models"
	"electrocoords/internal/testutil"
)

func TestSubjectFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/sub-test/anat/sub-test_acq-seeg_T1w.nii", "test"},
		{"sub-01_T1w.nii.gz", "01"},
		{"derivatives/sub-02.mgz", "02"},
		{"ses-1_sub-ab_T1w.nii", "ab"},
	}
	for _, tt := range tests {
		got, err := SubjectFromFilename(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	for _, path := range []string{"/data/sub-01/T1.mgz", "sub-_T1w.nii", ""} {
		_, err := SubjectFromFilename(path)
		assert.ErrorIs(t, err, models.ErrUnresolvableSubject, path)
	}
}

func TestResolveSubjectsDir(t *testing.T) {
	t.Setenv(SubjectsDirEnv, "/env/subjects")
	assert.Equal(t, "/explicit", ResolveSubjectsDir("/explicit"))
	assert.Equal(t, "/env/subjects", ResolveSubjectsDir(""))
}

func TestReadXFM(t *testing.T) {
	src := `MNI Transform File
% avi2talxfm

Transform_Type = Linear;
Linear_Transform =
 1.1 0.0 0.0 -2.5
 0.0 0.9 0.1 3.0
 0.0 -0.1 1.0 4.0;
`
	a, err := ReadXFM(strings.NewReader(src))
	require.NoError(t, err)

	rows := a.Rows()
	assert.Equal(t, [4]float64{1.1, 0, 0, -2.5}, rows[0])
	assert.Equal(t, [4]float64{0, -0.1, 1.0, 4.0}, rows[2])
	assert.Equal(t, [4]float64{0, 0, 0, 1}, rows[3])
}

func TestReadXFMErrors(t *testing.T) {
	_, err := ReadXFM(strings.NewReader("MNI Transform File\n"))
	assert.Error(t, err)

	_, err = ReadXFM(strings.NewReader("Linear_Transform =\n1 0 0 0\n0 1 0 0;\n"))
	assert.Error(t, err)

	_, err = ReadXFM(strings.NewReader("Linear_Transform =\n1 0 0 x\n"))
	assert.Error(t, err)
}

func writeSubject(t *testing.T, subjectsDir, name, volume string) {
	t.Helper()
	mri := filepath.Join(subjectsDir, name, "mri")
	testutil.WriteMGH(t, filepath.Join(mri, volume), testutil.ConformedMGH(256, [3]float32{1, 2, 3}), nil)
	testutil.WriteXFM(t, filepath.Join(mri, "transforms", "talairach.xfm"), [3][4]float64{
		{1, 0, 0, 10},
		{0, 1, 0, 20},
		{0, 0, 1, 30},
	})
}

func TestLoadRegistration(t *testing.T) {
	subjectsDir := t.TempDir()
	writeSubject(t, subjectsDir, "sub-01", "orig.mgz")

	reg, err := LoadRegistration(subjectsDir, "01")
	require.NoError(t, err)
	assert.Equal(t, "01", reg.Subject)
	assert.Equal(t, filepath.Join(subjectsDir, "sub-01", "mri", "orig.mgz"), reg.VolumePath)

	// voxel (128,128,128) sits at the volume center RAS
	center := reg.Vox2RAS.Apply([]models.Point{{128, 128, 128}})[0]
	assert.InDeltaSlice(t, []float64{1, 2, 3}, center[:], 1e-6)

	mni := reg.Vox2MNI.Apply([]models.Point{{128, 128, 128}})[0]
	assert.InDeltaSlice(t, []float64{11, 22, 33}, mni[:], 1e-6)
}

func TestLoadRegistrationFallsBackToT1(t *testing.T) {
	subjectsDir := t.TempDir()
	writeSubject(t, subjectsDir, "bert", "T1.mgz")

	reg, err := LoadRegistration(subjectsDir, "bert")
	require.NoError(t, err)
	assert.Equal(t, "T1.mgz", filepath.Base(reg.VolumePath))
}

func TestLoadRegistrationMissingData(t *testing.T) {
	subjectsDir := t.TempDir()

	_, err := LoadRegistration(subjectsDir, "nobody")
	assert.ErrorIs(t, err, models.ErrMissingSubjectData)

	_, err = LoadRegistration("", "nobody")
	assert.ErrorIs(t, err, models.ErrMissingSubjectData)

	// subject directory without any volume
	testutil.WriteText(t, filepath.Join(subjectsDir, "empty", "mri", "README"), "")
	_, err = LoadRegistration(subjectsDir, "empty")
	assert.ErrorIs(t, err, models.ErrMissingSubjectData)

	// volume present but no talairach transform
	testutil.WriteMGH(t, filepath.Join(subjectsDir, "noxfm", "mri", "orig.mgz"), testutil.ConformedMGH(256, [3]float32{}), nil)
	_, err = LoadRegistration(subjectsDir, "noxfm")
	assert.ErrorIs(t, err, models.ErrMissingSubjectData)
}
