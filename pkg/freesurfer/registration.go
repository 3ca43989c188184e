package freesurfer

import (
	"fmt"
	"os"
	"path/filepath"

	"electrocoords/internal/models"
	"electrocoords/pkg/affine"
	"electrocoords/pkg/volume"
)

// reconstructionVolumes are tried in order for the reconstruction input
// volume of a subject.
var reconstructionVolumes = []string{"orig.mgz", "T1.mgz"}

// talairachXFM is the subject's registration to MNI Talairach space,
// relative to the subject directory.
var talairachXFM = filepath.Join("mri", "transforms", "talairach.xfm")

// Registration holds the read-only per-subject transforms.
type Registration struct {
	// Subject is the subject label
	Subject string

	// Dir is the subject directory inside the subjects directory
	Dir string

	// VolumePath is the reconstruction input volume used for Vox2RAS
	VolumePath string

	// Vox2RAS is the canonical voxel to scanner RAS transform
	Vox2RAS affine.Affine

	// Vox2MNI maps canonical voxels to MNI Talairach millimeters
	Vox2MNI affine.Affine
}

// SubjectDir finds the directory of subject in subjectsDir. Both the bare
// label and the BIDS "sub-<label>" name are accepted.
func SubjectDir(subjectsDir, subject string) (string, error) {
	if subjectsDir == "" {
		return "", fmt.Errorf("%w: subjects directory is not set", models.ErrMissingSubjectData)
	}

	candidates := []string{subject, "sub-" + subject}
	for _, name := range candidates {
		dir := filepath.Join(subjectsDir, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: subject %s not found in %s", models.ErrMissingSubjectData, subject, subjectsDir)
}

// ReconstructionVolume returns the path of orig.mgz, falling back to T1.mgz.
func ReconstructionVolume(subjectDir string) (string, error) {
	var path string
	for _, name := range reconstructionVolumes {
		path = filepath.Join(subjectDir, "mri", name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: mri not found: %s", models.ErrMissingSubjectData, path)
}

// LoadRegistration reads the canonical geometry and the Talairach transform
// of subject.
func LoadRegistration(subjectsDir, subject string) (*Registration, error) {
	dir, err := SubjectDir(subjectsDir, subject)
	if err != nil {
		return nil, err
	}

	volPath, err := ReconstructionVolume(dir)
	if err != nil {
		return nil, err
	}
	hdr, err := volume.LoadHeader(volPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reconstruction volume: %w", err)
	}

	xfmPath := filepath.Join(dir, talairachXFM)
	f, err := os.Open(xfmPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: talairach transform not found: %s", models.ErrMissingSubjectData, xfmPath)
		}
		return nil, err
	}
	defer f.Close()

	ras2mni, err := ReadXFM(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", xfmPath, err)
	}

	vox2ras := hdr.Vox2RAS()
	return &Registration{
		Subject:    subject,
		Dir:        dir,
		VolumePath: volPath,
		Vox2RAS:    vox2ras,
		Vox2MNI:    ras2mni.Mul(vox2ras),
	}, nil
}
