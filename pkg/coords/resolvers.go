package coords

import (
	"errors"
	"fmt"

	"electrocoords/internal/models"
	"electrocoords/pkg/affine"
	"electrocoords/pkg/volume"
)

// FallbackVox2RASTkr is the voxel to surface RAS transform of a 256^3, 1mm
// FreeSurfer conformed volume, as reported by "mri_info --vox2ras-tkr".
var FallbackVox2RASTkr = [4][4]float64{
	{-1, 0, 0, 128},
	{0, 0, 1, -128},
	{0, -1, 0, 128},
	{0, 0, 0, 1},
}

// Vox2RASTkr returns the voxel to tkras transform of hdr. Headers that do
// not carry surface RAS geometry get FallbackVox2RASTkr and a warning.
func (c *Converter) Vox2RASTkr(hdr volume.Header) affine.Affine {
	if tkr, ok := hdr.(volume.TkrHeader); ok {
		return tkr.Vox2RASTkr()
	}
	c.warn.Printf("Warning: unable to get vox2ras-tkr from %T header, using the FreeSurfer conformed default", hdr)
	return affine.New(FallbackVox2RASTkr)
}

// VoxToTkras maps voxel points to tkras millimeters, or back when inverse is
// set.
func (c *Converter) VoxToTkras(points []models.Point, hdr volume.Header, inverse bool) ([]models.Point, error) {
	vox2tkr := c.Vox2RASTkr(hdr)
	c.info.Printf("Using vox2ras-tkr affine:\n%v", vox2tkr)

	if !inverse {
		return vox2tkr.Apply(points), nil
	}
	tkr2vox, err := vox2tkr.Inverse()
	if err != nil {
		return nil, fmt.Errorf("vox2ras-tkr: %w", err)
	}
	return tkr2vox.Apply(points), nil
}

// Vox2MNI returns the voxel to MNI transform of the subject the image at
// imagePath belongs to. The image must share the geometry of the subject's
// reconstruction input volume, otherwise ErrFrameMismatch is returned.
func (c *Converter) Vox2MNI(imagePath string, hdr volume.Header) (affine.Affine, error) {
	subject, err := c.params.ResolveSubject(imagePath)
	if err != nil {
		if !errors.Is(err, models.ErrUnresolvableSubject) {
			err = fmt.Errorf("%w: %v", models.ErrUnresolvableSubject, err)
		}
		return affine.Affine{}, err
	}

	reg, err := c.params.LoadRegistration(c.params.SubjectsDir, subject)
	if err != nil {
		return affine.Affine{}, err
	}

	if !hdr.Vox2RAS().ApproxEqual(reg.Vox2RAS, c.params.Tolerance) {
		return affine.Affine{}, fmt.Errorf("%w: converting %s to MNI requires the geometry of %s\nimage vox2ras:\n%v\nsubject vox2ras:\n%v",
			models.ErrFrameMismatch, imagePath, reg.VolumePath, hdr.Vox2RAS(), reg.Vox2RAS)
	}

	c.info.Printf("Using vox2mni affine of subject %s:\n%v", subject, reg.Vox2MNI)
	return reg.Vox2MNI, nil
}

// VoxToMNI maps voxel points to MNI millimeters, or back when inverse is set.
func (c *Converter) VoxToMNI(points []models.Point, imagePath string, hdr volume.Header, inverse bool) ([]models.Point, error) {
	vox2mni, err := c.Vox2MNI(imagePath, hdr)
	if err != nil {
		return nil, err
	}

	if !inverse {
		return vox2mni.Apply(points), nil
	}
	mni2vox, err := vox2mni.Inverse()
	if err != nil {
		return nil, fmt.Errorf("vox2mni: %w", err)
	}
	return mni2vox.Apply(points), nil
}
