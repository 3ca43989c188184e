package coords

import (
	"fmt"

	"electrocoords/internal/models"
	"electrocoords/pkg/volume"
)

// ToFrame converts sensors to the target frame. The result is always in
// millimeters. Sensors already in the target frame are returned as-is. Use
// ToFrameUnit to land in voxel coordinates of the native frame.
//
// tkras <-> mni conversions are done in two hops through native MRI space.
func (c *Converter) ToFrame(s *models.Sensors, target models.Frame) (*models.Sensors, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: converting coordinates to %v is not accepted, use one of mri, tkras, mni", models.ErrInvalidArgument, target)
	}

	tag := s.Tag()
	if !tag.Frame.Valid() {
		return nil, fmt.Errorf("%w: sensors have unknown frame %v", models.ErrInvalidArgument, tag.Frame)
	}
	if tag.Frame == target {
		return s, nil
	}

	hdr, err := c.referenceHeader(s)
	if err != nil {
		return nil, err
	}
	c.info.Printf("Converting coordinates from %v to %v using %s", tag, target, s.IntendedFor())

	ras, err := c.toNative(s.Points(), tag, s.IntendedFor(), hdr)
	if err != nil {
		return nil, err
	}
	points, err := c.fromNative(ras, target, s.IntendedFor(), hdr)
	if err != nil {
		return nil, err
	}

	return s.WithPoints(points, models.CoordinateTag{Frame: target, Unit: models.Millimeter})
}

// ToFrameUnit converts sensors to the target frame and then to unit, so that
// native voxel sensors sent to another frame can be brought back to voxels in
// one call. round is applied as in ToUnit.
func (c *Converter) ToFrameUnit(s *models.Sensors, target models.Frame, unit models.Unit, round bool) (*models.Sensors, error) {
	if unit != models.Voxel && unit != models.Millimeter {
		return nil, fmt.Errorf("%w: converting coordinates to %v is not accepted, use one of voxel, mm", models.ErrInvalidArgument, unit)
	}
	if unit == models.Voxel && target != models.NativeMRI {
		return nil, fmt.Errorf("%w: voxel coordinates only exist in the %v frame, not %v", models.ErrInvalidArgument, models.NativeMRI, target)
	}

	out, err := c.ToFrame(s, target)
	if err != nil {
		return nil, err
	}
	return c.ToUnit(out, unit, round)
}

// toNative undoes the frame of points, returning native scanner RAS
// millimeters.
func (c *Converter) toNative(points []models.Point, tag models.CoordinateTag, imagePath string, hdr volume.Header) ([]models.Point, error) {
	if tag.Frame == models.NativeMRI && tag.Unit == models.Voxel {
		return voxelsToMillimeters(points, hdr), nil
	}

	mm, err := ScaleCoordinates(points, tag.Unit, models.Millimeter)
	if err != nil {
		return nil, err
	}

	var vox []models.Point
	switch tag.Frame {
	case models.NativeMRI:
		return mm, nil
	case models.TkRAS:
		vox, err = c.VoxToTkras(mm, hdr, true)
	case models.MNI:
		vox, err = c.VoxToMNI(mm, imagePath, hdr, true)
	default:
		return nil, fmt.Errorf("%w: unknown frame %v", models.ErrInvalidArgument, tag.Frame)
	}
	if err != nil {
		return nil, err
	}
	return voxelsToMillimeters(vox, hdr), nil
}

// fromNative maps native scanner RAS millimeters into target.
func (c *Converter) fromNative(ras []models.Point, target models.Frame, imagePath string, hdr volume.Header) ([]models.Point, error) {
	if target == models.NativeMRI {
		return ras, nil
	}

	vox, err := millimetersToVoxels(ras, hdr)
	if err != nil {
		return nil, err
	}

	switch target {
	case models.TkRAS:
		return c.VoxToTkras(vox, hdr, false)
	case models.MNI:
		return c.VoxToMNI(vox, imagePath, hdr, false)
	}
	return nil, fmt.Errorf("%w: unknown frame %v", models.ErrInvalidArgument, target)
}
