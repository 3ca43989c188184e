package coords

import (
	"fmt"
	"math"

	"electrocoords/internal/models"
	"electrocoords/pkg/volume"
)

// ScaleCoordinates rescales points between physical length units. Voxel
// coordinates cannot be scaled and are rejected.
func ScaleCoordinates(points []models.Point, from, to models.Unit) ([]models.Point, error) {
	if !from.Physical() || !to.Physical() {
		return nil, fmt.Errorf("%w: cannot scale %v coordinates to %v", models.ErrInvalidArgument, from, to)
	}

	out := make([]models.Point, len(points))
	factor := from.MillimetersPer() / to.MillimetersPer()
	for i, p := range points {
		out[i] = models.Point{p[0] * factor, p[1] * factor, p[2] * factor}
	}
	return out, nil
}

// ToUnit converts sensors between voxel and millimeter coordinates of their
// reference image. The frame is unchanged. When round is set and the target
// is Voxel the result is rounded to the nearest voxel (halves to even).
//
// Sensors already in the target unit are returned as-is.
func (c *Converter) ToUnit(s *models.Sensors, target models.Unit, round bool) (*models.Sensors, error) {
	if target != models.Voxel && target != models.Millimeter {
		return nil, fmt.Errorf("%w: converting coordinates to %v is not accepted, use one of voxel, mm", models.ErrInvalidArgument, target)
	}

	tag := s.Tag()
	if !tag.Unit.Valid() {
		return nil, fmt.Errorf("%w: sensors have unknown unit %v", models.ErrInvalidArgument, tag.Unit)
	}
	if tag.Unit == target {
		return s, nil
	}

	points := s.Points()

	// Changing the length scale needs no image
	if target == models.Millimeter && tag.Unit.Physical() {
		scaled, err := ScaleCoordinates(points, tag.Unit, models.Millimeter)
		if err != nil {
			return nil, err
		}
		return s.WithPoints(scaled, models.CoordinateTag{Frame: tag.Frame, Unit: target})
	}

	if tag.Frame != models.NativeMRI {
		return nil, fmt.Errorf("%w: voxel coordinates only exist in the %v frame, sensors are in %v", models.ErrInvalidArgument, models.NativeMRI, tag.Frame)
	}

	hdr, err := c.referenceHeader(s)
	if err != nil {
		return nil, err
	}
	c.info.Printf("Converting coordinates from %v to %v using %s", tag.Unit, target, s.IntendedFor())

	switch target {
	case models.Millimeter:
		points = voxelsToMillimeters(points, hdr)
	case models.Voxel:
		points, err = ScaleCoordinates(points, tag.Unit, models.Millimeter)
		if err != nil {
			return nil, err
		}
		points, err = millimetersToVoxels(points, hdr)
		if err != nil {
			return nil, err
		}
		if round {
			roundPoints(points)
		}
	}

	return s.WithPoints(points, models.CoordinateTag{Frame: tag.Frame, Unit: target})
}

// referenceHeader loads the header of the sensors' IntendedFor image.
func (c *Converter) referenceHeader(s *models.Sensors) (volume.Header, error) {
	path := s.IntendedFor()
	if path == "" {
		return nil, fmt.Errorf("%w: need IntendedFor image path for %v", models.ErrMissingReferenceImage, s)
	}
	hdr, err := c.params.LoadHeader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference image: %w", err)
	}
	return hdr, nil
}

func voxelsToMillimeters(points []models.Point, hdr volume.Header) []models.Point {
	return hdr.Vox2RAS().Apply(points)
}

func millimetersToVoxels(points []models.Point, hdr volume.Header) ([]models.Point, error) {
	ras2vox, err := hdr.Vox2RAS().Inverse()
	if err != nil {
		return nil, fmt.Errorf("reference image affine: %w", err)
	}
	return ras2vox.Apply(points), nil
}

func roundPoints(points []models.Point) {
	for i := range points {
		for j := range points[i] {
			points[i][j] = math.RoundToEven(points[i][j])
		}
	}
}
