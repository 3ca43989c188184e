package labeling

import (
	"fmt"
	"math"

	"electrocoords/internal/models"
	"electrocoords/pkg/coords"
	"electrocoords/pkg/volume"
)

const (
	// LabelUnknown is used for codes missing from the lookup table
	LabelUnknown = "Unknown"

	// LabelOutside is used for contacts outside the segmentation volume
	LabelOutside = "n/a"
)

// Labeler looks up the structure under each electrode contact.
type Labeler struct {
	conv *coords.Converter
	lut  LUT

	// LoadVolume reads a segmentation. Defaults to volume.LoadVolume.
	LoadVolume func(path string) (*volume.Volume, error)
}

// NewLabeler creates a labeler that uses conv to bring sensors into native
// MRI space.
func NewLabeler(conv *coords.Converter, lut LUT) *Labeler {
	return &Labeler{conv: conv, lut: lut, LoadVolume: volume.LoadVolume}
}

// Label returns a copy of s with a column named after the atlas of segPath
// holding one structure name per contact. The segmentation must be in the
// subject's native MRI space.
func (l *Labeler) Label(s *models.Sensors, segPath string) (*models.Sensors, error) {
	atlas, err := AtlasForImage(segPath)
	if err != nil {
		return nil, err
	}

	native, err := l.conv.ToFrame(s, models.NativeMRI)
	if err != nil {
		return nil, err
	}
	native, err = l.conv.ToUnit(native, models.Millimeter, false)
	if err != nil {
		return nil, err
	}

	seg, err := l.LoadVolume(segPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load segmentation: %w", err)
	}
	ras2vox, err := seg.Header.Vox2RAS().Inverse()
	if err != nil {
		return nil, fmt.Errorf("segmentation affine: %w", err)
	}

	vox := ras2vox.Apply(native.Points())
	labels := make([]string, len(vox))
	for i, p := range vox {
		labels[i] = l.lookup(seg, p)
	}
	return s.WithColumn(atlas, labels)
}

func (l *Labeler) lookup(seg *volume.Volume, p models.Point) string {
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsNaN(p[2]) {
		return LabelOutside
	}
	i := int(math.RoundToEven(p[0]))
	j := int(math.RoundToEven(p[1]))
	k := int(math.RoundToEven(p[2]))

	value, ok := seg.At(i, j, k)
	if !ok || math.IsNaN(value) {
		return LabelOutside
	}
	name, ok := l.lut[int(value)]
	if !ok {
		return LabelUnknown
	}
	return name
}
