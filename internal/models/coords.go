package models

import (
	"fmt"
	"strings"
)

// Point is a single 3D coordinate.
type Point [3]float64

// Frame identifies the coordinate space a set of points is expressed in.
type Frame int

const (
	// NativeMRI is the scanner RAS space of the subject's MRI.
	NativeMRI Frame = iota

	// TkRAS is FreeSurfer's surface RAS space.
	TkRAS

	// MNI is the MNI Talairach template space.
	MNI
)

var frameNames = map[Frame]string{
	NativeMRI: "mri",
	TkRAS:     "tkras",
	MNI:       "mni",
}

var frameAliases = map[string]Frame{
	"mri":        NativeMRI,
	"native":     NativeMRI,
	"native_mri": NativeMRI,
	"tkras":      TkRAS,
	"mni":        MNI,
	"fsaverage":  MNI,
	"mni305":     MNI,
}

// ParseFrame parses a frame name. Matching is case-insensitive.
func ParseFrame(s string) (Frame, error) {
	f, ok := frameAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: frame %q is not one of mri, tkras, mni", ErrInvalidArgument, s)
	}
	return f, nil
}

// Valid reports whether f is one of the known frames.
func (f Frame) Valid() bool {
	_, ok := frameNames[f]
	return ok
}

func (f Frame) String() string {
	if name, ok := frameNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frame(%d)", int(f))
}

// Unit identifies how the numbers of a point are scaled.
type Unit int

const (
	// Voxel is a grid index into the reference image.
	Voxel Unit = iota
	Millimeter
	Centimeter
	Meter
)

var unitNames = map[Unit]string{
	Voxel:      "voxel",
	Millimeter: "mm",
	Centimeter: "cm",
	Meter:      "m",
}

var unitAliases = map[string]Unit{
	"voxel":  Voxel,
	"vox":    Voxel,
	"pixels": Voxel,
	"mm":     Millimeter,
	"cm":     Centimeter,
	"m":      Meter,
}

// ParseUnit parses a unit name such as "voxel" or "mm".
func ParseUnit(s string) (Unit, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unit %q is not one of voxel, mm, cm, m", ErrInvalidArgument, s)
	}
	return u, nil
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	_, ok := unitNames[u]
	return ok
}

// Physical reports whether u is a length unit rather than a grid index.
func (u Unit) Physical() bool {
	return u == Millimeter || u == Centimeter || u == Meter
}

// MillimetersPer returns how many millimeters one u is. It is zero for
// non-physical units.
func (u Unit) MillimetersPer() float64 {
	switch u {
	case Millimeter:
		return 1
	case Centimeter:
		return 10
	case Meter:
		return 1000
	}
	return 0
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// CoordinateTag describes how the points of a Sensors value are to be read.
type CoordinateTag struct {
	Frame Frame
	Unit  Unit
}

func (t CoordinateTag) String() string {
	return t.Frame.String() + "/" + t.Unit.String()
}
