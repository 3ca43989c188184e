// Package coords converts electrode coordinates between voxel and millimeter
// units and between the native MRI, FreeSurfer surface (tkras) and MNI
// frames.
//
// Frame conversions always pass through native MRI scanner RAS millimeters:
// the source frame is undone first, then the target frame is applied. This
// avoids needing direct tkras/MNI transforms, which FreeSurfer does not
// provide.
package coords

import (
	"io"
	"log"
	"os"

	"electrocoords/pkg/affine"
	"electrocoords/pkg/freesurfer"
	"electrocoords/pkg/volume"
)

// Params holds the converter configuration and its collaborators. Nil
// collaborators are replaced with the file-based defaults.
type Params struct {
	// SubjectsDir is the FreeSurfer subjects directory. Only needed for MNI
	// conversions.
	SubjectsDir string

	// Tolerance is used to check that the reference image and the subject's
	// reconstruction volume share the same geometry.
	Tolerance affine.Tolerance

	// Verbose logs which affine is applied at each step
	Verbose bool

	// Logger receives informational messages and warnings. Defaults to the
	// standard logger.
	Logger *log.Logger

	// LoadHeader reads the geometry of an image
	LoadHeader func(path string) (volume.Header, error)

	// LoadRegistration reads a subject's canonical geometry and MNI transform
	LoadRegistration func(subjectsDir, subject string) (*freesurfer.Registration, error)

	// ResolveSubject derives the subject label from an image path
	ResolveSubject func(path string) (string, error)
}

// Converter performs coordinate conversions. It holds no mutable state and
// may be shared between goroutines.
type Converter struct {
	params Params
	info   *log.Logger
	warn   *log.Logger
}

// NewConverter creates a converter. A zero Tolerance selects
// affine.DefaultTolerance.
func NewConverter(params *Params) *Converter {
	p := Params{}
	if params != nil {
		p = *params
	}
	if p.Tolerance == (affine.Tolerance{}) {
		p.Tolerance = affine.DefaultTolerance
	}
	if p.Logger == nil {
		p.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if p.LoadHeader == nil {
		p.LoadHeader = volume.LoadHeader
	}
	if p.LoadRegistration == nil {
		p.LoadRegistration = freesurfer.LoadRegistration
	}
	if p.ResolveSubject == nil {
		p.ResolveSubject = freesurfer.SubjectFromFilename
	}

	info := p.Logger
	if !p.Verbose {
		info = log.New(io.Discard, "", 0)
	}
	return &Converter{params: p, info: info, warn: p.Logger}
}

// SubjectsDir returns the subjects directory used for MNI conversions.
func (c *Converter) SubjectsDir() string { return c.params.SubjectsDir }
