// Package freesurfer locates the per-subject artifacts of a FreeSurfer
// reconstruction: the reconstruction input volume and the Talairach
// registration.
package freesurfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"electrocoords/internal/models"
)

// SubjectsDirEnv is the environment variable FreeSurfer uses for the
// subjects directory.
const SubjectsDirEnv = "SUBJECTS_DIR"

// SubjectFromFilename returns the label of the BIDS "sub-<label>" entity in
// the basename of path.
func SubjectFromFilename(path string) (string, error) {
	base := filepath.Base(path)
	for _, entity := range strings.Split(base, "_") {
		label, ok := strings.CutPrefix(entity, "sub-")
		if !ok {
			continue
		}
		// a lone entity such as "sub-01.nii" still carries an extension
		if i := strings.IndexByte(label, '.'); i >= 0 {
			label = label[:i]
		}
		if label != "" {
			return label, nil
		}
	}
	return "", fmt.Errorf("%w: could not interpret the subject from %s, the file is possibly not named according to BIDS", models.ErrUnresolvableSubject, path)
}

// ResolveSubjectsDir returns explicit if set, otherwise $SUBJECTS_DIR. It is
// meant to be called once when the program starts.
func ResolveSubjectsDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(SubjectsDirEnv)
}
