package models

import "errors"

// Errors returned by coordinate conversion. Callers should match them with
// errors.Is since they are usually wrapped with context.
var (
	// ErrInvalidArgument is returned for an unrecognized frame or unit.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingReferenceImage is returned when a conversion needs the
	// IntendedFor image but the sensors do not carry one.
	ErrMissingReferenceImage = errors.New("missing reference image")

	// ErrUnresolvableSubject is returned when no subject can be derived
	// from the reference image filename.
	ErrUnresolvableSubject = errors.New("unresolvable subject")

	// ErrMissingSubjectData is returned when the subject's reconstruction
	// volume or registration is absent from the subjects directory.
	ErrMissingSubjectData = errors.New("missing subject data")

	// ErrFrameMismatch is returned when the reference image geometry does
	// not match the subject's reconstruction input volume.
	ErrFrameMismatch = errors.New("frame mismatch")
)
