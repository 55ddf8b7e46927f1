package media

import "errors"

var (
	// ErrMediaNotFound signals that the media object could not be located.
	ErrMediaNotFound = errors.New("media object not found")
	// ErrNotApproved is returned when an unapproved object is requested
	// without a valid credential. Distinct from not-found.
	ErrNotApproved = errors.New("not approved yet")
	// ErrNotDerivable indicates the content type supports no preview.
	ErrNotDerivable = errors.New("content type not derivable")
	// ErrTooManyFiles signals the upload batch exceeds the per-request cap.
	ErrTooManyFiles = errors.New("too many files in upload")
	// ErrFileTooLarge signals that an upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidRange is returned for an unsatisfiable byte range.
	ErrInvalidRange = errors.New("range not satisfiable")
)
