package applications

import "errors"

var (
	// ErrInvalidInput marks a request the user must correct.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDirectUploadUnavailable is returned when the object store cannot presign uploads.
	ErrDirectUploadUnavailable = errors.New("direct upload unavailable")
)
