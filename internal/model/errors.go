package model

import "errors"

// Input errors. Both are detected before any remote call.
var (
	// ErrMissingImage is returned when the submission carries no image data.
	ErrMissingImage = errors.New("missing input: no image was provided")

	// ErrUnsupportedImage is returned when the upload is not a JPEG or PNG image.
	ErrUnsupportedImage = errors.New("unsupported image: only JPEG and PNG are accepted")

	// ErrImageTooLarge is returned when the upload exceeds the configured size limit.
	ErrImageTooLarge = errors.New("image is too large")
)

// ErrInvalidTransition is returned when a Run is moved to a state that
// cannot follow its current one.
var ErrInvalidTransition = errors.New("invalid state transition")
