package model

import "time"

// ImageMetadata describes the uploaded image without holding its content.
// It is recorded with the run so a report can be traced back to the photo.
type ImageMetadata struct {
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`

	// Digest is the hex BLAKE2b-256 of the image bytes.
	Digest string `json:"digest"`

	// EXIF fields, empty when the image carries no EXIF block.
	CapturedAt  time.Time `json:"captured_at,omitzero"`
	CameraMake  string    `json:"camera_make,omitempty"`
	CameraModel string    `json:"camera_model,omitempty"`

	// HasGPS is true when the EXIF block carries a location.
	// The coordinates themselves are never recorded.
	HasGPS bool `json:"has_gps"`
}
