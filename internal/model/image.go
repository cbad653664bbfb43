package model

import (
	"net/http"
	"path/filepath"
	"strings"
)

// Accepted upload types.
const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
)

// Image is an uploaded photo of the insect.
type Image struct {
	// Name is the original file name, informational only.
	Name string `json:"name,omitempty"`

	// MIMEType is sniffed from Data, never taken from Name.
	MIMEType string `json:"mime_type"`

	// Data is the raw file content.
	Data []byte `json:"-"`
}

// NewImage wraps raw upload bytes and sniffs their type.
// It returns ErrMissingImage for empty data and ErrUnsupportedImage when the
// content is neither JPEG nor PNG.
func NewImage(name string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrMissingImage
	}
	mime := SniffImageType(data)
	if mime == "" {
		return Image{}, ErrUnsupportedImage
	}
	return Image{
		Name:     filepath.Base(name),
		MIMEType: mime,
		Data:     data,
	}, nil
}

// SniffImageType returns MIMETypeJPEG or MIMETypePNG, or "" for anything else.
func SniffImageType(data []byte) string {
	switch ct := http.DetectContentType(data); {
	case strings.HasPrefix(ct, MIMETypeJPEG):
		return MIMETypeJPEG
	case strings.HasPrefix(ct, MIMETypePNG):
		return MIMETypePNG
	default:
		return ""
	}
}

// Extension returns the file extension for the image type, including the dot.
func (i Image) Extension() string {
	if i.MIMEType == MIMETypePNG {
		return ".png"
	}
	return ".jpg"
}

// Size returns the image size in bytes.
func (i Image) Size() int {
	return len(i.Data)
}
