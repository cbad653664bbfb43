package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NotSpecified replaces a blank context field.
const NotSpecified = "Not Specified"

// RequestBundle is the immutable (image, location, context) tuple collected
// once per submission. Fields are unexported; accessors return copies.
type RequestBundle struct {
	image    Image
	location string
	context  string
}

// NewRequestBundle validates a submission and builds its bundle.
//
// The image must be non-empty JPEG or PNG data. A context that is empty or
// whitespace only becomes NotSpecified. Location has no required format and
// is kept as typed, apart from Unicode NFC normalization so that the same
// place name always reaches the models byte-identically.
func NewRequestBundle(img Image, location, context string) (*RequestBundle, error) {
	if len(img.Data) == 0 {
		return nil, ErrMissingImage
	}
	mime := SniffImageType(img.Data)
	if mime == "" {
		return nil, ErrUnsupportedImage
	}

	data := make([]byte, len(img.Data))
	copy(data, img.Data)

	return &RequestBundle{
		image: Image{
			Name:     img.Name,
			MIMEType: mime,
			Data:     data,
		},
		location: norm.NFC.String(location),
		context:  normalizeContext(context),
	}, nil
}

func normalizeContext(context string) string {
	if strings.TrimSpace(context) == "" {
		return NotSpecified
	}
	return norm.NFC.String(context)
}

// Image returns a copy of the uploaded image.
func (b *RequestBundle) Image() Image {
	img := b.image
	img.Data = make([]byte, len(b.image.Data))
	copy(img.Data, b.image.Data)
	return img
}

// ImageData returns a copy of the raw image bytes.
func (b *RequestBundle) ImageData() []byte {
	return b.Image().Data
}

// ImageMIMEType returns the sniffed MIME type of the image.
func (b *RequestBundle) ImageMIMEType() string {
	return b.image.MIMEType
}

// ImageName returns the upload's file name.
func (b *RequestBundle) ImageName() string {
	return b.image.Name
}

// ImageExtension returns the file extension matching the image type.
func (b *RequestBundle) ImageExtension() string {
	return b.image.Extension()
}

// ImageSize returns the image size in bytes.
func (b *RequestBundle) ImageSize() int {
	return len(b.image.Data)
}

// Location returns the location text.
func (b *RequestBundle) Location() string {
	return b.location
}

// Context returns the context text, NotSpecified when the user left it blank.
func (b *RequestBundle) Context() string {
	return b.context
}
