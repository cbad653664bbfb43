package imageinfo

import (
	"encoding/hex"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/pestadvisor/internal/model"
)

// exifTimeLayout is the EXIF DateTime format.
const exifTimeLayout = "2006:01:02 15:04:05"

// Inspect returns metadata for a JPEG or PNG image.
// A missing or unreadable EXIF block is not an error; the EXIF fields are
// simply left empty.
func Inspect(data []byte) (*model.ImageMetadata, error) {
	if len(data) == 0 {
		return nil, model.ErrMissingImage
	}
	mime := model.SniffImageType(data)
	if mime == "" {
		return nil, model.ErrUnsupportedImage
	}

	meta := &model.ImageMetadata{
		MIMEType: mime,
		Size:     len(data),
		Digest:   Digest(data),
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return meta, nil
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return meta, nil
	}
	applyEntries(meta, entries)
	return meta, nil
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func applyEntries(meta *model.ImageMetadata, entries []exif.ExifTag) {
	var fallback time.Time
	for _, entry := range entries {
		value := cleanValue(entry.Formatted)

		switch entry.TagName {
		case "GPSLatitude", "GPSLongitude":
			meta.HasGPS = true
		case "Make":
			meta.CameraMake = value
		case "Model":
			meta.CameraModel = value
		case "DateTimeOriginal":
			if t, ok := parseExifTime(value); ok {
				meta.CapturedAt = t
			}
		case "DateTime", "DateTimeDigitized":
			if t, ok := parseExifTime(value); ok && fallback.IsZero() {
				fallback = t
			}
		}
	}
	if meta.CapturedAt.IsZero() {
		meta.CapturedAt = fallback
	}
}

// cleanValue strips the quoting and NUL padding some cameras leave in ASCII tags.
func cleanValue(s string) string {
	s = strings.TrimRight(s, "\x00")
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

// parseExifTime parses an EXIF timestamp. Timestamps carry no zone, so the
// result is in UTC by convention.
func parseExifTime(s string) (time.Time, bool) {
	if s == "" || strings.HasPrefix(s, "0000") {
		return time.Time{}, false
	}
	t, err := time.Parse(exifTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
