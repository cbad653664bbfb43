package imageinfo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/pestadvisor/internal/model"
)

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jpegPath := filepath.Join(dir, "weevil.jpg")
	if err := os.WriteFile(jpegPath, jpegNoExif, 0o600); err != nil {
		t.Fatal(err)
	}
	textPath := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(textPath, []byte("plain text, not a picture"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("reads a jpeg", func(t *testing.T) {
		t.Parallel()

		img, err := ReadFile(jpegPath, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if img.MIMEType != model.MIMETypeJPEG || img.Name != "weevil.jpg" || img.Size() != len(jpegNoExif) {
			t.Errorf("unexpected image: %+v", img)
		}
	})

	tests := []struct {
		name    string
		path    string
		maxSize int64
		want    error
	}{
		{"blank path", "  ", 0, model.ErrMissingImage},
		{"missing file", filepath.Join(dir, "nope.jpg"), 0, model.ErrMissingImage},
		{"directory", dir, 0, model.ErrMissingImage},
		{"over the limit", jpegPath, 8, model.ErrImageTooLarge},
		{"not an image", textPath, 0, model.ErrUnsupportedImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ReadFile(tt.path, tt.maxSize); !errors.Is(err, tt.want) {
				t.Errorf("ReadFile() error = %v, want %v", err, tt.want)
			}
		})
	}
}
