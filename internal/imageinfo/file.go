package imageinfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/pestadvisor/internal/model"
)

// ReadFile loads the image at path. Files larger than maxSize are rejected
// from their size alone; a maxSize of zero disables the check.
// A missing file or a directory is reported as model.ErrMissingImage.
func ReadFile(path string, maxSize int64) (model.Image, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return model.Image{}, model.ErrMissingImage
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Image{}, fmt.Errorf("%w: %s does not exist", model.ErrMissingImage, filepath.Base(path))
		}
		return model.Image{}, err
	}
	if info.IsDir() {
		return model.Image{}, fmt.Errorf("%w: %s is a directory", model.ErrMissingImage, filepath.Base(path))
	}
	if maxSize > 0 && info.Size() > maxSize {
		return model.Image{}, fmt.Errorf("%w: %d bytes, limit is %d", model.ErrImageTooLarge, info.Size(), maxSize)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return model.NewImage(path, data)
}
