package capture

import (
	"io"
	"os"
	"path/filepath"

	dErrors "gemnet/pkg/domain-errors"
)

// FileAdapter produces an Image from a selected file. At most one file per
// submission; a second selection replaces the first rather than queuing.
type FileAdapter struct{}

func NewFileAdapter() *FileAdapter {
	return &FileAdapter{}
}

// FromPath reads and normalizes one file from disk.
func (a *FileAdapter) FromPath(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, dErrors.Wrap(dErrors.CodeCapture, "cannot open image file", err)
	}
	defer f.Close()

	return a.FromReader(f, filepath.Base(path))
}

// FromReader reads and normalizes one file from a stream. Reading stops one
// byte past the size cap so an oversized upload is rejected without
// buffering all of it.
func (a *FileAdapter) FromReader(r io.Reader, name string) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return Image{}, dErrors.Wrap(dErrors.CodeCapture, "cannot read image", err)
	}
	return Normalize(data, name)
}
