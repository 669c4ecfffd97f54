// Package local writes downloaded documents into a directory.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// ErrInvalidName is returned for names with no usable file name part.
var ErrInvalidName = errors.New(errors.ErrCodeValidation, "invalid document name")

// Saver writes documents into Dir. Existing files are never overwritten; a
// numeric suffix is added instead.
type Saver struct {
	Dir string
}

// NewSaver returns a Saver for dir, creating it when missing.
func NewSaver(dir string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create download directory").WithDetail(dir)
	}
	return &Saver{Dir: dir}, nil
}

// Save writes data to a file named after name and returns its path.
func (s *Saver) Save(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return "", ErrInvalidName
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		p := filepath.Join(s.Dir, candidate)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to create file").WithDetail(p)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(p)
			return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to write file").WithDetail(p)
		}
		if err := f.Close(); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to close file").WithDetail(p)
		}
		return p, nil
	}
	return "", errors.New(errors.ErrCodeStorageError, "no free file name").WithDetail(name)
}
