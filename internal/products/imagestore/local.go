package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"product-catalog/internal/products"

	"github.com/gabriel-vasile/mimetype"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Local keeps images as files in a directory.
type Local struct {
	dir       string
	urlPrefix string
}

func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &Local{dir: dir, urlPrefix: urlPrefix}, nil
}

func (s *Local) Upload(ctx context.Context, img products.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &products.StorageError{Op: "upload", Err: err}
	}

	name := objectName(img.Name)
	path := filepath.Join(s.dir, name)
	tmp := path + ".part"

	if err := os.WriteFile(tmp, img.Data, filePerm); err != nil {
		return "", &products.StorageError{Op: "upload", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", &products.StorageError{Op: "upload", Err: err}
	}

	return publicURL(s.urlPrefix, name), nil
}

func (s *Local) Open(_ context.Context, name string) ([]byte, string, error) {
	if !validName(name) {
		return nil, "", ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", &products.StorageError{Op: "read", Err: err}
	}

	return data, mimetype.Detect(data).String(), nil
}
