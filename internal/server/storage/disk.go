package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crateport/crateport/internal/common"
)

// DiskStorage stores blobs as files under a root directory: {name}/{version}
// for archives and {name}/{version}.readme for READMEs.
type DiskStorage struct {
	path string
}

func NewDiskStorage(path string) (*DiskStorage, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &DiskStorage{path: path}, nil
}

func (s *DiskStorage) cratePath(name, version string) string {
	return filepath.Join(s.path, name, version)
}

func (s *DiskStorage) readmePath(name, version string) string {
	return filepath.Join(s.path, name, version+".readme")
}

// put writes data to a sibling temporary file and renames it into place so
// that readers never observe a partial blob.
func (s *DiskStorage) put(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *DiskStorage) get(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %q: %w", path, common.ErrNotFound)
	}
	return data, err
}

func (s *DiskStorage) delete(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *DiskStorage) PutCrate(ctx context.Context, name, version string, data []byte) error {
	return s.put(s.cratePath(name, version), data)
}

func (s *DiskStorage) GetCrate(ctx context.Context, name, version string) ([]byte, error) {
	return s.get(s.cratePath(name, version))
}

func (s *DiskStorage) ReadCrate(ctx context.Context, name, version string) (io.ReadCloser, error) {
	file, err := os.Open(s.cratePath(name, version))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("crate %s@%s: %w", name, version, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *DiskStorage) DeleteCrate(ctx context.Context, name, version string) error {
	return s.delete(s.cratePath(name, version))
}

func (s *DiskStorage) PutReadme(ctx context.Context, name, version string, data []byte) error {
	return s.put(s.readmePath(name, version), data)
}

func (s *DiskStorage) GetReadme(ctx context.Context, name, version string) ([]byte, error) {
	return s.get(s.readmePath(name, version))
}

func (s *DiskStorage) DeleteReadme(ctx context.Context, name, version string) error {
	return s.delete(s.readmePath(name, version))
}
