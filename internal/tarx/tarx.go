// Package tarx reads single files out of gzip-compressed tarballs, the
// archive format crates are published in.
package tarx

import (
	"archive/tar"
	"errors"
	"io"
	"path"

	"github.com/klauspost/compress/gzip"
)

// ErrFileNotFound is returned when none of the candidate paths exist in the
// archive.
var ErrFileNotFound = errors.New("file not found in archive")

// maxFileSize bounds how much of a single archive member is read into memory.
const maxFileSize = 10 << 20

// ExtractFile returns the contents of the first archive member whose cleaned
// path matches one of the candidates.
func ExtractFile(r io.Reader, candidates ...string) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	want := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		want[path.Clean(c)] = struct{}{}
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, ErrFileNotFound
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if _, ok := want[path.Clean(hdr.Name)]; !ok {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxFileSize))
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}
