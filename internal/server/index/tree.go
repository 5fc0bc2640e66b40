package index

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/crateport/crateport/internal/common"
)

// Tree reads and writes the per-crate files of an index working tree. It is
// shared by both index manager variants; the variants only differ in how they
// talk to git.
type Tree struct {
	path string
}

func NewTree(path string) *Tree {
	return &Tree{path: path}
}

// recordPath computes the sharded path of a crate's file, following the
// client ecosystem's published convention: 1/{name}, 2/{name}, 3/{n}/{name},
// and {na}/{me}/{name} for longer names.
func (t *Tree) recordPath(name string) string {
	switch len(name) {
	case 0:
		return filepath.Join(t.path, name)
	case 1:
		return filepath.Join(t.path, "1", name)
	case 2:
		return filepath.Join(t.path, "2", name)
	case 3:
		return filepath.Join(t.path, "3", name[:1], name)
	default:
		return filepath.Join(t.path, name[0:2], name[2:4], name)
	}
}

func (t *Tree) Configuration() (*ConfigFile, error) {
	data, err := os.ReadFile(filepath.Join(t.path, "config.json"))
	if err != nil {
		return nil, err
	}
	var cfg ConfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllRecords returns every version record for a crate, in file (publication)
// order.
func (t *Tree) AllRecords(name string) ([]Record, error) {
	file, err := os.Open(t.recordPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("crate %q: %w", name, common.ErrNotFound)
		}
		return nil, err
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("crate %q: decoding record line: %w", name, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("crate %q: %w", name, common.ErrNotFound)
	}
	return records, nil
}

// LatestRecord returns the record with the highest version.
func (t *Tree) LatestRecord(name string) (*Record, error) {
	records, err := t.AllRecords(name)
	if err != nil {
		return nil, err
	}
	latest := &records[0]
	for i := 1; i < len(records); i++ {
		if records[i].Vers.GreaterThan(latest.Vers) {
			latest = &records[i]
		}
	}
	return latest, nil
}

// MatchRecord returns the highest record whose version satisfies req.
func (t *Tree) MatchRecord(name string, req *semver.Constraints) (*Record, error) {
	records, err := t.AllRecords(name)
	if err != nil {
		return nil, err
	}
	var found *Record
	for i := range records {
		if !req.Check(records[i].Vers) {
			continue
		}
		if found == nil || records[i].Vers.GreaterThan(found.Vers) {
			found = &records[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("crate %q: no version matching %q: %w", name, req.String(), common.ErrNotFound)
	}
	return found, nil
}

// AddRecord appends a record line to the crate's file. The write goes to a
// sibling temporary file which is renamed into place, so a reader (or a crash
// mid-write) never observes a partial line.
func (t *Tree) AddRecord(record Record) error {
	path := t.recordPath(record.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.Write(line)
	buf.WriteByte('\n')

	return replaceFile(path, buf.Bytes())
}

// AlterRecord applies fn to the record for (name, vers) and rewrites the
// file, keeping line order. It reports whether the record changed; when fn
// leaves the record identical the file is untouched.
func (t *Tree) AlterRecord(name string, vers *semver.Version, fn func(*Record)) (bool, error) {
	records, err := t.AllRecords(name)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range records {
		if records[i].Vers.Equal(vers) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, fmt.Errorf("crate %q: version %q: %w", name, vers.String(), common.ErrNotFound)
	}

	before, err := json.Marshal(records[idx])
	if err != nil {
		return false, err
	}
	fn(&records[idx])
	after, err := json.Marshal(records[idx])
	if err != nil {
		return false, err
	}
	if bytes.Equal(before, after) {
		return false, nil
	}

	var buf bytes.Buffer
	for i := range records {
		line, err := json.Marshal(records[i])
		if err != nil {
			return false, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := replaceFile(t.recordPath(name), buf.Bytes()); err != nil {
		return false, err
	}
	return true, nil
}

// replaceFile writes data to a temporary file next to path and renames it
// into place.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".crateport-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
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
