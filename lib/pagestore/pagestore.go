// Package pagestore persists raw API response pages so an interrupted
// extraction can resume from the last committed page instead of page 1.
package pagestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrCorruptPage means a committed page file exists but does not hold
	// valid JSON. This is surfaced instead of silently refetching, since a
	// corrupt committed file points at a storage bug rather than a flaky
	// network.
	ErrCorruptPage = errors.New("corrupt cached page")
	// ErrPersistence means an atomic write could not be completed. The
	// previously committed file, if any, is left untouched.
	ErrPersistence = errors.New("failed to persist file")
)

type Store struct {
	root string
}

// NewStore returns a store rooted at `root`. Pages for a resource live in
// `<root>/<resource>/pages/page_NNNN.json`.
func NewStore(root string) Store {
	return Store{root: root}
}

func (s Store) Root() string {
	return s.root
}

func (s Store) pagePath(resource string, page int) string {
	return filepath.Join(s.root, resource, "pages", fmt.Sprintf("page_%04d.json", page))
}

// DatasetPath is where the consolidated dataset for a resource is written.
func (s Store) DatasetPath(resource string) string {
	return filepath.Join(s.root, fmt.Sprintf("%s_consolidated.json", resource))
}

// Has reports whether a committed page file exists. Temp files from
// interrupted writes never match the committed name, so an interrupted
// store reads as absent.
func (s Store) Has(resource string, page int) bool {
	info, err := os.Stat(s.pagePath(resource, page))
	return err == nil && info.Mode().IsRegular()
}

func (s Store) Load(resource string, page int) ([]byte, error) {
	path := s.pagePath(resource, page)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrCorruptPage, path)
	}
	return data, nil
}

func (s Store) Store(resource string, page int, payload []byte) error {
	return WriteAtomic(s.pagePath(resource, page), payload)
}

// WriteAtomic writes data to a temporary file in the target directory and
// renames it over the final path, so the final path only ever holds the old
// content or the complete new content. Any failure removes the temp file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
