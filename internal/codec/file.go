package codec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"eventcal/internal/store"
)

// LoadFile reads the store at path. A missing file is a cold start: an
// empty store and no error. See Decode for the other outcomes.
func LoadFile(path string) (*store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store.New(), nil
		}
		return store.New(), fmt.Errorf("codec: open %s: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// SaveFile writes the visible events of s to path, replacing any previous
// file. The write goes to a temp file in the same directory which is then
// renamed over path, so a failed save leaves the old file intact.
func SaveFile(path string, s *store.Store) error {
	if path == "" {
		return errors.New("codec: path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("codec: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-*.tmp")
	if err != nil {
		return fmt.Errorf("codec: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, s.Snapshot()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("codec: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("codec: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("codec: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("codec: replace %s: %w", path, err)
	}
	return nil
}
