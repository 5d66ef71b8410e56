// Package atomicfile provides crash-safe file writing using temporary files
// and atomic renames. Presence records and the config file are only ever
// replaced whole, so a reader never sees a half-written file.

package atomicfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write atomically writes data to path using a temporary-file-and-rename
// strategy. The temp file lives in the same directory as path so the rename
// never crosses a filesystem. It is synced before the rename and removed if
// any step fails. The parent directory must already exist.
func Write(path string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := f.Name()
	var success bool
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

// WriteJSON encodes v as indented JSON with a trailing newline and writes it
// with [Write]. HTML characters are not escaped.
func WriteJSON(path string, v any, perm os.FileMode) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return Write(path, buf.Bytes(), perm)
}

// MoveAside renames path to path+suffix, replacing any earlier file with
// that name, and returns the new name. Used to keep an unreadable file for
// inspection before it is overwritten.
func MoveAside(path, suffix string) (string, error) {
	dst := path + suffix
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("move %s aside: %w", filepath.Base(path), err)
	}
	return dst, nil
}
