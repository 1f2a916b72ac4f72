package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CanonicalFileName is the single canonical file kept per citation key.
const CanonicalFileName = "paper.pdf"

// Files manages the PDF file store: one directory per citation key, each
// holding at most one canonical file at <root>/<key>/paper.pdf.
type Files struct {
	root string
}

// NewFiles creates the file store rooted at dir, creating it if needed.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating files directory: %w", err)
	}
	return &Files{root: dir}, nil
}

// Root returns the file store root directory.
func (f *Files) Root() string {
	return f.root
}

func (f *Files) keyDir(citationKey string) string {
	return filepath.Join(f.root, citationKey)
}

// Path returns the canonical file path for a key. No I/O.
func (f *Files) Path(citationKey string) string {
	return filepath.Join(f.keyDir(citationKey), CanonicalFileName)
}

// RelPath returns the store-relative path recorded in the database.
func (f *Files) RelPath(citationKey string) string {
	return citationKey + "/" + CanonicalFileName
}

// Exists reports whether a canonical file exists for the key.
func (f *Files) Exists(citationKey string) bool {
	_, err := os.Stat(f.Path(citationKey))
	return err == nil
}

// Store copies the source file into the key's directory and returns the
// store-relative path. The copy goes to a temp file first and is renamed
// into place, so a crash never leaves a partial canonical file. Calling
// Store again for the same key overwrites the previous file.
func (f *Files) Store(sourcePath, citationKey string) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("opening source file: %w", err)
	}
	defer src.Close()

	dir := f.keyDir(citationKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating paper directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".paper-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("copying file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.Path(citationKey)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming into place: %w", err)
	}
	return f.RelPath(citationKey), nil
}

// Rename moves a key's directory to a new key and returns the new
// store-relative path. Returns "" (and no error) when the old directory
// does not exist.
func (f *Files) Rename(oldKey, newKey string) (string, error) {
	oldDir := f.keyDir(oldKey)
	if _, err := os.Stat(oldDir); err != nil {
		return "", nil
	}
	if err := os.Rename(oldDir, f.keyDir(newKey)); err != nil {
		return "", fmt.Errorf("renaming %s to %s: %w", oldKey, newKey, err)
	}
	return f.RelPath(newKey), nil
}

// Delete removes a key's directory. Returns true when something was
// removed.
func (f *Files) Delete(citationKey string) (bool, error) {
	dir := f.keyDir(citationKey)
	if _, err := os.Stat(dir); err != nil {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("deleting %s: %w", citationKey, err)
	}
	return true, nil
}

// ListKeys enumerates keys whose directory contains a canonical file.
func (f *Files) ListKeys() (map[string]bool, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("listing files directory: %w", err)
	}
	keys := make(map[string]bool)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(f.root, entry.Name(), CanonicalFileName)); err == nil {
			keys[entry.Name()] = true
		}
	}
	return keys, nil
}

// DeleteAll removes every key directory and returns how many were removed.
func (f *Files) DeleteAll() (int, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return 0, fmt.Errorf("listing files directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(f.root, entry.Name())); err != nil {
			return count, fmt.Errorf("deleting %s: %w", entry.Name(), err)
		}
		count++
	}
	return count, nil
}
