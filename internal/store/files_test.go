package store

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestFiles(t *testing.T) *Files {
	t.Helper()
	files, err := NewFiles(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("NewFiles() error = %v", err)
	}
	return files
}

func writeSourcePDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.pdf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing source pdf: %v", err)
	}
	return path
}

func TestFiles_StoreAndExists(t *testing.T) {
	files := newTestFiles(t)
	source := writeSourcePDF(t, "pdf-bytes")

	rel, err := files.Store(source, "smith2023deep")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if rel != filepath.Join("smith2023deep", CanonicalFileName) {
		t.Errorf("Store() rel path = %q", rel)
	}

	if !files.Exists("smith2023deep") {
		t.Error("Exists() = false after Store()")
	}

	data, err := os.ReadFile(files.Path("smith2023deep"))
	if err != nil {
		t.Fatalf("reading stored pdf: %v", err)
	}
	if string(data) != "pdf-bytes" {
		t.Errorf("stored content = %q, want pdf-bytes", data)
	}
}

func TestFiles_Store_MissingSource(t *testing.T) {
	files := newTestFiles(t)

	if _, err := files.Store(filepath.Join(t.TempDir(), "missing.pdf"), "key2023x"); err == nil {
		t.Error("Store() should fail for missing source")
	}
	if files.Exists("key2023x") {
		t.Error("failed Store() should not leave a stored file")
	}
}

func TestFiles_Rename(t *testing.T) {
	files := newTestFiles(t)
	source := writeSourcePDF(t, "pdf-bytes")
	if _, err := files.Store(source, "oldkey2023"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	rel, err := files.Rename("oldkey2023", "newkey2023")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if rel != filepath.Join("newkey2023", CanonicalFileName) {
		t.Errorf("Rename() rel path = %q", rel)
	}
	if files.Exists("oldkey2023") {
		t.Error("old key should not exist after rename")
	}
	if !files.Exists("newkey2023") {
		t.Error("new key should exist after rename")
	}
}

func TestFiles_Rename_NoFile(t *testing.T) {
	files := newTestFiles(t)

	rel, err := files.Rename("absent2023", "elsewhere2023")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if rel != "" {
		t.Errorf("Rename() of absent key should return empty path, got %q", rel)
	}
}

func TestFiles_Delete(t *testing.T) {
	files := newTestFiles(t)
	source := writeSourcePDF(t, "pdf-bytes")
	if _, err := files.Store(source, "gone2023soon"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	deleted, err := files.Delete("gone2023soon")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("Delete() = false for stored key")
	}
	if files.Exists("gone2023soon") {
		t.Error("key should not exist after delete")
	}

	deleted, err = files.Delete("gone2023soon")
	if err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if deleted {
		t.Error("second Delete() = true, want false")
	}
}

func TestFiles_ListKeys(t *testing.T) {
	files := newTestFiles(t)
	source := writeSourcePDF(t, "pdf-bytes")
	for _, key := range []string{"a2023x", "b2023y"} {
		if _, err := files.Store(source, key); err != nil {
			t.Fatalf("Store(%s) error = %v", key, err)
		}
	}
	// Directory without the canonical file is not a stored key.
	if err := os.MkdirAll(filepath.Join(files.Root(), "empty2023"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	keys, err := files.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 2 || !keys["a2023x"] || !keys["b2023y"] {
		t.Errorf("ListKeys() = %v, want a2023x and b2023y", keys)
	}
}

func TestFiles_DeleteAll(t *testing.T) {
	files := newTestFiles(t)
	source := writeSourcePDF(t, "pdf-bytes")
	for _, key := range []string{"a2023x", "b2023y", "c2023z"} {
		if _, err := files.Store(source, key); err != nil {
			t.Fatalf("Store(%s) error = %v", key, err)
		}
	}

	n, err := files.DeleteAll()
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteAll() = %d, want 3", n)
	}
	keys, err := files.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("ListKeys() after DeleteAll = %v, want empty", keys)
	}
}
