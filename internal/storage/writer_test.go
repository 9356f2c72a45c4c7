package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dir", "out.bin")

	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	if _, err := w.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.Written() != 11 {
		t.Errorf("Written = %d, want 11", w.Written())
	}
	if w.Path() != path {
		t.Errorf("Path = %s, want %s", w.Path(), path)
	}

	if err := w.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("file content = %q", data)
	}
}

func TestFileWriter_Closed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Idempotent close
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	if _, err := w.Write([]byte("late")); err == nil {
		t.Error("Write after Close expected error")
	}
	if err := w.Sync(); err == nil {
		t.Error("Sync after Close expected error")
	}
}

func TestFileWriter_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	if err := os.WriteFile(path, []byte("previous longer content"), 0644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	w.Write([]byte("new"))
	w.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("file content = %q, want the old content truncated away", data)
	}
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("12345"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	if !FileExists(path) {
		t.Error("FileExists = false for an existing file")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists = true for a missing file")
	}

	size, err := FileSize(path)
	if err != nil || size != 5 {
		t.Errorf("FileSize = (%d, %v), want (5, nil)", size, err)
	}
	if _, err := FileSize(filepath.Join(dir, "missing")); err == nil {
		t.Error("FileSize on missing file expected error")
	}

	if err := RemoveFile(path); err != nil {
		t.Errorf("RemoveFile: %v", err)
	}
	if FileExists(path) {
		t.Error("file still exists after RemoveFile")
	}
	// Removing an already-missing file is fine
	if err := RemoveFile(path); err != nil {
		t.Errorf("RemoveFile on missing file = %v, want nil", err)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("copy me"), 0644); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "copy me" {
		t.Errorf("destination = (%q, %v)", data, err)
	}

	if err := CopyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Error("CopyFile from missing source expected error")
	}
}
