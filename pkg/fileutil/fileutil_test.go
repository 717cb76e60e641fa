package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exists.txt")

	if Exists(path) {
		t.Error("Exists() = true for missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("Exists() = false for existing file")
	}
}

func TestWriteTmpThenMove(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "nested", "report.csv")

	err := WriteTmpThenMove(outPath, func(tmpPath string) error {
		if filepath.Dir(tmpPath) != filepath.Dir(outPath) {
			t.Errorf("tmp path %s not next to %s", tmpPath, outPath)
		}
		return os.WriteFile(tmpPath, []byte("content"), 0o644)
	})
	if err != nil {
		t.Fatalf("WriteTmpThenMove: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("content = %q, want %q", data, "content")
	}

	entries, _ := os.ReadDir(filepath.Dir(outPath))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the output", len(entries))
	}
}

func TestWriteTmpThenMoveError(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "report.csv")
	writeErr := errors.New("encode failed")

	err := WriteTmpThenMove(outPath, func(tmpPath string) error {
		_ = os.WriteFile(tmpPath, []byte("partial"), 0o644)
		return writeErr
	})
	if !errors.Is(err, writeErr) {
		t.Fatalf("error = %v, want %v", err, writeErr)
	}
	if Exists(outPath) {
		t.Error("output exists after failed write")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := WriteFileAtomic(path, []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("new")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}
