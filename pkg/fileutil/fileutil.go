// Package fileutil writes output files with tmp+mv semantics so a reader
// never observes a partially written report.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exists returns true if the file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteTmpThenMove writes to a temporary file next to outPath, fsyncs it,
// then renames it over outPath. writeFunc receives the temporary path and
// must write the complete file.
func WriteTmpThenMove(outPath string, writeFunc func(tmpPath string) error) error {
	outDir := filepath.Dir(outPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := filepath.Join(outDir, "."+filepath.Base(outPath)+".tmp")

	if err := writeFunc(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to path through WriteTmpThenMove.
func WriteFileAtomic(path string, data []byte) error {
	return WriteTmpThenMove(path, func(tmpPath string) error {
		if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		return nil
	})
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	f.Close()
	return err
}
