package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// WriteDocumentStore writes texts one per line, in position order, to path.
// Like WriteBundle it writes to a temporary sibling and renames it into place.
func WriteDocumentStore(path string, texts []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	w := bufio.NewWriter(f)
	for _, text := range texts {
		if _, err := w.WriteString(text + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("failed to write document store: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write document store: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move document store into place: %w", err)
	}
	return nil
}
