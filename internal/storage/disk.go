package storage

import (
	"fmt"
	"os"
)

// sidecarSuffixes name the files SQLite may keep next to a bundle.
var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

// bundleFiles returns the bundle path followed by its possible sidecars.
func bundleFiles(path string) []string {
	files := []string{path}
	for _, suffix := range sidecarSuffixes {
		files = append(files, path+suffix)
	}
	return files
}

// BundleSize returns the bytes the bundle at path occupies on disk, including
// any journal left next to it by an interrupted write.
func BundleSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrBundleNotFound, path)
		}
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrCorruptBundle, path)
	}
	total := info.Size()
	for _, p := range bundleFiles(path)[1:] {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			total += fi.Size()
		}
	}
	return total, nil
}
