package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePaths expands corpus paths into an ordered list of files. Files are
// kept as given, whatever their extension. Directories are walked in lexical
// order and contribute regular files whose extension is in allowedExts.
func ResolvePaths(paths []string, allowedExts []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no corpus paths given")
	}
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat corpus path: %w", err)
		}
		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				return nil, fmt.Errorf("not a regular file: %s", p)
			}
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
				return nil
			}
			// Resolve symlinks so only regular files are read
			finfo, statErr := os.Stat(path)
			if statErr != nil || !finfo.Mode().IsRegular() {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return files, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
