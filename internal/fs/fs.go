// Package fs provides filesystem abstraction using spf13/afero for testability.
// Converted scripts, discovered inputs and the local config file all go
// through FS, so tests can swap in an in-memory filesystem.
package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FS is the global filesystem interface used throughout the application.
// By default, it uses the real OS filesystem.
var FS afero.Fs = afero.NewOsFs()

// SetFS sets the global filesystem (useful for testing)
func SetFS(fs afero.Fs) {
	FS = fs
}

// ResetFS resets to the real OS filesystem
func ResetFS() {
	FS = afero.NewOsFs()
}

// Create creates or truncates a file
func Create(name string) (afero.File, error) {
	return FS.Create(name)
}

// MkdirAll creates a directory and all parents
func MkdirAll(path string, perm os.FileMode) error {
	return FS.MkdirAll(path, perm)
}

// ReadDir reads a directory
func ReadDir(dirname string) ([]os.FileInfo, error) {
	return afero.ReadDir(FS, dirname)
}

// ReadFile reads an entire file
func ReadFile(filename string) ([]byte, error) {
	return afero.ReadFile(FS, filename)
}

// WriteFile writes data to a file
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(FS, filename, data, perm)
}

// Exists checks if a file or directory exists
func Exists(path string) (bool, error) {
	return afero.Exists(FS, path)
}

// DirExists checks if a directory exists
func DirExists(path string) (bool, error) {
	return afero.DirExists(FS, path)
}

// FileSize returns the size of a file
func FileSize(path string) (int64, error) {
	info, err := FS.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// BaseNamesWithExt lists the regular files directly inside dir whose name
// ends with ext and returns their names without the extension, sorted and
// de-duplicated. The match is case-sensitive.
func BaseNamesWithExt(dir, ext string) ([]string, error) {
	entries, err := afero.ReadDir(FS, dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ext) || len(name) == len(ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}
		names = append(names, base)
	}
	sort.Strings(names)
	return names, nil
}

// --- Testing Helpers ---

// WithMemFs executes a function with an in-memory filesystem, then restores the original
func WithMemFs(fn func(fs afero.Fs)) {
	original := FS
	memFs := afero.NewMemMapFs()
	FS = memFs
	defer func() { FS = original }()
	fn(memFs)
}

// SetupTestDir creates a test directory structure in-memory
func SetupTestDir(files map[string]string) afero.Fs {
	memFs := afero.NewMemMapFs()
	for path, content := range files {
		dir := filepath.Dir(path)
		if dir != "." && dir != "/" {
			_ = memFs.MkdirAll(dir, 0755)
		}
		_ = afero.WriteFile(memFs, path, []byte(content), 0644)
	}
	return memFs
}
