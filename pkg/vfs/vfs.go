// Package vfs abstracts filesystem access for the resolver and loader.
//
// The bundler core never touches the disk directly. All file probing and
// content reads go through the [FS] interface so that resolution can be
// tested against an in-memory tree and so that alternative sources
// (archives, remote trees) can be plugged in without changing the engine.
package vfs

import (
	"os"
	"path"
	"sort"
	"strings"
)

// FS is the minimal filesystem surface the bundler needs: existence and
// kind checks for specifier probing, and content reads for module sources
// and package manifests. Paths are slash-separated and absolute or
// root-relative depending on the caller.
//
// Implementations must be safe for concurrent use.
type FS interface {
	// Stat reports whether the path exists and whether it is a directory.
	Stat(path string) (exists, isDir bool)

	// ReadFile returns the contents of the file at path.
	ReadFile(path string) ([]byte, error)
}

// OS is an [FS] backed by the host filesystem.
type OS struct{}

// Stat reports existence and directory-ness via os.Stat.
func (OS) Stat(p string) (bool, bool) {
	info, err := os.Stat(p)
	if err != nil {
		return false, false
	}
	return true, info.IsDir()
}

// ReadFile reads the file via os.ReadFile.
func (OS) ReadFile(p string) ([]byte, error) {
	return os.ReadFile(p)
}

// Mem is an in-memory [FS] for tests. Keys are slash-separated file paths;
// directories are implied by their children. The zero value is empty.
//
// Mem is safe for concurrent reads after construction; it must not be
// mutated while in use.
type Mem struct {
	Files map[string][]byte
}

// NewMem creates an in-memory filesystem from a path → content map.
func NewMem(files map[string][]byte) *Mem {
	return &Mem{Files: files}
}

// Stat reports a file if the exact path is a key, or a directory if any
// key lives underneath the path.
func (m *Mem) Stat(p string) (bool, bool) {
	p = path.Clean(p)
	if _, ok := m.Files[p]; ok {
		return true, false
	}
	prefix := p + "/"
	for name := range m.Files {
		if strings.HasPrefix(name, prefix) {
			return true, true
		}
	}
	return false, false
}

// ReadFile returns the stored content, or os.ErrNotExist.
func (m *Mem) ReadFile(p string) ([]byte, error) {
	if data, ok := m.Files[path.Clean(p)]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

// Paths returns all file paths in sorted order. Useful in tests.
func (m *Mem) Paths() []string {
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
