// Package fs is the file system abstraction the resolver and driver use
// instead of calling "os" directly: one narrow interface that real code
// implements over "os" and tests implement over an in-memory map.
package fs

import "os"

// EntryKind classifies a directory entry without needing a second syscall.
type EntryKind uint8

const (
	FileEntry EntryKind = iota
	DirEntry
)

// FS is the contract internal/resolver and internal/cache depend on.
type FS interface {
	// ReadFile returns a file's contents, or an error if it cannot be read.
	ReadFile(path string) (contents string, err error)

	// Stat reports whether path exists and what kind of entry it is.
	Stat(path string) (kind EntryKind, ok bool)

	// ReadDirectory lists the base names of a directory's immediate
	// entries, or ok=false if the directory does not exist.
	ReadDirectory(path string) (names []string, ok bool)

	// Abs returns the absolute, symlink-resolved form of path, used as the
	// canonical-path identity key for registered modules.
	Abs(path string) (string, error)

	// Join is a platform-aware path join, exposed so callers don't need to
	// import "path/filepath" directly and so tests can use a fake FS with
	// forward-slash-only semantics.
	Join(parts ...string) string

	// Dir returns the parent directory of path.
	Dir(path string) string
}

// Real is the production FS backed by the host operating system.
type Real struct{}

var _ FS = Real{}

func (Real) ReadFile(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(contents), nil
}

func (Real) Stat(path string) (EntryKind, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return FileEntry, false
	}
	if info.IsDir() {
		return DirEntry, true
	}
	return FileEntry, true
}

func (Real) ReadDirectory(path string) ([]string, bool) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, false
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, true
}

func (Real) Abs(path string) (string, error) {
	return absImpl(path)
}

func (Real) Join(parts ...string) string {
	return joinImpl(parts)
}

func (Real) Dir(path string) string {
	return dirImpl(path)
}
