package fs

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// MockFS is an in-memory FS the resolver and driver tests run against: a
// fixed tree declared up front, no disk access. Paths are always
// forward-slash, absolute, and rooted at "/".
type MockFS struct {
	files map[string]string
	dirs  map[string]bool
}

var _ FS = (*MockFS)(nil)

// NewMockFS builds a MockFS from a map of absolute file path to contents.
// Intermediate directories are inferred from the file paths.
func NewMockFS(files map[string]string) *MockFS {
	m := &MockFS{files: map[string]string{}, dirs: map[string]bool{"/": true}}
	for p, contents := range files {
		p = path.Clean(p)
		m.files[p] = contents
		for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
			m.dirs[dir] = true
		}
	}
	return m
}

func (m *MockFS) ReadFile(p string) (string, error) {
	p = path.Clean(p)
	if contents, ok := m.files[p]; ok {
		return contents, nil
	}
	return "", fmt.Errorf("file not found: %s", p)
}

func (m *MockFS) Stat(p string) (EntryKind, bool) {
	p = path.Clean(p)
	if _, ok := m.files[p]; ok {
		return FileEntry, true
	}
	if m.dirs[p] || p == "/" {
		return DirEntry, true
	}
	return FileEntry, false
}

func (m *MockFS) ReadDirectory(p string) ([]string, bool) {
	p = path.Clean(p)
	if !m.dirs[p] && p != "/" {
		return nil, false
	}
	seen := map[string]bool{}
	var names []string
	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	addChild := func(full string) {
		rest := strings.TrimPrefix(full, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			if idx := strings.Index(rest, "/"); idx >= 0 {
				rest = rest[:idx]
			} else if rest == "" {
				return
			}
		}
		if rest != "" && !seen[rest] {
			seen[rest] = true
			names = append(names, rest)
		}
	}
	for f := range m.files {
		if strings.HasPrefix(f, prefix) {
			addChild(f)
		}
	}
	for d := range m.dirs {
		if d != p && strings.HasPrefix(d, prefix) {
			addChild(d)
		}
	}
	sort.Strings(names)
	return names, true
}

func (m *MockFS) Abs(p string) (string, error) {
	if path.IsAbs(p) {
		return path.Clean(p), nil
	}
	return path.Clean("/" + p), nil
}

func (m *MockFS) Join(parts ...string) string {
	return path.Join(parts...)
}

func (m *MockFS) Dir(p string) string {
	return path.Dir(p)
}
