package cache

import (
	"sync"

	"github.com/cribo-go/cribo/internal/fs"
)

// FSCache avoids re-reading the same source file from disk when multiple
// import names resolve to the same canonical path within one run; file
// contents are treated as immutable for the duration of a run.
type FSCache struct {
	entries map[string]string
	mutex   sync.Mutex
}

func NewFSCache() *FSCache {
	return &FSCache{entries: make(map[string]string)}
}

func (c *FSCache) ReadFile(f fs.FS, path string) (contents string, err error) {
	c.mutex.Lock()
	cached, ok := c.entries[path]
	c.mutex.Unlock()
	if ok {
		return cached, nil
	}

	contents, err = f.ReadFile(path)
	if err != nil {
		return "", err
	}

	c.mutex.Lock()
	c.entries[path] = contents
	c.mutex.Unlock()
	return contents, nil
}
