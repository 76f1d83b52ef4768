// Package cache holds the caches shared across a run: the module
// name→canonical-path cache owned by the resolver, the import
// classification cache populated during discovery, and FSCache, which
// keeps each source file's contents after its first read. The first two
// are mutated only during the scan phase and are read-only for the
// remainder of a run.
package cache

import "sync"

// ModuleCache memoizes absolute module lookups by (module name, importer
// directory) so repeated imports of the same name don't re-walk the search
// roots. Relative-import results are context-dependent and must not be
// cached by name alone, so the key always includes the importer's
// directory even for absolute imports (that directory is "" for those,
// collapsing to a plain by-name cache).
type ModuleCache struct {
	mutex   sync.Mutex
	entries map[moduleCacheKey]ModuleCacheEntry
}

type moduleCacheKey struct {
	name          string
	importerDir   string
}

type ModuleCacheEntry struct {
	CanonicalPath string
	Found         bool
}

func NewModuleCache() *ModuleCache {
	return &ModuleCache{entries: make(map[moduleCacheKey]ModuleCacheEntry)}
}

func (c *ModuleCache) Get(name, importerDir string) (ModuleCacheEntry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	entry, ok := c.entries[moduleCacheKey{name, importerDir}]
	return entry, ok
}

func (c *ModuleCache) Put(name, importerDir string, entry ModuleCacheEntry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[moduleCacheKey{name, importerDir}] = entry
}

// ClassificationCache memoizes FirstParty/StandardLibrary/ThirdParty
// classification per dotted module name; classifying the same name twice
// always returns the same answer.
type ClassificationCache struct {
	mutex   sync.Mutex
	entries map[string]Classification
}

type Classification uint8

const (
	ClassificationUnknown Classification = iota
	FirstParty
	StandardLibrary
	ThirdParty
)

func NewClassificationCache() *ClassificationCache {
	return &ClassificationCache{entries: make(map[string]Classification)}
}

func (c *ClassificationCache) Get(name string) (Classification, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	v, ok := c.entries[name]
	return v, ok
}

func (c *ClassificationCache) Put(name string, class Classification) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[name] = class
}
