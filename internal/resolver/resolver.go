// Package resolver turns a dotted Python import name into a canonical
// source file and classifies it as first-party, standard-library, or
// third-party. A Resolver holds ordered search roots plus name/path
// caches; the lookup algorithm follows Python's own import system.
package resolver

import (
	"fmt"
	"strings"

	"github.com/cribo-go/cribo/internal/cache"
	"github.com/cribo-go/cribo/internal/config"
	"github.com/cribo-go/cribo/internal/fs"
)

// Kind classifies a resolved (or unresolved) import.
type Kind = cache.Classification

const (
	Unknown         = cache.ClassificationUnknown
	FirstParty      = cache.FirstParty
	StandardLibrary = cache.StandardLibrary
	ThirdParty      = cache.ThirdParty
)

// Result is what a successful absolute or relative resolution produces.
type Result struct {
	CanonicalPath    string
	Kind             Kind
	HasSideEffects   bool
	IsNamespacePkg   bool
}

// ResolutionError is returned when a relative import cannot be resolved.
// Relative imports are always first-party and must resolve, so this is
// fatal.
type ResolutionError struct {
	ImportText string
	Reason     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.ImportText, e.Reason)
}

func (e *ResolutionError) ExitCode() int { return 1 }

// Resolver is constructed once per driver run from BundleOptions and is
// read-write during discovery, read-only afterwards.
type Resolver struct {
	fsys fs.FS
	opts config.BundleOptions

	// searchRoots holds, in precedence order, the entry directory, the
	// PYTHONPATH-equivalent directories, and the configured source roots,
	// already canonicalized and deduplicated preserving first-seen order.
	searchRoots []string

	// sitePackagesRoots is precedence group 4: used only for
	// classification, never for first-party resolution.
	sitePackagesRoots []string

	moduleCache *cache.ModuleCache
	classCache  *cache.ClassificationCache

	firstParty map[string]bool
	thirdParty map[string]bool
}

// New builds a Resolver. entryDir is the directory containing the entry
// script and takes highest precedence. pythonPathDirs stands in for the
// PYTHONPATH-equivalent environment variable and is expected to already
// be split on the platform separator by the caller (internal/driver, via
// a scoped EnvGuard).
func New(fsys fs.FS, opts config.BundleOptions, entryDir string, pythonPathDirs []string) *Resolver {
	r := &Resolver{
		fsys:        fsys,
		opts:        opts,
		moduleCache: cache.NewModuleCache(),
		classCache:  cache.NewClassificationCache(),
		firstParty:  toSet(opts.KnownFirstParty),
		thirdParty:  toSet(opts.KnownThirdParty),
	}

	var ordered []string
	ordered = append(ordered, entryDir)
	ordered = append(ordered, pythonPathDirs...)
	ordered = append(ordered, opts.SourceRoots...)
	r.searchRoots = dedupCanonical(fsys, ordered)
	r.sitePackagesRoots = dedupCanonical(fsys, opts.SitePackagesDirs)

	return r
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func dedupCanonical(fsys fs.FS, paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := fsys.Abs(p)
		if err != nil {
			abs = p
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out
}

// ResolveAbsolute looks up a dotted name with no leading dots, searching
// each root in precedence order. Absolute lookups are safe to cache by
// name alone since they do not depend on the importer.
func (r *Resolver) ResolveAbsolute(name string) (Result, bool) {
	if entry, ok := r.moduleCache.Get(name, ""); ok {
		return cacheEntryToResult(entry), entry.Found
	}

	for _, root := range r.searchRoots {
		if path, isNamespace, ok := r.lookupUnderRoot(root, name); ok {
			res := Result{CanonicalPath: path, Kind: FirstParty, IsNamespacePkg: isNamespace}
			r.moduleCache.Put(name, "", cache.ModuleCacheEntry{CanonicalPath: path, Found: true})
			return res, true
		}
	}

	r.moduleCache.Put(name, "", cache.ModuleCacheEntry{Found: false})
	return Result{}, false
}

func cacheEntryToResult(e cache.ModuleCacheEntry) Result {
	if !e.Found {
		return Result{}
	}
	return Result{CanonicalPath: e.CanonicalPath, Kind: FirstParty}
}

// lookupUnderRoot walks the dotted name's intermediate parts (each must
// be a package or a namespace package) and then tries, for the final part
// in this order: name/__init__.py, name.py, name/ (a namespace package,
// yielding the directory).
func (r *Resolver) lookupUnderRoot(root, name string) (path string, isNamespace bool, ok bool) {
	parts := strings.Split(name, ".")
	dir := root

	for i, part := range parts {
		isLast := i == len(parts)-1
		next := r.fsys.Join(dir, part)

		if !isLast {
			initPy := r.fsys.Join(next, "__init__.py")
			if _, ok := r.fsys.Stat(initPy); ok {
				dir = next
				continue
			}
			if kind, ok := r.fsys.Stat(next); ok && kind == fs.DirEntry {
				// Namespace package: directory with no __init__.py.
				dir = next
				continue
			}
			return "", false, false
		}

		initPy := r.fsys.Join(next, "__init__.py")
		if kind, ok := r.fsys.Stat(initPy); ok && kind == fs.FileEntry {
			abs, _ := r.fsys.Abs(initPy)
			return abs, false, true
		}
		pyFile := next + ".py"
		if kind, ok := r.fsys.Stat(pyFile); ok && kind == fs.FileEntry {
			abs, _ := r.fsys.Abs(pyFile)
			return abs, false, true
		}
		if kind, ok := r.fsys.Stat(next); ok && kind == fs.DirEntry {
			abs, _ := r.fsys.Abs(next)
			return abs, true, true
		}
		return "", false, false
	}

	// Only intermediate (package) parts were present, i.e. name == "".
	return "", false, false
}

// ResolveRelative resolves a relative import. level is the dot count
// (1 = current package). importerPath is the absolute path of the
// importing module's source file. module is the dotted name after the
// dots, or "" for "from . import x".
//
// Relative-import results MUST NOT be cached by module name alone since
// they depend on importerPath; the cache key includes importerPath's
// directory.
func (r *Resolver) ResolveRelative(level int, module string, importerPath string) (Result, error) {
	importerDir := r.fsys.Dir(importerPath)
	cacheKey := fmt.Sprintf("%d\x00%s", level, module)
	if entry, ok := r.moduleCache.Get(cacheKey, importerDir); ok {
		if !entry.Found {
			return Result{}, &ResolutionError{ImportText: relativeImportText(level, module), Reason: "escaped all search roots"}
		}
		return cacheEntryToResult(entry), nil
	}

	baseDir := importerDir
	for i := 1; i < level; i++ {
		baseDir = r.fsys.Dir(baseDir)
		if !r.withinAnyRoot(baseDir) {
			err := &ResolutionError{ImportText: relativeImportText(level, module), Reason: "relative import escapes all search roots"}
			r.moduleCache.Put(cacheKey, importerDir, cache.ModuleCacheEntry{Found: false})
			return Result{}, err
		}
	}

	if module == "" {
		initPy := r.fsys.Join(baseDir, "__init__.py")
		if kind, ok := r.fsys.Stat(initPy); ok && kind == fs.FileEntry {
			abs, _ := r.fsys.Abs(initPy)
			res := Result{CanonicalPath: abs, Kind: FirstParty}
			r.moduleCache.Put(cacheKey, importerDir, cache.ModuleCacheEntry{CanonicalPath: abs, Found: true})
			return res, nil
		}
		if kind, ok := r.fsys.Stat(baseDir); ok && kind == fs.DirEntry {
			abs, _ := r.fsys.Abs(baseDir)
			res := Result{CanonicalPath: abs, Kind: FirstParty, IsNamespacePkg: true}
			r.moduleCache.Put(cacheKey, importerDir, cache.ModuleCacheEntry{CanonicalPath: abs, Found: true})
			return res, nil
		}
		r.moduleCache.Put(cacheKey, importerDir, cache.ModuleCacheEntry{Found: false})
		return Result{}, &ResolutionError{ImportText: relativeImportText(level, module), Reason: "base package directory not found"}
	}

	if path, isNamespace, ok := r.lookupUnderRoot(baseDir, module); ok {
		res := Result{CanonicalPath: path, Kind: FirstParty, IsNamespacePkg: isNamespace}
		r.moduleCache.Put(cacheKey, importerDir, cache.ModuleCacheEntry{CanonicalPath: path, Found: true})
		return res, nil
	}

	r.moduleCache.Put(cacheKey, importerDir, cache.ModuleCacheEntry{Found: false})
	return Result{}, &ResolutionError{ImportText: relativeImportText(level, module), Reason: "module not found under importing package"}
}

func relativeImportText(level int, module string) string {
	return strings.Repeat(".", level) + module
}

func (r *Resolver) withinAnyRoot(dir string) bool {
	for _, root := range r.searchRoots {
		if dir == root || strings.HasPrefix(dir, root+"/") {
			return true
		}
	}
	// An intermediate base directory one or more levels above a root is
	// still legal as long as it's still inside the filesystem subtree the
	// resolver can see; what's actually disallowed is stepping above the
	// common ancestor of every root entirely. Approximate that by allowing
	// any prefix relationship in either direction.
	for _, root := range r.searchRoots {
		if strings.HasPrefix(root, dir+"/") || root == dir {
			return true
		}
	}
	return len(r.searchRoots) == 0
}

// Classify applies the classification precedence: explicit first-party
// list, explicit third-party list, stdlib table, then filesystem
// resolution, falling back to ThirdParty.
func (r *Resolver) Classify(name string) Kind {
	if kind, ok := r.classCache.Get(name); ok {
		return kind
	}

	kind := r.classifyUncached(name)
	r.classCache.Put(name, kind)
	return kind
}

func (r *Resolver) classifyUncached(name string) Kind {
	root := name
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		root = name[:idx]
	}

	if r.firstParty[name] || r.firstParty[root] {
		return FirstParty
	}
	if r.thirdParty[name] || r.thirdParty[root] {
		return ThirdParty
	}
	if config.IsStdlib(r.opts.TargetVersion, root) {
		return StandardLibrary
	}
	if _, ok := r.ResolveAbsolute(name); ok {
		return FirstParty
	}

	// "If the parent dotted package resolves FirstParty, submodule is
	// FirstParty" — walk the dotted prefixes even when the exact submodule
	// file could not be found directly.
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		if kind, ok := r.classCache.Get(prefix); ok && kind == FirstParty {
			return FirstParty
		}
		if _, ok := r.ResolveAbsolute(prefix); ok {
			return FirstParty
		}
	}

	for _, root := range r.sitePackagesRoots {
		if _, _, ok := r.lookupUnderRoot(root, name); ok {
			return ThirdParty
		}
	}

	return ThirdParty
}

// ModuleNameToPath converts a dotted module name to its root-relative
// source path.
func ModuleNameToPath(name string) string {
	return strings.ReplaceAll(name, ".", "/") + ".py"
}

// PathToModuleName converts a root-relative source path back to a dotted
// module name; a package's __init__.py maps to the package itself. It
// inverts ModuleNameToPath for names whose parts are valid identifiers.
func PathToModuleName(path string) string {
	path = strings.TrimSuffix(path, ".py")
	path = strings.TrimSuffix(path, "/__init__")
	return strings.ReplaceAll(path, "/", ".")
}

// HasSideEffects reports whether a standard-library module is known to
// perform an observable action on import; such imports must never be
// hoisted.
func (r *Resolver) HasSideEffects(name string) bool {
	root := name
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		root = name[:idx]
	}
	return config.HasSideEffectsOnImport(root)
}
