package cache

import (
	"testing"

	"github.com/cribo-go/cribo/internal/fs"
)

func TestFSCacheReadsThroughOnceThenServesFromMemory(t *testing.T) {
	fsys := fs.NewMockFS(map[string]string{"/repo/util.py": "X = 1\n"})
	c := NewFSCache()

	first, err := c.ReadFile(fsys, "/repo/util.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "X = 1\n" {
		t.Fatalf("got %q", first)
	}

	// A second FS with different contents at the same path stands in for
	// "the file changed after the first read": FSCache must still serve
	// its memoized value rather than reading through again.
	changedFS := fs.NewMockFS(map[string]string{"/repo/util.py": "X = 2\n"})
	second, err := c.ReadFile(changedFS, "/repo/util.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != first {
		t.Fatalf("expected the cached contents %q, got %q", first, second)
	}
}

func TestFSCacheMissingFilePropagatesError(t *testing.T) {
	fsys := fs.NewMockFS(nil)
	c := NewFSCache()

	if _, err := c.ReadFile(fsys, "/repo/missing.py"); err == nil {
		t.Fatal("expected an error reading a file that doesn't exist")
	}
}

func TestModuleCacheKeyIncludesImporterDir(t *testing.T) {
	c := NewModuleCache()
	c.Put("util", "/repo/pkg_a", ModuleCacheEntry{CanonicalPath: "/repo/pkg_a/util.py", Found: true})
	c.Put("util", "/repo/pkg_b", ModuleCacheEntry{CanonicalPath: "/repo/pkg_b/util.py", Found: true})

	a, ok := c.Get("util", "/repo/pkg_a")
	if !ok || a.CanonicalPath != "/repo/pkg_a/util.py" {
		t.Fatalf("got %+v, %v", a, ok)
	}
	b, ok := c.Get("util", "/repo/pkg_b")
	if !ok || b.CanonicalPath != "/repo/pkg_b/util.py" {
		t.Fatalf("got %+v, %v", b, ok)
	}

	if _, ok := c.Get("util", "/repo/pkg_c"); ok {
		t.Fatal("expected a miss for an importer directory never Put")
	}
}

func TestModuleCacheAbsoluteImportsCollapseToByNameKey(t *testing.T) {
	c := NewModuleCache()
	c.Put("requests", "", ModuleCacheEntry{CanonicalPath: "/venv/site-packages/requests/__init__.py", Found: true})

	entry, ok := c.Get("requests", "")
	if !ok || entry.CanonicalPath != "/venv/site-packages/requests/__init__.py" {
		t.Fatalf("got %+v, %v", entry, ok)
	}
}

func TestClassificationCacheRepeatedLookupIsStable(t *testing.T) {
	c := NewClassificationCache()
	c.Put("mypkg.util", FirstParty)

	got, ok := c.Get("mypkg.util")
	if !ok || got != FirstParty {
		t.Fatalf("got %v, %v", got, ok)
	}
	got2, ok := c.Get("mypkg.util")
	if !ok || got2 != got {
		t.Fatalf("second lookup diverged: %v vs %v", got2, got)
	}

	if _, ok := c.Get("never.put"); ok {
		t.Fatal("expected a miss for a name never Put")
	}
}
