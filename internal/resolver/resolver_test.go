package resolver

import (
	"os"
	"testing"

	"github.com/cribo-go/cribo/internal/config"
	"github.com/cribo-go/cribo/internal/fs"
	"github.com/stretchr/testify/require"
)

func testFS() *fs.MockFS {
	return fs.NewMockFS(map[string]string{
		"/repo/main.py":            "import util\n",
		"/repo/util.py":            "X = 1\n",
		"/repo/pkg/__init__.py":    "",
		"/repo/pkg/sub.py":         "Y = 2\n",
		"/repo/pkg/ns/mod.py":      "Z = 3\n", // namespace package: no __init__.py
		"/repo/pkg/deep/__init__.py": "",
		"/repo/pkg/deep/inner.py":  "",
	})
}

func newTestResolver(fsys *fs.MockFS) *Resolver {
	opts := config.Default()
	return New(fsys, opts, "/repo", nil)
}

func TestResolveAbsoluteTopLevelModule(t *testing.T) {
	r := newTestResolver(testFS())
	res, ok := r.ResolveAbsolute("util")
	require.True(t, ok)
	require.Equal(t, "/repo/util.py", res.CanonicalPath)
}

func TestResolveAbsolutePackageInit(t *testing.T) {
	r := newTestResolver(testFS())
	res, ok := r.ResolveAbsolute("pkg")
	require.True(t, ok)
	require.Equal(t, "/repo/pkg/__init__.py", res.CanonicalPath)
}

func TestResolveAbsoluteSubmodule(t *testing.T) {
	r := newTestResolver(testFS())
	res, ok := r.ResolveAbsolute("pkg.sub")
	require.True(t, ok)
	require.Equal(t, "/repo/pkg/sub.py", res.CanonicalPath)
}

func TestResolveAbsoluteNamespacePackage(t *testing.T) {
	r := newTestResolver(testFS())
	res, ok := r.ResolveAbsolute("pkg.ns")
	require.True(t, ok)
	require.True(t, res.IsNamespacePkg)
}

func TestResolveAbsoluteNamespaceSubmodule(t *testing.T) {
	r := newTestResolver(testFS())
	res, ok := r.ResolveAbsolute("pkg.ns.mod")
	require.True(t, ok)
	require.Equal(t, "/repo/pkg/ns/mod.py", res.CanonicalPath)
}

func TestResolveAbsoluteNotFound(t *testing.T) {
	r := newTestResolver(testFS())
	_, ok := r.ResolveAbsolute("does.not.exist")
	require.False(t, ok)
}

func TestResolveRelativeOneDot(t *testing.T) {
	r := newTestResolver(testFS())
	res, err := r.ResolveRelative(1, "sub", "/repo/pkg/__init__.py")
	require.NoError(t, err)
	require.Equal(t, "/repo/pkg/sub.py", res.CanonicalPath)
}

func TestResolveRelativeImportOfPackageItself(t *testing.T) {
	r := newTestResolver(testFS())
	res, err := r.ResolveRelative(1, "", "/repo/pkg/sub.py")
	require.NoError(t, err)
	require.Equal(t, "/repo/pkg/__init__.py", res.CanonicalPath)
}

func TestResolveRelativeEscapesRoot(t *testing.T) {
	r := newTestResolver(testFS())
	// "pkg/deep/inner.py" is two packages deep; from ....x (level 4) walks
	// up 3 times starting from "pkg/deep", which steps above every search
	// root.
	_, err := r.ResolveRelative(4, "x", "/repo/pkg/deep/inner.py")
	require.Error(t, err)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestClassifyExplicitOverridesWinOverFilesystem(t *testing.T) {
	opts := config.Default()
	opts.KnownThirdParty = []string{"util"}
	r := New(testFS(), opts, "/repo", nil)
	require.Equal(t, ThirdParty, r.Classify("util"))
}

func TestClassifyStdlib(t *testing.T) {
	r := newTestResolver(testFS())
	require.Equal(t, StandardLibrary, r.Classify("os"))
	require.Equal(t, StandardLibrary, r.Classify("os.path"))
}

func TestClassifyFirstPartyByFilesystem(t *testing.T) {
	r := newTestResolver(testFS())
	require.Equal(t, FirstParty, r.Classify("pkg"))
	require.Equal(t, FirstParty, r.Classify("pkg.sub"))
}

func TestClassifyDefaultsThirdParty(t *testing.T) {
	r := newTestResolver(testFS())
	require.Equal(t, ThirdParty, r.Classify("requests"))
}

func TestClassifyIsIdempotent(t *testing.T) {
	r := newTestResolver(testFS())
	first := r.Classify("pkg.sub")
	second := r.Classify("pkg.sub")
	require.Equal(t, first, second)
}

func TestHasSideEffectsClosedList(t *testing.T) {
	r := newTestResolver(testFS())
	require.True(t, r.HasSideEffects("os"))
	require.True(t, r.HasSideEffects("antigravity"))
	require.False(t, r.HasSideEffects("json"))
}

func TestEnvGuardRestoresPriorValue(t *testing.T) {
	t.Setenv("CRIBO_TEST_VAR", "original")
	guard := NewEnvGuard("CRIBO_TEST_VAR", "overridden")
	require.Equal(t, "overridden", os.Getenv("CRIBO_TEST_VAR"))
	guard.Restore()
	require.Equal(t, "original", os.Getenv("CRIBO_TEST_VAR"))
}

func TestModuleNamePathRoundTrip(t *testing.T) {
	for _, name := range []string{"a", "a.b", "pkg.sub.mod"} {
		require.Equal(t, name, PathToModuleName(ModuleNameToPath(name)))
	}
	require.Equal(t, "pkg.sub", PathToModuleName("pkg/sub/__init__.py"))
}
