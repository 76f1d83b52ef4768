package driver

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cribo-go/cribo/internal/config"
	"github.com/cribo-go/cribo/internal/fs"
	"github.com/cribo-go/cribo/internal/pyast"
)

// TestRunIsDeterministic checks that running the bundler twice on the
// same input repository produces identical BundlePrograms. Two independent Run calls build two independent object
// graphs (fresh modules, fresh *pyast.Module trees, fresh maps), so a
// structural diff — not a pointer-identity check — is the only honest way
// to verify this; cmp.Exporter is used instead of enumerating every
// pyast node type under AllowUnexported, since cmp would otherwise refuse
// to look inside baseStmt/baseExpr's unexported embedding.
func TestRunIsDeterministic(t *testing.T) {
	newInputs := func() (*fs.MockFS, literalParser) {
		utilMod := &pyast.Module{Body: []pyast.Stmt{
			&pyast.FunctionDef{Name: "greet", Body: []pyast.Stmt{
				&pyast.ExprStmt{Value: &pyast.Call{Func: name("print"), Args: []pyast.Expr{&pyast.Constant{Kind: "str", Value: "hello"}}}},
			}},
		}}
		mainMod := &pyast.Module{Body: []pyast.Stmt{
			&pyast.FromImport{Module: "util", Names: []pyast.ImportedName{{Name: "greet"}}},
			&pyast.ExprStmt{Value: &pyast.Call{Func: name("greet")}},
		}}
		fsys := fs.NewMockFS(map[string]string{
			"/repo/main.py": "from util import greet\ngreet()\n",
			"/repo/util.py": "def greet():\n    print(\"hello\")\n",
		})
		parser := literalParser{modules: map[string]*pyast.Module{
			"/repo/main.py": mainMod,
			"/repo/util.py": utilMod,
		}}
		return fsys, parser
	}

	run := func() *Result {
		fsys, parser := newInputs()
		result, err := Run(Options{
			Bundle: config.BundleOptions{EntryPath: "/repo/main.py"},
			FS:     fsys,
			Parser: parser,
		})
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	allowAllUnexported := cmp.Exporter(func(reflect.Type) bool { return true })
	diff := cmp.Diff(first.Program, second.Program, allowAllUnexported)
	require.Empty(t, diff, "two runs over the same input must produce identical BundlePrograms")
}
