package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cribo-go/cribo/internal/compiler"
	"github.com/cribo-go/cribo/internal/config"
	"github.com/cribo-go/cribo/internal/fs"
	"github.com/cribo-go/cribo/internal/ids"
	"github.com/cribo-go/cribo/internal/modgraph"
	"github.com/cribo-go/cribo/internal/pyast"
)

// literalParser is a test double for the external AST parser: rather
// than parsing src, it looks the already-built *pyast.Module up by path,
// the same way the rest of the package's test suites hand-construct an
// AST instead of parsing real Python source.
type literalParser struct {
	modules map[string]*pyast.Module
}

func (p literalParser) ParseModule(path, src string) (*pyast.Module, error) {
	if m, ok := p.modules[path]; ok {
		return m, nil
	}
	return &pyast.Module{}, nil
}

func name(id string) *pyast.Name { return &pyast.Name{Id: id} }

// S1 — trivial single file: main.py = print("hi").
func TestRunTrivialSingleFile(t *testing.T) {
	mainMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.ExprStmt{Value: &pyast.Call{Func: name("print"), Args: []pyast.Expr{&pyast.Constant{Kind: "str", Value: "hi"}}}},
	}}
	fsys := fs.NewMockFS(map[string]string{"/repo/main.py": "print(\"hi\")\n"})
	parser := literalParser{modules: map[string]*pyast.Module{"/repo/main.py": mainMod}}

	result, err := Run(Options{
		Bundle: config.BundleOptions{EntryPath: "/repo/main.py"},
		FS:     fsys,
		Parser: parser,
	})
	require.NoError(t, err)
	require.Len(t, result.Program.Steps, 1)
	_, ok := result.Program.Steps[0].(compiler.CopyStatement)
	require.True(t, ok)
}

// S2 — two first-party modules: main.py = `from util import greet; greet()`,
// util.py = `def greet(): print("hello")`.
func TestRunTwoModuleNamespaceAndInline(t *testing.T) {
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

	result, err := Run(Options{
		Bundle: config.BundleOptions{EntryPath: "/repo/main.py"},
		FS:     fsys,
		Parser: parser,
	})
	require.NoError(t, err)

	var sawNamespaceCreate, sawAttrAssign, sawEntryCall, sawFuncDefCopy bool
	for _, step := range result.Program.Steps {
		switch s := step.(type) {
		case compiler.InsertStatement:
			if assign, ok := s.Stmt.(*pyast.Assign); ok {
				if call, ok := assign.Value.(*pyast.Call); ok {
					if attr, ok := call.Func.(*pyast.Attribute); ok && attr.Attr == "SimpleNamespace" {
						sawNamespaceCreate = true
					}
				}
				if _, ok := assign.Value.(*pyast.Attribute); ok {
					sawAttrAssign = true
				}
			}
		case compiler.CopyStatement:
			if s.SourceModule == ids.ModuleId(0) {
				sawEntryCall = true
				// The entry's `greet` is an import binding resolved through
				// the `greet = util_namespace.greet` assignment; it must not
				// be renamed away from that assignment's target.
				require.Empty(t, s.Renames)
			} else {
				sawFuncDefCopy = true
			}
		}
	}
	require.True(t, sawNamespaceCreate, "expected a types.SimpleNamespace() assignment")
	require.True(t, sawAttrAssign, "expected a namespace.greet = greet attribute assignment")
	require.True(t, sawFuncDefCopy, "expected util.greet's body to be copied")
	require.True(t, sawEntryCall, "expected the entry module's greet() call to be copied")
}

// S3 — name collision: main.py imports a and b, both of which define X.
func TestRunNameCollisionRenamesSecondModule(t *testing.T) {
	aMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{Targets: []pyast.Expr{name("X")}, Value: &pyast.Constant{Kind: "int", Value: "1"}},
	}}
	bMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{Targets: []pyast.Expr{name("X")}, Value: &pyast.Constant{Kind: "int", Value: "2"}},
	}}
	mainMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "a"},
		&pyast.Import{Module: "b"},
		&pyast.ExprStmt{Value: &pyast.Call{
			Func: name("print"),
			Args: []pyast.Expr{
				&pyast.Attribute{Value: name("a"), Attr: "X"},
				&pyast.Attribute{Value: name("b"), Attr: "X"},
			},
		}},
	}}
	fsys := fs.NewMockFS(map[string]string{
		"/repo/main.py": "import a\nimport b\nprint(a.X, b.X)\n",
		"/repo/a.py":    "X = 1\n",
		"/repo/b.py":    "X = 2\n",
	})
	parser := literalParser{modules: map[string]*pyast.Module{
		"/repo/main.py": mainMod,
		"/repo/a.py":    aMod,
		"/repo/b.py":    bMod,
	}}

	result, err := Run(Options{
		Bundle: config.BundleOptions{EntryPath: "/repo/main.py"},
		FS:     fsys,
		Parser: parser,
	})
	require.NoError(t, err)

	var sawNamespaceCount int
	var sawRenamedAttr bool
	for _, step := range result.Program.Steps {
		ins, ok := step.(compiler.InsertStatement)
		if !ok {
			continue
		}
		if call, ok := ins.Stmt.(*pyast.Assign); ok {
			if value, ok := call.Value.(*pyast.Name); ok && value.Id == "X_b" {
				sawRenamedAttr = true
			}
			if callExpr, ok := call.Value.(*pyast.Call); ok {
				if attr, ok := callExpr.Func.(*pyast.Attribute); ok && attr.Attr == "SimpleNamespace" {
					sawNamespaceCount++
				}
			}
		}
	}
	require.Equal(t, 2, sawNamespaceCount, "expected one namespace object per first-party module")
	require.True(t, sawRenamedAttr, "expected b's X renamed to X_b and exposed as b_namespace.X")
}

// S4 — unused import: main.py = `import os\nimport json\nprint(json.dumps({}))`.
// os is unused and must be reported and dropped; json is safe stdlib and
// must be hoisted exactly once.
func TestRunUnusedImportReportedAndDropped(t *testing.T) {
	mainMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "os"},
		&pyast.Import{Module: "json"},
		&pyast.ExprStmt{Value: &pyast.Call{
			Func: name("print"),
			Args: []pyast.Expr{&pyast.Call{
				Func: &pyast.Attribute{Value: name("json"), Attr: "dumps"},
				Args: []pyast.Expr{&pyast.DictExpr{}},
			}},
		}},
	}}
	fsys := fs.NewMockFS(map[string]string{"/repo/main.py": "import os\nimport json\nprint(json.dumps({}))\n"})
	parser := literalParser{modules: map[string]*pyast.Module{"/repo/main.py": mainMod}}

	result, err := Run(Options{
		Bundle: config.BundleOptions{EntryPath: "/repo/main.py", TargetVersion: config.Py312, EmitUnusedImportReport: true},
		FS:     fsys,
		Parser: parser,
	})
	require.NoError(t, err)

	var hoisted []string
	for _, step := range result.Program.Steps {
		if ins, ok := step.(compiler.InsertStatement); ok {
			if imp, ok := ins.Stmt.(*pyast.Import); ok {
				hoisted = append(hoisted, imp.Module)
			}
		}
	}
	require.Equal(t, []string{"json"}, hoisted, "exactly one hoisted import json, no import os")

	require.Len(t, result.UnusedImports, 1)
	require.Equal(t, "os", result.UnusedImports[0].Name)
	require.Equal(t, "__main__", result.UnusedImports[0].Module)
}

// S5 — resolvable function-level cycle: a and b import each other only
// inside function bodies; the bundle proceeds with a warning.
func TestRunFunctionLevelCycleIsResolvable(t *testing.T) {
	aMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "f", Body: []pyast.Stmt{
			&pyast.FromImport{Module: "b", Names: []pyast.ImportedName{{Name: "g"}}},
			&pyast.ExprStmt{Value: &pyast.Call{Func: name("g")}},
		}},
	}}
	bMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "g", Body: []pyast.Stmt{
			&pyast.FromImport{Module: "a", Names: []pyast.ImportedName{{Name: "f"}}},
		}},
	}}
	mainMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "a"},
		&pyast.ExprStmt{Value: &pyast.Call{
			Func: &pyast.Attribute{Value: name("a"), Attr: "f"},
		}},
	}}
	fsys := fs.NewMockFS(map[string]string{
		"/repo/main.py": "import a\na.f()\n",
		"/repo/a.py":    "def f():\n    from b import g\n    return g()\n",
		"/repo/b.py":    "def g():\n    from a import f\n    return 1\n",
	})
	parser := literalParser{modules: map[string]*pyast.Module{
		"/repo/main.py": mainMod,
		"/repo/a.py":    aMod,
		"/repo/b.py":    bMod,
	}}

	result, err := Run(Options{
		Bundle: config.BundleOptions{EntryPath: "/repo/main.py"},
		FS:     fsys,
		Parser: parser,
	})
	require.NoError(t, err)
	require.Len(t, result.Circular.ResolvableCycles, 1)
	require.Empty(t, result.Circular.UnresolvableCycles)
	require.Equal(t, 1, result.Circular.TotalCyclesDetected)
	require.Equal(t, 2, result.Circular.LargestCycleSize)
	require.Equal(t, modgraph.FunctionLevel, result.Circular.ResolvableCycles[0].Type)
	require.NotEmpty(t, result.Program.Steps)
}

// S6 — unresolvable constants cycle: a.py = `from b import X; Y = X + 1`,
// b.py = `from a import Y; X = Y + 1`.
func TestRunUnresolvableConstantsCycleIsFatal(t *testing.T) {
	aMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FromImport{Module: "b", Names: []pyast.ImportedName{{Name: "X"}}},
		&pyast.Assign{Targets: []pyast.Expr{name("Y")}, Value: &pyast.BinOp{Left: name("X"), Op: "+", Right: &pyast.Constant{Kind: "int", Value: "1"}}},
	}}
	bMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FromImport{Module: "a", Names: []pyast.ImportedName{{Name: "Y"}}},
		&pyast.Assign{Targets: []pyast.Expr{name("X")}, Value: &pyast.BinOp{Left: name("Y"), Op: "+", Right: &pyast.Constant{Kind: "int", Value: "1"}}},
	}}
	mainMod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "a"},
	}}
	fsys := fs.NewMockFS(map[string]string{
		"/repo/main.py": "import a\n",
		"/repo/a.py":    "from b import X\nY = X + 1\n",
		"/repo/b.py":    "from a import Y\nX = Y + 1\n",
	})
	parser := literalParser{modules: map[string]*pyast.Module{
		"/repo/main.py": mainMod,
		"/repo/a.py":    aMod,
		"/repo/b.py":    bMod,
	}}

	_, err := Run(Options{
		Bundle: config.BundleOptions{EntryPath: "/repo/main.py"},
		FS:     fsys,
		Parser: parser,
	})
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.NotEmpty(t, cycleErr.Analysis.UnresolvableCycles)
	require.Equal(t, modgraph.ModuleConstants, cycleErr.Analysis.UnresolvableCycles[0].Type)
	require.Contains(t, cycleErr.Error(), "temporal paradox")
}
