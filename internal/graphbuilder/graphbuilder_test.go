package graphbuilder

import (
	"testing"

	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/pyast"
	"github.com/stretchr/testify/require"
)

func itemsOf(g *depgraph.ModuleDepGraph) []depgraph.ItemKind {
	var kinds []depgraph.ItemKind
	for _, id := range g.Order {
		kinds = append(kinds, g.Items[id].Kind)
	}
	return kinds
}

func TestBuildPlainImportDeclaresRootAndFullName(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{&pyast.Import{Module: "a.b.c"}}}
	g, _ := Build(mod, false)
	data := g.Items[g.Order[0]]
	require.True(t, data.VarDecls["a"])
	require.True(t, data.VarDecls["a.b.c"])
	require.True(t, data.ImportedNames["a"])
}

func TestBuildImportAsDeclaresOnlyAlias(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{&pyast.Import{Module: "a.b.c", Alias: "abc"}}}
	g, _ := Build(mod, false)
	data := g.Items[g.Order[0]]
	require.True(t, data.VarDecls["abc"])
	require.False(t, data.VarDecls["a"])
	require.False(t, data.VarDecls["a.b.c"])
}

func TestBuildFromImportTagsExplicitReexportOnly(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{&pyast.FromImport{
		Module: "m",
		Names: []pyast.ImportedName{
			{Name: "x"},
			{Name: "y", Alias: "y"},
			{Name: "z", Alias: "w"},
		},
	}}}
	g, _ := Build(mod, false)
	data := g.Items[g.Order[0]]
	require.True(t, data.VarDecls["x"])
	require.True(t, data.VarDecls["y"])
	require.True(t, data.VarDecls["w"])
	require.False(t, data.VarDecls["z"])
	require.True(t, data.ReexportedNames["y"])
	require.False(t, data.ReexportedNames["x"])
}

func TestBuildStarImportHasNoVarDecls(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{&pyast.FromImport{Module: "m", IsStar: true}}}
	g, _ := Build(mod, false)
	data := g.Items[g.Order[0]]
	require.Empty(t, data.VarDecls)
	kind, ok := data.Kind.(depgraph.FromImportKind)
	require.True(t, ok)
	require.True(t, kind.IsStar)
}

func TestBuildFutureImportCreatesNoItem(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FromImport{Module: "__future__", Names: []pyast.ImportedName{{Name: "annotations"}}},
		&pyast.Import{Module: "os"},
	}}
	g, _ := Build(mod, false)
	require.Len(t, g.Order, 1)
	require.IsType(t, depgraph.ImportKind{}, g.Items[g.Order[0]].Kind)
}

func TestBuildAllAssignmentPopulatesReexportedNames(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{&pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{Id: "__all__"}},
		Value: &pyast.CollectionExpr{Kind: "list", Elems: []pyast.Expr{
			&pyast.Constant{Kind: "str", Value: "foo"},
			&pyast.Constant{Kind: "str", Value: "bar"},
		}},
	}}}
	g, _ := Build(mod, false)
	data := g.Items[g.Order[0]]
	require.True(t, data.ReexportedNames["foo"])
	require.True(t, data.ReexportedNames["bar"])
}

func TestBuildImportlibImportModuleTrackedThroughAlias(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "importlib", Alias: "il"},
		&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{Id: "plugin"}},
			Value: &pyast.Call{
				Func: &pyast.Attribute{Value: &pyast.Name{Id: "il"}, Attr: "import_module"},
				Args: []pyast.Expr{&pyast.Constant{Kind: "str", Value: "pkg.plugin"}},
			},
		},
	}}
	g, _ := Build(mod, false)
	assignData := g.Items[g.Order[1]]
	require.True(t, assignData.ImportedNames["pkg.plugin"])
}

func TestBuildFunctionBodyContributesToEventualOnly(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{Targets: []pyast.Expr{&pyast.Name{Id: "CONST"}}, Value: &pyast.Constant{Kind: "int", Value: "1"}},
		&pyast.FunctionDef{Name: "f", Body: []pyast.Stmt{
			&pyast.ExprStmt{Value: &pyast.Name{Id: "CONST"}},
		}},
	}}
	g, _ := Build(mod, false)
	fnData := g.Items[g.Order[1]]
	require.Empty(t, fnData.ReadVars)
	require.True(t, fnData.EventualReadVars["CONST"])

	deps := g.Deps[g.Order[1]]
	require.Len(t, deps, 1)
	require.Equal(t, depgraph.Weak, deps[0].Strength)
	require.Equal(t, g.Order[0], deps[0].Target)
}

func TestBuildClassBaseCreatesStrongDep(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FromImport{Module: "m", Names: []pyast.ImportedName{{Name: "Base"}}},
		&pyast.ClassDef{Name: "C", Bases: []pyast.Expr{&pyast.Name{Id: "Base"}}},
	}}
	g, _ := Build(mod, false)
	deps := g.Deps[g.Order[1]]
	require.Len(t, deps, 1)
	require.Equal(t, depgraph.Strong, deps[0].Strength)
}

func TestBuildAttributeAccessRecordedAtBothGranularities(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "os"},
		&pyast.ExprStmt{Value: &pyast.Call{
			Func: &pyast.Attribute{
				Value: &pyast.Attribute{Value: &pyast.Name{Id: "os"}, Attr: "path"},
				Attr:  "join",
			},
		}},
	}}
	g, _ := Build(mod, false)
	data := g.Items[g.Order[1]]
	require.True(t, data.AttributeAccesses["os"]["path"])
	require.True(t, data.AttributeAccesses["os.path"]["join"])
}

func TestBuildCallMarksSideEffect(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.ExprStmt{Value: &pyast.Call{Func: &pyast.Name{Id: "print"}}},
	}}
	g, _ := Build(mod, false)
	require.Len(t, g.SideEffectItems, 1)
	require.True(t, g.Items[g.Order[0]].HasSideEffects)
}

func TestBuildLiteralAssignmentHasNoSideEffect(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{Targets: []pyast.Expr{&pyast.Name{Id: "X"}}, Value: &pyast.Constant{Kind: "int", Value: "1"}},
	}}
	g, _ := Build(mod, false)
	require.Empty(t, g.SideEffectItems)
	require.False(t, g.Items[g.Order[0]].HasSideEffects)
}

func TestBuildConditionalImportAtModuleScopeCountsAsModuleLevel(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.If{Body: []pyast.Stmt{&pyast.Import{Module: "sys"}}},
	}}
	g, summary := Build(mod, false)
	data := g.Items[g.Order[0]]
	require.True(t, data.ImportedNames["sys"])
	require.True(t, summary.HasModuleLevelImports)
}

func TestModuleSummaryOnlyConstants(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "os"},
		&pyast.Assign{Targets: []pyast.Expr{&pyast.Name{Id: "X"}}, Value: &pyast.Constant{Kind: "int", Value: "1"}},
	}}
	_, summary := Build(mod, false)
	require.True(t, summary.HasOnlyConstants)
	require.False(t, summary.HasClassDefinitions)
	require.False(t, summary.IsEmpty)
}

func TestModuleSummaryImportsUsedInFunctionsOnly(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "f", Body: []pyast.Stmt{
			&pyast.FromImport{Module: "b", Names: []pyast.ImportedName{{Name: "g"}}},
		}},
	}}
	_, summary := Build(mod, false)
	require.True(t, summary.ImportsUsedInFunctionsOnly)
	require.False(t, summary.HasModuleLevelImports)
}

func TestModuleSummaryEmptyModule(t *testing.T) {
	mod := &pyast.Module{}
	_, summary := Build(mod, true)
	require.True(t, summary.IsEmpty)
	require.True(t, summary.IsInit)
}
