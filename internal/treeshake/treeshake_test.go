package treeshake

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/graphbuilder"
	"github.com/cribo-go/cribo/internal/pyast"
)

func TestShakeKeepsOnlyUsedFunctionAndItsDeps(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "greet", Body: []pyast.Stmt{&pyast.ExprStmt{Value: &pyast.Constant{Kind: "str", Value: "hello"}}}},
		&pyast.FunctionDef{Name: "unused", Body: []pyast.Stmt{&pyast.ExprStmt{Value: &pyast.Constant{Kind: "str", Value: "bye"}}}},
	}}
	g, _ := graphbuilder.Build(mod, false)

	live := Shake(g, map[string]bool{"greet": true}, false)

	require.True(t, live[g.Order[0]], "greet must be live")
	require.False(t, live[g.Order[1]], "unused must be shaken out")
}

func TestShakeAlwaysKeepsSideEffects(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "unused", Body: []pyast.Stmt{&pyast.ExprStmt{Value: &pyast.Constant{Kind: "str"}}}},
		&pyast.ExprStmt{Value: &pyast.Call{Func: &pyast.Name{Id: "print"}}},
	}}
	g, _ := graphbuilder.Build(mod, false)

	live := Shake(g, map[string]bool{}, false)

	require.False(t, live[g.Order[0]])
	require.True(t, live[g.Order[1]], "the bare call expression is a side effect and must survive")
}

func TestShakeKeepsInitImportsRegardlessOfUse(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "os"},
	}}
	g, _ := graphbuilder.Build(mod, true)

	live := Shake(g, map[string]bool{}, true)

	require.True(t, live[g.Order[0]], "__init__.py preserves its public surface")
}

func TestShakeDropsUnusedImportOutsideInit(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "os"},
		&pyast.ExprStmt{Value: &pyast.Constant{Kind: "str", Value: "noop"}},
	}}
	g, _ := graphbuilder.Build(mod, false)

	live := Shake(g, map[string]bool{}, false)

	require.False(t, live[g.Order[0]], "an unused, non-side-effecting import outside __init__.py is shaken out")
}

func TestPublicSymbolsExcludesUnderscorePrefixed(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "greet"},
		&pyast.FunctionDef{Name: "_helper"},
	}}
	g, _ := graphbuilder.Build(mod, false)

	pub := PublicSymbols(g)
	require.True(t, pub["greet"])
	require.False(t, pub["_helper"])
}

func TestShakeAlwaysKeepsStarImports(t *testing.T) {
	g := depgraph.New()
	_, _ = g.AddItem(depgraph.FromImportKind{Module: "pkg", IsStar: true})

	live := Shake(g, map[string]bool{}, false)
	require.Len(t, live, 1)
}
