package discovery

import (
	"testing"

	"github.com/cribo-go/cribo/internal/pyast"
	"github.com/stretchr/testify/require"
)

func TestWalkFindsModuleScopeImport(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "os"},
	}}
	found := Walk(mod)
	require.Len(t, found, 1)
	require.Equal(t, ModuleScope, found[0].Location)
	require.Equal(t, "os", found[0].ModuleName)
}

func TestWalkDescendsIntoFunctionClassConditionalTryAndMatch(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "f", Body: []pyast.Stmt{
			&pyast.Import{Module: "json"},
		}},
		&pyast.ClassDef{Name: "C", Body: []pyast.Stmt{
			&pyast.FromImport{Module: "typing", Names: []pyast.ImportedName{{Name: "Any"}}},
		}},
		&pyast.If{Body: []pyast.Stmt{
			&pyast.Import{Module: "sys"},
		}},
		&pyast.Try{Body: []pyast.Stmt{
			&pyast.Import{Module: "re"},
		}},
		&pyast.Match{Cases: []pyast.MatchCase{
			{Body: []pyast.Stmt{&pyast.Import{Module: "io"}}},
		}},
	}}

	found := Walk(mod)
	require.Len(t, found, 5)
	require.Equal(t, FunctionScope, found[0].Location)
	require.Equal(t, ClassScope, found[1].Location)
	require.Equal(t, ConditionalScope, found[2].Location)
	require.Equal(t, TryScope, found[3].Location)
	require.Equal(t, ConditionalScope, found[4].Location)
}

func TestWalkFlagsTypeCheckingBlock(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.If{IsTypeChecking: true, Body: []pyast.Stmt{
			&pyast.FromImport{Module: "app.models", Names: []pyast.ImportedName{{Name: "User"}}},
		}},
	}}
	found := Walk(mod)
	require.Len(t, found, 1)
	require.True(t, found[0].InTypeCheckingBlock)
}

func TestWalkStarImportNeverMissed(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "f", Body: []pyast.Stmt{
			&pyast.FromImport{Level: 1, IsStar: true},
		}},
	}}
	found := Walk(mod)
	require.Len(t, found, 1)
	require.True(t, found[0].IsStar)
	require.Equal(t, FunctionScope, found[0].Location)
}
