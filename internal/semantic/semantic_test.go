package semantic

import (
	"testing"

	"github.com/cribo-go/cribo/internal/pyast"
	"github.com/stretchr/testify/require"
)

func nameAt(id string, r pyast.TextRange) *pyast.Name {
	n := &pyast.Name{Id: id}
	n.R = r
	return n
}

func TestBuildDeclaresAssignTargetAndRecordsReference(t *testing.T) {
	defRange := pyast.TextRange{Start: 0, End: 5}
	useRange := pyast.TextRange{Start: 20, End: 25}
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{
			Targets: []pyast.Expr{nameAt("CONST", defRange)},
			Value:   &pyast.Constant{Kind: "int", Value: "1"},
		},
		&pyast.ExprStmt{
			Value: nameAt("CONST", useRange),
		},
	}}

	m := Build(mod)
	id, ok := m.GlobalScopeGet("CONST")
	require.True(t, ok)

	b := m.Binding(id)
	require.Equal(t, defRange, b.Range)
	require.Len(t, b.References, 1)
	require.Equal(t, useRange, m.Reference(b.References[0]).Range)
}

func TestBuildFirstAssignmentWinsDefiningRange(t *testing.T) {
	first := pyast.TextRange{Start: 0, End: 1}
	second := pyast.TextRange{Start: 10, End: 11}
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{Targets: []pyast.Expr{nameAt("X", first)}, Value: &pyast.Constant{Kind: "int", Value: "1"}},
		&pyast.Assign{Targets: []pyast.Expr{nameAt("X", second)}, Value: &pyast.Constant{Kind: "int", Value: "2"}},
	}}

	m := Build(mod)
	id, _ := m.GlobalScopeGet("X")
	require.Equal(t, first, m.Binding(id).Range)
}

func TestBuildImportDeclaresAliasOnly(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "a.b.c", Alias: "abc"},
	}}
	m := Build(mod)
	_, ok := m.GlobalScopeGet("abc")
	require.True(t, ok)
	_, ok = m.GlobalScopeGet("a")
	require.False(t, ok)
}

func TestBuildFromImportUsesNamedRange(t *testing.T) {
	nameRange := pyast.TextRange{Start: 7, End: 8}
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FromImport{Module: "m", Names: []pyast.ImportedName{{Name: "g", Range: nameRange}}},
	}}
	m := Build(mod)
	id, ok := m.GlobalScopeGet("g")
	require.True(t, ok)
	require.Equal(t, nameRange, m.Binding(id).Range)
}

func TestBuildFutureImportDeclaresNothing(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.FromImport{Module: "__future__", Names: []pyast.ImportedName{{Name: "annotations"}}},
	}}
	m := Build(mod)
	require.Empty(t, m.Bindings())
}

func TestBuildReferenceInsideNestedFunctionIsRecorded(t *testing.T) {
	useRange := pyast.TextRange{Start: 30, End: 35}
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{Targets: []pyast.Expr{&pyast.Name{Id: "CONST"}}, Value: &pyast.Constant{Kind: "int", Value: "1"}},
		&pyast.FunctionDef{Name: "f", Body: []pyast.Stmt{
			&pyast.ExprStmt{Value: nameAt("CONST", useRange)},
		}},
	}}
	m := Build(mod)
	id, _ := m.GlobalScopeGet("CONST")
	require.Len(t, m.Binding(id).References, 1)
	require.Equal(t, useRange, m.Reference(m.Binding(id).References[0]).Range)
}

func TestBuildAssignTargetAttributeDoesNotDeclareButReferencesBase(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Module: "obj"},
		&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Attribute{Value: &pyast.Name{Id: "obj"}, Attr: "x"}},
			Value:   &pyast.Constant{Kind: "int", Value: "1"},
		},
	}}
	m := Build(mod)
	id, ok := m.GlobalScopeGet("obj")
	require.True(t, ok)
	require.Len(t, m.Binding(id).References, 1)
}

func TestUnknownNameLookupMisses(t *testing.T) {
	m := Build(&pyast.Module{})
	_, ok := m.GlobalScopeGet("nope")
	require.False(t, ok)
}
