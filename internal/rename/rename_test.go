package rename

import (
	"testing"

	"github.com/cribo-go/cribo/internal/ids"
	"github.com/stretchr/testify/require"
)

func gid(mod ids.ModuleId, binding ids.BindingId) ids.GlobalBindingId {
	return ids.GlobalBindingId{Module: mod, Binding: binding}
}

func TestComputeKeepsFirstInstanceUnrenamed(t *testing.T) {
	first := gid(1, 0)
	second := gid(2, 0)
	plan := Compute([]SymbolConflict{{
		SymbolName: "X",
		Conflicts: []ConflictEntry{
			{ModuleName: "a", GlobalID: first},
			{ModuleName: "b", GlobalID: second},
		},
	}})

	_, ok := plan.NewName(first)
	require.False(t, ok)

	name, ok := plan.NewName(second)
	require.True(t, ok)
	require.Equal(t, "X_b", name)
}

func TestComputeRenamesEveryInstanceButTheFirst(t *testing.T) {
	a := gid(1, 0)
	b := gid(2, 0)
	c := gid(3, 0)
	plan := Compute([]SymbolConflict{{
		SymbolName: "X",
		Conflicts: []ConflictEntry{
			{ModuleName: "a", GlobalID: a},
			{ModuleName: "b", GlobalID: b},
			{ModuleName: "c", GlobalID: c},
		},
	}})

	require.Len(t, plan.Entries(), 2)
	bName, _ := plan.NewName(b)
	cName, _ := plan.NewName(c)
	require.Equal(t, "X_b", bName)
	require.Equal(t, "X_c", cName)
}

func TestSanitizeReplacesNonIdentifierCharacters(t *testing.T) {
	require.Equal(t, "pkg_sub_module", Sanitize("pkg.sub-module"))
	require.Equal(t, "a_b_c", Sanitize("a.b.c"))
}

func TestSanitizeIsIdempotent(t *testing.T) {
	name := "pkg.sub-module"
	once := Sanitize(name)
	twice := Sanitize(once)
	require.Equal(t, once, twice)
}

func TestComputeSanitizesDottedModuleNames(t *testing.T) {
	a := gid(1, 0)
	b := gid(2, 0)
	plan := Compute([]SymbolConflict{{
		SymbolName: "Helper",
		Conflicts: []ConflictEntry{
			{ModuleName: "pkg.a", GlobalID: a},
			{ModuleName: "pkg.b", GlobalID: b},
		},
	}})

	name, ok := plan.NewName(b)
	require.True(t, ok)
	require.Equal(t, "Helper_pkg_b", name)
}

func TestComputeIsDeterministicAcrossRuns(t *testing.T) {
	build := func() *Plan {
		return Compute([]SymbolConflict{
			{SymbolName: "X", Conflicts: []ConflictEntry{
				{ModuleName: "a", GlobalID: gid(1, 0)},
				{ModuleName: "b", GlobalID: gid(2, 0)},
			}},
			{SymbolName: "Y", Conflicts: []ConflictEntry{
				{ModuleName: "c", GlobalID: gid(3, 0)},
				{ModuleName: "d", GlobalID: gid(4, 0)},
			}},
		})
	}

	first := build()
	second := build()
	require.Equal(t, first.Entries(), second.Entries())
}
