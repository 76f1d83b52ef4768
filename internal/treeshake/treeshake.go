// Package treeshake computes, from a module's dependency graph
// (internal/depgraph) and a set of "used" symbol names, the minimal set
// of items that must survive in the bundle.
//
// The algorithm is per-module: start from items that define a used
// symbol, walk Strong dependencies unconditionally and Weak dependencies
// only once their target is already live, then always keep every
// side-effect item regardless of reachability. Cross-module liveness is
// the driver's job: it computes each module's own used-symbol set (the
// entry module's actual reads for itself, the public surface for a module
// only reached through a namespace object — see PublicSymbols) and calls
// Shake once per module.
package treeshake

import (
	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/ids"
)

// Shake returns the set of item ids that must be kept given usedSymbols,
// the module's own side-effect items, and the import-specific keep rules
// below. isInit preserves every import when the module is an __init__.py,
// keeping the package's public surface intact.
func Shake(g *depgraph.ModuleDepGraph, usedSymbols map[string]bool, isInit bool) map[ids.ItemId]bool {
	required := map[ids.ItemId]bool{}

	for _, itemID := range g.Order {
		data := g.Items[itemID]
		if definesUsedSymbol(data, usedSymbols) {
			collect(g, itemID, required)
		}
	}

	for _, itemID := range g.SideEffectItems {
		required[itemID] = true
	}

	// Import-specific override: an Import/FromImport item that wasn't
	// pulled in by the general reachability pass above is still kept if
	// it has side effects, is explicitly re-exported, the module is
	// __init__.py, it is a star import, an imported name appears in
	// __all__, or a name it declares is read by some live item. That last
	// check covers reads inside a live function's body, which graphbuilder
	// wires as Weak deps that the walk above does not follow.
	liveReads := map[string]bool{}
	for itemID := range required {
		for name := range g.Items[itemID].ReadVars {
			liveReads[name] = true
		}
		for name := range g.Items[itemID].EventualReadVars {
			liveReads[name] = true
		}
	}
	allExports := moduleExports(g)
	for _, itemID := range g.Order {
		if required[itemID] {
			continue
		}
		data := g.Items[itemID]
		if !isImportItem(data.Kind) {
			continue
		}
		readByLive := false
		for name := range data.VarDecls {
			readByLive = readByLive || liveReads[name]
		}
		switch {
		case data.HasSideEffects:
			required[itemID] = true
		case len(data.ReexportedNames) > 0:
			required[itemID] = true
		case isInit:
			required[itemID] = true
		case isStarImport(data.Kind):
			required[itemID] = true
		case importedNameExported(data, allExports):
			required[itemID] = true
		case readByLive:
			required[itemID] = true
		}
	}

	return required
}

func collect(g *depgraph.ModuleDepGraph, itemID ids.ItemId, required map[ids.ItemId]bool) {
	if required[itemID] {
		return
	}
	required[itemID] = true
	for _, dep := range g.Deps[itemID] {
		switch dep.Strength {
		case depgraph.Strong:
			collect(g, dep.Target, required)
		case depgraph.Weak:
			if required[dep.Target] {
				collect(g, dep.Target, required)
			}
		}
	}
}

func definesUsedSymbol(data *depgraph.ItemData, usedSymbols map[string]bool) bool {
	switch k := data.Kind.(type) {
	case depgraph.FunctionDefKind:
		return usedSymbols[k.Name]
	case depgraph.ClassDefKind:
		return usedSymbols[k.Name]
	case depgraph.AssignmentKind:
		for _, t := range k.Targets {
			if usedSymbols[t] {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func isImportItem(kind depgraph.ItemKind) bool {
	switch kind.(type) {
	case depgraph.ImportKind, depgraph.FromImportKind:
		return true
	default:
		return false
	}
}

func isStarImport(kind depgraph.ItemKind) bool {
	fi, ok := kind.(depgraph.FromImportKind)
	return ok && fi.IsStar
}

func importedNameExported(data *depgraph.ItemData, allExports map[string]bool) bool {
	if allExports == nil {
		return false
	}
	for name := range data.ImportedNames {
		if allExports[name] {
			return true
		}
	}
	return false
}

// moduleExports returns the string values of a module's literal __all__
// assignment, or nil if the module has none.
func moduleExports(g *depgraph.ModuleDepGraph) map[string]bool {
	for _, itemID := range g.Order {
		data := g.Items[itemID]
		a, ok := data.Kind.(depgraph.AssignmentKind)
		if !ok {
			continue
		}
		isAll := false
		for _, t := range a.Targets {
			if t == "__all__" {
				isAll = true
				break
			}
		}
		if isAll && len(data.ReexportedNames) > 0 {
			return data.ReexportedNames
		}
	}
	return nil
}

// PublicSymbols returns every top-level, non-underscore-prefixed symbol a
// module defines — the "used symbols" set for a module reached only
// through a namespace object, since that object must expose the module's
// full public surface.
func PublicSymbols(g *depgraph.ModuleDepGraph) map[string]bool {
	out := map[string]bool{}
	for _, itemID := range g.Order {
		data := g.Items[itemID]
		for name := range data.DefinedSymbols {
			if isPublic(name) {
				out[name] = true
			}
		}
	}
	return out
}

func isPublic(name string) bool {
	return name != "" && name[0] != '_'
}
