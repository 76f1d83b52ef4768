// Package discovery is a visitor over one module's AST that lists every
// import statement together with its lexical location. The traversal
// descends into every construct that can contain statements, so that
// imports nested inside functions, classes, conditionals, loops,
// with-blocks, try/except, and match/case are never missed — that
// completeness is what lets internal/modgraph later decide whether a
// cycle can be broken by moving an import into a function body.
package discovery

import "github.com/cribo-go/cribo/internal/pyast"

// Location classifies where an import statement lexically sits.
type Location uint8

const (
	ModuleScope Location = iota
	FunctionScope
	ClassScope
	ConditionalScope
	TryScope
)

func (l Location) String() string {
	switch l {
	case ModuleScope:
		return "module"
	case FunctionScope:
		return "function"
	case ClassScope:
		return "class"
	case ConditionalScope:
		return "conditional"
	case TryScope:
		return "try"
	default:
		return "unknown"
	}
}

// DiscoveredImport is one Import or FromImport statement found anywhere in
// a module, annotated with where it lives.
type DiscoveredImport struct {
	Stmt pyast.Stmt // *pyast.Import or *pyast.FromImport

	// ModuleName is the dotted name for Import, or FromImport.Module for
	// FromImport (possibly "" for a pure relative "from . import x").
	ModuleName string
	Names      []pyast.ImportedName // empty for a plain Import
	Level      int                  // 0 for Import / absolute FromImport
	IsStar     bool
	Alias      string // Import's "as" alias, if any

	Location            Location
	InTypeCheckingBlock bool
}

// Walk returns every import statement in module, in source order, at
// whatever nesting depth it occurs.
func Walk(module *pyast.Module) []DiscoveredImport {
	w := &walker{}
	w.walkBlock(module.Body, ModuleScope, false)
	return w.found
}

type walker struct {
	found []DiscoveredImport
}

func (w *walker) walkBlock(body []pyast.Stmt, loc Location, inTypeChecking bool) {
	for _, stmt := range body {
		w.walkStmt(stmt, loc, inTypeChecking)
	}
}

func (w *walker) walkStmt(stmt pyast.Stmt, loc Location, inTypeChecking bool) {
	switch s := stmt.(type) {
	case *pyast.Import:
		w.found = append(w.found, DiscoveredImport{
			Stmt: s, ModuleName: s.Module, Alias: s.Alias,
			Location: loc, InTypeCheckingBlock: inTypeChecking,
		})

	case *pyast.FromImport:
		w.found = append(w.found, DiscoveredImport{
			Stmt: s, ModuleName: s.Module, Names: s.Names, Level: s.Level,
			IsStar: s.IsStar, Location: loc,
			InTypeCheckingBlock: inTypeChecking || s.InTypeCheckingBlock,
		})

	case *pyast.FunctionDef:
		w.walkBlock(s.Body, FunctionScope, inTypeChecking)

	case *pyast.ClassDef:
		w.walkBlock(s.Body, ClassScope, inTypeChecking)

	case *pyast.If:
		childInTC := inTypeChecking || s.IsTypeChecking
		w.walkBlock(s.Body, ConditionalScope, childInTC)
		w.walkBlock(s.Orelse, ConditionalScope, inTypeChecking)

	case *pyast.While:
		w.walkBlock(s.Body, ConditionalScope, inTypeChecking)
		w.walkBlock(s.Orelse, ConditionalScope, inTypeChecking)

	case *pyast.For:
		w.walkBlock(s.Body, ConditionalScope, inTypeChecking)
		w.walkBlock(s.Orelse, ConditionalScope, inTypeChecking)

	case *pyast.With:
		w.walkBlock(s.Body, loc, inTypeChecking)

	case *pyast.Try:
		w.walkBlock(s.Body, TryScope, inTypeChecking)
		for _, h := range s.Handlers {
			w.walkBlock(h.Body, TryScope, inTypeChecking)
		}
		w.walkBlock(s.Orelse, TryScope, inTypeChecking)
		w.walkBlock(s.Finally, TryScope, inTypeChecking)

	case *pyast.Match:
		for _, c := range s.Cases {
			w.walkBlock(c.Body, ConditionalScope, inTypeChecking)
		}

	default:
		// Assign, ExprStmt, Other: no nested statements to descend into.
	}
}
