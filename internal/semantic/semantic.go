// Package semantic is the thin adapter over the external binding
// resolver: it exposes, for a single module's global scope, exactly the
// three queries internal/driver's rename planning and internal/compiler need to compute
// rename ranges precisely:
//
//	global_scope.get(name) → BindingId
//	binding(id).{range, references}
//	reference(id).range
//
// The resolver itself — real scope analysis, shadowing, closures —
// belongs to the external semantic analyzer. Build constructs the
// per-module model this adapter would receive from that analyzer; it only
// tracks module (global) scope, since nested-scope shadowing is the
// import transformer's concern, not this adapter's.
package semantic

import (
	"strings"

	"github.com/cribo-go/cribo/internal/ids"
	"github.com/cribo-go/cribo/internal/pyast"
)

// ReferenceId identifies one textual occurrence of a global binding.
type ReferenceId uint32

const InvalidReferenceId ReferenceId = 0xFFFFFFFF

// Binding is one name bound at module (global) scope: its defining range
// plus every reference range recorded against it.
type Binding struct {
	Name       string
	Range      pyast.TextRange
	References []ReferenceId
}

// Reference is one textual occurrence of a binding's name in value context.
type Reference struct {
	Name  string
	Range pyast.TextRange
}

// Model is the per-module semantic facade. The driver builds one per
// module and hands it to the rename planner and bundle compiler.
type Model struct {
	bindings   []Binding
	references []Reference
	byName     map[string]ids.BindingId
}

func newModel() *Model {
	return &Model{byName: make(map[string]ids.BindingId)}
}

// GlobalScopeGet is global_scope.get(name).
func (m *Model) GlobalScopeGet(name string) (ids.BindingId, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Binding is binding(id).
func (m *Model) Binding(id ids.BindingId) Binding {
	return m.bindings[id]
}

// Reference is reference(id).
func (m *Model) Reference(id ReferenceId) Reference {
	return m.references[id]
}

// Bindings returns every global binding in declaration order, for callers
// (the rename planner's conflict collector) that need to enumerate a
// module's public surface rather than look up one name at a time.
func (m *Model) Bindings() []Binding {
	return m.bindings
}

func (m *Model) declare(name string, rng pyast.TextRange) ids.BindingId {
	if id, ok := m.byName[name]; ok {
		return id
	}
	id := ids.BindingId(len(m.bindings))
	m.bindings = append(m.bindings, Binding{Name: name, Range: rng})
	m.byName[name] = id
	return id
}

func (m *Model) reference(name string, rng pyast.TextRange) {
	id, ok := m.byName[name]
	if !ok {
		return
	}
	refID := ReferenceId(len(m.references))
	m.references = append(m.references, Reference{Name: name, Range: rng})
	b := m.bindings[id]
	b.References = append(b.References, refID)
	m.bindings[id] = b
}

// Build constructs a module's semantic model: every name bound at module
// scope, and every reference to one of those names anywhere in the module
// (including inside nested function and class bodies — a global can be read
// from any depth, only declarations are scope-bound).
func Build(module *pyast.Module) *Model {
	m := newModel()
	declareStmts(m, module.Body)
	for _, s := range module.Body {
		walkStmtForRefs(m, s)
	}
	return m
}

func isFutureImportModule(name string) bool { return name == "__future__" }

func declareStmts(m *Model, stmts []pyast.Stmt) {
	for _, s := range stmts {
		declareStmt(m, s)
	}
}

func declareStmt(m *Model, s pyast.Stmt) {
	switch t := s.(type) {
	case *pyast.Import:
		declareImport(m, t)
	case *pyast.FromImport:
		declareFromImport(m, t)
	case *pyast.FunctionDef:
		m.declare(t.Name, t.Range())
	case *pyast.ClassDef:
		m.declare(t.Name, t.Range())
	case *pyast.Assign:
		for _, target := range t.Targets {
			declareAssignTarget(m, target)
		}
	case *pyast.If:
		declareStmts(m, t.Body)
		declareStmts(m, t.Orelse)
	case *pyast.While:
		declareStmts(m, t.Body)
		declareStmts(m, t.Orelse)
	case *pyast.For:
		declareAssignTarget(m, t.Target)
		declareStmts(m, t.Body)
		declareStmts(m, t.Orelse)
	case *pyast.With:
		for _, item := range t.Items {
			if item.OptionalVar != nil {
				declareAssignTarget(m, item.OptionalVar)
			}
		}
		declareStmts(m, t.Body)
	case *pyast.Try:
		declareStmts(m, t.Body)
		for _, h := range t.Handlers {
			if h.Name != "" {
				// ExceptHandler carries no dedicated name range; the
				// handler's enclosing Try range is the closest available
				// anchor. Documented simplification, see DESIGN.md.
				m.declare(h.Name, t.Range())
			}
			declareStmts(m, h.Body)
		}
		declareStmts(m, t.Orelse)
		declareStmts(m, t.Finally)
	case *pyast.Match:
		for _, c := range t.Cases {
			declareStmts(m, c.Body)
		}
	}
}

func declareAssignTarget(m *Model, e pyast.Expr) {
	switch t := e.(type) {
	case *pyast.Name:
		m.declare(t.Id, t.Range())
	case *pyast.CollectionExpr:
		for _, el := range t.Elems {
			declareAssignTarget(m, el)
		}
	case *pyast.Starred:
		declareAssignTarget(m, t.Value)
	default:
		// Attribute/Subscript targets mutate an existing object; they bind
		// no new global name.
	}
}

func declareImport(m *Model, imp *pyast.Import) {
	if imp.Alias != "" {
		m.declare(imp.Alias, imp.Range())
		return
	}
	root := imp.Module
	if i := strings.IndexByte(root, '.'); i >= 0 {
		root = root[:i]
	}
	m.declare(root, imp.Range())
	if root != imp.Module {
		m.declare(imp.Module, imp.Range())
	}
}

func declareFromImport(m *Model, fi *pyast.FromImport) {
	if fi.IsStar || isFutureImportModule(fi.Module) {
		return
	}
	for _, n := range fi.Names {
		local := n.Name
		if n.Alias != "" {
			local = n.Alias
		}
		m.declare(local, n.Range)
	}
}

func walkStmtsForRefs(m *Model, stmts []pyast.Stmt) {
	for _, s := range stmts {
		walkStmtForRefs(m, s)
	}
}

func walkStmtForRefs(m *Model, s pyast.Stmt) {
	switch t := s.(type) {
	case *pyast.Import, *pyast.FromImport:
		// no expression body to scan
	case *pyast.FunctionDef:
		for _, d := range t.Decorators {
			walkExprForRefs(m, d)
		}
		walkStmtsForRefs(m, t.Body)
	case *pyast.ClassDef:
		for _, b := range t.Bases {
			walkExprForRefs(m, b)
		}
		for _, d := range t.Decorators {
			walkExprForRefs(m, d)
		}
		walkStmtsForRefs(m, t.Body)
	case *pyast.Assign:
		for _, target := range t.Targets {
			walkAssignTargetForRefs(m, target)
		}
		walkExprForRefs(m, t.Value)
	case *pyast.ExprStmt:
		walkExprForRefs(m, t.Value)
	case *pyast.If:
		walkExprForRefs(m, t.Test)
		walkStmtsForRefs(m, t.Body)
		walkStmtsForRefs(m, t.Orelse)
	case *pyast.While:
		walkStmtsForRefs(m, t.Body)
		walkStmtsForRefs(m, t.Orelse)
	case *pyast.For:
		walkAssignTargetForRefs(m, t.Target)
		walkExprForRefs(m, t.Iter)
		walkStmtsForRefs(m, t.Body)
		walkStmtsForRefs(m, t.Orelse)
	case *pyast.With:
		for _, item := range t.Items {
			walkExprForRefs(m, item.ContextExpr)
			if item.OptionalVar != nil {
				walkAssignTargetForRefs(m, item.OptionalVar)
			}
		}
		walkStmtsForRefs(m, t.Body)
	case *pyast.Try:
		walkStmtsForRefs(m, t.Body)
		for _, h := range t.Handlers {
			if h.Type != nil {
				walkExprForRefs(m, h.Type)
			}
			walkStmtsForRefs(m, h.Body)
		}
		walkStmtsForRefs(m, t.Orelse)
		walkStmtsForRefs(m, t.Finally)
	case *pyast.Match:
		walkExprForRefs(m, t.Subject)
		for _, c := range t.Cases {
			walkStmtsForRefs(m, c.Body)
		}
	case *pyast.Other:
		// Other statements surface no structural expressions to recurse
		// into; their ReadVars/WriteVars have no byte ranges to attach.
	}
}

func walkAssignTargetForRefs(m *Model, e pyast.Expr) {
	switch t := e.(type) {
	case *pyast.Name:
		// a pure assignment target is a declaration, not a reference
	case *pyast.CollectionExpr:
		for _, el := range t.Elems {
			walkAssignTargetForRefs(m, el)
		}
	case *pyast.Starred:
		walkAssignTargetForRefs(m, t.Value)
	default:
		// Attribute/Subscript targets read their base object, e.g.
		// `obj.attr = x` references `obj`.
		walkExprForRefs(m, e)
	}
}

func walkExprForRefs(m *Model, e pyast.Expr) {
	if e == nil {
		return
	}
	switch t := e.(type) {
	case *pyast.Name:
		m.reference(t.Id, t.Range())
	case *pyast.Attribute:
		walkExprForRefs(m, t.Value)
	case *pyast.Call:
		walkExprForRefs(m, t.Func)
		for _, a := range t.Args {
			walkExprForRefs(m, a)
		}
		for _, k := range t.Keywords {
			walkExprForRefs(m, k.Value)
		}
	case *pyast.Constant:
		// literal, no refs
	case *pyast.BinOp:
		walkExprForRefs(m, t.Left)
		walkExprForRefs(m, t.Right)
	case *pyast.UnaryOp:
		walkExprForRefs(m, t.Operand)
	case *pyast.BoolOp:
		for _, v := range t.Values {
			walkExprForRefs(m, v)
		}
	case *pyast.Compare:
		walkExprForRefs(m, t.Left)
		for _, c := range t.Comparators {
			walkExprForRefs(m, c)
		}
	case *pyast.IfExp:
		walkExprForRefs(m, t.Test)
		walkExprForRefs(m, t.Body)
		walkExprForRefs(m, t.Orelse)
	case *pyast.CollectionExpr:
		for _, el := range t.Elems {
			walkExprForRefs(m, el)
		}
	case *pyast.DictExpr:
		for _, k := range t.Keys {
			walkExprForRefs(m, k)
		}
		for _, v := range t.Values {
			walkExprForRefs(m, v)
		}
	case *pyast.Starred:
		walkExprForRefs(m, t.Value)
	case *pyast.Lambda:
		walkExprForRefs(m, t.Body)
	case *pyast.Yield:
		if t.Value != nil {
			walkExprForRefs(m, t.Value)
		}
	case *pyast.Await:
		walkExprForRefs(m, t.Value)
	case *pyast.Subscript:
		walkExprForRefs(m, t.Value)
		walkExprForRefs(m, t.Slice)
	case *pyast.SliceExpr:
		if t.Lower != nil {
			walkExprForRefs(m, t.Lower)
		}
		if t.Upper != nil {
			walkExprForRefs(m, t.Upper)
		}
		if t.Step != nil {
			walkExprForRefs(m, t.Step)
		}
	case *pyast.Comprehension:
		if t.Key != nil {
			walkExprForRefs(m, t.Key)
		}
		walkExprForRefs(m, t.Element)
		for _, g := range t.Generators {
			walkExprForRefs(m, g.Iter)
			for _, f := range g.Ifs {
				walkExprForRefs(m, f)
			}
		}
	case *pyast.JoinedStr:
		for _, v := range t.Values {
			walkExprForRefs(m, v)
		}
	case *pyast.FormattedValue:
		walkExprForRefs(m, t.Value)
		if t.FormatSpec != nil {
			walkExprForRefs(m, t.FormatSpec)
		}
	}
}
