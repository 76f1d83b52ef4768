// Package graphbuilder populates one module's ModuleDepGraph
// (internal/depgraph) from its parsed AST. Only top-level statements
// become items, one item per statement, in source order. A FunctionDef
// item's body contributes to its EventualReadVars / EventualWriteVars
// (deferred until the function is called) while an If, Try, or Other
// item's nested control-flow body contributes to its immediate ReadVars /
// WriteVars (it runs at import time, same as the statement that contains
// it).
package graphbuilder

import (
	"strings"

	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/ids"
	"github.com/cribo-go/cribo/internal/pyast"
)

// ModuleSummary captures the module-wide characteristics
// internal/modgraph needs to classify a cycle.
type ModuleSummary struct {
	IsEmpty                    bool
	HasOnlyConstants           bool
	HasClassDefinitions        bool
	HasModuleLevelImports      bool
	ImportsUsedInFunctionsOnly bool
	IsInit                     bool

	// IsEmptyOrImportsOnly is true when the module has no items, or every
	// item is a plain Import/FromImport (internal/modgraph's
	// all_modules_empty_or_imports_only check).
	IsEmptyOrImportsOnly bool
}

// Build populates a fresh ModuleDepGraph from module's top-level
// statements. isInit marks whether this module is an __init__.py, which
// both softens cycle classification and preserves the package's public
// import surface during tree shaking.
func Build(module *pyast.Module, isInit bool) (*depgraph.ModuleDepGraph, ModuleSummary) {
	g := depgraph.New()
	b := &builder{graph: g, nameToItem: map[string]itemRef{}, aliasToModule: map[string]string{}}

	for idx, stmt := range module.Body {
		before := len(g.Order)
		b.addTopLevel(stmt)
		if len(g.Order) == before+1 {
			item := g.Items[g.Order[before]]
			item.StatementIndex = uint32(idx)
			item.HasStatementIndex = true
		}
	}
	b.wireDeps()

	return g, b.summarize(isInit)
}

type builder struct {
	graph *depgraph.ModuleDepGraph

	// nameToItem maps a module-scope bound name to the item that declares
	// it, built while items are added and consumed by wireDeps afterwards.
	nameToItem map[string]itemRef

	// aliasToModule tracks `import importlib as il` so a later
	// `il.import_module("literal")` is still recognized.
	aliasToModule map[string]string

	hasClassDef            bool
	hasModuleLevelImport   bool
	itemCount              int
	anyImportItem          bool
	importsInFunctionsOnly bool
}

type itemRef struct {
	id   ids.ItemId
	data *depgraph.ItemData
}

func (b *builder) addTopLevel(stmt pyast.Stmt) {
	switch s := stmt.(type) {
	case *pyast.Import:
		b.addImport(s)
	case *pyast.FromImport:
		if isFutureImport(s) {
			return
		}
		b.addFromImport(s)
	case *pyast.FunctionDef:
		b.addFunctionDef(s)
	case *pyast.ClassDef:
		b.hasClassDef = true
		b.addClassDef(s)
	case *pyast.Assign:
		b.addAssign(s)
	case *pyast.ExprStmt:
		b.addExprStmt(s)
	case *pyast.If:
		b.addControlFlow(depgraph.IfKind{ConditionText: s.ConditionText}, []pyast.Stmt{s})
	case *pyast.Try:
		b.addControlFlow(depgraph.TryKind{}, []pyast.Stmt{s})
	default:
		b.addControlFlow(depgraph.OtherKind{}, []pyast.Stmt{stmt})
	}
	b.itemCount++
}

func isFutureImport(s *pyast.FromImport) bool {
	return s.Module == "__future__"
}

func (b *builder) registerName(name string, id ids.ItemId, data *depgraph.ItemData) {
	if _, exists := b.nameToItem[name]; !exists {
		b.nameToItem[name] = itemRef{id: id, data: data}
	}
}

func (b *builder) addImport(s *pyast.Import) {
	id, data := b.graph.AddItem(depgraph.ImportKind{Module: s.Module, Alias: s.Alias})
	b.hasModuleLevelImport = true
	b.anyImportItem = true

	var localName string
	if s.Alias != "" {
		localName = s.Alias
		data.VarDecls[s.Alias] = true
		data.ImportedNames[s.Alias] = true
		b.aliasToModule[s.Alias] = s.Module
	} else {
		root := rootComponent(s.Module)
		localName = root
		data.VarDecls[root] = true
		data.VarDecls[s.Module] = true
		data.ImportedNames[root] = true
		b.aliasToModule[root] = s.Module
	}
	data.DefinedSymbols[localName] = true
	b.registerName(localName, id, data)
}

func (b *builder) addFromImport(s *pyast.FromImport) {
	kind := depgraph.FromImportKind{Module: s.Module, Level: uint32(s.Level), IsStar: s.IsStar}
	for _, n := range s.Names {
		kind.Names = append(kind.Names, depgraph.NameAlias{Name: n.Name, Alias: n.Alias})
	}
	id, data := b.graph.AddItem(kind)
	b.hasModuleLevelImport = true
	b.anyImportItem = true

	for _, n := range s.Names {
		local := n.Name
		if n.Alias != "" {
			local = n.Alias
		}
		data.VarDecls[local] = true
		data.ImportedNames[local] = true
		data.DefinedSymbols[local] = true
		if n.Alias != "" && n.Alias == n.Name {
			data.ReexportedNames[n.Name] = true
		}
		b.registerName(local, id, data)
	}
}

func (b *builder) addFunctionDef(s *pyast.FunctionDef) {
	id, data := b.graph.AddItem(depgraph.FunctionDefKind{Name: s.Name})
	data.VarDecls[s.Name] = true
	data.DefinedSymbols[s.Name] = true
	b.registerName(s.Name, id, data)

	for _, dec := range s.Decorators {
		scanExpr(dec, data.ReadVars, data.AttributeAccesses)
	}
	if exprListHasSideEffects(s.Decorators) {
		data.HasSideEffects = true
		b.graph.MarkSideEffect(id)
	}

	ev := &bucket{reads: data.EventualReadVars, writes: data.EventualWriteVars, attrs: data.AttributeAccesses}
	var imported []string
	walkStmts(s.Body, ev, ev, &imported)
	if len(imported) > 0 {
		b.importsInFunctionsOnly = true
		b.anyImportItem = true
	}
}

func (b *builder) addClassDef(s *pyast.ClassDef) {
	id, data := b.graph.AddItem(depgraph.ClassDefKind{Name: s.Name})
	data.VarDecls[s.Name] = true
	data.DefinedSymbols[s.Name] = true
	b.registerName(s.Name, id, data)

	for _, base := range s.Bases {
		scanExpr(base, data.ReadVars, data.AttributeAccesses)
	}
	for _, dec := range s.Decorators {
		scanExpr(dec, data.ReadVars, data.AttributeAccesses)
	}
	if exprListHasSideEffects(s.Bases) || exprListHasSideEffects(s.Decorators) {
		data.HasSideEffects = true
		b.graph.MarkSideEffect(id)
	}

	imm := &bucket{reads: data.ReadVars, writes: data.WriteVars, attrs: data.AttributeAccesses}
	ev := &bucket{reads: data.EventualReadVars, writes: data.EventualWriteVars, attrs: data.AttributeAccesses}
	var imported []string
	// The class body runs immediately at class-definition time; only
	// nested method bodies (inside it) are deferred.
	walkStmts(s.Body, imm, ev, &imported)
	for _, name := range imported {
		data.ImportedNames[name] = true
	}
	if len(imported) > 0 {
		b.hasModuleLevelImport = true
		b.anyImportItem = true
	}
	if sideEffectsIn(s.Body) {
		data.HasSideEffects = true
		b.graph.MarkSideEffect(id)
	}
}

func (b *builder) addAssign(s *pyast.Assign) {
	var targetNames []string
	for _, t := range s.Targets {
		collectAssignTargets(t, &targetNames)
	}
	id, data := b.graph.AddItem(depgraph.AssignmentKind{Targets: targetNames})
	for _, name := range targetNames {
		data.WriteVars[name] = true
		data.VarDecls[name] = true
		data.DefinedSymbols[name] = true
		b.registerName(name, id, data)
	}

	if len(targetNames) == 1 && targetNames[0] == "__all__" {
		for _, v := range flattenAllLiteral(s.Value) {
			data.ReexportedNames[v] = true
		}
	}

	if module, ok := b.detectImportlibStaticCall(s.Value); ok {
		data.ImportedNames[module] = true
		b.hasModuleLevelImport = true
		b.anyImportItem = true
	}

	scanExpr(s.Value, data.ReadVars, data.AttributeAccesses)
	data.HasSideEffects = exprHasSideEffects(s.Value)
	if data.HasSideEffects {
		b.graph.MarkSideEffect(id)
	}
}

func (b *builder) addExprStmt(s *pyast.ExprStmt) {
	id, data := b.graph.AddItem(depgraph.ExpressionKind{})
	if module, ok := b.detectImportlibStaticCall(s.Value); ok {
		data.ImportedNames[module] = true
		b.hasModuleLevelImport = true
		b.anyImportItem = true
	}
	scanExpr(s.Value, data.ReadVars, data.AttributeAccesses)
	data.HasSideEffects = exprHasSideEffects(s.Value)
	if data.HasSideEffects {
		b.graph.MarkSideEffect(id)
	}
}

func (b *builder) addControlFlow(kind depgraph.ItemKind, stmts []pyast.Stmt) {
	id, data := b.graph.AddItem(kind)

	imm := &bucket{reads: data.ReadVars, writes: data.WriteVars, attrs: data.AttributeAccesses}
	ev := &bucket{reads: data.EventualReadVars, writes: data.EventualWriteVars, attrs: data.AttributeAccesses}
	var imported []string
	walkStmts(stmts, imm, ev, &imported)

	// Nested imports inside an if/try/other block at module scope run at
	// import time, so they count the same as a direct top-level import for
	// reachability and for module-level-usage purposes.
	for _, name := range imported {
		data.ImportedNames[name] = true
		data.VarDecls[name] = true
		data.DefinedSymbols[name] = true
		b.registerName(name, id, data)
	}
	if len(imported) > 0 {
		b.hasModuleLevelImport = true
		b.anyImportItem = true
	}

	if sideEffectsIn(stmts) {
		data.HasSideEffects = true
		b.graph.MarkSideEffect(id)
	}
}

// detectImportlibStaticCall recognizes importlib.import_module("literal")
// with a static string argument, including through a tracked alias.
func (b *builder) detectImportlibStaticCall(e pyast.Expr) (string, bool) {
	call, ok := e.(*pyast.Call)
	if !ok || len(call.Args) != 1 {
		return "", false
	}
	attr, ok := call.Func.(*pyast.Attribute)
	if !ok || attr.Attr != "import_module" {
		return "", false
	}
	base, ok := attr.Value.(*pyast.Name)
	if !ok {
		return "", false
	}
	if base.Id != "importlib" {
		resolved, tracked := b.aliasToModule[base.Id]
		if !tracked || resolved != "importlib" {
			return "", false
		}
	}
	lit, ok := call.Args[0].(*pyast.Constant)
	if !ok || lit.Kind != "str" {
		return "", false
	}
	return lit.Value, true
}

// wireDeps runs after every item exists: for each item's (eventual) read,
// find its declarer via nameToItem and record a dependency edge — strong
// for an import-time read, weak for a deferred one.
func (b *builder) wireDeps() {
	for _, id := range b.graph.Order {
		data := b.graph.Items[id]
		for name := range data.ReadVars {
			if ref, ok := b.nameToItem[name]; ok && ref.id != id {
				b.graph.AddDep(id, ref.id, depgraph.Strong)
			}
			b.graph.RecordRead(name, id)
		}
		for name := range data.EventualReadVars {
			if ref, ok := b.nameToItem[name]; ok && ref.id != id {
				b.graph.AddDep(id, ref.id, depgraph.Weak)
			}
			b.graph.RecordRead(name, id)
		}
		for name := range data.WriteVars {
			b.graph.RecordWrite(name, id)
		}
		for name := range data.VarDecls {
			b.graph.RecordDeclaration(name, id)
		}
	}
}

func (b *builder) summarize(isInit bool) ModuleSummary {
	return ModuleSummary{
		IsEmpty:                    b.itemCount == 0,
		HasOnlyConstants:           b.hasOnlyConstants(),
		HasClassDefinitions:        b.hasClassDef,
		HasModuleLevelImports:      b.hasModuleLevelImport,
		ImportsUsedInFunctionsOnly: b.anyImportItem && b.importsInFunctionsOnly && !b.hasModuleLevelImport,
		IsInit:                     isInit,
		IsEmptyOrImportsOnly:       b.isEmptyOrImportsOnly(),
	}
}

func (b *builder) isEmptyOrImportsOnly() bool {
	for _, id := range b.graph.Order {
		switch b.graph.Items[id].Kind.(type) {
		case depgraph.ImportKind, depgraph.FromImportKind:
			continue
		default:
			return false
		}
	}
	return true
}

// hasOnlyConstants reports a nonempty module whose items are assignments
// and/or imports only, with at least one assignment (an import-only
// module doesn't count).
func (b *builder) hasOnlyConstants() bool {
	if b.itemCount == 0 {
		return false
	}
	sawAssignment := false
	for _, id := range b.graph.Order {
		switch b.graph.Items[id].Kind.(type) {
		case depgraph.AssignmentKind:
			sawAssignment = true
		case depgraph.ImportKind, depgraph.FromImportKind:
			continue
		default:
			return false
		}
	}
	return sawAssignment
}

func rootComponent(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}
