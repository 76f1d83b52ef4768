// Package depgraph holds the per-module data model:
// ItemKind, ItemData, and ModuleDepGraph. internal/graphbuilder populates
// these from one module's AST; internal/treeshake, internal/classify, and
// internal/compiler consume them read-only afterwards.
package depgraph

import "github.com/cribo-go/cribo/internal/ids"

// ItemKind is a tagged variant over what one top-level item does,
// following the same closed-interface approach as pyast.Stmt rather than
// an open class hierarchy.
type ItemKind interface{ itemKind() }

type FunctionDefKind struct{ Name string }

func (FunctionDefKind) itemKind() {}

type ClassDefKind struct{ Name string }

func (ClassDefKind) itemKind() {}

type AssignmentKind struct{ Targets []string }

func (AssignmentKind) itemKind() {}

type ImportKind struct {
	Module string
	Alias  string // "" if no "as"
}

func (ImportKind) itemKind() {}

type NameAlias struct {
	Name  string
	Alias string // "" if no "as"
}

type FromImportKind struct {
	Module string
	Names  []NameAlias
	Level  uint32
	IsStar bool
}

func (FromImportKind) itemKind() {}

type ExpressionKind struct{}

func (ExpressionKind) itemKind() {}

type IfKind struct{ ConditionText string }

func (IfKind) itemKind() {}

type TryKind struct{}

func (TryKind) itemKind() {}

type OtherKind struct{}

func (OtherKind) itemKind() {}

// DepStrength distinguishes an always-needed dependency from one that's
// only needed if its target is already live (a conditional import, say).
type DepStrength uint8

const (
	Strong DepStrength = iota
	Weak
)

type Dep struct {
	Target   ids.ItemId
	Strength DepStrength
}

// ItemData is everything later passes need to know about one top-level
// statement: what it binds, reads (now or lazily), writes, re-exports,
// and touches through attribute access.
type ItemData struct {
	Kind ItemKind

	// StatementIndex is the item's position in module source; it is
	// meaningful only when HasStatementIndex is true, which it is not for
	// items synthesized without source position.
	StatementIndex    uint32
	HasStatementIndex bool

	VarDecls            map[string]bool
	ReadVars            map[string]bool
	EventualReadVars     map[string]bool
	WriteVars            map[string]bool
	EventualWriteVars    map[string]bool
	HasSideEffects       bool
	ImportedNames        map[string]bool
	ReexportedNames      map[string]bool
	DefinedSymbols       map[string]bool
	SymbolDependencies   map[string]map[string]bool
	AttributeAccesses    map[string]map[string]bool
	IsNormalizedImport   bool
}

func newItemData(kind ItemKind) *ItemData {
	return &ItemData{
		Kind:               kind,
		VarDecls:           map[string]bool{},
		ReadVars:           map[string]bool{},
		EventualReadVars:   map[string]bool{},
		WriteVars:          map[string]bool{},
		EventualWriteVars:  map[string]bool{},
		ImportedNames:      map[string]bool{},
		ReexportedNames:    map[string]bool{},
		DefinedSymbols:     map[string]bool{},
		SymbolDependencies: map[string]map[string]bool{},
		AttributeAccesses:  map[string]map[string]bool{},
	}
}

// VarState tracks, for one module-scope name, who declares it and who
// reads/writes it.
type VarState struct {
	Declarator ids.ItemId
	HasDeclarator bool
	Readers    []ids.ItemId
	Writers    []ids.ItemId
}

// ModuleDepGraph is the fine-grained item graph for one module.
type ModuleDepGraph struct {
	Order           []ids.ItemId // insertion order == source order
	Items           map[ids.ItemId]*ItemData
	Deps            map[ids.ItemId][]Dep
	SideEffectItems []ids.ItemId
	VarStates       map[string]*VarState

	alloc ids.ItemIdAllocator
}

func New() *ModuleDepGraph {
	return &ModuleDepGraph{
		Items:     map[ids.ItemId]*ItemData{},
		Deps:      map[ids.ItemId][]Dep{},
		VarStates: map[string]*VarState{},
	}
}

// AddItem registers a new item in source order and returns its id.
func (g *ModuleDepGraph) AddItem(kind ItemKind) (ids.ItemId, *ItemData) {
	id := g.alloc.Next()
	data := newItemData(kind)
	g.Items[id] = data
	g.Order = append(g.Order, id)
	return id, data
}

func (g *ModuleDepGraph) AddDep(from ids.ItemId, to ids.ItemId, strength DepStrength) {
	for _, d := range g.Deps[from] {
		if d.Target == to && d.Strength == strength {
			return
		}
	}
	g.Deps[from] = append(g.Deps[from], Dep{Target: to, Strength: strength})
}

func (g *ModuleDepGraph) MarkSideEffect(id ids.ItemId) {
	g.SideEffectItems = append(g.SideEffectItems, id)
}

func (g *ModuleDepGraph) declare(name string, item ids.ItemId) {
	state, ok := g.VarStates[name]
	if !ok {
		state = &VarState{}
		g.VarStates[name] = state
	}
	if !state.HasDeclarator {
		state.Declarator = item
		state.HasDeclarator = true
	}
}

func (g *ModuleDepGraph) recordRead(name string, item ids.ItemId) {
	state, ok := g.VarStates[name]
	if !ok {
		state = &VarState{}
		g.VarStates[name] = state
	}
	state.Readers = append(state.Readers, item)
}

func (g *ModuleDepGraph) recordWrite(name string, item ids.ItemId) {
	state, ok := g.VarStates[name]
	if !ok {
		state = &VarState{}
		g.VarStates[name] = state
	}
	state.Writers = append(state.Writers, item)
}

// RecordDeclaration registers item as (one of) the declarator(s) of name,
// used by internal/graphbuilder after it has filled in VarDecls.
func (g *ModuleDepGraph) RecordDeclaration(name string, item ids.ItemId) {
	g.declare(name, item)
}

// Clone deep-copies the item registry and edges. A second import name
// resolving to an already-registered canonical path gets a clone rather
// than sharing the primary's registry, so later per-name annotation
// (classification, liveness) on one never bleeds into the other.
func (g *ModuleDepGraph) Clone() *ModuleDepGraph {
	out := &ModuleDepGraph{
		Order:           append([]ids.ItemId(nil), g.Order...),
		Items:           make(map[ids.ItemId]*ItemData, len(g.Items)),
		Deps:            make(map[ids.ItemId][]Dep, len(g.Deps)),
		SideEffectItems: append([]ids.ItemId(nil), g.SideEffectItems...),
		VarStates:       make(map[string]*VarState, len(g.VarStates)),
		alloc:           g.alloc,
	}
	for id, data := range g.Items {
		out.Items[id] = data.clone()
	}
	for id, deps := range g.Deps {
		out.Deps[id] = append([]Dep(nil), deps...)
	}
	for name, vs := range g.VarStates {
		out.VarStates[name] = &VarState{
			Declarator:    vs.Declarator,
			HasDeclarator: vs.HasDeclarator,
			Readers:       append([]ids.ItemId(nil), vs.Readers...),
			Writers:       append([]ids.ItemId(nil), vs.Writers...),
		}
	}
	return out
}

func (d *ItemData) clone() *ItemData {
	out := *d
	out.VarDecls = cloneSet(d.VarDecls)
	out.ReadVars = cloneSet(d.ReadVars)
	out.EventualReadVars = cloneSet(d.EventualReadVars)
	out.WriteVars = cloneSet(d.WriteVars)
	out.EventualWriteVars = cloneSet(d.EventualWriteVars)
	out.ImportedNames = cloneSet(d.ImportedNames)
	out.ReexportedNames = cloneSet(d.ReexportedNames)
	out.DefinedSymbols = cloneSet(d.DefinedSymbols)
	out.SymbolDependencies = make(map[string]map[string]bool, len(d.SymbolDependencies))
	for k, v := range d.SymbolDependencies {
		out.SymbolDependencies[k] = cloneSet(v)
	}
	out.AttributeAccesses = make(map[string]map[string]bool, len(d.AttributeAccesses))
	for k, v := range d.AttributeAccesses {
		out.AttributeAccesses[k] = cloneSet(v)
	}
	return &out
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// RecordRead registers item as a reader of name.
func (g *ModuleDepGraph) RecordRead(name string, item ids.ItemId) {
	g.recordRead(name, item)
}

// RecordWrite registers item as a writer of name.
func (g *ModuleDepGraph) RecordWrite(name string, item ids.ItemId) {
	g.recordWrite(name, item)
}
