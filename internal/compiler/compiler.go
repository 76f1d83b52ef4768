// Package compiler implements the bundle compiler: given the module
// graph's compile order, classified imports, live items, and the rename
// plan, it assembles the linear BundleProgram of execution steps. The
// actual rendering of an ExecutionStep into program text belongs to the
// external code generator; this package only decides WHAT to emit and in
// WHAT order.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cribo-go/cribo/internal/classify"
	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/ids"
	"github.com/cribo-go/cribo/internal/pyast"
	"github.com/cribo-go/cribo/internal/rename"
	"github.com/cribo-go/cribo/internal/semantic"
)

// ExecutionStep is one instruction of the assembled program.
type ExecutionStep interface{ executionStep() }

// InsertStatement inserts a pre-built AST node — synthesized bookkeeping
// code (namespace objects, hoisted imports, alias bindings) that has no
// corresponding item in any source module.
type InsertStatement struct{ Stmt pyast.Stmt }

func (InsertStatement) executionStep() {}

// CopyStatement copies one item's original statement from its source
// module, applying the given textual renames. Renames is keyed by
// TextRange rather than by name, so the external renderer performs a
// precise textual substitution without re-deriving which occurrence of a
// name is which.
type CopyStatement struct {
	SourceModule ids.ModuleId
	ItemID       ids.ItemId
	Renames      map[pyast.TextRange]string
}

func (CopyStatement) executionStep() {}

// InsertRenderedCode inserts code the import transformer had to rebuild
// wholesale rather than rename in place (e.g. an f-string whose element
// list changed).
type InsertRenderedCode struct {
	SourceModule ids.ModuleId
	OriginItemID ids.ItemId
	Code         string
}

func (InsertRenderedCode) executionStep() {}

// BundleProgram is the compiler's sole output.
type BundleProgram struct {
	Steps []ExecutionStep
}

// Transformation is a per-item adjustment applied before an item's default
// emission. At most one transformation attaches to an item.
type Transformation interface{ transformation() }

// RemoveImport drops an import item entirely (it was unused, or its
// binding is fully replaced by bundle bookkeeping).
type RemoveImport struct{}

func (RemoveImport) transformation() {}

// StdlibImportRewrite replaces an aliased or from-style stdlib import with
// the canonical `import a.b` form; the symbol renames that make existing
// references resolve through the canonical path ride along separately via
// SymbolRewrite entries.
type StdlibImportRewrite struct{ CanonicalModule string }

func (StdlibImportRewrite) transformation() {}

// PartialImportRemoval replaces a from-import with one restricted to the
// symbols that are still needed.
type PartialImportRemoval struct{ RemainingSymbols []depgraph.NameAlias }

func (PartialImportRemoval) transformation() {}

// SymbolRewrite changes nothing about the item's emission; it records that
// references to the item's local names must be rewritten to new
// spellings, folded into the same TextRange-keyed rename maps the rename
// plan feeds.
type SymbolRewrite struct{ Rewrites map[string]string }

func (SymbolRewrite) transformation() {}

// CircularDepImportMove would re-emit the import inside the function
// scopes that use it, to break a function-level cycle. Recognized but not
// yet produced by any analysis; see DESIGN.md.
type CircularDepImportMove struct{ TargetScope string }

func (CircularDepImportMove) transformation() {}

// SemanticLookupError means a rename-plan entry points at a binding the
// module's semantic model does not know — an internal inconsistency, not
// a user error, so it is fatal.
type SemanticLookupError struct {
	Module  ids.ModuleId
	Binding ids.BindingId
}

func (e *SemanticLookupError) Error() string {
	return fmt.Sprintf("rename plan references unknown binding %d in %s", uint32(e.Binding), e.Module)
}
func (e *SemanticLookupError) ExitCode() int { return 1 }

// ModuleInput is everything the compiler needs about one bundled module.
type ModuleInput struct {
	ID    ids.ModuleId
	Name  string
	AST   *pyast.Module
	Graph *depgraph.ModuleDepGraph
	// Live marks which items survive tree shaking; an item absent or false
	// is dropped from the bundle.
	Live map[ids.ItemId]bool
	// Classifications holds the import classifier's output for this
	// module's Import/FromImport items only.
	Classifications map[ids.ItemId]classify.Classification
	// Transformations holds per-item adjustments applied before emission.
	Transformations map[ids.ItemId]Transformation
	IsInit          bool
	// Model is the semantic facade for this module, used to resolve rename
	// ranges. May be nil for a module nothing renames.
	Model *semantic.Model
}

// Input is everything Compile needs.
type Input struct {
	EntryModule ids.ModuleId
	Modules     map[ids.ModuleId]*ModuleInput
	// Order is a dependency-first compile order across every bundled
	// module, used to emit hoisted imports and namespace modules
	// deterministically.
	Order []ids.ModuleId
	Plan  *rename.Plan
	// IsSafeStdlib reports whether a dotted module name is a standard
	// library module with no import-time side effects; only those (and
	// __future__) may be hoisted.
	IsSafeStdlib func(moduleName string) bool
	// Warn receives non-fatal diagnostics (e.g. a transformation attached
	// to an item kind it cannot apply to). May be nil.
	Warn func(text string)
}

// Compile assembles the BundleProgram: hoisted imports first, then the
// bodies and namespace objects of every non-entry bundled module, then the
// entry module's own statements.
func Compile(in Input) (*BundleProgram, error) {
	if in.Modules[in.EntryModule] == nil {
		return nil, fmt.Errorf("compiler: entry module %s not provided", in.EntryModule)
	}
	if err := validatePlan(in); err != nil {
		return nil, err
	}
	c := &compiler{in: in, seenAliasParents: map[string]bool{}}
	c.collectSymbolRewrites()

	var steps []ExecutionStep
	steps = append(steps, c.compileHoistedImports()...)

	nsSteps, err := c.compileNamespaceModules()
	if err != nil {
		return nil, err
	}
	steps = append(steps, nsSteps...)

	entrySteps, err := c.compileEntryModule()
	if err != nil {
		return nil, err
	}
	steps = append(steps, entrySteps...)

	return &BundleProgram{Steps: steps}, nil
}

// validatePlan checks every rename-plan entry against the owning module's
// semantic model before any emission happens, so an inconsistent plan
// fails the whole compile rather than producing a half-renamed program.
func validatePlan(in Input) error {
	if in.Plan == nil {
		return nil
	}
	for _, entry := range in.Plan.Entries() {
		m := in.Modules[entry.ID.Module]
		if m == nil {
			continue // module not part of this bundle
		}
		if m.Model == nil || int(entry.ID.Binding) >= len(m.Model.Bindings()) {
			return &SemanticLookupError{Module: entry.ID.Module, Binding: entry.ID.Binding}
		}
	}
	return nil
}

type compiler struct {
	in               Input
	seenAliasParents map[string]bool

	// symbolRewrites maps, per module, a local binding name to the
	// replacement spelling a SymbolRewrite transformation demands (e.g.
	// "X" -> "a.b" after stdlib normalization of `import a.b as X`).
	symbolRewrites map[ids.ModuleId]map[string]string
}

func (c *compiler) warnf(format string, args ...interface{}) {
	if c.in.Warn != nil {
		c.in.Warn(fmt.Sprintf(format, args...))
	}
}

// collectSymbolRewrites gathers every reference respelling into a
// per-module name table consulted when computing an item's rename map:
// explicit SymbolRewrite transformations, plus the canonical-path renames
// the import classifier recorded while normalizing stdlib imports.
func (c *compiler) collectSymbolRewrites() {
	c.symbolRewrites = map[ids.ModuleId]map[string]string{}
	merge := func(modID ids.ModuleId, rewrites map[string]string) {
		if len(rewrites) == 0 {
			return
		}
		table := c.symbolRewrites[modID]
		if table == nil {
			table = map[string]string{}
			c.symbolRewrites[modID] = table
		}
		for from, to := range rewrites {
			table[from] = to
		}
	}
	for _, modID := range c.in.Order {
		m := c.in.Modules[modID]
		if m == nil {
			continue
		}
		for itemID, tr := range m.Transformations {
			sr, ok := tr.(SymbolRewrite)
			if !ok {
				continue
			}
			if !isImportKind(m.Graph.Items[itemID].Kind) {
				c.warnf("symbol rewrite attached to a non-import item in %s; emitting unchanged", m.Name)
				continue
			}
			merge(modID, sr.Rewrites)
		}
		for itemID, cls := range m.Classifications {
			if !m.Live[itemID] || !cls.StdlibNormalized {
				continue
			}
			switch m.Transformations[itemID].(type) {
			case RemoveImport:
				continue
			case StdlibImportRewrite:
				// the canonical `import a.b` is emitted for this item
			default:
				// Without a statement rewrite, only a hoisted direct import
				// reaches the bundle in canonical (alias-free) form; a
				// side-effecting one is copied in place with its alias
				// intact, so its references must keep the alias too.
				if !(cls.HoistForm == classify.HoistDirect && c.in.IsSafeStdlib(cls.HoistModule)) {
					continue
				}
			}
			merge(modID, cls.CanonicalRenames)
		}
	}
}

func isImportKind(kind depgraph.ItemKind) bool {
	switch kind.(type) {
	case depgraph.ImportKind, depgraph.FromImportKind:
		return true
	default:
		return false
	}
}

// --- hoisted imports ---

// compileHoistedImports emits the bundle's leading import block: unique
// __future__ imports first, then safe stdlib imports sorted by module /
// first-symbol name. Third-party imports are never hoisted; they stay at
// their original position.
func (c *compiler) compileHoistedImports() []ExecutionStep {
	var future, stdlib []pyast.Stmt
	seenFuture := map[string]bool{}
	seenStdlib := map[string]bool{}

	for _, modID := range c.in.Order {
		m := c.in.Modules[modID]
		if m == nil {
			continue
		}
		for _, itemID := range m.Graph.Order {
			if !m.Live[itemID] {
				continue
			}
			cls, ok := m.Classifications[itemID]
			if !ok || cls.Kind != classify.Hoist {
				continue
			}
			tr := m.Transformations[itemID]
			if _, removed := tr.(RemoveImport); removed {
				continue
			}
			stmt, key, isFuture := renderHoistStmt(cls, tr)
			if isFuture {
				if !seenFuture[key] {
					seenFuture[key] = true
					future = append(future, stmt)
				}
				continue
			}
			if c.in.IsSafeStdlib(hoistTargetModule(cls, tr)) {
				if !seenStdlib[key] {
					seenStdlib[key] = true
					stdlib = append(stdlib, stmt)
				}
			}
		}
	}

	sort.SliceStable(stdlib, func(i, j int) bool {
		return stdlibSortKey(stdlib[i]) < stdlibSortKey(stdlib[j])
	})

	var steps []ExecutionStep
	for _, s := range future {
		steps = append(steps, InsertStatement{Stmt: s})
	}
	for _, s := range stdlib {
		steps = append(steps, InsertStatement{Stmt: s})
	}
	return steps
}

// hoistTargetModule is the module name whose safety decides hoisting: the
// canonical module after a StdlibImportRewrite, the original otherwise.
func hoistTargetModule(cls classify.Classification, tr Transformation) string {
	if rw, ok := tr.(StdlibImportRewrite); ok {
		return rw.CanonicalModule
	}
	return cls.HoistModule
}

func renderHoistStmt(cls classify.Classification, tr Transformation) (stmt pyast.Stmt, dedupKey string, isFuture bool) {
	if rw, ok := tr.(StdlibImportRewrite); ok {
		stmt = &pyast.Import{Module: rw.CanonicalModule}
		return stmt, rw.CanonicalModule + "\x00", rw.CanonicalModule == "__future__"
	}

	names := cls.HoistNames
	if pr, ok := tr.(PartialImportRemoval); ok && cls.HoistForm == classify.HoistFrom {
		names = pr.RemainingSymbols
	}

	switch cls.HoistForm {
	case classify.HoistDirect:
		stmt = &pyast.Import{Module: cls.HoistModule, Alias: cls.HoistAlias}
		return stmt, cls.HoistModule + "\x00" + cls.HoistAlias, cls.HoistModule == "__future__"
	default: // HoistFrom
		imported := make([]pyast.ImportedName, 0, len(names))
		var keyParts []string
		for _, n := range names {
			imported = append(imported, pyast.ImportedName{Name: n.Name, Alias: n.Alias})
			keyParts = append(keyParts, n.Name+"\x00"+n.Alias)
		}
		stmt = &pyast.FromImport{Module: cls.HoistModule, Names: imported, Level: cls.HoistLevel}
		key := cls.HoistModule + "|" + strings.Join(keyParts, ",")
		return stmt, key, cls.HoistModule == "__future__"
	}
}

// stdlibSortKey orders direct imports by module name and from-imports by
// their first symbol name.
func stdlibSortKey(stmt pyast.Stmt) string {
	switch s := stmt.(type) {
	case *pyast.Import:
		return s.Module
	case *pyast.FromImport:
		if len(s.Names) > 0 {
			return s.Names[0].Name
		}
		return s.Module
	default:
		return ""
	}
}

// --- namespace modules ---

func (c *compiler) compileNamespaceModules() ([]ExecutionStep, error) {
	nsModules := c.namespaceModuleSet()
	if len(nsModules) == 0 {
		return nil, nil
	}

	var steps []ExecutionStep
	steps = append(steps, InsertStatement{Stmt: &pyast.Import{Module: "types"}})

	// Copy bodies first, so every symbol exists before any namespace
	// object captures it.
	for _, modID := range nsModules {
		m := c.in.Modules[modID]
		if m == nil {
			return nil, fmt.Errorf("compiler: namespace module %s not provided", modID)
		}
		steps = append(steps, c.copyModuleBody(m)...)
	}

	// Then create the namespace objects and their public attributes.
	for _, modID := range nsModules {
		m := c.in.Modules[modID]
		nsVar := namespaceVar(m.Name)
		steps = append(steps, InsertStatement{Stmt: simpleNamespaceAssign(nsVar)})
		for _, name := range publicSymbolNames(m) {
			resolved := c.resolvedName(modID, name)
			steps = append(steps, InsertStatement{Stmt: attrAssign(nsVar, name, resolved)})
		}
	}

	// Aliases and inline-symbol bindings for every importer that reaches a
	// namespace module, in compile order so a dependency's namespace
	// exists before a dependent's alias assignment references it.
	for _, modID := range c.in.Order {
		m := c.in.Modules[modID]
		if m == nil {
			continue
		}
		aliasSteps, err := c.compileAliasesAndInlines(m)
		if err != nil {
			return nil, err
		}
		steps = append(steps, aliasSteps...)
	}

	return steps, nil
}

// namespaceModuleSet returns every first-party module whose body must be
// materialized: the target of an EmulateAsNamespace classification, or of
// an Inline classification (either the inlined module itself, since its
// body must exist somewhere for "target = namespace_var.source_name" to
// resolve, or a submodule reached via "from pkg import sub"), in compile
// order.
func (c *compiler) namespaceModuleSet() []ids.ModuleId {
	need := map[ids.ModuleId]bool{}
	for _, modID := range c.in.Order {
		m := c.in.Modules[modID]
		if m == nil {
			continue
		}
		for _, itemID := range m.Graph.Order {
			if !m.Live[itemID] {
				continue
			}
			if _, removed := m.Transformations[itemID].(RemoveImport); removed {
				continue
			}
			cls, ok := m.Classifications[itemID]
			if !ok {
				continue
			}
			switch cls.Kind {
			case classify.EmulateAsNamespace:
				need[cls.ModuleID] = true
			case classify.Inline:
				need[cls.ModuleID] = true
				for _, sym := range cls.Symbols {
					if sym.IsSubmoduleAccess {
						need[sym.ModuleID] = true
					}
				}
			}
		}
	}
	var out []ids.ModuleId
	for _, id := range c.in.Order {
		if need[id] {
			out = append(out, id)
		}
	}
	return out
}

// copyModuleBody emits every live, non-import item of m. An
// Import/FromImport item is skipped — it is either hoisted or resolved
// entirely through namespace/alias bookkeeping — UNLESS it is a
// third-party import or a side-effecting stdlib import, in which case it
// must still run at its original position even inside a bundled module.
func (c *compiler) copyModuleBody(m *ModuleInput) []ExecutionStep {
	var steps []ExecutionStep
	for _, itemID := range m.Graph.Order {
		if !m.Live[itemID] {
			continue
		}
		step, emit := c.emitItem(m, itemID)
		if emit {
			steps = append(steps, step)
		}
	}
	return steps
}

// emitItem decides one item's default emission, honoring its
// transformation, shared by the module-body and entry-module passes.
func (c *compiler) emitItem(m *ModuleInput, itemID ids.ItemId) (ExecutionStep, bool) {
	data := m.Graph.Items[itemID]
	tr := m.Transformations[itemID]

	if !isImportKind(data.Kind) {
		switch tr.(type) {
		case nil:
		case SymbolRewrite:
			// handled via collectSymbolRewrites; emission unchanged
		default:
			// import-only transformations on a non-import item: emit the
			// item unchanged and surface the inconsistency as a warning.
			c.warnf("transformation %T attached to a non-import item in %s; emitting unchanged", tr, m.Name)
		}
		return c.copyStatementStep(m, itemID), true
	}

	switch tr := tr.(type) {
	case RemoveImport:
		return nil, false
	case StdlibImportRewrite:
		if c.in.IsSafeStdlib(tr.CanonicalModule) {
			return nil, false // hoisted by compileHoistedImports
		}
		return InsertStatement{Stmt: &pyast.Import{Module: tr.CanonicalModule}}, true
	case PartialImportRemoval:
		cls, ok := m.Classifications[itemID]
		if ok && cls.Kind == classify.Hoist && c.in.IsSafeStdlib(cls.HoistModule) {
			return nil, false // hoisted, already restricted there
		}
		fi, isFrom := data.Kind.(depgraph.FromImportKind)
		if !isFrom {
			c.warnf("partial import removal attached to a plain import in %s; emitting unchanged", m.Name)
			return c.copyStatementStep(m, itemID), true
		}
		names := make([]pyast.ImportedName, 0, len(tr.RemainingSymbols))
		for _, n := range tr.RemainingSymbols {
			names = append(names, pyast.ImportedName{Name: n.Name, Alias: n.Alias})
		}
		return InsertStatement{Stmt: &pyast.FromImport{
			Module: fi.Module, Names: names, Level: int(fi.Level), IsStar: false,
		}}, true
	case CircularDepImportMove:
		c.warnf("deferred-import move is not applied yet; emitting the import of %s in place", m.Name)
	}

	// Untransformed import: only third-party imports and side-effecting
	// stdlib imports run in place; everything else was hoisted or turned
	// into bookkeeping.
	if cls, ok := m.Classifications[itemID]; ok && cls.Kind == classify.Hoist &&
		cls.HoistModule != "__future__" && !c.in.IsSafeStdlib(cls.HoistModule) {
		return c.copyStatementStep(m, itemID), true
	}
	return nil, false
}

func (c *compiler) compileAliasesAndInlines(m *ModuleInput) ([]ExecutionStep, error) {
	var steps []ExecutionStep
	for _, itemID := range m.Graph.Order {
		if !m.Live[itemID] {
			continue
		}
		if _, removed := m.Transformations[itemID].(RemoveImport); removed {
			continue
		}
		cls, ok := m.Classifications[itemID]
		if !ok {
			continue
		}
		switch cls.Kind {
		case classify.EmulateAsNamespace:
			target := c.in.Modules[cls.ModuleID]
			if target == nil {
				return nil, fmt.Errorf("compiler: namespace target %s not provided", cls.ModuleID)
			}
			steps = append(steps, c.aliasChainSteps(cls.Alias, namespaceVar(target.Name))...)
		case classify.Inline:
			for _, sym := range cls.Symbols {
				target := c.in.Modules[sym.ModuleID]
				if target == nil {
					return nil, fmt.Errorf("compiler: inline target %s not provided", sym.ModuleID)
				}
				nsVar := namespaceVar(target.Name)
				if sym.IsSubmoduleAccess {
					steps = append(steps, InsertStatement{Stmt: nameAssignName(sym.TargetName, nsVar)})
				} else {
					steps = append(steps, InsertStatement{Stmt: nameAssignAttr(sym.TargetName, nsVar, sym.SourceName)})
				}
			}
		}
	}
	return steps, nil
}

// aliasChainSteps binds alias (a dotted name for `import pkg.sub`-style
// access, or a plain name) to leafVar, materializing any intermediate
// namespace objects the dotted chain needs exactly once.
func (c *compiler) aliasChainSteps(alias, leafVar string) []ExecutionStep {
	parts := strings.Split(alias, ".")
	if len(parts) == 1 {
		return []ExecutionStep{InsertStatement{Stmt: nameAssignName(alias, leafVar)}}
	}
	var steps []ExecutionStep
	prefix := ""
	for i, p := range parts {
		if prefix == "" {
			prefix = p
		} else {
			prefix = prefix + "." + p
		}
		if i == len(parts)-1 {
			steps = append(steps, InsertStatement{Stmt: attrAssignDotted(prefix, leafVar)})
			continue
		}
		if !c.seenAliasParents[prefix] {
			c.seenAliasParents[prefix] = true
			steps = append(steps, InsertStatement{Stmt: simpleNamespaceAssign(prefix)})
		}
	}
	return steps
}

// --- entry module ---

func (c *compiler) compileEntryModule() ([]ExecutionStep, error) {
	m := c.in.Modules[c.in.EntryModule]
	var steps []ExecutionStep
	for _, itemID := range m.Graph.Order {
		if !m.Live[itemID] {
			continue
		}
		step, emit := c.emitItem(m, itemID)
		if emit {
			steps = append(steps, step)
		}
	}
	return steps, nil
}

// --- shared helpers ---

func (c *compiler) copyStatementStep(m *ModuleInput, itemID ids.ItemId) ExecutionStep {
	return CopyStatement{
		SourceModule: m.ID,
		ItemID:       itemID,
		Renames:      c.renamesForItem(m, itemID),
	}
}

// renamesForItem computes the TextRange->name map for one item by walking
// every global binding of m's semantic model and keeping only the
// defining/reference ranges that fall within this item's own statement
// range. Symbol-rewrite spellings (canonical stdlib paths) are folded into
// the same map, reference ranges only — the defining import statement
// itself is re-emitted in canonical form, not renamed.
func (c *compiler) renamesForItem(m *ModuleInput, itemID ids.ItemId) map[pyast.TextRange]string {
	renames := map[pyast.TextRange]string{}
	if m.Model == nil {
		return renames
	}
	data := m.Graph.Items[itemID]
	if !data.HasStatementIndex || int(data.StatementIndex) >= len(m.AST.Body) {
		return renames
	}
	itemRange := m.AST.Body[data.StatementIndex].Range()
	rewriteTable := c.symbolRewrites[m.ID]

	for i, b := range m.Model.Bindings() {
		bid := ids.BindingId(i)
		newName, planned := "", false
		if c.in.Plan != nil {
			newName, planned = c.in.Plan.NewName(ids.GlobalBindingId{Module: m.ID, Binding: bid})
		}
		if planned {
			if within(b.Range, itemRange) {
				renames[b.Range] = newName
			}
			for _, refID := range b.References {
				ref := m.Model.Reference(refID)
				if within(ref.Range, itemRange) {
					renames[ref.Range] = newName
				}
			}
			continue
		}
		if spelling, ok := rewriteTable[b.Name]; ok {
			for _, refID := range b.References {
				ref := m.Model.Reference(refID)
				if within(ref.Range, itemRange) {
					renames[ref.Range] = spelling
				}
			}
		}
	}
	return renames
}

func within(inner, outer pyast.TextRange) bool {
	return inner.Start >= outer.Start && inner.End <= outer.End
}

// StatementFor returns the original source statement an item corresponds
// to, if any — exposed so internal/driver can run the import transformer
// over a CopyStatement's source node before handing the program to the
// external renderer.
func StatementFor(m *ModuleInput, itemID ids.ItemId) (pyast.Stmt, bool) {
	data := m.Graph.Items[itemID]
	if !data.HasStatementIndex || int(data.StatementIndex) >= len(m.AST.Body) {
		return nil, false
	}
	return m.AST.Body[data.StatementIndex], true
}

func (c *compiler) resolvedName(modID ids.ModuleId, name string) string {
	m := c.in.Modules[modID]
	if m == nil || m.Model == nil || c.in.Plan == nil {
		return name
	}
	bid, ok := m.Model.GlobalScopeGet(name)
	if !ok {
		return name
	}
	if newName, ok := c.in.Plan.NewName(ids.GlobalBindingId{Module: modID, Binding: bid}); ok {
		return newName
	}
	return name
}

// publicSymbolNames returns every top-level, non-underscore-prefixed
// symbol m defines, sorted, since DefinedSymbols is a set with no
// meaningful source order of its own once merged across items.
func publicSymbolNames(m *ModuleInput) []string {
	seen := map[string]bool{}
	var out []string
	for _, itemID := range m.Graph.Order {
		if !m.Live[itemID] {
			continue
		}
		data := m.Graph.Items[itemID]
		for name := range data.DefinedSymbols {
			if name == "" || name[0] == '_' || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func namespaceVar(moduleName string) string {
	return rename.Sanitize(moduleName) + "_namespace"
}

// NamespaceVar exposes the namespace-variable naming scheme to
// internal/driver, which needs it to point a statically resolved
// importlib.import_module() target at the same variable this package
// assigns the module's namespace object.
func NamespaceVar(moduleName string) string { return namespaceVar(moduleName) }

// --- synthetic AST node builders ---

func simpleNamespaceAssign(target string) pyast.Stmt {
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{Id: target}},
		Value: &pyast.Call{
			Func: &pyast.Attribute{Value: &pyast.Name{Id: "types"}, Attr: "SimpleNamespace"},
		},
	}
}

func attrAssign(nsVar, attr, value string) pyast.Stmt {
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Attribute{Value: &pyast.Name{Id: nsVar}, Attr: attr}},
		Value:   &pyast.Name{Id: value},
	}
}

func attrAssignDotted(dottedTarget, value string) pyast.Stmt {
	idx := strings.LastIndexByte(dottedTarget, '.')
	base, attr := dottedTarget[:idx], dottedTarget[idx+1:]
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Attribute{Value: &pyast.Name{Id: base}, Attr: attr}},
		Value:   &pyast.Name{Id: value},
	}
}

func nameAssignName(target, value string) pyast.Stmt {
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{Id: target}},
		Value:   &pyast.Name{Id: value},
	}
}

func nameAssignAttr(target, nsVar, attr string) pyast.Stmt {
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{Id: target}},
		Value:   &pyast.Attribute{Value: &pyast.Name{Id: nsVar}, Attr: attr},
	}
}
