// Package driver is the bundler's composition root: it wires resolution,
// discovery, graph building, semantic modeling, rename planning, tree
// shaking, classification, and compilation together end to end, from
// resolving the entry module to producing a BundleProgram. The only stage
// that runs off the main goroutine — parsing newly discovered first-party
// files and building their per-module dependency graphs — is dispatched
// through golang.org/x/sync/errgroup with index-captured goroutines
// writing into a pre-sized result slice, joined with Wait() before
// anything downstream runs. Everything after that join point runs
// single-threaded.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cribo-go/cribo/internal/cache"
	"github.com/cribo-go/cribo/internal/classify"
	"github.com/cribo-go/cribo/internal/compiler"
	"github.com/cribo-go/cribo/internal/config"
	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/discovery"
	"github.com/cribo-go/cribo/internal/fs"
	"github.com/cribo-go/cribo/internal/graphbuilder"
	"github.com/cribo-go/cribo/internal/ids"
	"github.com/cribo-go/cribo/internal/logger"
	"github.com/cribo-go/cribo/internal/modgraph"
	"github.com/cribo-go/cribo/internal/pyast"
	"github.com/cribo-go/cribo/internal/rename"
	"github.com/cribo-go/cribo/internal/resolver"
	"github.com/cribo-go/cribo/internal/semantic"
	"github.com/cribo-go/cribo/internal/transformer"
	"github.com/cribo-go/cribo/internal/treeshake"
)

// Parser is the external Python AST parser, supplied by the caller.
// cmd/cribo documents where a real one — e.g. one built on
// tree-sitter-python — plugs in.
type Parser interface {
	ParseModule(path, source string) (*pyast.Module, error)
}

// Renderer is the external code generator, needed only for statements the
// import transformer had to rebuild wholesale (an f-string touched by a
// rewrite). A nil Renderer degrades gracefully: the driver logs a warning
// and leaves the statement as an ordinary CopyStatement.
type Renderer interface {
	Render(stmt pyast.Stmt) (string, error)
}

// ParseError wraps a failure parsing one source file; a failure reading
// one is reported as a GraphError.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parsing %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }
func (e *ParseError) ExitCode() int { return 1 }

// GraphError reports a problem building the project-wide module graph
// that isn't a resolution or parse failure — an invariant violation, so
// it is fatal.
type GraphError struct{ Reason string }

func (e *GraphError) Error() string { return "module graph: " + e.Reason }
func (e *GraphError) ExitCode() int { return 1 }

// CycleError is fatal: a circular-dependency group the classifier could not
// mark Resolvable (every type but FunctionLevel) can't be bundled without
// the user restructuring their code.
type CycleError struct {
	Analysis modgraph.CircularDependencyAnalysis
}

func (e *CycleError) Error() string {
	var reasons []string
	for _, g := range e.Analysis.UnresolvableCycles {
		reasons = append(reasons, g.Describe())
	}
	return "unresolvable circular dependencies:\n" + strings.Join(reasons, "\n")
}
func (e *CycleError) ExitCode() int { return 1 }

// UnusedImportDiagnostic reports an import dropped from the bundle because
// nothing in its module used it.
type UnusedImportDiagnostic struct {
	Module   string
	Name     string
	Location logger.MsgLocation
}

// Result is everything one Run call produces.
type Result struct {
	Program       *compiler.BundleProgram
	Circular      modgraph.CircularDependencyAnalysis
	UnusedImports []UnusedImportDiagnostic
	Diagnostics   []logger.Msg
}

// Options configures one Run.
type Options struct {
	Bundle   config.BundleOptions
	FS       fs.FS
	Parser   Parser
	Renderer Renderer // optional

	// PythonPathOverride, when Bundle.PythonPathDirs is nil, temporarily
	// sets the PYTHONPATH-equivalent environment variable for this run via
	// a scoped EnvGuard, restoring the prior value on every exit path.
	// Ignored when Bundle.PythonPathDirs is already set.
	PythonPathOverride string
}

type moduleState struct {
	id             ids.ModuleId
	name           string
	canonical      string
	source         string
	isInit         bool
	module         *pyast.Module
	graph          *depgraph.ModuleDepGraph
	summary        graphbuilder.ModuleSummary
	semanticModel  *semantic.Model
}

type parsedFile struct {
	module  *pyast.Module
	source  string
	graph   *depgraph.ModuleDepGraph
	summary graphbuilder.ModuleSummary
}

type pendingImport struct {
	importer ids.ModuleId
	imp      discovery.DiscoveredImport
}

// resolvedImport is one (importer, dotted name) edge the BFS must turn
// into a module-graph dependency, plus enough resolution detail to
// register the target module the first time it's seen.
type resolvedImport struct {
	importer         ids.ModuleId
	name             string
	firstParty       bool
	canonical        string
	isNamespacePkg   bool
	typeCheckingOnly bool
}

type driver struct {
	opts            Options
	res             *resolver.Resolver
	log             *logger.Log
	mg              *modgraph.Graph
	states          map[ids.ModuleId]*moduleState
	byPath          map[string]ids.ModuleId
	pendingParsed   map[string]*parsedFile
	classifications map[ids.ModuleId]map[ids.ItemId]classify.Classification
}

// Run resolves, discovers, builds, shakes, classifies, and compiles one
// bundle: discovery, then graph construction, then classification, then
// bundle assembly.
func Run(opts Options) (*Result, error) {
	if opts.FS == nil {
		opts.FS = fs.Real{}
	}
	log := logger.NewLog()

	pythonPathDirs := opts.Bundle.PythonPathDirs
	if pythonPathDirs == nil {
		if opts.PythonPathOverride != "" {
			guard := resolver.NewEnvGuard("PYTHONPATH", opts.PythonPathOverride)
			defer guard.Restore()
		}
		pythonPathDirs = resolver.PythonPathDirs(os.Getenv("PYTHONPATH"))
	}

	entryAbs, err := opts.FS.Abs(opts.Bundle.EntryPath)
	if err != nil {
		return nil, &GraphError{Reason: fmt.Sprintf("entry path %q: %v", opts.Bundle.EntryPath, err)}
	}
	entryDir := opts.FS.Dir(entryAbs)
	res := resolver.New(opts.FS, opts.Bundle, entryDir, pythonPathDirs)

	d := &driver{
		opts:            opts,
		res:             res,
		log:             log,
		mg:              modgraph.New(),
		states:          map[ids.ModuleId]*moduleState{},
		byPath:          map[string]ids.ModuleId{},
		classifications: map[ids.ModuleId]map[ids.ItemId]classify.Classification{},
	}

	entrySrc, err := opts.FS.ReadFile(entryAbs)
	if err != nil {
		return nil, &GraphError{Reason: fmt.Sprintf("reading entry %q: %v", entryAbs, err)}
	}
	entryAST, err := opts.Parser.ParseModule(entryAbs, entrySrc)
	if err != nil {
		return nil, &ParseError{Path: entryAbs, Err: err}
	}

	entryIsInit := isInitPath(entryAbs)
	entryGraph, entrySummary := graphbuilder.Build(entryAST, entryIsInit)
	entryID := d.mg.AddModule("__main__", modgraph.ModuleInfo{
		Path: entryAbs, Kind: cache.FirstParty, IsEntry: true,
		HasSideEffects: len(entryGraph.SideEffectItems) > 0,
		ContentHash:    modgraph.ContentHash(entrySrc),
		Graph:          entryGraph, Summary: entrySummary,
	})
	d.states[entryID] = &moduleState{
		id: entryID, name: "__main__", canonical: entryAbs, source: entrySrc, isInit: entryIsInit,
		module: entryAST, graph: entryGraph, summary: entrySummary, semanticModel: semantic.Build(entryAST),
	}
	d.byPath[entryAbs] = entryID

	if err := d.discoverAndBuildGraph(entryID); err != nil {
		return nil, err
	}

	order := d.mg.CycleAwareOrder()
	circular := d.mg.AnalyzeCircularDependencies()
	if len(circular.UnresolvableCycles) > 0 {
		return nil, &CycleError{Analysis: circular}
	}
	for _, group := range circular.ResolvableCycles {
		log.AddWarning(nil, fmt.Sprintf(
			"circular dependency between %s (%s) — kept by deferring import-time execution order",
			strings.Join(group.Modules, ", "), group.Type))
	}

	d.classifyImports(order)

	live := d.computeLiveness(order, entryID)

	transformations := d.computeTransformations(order, live)

	plan := d.computeRenamePlan(order)

	modules := map[ids.ModuleId]*compiler.ModuleInput{}
	for _, id := range order {
		st := d.states[id]
		modules[id] = &compiler.ModuleInput{
			ID: id, Name: st.name, AST: st.module, Graph: st.graph,
			Live: live[id], Classifications: d.classifications[id],
			Transformations: transformations[id], IsInit: st.isInit, Model: st.semanticModel,
		}
	}

	program, err := compiler.Compile(compiler.Input{
		EntryModule: entryID,
		Modules:     modules,
		Order:       order,
		Plan:        plan,
		IsSafeStdlib: func(name string) bool {
			return d.res.Classify(name) == resolver.StandardLibrary && !d.res.HasSideEffects(name)
		},
		Warn: func(text string) { log.AddWarning(nil, text) },
	})
	if err != nil {
		return nil, err
	}

	d.applyTransformer(program, modules)

	var unused []UnusedImportDiagnostic
	if opts.Bundle.EmitUnusedImportReport {
		unused = d.collectUnusedImports(order, live, transformations)
	}

	return &Result{
		Program:       program,
		Circular:      circular,
		UnusedImports: unused,
		Diagnostics:   log.Done(),
	}, nil
}

// --- discovery / parsing / module graph ---

func (d *driver) discoverAndBuildGraph(entryID ids.ModuleId) error {
	frontier := d.discoveredFor(entryID)

	for len(frontier) > 0 {
		toParse := map[string]resolvedImport{}
		var resolved []resolvedImport

		for _, pi := range frontier {
			ris, err := d.resolveImportSet(pi)
			if err != nil {
				return err
			}
			for _, ri := range ris {
				if !ri.firstParty {
					continue
				}
				resolved = append(resolved, ri)
				if _, already := d.byPath[ri.canonical]; already {
					continue
				}
				if _, slated := toParse[ri.canonical]; !slated {
					toParse[ri.canonical] = ri
				}
			}
		}

		if len(toParse) > 0 {
			parsed, err := d.parseAndBuildParallel(toParse)
			if err != nil {
				return err
			}
			d.pendingParsed = parsed
		} else {
			d.pendingParsed = nil
		}

		var nextFrontier []pendingImport
		for _, ri := range resolved {
			var pf *parsedFile
			if existingID, ok := d.byPath[ri.canonical]; ok {
				es := d.states[existingID]
				pf = &parsedFile{module: es.module, source: es.source, graph: es.graph, summary: es.summary}
			} else {
				pf = d.pendingParsed[ri.canonical]
			}
			if pf == nil {
				continue // a read/parse failure for this path already aborted the run above
			}

			id := d.mg.AddModule(ri.name, modgraph.ModuleInfo{
				Path: ri.canonical, Kind: cache.FirstParty,
				HasSideEffects: len(pf.graph.SideEffectItems) > 0,
				ContentHash:    modgraph.ContentHash(pf.source),
				Graph:          pf.graph, Summary: pf.summary,
			})
			if st, known := d.states[id]; known {
				// Re-registering a known import name must agree on its file:
				// the same dotted name resolving to two different canonical
				// paths means the resolver and the graph disagree.
				if st.canonical != ri.canonical {
					return &GraphError{Reason: fmt.Sprintf(
						"import name %q maps to both %q and %q", ri.name, st.canonical, ri.canonical)}
				}
			} else {
				// A second name for an already-parsed path gets the cloned
				// item registry the graph minted for it; the first name for
				// a path keeps the freshly built one.
				info, _ := d.mg.Module(id)
				d.states[id] = &moduleState{
					id: id, name: ri.name, canonical: ri.canonical, source: pf.source, isInit: isInitPath(ri.canonical),
					module: pf.module, graph: info.Graph, summary: pf.summary, semanticModel: semantic.Build(pf.module),
				}
				if _, known := d.byPath[ri.canonical]; !known {
					d.byPath[ri.canonical] = id
					nextFrontier = append(nextFrontier, d.discoveredFor(id)...)
				}
			}
			d.mg.AddDependency(ri.importer, id, ri.typeCheckingOnly)
		}

		frontier = nextFrontier
	}
	return nil
}

func (d *driver) discoveredFor(id ids.ModuleId) []pendingImport {
	st := d.states[id]
	imports := discovery.Walk(st.module)
	out := make([]pendingImport, len(imports))
	for i, imp := range imports {
		out[i] = pendingImport{importer: id, imp: imp}
	}
	return out
}

// resolveImportSet resolves one discovered import statement to every
// module-graph edge it establishes: the base module it names, plus (for a
// FromImport) any imported name that is itself a submodule file — the same
// per-name submodule probe internal/classify performs when it later calls
// this driver's ModuleLookup, done here so the submodule is discovered and
// parsed before classification needs it.
func (d *driver) resolveImportSet(pi pendingImport) ([]resolvedImport, error) {
	imp := pi.imp
	importer := d.states[pi.importer]
	tc := imp.InTypeCheckingBlock

	var base resolvedImport
	var baseAbsoluteName string

	if imp.Level > 0 {
		result, err := d.res.ResolveRelative(imp.Level, imp.ModuleName, importer.canonical)
		if err != nil {
			return nil, err
		}
		baseAbsoluteName = absoluteModuleName(importer.name, importer.isInit, imp.Level, imp.ModuleName)
		base = resolvedImport{
			importer: pi.importer, name: baseAbsoluteName, firstParty: true,
			canonical: result.CanonicalPath, isNamespacePkg: result.IsNamespacePkg, typeCheckingOnly: tc,
		}
	} else {
		baseAbsoluteName = imp.ModuleName
		kind := d.res.Classify(baseAbsoluteName)
		if kind != resolver.FirstParty {
			return []resolvedImport{{importer: pi.importer, name: baseAbsoluteName, firstParty: false, typeCheckingOnly: tc}}, nil
		}
		result, ok := d.res.ResolveAbsolute(baseAbsoluteName)
		if !ok {
			d.log.AddWarning(nil, fmt.Sprintf(
				"import %q classified first-party but could not be resolved to a file; treating as external", baseAbsoluteName))
			return []resolvedImport{{importer: pi.importer, name: baseAbsoluteName, firstParty: false, typeCheckingOnly: tc}}, nil
		}
		base = resolvedImport{
			importer: pi.importer, name: baseAbsoluteName, firstParty: true,
			canonical: result.CanonicalPath, isNamespacePkg: result.IsNamespacePkg, typeCheckingOnly: tc,
		}
	}

	out := []resolvedImport{base}
	for _, n := range imp.Names {
		subName := n.Name
		if baseAbsoluteName != "" {
			subName = baseAbsoluteName + "." + n.Name
		}
		if d.res.Classify(subName) != resolver.FirstParty {
			continue
		}
		if result, ok := d.res.ResolveAbsolute(subName); ok {
			out = append(out, resolvedImport{
				importer: pi.importer, name: subName, firstParty: true,
				canonical: result.CanonicalPath, isNamespacePkg: result.IsNamespacePkg, typeCheckingOnly: tc,
			})
		}
	}
	return out, nil
}

// parseAndBuildParallel is the one stage that runs off the main
// goroutine: reading and parsing every newly discovered file and building
// its per-module graph, joined back into a single-threaded pipeline before
// any module-graph registration happens.
func (d *driver) parseAndBuildParallel(toParse map[string]resolvedImport) (map[string]*parsedFile, error) {
	paths := make([]string, 0, len(toParse))
	for p := range toParse {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	results := make([]*parsedFile, len(paths))
	errs := make([]error, len(paths))

	g, _ := errgroup.WithContext(context.Background())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			src, err := d.opts.FS.ReadFile(path)
			if err != nil {
				errs[i] = &GraphError{Reason: fmt.Sprintf("reading %q: %v", path, err)}
				return nil
			}
			mod, err := d.opts.Parser.ParseModule(path, src)
			if err != nil {
				errs[i] = &ParseError{Path: path, Err: err}
				return nil
			}
			graph, summary := graphbuilder.Build(mod, isInitPath(path))
			results[i] = &parsedFile{module: mod, source: src, graph: graph, summary: summary}
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]*parsedFile, len(paths))
	for i, path := range paths {
		out[path] = results[i]
	}
	return out, nil
}

func isInitPath(p string) bool {
	return strings.HasSuffix(filepath.ToSlash(p), "/__init__.py")
}

// absoluteModuleName computes the absolute dotted name a relative import
// resolves to: the first dot means "this package"; each further dot
// climbs one more level above it.
func absoluteModuleName(importerName string, importerIsInit bool, level int, module string) string {
	pkg := importerName
	if !importerIsInit {
		pkg = parentOf(pkg)
	}
	for i := 1; i < level; i++ {
		pkg = parentOf(pkg)
	}
	switch {
	case module == "":
		return pkg
	case pkg == "":
		return module
	default:
		return pkg + "." + module
	}
}

func parentOf(dotted string) string {
	if idx := strings.LastIndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return ""
}

// --- import classification ---

func (d *driver) classifyImports(order []ids.ModuleId) {
	lookup := func(dottedName string) (ids.ModuleId, bool, cache.Classification) {
		if _, id, ok := d.mg.ModuleByName(dottedName); ok {
			return id, true, cache.FirstParty
		}
		return ids.InvalidModuleId, false, d.res.Classify(dottedName)
	}

	for _, id := range order {
		st := d.states[id]
		m := map[ids.ItemId]classify.Classification{}
		for _, itemID := range st.graph.Order {
			data := st.graph.Items[itemID]
			if !isImportItemKind(data.Kind) {
				continue
			}
			m[itemID] = classify.ClassifyImport(absolutizeKind(st, data.Kind), lookup, classify.Options{NormalizeStdlib: true})
		}
		d.classifications[id] = m
	}
}

func isImportItemKind(kind depgraph.ItemKind) bool {
	switch kind.(type) {
	case depgraph.ImportKind, depgraph.FromImportKind:
		return true
	default:
		return false
	}
}

// absolutizeKind rewrites a FromImportKind's relative Module/Level into
// the absolute dotted name internal/classify's ModuleLookup expects;
// relative imports are always resolved to absolute names before
// classification. Plain ImportKind never carries a relative form.
func absolutizeKind(st *moduleState, kind depgraph.ItemKind) depgraph.ItemKind {
	fi, ok := kind.(depgraph.FromImportKind)
	if !ok || fi.Level == 0 {
		return kind
	}
	fi.Module = absoluteModuleName(st.name, st.isInit, int(fi.Level), fi.Module)
	fi.Level = 0
	return fi
}

// --- tree shaking ---

func (d *driver) computeLiveness(order []ids.ModuleId, entryID ids.ModuleId) map[ids.ModuleId]map[ids.ItemId]bool {
	namespaceTouched := map[ids.ModuleId]bool{}
	inlineNeeded := map[ids.ModuleId]map[string]bool{}

	for _, id := range order {
		for _, cls := range d.classifications[id] {
			switch cls.Kind {
			case classify.EmulateAsNamespace:
				namespaceTouched[cls.ModuleID] = true
			case classify.Inline:
				for _, sym := range cls.Symbols {
					if sym.IsSubmoduleAccess {
						namespaceTouched[sym.ModuleID] = true
						continue
					}
					if inlineNeeded[sym.ModuleID] == nil {
						inlineNeeded[sym.ModuleID] = map[string]bool{}
					}
					inlineNeeded[sym.ModuleID][sym.SourceName] = true
				}
			}
		}
	}

	live := map[ids.ModuleId]map[ids.ItemId]bool{}
	for _, id := range order {
		st := d.states[id]
		if id == entryID {
			// The entry module's own top-level code is the program's root:
			// every statement written there runs unconditionally, so it is
			// never tree-shaken (see DESIGN.md's internal/driver section).
			all := map[ids.ItemId]bool{}
			for _, itemID := range st.graph.Order {
				all[itemID] = true
			}
			live[id] = all
			continue
		}
		var used map[string]bool
		if namespaceTouched[id] {
			used = treeshake.PublicSymbols(st.graph)
		} else {
			used = inlineNeeded[id]
		}
		if used == nil {
			used = map[string]bool{}
		}
		live[id] = treeshake.Shake(st.graph, used, st.isInit)
	}
	return live
}

// --- per-item transformations ---

// computeTransformations decides, per live import item, whether its
// emission must be adjusted: dropped outright (nothing reads any name it
// binds), restricted to the symbols still in use, or rewritten to the
// canonical stdlib form the classifier normalized it to. Tree shaking
// already removed unused imports from non-entry modules, so the removal
// cases mostly concern the entry module, whose top-level statements are
// otherwise never dropped.
func (d *driver) computeTransformations(order []ids.ModuleId, live map[ids.ModuleId]map[ids.ItemId]bool) map[ids.ModuleId]map[ids.ItemId]compiler.Transformation {
	out := map[ids.ModuleId]map[ids.ItemId]compiler.Transformation{}
	for _, id := range order {
		st := d.states[id]
		liveSet := live[id]
		exports := moduleAllExports(st.graph)
		m := map[ids.ItemId]compiler.Transformation{}

		for _, itemID := range st.graph.Order {
			if !liveSet[itemID] {
				continue
			}
			data := st.graph.Items[itemID]
			if !isImportItemKind(data.Kind) {
				continue
			}
			cls := d.classifications[id][itemID]

			if tr, ok := d.removalFor(st, itemID, data, liveSet, exports); ok {
				m[itemID] = tr
				continue
			}
			if cls.StdlibNormalized {
				if fi, ok := data.Kind.(depgraph.FromImportKind); ok && !fi.IsStar {
					m[itemID] = compiler.StdlibImportRewrite{CanonicalModule: cls.HoistModule}
				}
				// A normalized plain `import a.b as X` already hoists in
				// canonical form (the classifier cleared its alias); only
				// its references need the canonical spelling, which the
				// compiler picks up from the classification itself.
			}
		}
		if len(m) > 0 {
			out[id] = m
		}
	}
	return out
}

// removalFor returns RemoveImport when no name the item binds is read by
// any live item, or PartialImportRemoval when only some of a from-import's
// names are. Side-effecting, re-exported, star, and __init__ imports are
// never touched.
func (d *driver) removalFor(st *moduleState, itemID ids.ItemId, data *depgraph.ItemData, liveSet map[ids.ItemId]bool, exports map[string]bool) (compiler.Transformation, bool) {
	if data.HasSideEffects || len(data.ReexportedNames) > 0 || st.isInit {
		return nil, false
	}
	if fi, ok := data.Kind.(depgraph.FromImportKind); ok && fi.IsStar {
		return nil, false
	}

	anyUsed := false
	for name := range data.VarDecls {
		if d.nameUsed(st, itemID, name, liveSet, exports) {
			anyUsed = true
			break
		}
	}
	if !anyUsed {
		return compiler.RemoveImport{}, true
	}

	fi, isFrom := data.Kind.(depgraph.FromImportKind)
	if !isFrom {
		return nil, false
	}
	cls := d.classifications[st.id][itemID]
	if cls.Kind != classify.Hoist {
		// First-party from-imports turn into per-symbol bindings anyway;
		// restricting the statement would change nothing.
		return nil, false
	}
	var remaining []depgraph.NameAlias
	for _, n := range fi.Names {
		local := n.Alias
		if local == "" {
			local = n.Name
		}
		if d.nameUsed(st, itemID, local, liveSet, exports) {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) == len(fi.Names) {
		return nil, false
	}
	return compiler.PartialImportRemoval{RemainingSymbols: remaining}, true
}

// nameUsed reports whether any live item other than the import itself
// reads name, or the module exports it through __all__.
func (d *driver) nameUsed(st *moduleState, importItem ids.ItemId, name string, liveSet map[ids.ItemId]bool, exports map[string]bool) bool {
	if exports[name] {
		return true
	}
	state, ok := st.graph.VarStates[name]
	if !ok {
		return false
	}
	for _, reader := range state.Readers {
		if reader != importItem && liveSet[reader] {
			return true
		}
	}
	return false
}

// moduleAllExports returns the string values of the module's literal
// __all__ assignment, if any.
func moduleAllExports(g *depgraph.ModuleDepGraph) map[string]bool {
	for _, itemID := range g.Order {
		data := g.Items[itemID]
		a, ok := data.Kind.(depgraph.AssignmentKind)
		if !ok {
			continue
		}
		for _, t := range a.Targets {
			if t == "__all__" {
				return data.ReexportedNames
			}
		}
	}
	return nil
}

// --- rename planning ---

func (d *driver) computeRenamePlan(order []ids.ModuleId) *rename.Plan {
	symbolToEntries := map[string][]rename.ConflictEntry{}
	for _, id := range order {
		st := d.states[id]
		imported := importedLocalNames(st.graph)
		for i, b := range st.semanticModel.Bindings() {
			// A binding created by an import never conflicts: the compiler
			// resolves it through namespace/alias bookkeeping that
			// deliberately binds the same name, so renaming its references
			// would orphan them from that assignment.
			if imported[b.Name] {
				continue
			}
			symbolToEntries[b.Name] = append(symbolToEntries[b.Name], rename.ConflictEntry{
				ModuleName: st.name,
				GlobalID:   ids.GlobalBindingId{Module: id, Binding: ids.BindingId(i)},
			})
		}
	}

	var names []string
	for name, entries := range symbolToEntries {
		if len(entries) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	conflicts := make([]rename.SymbolConflict, 0, len(names))
	for _, name := range names {
		conflicts = append(conflicts, rename.SymbolConflict{SymbolName: name, Conflicts: symbolToEntries[name]})
	}
	return rename.Compute(conflicts)
}

// importedLocalNames unions every local name the module's import items
// introduce.
func importedLocalNames(g *depgraph.ModuleDepGraph) map[string]bool {
	out := map[string]bool{}
	for _, itemID := range g.Order {
		data := g.Items[itemID]
		if !isImportItemKind(data.Kind) {
			continue
		}
		for name := range data.ImportedNames {
			out[name] = true
		}
	}
	return out
}

// --- import transformer integration ---

func (d *driver) applyTransformer(program *compiler.BundleProgram, modules map[ids.ModuleId]*compiler.ModuleInput) {
	ctxCache := map[ids.ModuleId]transformer.Context{}
	for i, step := range program.Steps {
		cs, ok := step.(compiler.CopyStatement)
		if !ok {
			continue
		}
		m := modules[cs.SourceModule]
		stmt, ok := compiler.StatementFor(m, cs.ItemID)
		if !ok {
			continue
		}
		ctx, cached := ctxCache[cs.SourceModule]
		if !cached {
			ctx = d.transformerContextFor(cs.SourceModule)
			ctxCache[cs.SourceModule] = ctx
		}

		res := transformer.Transform(stmt, ctx)
		if !res.Changed {
			continue
		}
		if res.TouchedFString {
			code, ok := d.renderStatement(res.Stmt)
			if !ok {
				continue
			}
			program.Steps[i] = compiler.InsertRenderedCode{SourceModule: cs.SourceModule, OriginItemID: cs.ItemID, Code: code}
			continue
		}

		merged := cs.Renames
		if merged == nil {
			merged = map[pyast.TextRange]string{}
		}
		for r, text := range res.Rewrites {
			merged[r] = text
		}
		program.Steps[i] = compiler.CopyStatement{SourceModule: cs.SourceModule, ItemID: cs.ItemID, Renames: merged}
	}
}

// transformerContextFor builds the per-module Context the import
// transformer needs, scoped to id's own classifications: a local alias or Inline binding only
// ever shadows a name within the module that established it, so ResolveSymbol
// must answer from THIS module's own Inline bindings, not a bundle-wide table.
func (d *driver) transformerContextFor(id ids.ModuleId) transformer.Context {
	ctx := transformer.Context{
		NamespaceAliases:         map[string]bool{},
		InlinedModuleDottedNames: map[string]bool{},
	}
	type key struct{ dottedModule, attr string }
	bySourceAttr := map[key]string{}

	for _, cls := range d.classifications[id] {
		switch cls.Kind {
		case classify.EmulateAsNamespace:
			ctx.NamespaceAliases[cls.Alias] = true
		case classify.Inline:
			targetName := d.states[cls.ModuleID].name
			ctx.InlinedModuleDottedNames[targetName] = true
			for _, sym := range cls.Symbols {
				if sym.IsSubmoduleAccess {
					continue
				}
				bySourceAttr[key{targetName, sym.SourceName}] = sym.TargetName
			}
		}
	}

	ctx.ResolveSymbol = func(dottedModule, attr string) (string, bool) {
		name, ok := bySourceAttr[key{dottedModule, attr}]
		return name, ok
	}
	ctx.ResolveImportlibTarget = func(literal string) (pyast.Expr, bool) {
		if _, _, ok := d.mg.ModuleByName(literal); ok {
			return &pyast.Name{Id: compiler.NamespaceVar(literal)}, true
		}
		return nil, false
	}
	return ctx
}

func (d *driver) renderStatement(stmt pyast.Stmt) (string, bool) {
	if d.opts.Renderer == nil {
		d.log.AddWarning(nil, "an f-string rewrite needs a code generator to rebuild its source text; "+
			"no renderer was configured, so this statement is left unrewritten")
		return "", false
	}
	code, err := d.opts.Renderer.Render(stmt)
	if err != nil {
		d.log.AddWarning(nil, fmt.Sprintf("rendering rewritten statement: %v", err))
		return "", false
	}
	return code, true
}

// --- unused-import diagnostics ---

func (d *driver) collectUnusedImports(order []ids.ModuleId, live map[ids.ModuleId]map[ids.ItemId]bool, transformations map[ids.ModuleId]map[ids.ItemId]compiler.Transformation) []UnusedImportDiagnostic {
	var out []UnusedImportDiagnostic
	for _, id := range order {
		st := d.states[id]
		liveSet := live[id]
		for _, itemID := range st.graph.Order {
			data := st.graph.Items[itemID]
			if !isImportItemKind(data.Kind) {
				continue
			}
			loc := itemLocation(st, itemID)
			switch tr := transformations[id][itemID].(type) {
			case compiler.RemoveImport:
				for name := range data.DefinedSymbols {
					out = append(out, UnusedImportDiagnostic{Module: st.name, Name: name, Location: loc})
				}
				continue
			case compiler.PartialImportRemoval:
				kept := map[string]bool{}
				for _, n := range tr.RemainingSymbols {
					local := n.Alias
					if local == "" {
						local = n.Name
					}
					kept[local] = true
				}
				for name := range data.DefinedSymbols {
					if !kept[name] {
						out = append(out, UnusedImportDiagnostic{Module: st.name, Name: name, Location: loc})
					}
				}
				continue
			}
			if liveSet[itemID] {
				continue
			}
			for name := range data.DefinedSymbols {
				out = append(out, UnusedImportDiagnostic{Module: st.name, Name: name, Location: loc})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func itemLocation(st *moduleState, itemID ids.ItemId) logger.MsgLocation {
	data := st.graph.Items[itemID]
	if !data.HasStatementIndex || int(data.StatementIndex) >= len(st.module.Body) {
		return logger.MsgLocation{File: st.canonical}
	}
	line, col := lineCol(st.source, st.module.Body[data.StatementIndex].Range().Start)
	return logger.MsgLocation{File: st.canonical, Line: line, Column: col}
}

// lineCol converts a byte offset into 1-based line / 0-based column,
// matching logger.MsgLocation's convention.
func lineCol(source string, pos pyast.Pos) (line, col int) {
	line = 1
	for i := 0; i < int(pos) && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return line, col
}
