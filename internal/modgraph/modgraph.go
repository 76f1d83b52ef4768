// Package modgraph implements the project-wide module graph, built from
// one ModuleDepGraph + ModuleSummary (internal/graphbuilder) per
// discovered module. It orders modules for compilation, finds import
// cycles, and classifies each cycle so the driver can decide which ones
// abort the bundle and which merely reorder it.
package modgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cribo-go/cribo/internal/cache"
	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/graphbuilder"
	"github.com/cribo-go/cribo/internal/helpers"
	"github.com/cribo-go/cribo/internal/ids"
)

// ModuleInfo is everything the graph needs about one registered module.
type ModuleInfo struct {
	Name           string
	Path           string
	Kind           cache.Classification
	IsEntry        bool
	HasSideEffects bool
	// ContentHash is a stable identity for the module's source text within
	// a run, so two registrations of the same file can be checked for
	// consistency without re-reading it.
	ContentHash uint32
	Graph       *depgraph.ModuleDepGraph
	Summary     graphbuilder.ModuleSummary
}

// Edge is a "from depends on to" dependency, annotated with whether every
// discovered import establishing it was inside a `TYPE_CHECKING` guard.
type Edge struct {
	To                 ids.ModuleId
	IsTypeCheckingOnly bool
}

// Graph is the project-wide dependency graph over modules.
type Graph struct {
	modules  map[ids.ModuleId]*ModuleInfo
	nameToID map[string]ids.ModuleId
	deps     map[ids.ModuleId][]Edge
	alloc    ids.ModuleIdAllocator
	order    []ids.ModuleId // insertion order, for deterministic iteration

	// pathPrimary maps a canonical path to the first module registered for
	// it; pathModules lists every module id sharing that path, primary
	// first.
	pathPrimary map[string]ids.ModuleId
	pathModules map[string][]ids.ModuleId
}

func New() *Graph {
	return &Graph{
		modules:     map[ids.ModuleId]*ModuleInfo{},
		nameToID:    map[string]ids.ModuleId{},
		deps:        map[ids.ModuleId][]Edge{},
		pathPrimary: map[string]ids.ModuleId{},
		pathModules: map[string][]ids.ModuleId{},
	}
}

// ContentHash computes the stable per-run identity of a module's source.
func ContentHash(source string) uint32 {
	return helpers.HashCombineString(0, source)
}

// AddModule registers a module under name, reusing its existing id if the
// name was already registered: re-adding the entry module, or a module
// reached through two different import statements spelling the same name,
// is a no-op, not a duplicate node.
//
// When a NEW name resolves to a canonical path that already has a primary
// module, the new registration receives a clone of the primary's item
// registry — the two names share source identity but may carry distinct
// edges and annotations from here on.
func (g *Graph) AddModule(name string, info ModuleInfo) ids.ModuleId {
	if id, ok := g.nameToID[name]; ok {
		return id
	}
	id := g.alloc.Next()
	info.Name = name
	if primaryID, ok := g.pathPrimary[info.Path]; ok && info.Path != "" {
		primary := g.modules[primaryID]
		if primary.Graph != nil {
			info.Graph = primary.Graph.Clone()
		}
		info.Summary = primary.Summary
		info.ContentHash = primary.ContentHash
	} else if info.Path != "" {
		g.pathPrimary[info.Path] = id
	}
	if info.Path != "" {
		g.pathModules[info.Path] = append(g.pathModules[info.Path], id)
	}
	g.modules[id] = &info
	g.nameToID[name] = id
	g.order = append(g.order, id)
	return id
}

func (g *Graph) ModuleByName(name string) (*ModuleInfo, ids.ModuleId, bool) {
	id, ok := g.nameToID[name]
	if !ok {
		return nil, ids.InvalidModuleId, false
	}
	return g.modules[id], id, true
}

func (g *Graph) Module(id ids.ModuleId) (*ModuleInfo, bool) {
	m, ok := g.modules[id]
	return m, ok
}

// PrimaryForPath returns the module that owns a canonical path's item
// registry; every other module registered for the same path holds a clone.
func (g *Graph) PrimaryForPath(path string) (ids.ModuleId, bool) {
	id, ok := g.pathPrimary[path]
	return id, ok
}

// ModulesForPath returns every module id registered for a canonical path,
// primary first.
func (g *Graph) ModulesForPath(path string) []ids.ModuleId {
	return g.pathModules[path]
}

// AddDependency records that from imports to. typeCheckingOnly should be
// true only when this edge was established via a `TYPE_CHECKING`-guarded
// import; once false it stays false (the edge is type-checking-only only
// if EVERY import establishing it was guarded).
func (g *Graph) AddDependency(from, to ids.ModuleId, typeCheckingOnly bool) {
	for i, e := range g.deps[from] {
		if e.To == to {
			if !typeCheckingOnly {
				g.deps[from][i].IsTypeCheckingOnly = false
			}
			return
		}
	}
	g.deps[from] = append(g.deps[from], Edge{To: to, IsTypeCheckingOnly: typeCheckingOnly})
}

func (g *Graph) Dependencies(id ids.ModuleId) []Edge {
	return g.deps[id]
}

func (g *Graph) IsTypeCheckingOnlyDependency(from, to ids.ModuleId) bool {
	for _, e := range g.deps[from] {
		if e.To == to {
			return e.IsTypeCheckingOnly
		}
	}
	return false
}

// TopologicalSort returns module ids ordered so that every module appears
// after everything it depends on. Returns an error if the graph has a
// cycle: callers needing a usable order in the presence of cycles should
// use CycleAwareOrder instead.
func (g *Graph) TopologicalSort() ([]ids.ModuleId, error) {
	const (
		white = iota
		gray
		black
	)
	color := map[ids.ModuleId]int{}
	var out []ids.ModuleId
	var visit func(id ids.ModuleId) error
	visit = func(id ids.ModuleId) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("circular dependency detected at module %d", id)
		}
		color[id] = gray
		for _, e := range g.deps[id] {
			if err := visit(e.To); err != nil {
				return err
			}
		}
		color[id] = black
		out = append(out, id)
		return nil
	}
	for _, id := range g.order {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (g *Graph) HasCycles() bool {
	_, err := g.TopologicalSort()
	return err != nil
}

// FindStronglyConnectedComponents runs Tarjan's algorithm over the
// dependency edges, returning only components of size > 1 (a single
// self-contained module is never a cycle). Components come out in
// Tarjan's reverse topological order; within a component, members are
// sorted deeper dotted name first, then lexicographically.
func (g *Graph) FindStronglyConnectedComponents() [][]ids.ModuleId {
	state := &tarjanState{
		index:   map[ids.ModuleId]int{},
		lowlink: map[ids.ModuleId]int{},
		onStack: map[ids.ModuleId]bool{},
		counter: 0,
	}
	var components [][]ids.ModuleId
	for _, id := range g.order {
		if _, seen := state.index[id]; !seen {
			g.strongconnect(id, state, &components)
		}
	}
	for _, component := range components {
		g.sortDeepestFirst(component)
	}
	return components
}

// sortDeepestFirst orders module ids by dotted-path depth (deepest first),
// breaking ties lexicographically by name, so a submodule always precedes
// the package that contains it.
func (g *Graph) sortDeepestFirst(component []ids.ModuleId) {
	sort.SliceStable(component, func(i, j int) bool {
		a, b := g.modules[component[i]].Name, g.modules[component[j]].Name
		da, db := strings.Count(a, "."), strings.Count(b, ".")
		if da != db {
			return da > db
		}
		return a < b
	})
}

type tarjanState struct {
	index   map[ids.ModuleId]int
	lowlink map[ids.ModuleId]int
	onStack map[ids.ModuleId]bool
	stack   []ids.ModuleId
	counter int
}

func (g *Graph) strongconnect(v ids.ModuleId, state *tarjanState, components *[][]ids.ModuleId) {
	state.index[v] = state.counter
	state.lowlink[v] = state.counter
	state.counter++
	state.stack = append(state.stack, v)
	state.onStack[v] = true

	for _, e := range g.deps[v] {
		w := e.To
		if _, seen := state.index[w]; !seen {
			g.strongconnect(w, state, components)
			if state.lowlink[w] < state.lowlink[v] {
				state.lowlink[v] = state.lowlink[w]
			}
		} else if state.onStack[w] {
			if state.index[w] < state.lowlink[v] {
				state.lowlink[v] = state.index[w]
			}
		}
	}

	if state.lowlink[v] == state.index[v] {
		var component []ids.ModuleId
		for {
			n := len(state.stack) - 1
			w := state.stack[n]
			state.stack = state.stack[:n]
			state.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			*components = append(*components, component)
		}
	}
}

// FindCyclePaths runs a three-color DFS over the dependency edges and
// returns one concrete path per back-edge found.
func (g *Graph) FindCyclePaths() [][]ids.ModuleId {
	const (
		white = iota
		gray
		black
	)
	color := map[ids.ModuleId]int{}
	var path []ids.ModuleId
	var cycles [][]ids.ModuleId

	var visit func(id ids.ModuleId)
	visit = func(id ids.ModuleId) {
		color[id] = gray
		path = append(path, id)
		for _, e := range g.deps[id] {
			switch color[e.To] {
			case white:
				visit(e.To)
			case gray:
				for i, n := range path {
					if n == e.To {
						cycle := append([]ids.ModuleId(nil), path[i:]...)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
	}
	for _, id := range g.order {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

// CircularDependencyType classifies a detected cycle by what it would take
// to break it.
type CircularDependencyType int

const (
	// FunctionLevel cycles only materialize when a function body runs, so
	// deferring the imports into those bodies resolves them.
	FunctionLevel CircularDependencyType = iota
	// ModuleConstants cycles need each side's module-level constant before
	// the other has finished executing; no reordering can fix that.
	ModuleConstants
	// ClassLevel cycles involve class definitions read at module scope;
	// lazy imports can usually break them.
	ClassLevel
	// ImportTime cycles run import-time code on both sides; breaking them
	// needs a module split.
	ImportTime
)

func (t CircularDependencyType) String() string {
	switch t {
	case FunctionLevel:
		return "function-level"
	case ModuleConstants:
		return "module-constants"
	case ClassLevel:
		return "class-level"
	case ImportTime:
		return "import-time"
	default:
		return "unknown"
	}
}

// Reason is the human-readable explanation attached to a cycle of this
// type in the fatal report.
func (t CircularDependencyType) Reason() string {
	switch t {
	case ModuleConstants:
		return "module-level constants create temporal paradox"
	case ClassLevel:
		return "classes defined in the cycle are referenced at module scope before both modules exist"
	case ImportTime:
		return "both sides run import-time code that needs the other already initialized"
	default:
		return "imports are only used inside function bodies and can be deferred"
	}
}

// ResolutionStrategy is the suggested fix for a resolvable cycle type.
type ResolutionStrategy int

const (
	MoveImportsIntoFunctions ResolutionStrategy = iota
	LazyImports
	ModuleSplit
	Unresolvable
)

func (t CircularDependencyType) Strategy() ResolutionStrategy {
	switch t {
	case FunctionLevel:
		return MoveImportsIntoFunctions
	case ClassLevel:
		return LazyImports
	case ImportTime:
		return ModuleSplit
	default:
		return Unresolvable
	}
}

// CircularDependencyGroup is one cycle, named and classified.
type CircularDependencyGroup struct {
	Modules []string
	Type    CircularDependencyType
	// Resolvable is true when Type is FunctionLevel — the one
	// classification deferred-import rewriting can paper over without the
	// user restructuring their code.
	Resolvable bool
}

// Describe renders the group for a diagnostic report.
func (g CircularDependencyGroup) Describe() string {
	return fmt.Sprintf("%s (%s): %s",
		helpers.StringArrayToQuotedCommaSeparatedString(g.Modules), g.Type, g.Type.Reason())
}

// CircularDependencyAnalysis is the full cycle diagnostic report.
type CircularDependencyAnalysis struct {
	ResolvableCycles    []CircularDependencyGroup
	UnresolvableCycles  []CircularDependencyGroup
	TotalCyclesDetected int
	LargestCycleSize    int
}

// Groups returns every detected cycle, resolvable first, for callers that
// render all of them uniformly.
func (a CircularDependencyAnalysis) Groups() []CircularDependencyGroup {
	out := make([]CircularDependencyGroup, 0, len(a.ResolvableCycles)+len(a.UnresolvableCycles))
	out = append(out, a.ResolvableCycles...)
	out = append(out, a.UnresolvableCycles...)
	return out
}

// AnalyzeCircularDependencies finds every strongly connected component and
// classifies it.
func (g *Graph) AnalyzeCircularDependencies() CircularDependencyAnalysis {
	var analysis CircularDependencyAnalysis
	for _, scc := range g.FindStronglyConnectedComponents() {
		names := make([]string, 0, len(scc))
		for _, id := range scc {
			if m, ok := g.modules[id]; ok {
				names = append(names, m.Name)
			}
		}
		t := g.classifyCycleType(names, scc)
		group := CircularDependencyGroup{
			Modules:    names,
			Type:       t,
			Resolvable: t == FunctionLevel,
		}
		analysis.TotalCyclesDetected++
		if len(scc) > analysis.LargestCycleSize {
			analysis.LargestCycleSize = len(scc)
		}
		if group.Resolvable {
			analysis.ResolvableCycles = append(analysis.ResolvableCycles, group)
		} else {
			analysis.UnresolvableCycles = append(analysis.UnresolvableCycles, group)
		}
	}
	return analysis
}

// classifyCycleType decides, in priority order, what kind of cycle a
// component is. A parent package importing its own submodule (and vice
// versa) is normal Python layering and always classified most permissive.
func (g *Graph) classifyCycleType(moduleNames []string, scc []ids.ModuleId) CircularDependencyType {
	if isParentChildPackageCycle(moduleNames) {
		return FunctionLevel
	}

	combined := g.combineSummaries(moduleNames)

	if combined.hasOnlyConstants && !anyEndsWithInit(moduleNames) {
		return ModuleConstants
	}

	if combined.hasClassDefinitions {
		if combined.importsUsedInFunctionsOnly {
			return FunctionLevel
		}
		return ClassLevel
	}

	for _, name := range moduleNames {
		if strings.Contains(name, "constants") || strings.Contains(name, "config") {
			return ModuleConstants
		}
		if strings.Contains(name, "class") || strings.HasSuffix(name, "_class") {
			return ClassLevel
		}
	}

	if g.allModulesEmptyOrImportsOnly(moduleNames) {
		return FunctionLevel
	}
	if combined.importsUsedInFunctionsOnly {
		return FunctionLevel
	}
	if combined.hasModuleLevelImports || anyEdgeTouchesInit(g, scc) {
		return ImportTime
	}
	return FunctionLevel
}

type combinedSummary struct {
	hasOnlyConstants           bool
	hasClassDefinitions        bool
	hasModuleLevelImports      bool
	importsUsedInFunctionsOnly bool
}

func (g *Graph) combineSummaries(moduleNames []string) combinedSummary {
	c := combinedSummary{hasOnlyConstants: true, importsUsedInFunctionsOnly: true}
	for _, name := range moduleNames {
		m, _, ok := g.ModuleByName(name)
		if !ok {
			continue
		}
		s := m.Summary
		c.hasOnlyConstants = c.hasOnlyConstants && s.HasOnlyConstants
		c.hasClassDefinitions = c.hasClassDefinitions || s.HasClassDefinitions
		if s.HasModuleLevelImports {
			c.hasModuleLevelImports = true
			if !s.ImportsUsedInFunctionsOnly {
				c.importsUsedInFunctionsOnly = false
			}
		}
	}
	if !c.hasModuleLevelImports {
		c.importsUsedInFunctionsOnly = true
	}
	return c
}

func (g *Graph) allModulesEmptyOrImportsOnly(moduleNames []string) bool {
	for _, name := range moduleNames {
		m, _, ok := g.ModuleByName(name)
		if !ok {
			continue
		}
		if !m.Summary.IsEmptyOrImportsOnly {
			return false
		}
	}
	return true
}

func isParentChildPackageCycle(moduleNames []string) bool {
	if len(moduleNames) != 2 {
		return false
	}
	a, b := moduleNames[0], moduleNames[1]
	return strings.HasPrefix(b, a+".") || strings.HasPrefix(a, b+".")
}

func anyEndsWithInit(moduleNames []string) bool {
	for _, name := range moduleNames {
		if strings.HasSuffix(name, "__init__") {
			return true
		}
	}
	return false
}

func anyEdgeTouchesInit(g *Graph, scc []ids.ModuleId) bool {
	sccSet := map[ids.ModuleId]bool{}
	for _, id := range scc {
		sccSet[id] = true
	}
	for _, id := range scc {
		m, ok := g.modules[id]
		if !ok {
			continue
		}
		if strings.Contains(m.Name, "__init__") {
			for _, e := range g.deps[id] {
				if sccSet[e.To] {
					return true
				}
			}
		}
		for _, e := range g.deps[id] {
			if sccSet[e.To] {
				if other, ok := g.modules[e.To]; ok && strings.Contains(other.Name, "__init__") {
					return true
				}
			}
		}
	}
	return false
}

// CycleAwareOrder returns a compile order tolerant of cycles: acyclic
// regions keep their normal dependency-first order, while the members of a
// cycle are ranked deeper dotted path first (stable by name), so a
// submodule initializes before the parent package whose re-exports need it.
func (g *Graph) CycleAwareOrder() []ids.ModuleId {
	sccOf := map[ids.ModuleId]int{}
	components := g.FindStronglyConnectedComponents()
	for i, scc := range components {
		for _, id := range scc {
			sccOf[id] = i + 1 // 0 means "not in any multi-module cycle"
		}
	}

	order, err := g.TopologicalSort()
	if err == nil {
		return order
	}

	// The graph has a cycle: fall back to a stable order that still
	// respects acyclic edges between components, breaking ties within a
	// cycle by dotted-path depth then name.
	visited := map[ids.ModuleId]bool{}
	var out []ids.ModuleId
	var visit func(id ids.ModuleId)
	visit = func(id ids.ModuleId) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, e := range g.deps[id] {
			if sccOf[id] != 0 && sccOf[id] == sccOf[e.To] {
				continue // defer same-cycle dependencies to the ranking below
			}
			visit(e.To)
		}
		out = append(out, id)
	}
	ordered := append([]ids.ModuleId(nil), g.order...)
	g.sortDeepestFirst(ordered)
	for _, id := range ordered {
		visit(id)
	}
	return out
}
