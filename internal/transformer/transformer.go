// Package transformer rewrites, inside one copied statement's source
// AST, the attribute accesses and bare names that only make sense
// post-bundling. Three rewrites apply: importlib literal-call inlining,
// attribute-to-name collapsing for an inlined module, and
// name-to-attribute rewriting for a wrapper-module import — all subject
// to local-scope shadowing.
package transformer

import "github.com/cribo-go/cribo/internal/pyast"

// Context carries everything the transformer needs to know about how the
// current module's imports were classified, supplied by internal/driver
// once classification and liveness analysis have run.
type Context struct {
	// NamespaceAliases is the set of local names in the current module
	// already bound to a namespace object — e.g. the alias of an
	// `import pkg` that classified as a namespace emulation. Attribute
	// accesses rooted at one of these names are left untouched; the
	// namespace object already resolves `.attr` correctly since
	// internal/compiler populates it under the attribute's original name.
	NamespaceAliases map[string]bool

	// WrapperModuleBases is the set of local names that are themselves a
	// wrapper-module namespace access: an attribute chain rooted here is
	// never collapsed into a bare renamed name, since the wrapper module's
	// body runs lazily and its symbols only exist as attributes of the
	// wrapper object.
	WrapperModuleBases map[string]bool

	// InlinedModuleDottedNames is the set of dotted module names of every
	// first-party module Inline-classified somewhere in the bundle, so
	// "m.attr" can be collapsed to the bare (possibly renamed) symbol that
	// ResolveSymbol returns, even though "m" is never itself bound to a
	// name (inlining never binds the module's own name — only the symbols
	// pulled from it).
	InlinedModuleDottedNames map[string]bool

	// ResolveSymbol returns the rename-resolved name for a symbol
	// dottedModule defines (or ok=false if dottedModule is not tracked /
	// the symbol is unknown, in which case the caller keeps attr as-is).
	ResolveSymbol func(dottedModule, attr string) (resolved string, ok bool)

	// ImportlibAliases is the set of local base names tracked as an
	// importlib.import_module alias (e.g. `import importlib as il`) so
	// `il.import_module("pkg.mod")` is recognized the same as
	// `importlib.import_module("pkg.mod")`.
	ImportlibAliases map[string]bool

	// ResolveImportlibTarget resolves a literal import_module argument to
	// the expression that should replace the whole call: typically a bare
	// Name referencing the target module's
	// namespace variable. ok=false leaves the call untouched (the target
	// isn't a bundled first-party module, e.g. runtime-resolved plugin
	// loading) .
	ResolveImportlibTarget func(literal string) (expr pyast.Expr, ok bool)

	// WrapperImports maps a local name imported from a wrapper module
	// (`from wrapper_mod import x`) to the wrapper object's variable name,
	// so bare references to x become `wrapper_var.x`. internal/driver
	// leaves this map empty.
	WrapperImports map[string]string
}

// Result is the outcome of transforming one top-level statement.
type Result struct {
	Stmt pyast.Stmt
	// Changed is true if any rewrite was applied anywhere in Stmt.
	Changed bool
	// TouchedFString is true if a rewrite landed inside a JoinedStr
	// (f-string) element, which Python's ast module cannot patch
	// in-place: the caller must route this item through
	// the external renderer as InsertRenderedCode rather than as a
	// textual CopyStatement rename, since the statement's shape itself
	// changed, not just a name occurrence within an unchanged shape.
	TouchedFString bool
	// Rewrites maps the original source range of every node replaced
	// outside an f-string to the replacement's rendered text. Every
	// replacement this package produces is either a bare Name or a plain
	// Name.attr.attr... chain, so rendering it back to source text needs
	// no general-purpose expression printer. The caller folds these
	// directly into the same TextRange-keyed rename map the rename plan
	// already produces — a rewrite is just a rename with a longer
	// replacement string. Entries that land inside
	// a JoinedStr are withheld here (TouchedFString covers them
	// instead), since the renderer can't patch an f-string's source
	// range independently of its siblings.
	Rewrites map[pyast.TextRange]string
}

// Transform applies the three rewrites to stmt, returning a new
// statement tree; stmt itself is never mutated.
func Transform(stmt pyast.Stmt, ctx Context) Result {
	t := &transform{ctx: ctx, scopes: []scope{{}}}
	out := t.stmt(stmt)
	return Result{Stmt: out, Changed: t.changed, TouchedFString: t.touchedFString, Rewrites: t.rewrites}
}

// scope is one lexical level of local shadowing: function parameters,
// loop targets, comprehension targets, with/except targets, and plain
// local assignments all shadow a module-level name for the remainder of
// that scope.
type scope map[string]bool

type transform struct {
	ctx            Context
	scopes         []scope
	inFString      int
	changed        bool
	touchedFString bool
	rewrites       map[pyast.TextRange]string

	// selfAssignGuard / selfAssignValue identify the value expression of a
	// single-target assignment `X = <value>` while it is being transformed:
	// collapsing the whole value `m.X` to the bare name `X` would produce
	// the self-referential `X = X`, so that one rewrite is suppressed. A
	// nested occurrence (`X = f(m.X)`) is still rewritten.
	selfAssignGuard string
	selfAssignValue pyast.Expr
}

// recordRewrite marks a replacement at orig's original range. text is the
// replacement's rendered source (a bare identifier or dotted attribute
// chain — the only shapes this package ever produces). Replacements inside
// an f-string are tracked only via touchedFString; they're excluded from
// Rewrites since a JoinedStr requires the whole node rebuilt, not a
// sub-range patch.
func (t *transform) recordRewrite(orig pyast.Expr, text string) {
	t.changed = true
	if t.inFString > 0 {
		t.touchedFString = true
		return
	}
	if t.rewrites == nil {
		t.rewrites = map[pyast.TextRange]string{}
	}
	t.rewrites[orig.Range()] = text
}

// renderSimple renders a Name or dotted Attribute chain back to source
// text. Both are the only shapes this package ever substitutes in.
func renderSimple(e pyast.Expr) string {
	switch n := e.(type) {
	case *pyast.Name:
		return n.Id
	case *pyast.Attribute:
		return renderSimple(n.Value) + "." + n.Attr
	default:
		return ""
	}
}

func (t *transform) shadowed(name string) bool {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if t.scopes[i][name] {
			return true
		}
	}
	return false
}

func (t *transform) shadow(name string) {
	t.scopes[len(t.scopes)-1][name] = true
}

func (t *transform) pushScope() { t.scopes = append(t.scopes, scope{}) }
func (t *transform) popScope()  { t.scopes = t.scopes[:len(t.scopes)-1] }

// --- statements ---

func (t *transform) stmtList(stmts []pyast.Stmt) []pyast.Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]pyast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = t.stmt(s)
	}
	return out
}

func (t *transform) stmt(s pyast.Stmt) pyast.Stmt {
	switch n := s.(type) {
	case *pyast.Import, *pyast.FromImport:
		// Imports are handled entirely by classification and compilation;
		// the transformer never rewrites the import statement itself.
		return s

	case *pyast.FunctionDef:
		cp := *n
		cp.Decorators = t.exprList(n.Decorators)
		t.pushScope()
		// Parameters shadow module-level names for the whole body.
		for _, p := range n.Params {
			t.shadow(p)
		}
		cp.Body = t.stmtList(n.Body)
		t.popScope()
		return &cp

	case *pyast.ClassDef:
		cp := *n
		cp.Bases = t.exprList(n.Bases)
		cp.Decorators = t.exprList(n.Decorators)
		t.pushScope()
		cp.Body = t.stmtList(n.Body)
		t.popScope()
		return &cp

	case *pyast.Assign:
		cp := *n
		for _, target := range n.Targets {
			t.shadowAssignTarget(target)
		}
		cp.Targets = t.exprList(n.Targets)
		prevGuard, prevValue := t.selfAssignGuard, t.selfAssignValue
		if len(n.Targets) == 1 {
			if tn, ok := n.Targets[0].(*pyast.Name); ok {
				t.selfAssignGuard, t.selfAssignValue = tn.Id, n.Value
			}
		}
		cp.Value = t.expr(n.Value)
		t.selfAssignGuard, t.selfAssignValue = prevGuard, prevValue
		return &cp

	case *pyast.ExprStmt:
		cp := *n
		cp.Value = t.expr(n.Value)
		return &cp

	case *pyast.If:
		cp := *n
		cp.Test = t.expr(n.Test)
		cp.Body = t.stmtList(n.Body)
		cp.Orelse = t.stmtList(n.Orelse)
		return &cp

	case *pyast.While:
		cp := *n
		cp.Body = t.stmtList(n.Body)
		cp.Orelse = t.stmtList(n.Orelse)
		return &cp

	case *pyast.For:
		cp := *n
		t.shadowAssignTarget(n.Target)
		cp.Target = t.expr(n.Target)
		cp.Iter = t.expr(n.Iter)
		cp.Body = t.stmtList(n.Body)
		cp.Orelse = t.stmtList(n.Orelse)
		return &cp

	case *pyast.With:
		cp := *n
		cp.Items = make([]pyast.WithItem, len(n.Items))
		for i, item := range n.Items {
			if item.OptionalVar != nil {
				t.shadowAssignTarget(item.OptionalVar)
			}
			cp.Items[i] = pyast.WithItem{
				ContextExpr: t.expr(item.ContextExpr),
				OptionalVar: t.exprOrNil(item.OptionalVar),
			}
		}
		cp.Body = t.stmtList(n.Body)
		return &cp

	case *pyast.Try:
		cp := *n
		cp.Body = t.stmtList(n.Body)
		cp.Handlers = make([]pyast.ExceptHandler, len(n.Handlers))
		for i, h := range n.Handlers {
			hc := h
			if h.Name != "" {
				t.pushScope()
				t.shadow(h.Name)
			}
			hc.Type = t.exprOrNil(h.Type)
			hc.Body = t.stmtList(h.Body)
			if h.Name != "" {
				t.popScope()
			}
			cp.Handlers[i] = hc
		}
		cp.Orelse = t.stmtList(n.Orelse)
		cp.Finally = t.stmtList(n.Finally)
		return &cp

	case *pyast.Match:
		cp := *n
		cp.Subject = t.expr(n.Subject)
		cp.Cases = make([]pyast.MatchCase, len(n.Cases))
		for i, c := range n.Cases {
			cp.Cases[i] = pyast.MatchCase{Body: t.stmtList(c.Body)}
		}
		return &cp

	default:
		return s
	}
}

func (t *transform) exprOrNil(e pyast.Expr) pyast.Expr {
	if e == nil {
		return nil
	}
	return t.expr(e)
}

// shadowAssignTarget records every Name a target binds as a local
// shadow — an assignment (including for-loop and with-as targets) makes
// that name module-local for the remainder of the enclosing scope only
// when it occurs inside a FunctionDef; at module top level there is no
// enclosing function scope to shadow, so top-level assignment targets
// fall through unrecorded here and instead rely on the rename plan,
// which already resolved any cross-module collision for
// that binding.
func (t *transform) shadowAssignTarget(e pyast.Expr) {
	if len(t.scopes) <= 1 {
		return
	}
	switch n := e.(type) {
	case *pyast.Name:
		t.shadow(n.Id)
	case *pyast.CollectionExpr:
		for _, el := range n.Elems {
			t.shadowAssignTarget(el)
		}
	case *pyast.Starred:
		t.shadowAssignTarget(n.Value)
	}
}

// --- expressions ---

func (t *transform) exprList(es []pyast.Expr) []pyast.Expr {
	if es == nil {
		return nil
	}
	out := make([]pyast.Expr, len(es))
	for i, e := range es {
		out[i] = t.expr(e)
	}
	return out
}

func (t *transform) expr(e pyast.Expr) pyast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *pyast.Name:
		return t.name(n)

	case *pyast.Attribute:
		return t.attribute(n)

	case *pyast.Call:
		if rewritten, ok := t.importlibCall(n); ok {
			return rewritten
		}
		cp := *n
		cp.Func = t.expr(n.Func)
		cp.Args = t.exprList(n.Args)
		cp.Keywords = make([]pyast.Keyword, len(n.Keywords))
		for i, k := range n.Keywords {
			cp.Keywords[i] = pyast.Keyword{Name: k.Name, Value: t.expr(k.Value)}
		}
		return &cp

	case *pyast.Constant:
		return n

	case *pyast.BinOp:
		cp := *n
		cp.Left = t.expr(n.Left)
		cp.Right = t.expr(n.Right)
		return &cp

	case *pyast.UnaryOp:
		cp := *n
		cp.Operand = t.expr(n.Operand)
		return &cp

	case *pyast.BoolOp:
		cp := *n
		cp.Values = t.exprList(n.Values)
		return &cp

	case *pyast.Compare:
		cp := *n
		cp.Left = t.expr(n.Left)
		cp.Comparators = t.exprList(n.Comparators)
		return &cp

	case *pyast.IfExp:
		cp := *n
		cp.Test = t.expr(n.Test)
		cp.Body = t.expr(n.Body)
		cp.Orelse = t.expr(n.Orelse)
		return &cp

	case *pyast.CollectionExpr:
		cp := *n
		cp.Elems = t.exprList(n.Elems)
		return &cp

	case *pyast.DictExpr:
		cp := *n
		cp.Keys = t.exprList(n.Keys)
		cp.Values = t.exprList(n.Values)
		return &cp

	case *pyast.Starred:
		cp := *n
		cp.Value = t.expr(n.Value)
		return &cp

	case *pyast.Lambda:
		t.pushScope()
		for _, p := range n.Params {
			t.shadow(p)
		}
		cp := *n
		cp.Body = t.expr(n.Body)
		t.popScope()
		return &cp

	case *pyast.Yield:
		cp := *n
		cp.Value = t.exprOrNil(n.Value)
		return &cp

	case *pyast.Await:
		cp := *n
		cp.Value = t.expr(n.Value)
		return &cp

	case *pyast.Subscript:
		cp := *n
		cp.Value = t.expr(n.Value)
		cp.Slice = t.expr(n.Slice)
		return &cp

	case *pyast.SliceExpr:
		cp := *n
		cp.Lower = t.exprOrNil(n.Lower)
		cp.Upper = t.exprOrNil(n.Upper)
		cp.Step = t.exprOrNil(n.Step)
		return &cp

	case *pyast.Comprehension:
		t.pushScope()
		cp := *n
		cp.Generators = make([]pyast.CompFor, len(n.Generators))
		for i, g := range n.Generators {
			gc := g
			gc.Iter = t.expr(g.Iter)
			t.shadowAssignTarget(g.Target)
			gc.Target = t.expr(g.Target)
			gc.Ifs = t.exprList(g.Ifs)
			cp.Generators[i] = gc
		}
		if n.Key != nil {
			cp.Key = t.expr(n.Key)
		}
		cp.Element = t.expr(n.Element)
		t.popScope()
		return &cp

	case *pyast.JoinedStr:
		t.inFString++
		cp := *n
		cp.Values = t.exprList(n.Values)
		t.inFString--
		return &cp

	case *pyast.FormattedValue:
		cp := *n
		cp.Value = t.expr(n.Value)
		cp.FormatSpec = t.exprOrNil(n.FormatSpec)
		return &cp

	default:
		return e
	}
}

// name rewrites a bare reference to a name imported from a wrapper
// module into an attribute access on the wrapper object. Local shadows
// always win.
func (t *transform) name(n *pyast.Name) pyast.Expr {
	if t.shadowed(n.Id) {
		return n
	}
	if wrapperVar, ok := t.ctx.WrapperImports[n.Id]; ok {
		replacement := &pyast.Attribute{Value: &pyast.Name{Id: wrapperVar}, Attr: n.Id}
		t.recordRewrite(n, renderSimple(replacement))
		return replacement
	}
	return n
}

// attribute collapses base.attr to a bare (possibly renamed) Name when
// base is the dotted name of an inlined module, unless a wrapper-module
// base, a namespace alias, or the self-assignment guard forbids it.
func (t *transform) attribute(a *pyast.Attribute) pyast.Expr {
	basePath, attrPath, ok := collectAttributePath(a)
	if !ok || t.shadowed(basePath) {
		return t.attributeRecurse(a)
	}

	if t.ctx.WrapperModuleBases[basePath] {
		// guard (a): wrapper-module access, never collapsed.
		return t.attributeRecurse(a)
	}
	if t.ctx.NamespaceAliases[basePath] {
		// guard (b): namespace object, attribute access already correct.
		return t.attributeRecurse(a)
	}
	if len(attrPath) != 1 || !t.ctx.InlinedModuleDottedNames[basePath] {
		return t.attributeRecurse(a)
	}

	attrName := attrPath[0]
	resolved := attrName
	if t.ctx.ResolveSymbol != nil {
		if r, ok := t.ctx.ResolveSymbol(basePath, attrName); ok {
			resolved = r
		}
	}
	if resolved == t.selfAssignGuard && pyast.Expr(a) == t.selfAssignValue {
		return t.attributeRecurse(a)
	}
	replacement := &pyast.Name{Id: resolved}
	t.recordRewrite(a, resolved)
	return replacement
}

// attributeRecurse walks into an attribute's base when the whole chain
// wasn't collapsed, so a nested call or subscript inside the base
// expression still gets its own rewrites.
func (t *transform) attributeRecurse(a *pyast.Attribute) pyast.Expr {
	cp := *a
	cp.Value = t.expr(a.Value)
	return &cp
}

// collectAttributePath walks a chain of Attribute nodes down to its root
// Name and returns the root's id plus the ordered list of attribute names
// above it. ok is false for any base that isn't a plain dotted Name chain
// (e.g. a call result).
func collectAttributePath(a *pyast.Attribute) (base string, path []string, ok bool) {
	var attrs []string
	cur := pyast.Expr(a)
	for {
		switch n := cur.(type) {
		case *pyast.Attribute:
			attrs = append(attrs, n.Attr)
			cur = n.Value
		case *pyast.Name:
			// reverse attrs into source order
			for i, j := 0, len(attrs)-1; i < j; i, j = i+1, j-1 {
				attrs[i], attrs[j] = attrs[j], attrs[i]
			}
			return n.Id, attrs, true
		default:
			return "", nil, false
		}
	}
}

// importlibCall replaces importlib.import_module("literal") (including
// via a tracked `import importlib as il` alias) with a direct
// module-access expression for the resolved target.
func (t *transform) importlibCall(call *pyast.Call) (pyast.Expr, bool) {
	if t.ctx.ResolveImportlibTarget == nil || len(call.Args) != 1 {
		return nil, false
	}
	attr, ok := call.Func.(*pyast.Attribute)
	if !ok || attr.Attr != "import_module" {
		return nil, false
	}
	base, ok := attr.Value.(*pyast.Name)
	if !ok || t.shadowed(base.Id) {
		return nil, false
	}
	if base.Id != "importlib" && !t.ctx.ImportlibAliases[base.Id] {
		return nil, false
	}
	lit, ok := call.Args[0].(*pyast.Constant)
	if !ok || lit.Kind != "str" {
		return nil, false
	}
	target, ok := t.ctx.ResolveImportlibTarget(lit.Value)
	if !ok {
		return nil, false
	}
	t.recordRewrite(call, renderSimple(target))
	return target, true
}
