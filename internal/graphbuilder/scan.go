package graphbuilder

import "github.com/cribo-go/cribo/internal/pyast"

// bucket accumulates the reads/writes/attribute-accesses found while
// walking a block of statements, destined for either an item's immediate
// or eventual fields.
type bucket struct {
	reads map[string]bool
	writes map[string]bool
	attrs map[string]map[string]bool
}

// walkStmts walks a whole block, routing into imm or ev per statement the
// same way walkStmt does for one statement.
func walkStmts(stmts []pyast.Stmt, imm, ev *bucket, importNames *[]string) {
	for _, s := range stmts {
		walkStmt(s, imm, ev, importNames)
	}
}

// walkStmt records the effects of one nested statement. imm receives
// effects that happen as soon as the enclosing item runs; ev receives
// effects deferred until a nested function body actually executes. A
// FunctionDef's own body is always routed to ev (even when imm==ev, as it
// is for a top-level FunctionDef item's own eventual bucket; nesting a
// function inside a function doesn't add a third bucket).
func walkStmt(s pyast.Stmt, imm, ev *bucket, importNames *[]string) {
	switch t := s.(type) {
	case *pyast.Import:
		name := t.Alias
		if name == "" {
			name = rootComponent(t.Module)
		}
		imm.writes[name] = true
		*importNames = append(*importNames, name)

	case *pyast.FromImport:
		if isFutureImport(t) {
			return
		}
		for _, n := range t.Names {
			local := n.Alias
			if local == "" {
				local = n.Name
			}
			imm.writes[local] = true
			*importNames = append(*importNames, local)
		}

	case *pyast.FunctionDef:
		imm.writes[t.Name] = true
		for _, dec := range t.Decorators {
			scanExpr(dec, imm.reads, imm.attrs)
		}
		walkStmts(t.Body, ev, ev, importNames)

	case *pyast.ClassDef:
		imm.writes[t.Name] = true
		for _, base := range t.Bases {
			scanExpr(base, imm.reads, imm.attrs)
		}
		for _, dec := range t.Decorators {
			scanExpr(dec, imm.reads, imm.attrs)
		}
		for _, body := range t.Body {
			if fn, ok := body.(*pyast.FunctionDef); ok {
				walkStmt(fn, ev, ev, importNames)
				continue
			}
			walkStmt(body, imm, ev, importNames)
		}

	case *pyast.Assign:
		var targets []string
		for _, tgt := range t.Targets {
			collectAssignTargets(tgt, &targets)
		}
		for _, name := range targets {
			imm.writes[name] = true
		}
		scanExpr(t.Value, imm.reads, imm.attrs)

	case *pyast.ExprStmt:
		scanExpr(t.Value, imm.reads, imm.attrs)

	case *pyast.If:
		scanExpr(t.Test, imm.reads, imm.attrs)
		walkStmts(t.Body, imm, ev, importNames)
		walkStmts(t.Orelse, imm, ev, importNames)

	case *pyast.While:
		walkStmts(t.Body, imm, ev, importNames)
		walkStmts(t.Orelse, imm, ev, importNames)

	case *pyast.For:
		var targets []string
		collectAssignTargets(t.Target, &targets)
		for _, name := range targets {
			imm.writes[name] = true
		}
		scanExpr(t.Iter, imm.reads, imm.attrs)
		walkStmts(t.Body, imm, ev, importNames)
		walkStmts(t.Orelse, imm, ev, importNames)

	case *pyast.With:
		for _, item := range t.Items {
			scanExpr(item.ContextExpr, imm.reads, imm.attrs)
			if item.OptionalVar != nil {
				var targets []string
				collectAssignTargets(item.OptionalVar, &targets)
				for _, name := range targets {
					imm.writes[name] = true
				}
			}
		}
		walkStmts(t.Body, imm, ev, importNames)

	case *pyast.Try:
		walkStmts(t.Body, imm, ev, importNames)
		for _, h := range t.Handlers {
			if h.Type != nil {
				scanExpr(h.Type, imm.reads, imm.attrs)
			}
			if h.Name != "" {
				imm.writes[h.Name] = true
			}
			walkStmts(h.Body, imm, ev, importNames)
		}
		walkStmts(t.Orelse, imm, ev, importNames)
		walkStmts(t.Finally, imm, ev, importNames)

	case *pyast.Match:
		scanExpr(t.Subject, imm.reads, imm.attrs)
		for _, c := range t.Cases {
			walkStmts(c.Body, imm, ev, importNames)
		}

	case *pyast.Other:
		for _, n := range t.ReadVars {
			imm.reads[n] = true
		}
		for _, n := range t.WriteVars {
			imm.writes[n] = true
		}
	}
}

// sideEffectsIn reports whether any statement in stmts runs a side effect
// immediately (a nested FunctionDef's body is deferred, so it never
// contributes here; a nested ClassDef's own immediate body does).
func sideEffectsIn(stmts []pyast.Stmt) bool {
	for _, s := range stmts {
		if stmtHasImmediateSideEffect(s) {
			return true
		}
	}
	return false
}

func stmtHasImmediateSideEffect(s pyast.Stmt) bool {
	switch t := s.(type) {
	case *pyast.Assign:
		return exprHasSideEffects(t.Value)
	case *pyast.ExprStmt:
		return exprHasSideEffects(t.Value)
	case *pyast.Other:
		return t.HasSideEffects
	case *pyast.ClassDef:
		if exprListHasSideEffects(t.Bases) || exprListHasSideEffects(t.Decorators) {
			return true
		}
		for _, body := range t.Body {
			if _, ok := body.(*pyast.FunctionDef); ok {
				continue
			}
			if stmtHasImmediateSideEffect(body) {
				return true
			}
		}
		return false
	case *pyast.FunctionDef:
		return exprListHasSideEffects(t.Decorators)
	case *pyast.If:
		return exprHasSideEffects(t.Test) || sideEffectsIn(t.Body) || sideEffectsIn(t.Orelse)
	case *pyast.While:
		return sideEffectsIn(t.Body) || sideEffectsIn(t.Orelse)
	case *pyast.For:
		return exprHasSideEffects(t.Iter) || sideEffectsIn(t.Body) || sideEffectsIn(t.Orelse)
	case *pyast.With:
		return true // entering a context manager is conservatively a side effect
	case *pyast.Try:
		if sideEffectsIn(t.Body) || sideEffectsIn(t.Orelse) || sideEffectsIn(t.Finally) {
			return true
		}
		for _, h := range t.Handlers {
			if sideEffectsIn(h.Body) {
				return true
			}
		}
		return false
	case *pyast.Match:
		for _, c := range t.Cases {
			if sideEffectsIn(c.Body) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func collectAssignTargets(e pyast.Expr, out *[]string) {
	switch t := e.(type) {
	case *pyast.Name:
		*out = append(*out, t.Id)
	case *pyast.CollectionExpr:
		for _, elem := range t.Elems {
			collectAssignTargets(elem, out)
		}
	case *pyast.Starred:
		collectAssignTargets(t.Value, out)
	default:
		// Attribute/Subscript targets (obj.attr = x, obj[k] = x) don't bind
		// a new module-scope name.
	}
}

func flattenAllLiteral(e pyast.Expr) []string {
	coll, ok := e.(*pyast.CollectionExpr)
	if !ok || (coll.Kind != "list" && coll.Kind != "tuple") {
		return nil
	}
	var out []string
	for _, elem := range coll.Elems {
		if c, ok := elem.(*pyast.Constant); ok && c.Kind == "str" {
			out = append(out, c.Value)
		}
	}
	return out
}

// exprBasePath returns the dotted name path of e when e is a plain Name or
// a chain of Attribute accesses rooted at one, so that `a.b.c` yields
// "a.b" as the base path for its final ".c" access — attribute accesses
// are recorded at both the simple and the composite-key granularity.
func exprBasePath(e pyast.Expr) (string, bool) {
	switch t := e.(type) {
	case *pyast.Name:
		return t.Id, true
	case *pyast.Attribute:
		base, ok := exprBasePath(t.Value)
		if !ok {
			return "", false
		}
		return base + "." + t.Attr, true
	default:
		return "", false
	}
}

func recordAttribute(a *pyast.Attribute, attrs map[string]map[string]bool) {
	base, ok := exprBasePath(a.Value)
	if !ok {
		return
	}
	if attrs[base] == nil {
		attrs[base] = map[string]bool{}
	}
	attrs[base][a.Attr] = true
}

// scanExpr records every Name read and Attribute access reachable from e.
func scanExpr(e pyast.Expr, reads map[string]bool, attrs map[string]map[string]bool) {
	if e == nil {
		return
	}
	switch t := e.(type) {
	case *pyast.Name:
		reads[t.Id] = true

	case *pyast.Attribute:
		recordAttribute(t, attrs)
		scanExpr(t.Value, reads, attrs)

	case *pyast.Call:
		scanExpr(t.Func, reads, attrs)
		for _, a := range t.Args {
			scanExpr(a, reads, attrs)
		}
		for _, kw := range t.Keywords {
			scanExpr(kw.Value, reads, attrs)
		}

	case *pyast.Constant:
		// no references

	case *pyast.BinOp:
		scanExpr(t.Left, reads, attrs)
		scanExpr(t.Right, reads, attrs)

	case *pyast.UnaryOp:
		scanExpr(t.Operand, reads, attrs)

	case *pyast.BoolOp:
		for _, v := range t.Values {
			scanExpr(v, reads, attrs)
		}

	case *pyast.Compare:
		scanExpr(t.Left, reads, attrs)
		for _, c := range t.Comparators {
			scanExpr(c, reads, attrs)
		}

	case *pyast.IfExp:
		scanExpr(t.Test, reads, attrs)
		scanExpr(t.Body, reads, attrs)
		scanExpr(t.Orelse, reads, attrs)

	case *pyast.CollectionExpr:
		for _, el := range t.Elems {
			scanExpr(el, reads, attrs)
		}

	case *pyast.DictExpr:
		for _, k := range t.Keys {
			scanExpr(k, reads, attrs)
		}
		for _, v := range t.Values {
			scanExpr(v, reads, attrs)
		}

	case *pyast.Starred:
		scanExpr(t.Value, reads, attrs)

	case *pyast.Lambda:
		scanExpr(t.Body, reads, attrs)

	case *pyast.Yield:
		scanExpr(t.Value, reads, attrs)

	case *pyast.Await:
		scanExpr(t.Value, reads, attrs)

	case *pyast.Subscript:
		scanExpr(t.Value, reads, attrs)
		scanExpr(t.Slice, reads, attrs)

	case *pyast.SliceExpr:
		scanExpr(t.Lower, reads, attrs)
		scanExpr(t.Upper, reads, attrs)
		scanExpr(t.Step, reads, attrs)

	case *pyast.Comprehension:
		scanExpr(t.Element, reads, attrs)
		scanExpr(t.Key, reads, attrs)
		for _, g := range t.Generators {
			scanExpr(g.Iter, reads, attrs)
			for _, cond := range g.Ifs {
				scanExpr(cond, reads, attrs)
			}
		}

	case *pyast.JoinedStr:
		for _, v := range t.Values {
			scanExpr(v, reads, attrs)
		}

	case *pyast.FormattedValue:
		scanExpr(t.Value, reads, attrs)
		scanExpr(t.FormatSpec, reads, attrs)
	}
}

// exprHasSideEffects is the conservative side-effect detector: calls,
// yields, and awaits are side-effecting; everything else is side-effecting
// only if one of its operands is.
func exprHasSideEffects(e pyast.Expr) bool {
	if e == nil {
		return false
	}
	switch t := e.(type) {
	case *pyast.Constant, *pyast.Name, *pyast.Lambda:
		return false

	case *pyast.Attribute:
		return exprHasSideEffects(t.Value)

	case *pyast.Call, *pyast.Yield, *pyast.Await:
		_ = t
		return true

	case *pyast.BinOp:
		return exprHasSideEffects(t.Left) || exprHasSideEffects(t.Right)

	case *pyast.UnaryOp:
		return exprHasSideEffects(t.Operand)

	case *pyast.BoolOp:
		return exprListHasSideEffects(t.Values)

	case *pyast.Compare:
		return exprHasSideEffects(t.Left) || exprListHasSideEffects(t.Comparators)

	case *pyast.IfExp:
		return exprHasSideEffects(t.Test) || exprHasSideEffects(t.Body) || exprHasSideEffects(t.Orelse)

	case *pyast.CollectionExpr:
		return exprListHasSideEffects(t.Elems)

	case *pyast.DictExpr:
		return exprListHasSideEffects(t.Keys) || exprListHasSideEffects(t.Values)

	case *pyast.Starred:
		return exprHasSideEffects(t.Value)

	case *pyast.Subscript:
		return exprHasSideEffects(t.Value) || exprHasSideEffects(t.Slice)

	case *pyast.SliceExpr:
		return exprHasSideEffects(t.Lower) || exprHasSideEffects(t.Upper) || exprHasSideEffects(t.Step)

	case *pyast.Comprehension:
		if exprHasSideEffects(t.Element) || exprHasSideEffects(t.Key) {
			return true
		}
		for _, g := range t.Generators {
			if exprHasSideEffects(g.Iter) || exprListHasSideEffects(g.Ifs) {
				return true
			}
		}
		return false

	case *pyast.JoinedStr:
		return exprListHasSideEffects(t.Values)

	case *pyast.FormattedValue:
		return exprHasSideEffects(t.Value) || exprHasSideEffects(t.FormatSpec)

	default:
		return false
	}
}

func exprListHasSideEffects(es []pyast.Expr) bool {
	for _, e := range es {
		if exprHasSideEffects(e) {
			return true
		}
	}
	return false
}
