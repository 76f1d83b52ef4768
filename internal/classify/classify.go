// Package classify decides, for every Import/FromImport item discovered
// in every module, exactly one classification — Hoist, Inline, or
// EmulateAsNamespace — plus the optional stdlib-normalization rewrite.
// Relative imports must already be resolved to absolute dotted names
// before reaching this package; that resolution is internal/resolver's
// job, wired by internal/driver.
package classify

import (
	"strings"

	"github.com/cribo-go/cribo/internal/cache"
	"github.com/cribo-go/cribo/internal/depgraph"
	"github.com/cribo-go/cribo/internal/ids"
)

// Kind is the classification tag of one import item.
type Kind uint8

const (
	Hoist Kind = iota
	Inline
	EmulateAsNamespace
)

func (k Kind) String() string {
	switch k {
	case Hoist:
		return "hoist"
	case Inline:
		return "inline"
	case EmulateAsNamespace:
		return "emulate-as-namespace"
	default:
		return "unknown"
	}
}

// HoistForm distinguishes the two statement shapes a hoisted import can
// keep.
type HoistForm uint8

const (
	HoistDirect HoistForm = iota // import M / import M as A
	HoistFrom                    // from M import names...
)

// InlineSymbol is one name spliced from a first-party module into the
// importing module's top-level scope.
type InlineSymbol struct {
	SourceName string
	TargetName string // the local name after any "as" alias

	// IsSubmoduleAccess is true for "from m import x" where m.x is itself
	// a registered module: the compiler binds TargetName to the
	// submodule's own namespace object rather than to an attribute of m's
	// namespace object.
	IsSubmoduleAccess bool

	// ModuleID is the module whose namespace TargetName resolves through:
	// m.x's module id when IsSubmoduleAccess, otherwise m's.
	ModuleID ids.ModuleId
}

// Classification is the single ImportClassification produced for one
// Import/FromImport item.
type Classification struct {
	Kind Kind

	// Hoist
	HoistForm   HoistForm
	HoistModule string // dotted name as written (post stdlib-normalization, if any)
	HoistAlias  string // only for HoistDirect
	HoistNames  []depgraph.NameAlias
	HoistLevel  int

	// Inline / EmulateAsNamespace
	ModuleID ids.ModuleId
	Alias    string // EmulateAsNamespace's bound name (alias or root module name)
	Symbols  []InlineSymbol

	// StdlibNormalized is true when this Hoist entry was rewritten from
	// `import a.b as X` / `from a.b import c` into a canonical `import a.b`
	// plus rename records.
	StdlibNormalized bool
	// CanonicalRenames maps the local name the original statement bound to
	// the canonical `a.b.c`-style path references should use instead.
	CanonicalRenames map[string]string
}

// ModuleLookup resolves a dotted module name to its registered first-party
// module, if any, and its resolver classification (cache.Classification) —
// the information internal/modgraph's module registry and internal/resolver
// already computed by the time classification runs.
type ModuleLookup func(dottedName string) (id ids.ModuleId, isFirstParty bool, kind cache.Classification)

// Options carries the classifier's tunables — currently only whether
// stdlib-import normalization is enabled.
type Options struct {
	NormalizeStdlib bool
}

// ClassifyImport produces the ImportClassification for one item, given its
// ItemKind (must be ImportKind or FromImportKind) and a ModuleLookup callback.
func ClassifyImport(kind depgraph.ItemKind, lookup ModuleLookup, opts Options) Classification {
	switch k := kind.(type) {
	case depgraph.ImportKind:
		return classifyImport(k, lookup, opts)
	case depgraph.FromImportKind:
		return classifyFromImport(k, lookup, opts)
	default:
		return Classification{}
	}
}

func classifyImport(k depgraph.ImportKind, lookup ModuleLookup, opts Options) Classification {
	id, firstParty, kind := lookup(k.Module)
	if firstParty {
		alias := k.Alias
		if alias == "" {
			alias = k.Module
		}
		return Classification{
			Kind:     EmulateAsNamespace,
			ModuleID: id,
			Alias:    alias,
		}
	}

	c := Classification{
		Kind:        Hoist,
		HoistForm:   HoistDirect,
		HoistModule: k.Module,
		HoistAlias:  k.Alias,
	}
	if opts.NormalizeStdlib && kind == cache.StandardLibrary && k.Alias != "" && strings.Contains(k.Module, ".") {
		c.StdlibNormalized = true
		c.HoistAlias = ""
		c.CanonicalRenames = map[string]string{k.Alias: k.Module}
	}
	return c
}

func classifyFromImport(k depgraph.FromImportKind, lookup ModuleLookup, opts Options) Classification {
	_, firstParty, kind := lookup(k.Module)
	if !firstParty {
		c := Classification{
			Kind:       Hoist,
			HoistForm:  HoistFrom,
			HoistModule: k.Module,
			HoistNames: k.Names,
			HoistLevel: int(k.Level),
		}
		if opts.NormalizeStdlib && kind == cache.StandardLibrary && len(k.Names) > 0 {
			c.StdlibNormalized = true
			c.CanonicalRenames = map[string]string{}
			for _, n := range k.Names {
				local := n.Alias
				if local == "" {
					local = n.Name
				}
				c.CanonicalRenames[local] = k.Module + "." + n.Name
			}
		}
		return c
	}

	moduleID, _, _ := lookup(k.Module)
	symbols := make([]InlineSymbol, 0, len(k.Names))
	for _, n := range k.Names {
		target := n.Alias
		if target == "" {
			target = n.Name
		}
		submoduleName := k.Module + "." + n.Name
		if subID, subFirstParty, _ := lookup(submoduleName); subFirstParty {
			symbols = append(symbols, InlineSymbol{
				SourceName:        n.Name,
				TargetName:        target,
				IsSubmoduleAccess: true,
				ModuleID:          subID,
			})
			continue
		}
		symbols = append(symbols, InlineSymbol{
			SourceName: n.Name,
			TargetName: target,
			ModuleID:   moduleID,
		})
	}
	return Classification{
		Kind:     Inline,
		ModuleID: moduleID,
		Symbols:  symbols,
	}
}
