// Package rename is the conflict and rename planner: given every
// module-global symbol name that collides across modules, it assigns a
// stable, deterministic rename to every instance but the first.
package rename

import (
	"strings"

	"github.com/cribo-go/cribo/internal/ids"
)

// ConflictEntry is one module's binding of a colliding symbol name.
type ConflictEntry struct {
	ModuleName string
	GlobalID   ids.GlobalBindingId
}

// SymbolConflict is a symbol name bound in more than one module, naming
// every module that binds it.
type SymbolConflict struct {
	SymbolName string
	Conflicts  []ConflictEntry
}

// Entry is one rename assignment, kept in the order it was computed so
// callers that need a deterministic iteration order (diagnostics, golden
// tests) don't have to re-derive it from Go's unordered map iteration.
type Entry struct {
	ID      ids.GlobalBindingId
	NewName string
}

// Plan is the stable mapping from global binding to its fresh name.
type Plan struct {
	entries []Entry
	byID    map[ids.GlobalBindingId]string
}

// NewName looks up the rename assigned to a binding, if any. A binding with
// no entry keeps its original name — it was the first instance of its
// symbol, or it never conflicted.
func (p *Plan) NewName(id ids.GlobalBindingId) (string, bool) {
	name, ok := p.byID[id]
	return name, ok
}

// Entries returns every rename assignment in computation order.
func (p *Plan) Entries() []Entry {
	return p.entries
}

// Compute builds the rename plan. Conflicts must already be presented in
// stable (module name, item order) — the module graph's registration
// order and each module's item order are both deterministic — so Compute
// performs no sorting of its own; it only keeps the first conflict
// entry's name and renames every other entry in the order given.
func Compute(conflicts []SymbolConflict) *Plan {
	p := &Plan{byID: make(map[ids.GlobalBindingId]string)}
	for _, c := range conflicts {
		for i, entry := range c.Conflicts {
			if i == 0 {
				// the first instance keeps its name
				continue
			}
			newName := c.SymbolName + "_" + Sanitize(entry.ModuleName)
			p.entries = append(p.entries, Entry{ID: entry.GlobalID, NewName: newName})
			p.byID[entry.GlobalID] = newName
		}
	}
	return p
}

// Sanitize replaces every non-identifier character with "_". It is
// idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isIdentifierRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isIdentifierRune(r rune) bool {
	switch {
	case r == '_':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return false
	}
}
