package state

import (
	"sync"
	"sync/atomic"

	"prism/internal/analyzer"
	"prism/internal/compilation"
)

// notStarted is the sentinel stored for entities that are pending but have
// never been acquired. The state record is allocated lazily on first
// acquisition, so an entity that is skipped wholesale never allocates.
var notStarted any = &struct{ _ byte }{}

// DeclKey addresses one declaring syntax reference of a symbol.
type DeclKey struct {
	Symbol *compilation.Symbol
	Index  int
}

// PerAnalyzerState owns the four pending-entity maps of one analyzer.
// All maps are mutated concurrently by workers; sync.Map plus per-entity
// CAS keeps every operation non-blocking. An entity absent from its map is
// fully processed for this analyzer; present (even as notStarted) means
// still pending.
type PerAnalyzerState struct {
	actions *analyzer.Actions

	pendingEvents  sync.Map // *compilation.Event -> notStarted | *StateData
	pendingSymbols sync.Map // *compilation.Symbol -> notStarted | *StateData
	pendingDecls   sync.Map // DeclKey -> notStarted | *DeclarationState
	pendingTrees   sync.Map // compilation.TreeID -> notStarted | *StateData

	eventCount  atomic.Int64
	symbolCount atomic.Int64
	declCount   atomic.Int64
	treeCount   atomic.Int64
}

// NewPerAnalyzerState creates the pending maps for one analyzer. When the
// analyzer registered syntax-tree actions, every tree of the compilation is
// pre-populated as pending up front (rather than lazily on the first
// compilation-started event), so tree-analysis queries are correct before
// any event has been processed.
func NewPerAnalyzerState(actions *analyzer.Actions, trees []compilation.TreeID) *PerAnalyzerState {
	p := &PerAnalyzerState{actions: actions}
	if actions.HasTreeActions() {
		for _, id := range trees {
			if _, loaded := p.pendingTrees.LoadOrStore(id, notStarted); !loaded {
				p.treeCount.Add(1)
			}
		}
	}
	return p
}

// Actions returns the analyzer's dispatch table.
func (p *PerAnalyzerState) Actions() *analyzer.Actions {
	return p.actions
}

// OnEventGenerated registers the entities the event implies for this
// analyzer, filtered by the action kinds it actually registered: an
// analyzer with no symbol actions never sees symbols in pendingSymbols.
// The event entry itself is always tracked; it is what retires the event
// from the shared cache.
func (p *PerAnalyzerState) OnEventGenerated(ev *compilation.Event) {
	if _, loaded := p.pendingEvents.LoadOrStore(ev, notStarted); !loaded {
		p.eventCount.Add(1)
	}
	switch ev.Kind {
	case compilation.EventSymbolDeclared:
		sym := ev.Symbol
		if p.actions.HasSymbolActions(sym.Kind) {
			if _, loaded := p.pendingSymbols.LoadOrStore(sym, notStarted); !loaded {
				p.symbolCount.Add(1)
			}
		}
		if p.actions.HasDeclarationActions() {
			for i := range sym.Decls {
				if _, loaded := p.pendingDecls.LoadOrStore(DeclKey{Symbol: sym, Index: i}, notStarted); !loaded {
					p.declCount.Add(1)
				}
			}
		}
	case compilation.EventUnitCompleted:
		if p.actions.HasTreeActions() {
			if _, loaded := p.pendingTrees.LoadOrStore(ev.Tree, notStarted); !loaded {
				p.treeCount.Add(1)
			}
		}
	}
}

// tryStart attempts the non-blocking Ready -> InProcess acquisition on one
// map entry, allocating the record on first touch. Exactly one caller wins
// for any interleaving; losers see (nil, false) and move on.
func tryStart[T holder](m *sync.Map, key any, fresh func() T) (T, bool) {
	var zero T
	v, ok := m.Load(key)
	if !ok {
		// Absent: fully processed (or never tracked) for this analyzer.
		return zero, false
	}
	for {
		if v == notStarted {
			n := fresh()
			n.base().flag.Store(int32(InProcess))
			if m.CompareAndSwap(key, notStarted, n) {
				return n, true
			}
			// Lost the allocation race; reload and retry against the
			// winner's record (or give up if it was completed meanwhile).
			if v, ok = m.Load(key); !ok {
				return zero, false
			}
			continue
		}
		h, _ := v.(T)
		if h.base().tryAcquire() {
			return h, true
		}
		return zero, false
	}
}

// TryStartEvent acquires the event entity.
func (p *PerAnalyzerState) TryStartEvent(ev *compilation.Event) (*StateData, bool) {
	return tryStart(&p.pendingEvents, ev, NewStateData)
}

// TryStartSymbol acquires the symbol entity.
func (p *PerAnalyzerState) TryStartSymbol(sym *compilation.Symbol) (*StateData, bool) {
	return tryStart(&p.pendingSymbols, sym, NewStateData)
}

// TryStartDeclaration acquires one declaring reference of a symbol.
func (p *PerAnalyzerState) TryStartDeclaration(sym *compilation.Symbol, index int) (*DeclarationState, bool) {
	return tryStart(&p.pendingDecls, DeclKey{Symbol: sym, Index: index}, NewDeclarationState)
}

// TryStartTree acquires the whole-tree entity.
func (p *PerAnalyzerState) TryStartTree(id compilation.TreeID) (*StateData, bool) {
	return tryStart(&p.pendingTrees, id, NewStateData)
}

// markComplete removes an entity from its pending map. Completing an
// entity twice is a driver bug, asserted in debug builds.
func markComplete(m *sync.Map, key any, count *atomic.Int64, what string) bool {
	_, found := m.LoadAndDelete(key)
	debugAssert(found, "double completion of %s entity", what)
	if found {
		count.Add(-1)
	}
	return found
}

// MarkEventComplete retires the event entity.
func (p *PerAnalyzerState) MarkEventComplete(ev *compilation.Event) bool {
	return markComplete(&p.pendingEvents, ev, &p.eventCount, "event")
}

// MarkSymbolComplete retires the symbol entity.
func (p *PerAnalyzerState) MarkSymbolComplete(sym *compilation.Symbol) bool {
	return markComplete(&p.pendingSymbols, sym, &p.symbolCount, "symbol")
}

// MarkDeclarationComplete retires one declaring reference.
func (p *PerAnalyzerState) MarkDeclarationComplete(sym *compilation.Symbol, index int) bool {
	return markComplete(&p.pendingDecls, DeclKey{Symbol: sym, Index: index}, &p.declCount, "declaration")
}

// MarkTreeComplete retires the whole-tree entity.
func (p *PerAnalyzerState) MarkTreeComplete(id compilation.TreeID) bool {
	return markComplete(&p.pendingTrees, id, &p.treeCount, "tree")
}

// IsEventProcessed reports whether the event is fully processed for this
// analyzer. Completion cascades bottom-up: a symbol-declared event is done
// only when its event entry, symbol entry, and every declaring reference
// have all been retired.
func (p *PerAnalyzerState) IsEventProcessed(ev *compilation.Event) bool {
	if _, pending := p.pendingEvents.Load(ev); pending {
		return false
	}
	if ev.Kind != compilation.EventSymbolDeclared {
		return true
	}
	sym := ev.Symbol
	if _, pending := p.pendingSymbols.Load(sym); pending {
		return false
	}
	for i := range sym.Decls {
		if _, pending := p.pendingDecls.Load(DeclKey{Symbol: sym, Index: i}); pending {
			return false
		}
	}
	return true
}

// HasPendingEvents is a cheap existence check over the event map.
func (p *PerAnalyzerState) HasPendingEvents() bool {
	return p.eventCount.Load() > 0
}

// HasPendingSymbolAnalysis covers symbols and their declarations.
func (p *PerAnalyzerState) HasPendingSymbolAnalysis() bool {
	return p.symbolCount.Load() > 0 || p.declCount.Load() > 0
}

// HasPendingSyntaxAnalysis covers whole-tree actions.
func (p *PerAnalyzerState) HasPendingSyntaxAnalysis() bool {
	return p.treeCount.Load() > 0
}
