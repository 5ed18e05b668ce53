package state

import (
	"sync"

	"prism/internal/analyzer"
	"prism/internal/compilation"
)

// AnalysisState aggregates one PerAnalyzerState per registered analyzer
// plus the shared event cache indexed by syntax tree. The driver feeds
// events in, asks what is pending, and marks entities complete as workers
// finish; analyzers never touch this type directly.
//
// The per-analyzer maps are lock-free; the RWMutex here only guards the
// tree-indexed event cache, which is read-mostly after the feeding phase.
type AnalysisState struct {
	analyzers []analyzer.Analyzer
	states    map[analyzer.Analyzer]*PerAnalyzerState

	mu              sync.RWMutex
	eventsCache     map[compilation.TreeID][]*compilation.Event
	nonSourceEvents map[*compilation.Event]struct{}
}

// New creates the tracker for a fixed analyzer set. actionsFor must return
// the full (session + compilation scope) action table of each analyzer;
// trees lists every syntax tree of the compilation for pre-population.
func New(analyzers []analyzer.Analyzer, actionsFor func(analyzer.Analyzer) *analyzer.Actions, trees []compilation.TreeID) *AnalysisState {
	s := &AnalysisState{
		analyzers:       analyzers,
		states:          make(map[analyzer.Analyzer]*PerAnalyzerState, len(analyzers)),
		eventsCache:     make(map[compilation.TreeID][]*compilation.Event),
		nonSourceEvents: make(map[*compilation.Event]struct{}),
	}
	for _, a := range analyzers {
		s.states[a] = NewPerAnalyzerState(actionsFor(a), trees)
	}
	return s
}

// Analyzers returns the registered analyzer set.
func (s *AnalysisState) Analyzers() []analyzer.Analyzer {
	return s.analyzers
}

// StateFor returns the per-analyzer state, or nil for an unknown analyzer.
func (s *AnalysisState) StateFor(a analyzer.Analyzer) *PerAnalyzerState {
	return s.states[a]
}

// OnEventGenerated registers the event in the tree-indexed cache and in
// every analyzer's pending maps (filtered by registered action kinds).
func (s *AnalysisState) OnEventGenerated(ev *compilation.Event) {
	s.mu.Lock()
	if ev.SourceEvent() {
		for _, tree := range ev.Trees() {
			s.eventsCache[tree] = append(s.eventsCache[tree], ev)
		}
	} else {
		s.nonSourceEvents[ev] = struct{}{}
	}
	s.mu.Unlock()

	for _, a := range s.analyzers {
		s.states[a].OnEventGenerated(ev)
	}
}

// TryStartProcessingEvent atomically acquires the event entity for one
// analyzer. Returns nil when another worker holds it or it is already
// fully processed. Different analyzers acquire independently.
func (s *AnalysisState) TryStartProcessingEvent(ev *compilation.Event, a analyzer.Analyzer) *Lease[*StateData] {
	p := s.states[a]
	if p == nil {
		return nil
	}
	data, ok := p.TryStartEvent(ev)
	if !ok {
		return nil
	}
	return newLease(data, func() bool { return p.MarkEventComplete(ev) })
}

// TryStartSymbolAnalysis acquires the symbol entity for one analyzer.
func (s *AnalysisState) TryStartSymbolAnalysis(sym *compilation.Symbol, a analyzer.Analyzer) *Lease[*StateData] {
	p := s.states[a]
	if p == nil {
		return nil
	}
	data, ok := p.TryStartSymbol(sym)
	if !ok {
		return nil
	}
	return newLease(data, func() bool { return p.MarkSymbolComplete(sym) })
}

// TryStartDeclarationAnalysis acquires one declaring reference for one
// analyzer.
func (s *AnalysisState) TryStartDeclarationAnalysis(sym *compilation.Symbol, index int, a analyzer.Analyzer) *Lease[*DeclarationState] {
	p := s.states[a]
	if p == nil {
		return nil
	}
	data, ok := p.TryStartDeclaration(sym, index)
	if !ok {
		return nil
	}
	return newLease(data, func() bool { return p.MarkDeclarationComplete(sym, index) })
}

// TryStartSyntaxAnalysis acquires the whole-tree entity for one analyzer.
func (s *AnalysisState) TryStartSyntaxAnalysis(tree compilation.TreeID, a analyzer.Analyzer) *Lease[*StateData] {
	p := s.states[a]
	if p == nil {
		return nil
	}
	data, ok := p.TryStartTree(tree)
	if !ok {
		return nil
	}
	return newLease(data, func() bool { return p.MarkTreeComplete(tree) })
}

// MarkEventComplete retires the event for one analyzer without going
// through a lease (used when the analyzer has nothing to do for it).
func (s *AnalysisState) MarkEventComplete(ev *compilation.Event, a analyzer.Analyzer) bool {
	return s.states[a].MarkEventComplete(ev)
}

// MarkSymbolComplete retires the symbol for one analyzer.
func (s *AnalysisState) MarkSymbolComplete(sym *compilation.Symbol, a analyzer.Analyzer) bool {
	return s.states[a].MarkSymbolComplete(sym)
}

// MarkDeclarationComplete retires one declaring reference for one analyzer.
func (s *AnalysisState) MarkDeclarationComplete(sym *compilation.Symbol, index int, a analyzer.Analyzer) bool {
	return s.states[a].MarkDeclarationComplete(sym, index)
}

// MarkSyntaxAnalysisComplete retires the whole-tree entity for one analyzer.
func (s *AnalysisState) MarkSyntaxAnalysisComplete(tree compilation.TreeID, a analyzer.Analyzer) bool {
	return s.states[a].MarkTreeComplete(tree)
}

// IsEventAnalyzed reports whether every registered analyzer has fully
// processed the event (cascading through symbols and declarations).
func (s *AnalysisState) IsEventAnalyzed(ev *compilation.Event) bool {
	for _, a := range s.analyzers {
		if !s.states[a].IsEventProcessed(ev) {
			return false
		}
	}
	return true
}

// PendingEvents returns the cached events of a tree that remain pending
// for at least one of the given analyzers. A diagnostics request for a
// document triggers more analysis iff this is non-empty.
func (s *AnalysisState) PendingEvents(analyzers []analyzer.Analyzer, tree compilation.TreeID) []*compilation.Event {
	s.mu.RLock()
	cached := s.eventsCache[tree]
	s.mu.RUnlock()

	var pending []*compilation.Event
	for _, ev := range cached {
		for _, a := range analyzers {
			if p := s.states[a]; p != nil && !p.IsEventProcessed(ev) {
				pending = append(pending, ev)
				break
			}
		}
	}
	return pending
}

// RetireAnalyzedEvents drops cache entries every analyzer has finished
// with. Safe to call at any point; typically the driver sweeps after each
// scheduling wave.
func (s *AnalysisState) RetireAnalyzedEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tree, events := range s.eventsCache {
		kept := events[:0]
		for _, ev := range events {
			if !s.isAnalyzedLocked(ev) {
				kept = append(kept, ev)
			}
		}
		if len(kept) == 0 {
			delete(s.eventsCache, tree)
		} else {
			s.eventsCache[tree] = kept
		}
	}
	for ev := range s.nonSourceEvents {
		if s.isAnalyzedLocked(ev) {
			delete(s.nonSourceEvents, ev)
		}
	}
}

func (s *AnalysisState) isAnalyzedLocked(ev *compilation.Event) bool {
	for _, a := range s.analyzers {
		if !s.states[a].IsEventProcessed(ev) {
			return false
		}
	}
	return true
}

// CachedEventCount reports how many events remain in the caches; used by
// completion checks and tests.
func (s *AnalysisState) CachedEventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.nonSourceEvents)
	for _, events := range s.eventsCache {
		n += len(events)
	}
	return n
}

// HasPendingSyntaxAnalysis reports whether any of the analyzers still has
// whole-tree work.
func (s *AnalysisState) HasPendingSyntaxAnalysis(analyzers []analyzer.Analyzer) bool {
	for _, a := range analyzers {
		if p := s.states[a]; p != nil && p.HasPendingSyntaxAnalysis() {
			return true
		}
	}
	return false
}

// HasPendingSymbolAnalysis reports whether any of the analyzers still has
// symbol or declaration work.
func (s *AnalysisState) HasPendingSymbolAnalysis(analyzers []analyzer.Analyzer) bool {
	for _, a := range analyzers {
		if p := s.states[a]; p != nil && p.HasPendingSymbolAnalysis() {
			return true
		}
	}
	return false
}
