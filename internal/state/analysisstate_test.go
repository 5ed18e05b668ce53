package state

import (
	"sync"
	"sync/atomic"
	"testing"

	"prism/internal/analyzer"
	"prism/internal/compilation"
)

// testAnalyzer registers a configurable mix of action kinds.
type testAnalyzer struct {
	name      string
	symbols   bool
	nodes     bool
	trees     bool
	codeBlock bool
}

func (a *testAnalyzer) Name() string { return a.name }

func (a *testAnalyzer) Initialize(reg *analyzer.Registrar) {
	if a.symbols {
		reg.RegisterSymbolAction(func(analyzer.SymbolContext) {})
	}
	if a.nodes {
		reg.RegisterSyntaxNodeAction(func(analyzer.NodeContext) {})
	}
	if a.trees {
		reg.RegisterSyntaxTreeAction(func(analyzer.TreeContext) {})
	}
	if a.codeBlock {
		reg.RegisterCodeBlockAction(func(analyzer.CodeBlockContext) {})
	}
}

func actionsFor(sess *analyzer.Session) func(analyzer.Analyzer) *analyzer.Actions {
	return func(a analyzer.Analyzer) *analyzer.Actions {
		return sess.Actions(a)
	}
}

func multiDeclSymbol() *compilation.Symbol {
	return &compilation.Symbol{
		ID:   0,
		Name: "Part",
		Kind: compilation.SymbolType,
		Decls: []compilation.DeclRef{
			{Tree: 0, Node: 1},
			{Tree: 1, Node: 1},
		},
	}
}

func newTracker(t *testing.T, a analyzer.Analyzer) *AnalysisState {
	t.Helper()
	sess := analyzer.NewSession()
	return New([]analyzer.Analyzer{a}, actionsFor(sess), []compilation.TreeID{0, 1})
}

func TestAtMostOneInProcess(t *testing.T) {
	a := &testAnalyzer{name: "ta", symbols: true}
	s := newTracker(t, a)
	ev := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: multiDeclSymbol()}
	s.OnEventGenerated(ev)

	const workers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	var leases [workers]*Lease[*StateData]
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if lease := s.TryStartProcessingEvent(ev, a); lease != nil {
				leases[i] = lease
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("%d concurrent TryStart succeeded, want exactly 1", got)
	}
	for _, l := range leases {
		if l != nil {
			l.Release()
		}
	}
}

func TestResumability(t *testing.T) {
	a := &testAnalyzer{name: "ta", symbols: true}
	s := newTracker(t, a)
	sym := multiDeclSymbol()
	ev := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: sym}
	s.OnEventGenerated(ev)

	lease := s.TryStartSymbolAnalysis(sym, a)
	if lease == nil {
		t.Fatalf("initial TryStart failed")
	}
	lease.Data().MarkActionDone(0)

	// Simulated cancellation: release without completing.
	lease.Release()

	again := s.TryStartSymbolAnalysis(sym, a)
	if again == nil {
		t.Fatalf("TryStart after reset failed; entity starved")
	}
	// Progress made before cancellation must survive the reset.
	if !again.Data().ActionDone(0) {
		t.Errorf("processed-action set lost across reset")
	}
	again.Complete()
	again.Release()

	if s.TryStartSymbolAnalysis(sym, a) != nil {
		t.Errorf("TryStart succeeded on a completed entity")
	}
}

func TestCompletionQueryIdempotence(t *testing.T) {
	a := &testAnalyzer{name: "ta", symbols: false}
	s := newTracker(t, a)
	ev := &compilation.Event{Kind: compilation.EventCompilationStarted}
	s.OnEventGenerated(ev)

	if s.IsEventAnalyzed(ev) {
		t.Fatalf("event analyzed before completion")
	}
	s.MarkEventComplete(ev, a)
	for i := 0; i < 3; i++ {
		if !s.IsEventAnalyzed(ev) {
			t.Fatalf("IsEventAnalyzed flipped back on call %d", i)
		}
	}
}

func TestCascadingCompletionOutOfOrder(t *testing.T) {
	a := &testAnalyzer{name: "ta", symbols: true, nodes: true}
	s := newTracker(t, a)
	sym := multiDeclSymbol()
	ev := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: sym}
	s.OnEventGenerated(ev)
	s.MarkEventComplete(ev, a)

	// Declarations complete out of order; the event must not be reported
	// analyzed until symbol AND both declarations are done.
	s.MarkDeclarationComplete(sym, 1, a)
	if s.IsEventAnalyzed(ev) {
		t.Fatalf("event analyzed with declaration 0 and symbol pending")
	}
	s.MarkSymbolComplete(sym, a)
	if s.IsEventAnalyzed(ev) {
		t.Fatalf("event analyzed with declaration 0 pending")
	}
	s.MarkDeclarationComplete(sym, 0, a)
	if !s.IsEventAnalyzed(ev) {
		t.Fatalf("event not analyzed after all parts completed")
	}
}

func TestScenarioSymbolThenDeclarations(t *testing.T) {
	// Events [SymbolDeclared(S, d1, d2), Started, Completed] with one
	// analyzer registering symbol and node actions: isEventAnalyzed flips
	// only after the third completion call.
	a := &testAnalyzer{name: "ta", symbols: true, nodes: true}
	s := newTracker(t, a)
	sym := multiDeclSymbol()
	symEv := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: sym}
	started := &compilation.Event{Kind: compilation.EventCompilationStarted}
	completed := &compilation.Event{Kind: compilation.EventCompilationCompleted}
	for _, ev := range []*compilation.Event{symEv, started, completed} {
		s.OnEventGenerated(ev)
	}
	s.MarkEventComplete(symEv, a)

	s.MarkSymbolComplete(sym, a)
	if s.IsEventAnalyzed(symEv) {
		t.Fatalf("analyzed after symbol only")
	}
	s.MarkDeclarationComplete(sym, 0, a)
	if s.IsEventAnalyzed(symEv) {
		t.Fatalf("analyzed after first declaration")
	}
	s.MarkDeclarationComplete(sym, 1, a)
	if !s.IsEventAnalyzed(symEv) {
		t.Fatalf("not analyzed after all three completions")
	}
}

func TestPendingEventsPerTree(t *testing.T) {
	a := &testAnalyzer{name: "ta", symbols: true}
	s := newTracker(t, a)
	sym := multiDeclSymbol() // declared in trees 0 and 1
	ev := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: sym}
	s.OnEventGenerated(ev)

	all := []analyzer.Analyzer{a}
	if got := s.PendingEvents(all, 0); len(got) != 1 {
		t.Fatalf("tree 0 pending = %d, want 1", len(got))
	}
	if got := s.PendingEvents(all, 1); len(got) != 1 {
		t.Fatalf("tree 1 pending = %d, want 1", len(got))
	}

	s.MarkEventComplete(ev, a)
	s.MarkSymbolComplete(sym, a)
	if got := s.PendingEvents(all, 0); len(got) != 0 {
		t.Fatalf("tree 0 pending after completion = %d, want 0", len(got))
	}

	s.RetireAnalyzedEvents()
	if got := s.CachedEventCount(); got != 0 {
		t.Errorf("event cache holds %d events after retirement", got)
	}
}

func TestTreePrePopulation(t *testing.T) {
	a := &testAnalyzer{name: "ta", trees: true}
	s := newTracker(t, a)

	// Tree analysis is pending before any event arrives.
	if !s.HasPendingSyntaxAnalysis([]analyzer.Analyzer{a}) {
		t.Fatalf("trees not pre-populated")
	}
	lease := s.TryStartSyntaxAnalysis(0, a)
	if lease == nil {
		t.Fatalf("TryStartSyntaxAnalysis failed on pre-populated tree")
	}
	lease.Complete()
	lease.Release()
	s.MarkSyntaxAnalysisComplete(1, a)
	if s.HasPendingSyntaxAnalysis([]analyzer.Analyzer{a}) {
		t.Errorf("syntax analysis still pending after completing both trees")
	}
}

func TestActionKindFiltering(t *testing.T) {
	// An analyzer with zero symbol actions never gets symbols inserted.
	a := &testAnalyzer{name: "ta", trees: true}
	s := newTracker(t, a)
	sym := multiDeclSymbol()
	ev := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: sym}
	s.OnEventGenerated(ev)

	if s.HasPendingSymbolAnalysis([]analyzer.Analyzer{a}) {
		t.Fatalf("symbol work queued for analyzer without symbol actions")
	}
	// The event entry itself is still tracked for retirement.
	if s.IsEventAnalyzed(ev) {
		t.Fatalf("event considered analyzed before its entry was retired")
	}
	s.MarkEventComplete(ev, a)
	if !s.IsEventAnalyzed(ev) {
		t.Fatalf("event not analyzed once entry retired (no symbol actions)")
	}
}

func TestDeclarationStateResume(t *testing.T) {
	a := &testAnalyzer{name: "ta", nodes: true, codeBlock: true}
	s := newTracker(t, a)
	sym := multiDeclSymbol()
	ev := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: sym}
	s.OnEventGenerated(ev)

	lease := s.TryStartDeclarationAnalysis(sym, 0, a)
	if lease == nil {
		t.Fatalf("declaration TryStart failed")
	}
	decl := lease.Data()
	decl.CurrentNode = 5
	decl.MarkNodeDone(3)
	decl.Block.MarkBlockActionDone(2)
	lease.Release() // cancelled mid-walk

	resumed := s.TryStartDeclarationAnalysis(sym, 0, a)
	if resumed == nil {
		t.Fatalf("declaration TryStart after reset failed")
	}
	d := resumed.Data()
	if !d.NodeDone(3) {
		t.Errorf("processed node set lost")
	}
	if !d.Block.BlockActionDone(2) {
		t.Errorf("code-block action set lost")
	}
	if d.CurrentNode != 5 {
		t.Errorf("current node cursor = %d, want 5", d.CurrentNode)
	}
	resumed.Complete()
	resumed.Release()
}

func TestIndependentAnalyzers(t *testing.T) {
	a1 := &testAnalyzer{name: "a1", symbols: true}
	a2 := &testAnalyzer{name: "a2", symbols: true}
	sess := analyzer.NewSession()
	s := New([]analyzer.Analyzer{a1, a2}, actionsFor(sess), nil)
	sym := multiDeclSymbol()
	ev := &compilation.Event{Kind: compilation.EventSymbolDeclared, Symbol: sym}
	s.OnEventGenerated(ev)

	// Holding the symbol for a1 must not block a2.
	l1 := s.TryStartSymbolAnalysis(sym, a1)
	if l1 == nil {
		t.Fatalf("a1 TryStart failed")
	}
	l2 := s.TryStartSymbolAnalysis(sym, a2)
	if l2 == nil {
		t.Fatalf("a2 TryStart blocked by a1 holding the entity")
	}
	l1.Release()
	l2.Release()
}
