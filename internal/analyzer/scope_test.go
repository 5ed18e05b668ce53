package analyzer

import (
	"sync"
	"sync/atomic"
	"testing"

	"prism/internal/compilation"
)

// countingAnalyzer records how many times Initialize ran.
type countingAnalyzer struct {
	name      string
	initCount atomic.Int32
	startRuns atomic.Int32
}

func (a *countingAnalyzer) Name() string { return a.name }

func (a *countingAnalyzer) Initialize(reg *Registrar) {
	a.initCount.Add(1)
	reg.RegisterSymbolAction(func(SymbolContext) {}, compilation.SymbolFunc)
	reg.RegisterCompilationStartAction(func(ctx CompilationContext) {
		a.startRuns.Add(1)
		ctx.Scope.RegisterSyntaxTreeAction(func(TreeContext) {})
	})
}

func TestSessionInitializeOnce(t *testing.T) {
	a := &countingAnalyzer{name: "counting"}
	sess := NewSession()

	const goroutines = 16
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Actions(a)
		}()
	}
	wg.Wait()

	if got := a.initCount.Load(); got != 1 {
		t.Fatalf("Initialize ran %d times, want exactly 1", got)
	}
	actions := sess.Actions(a)
	if len(actions.Symbol) != 1 || len(actions.CompilationStart) != 1 {
		t.Errorf("actions = %d symbol, %d start; want 1/1",
			len(actions.Symbol), len(actions.CompilationStart))
	}
}

func TestCompilationScopeOnce(t *testing.T) {
	a := &countingAnalyzer{name: "counting"}
	sess := NewSession()
	data := NewCompilationData(sess)

	const goroutines = 16
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data.Actions(a, ActionContext{})
		}()
	}
	wg.Wait()

	if got := a.startRuns.Load(); got != 1 {
		t.Fatalf("compilation-start ran %d times, want exactly 1", got)
	}
	merged := data.Actions(a, ActionContext{})
	if len(merged.Tree) != 1 {
		t.Errorf("merged tree actions = %d, want 1 (compilation-scoped)", len(merged.Tree))
	}
	// Session table must stay untouched by compilation-scoped registrations.
	if len(sess.Actions(a).Tree) != 0 {
		t.Errorf("session scope leaked compilation-scoped actions")
	}
}

func TestActionIDsUniqueAcrossScopes(t *testing.T) {
	a := &countingAnalyzer{name: "counting"}
	sess := NewSession()
	data := NewCompilationData(sess)
	merged := data.Actions(a, ActionContext{})

	seen := make(map[ActionID]bool)
	record := func(id ActionID) {
		if seen[id] {
			t.Fatalf("duplicate action ID %d", id)
		}
		seen[id] = true
	}
	for _, act := range merged.Symbol {
		record(act.ID)
	}
	for _, act := range merged.CompilationStart {
		record(act.ID)
	}
	for _, act := range merged.Tree {
		record(act.ID)
	}
}

func TestSymbolActionKindFilter(t *testing.T) {
	act := SymbolAction{Kinds: []compilation.SymbolKind{compilation.SymbolFunc}}
	if !act.AppliesTo(compilation.SymbolFunc) {
		t.Errorf("AppliesTo(func) = false")
	}
	if act.AppliesTo(compilation.SymbolVar) {
		t.Errorf("AppliesTo(var) = true for func-only action")
	}
	open := SymbolAction{}
	if !open.AppliesTo(compilation.SymbolVar) {
		t.Errorf("empty filter must match every kind")
	}
}
