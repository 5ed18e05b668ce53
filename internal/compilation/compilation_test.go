package compilation

import (
	"testing"

	"prism/internal/source"
)

func twoTreeCompilation() *Compilation {
	fs := source.NewFileSet()
	f1 := fs.AddVirtual("a.pr", []byte("func F() {}\n"))
	f2 := fs.AddVirtual("b.pr", []byte("func F() {} // partial\n"))

	t1 := &SyntaxTree{ID: 0, Path: "a.pr", File: f1, Nodes: []Node{
		{ID: 0, Kind: NodeFile, Children: []NodeID{1}},
		{ID: 1, Kind: NodeFuncDecl, Text: "F", Span: source.Span{File: f1, Start: 0, End: 11}},
	}}
	t2 := &SyntaxTree{ID: 1, Path: "b.pr", File: f2, Nodes: []Node{
		{ID: 0, Kind: NodeFile, Children: []NodeID{1}},
		{ID: 1, Kind: NodeFuncDecl, Text: "F", Span: source.Span{File: f2, Start: 0, End: 11}},
	}}

	sym := &Symbol{
		ID: 0, Name: "F", Kind: SymbolFunc, Exported: true,
		Decls: []DeclRef{
			{Tree: 0, Node: 1, Span: t1.Nodes[1].Span},
			{Tree: 1, Node: 1, Span: t2.Nodes[1].Span},
		},
	}

	return &Compilation{
		Name:    "demo",
		Trees:   []*SyntaxTree{t1, t2},
		Symbols: []*Symbol{sym},
		Files:   fs,
	}
}

func TestEventsOrder(t *testing.T) {
	c := twoTreeCompilation()
	events := c.Events()
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	wantKinds := []EventKind{
		EventCompilationStarted,
		EventSymbolDeclared,
		EventUnitCompleted,
		EventUnitCompleted,
		EventCompilationCompleted,
	}
	for i, ev := range events {
		if ev.Kind != wantKinds[i] {
			t.Errorf("events[%d].Kind = %v, want %v", i, ev.Kind, wantKinds[i])
		}
	}
}

func TestEventTrees(t *testing.T) {
	c := twoTreeCompilation()
	events := c.Events()

	symEvent := events[1]
	trees := symEvent.Trees()
	if len(trees) != 2 {
		t.Fatalf("symbol event touches %d trees, want 2", len(trees))
	}
	if !symEvent.SourceEvent() {
		t.Errorf("symbol-declared must be a source event")
	}
	if events[0].SourceEvent() {
		t.Errorf("compilation-started must not be a source event")
	}
}

func TestDigestStable(t *testing.T) {
	a := twoTreeCompilation()
	b := twoTreeCompilation()
	if a.Digest() != b.Digest() {
		t.Errorf("identical compilations must share a digest")
	}
	b.Symbols[0].Name = "G"
	c := twoTreeCompilation()
	c.Symbols[0].Name = "G"
	if a.Digest() == c.Digest() {
		t.Errorf("renamed symbol must change the digest")
	}
}

func TestSemanticModelSymbolAt(t *testing.T) {
	c := twoTreeCompilation()
	model := c.Resolver()(0)
	if model == nil {
		t.Fatalf("resolver returned nil model")
	}
	sym := model.SymbolAt(1)
	if sym == nil || sym.Name != "F" {
		t.Fatalf("SymbolAt(1) = %v, want F", sym)
	}
	if model.SymbolAt(0) != nil {
		t.Errorf("SymbolAt(file node) should be nil")
	}
}

func TestTreeWalk(t *testing.T) {
	c := twoTreeCompilation()
	var kinds []NodeKind
	c.Trees[0].Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	if len(kinds) != 2 || kinds[0] != NodeFile || kinds[1] != NodeFuncDecl {
		t.Errorf("Walk visited %v", kinds)
	}
}
