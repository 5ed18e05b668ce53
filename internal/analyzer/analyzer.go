package analyzer

import (
	"prism/internal/compilation"
)

// Analyzer is the unit of work the engine schedules. Implementations must
// be safe for concurrent callback invocation: the driver may run actions of
// one analyzer on several entities at once.
type Analyzer interface {
	// Name returns a stable, unique identifier used in diagnostics,
	// configuration, and queue keys.
	Name() string
	// Initialize registers the analyzer's actions. Called exactly once
	// per analyzer per session.
	Initialize(reg *Registrar)
}

// Registrar collects action registrations. One instance backs an
// analyzer's Initialize call (session scope); fresh instances back each
// compilation-start callback (compilation scope).
type Registrar struct {
	actions Actions
	nextID  *ActionID // shared across scopes of one analyzer
}

// NewRegistrar creates a registrar with its own ID counter.
func NewRegistrar() *Registrar {
	var id ActionID
	return &Registrar{nextID: &id}
}

// child creates a registrar for a nested scope sharing the ID counter.
func (r *Registrar) child() *Registrar {
	return &Registrar{nextID: r.nextID}
}

func (r *Registrar) allocID() ActionID {
	id := *r.nextID
	*r.nextID++
	return id
}

// Actions returns the collected dispatch table.
func (r *Registrar) Actions() *Actions {
	return &r.actions
}

// RegisterCompilationStartAction runs fn when compilation analysis begins;
// fn may register further compilation-scoped actions.
func (r *Registrar) RegisterCompilationStartAction(fn func(CompilationContext)) {
	r.actions.CompilationStart = append(r.actions.CompilationStart, CompilationAction{ID: r.allocID(), Fn: fn})
}

// RegisterCompilationEndAction runs fn when every other pending action of
// this analyzer has completed.
func (r *Registrar) RegisterCompilationEndAction(fn func(CompilationContext)) {
	r.actions.CompilationEnd = append(r.actions.CompilationEnd, CompilationAction{ID: r.allocID(), Fn: fn})
}

// RegisterSymbolAction runs fn once per declared symbol matching kinds
// (all kinds when empty).
func (r *Registrar) RegisterSymbolAction(fn func(SymbolContext), kinds ...compilation.SymbolKind) {
	r.actions.Symbol = append(r.actions.Symbol, SymbolAction{ID: r.allocID(), Kinds: kinds, Fn: fn})
}

// RegisterSyntaxNodeAction runs fn once per matching node of every
// declaration the analyzer visits.
func (r *Registrar) RegisterSyntaxNodeAction(fn func(NodeContext), kinds ...compilation.NodeKind) {
	r.actions.Node = append(r.actions.Node, NodeAction{ID: r.allocID(), Kinds: kinds, Fn: fn})
}

// RegisterCodeBlockAction runs fn once per declaration carrying a body.
func (r *Registrar) RegisterCodeBlockAction(fn func(CodeBlockContext)) {
	r.actions.CodeBlock = append(r.actions.CodeBlock, CodeBlockAction{ID: r.allocID(), Fn: fn})
}

// RegisterCodeBlockEndAction runs fn after all node actions inside the
// block have run.
func (r *Registrar) RegisterCodeBlockEndAction(fn func(CodeBlockContext)) {
	r.actions.CodeBlockEnd = append(r.actions.CodeBlockEnd, CodeBlockAction{ID: r.allocID(), Fn: fn})
}

// RegisterSyntaxTreeAction runs fn once per syntax tree.
func (r *Registrar) RegisterSyntaxTreeAction(fn func(TreeContext)) {
	r.actions.Tree = append(r.actions.Tree, TreeAction{ID: r.allocID(), Fn: fn})
}
