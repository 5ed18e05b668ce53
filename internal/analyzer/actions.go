package analyzer

import (
	"context"

	"prism/internal/compilation"
	"prism/internal/diag"
	"prism/internal/op"
)

// ActionID identifies one registered action within its analyzer. IDs are
// dense and stable for the lifetime of a session, so the scheduler can
// track per-entity "already executed" sets as small maps keyed by ID.
type ActionID uint16

// ActionKind enumerates the registration surfaces.
type ActionKind uint8

const (
	ActionCompilationStart ActionKind = iota
	ActionCompilationEnd
	ActionSymbol
	ActionSyntaxNode
	ActionCodeBlock
	ActionCodeBlockEnd
	ActionSyntaxTree
)

func (k ActionKind) String() string {
	switch k {
	case ActionCompilationStart:
		return "compilation-start"
	case ActionCompilationEnd:
		return "compilation-end"
	case ActionSymbol:
		return "symbol"
	case ActionSyntaxNode:
		return "syntax-node"
	case ActionCodeBlock:
		return "code-block"
	case ActionCodeBlockEnd:
		return "code-block-end"
	case ActionSyntaxTree:
		return "syntax-tree"
	}
	return "unknown"
}

// ActionContext is the shared payload every callback receives.
type ActionContext struct {
	Ctx         context.Context
	Compilation *compilation.Compilation
	Reporter    diag.Reporter
	Resolve     compilation.ModelResolver
}

// SymbolContext is passed to symbol actions.
type SymbolContext struct {
	ActionContext
	Symbol *compilation.Symbol
}

// NodeContext is passed to syntax-node actions.
type NodeContext struct {
	ActionContext
	Tree *compilation.SyntaxTree
	Node *compilation.Node
}

// CodeBlockContext is passed to code-block and code-block-end actions.
type CodeBlockContext struct {
	ActionContext
	Symbol *compilation.Symbol
	Decl   compilation.DeclRef
	Body   *op.Operation
}

// TreeContext is passed to syntax-tree actions.
type TreeContext struct {
	ActionContext
	Tree *compilation.SyntaxTree
}

// CompilationContext is passed to compilation start/end actions. Start
// actions may register further compilation-scoped actions through Scope.
type CompilationContext struct {
	ActionContext
	Scope *Registrar
}

// SymbolAction is a registered symbol callback with its kind filter.
type SymbolAction struct {
	ID    ActionID
	Kinds []compilation.SymbolKind
	Fn    func(SymbolContext)
}

// AppliesTo reports whether the action subscribed to the given symbol kind.
// An empty filter matches every kind.
func (a SymbolAction) AppliesTo(kind compilation.SymbolKind) bool {
	if len(a.Kinds) == 0 {
		return true
	}
	for _, k := range a.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NodeAction is a registered syntax-node callback with its kind filter.
type NodeAction struct {
	ID    ActionID
	Kinds []compilation.NodeKind
	Fn    func(NodeContext)
}

// AppliesTo reports whether the action subscribed to the given node kind.
func (a NodeAction) AppliesTo(kind compilation.NodeKind) bool {
	if len(a.Kinds) == 0 {
		return true
	}
	for _, k := range a.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CodeBlockAction is a registered code-block callback.
type CodeBlockAction struct {
	ID ActionID
	Fn func(CodeBlockContext)
}

// TreeAction is a registered syntax-tree callback.
type TreeAction struct {
	ID ActionID
	Fn func(TreeContext)
}

// CompilationAction is a registered compilation start/end callback.
type CompilationAction struct {
	ID ActionID
	Fn func(CompilationContext)
}

// Actions is the dispatch table built from one analyzer's registrations.
type Actions struct {
	CompilationStart []CompilationAction
	CompilationEnd   []CompilationAction
	Symbol           []SymbolAction
	Node             []NodeAction
	CodeBlock        []CodeBlockAction
	CodeBlockEnd     []CodeBlockAction
	Tree             []TreeAction
}

// HasSymbolActions reports whether any symbol action matches the kind.
func (a *Actions) HasSymbolActions(kind compilation.SymbolKind) bool {
	for _, act := range a.Symbol {
		if act.AppliesTo(kind) {
			return true
		}
	}
	return false
}

// HasDeclarationActions reports whether declarations need per-reference
// tracking: any node, code-block, or code-block-end action implies it.
func (a *Actions) HasDeclarationActions() bool {
	return len(a.Node) > 0 || len(a.CodeBlock) > 0 || len(a.CodeBlockEnd) > 0
}

// HasTreeActions reports whether whole-tree analysis was requested.
func (a *Actions) HasTreeActions() bool {
	return len(a.Tree) > 0
}

// Merge appends the actions of other (compilation-scoped registrations)
// onto a copy of a, preserving action IDs assigned at registration time.
func (a *Actions) Merge(other *Actions) *Actions {
	if other == nil {
		return a
	}
	out := &Actions{}
	out.CompilationStart = append(append([]CompilationAction(nil), a.CompilationStart...), other.CompilationStart...)
	out.CompilationEnd = append(append([]CompilationAction(nil), a.CompilationEnd...), other.CompilationEnd...)
	out.Symbol = append(append([]SymbolAction(nil), a.Symbol...), other.Symbol...)
	out.Node = append(append([]NodeAction(nil), a.Node...), other.Node...)
	out.CodeBlock = append(append([]CodeBlockAction(nil), a.CodeBlock...), other.CodeBlock...)
	out.CodeBlockEnd = append(append([]CodeBlockAction(nil), a.CodeBlockEnd...), other.CodeBlockEnd...)
	out.Tree = append(append([]TreeAction(nil), a.Tree...), other.Tree...)
	return out
}
