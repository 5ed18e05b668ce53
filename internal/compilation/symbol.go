package compilation

import (
	"prism/internal/op"
	"prism/internal/source"
)

// SymbolID identifies a symbol within a Compilation.
type SymbolID uint32

// SymbolKind enumerates the symbol kinds analyzers can subscribe to.
type SymbolKind uint8

const (
	SymbolFunc SymbolKind = iota
	SymbolType
	SymbolVar
	SymbolConst
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunc:
		return "func"
	case SymbolType:
		return "type"
	case SymbolVar:
		return "var"
	case SymbolConst:
		return "const"
	}
	return "unknown"
}

// DeclRef is one declaring syntax reference of a symbol. A symbol declared
// across several units (partial declarations) carries one DeclRef per unit,
// and the scheduler tracks each independently.
type DeclRef struct {
	Tree TreeID
	Node NodeID
	Span source.Span
}

// Symbol is a declared program entity. Body holds the operation tree of
// the symbol's executable code block per declaration (nil for symbols
// without one); code-block actions and the flow engine consume it.
type Symbol struct {
	ID       SymbolID
	Name     string
	Kind     SymbolKind
	Exported bool
	Decls    []DeclRef
	Bodies   []*op.Operation // parallel to Decls; nil entries allowed
}

// Body returns the operation tree attached to the i-th declaration.
func (s *Symbol) Body(i int) *op.Operation {
	if s == nil || i < 0 || i >= len(s.Bodies) {
		return nil
	}
	return s.Bodies[i]
}
