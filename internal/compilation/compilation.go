package compilation

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"prism/internal/source"
)

// Digest is a content hash identifying a compilation for caching.
type Digest [32]byte

func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:8])
}

// Compilation is the immutable input of one analysis run: all syntax
// trees, all declared symbols, and the file set their spans resolve
// against. The host assembles it; the engine only reads it.
type Compilation struct {
	Name    string
	Trees   []*SyntaxTree
	Symbols []*Symbol
	Files   *source.FileSet

	digest    Digest
	hasDigest bool
}

// Tree returns the syntax tree with the given ID, or nil.
func (c *Compilation) Tree(id TreeID) *SyntaxTree {
	if c == nil || int(id) >= len(c.Trees) {
		return nil
	}
	return c.Trees[id]
}

// Symbol returns the symbol with the given ID, or nil.
func (c *Compilation) Symbol(id SymbolID) *Symbol {
	if c == nil || int(id) >= len(c.Symbols) {
		return nil
	}
	return c.Symbols[id]
}

// Events materializes the compilation event stream in dependency order:
// started, one symbol-declared per symbol, one unit-completed per tree,
// completed. Each call allocates fresh events; callers that care about
// event identity must hold on to one stream.
func (c *Compilation) Events() []*Event {
	events := make([]*Event, 0, len(c.Symbols)+len(c.Trees)+2)
	events = append(events, &Event{Kind: EventCompilationStarted})
	for _, sym := range c.Symbols {
		events = append(events, &Event{Kind: EventSymbolDeclared, Symbol: sym})
	}
	for _, tree := range c.Trees {
		events = append(events, &Event{Kind: EventUnitCompleted, Tree: tree.ID})
	}
	events = append(events, &Event{Kind: EventCompilationCompleted})
	return events
}

// Digest returns a stable content hash over tree paths, file hashes and
// symbol declarations. Computed once and memoized; Compilation is treated
// as immutable after assembly.
func (c *Compilation) Digest() Digest {
	if c.hasDigest {
		return c.digest
	}
	h := sha256.New()
	h.Write([]byte(c.Name))
	var buf [4]byte
	for _, tree := range c.Trees {
		h.Write([]byte(tree.Path))
		if c.Files != nil && int(tree.File) < c.Files.Len() {
			fileHash := c.Files.Get(tree.File).Hash
			h.Write(fileHash[:])
		}
		binary.LittleEndian.PutUint32(buf[:], uint32(len(tree.Nodes)))
		h.Write(buf[:])
	}
	for _, sym := range c.Symbols {
		h.Write([]byte(sym.Name))
		binary.LittleEndian.PutUint32(buf[:], uint32(len(sym.Decls)))
		h.Write(buf[:])
	}
	copy(c.digest[:], h.Sum(nil))
	c.hasDigest = true
	return c.digest
}

// SemanticModel exposes per-tree semantic queries to analyzer callbacks.
// It is a thin view: binding happened upstream, so the model only joins
// symbols back to their declaring nodes.
type SemanticModel struct {
	Compilation *Compilation
	Tree        *SyntaxTree
}

// SymbolAt returns the symbol declared at the given node, if any.
func (m *SemanticModel) SymbolAt(node NodeID) *Symbol {
	if m == nil || m.Compilation == nil || m.Tree == nil {
		return nil
	}
	for _, sym := range m.Compilation.Symbols {
		for _, d := range sym.Decls {
			if d.Tree == m.Tree.ID && d.Node == node {
				return sym
			}
		}
	}
	return nil
}

// ModelResolver resolves a syntax tree to its semantic model on demand.
// The engine treats this as an external collaborator supplied by the host.
type ModelResolver func(TreeID) *SemanticModel

// Resolver returns the default in-compilation model resolver.
func (c *Compilation) Resolver() ModelResolver {
	return func(id TreeID) *SemanticModel {
		tree := c.Tree(id)
		if tree == nil {
			return nil
		}
		return &SemanticModel{Compilation: c, Tree: tree}
	}
}
