// Package testkit holds invariant checks shared by tests across packages.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"prism/internal/compilation"
	"prism/internal/source"
)

// CheckTreeInvariants runs a minimal set of structural invariants on an
// assembled syntax tree:
// 1) node IDs match their arena index
// 2) every child reference is in range and forward-only, so the arena is
//    acyclic by construction
// 3) every node span stays within the file content bounds
func CheckTreeInvariants(tree *compilation.SyntaxTree, sf *source.File) error {
	if tree == nil || sf == nil {
		return fmt.Errorf("nil tree or file")
	}
	if len(tree.Nodes) == 0 {
		return fmt.Errorf("tree %d has no nodes", tree.ID)
	}
	if int(tree.Root) >= len(tree.Nodes) {
		return fmt.Errorf("root %d out of range (%d nodes)", tree.Root, len(tree.Nodes))
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if int(n.ID) != i {
			return fmt.Errorf("node at index %d carries ID %d", i, n.ID)
		}
		if n.Span.End < n.Span.Start {
			return fmt.Errorf("node %d has inverted span %v", n.ID, n.Span)
		}
		if n.Span.End > lenContent {
			return fmt.Errorf("node %d span end beyond content: %d > %d", n.ID, n.Span.End, lenContent)
		}
		for _, c := range n.Children {
			if int(c) >= len(tree.Nodes) {
				return fmt.Errorf("node %d references missing child %d", n.ID, c)
			}
			if c <= n.ID {
				return fmt.Errorf("node %d references non-forward child %d", n.ID, c)
			}
		}
	}
	return nil
}
