package compilation

import (
	"prism/internal/source"
)

type (
	// TreeID identifies a syntax tree within a Compilation.
	TreeID uint32
	// NodeID identifies a node within its syntax tree. 0 is the root.
	NodeID uint32
)

// NoNode marks an absent node reference.
const NoNode NodeID = ^NodeID(0)

// NodeKind enumerates the syntax node kinds analyzers can subscribe to.
type NodeKind uint8

const (
	NodeFile NodeKind = iota
	NodeFuncDecl
	NodeVarDecl
	NodeAssign
	NodeCall
	NodeIdent
	NodeBlock
	NodeReturn
)

func (k NodeKind) String() string {
	switch k {
	case NodeFile:
		return "file"
	case NodeFuncDecl:
		return "func-decl"
	case NodeVarDecl:
		return "var-decl"
	case NodeAssign:
		return "assign"
	case NodeCall:
		return "call"
	case NodeIdent:
		return "ident"
	case NodeBlock:
		return "block"
	case NodeReturn:
		return "return"
	}
	return "unknown"
}

// Node is one syntax node in a tree's flat arena. Children address the
// arena by index, so trees carry no pointer cycles.
type Node struct {
	ID       NodeID
	Kind     NodeKind
	Span     source.Span
	Text     string
	Children []NodeID
}

// SyntaxTree is a flat-arena syntax tree for one compilation unit.
type SyntaxTree struct {
	ID    TreeID
	Path  string
	File  source.FileID
	Nodes []Node
	Root  NodeID
}

// Node returns the node with the given ID, or nil when out of range.
func (t *SyntaxTree) Node(id NodeID) *Node {
	if t == nil || int(id) >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[id]
}

// Walk visits every node reachable from root in depth-first preorder.
func (t *SyntaxTree) Walk(visit func(*Node) bool) {
	if t == nil || len(t.Nodes) == 0 {
		return
	}
	t.walk(t.Root, visit)
}

func (t *SyntaxTree) walk(id NodeID, visit func(*Node) bool) bool {
	n := t.Node(id)
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, child := range n.Children {
		if !t.walk(child, visit) {
			return false
		}
	}
	return true
}
