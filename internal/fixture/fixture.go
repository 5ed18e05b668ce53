// Package fixture loads compilations from JSON descriptions. The engine
// has no parser of its own; fixtures stand in for the host front end in
// the CLI and in end-to-end tests.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"

	"fortio.org/safecast"

	"prism/internal/compilation"
	"prism/internal/op"
	"prism/internal/source"
)

type fileJSON struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type declJSON struct {
	File  string `json:"file"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

type symbolJSON struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Exported bool       `json:"exported"`
	Decls    []declJSON `json:"decls"`
	Bodies   []*opJSON  `json:"bodies"`
}

type compilationJSON struct {
	Name    string       `json:"name"`
	Files   []fileJSON   `json:"files"`
	Symbols []symbolJSON `json:"symbols"`
}

type caseJSON struct {
	Match *opJSON `json:"match"`
	Body  *opJSON `json:"body"`
}

type catchJSON struct {
	Type   string  `json:"type"`
	Filter *opJSON `json:"filter"`
	Body   *opJSON `json:"body"`
}

// opJSON is the recursive operation encoding. Only the fields matching the
// declared op are read; the rest stay zero.
type opJSON struct {
	Op    string `json:"op"`
	Start uint32 `json:"start,omitempty"`
	End   uint32 `json:"end,omitempty"`

	Ops         []*opJSON   `json:"ops,omitempty"`
	Cond        *opJSON     `json:"cond,omitempty"`
	Then        *opJSON     `json:"then,omitempty"`
	Else        *opJSON     `json:"else,omitempty"`
	Body        *opJSON     `json:"body,omitempty"`
	DoWhile     bool        `json:"do_while,omitempty"`
	Operator    string      `json:"operator,omitempty"`
	Left        *opJSON     `json:"left,omitempty"`
	Right       *opJSON     `json:"right,omitempty"`
	Value       *opJSON     `json:"value,omitempty"`
	WhenNull    *opJSON     `json:"when_null,omitempty"`
	Receiver    *opJSON     `json:"receiver,omitempty"`
	WhenNotNull *opJSON     `json:"when_not_null,omitempty"`
	Cases       []caseJSON  `json:"cases,omitempty"`
	Catches     []catchJSON `json:"catches,omitempty"`
	Finally     *opJSON     `json:"finally,omitempty"`
	Target      string      `json:"target,omitempty"`
	Name        string      `json:"name,omitempty"`
	Callee      string      `json:"callee,omitempty"`
	Args        []*opJSON   `json:"args,omitempty"`
	Bool        *bool       `json:"bool,omitempty"`
	Text        string      `json:"text,omitempty"`
}

// Load reads a fixture file and assembles the compilation.
func Load(path string) (*compilation.Compilation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse assembles a compilation from fixture JSON. name is used in error
// messages only.
func Parse(data []byte, name string) (*compilation.Compilation, error) {
	var raw compilationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: invalid fixture: %w", name, err)
	}
	if len(raw.Files) == 0 {
		return nil, fmt.Errorf("%s: fixture declares no files", name)
	}

	files := source.NewFileSet()
	trees := make([]*compilation.SyntaxTree, 0, len(raw.Files))
	treeByPath := make(map[string]*compilation.SyntaxTree, len(raw.Files))
	for i, f := range raw.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("%s: file %d has no path", name, i)
		}
		if _, dup := treeByPath[f.Path]; dup {
			return nil, fmt.Errorf("%s: duplicate file %q", name, f.Path)
		}
		fid := files.AddVirtual(f.Path, []byte(f.Content))
		treeID, err := safecast.Conv[uint32](i)
		if err != nil {
			return nil, fmt.Errorf("%s: tree count overflow: %w", name, err)
		}
		contentLen, err := safecast.Conv[uint32](len(f.Content))
		if err != nil {
			return nil, fmt.Errorf("%s: %s: content length overflow: %w", name, f.Path, err)
		}
		tree := &compilation.SyntaxTree{
			ID:   compilation.TreeID(treeID),
			Path: f.Path,
			File: fid,
			Nodes: []compilation.Node{
				{ID: 0, Kind: compilation.NodeFile, Span: source.Span{File: fid, End: contentLen}},
			},
		}
		trees = append(trees, tree)
		treeByPath[f.Path] = tree
	}

	symbols := make([]*compilation.Symbol, 0, len(raw.Symbols))
	for i, s := range raw.Symbols {
		kind, err := parseSymbolKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: symbol %q: %w", name, s.Name, err)
		}
		if len(s.Decls) == 0 {
			return nil, fmt.Errorf("%s: symbol %q has no declarations", name, s.Name)
		}
		symID, err := safecast.Conv[uint32](i)
		if err != nil {
			return nil, fmt.Errorf("%s: symbol count overflow: %w", name, err)
		}
		sym := &compilation.Symbol{
			ID:       compilation.SymbolID(symID),
			Name:     s.Name,
			Kind:     kind,
			Exported: s.Exported,
		}
		for j, d := range s.Decls {
			tree, ok := treeByPath[d.File]
			if !ok {
				return nil, fmt.Errorf("%s: symbol %q declares in unknown file %q", name, s.Name, d.File)
			}
			span := source.Span{File: tree.File, Start: d.Start, End: d.End}
			node := appendDeclNode(tree, kind, span)
			sym.Decls = append(sym.Decls, compilation.DeclRef{Tree: tree.ID, Node: node, Span: span})

			var body *op.Operation
			if j < len(s.Bodies) && s.Bodies[j] != nil {
				body, err = decodeOp(s.Bodies[j], tree.File)
				if err != nil {
					return nil, fmt.Errorf("%s: symbol %q body %d: %w", name, s.Name, j, err)
				}
			}
			sym.Bodies = append(sym.Bodies, body)
		}
		symbols = append(symbols, sym)
	}

	compName := raw.Name
	if compName == "" {
		compName = name
	}
	return &compilation.Compilation{
		Name:    compName,
		Trees:   trees,
		Symbols: symbols,
		Files:   files,
	}, nil
}

// appendDeclNode grows the tree arena with a declaration node hanging off
// the file root and returns its ID.
func appendDeclNode(tree *compilation.SyntaxTree, kind compilation.SymbolKind, span source.Span) compilation.NodeID {
	nodeKind := compilation.NodeVarDecl
	if kind == compilation.SymbolFunc {
		nodeKind = compilation.NodeFuncDecl
	}
	count, err := safecast.Conv[uint32](len(tree.Nodes))
	if err != nil {
		panic(fmt.Errorf("node arena overflow: %w", err))
	}
	id := compilation.NodeID(count)
	tree.Nodes = append(tree.Nodes, compilation.Node{ID: id, Kind: nodeKind, Span: span})
	tree.Nodes[tree.Root].Children = append(tree.Nodes[tree.Root].Children, id)
	return id
}

func parseSymbolKind(s string) (compilation.SymbolKind, error) {
	switch s {
	case "func", "":
		return compilation.SymbolFunc, nil
	case "type":
		return compilation.SymbolType, nil
	case "var":
		return compilation.SymbolVar, nil
	case "const":
		return compilation.SymbolConst, nil
	}
	return 0, fmt.Errorf("unknown symbol kind %q", s)
}

func decodeOp(j *opJSON, file source.FileID) (*op.Operation, error) {
	if j == nil {
		return nil, nil
	}
	out := &op.Operation{Span: source.Span{File: file, Start: j.Start, End: j.End}}

	child := func(c *opJSON) (*op.Operation, error) { return decodeOp(c, file) }
	var err error
	switch j.Op {
	case "block":
		out.Kind = op.OpBlock
		for _, c := range j.Ops {
			var o *op.Operation
			if o, err = child(c); err != nil {
				return nil, err
			}
			out.Block.Ops = append(out.Block.Ops, o)
		}
	case "if":
		out.Kind = op.OpIf
		if out.If.Cond, err = child(j.Cond); err != nil {
			return nil, err
		}
		if out.If.Then, err = child(j.Then); err != nil {
			return nil, err
		}
		if out.If.Else, err = child(j.Else); err != nil {
			return nil, err
		}
	case "while":
		out.Kind = op.OpWhile
		out.While.DoWhile = j.DoWhile
		if out.While.Cond, err = child(j.Cond); err != nil {
			return nil, err
		}
		if out.While.Body, err = child(j.Body); err != nil {
			return nil, err
		}
	case "logical":
		out.Kind = op.OpLogical
		switch j.Operator {
		case "and", "":
			out.Logical.Op = op.LogicalAnd
		case "or":
			out.Logical.Op = op.LogicalOr
		default:
			return nil, fmt.Errorf("unknown logical operator %q", j.Operator)
		}
		if out.Logical.Left, err = child(j.Left); err != nil {
			return nil, err
		}
		if out.Logical.Right, err = child(j.Right); err != nil {
			return nil, err
		}
	case "coalesce":
		out.Kind = op.OpCoalesce
		if out.Coalesce.Value, err = child(j.Value); err != nil {
			return nil, err
		}
		if out.Coalesce.WhenNull, err = child(j.WhenNull); err != nil {
			return nil, err
		}
	case "cond_access":
		out.Kind = op.OpCondAccess
		if out.CondAccess.Receiver, err = child(j.Receiver); err != nil {
			return nil, err
		}
		if out.CondAccess.WhenNotNull, err = child(j.WhenNotNull); err != nil {
			return nil, err
		}
	case "switch":
		out.Kind = op.OpSwitch
		if out.Switch.Value, err = child(j.Value); err != nil {
			return nil, err
		}
		for _, c := range j.Cases {
			var match, body *op.Operation
			if match, err = child(c.Match); err != nil {
				return nil, err
			}
			if body, err = child(c.Body); err != nil {
				return nil, err
			}
			out.Switch.Cases = append(out.Switch.Cases, op.SwitchCase{Match: match, Body: body})
		}
	case "try":
		out.Kind = op.OpTry
		if out.Try.Body, err = child(j.Body); err != nil {
			return nil, err
		}
		for _, c := range j.Catches {
			var filter, body *op.Operation
			if filter, err = child(c.Filter); err != nil {
				return nil, err
			}
			if body, err = child(c.Body); err != nil {
				return nil, err
			}
			out.Try.Catches = append(out.Try.Catches, op.CatchClause{
				ExceptionType: c.Type, Filter: filter, Body: body,
			})
		}
		if out.Try.Finally, err = child(j.Finally); err != nil {
			return nil, err
		}
	case "throw":
		out.Kind = op.OpThrow
		if out.Throw.Value, err = child(j.Value); err != nil {
			return nil, err
		}
	case "return":
		out.Kind = op.OpReturn
		if out.Return.Value, err = child(j.Value); err != nil {
			return nil, err
		}
	case "assign":
		out.Kind = op.OpAssign
		if j.Target == "" {
			return nil, fmt.Errorf("assign without target")
		}
		out.Assign.Target = j.Target
		if out.Assign.Value, err = child(j.Value); err != nil {
			return nil, err
		}
	case "eval":
		out.Kind = op.OpEval
		if out.Eval.Value, err = child(j.Value); err != nil {
			return nil, err
		}
	case "literal":
		out.Kind = op.OpLiteral
		if j.Bool != nil {
			out.Literal.Const = op.Constant{HasBool: true, Bool: *j.Bool}
		} else {
			out.Literal.Const = op.Constant{Text: j.Text}
		}
	case "ref":
		out.Kind = op.OpVarRef
		if j.Name == "" {
			return nil, fmt.Errorf("ref without name")
		}
		out.VarRef.Name = j.Name
	case "invoke":
		out.Kind = op.OpInvoke
		out.Invoke.Callee = j.Callee
		for _, c := range j.Args {
			var o *op.Operation
			if o, err = child(c); err != nil {
				return nil, err
			}
			out.Invoke.Args = append(out.Invoke.Args, o)
		}
	default:
		return nil, fmt.Errorf("unknown op %q", j.Op)
	}
	return out, nil
}
