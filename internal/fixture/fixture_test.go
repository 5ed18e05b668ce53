package fixture

import (
	"strings"
	"testing"

	"prism/internal/compilation"
	"prism/internal/op"
	"prism/internal/testkit"
)

const demo = `{
  "name": "demo",
  "files": [
    {"path": "main.pr", "content": "func run() {\n\treturn\n}\n"}
  ],
  "symbols": [
    {
      "name": "run",
      "kind": "func",
      "exported": false,
      "decls": [{"file": "main.pr", "start": 5, "end": 8}],
      "bodies": [
        {"op": "block", "ops": [
          {"op": "if",
           "cond": {"op": "ref", "name": "flag"},
           "then": {"op": "assign", "target": "x", "value": {"op": "literal", "bool": true}}},
          {"op": "return"}
        ]}
      ]
    }
  ]
}`

func TestParseDemo(t *testing.T) {
	comp, err := Parse([]byte(demo), "demo.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if comp.Name != "demo" || len(comp.Trees) != 1 || len(comp.Symbols) != 1 {
		t.Fatalf("shape = %s/%d/%d", comp.Name, len(comp.Trees), len(comp.Symbols))
	}

	sym := comp.Symbols[0]
	if sym.Name != "run" || sym.Kind != compilation.SymbolFunc || sym.Exported {
		t.Errorf("symbol = %+v", sym)
	}
	if len(sym.Decls) != 1 || sym.Decls[0].Span.Start != 5 {
		t.Errorf("decls = %+v", sym.Decls)
	}

	tree := comp.Trees[0]
	if err := testkit.CheckTreeInvariants(tree, comp.Files.Get(tree.File)); err != nil {
		t.Fatalf("tree invariants: %v", err)
	}
	decl := tree.Node(sym.Decls[0].Node)
	if decl == nil || decl.Kind != compilation.NodeFuncDecl {
		t.Fatalf("decl node = %+v", decl)
	}
	if root := tree.Node(tree.Root); len(root.Children) != 1 || root.Children[0] != decl.ID {
		t.Errorf("root children = %+v", root.Children)
	}

	body := sym.Body(0)
	if body == nil || body.Kind != op.OpBlock || len(body.Block.Ops) != 2 {
		t.Fatalf("body = %+v", body)
	}
	ifOp := body.Block.Ops[0]
	if ifOp.Kind != op.OpIf || ifOp.If.Cond.VarRef.Name != "flag" || ifOp.If.Else != nil {
		t.Errorf("if op = %+v", ifOp)
	}
	if ifOp.If.Then.Assign.Target != "x" {
		t.Errorf("then op = %+v", ifOp.If.Then)
	}
	if v, known := ifOp.If.Then.Assign.Value.BoolConst(); !known || !v {
		t.Errorf("literal = %+v", ifOp.If.Then.Assign.Value)
	}
}

func TestParseTryEncoding(t *testing.T) {
	src := `{
  "files": [{"path": "t.pr", "content": ""}],
  "symbols": [{
    "name": "g",
    "decls": [{"file": "t.pr"}],
    "bodies": [{"op": "try",
      "body": {"op": "eval", "value": {"op": "invoke", "callee": "work"}},
      "catches": [
        {"type": "IOError",
         "filter": {"op": "ref", "name": "retryable"},
         "body": {"op": "eval", "value": {"op": "invoke", "callee": "recover"}}}
      ],
      "finally": {"op": "eval", "value": {"op": "invoke", "callee": "cleanup"}}}]
  }]
}`
	comp, err := Parse([]byte(src), "try.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	body := comp.Symbols[0].Body(0)
	if body.Kind != op.OpTry {
		t.Fatalf("kind = %v", body.Kind)
	}
	if len(body.Try.Catches) != 1 {
		t.Fatalf("catches = %+v", body.Try.Catches)
	}
	c := body.Try.Catches[0]
	if c.ExceptionType != "IOError" || c.Filter == nil || c.Body == nil {
		t.Errorf("catch = %+v", c)
	}
	if body.Try.Finally == nil || body.Try.Finally.Eval.Value.Invoke.Callee != "cleanup" {
		t.Errorf("finally = %+v", body.Try.Finally)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad json", `{`, "invalid fixture"},
		{"no files", `{"files": []}`, "no files"},
		{"unknown op", `{
			"files": [{"path": "a", "content": ""}],
			"symbols": [{"name": "s", "decls": [{"file": "a"}], "bodies": [{"op": "goto"}]}]
		}`, `unknown op "goto"`},
		{"unknown file", `{
			"files": [{"path": "a", "content": ""}],
			"symbols": [{"name": "s", "decls": [{"file": "b"}]}]
		}`, "unknown file"},
		{"missing decls", `{
			"files": [{"path": "a", "content": ""}],
			"symbols": [{"name": "s"}]
		}`, "no declarations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), tt.name)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
