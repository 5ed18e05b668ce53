package rules

import (
	"context"
	"testing"

	"prism/internal/analyzer"
	"prism/internal/compilation"
	"prism/internal/diag"
	"prism/internal/op"
	"prism/internal/source"
)

func lit(v bool) *op.Operation {
	return &op.Operation{Kind: op.OpLiteral, Literal: op.LiteralOp{Const: op.Constant{HasBool: true, Bool: v}}}
}

func ref(name string) *op.Operation {
	return &op.Operation{Kind: op.OpVarRef, VarRef: op.VarRefOp{Name: name}}
}

func assignTo(target string, v *op.Operation) *op.Operation {
	return &op.Operation{Kind: op.OpAssign, Assign: op.AssignOp{Target: target, Value: v}}
}

func body(ops ...*op.Operation) *op.Operation {
	return &op.Operation{Kind: op.OpBlock, Block: op.BlockOp{Ops: ops}}
}

func runCodeBlock(t *testing.T, a analyzer.Analyzer, b *op.Operation) *diag.Bag {
	t.Helper()
	reg := analyzer.NewRegistrar()
	a.Initialize(reg)
	actions := reg.Actions()
	if len(actions.CodeBlock) == 0 {
		t.Fatalf("%s registered no code-block actions", a.Name())
	}

	bag := diag.NewBag(64)
	ctx := analyzer.CodeBlockContext{
		ActionContext: analyzer.ActionContext{
			Ctx:      context.Background(),
			Reporter: diag.BagReporter{Bag: bag},
		},
		Symbol: &compilation.Symbol{Name: "f", Kind: compilation.SymbolFunc},
		Body:   b,
	}
	for _, act := range actions.CodeBlock {
		act.Fn(ctx)
	}
	return bag
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestDeadCodeAfterReturn(t *testing.T) {
	bag := runCodeBlock(t, NewDeadCode(), body(
		&op.Operation{Kind: op.OpReturn},
		assignTo("x", lit(true)),
	))
	if !hasCode(bag, diag.FlowUnreachableCode) {
		t.Fatalf("statement after return not reported, got %v", bag.Items())
	}
}

func TestDeadCodeConstantBranch(t *testing.T) {
	bag := runCodeBlock(t, NewDeadCode(), body(
		&op.Operation{Kind: op.OpIf, If: op.IfOp{
			Cond: lit(false),
			Then: assignTo("x", lit(true)),
			Else: assignTo("y", lit(true)),
		}},
	))
	if !hasCode(bag, diag.FlowUnreachableCode) {
		t.Fatalf("branch pruned by constant condition not reported")
	}
	if !hasCode(bag, diag.FlowConstantCondition) {
		t.Fatalf("constant condition not reported")
	}
}

func TestDeadCodeCleanGraph(t *testing.T) {
	bag := runCodeBlock(t, NewDeadCode(), body(
		&op.Operation{Kind: op.OpIf, If: op.IfOp{
			Cond: ref("c"),
			Then: assignTo("x", lit(true)),
			Else: assignTo("y", lit(true)),
		}},
	))
	if hasCode(bag, diag.FlowUnreachableCode) {
		t.Fatalf("live code reported dead: %v", bag.Items())
	}
}

func TestDeadCodeEmptyFinally(t *testing.T) {
	bag := runCodeBlock(t, NewDeadCode(), body(
		&op.Operation{Kind: op.OpTry, Try: op.TryOp{
			Body:    assignTo("x", lit(true)),
			Finally: body(),
		}},
	))
	if !hasCode(bag, diag.FlowEmptyFinally) {
		t.Fatalf("empty finally not reported")
	}
}

func TestAssignReportsConditionalUse(t *testing.T) {
	// x assigned on one arm only, then read.
	bag := runCodeBlock(t, NewAssign(), body(
		&op.Operation{Kind: op.OpIf, If: op.IfOp{
			Cond: ref("c"),
			Then: assignTo("x", lit(true)),
		}},
		&op.Operation{Kind: op.OpEval, Eval: op.EvalOp{Value: ref("x")}},
	))
	if !hasCode(bag, diag.FlowUseBeforeAssign) {
		t.Fatalf("conditional assignment before read not reported")
	}
}

func TestAssignAcceptsBothArms(t *testing.T) {
	bag := runCodeBlock(t, NewAssign(), body(
		&op.Operation{Kind: op.OpIf, If: op.IfOp{
			Cond: ref("c"),
			Then: assignTo("x", lit(true)),
			Else: assignTo("x", lit(false)),
		}},
		&op.Operation{Kind: op.OpEval, Eval: op.EvalOp{Value: ref("x")}},
	))
	if hasCode(bag, diag.FlowUseBeforeAssign) {
		t.Fatalf("x assigned on both arms still reported: %v", bag.Items())
	}
}

func TestAssignTryBodyNotTrustedInHandler(t *testing.T) {
	// The handler reads x assigned inside the try; the exception may
	// arrive before the assignment.
	bag := runCodeBlock(t, NewAssign(), body(
		&op.Operation{Kind: op.OpTry, Try: op.TryOp{
			Body: assignTo("x", lit(true)),
			Catches: []op.CatchClause{
				{Body: &op.Operation{Kind: op.OpEval, Eval: op.EvalOp{Value: ref("x")}}},
			},
		}},
	))
	if !hasCode(bag, diag.FlowUseBeforeAssign) {
		t.Fatalf("read of try-assigned variable in handler not reported")
	}
}

func TestAssignIgnoresOuterScopeNames(t *testing.T) {
	bag := runCodeBlock(t, NewAssign(), body(
		&op.Operation{Kind: op.OpEval, Eval: op.EvalOp{Value: ref("param")}},
		assignTo("x", ref("param")),
	))
	if hasCode(bag, diag.FlowUseBeforeAssign) {
		t.Fatalf("never-assigned name treated as local: %v", bag.Items())
	}
}

func runSymbol(t *testing.T, s *compilation.Symbol) *diag.Bag {
	t.Helper()
	n := NewNaming()
	reg := analyzer.NewRegistrar()
	n.Initialize(reg)

	bag := diag.NewBag(16)
	ctx := analyzer.SymbolContext{
		ActionContext: analyzer.ActionContext{
			Ctx:      context.Background(),
			Reporter: diag.BagReporter{Bag: bag},
		},
		Symbol: s,
	}
	for _, act := range reg.Actions().Symbol {
		if act.AppliesTo(s.Kind) {
			act.Fn(ctx)
		}
	}
	return bag
}

func TestNamingExportedCasing(t *testing.T) {
	bag := runSymbol(t, &compilation.Symbol{
		Name: "badName", Kind: compilation.SymbolFunc, Exported: true,
		Decls:  []compilation.DeclRef{{Span: source.Span{}}},
		Bodies: []*op.Operation{body(assignTo("x", lit(true)))},
	})
	if !hasCode(bag, diag.SymExportedCasing) {
		t.Fatalf("lower-case exported name not reported")
	}
}

func TestNamingCleanSymbol(t *testing.T) {
	bag := runSymbol(t, &compilation.Symbol{
		Name: "GoodName", Kind: compilation.SymbolType, Exported: true,
		Decls: []compilation.DeclRef{{Span: source.Span{}}},
	})
	if bag.Len() != 0 {
		t.Fatalf("clean symbol produced %v", bag.Items())
	}
}

func TestNamingEmptyFunc(t *testing.T) {
	bag := runSymbol(t, &compilation.Symbol{
		Name: "Empty", Kind: compilation.SymbolFunc, Exported: true,
		Decls:  []compilation.DeclRef{{Span: source.Span{}}},
		Bodies: []*op.Operation{body()},
	})
	if !hasCode(bag, diag.SymEmptyCodeBlock) {
		t.Fatalf("empty func body not reported")
	}
}

func TestEnabledUnknownRule(t *testing.T) {
	if _, err := Enabled([]string{"nope"}); err == nil {
		t.Fatalf("unknown rule name accepted")
	}
	sel, err := Enabled([]string{"naming", "deadcode"})
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	if len(sel) != 2 || sel[0].Name() != "naming" {
		t.Fatalf("selection %v", sel)
	}
}
