package rules

import (
	"context"
	"fmt"

	"prism/internal/analyzer"
	"prism/internal/cfg"
	"prism/internal/dataflow"
	"prism/internal/diag"
)

// DeadCode reports statements that no execution path reaches. It builds a
// control-flow graph per code block and runs a reachability analysis, so
// branches on constant conditions count as dead even though the graph
// builder keeps them.
type DeadCode struct{}

func NewDeadCode() *DeadCode { return &DeadCode{} }

func (d *DeadCode) Name() string { return "deadcode" }

func (d *DeadCode) Initialize(reg *analyzer.Registrar) {
	reg.RegisterCodeBlockAction(d.analyze)
}

// reachData is a unit lattice: a block holding data was reached.
type reachData struct{}

type reachAnalyzer struct {
	dataflow.BlockData[reachData]
}

func (*reachAnalyzer) InitialData() reachData { return reachData{} }

func (a *reachAnalyzer) AnalyzeBlock(_ context.Context, b *cfg.BasicBlock) reachData {
	d, _ := a.Current(b)
	return d
}

func (*reachAnalyzer) SplitForConditionalBranch(_ *cfg.BasicBlock, d reachData) (reachData, reachData) {
	return d, d
}

func (*reachAnalyzer) Merge(x, _ reachData) reachData { return x }

func (*reachAnalyzer) Equal(reachData, reachData) bool { return true }

func (*reachAnalyzer) AnalyzeUnreachableBlocks() bool { return false }

func (d *DeadCode) analyze(ctx analyzer.CodeBlockContext) {
	if ctx.Body == nil {
		return
	}
	g, err := cfg.Build(ctx.Body)
	if err != nil {
		ctx.Reporter.Report(diag.FlowInfo, diag.SevWarning, ctx.Decl.Span,
			fmt.Sprintf("%s: control-flow graph unavailable: %v", ctx.Symbol.Name, err), nil)
		return
	}

	reach := &reachAnalyzer{}
	if _, err := dataflow.Run(ctx.Ctx, g, dataflow.Analyzer[reachData](reach)); err != nil {
		return
	}

	for _, b := range g.Blocks {
		if len(b.Statements) == 0 {
			continue
		}
		if _, reached := reach.Current(b); reached && b.IsReachable {
			continue
		}
		ctx.Reporter.Report(diag.FlowUnreachableCode, diag.SevWarning, b.Statements[0].Span,
			"unreachable code", nil)
	}

	for _, b := range g.Blocks {
		if !b.HasCondition() {
			continue
		}
		if v, known := b.Condition.BoolConst(); known {
			ctx.Reporter.Report(diag.FlowConstantCondition, diag.SevWarning, b.Condition.Span,
				fmt.Sprintf("condition is always %t", v), nil)
		}
	}

	reportEmptyFinally(ctx, g)
}

// reportEmptyFinally flags finally regions whose blocks carry no
// statements at all.
func reportEmptyFinally(ctx analyzer.CodeBlockContext, g *cfg.Graph) {
	var visit func(r *cfg.Region)
	visit = func(r *cfg.Region) {
		if r.Kind == cfg.RegionFinally {
			empty := true
			for ord := r.First; ord <= r.Last; ord++ {
				if len(g.Block(ord).Statements) > 0 {
					empty = false
					break
				}
			}
			if empty {
				ctx.Reporter.Report(diag.FlowEmptyFinally, diag.SevInfo, ctx.Decl.Span,
					"finally block is empty", nil)
			}
		}
		for _, n := range r.Nested {
			visit(n)
		}
	}
	visit(g.Root)
}
