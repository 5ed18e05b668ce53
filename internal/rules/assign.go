package rules

import (
	"context"
	"fmt"
	"strings"

	"prism/internal/analyzer"
	"prism/internal/cfg"
	"prism/internal/dataflow"
	"prism/internal/diag"
	"prism/internal/op"
	"prism/internal/source"
)

// Assign reports reads of variables that are not definitely assigned on
// every path reaching the read. Only variables the code block itself
// assigns somewhere are considered; everything else is treated as defined
// by the enclosing scope.
type Assign struct{}

func NewAssign() *Assign { return &Assign{} }

func (a *Assign) Name() string { return "assign" }

func (a *Assign) Initialize(reg *analyzer.Registrar) {
	reg.RegisterCodeBlockAction(a.analyze)
}

// varSet is the definite-assignment lattice: merge is set intersection,
// so a variable survives a join only when every path assigned it.
type varSet map[string]struct{}

func (s varSet) clone() varSet {
	out := make(varSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

type defAssign struct {
	dataflow.BlockData[varSet]
}

func (*defAssign) InitialData() varSet { return varSet{} }

func (d *defAssign) AnalyzeBlock(_ context.Context, b *cfg.BasicBlock) varSet {
	in, _ := d.Current(b)
	out := in.clone()
	for _, st := range b.Statements {
		if st.Kind == op.InstAssign {
			out[st.Assign.Target] = struct{}{}
		}
	}
	return out
}

func (*defAssign) SplitForConditionalBranch(_ *cfg.BasicBlock, v varSet) (varSet, varSet) {
	return v, v.clone()
}

func (*defAssign) Merge(x, y varSet) varSet {
	out := varSet{}
	for k := range x {
		if _, ok := y[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func (*defAssign) Equal(x, y varSet) bool {
	if len(x) != len(y) {
		return false
	}
	for k := range x {
		if _, ok := y[k]; !ok {
			return false
		}
	}
	return true
}

func (*defAssign) AnalyzeUnreachableBlocks() bool { return false }

func (a *Assign) analyze(ctx analyzer.CodeBlockContext) {
	if ctx.Body == nil {
		return
	}
	g, err := cfg.Build(ctx.Body)
	if err != nil {
		return
	}

	assignedAnywhere := varSet{}
	for _, b := range g.Blocks {
		for _, st := range b.Statements {
			if st.Kind == op.InstAssign {
				assignedAnywhere[st.Assign.Target] = struct{}{}
			}
		}
	}
	if len(assignedAnywhere) == 0 {
		return
	}

	flow := &defAssign{}
	if _, err := dataflow.Run(ctx.Ctx, g, dataflow.Analyzer[varSet](flow)); err != nil {
		return
	}

	type site struct {
		name string
		span source.Span
	}
	seen := map[site]bool{}
	report := func(name string, span source.Span) {
		s := site{name, span}
		if seen[s] {
			return
		}
		seen[s] = true
		ctx.Reporter.Report(diag.FlowUseBeforeAssign, diag.SevError, span,
			fmt.Sprintf("%s may be used before assignment", name), nil)
	}

	// Replay each block's transfer from its settled input, checking every
	// read against the current set.
	for _, b := range g.Blocks {
		in, ok := flow.Current(b)
		if !ok {
			continue
		}
		cur := in.clone()
		check := func(o *op.Operation, span source.Span) {
			forEachRead(o, func(name string) {
				if strings.HasPrefix(name, "~") {
					return
				}
				if _, anywhere := assignedAnywhere[name]; !anywhere {
					return
				}
				if _, assigned := cur[name]; !assigned {
					report(name, span)
				}
			})
		}
		for _, st := range b.Statements {
			switch st.Kind {
			case op.InstAssign:
				check(st.Assign.Value, st.Span)
				cur[st.Assign.Target] = struct{}{}
			case op.InstEval:
				check(st.Eval.Value, st.Span)
			case op.InstReturn:
				check(st.Return.Value, st.Span)
			case op.InstThrow:
				check(st.Throw.Value, st.Span)
			}
		}
		if b.HasCondition() {
			check(b.Condition, b.Condition.Span)
		}
	}
}

// forEachRead visits every variable read in an expression-position
// operation tree.
func forEachRead(o *op.Operation, visit func(name string)) {
	if o == nil {
		return
	}
	switch o.Kind {
	case op.OpVarRef:
		visit(o.VarRef.Name)
	case op.OpInvoke:
		for _, arg := range o.Invoke.Args {
			forEachRead(arg, visit)
		}
	case op.OpLogical:
		forEachRead(o.Logical.Left, visit)
		forEachRead(o.Logical.Right, visit)
	case op.OpCoalesce:
		forEachRead(o.Coalesce.Value, visit)
		forEachRead(o.Coalesce.WhenNull, visit)
	case op.OpCondAccess:
		forEachRead(o.CondAccess.Receiver, visit)
		forEachRead(o.CondAccess.WhenNotNull, visit)
	}
}
