package cfg

import (
	"fmt"

	"prism/internal/op"
	"prism/internal/source"
)

// rewriter lowers a structured operation tree into a flat instruction
// stream of labels, gotos, conditional gotos, assignments, and region
// markers. Short-circuit operators and conditional access desugar the
// textbook way: evaluate, conditional-goto to a short-circuit label,
// assign through a temporary, reconverge at an end label.
type rewriter struct {
	insts     []op.Inst
	nextLabel op.LabelID
	nextTemp  int
}

func (r *rewriter) newLabel() op.LabelID {
	l := r.nextLabel
	r.nextLabel++
	return l
}

func (r *rewriter) newTemp() string {
	name := fmt.Sprintf("~t%d", r.nextTemp)
	r.nextTemp++
	return name
}

func (r *rewriter) emit(in op.Inst) {
	r.insts = append(r.insts, in)
}

func (r *rewriter) label(l op.LabelID) {
	r.emit(op.Inst{Kind: op.InstLabel, Label: op.LabelInst{ID: l}})
}

func (r *rewriter) goTo(l op.LabelID, span source.Span) {
	r.emit(op.Inst{Kind: op.InstGoto, Span: span, Goto: op.GotoInst{Target: l}})
}

func (r *rewriter) condGoto(cond *op.Operation, jumpIfTrue bool, l op.LabelID, span source.Span) {
	r.emit(op.Inst{Kind: op.InstCondGoto, Span: span, CondGoto: op.CondGotoInst{
		Cond: cond, JumpIfTrue: jumpIfTrue, Target: l,
	}})
}

func (r *rewriter) assign(target string, value *op.Operation, span source.Span) {
	r.emit(op.Inst{Kind: op.InstAssign, Span: span, Assign: op.AssignInst{Target: target, Value: value}})
}

func (r *rewriter) enterRegion(mark op.RegionMarkerKind, excType string) {
	r.emit(op.Inst{Kind: op.InstRegion, Region: op.RegionInst{Mark: mark, Enter: true, ExceptionType: excType}})
}

func (r *rewriter) exitRegion(mark op.RegionMarkerKind) {
	r.emit(op.Inst{Kind: op.InstRegion, Region: op.RegionInst{Mark: mark}})
}

// boolLiteral builds a synthetic constant for short-circuit results.
func boolLiteral(v bool, span source.Span) *op.Operation {
	return &op.Operation{
		Kind: op.OpLiteral, Span: span,
		Literal: op.LiteralOp{Const: op.Constant{HasBool: true, Bool: v}},
	}
}

// isNullTest builds the synthetic null check used by coalescing and
// conditional access. The value space is opaque to the graph builder;
// the test only needs to read as "a condition over v".
func isNullTest(v *op.Operation, span source.Span) *op.Operation {
	return &op.Operation{
		Kind: op.OpInvoke, Span: span,
		Invoke: op.InvokeOp{Callee: "<is-null>", Args: []*op.Operation{v}},
	}
}

// lowerStmt lowers one statement-position operation.
func (r *rewriter) lowerStmt(o *op.Operation) {
	if o == nil || o.Kind == op.OpNone {
		return
	}
	switch o.Kind {
	case op.OpBlock:
		for _, inner := range o.Block.Ops {
			r.lowerStmt(inner)
		}

	case op.OpIf:
		cond := r.lowerExpr(o.If.Cond)
		elseL := r.newLabel()
		endL := r.newLabel()
		r.condGoto(cond, false, elseL, o.Span)
		r.lowerStmt(o.If.Then)
		r.goTo(endL, o.Span)
		r.label(elseL)
		r.lowerStmt(o.If.Else)
		r.label(endL)

	case op.OpWhile:
		startL := r.newLabel()
		endL := r.newLabel()
		if o.While.DoWhile {
			r.label(startL)
			r.lowerStmt(o.While.Body)
			cond := r.lowerExpr(o.While.Cond)
			r.condGoto(cond, true, startL, o.Span)
		} else {
			r.label(startL)
			cond := r.lowerExpr(o.While.Cond)
			r.condGoto(cond, false, endL, o.Span)
			r.lowerStmt(o.While.Body)
			r.goTo(startL, o.Span)
			r.label(endL)
		}

	case op.OpSwitch:
		r.lowerSwitch(o)

	case op.OpTry:
		r.lowerTry(o)

	case op.OpThrow:
		if o.Throw.Value == nil {
			r.emit(op.Inst{Kind: op.InstThrow, Span: o.Span, Throw: op.ThrowInst{Rethrow: true}})
			return
		}
		v := r.lowerExpr(o.Throw.Value)
		r.emit(op.Inst{Kind: op.InstThrow, Span: o.Span, Throw: op.ThrowInst{Value: v}})

	case op.OpReturn:
		var v *op.Operation
		if o.Return.Value != nil {
			v = r.lowerExpr(o.Return.Value)
		}
		r.emit(op.Inst{Kind: op.InstReturn, Span: o.Span, Return: op.ReturnInst{HasValue: v != nil, Value: v}})

	case op.OpAssign:
		v := r.lowerExpr(o.Assign.Value)
		r.assign(o.Assign.Target, v, o.Span)

	case op.OpEval:
		v := r.lowerExpr(o.Eval.Value)
		r.emit(op.Inst{Kind: op.InstEval, Span: o.Span, Eval: op.EvalInst{Value: v}})

	default:
		// Bare expression in statement position.
		v := r.lowerExpr(o)
		r.emit(op.Inst{Kind: op.InstEval, Span: o.Span, Eval: op.EvalInst{Value: v}})
	}
}

// lowerExpr lowers an expression-position operation and returns a leaf
// (literal, variable reference, or call with leaf arguments) standing for
// its value. Composite operators spill through temporaries.
func (r *rewriter) lowerExpr(o *op.Operation) *op.Operation {
	if o == nil {
		return nil
	}
	switch o.Kind {
	case op.OpLiteral, op.OpVarRef:
		return o

	case op.OpInvoke:
		args := make([]*op.Operation, len(o.Invoke.Args))
		for i, a := range o.Invoke.Args {
			args[i] = r.lowerExpr(a)
		}
		return &op.Operation{Kind: op.OpInvoke, Span: o.Span, Invoke: op.InvokeOp{Callee: o.Invoke.Callee, Args: args}}

	case op.OpLogical:
		// a && b: evaluate a; when false, skip b and take false.
		// a || b mirrors with true.
		temp := r.newTemp()
		shortL := r.newLabel()
		endL := r.newLabel()
		isOr := o.Logical.Op == op.LogicalOr

		left := r.lowerExpr(o.Logical.Left)
		r.condGoto(left, isOr, shortL, o.Span)
		right := r.lowerExpr(o.Logical.Right)
		r.assign(temp, right, o.Span)
		r.goTo(endL, o.Span)
		r.label(shortL)
		r.assign(temp, boolLiteral(isOr, o.Span), o.Span)
		r.label(endL)
		return varRef(temp, o.Span)

	case op.OpCoalesce:
		// a ?? b: take a unless it is null.
		temp := r.newTemp()
		nullL := r.newLabel()
		endL := r.newLabel()

		value := r.lowerExpr(o.Coalesce.Value)
		r.condGoto(isNullTest(value, o.Span), true, nullL, o.Span)
		r.assign(temp, value, o.Span)
		r.goTo(endL, o.Span)
		r.label(nullL)
		fallback := r.lowerExpr(o.Coalesce.WhenNull)
		r.assign(temp, fallback, o.Span)
		r.label(endL)
		return varRef(temp, o.Span)

	case op.OpCondAccess:
		// a?.b: evaluate b's access only when a is non-null.
		temp := r.newTemp()
		nullL := r.newLabel()
		endL := r.newLabel()

		recv := r.lowerExpr(o.CondAccess.Receiver)
		r.condGoto(isNullTest(recv, o.Span), true, nullL, o.Span)
		access := r.lowerExpr(o.CondAccess.WhenNotNull)
		r.assign(temp, access, o.Span)
		r.goTo(endL, o.Span)
		r.label(nullL)
		r.assign(temp, &op.Operation{Kind: op.OpLiteral, Span: o.Span, Literal: op.LiteralOp{Const: op.Constant{Text: "null"}}}, o.Span)
		r.label(endL)
		return varRef(temp, o.Span)

	default:
		// Statement-like operation in value position has no value; treat
		// as opaque after lowering its effects.
		r.lowerStmt(o)
		return boolLiteral(false, o.Span)
	}
}

func varRef(name string, span source.Span) *op.Operation {
	return &op.Operation{Kind: op.OpVarRef, Span: span, VarRef: op.VarRefOp{Name: name}}
}

func (r *rewriter) lowerSwitch(o *op.Operation) {
	endL := r.newLabel()
	value := r.lowerExpr(o.Switch.Value)
	_ = value // case guards are self-contained conditions over the value

	type armLabel struct {
		label op.LabelID
		body  *op.Operation
	}
	arms := make([]armLabel, 0, len(o.Switch.Cases))
	defaultL := endL
	var defaultBody *op.Operation

	for _, c := range o.Switch.Cases {
		if c.Match == nil {
			defaultL = r.newLabel()
			defaultBody = c.Body
			continue
		}
		l := r.newLabel()
		cond := r.lowerExpr(c.Match)
		r.condGoto(cond, true, l, o.Span)
		arms = append(arms, armLabel{label: l, body: c.Body})
	}
	r.goTo(defaultL, o.Span)

	for _, arm := range arms {
		r.label(arm.label)
		r.lowerStmt(arm.body)
		r.goTo(endL, o.Span)
	}
	if defaultBody != nil {
		r.label(defaultL)
		r.lowerStmt(defaultBody)
		r.goTo(endL, o.Span)
	}
	r.label(endL)
}

func (r *rewriter) lowerTry(o *op.Operation) {
	t := o.Try
	if len(t.Catches) == 0 && t.Finally == nil {
		r.lowerStmt(t.Body)
		return
	}
	afterL := r.newLabel()

	if t.Finally != nil {
		r.enterRegion(op.MarkTryAndFinally, "")
		r.enterRegion(op.MarkTry, "")
	}
	if len(t.Catches) > 0 {
		r.enterRegion(op.MarkTryAndCatch, "")
		r.enterRegion(op.MarkTry, "")
		r.lowerStmt(t.Body)
		r.goTo(afterL, o.Span)
		r.exitRegion(op.MarkTry)

		for _, c := range t.Catches {
			if c.Filter != nil {
				r.enterRegion(op.MarkFilterAndHandler, c.ExceptionType)
				r.enterRegion(op.MarkFilter, c.ExceptionType)
				fv := r.lowerExpr(c.Filter)
				r.emit(op.Inst{Kind: op.InstEval, Span: o.Span, Eval: op.EvalInst{Value: fv}})
				r.exitRegion(op.MarkFilter)
				r.enterRegion(op.MarkCatch, c.ExceptionType)
				r.lowerStmt(c.Body)
				r.goTo(afterL, o.Span)
				r.exitRegion(op.MarkCatch)
				r.exitRegion(op.MarkFilterAndHandler)
			} else {
				r.enterRegion(op.MarkCatch, c.ExceptionType)
				r.lowerStmt(c.Body)
				r.goTo(afterL, o.Span)
				r.exitRegion(op.MarkCatch)
			}
		}
		r.exitRegion(op.MarkTryAndCatch)
	} else {
		r.lowerStmt(t.Body)
		r.goTo(afterL, o.Span)
	}
	if t.Finally != nil {
		r.exitRegion(op.MarkTry)
		r.enterRegion(op.MarkFinally, "")
		r.lowerStmt(t.Finally)
		r.exitRegion(op.MarkFinally)
		r.exitRegion(op.MarkTryAndFinally)
	}
	r.label(afterL)
}
