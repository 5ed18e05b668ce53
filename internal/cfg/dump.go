package cfg

import (
	"fmt"
	"io"
	"strings"

	"prism/internal/op"
)

// Dump writes a textual listing of the graph: one entry per block with its
// lowered statements, outgoing branches, and enclosing region path.
func Dump(w io.Writer, g *Graph) {
	for i := range g.Blocks {
		b := g.Blocks[i]
		fmt.Fprintf(w, "B%d [%s]%s%s\n", b.Ordinal, b.Kind, regionSuffix(b.Region), reachSuffix(b))
		for _, in := range b.Statements {
			fmt.Fprintf(w, "    %s\n", instString(in))
		}
		if b.FallThrough.Semantics != SemanticsNone {
			fmt.Fprintf(w, "    -> %s (%s)\n", destString(b.FallThrough.Dest), b.FallThrough.Semantics)
		}
		if b.HasCondition() {
			fmt.Fprintf(w, "    -> %s (%s %s: %s)\n",
				destString(b.Conditional.Dest), b.Conditional.Semantics, b.CondKind, exprString(b.Condition))
		}
	}
}

func destString(dest int) string {
	if dest == NoDest {
		return "none"
	}
	return fmt.Sprintf("B%d", dest)
}

func reachSuffix(b *BasicBlock) string {
	if b.IsReachable {
		return ""
	}
	return " unreachable"
}

// regionSuffix names the region path from the block's region up to (but
// excluding) the root, innermost first.
func regionSuffix(r *Region) string {
	if r == nil || r.Enclosing == nil {
		return ""
	}
	var parts []string
	for cur := r; cur != nil && cur.Enclosing != nil; cur = cur.Enclosing {
		parts = append(parts, cur.Kind.String())
	}
	return " region=" + strings.Join(parts, "<")
}

func instString(in op.Inst) string {
	switch in.Kind {
	case op.InstLabel:
		return fmt.Sprintf("L%d:", in.Label.ID)
	case op.InstGoto:
		return fmt.Sprintf("goto L%d", in.Goto.Target)
	case op.InstCondGoto:
		return fmt.Sprintf("goto L%d when %s is %v", in.CondGoto.Target, exprString(in.CondGoto.Cond), in.CondGoto.JumpIfTrue)
	case op.InstAssign:
		return fmt.Sprintf("%s = %s", in.Assign.Target, exprString(in.Assign.Value))
	case op.InstEval:
		return "eval " + exprString(in.Eval.Value)
	case op.InstReturn:
		if in.Return.HasValue {
			return "return " + exprString(in.Return.Value)
		}
		return "return"
	case op.InstThrow:
		if in.Throw.Rethrow {
			return "rethrow"
		}
		return "throw " + exprString(in.Throw.Value)
	case op.InstRegion:
		dir := "exit"
		if in.Region.Enter {
			dir = "enter"
		}
		return fmt.Sprintf("region %s %s", dir, in.Region.Mark)
	}
	return in.Kind.String()
}

func exprString(o *op.Operation) string {
	if o == nil {
		return "_"
	}
	switch o.Kind {
	case op.OpLiteral:
		if o.Literal.Const.HasBool {
			return fmt.Sprintf("%v", o.Literal.Const.Bool)
		}
		if o.Literal.Const.Text != "" {
			return o.Literal.Const.Text
		}
		return "<lit>"
	case op.OpVarRef:
		return o.VarRef.Name
	case op.OpInvoke:
		args := make([]string, len(o.Invoke.Args))
		for i, a := range o.Invoke.Args {
			args[i] = exprString(a)
		}
		return fmt.Sprintf("%s(%s)", o.Invoke.Callee, strings.Join(args, ", "))
	case op.OpLogical:
		sep := " && "
		if o.Logical.Op == op.LogicalOr {
			sep = " || "
		}
		return exprString(o.Logical.Left) + sep + exprString(o.Logical.Right)
	case op.OpCoalesce:
		return exprString(o.Coalesce.Value) + " ?? " + exprString(o.Coalesce.WhenNull)
	case op.OpCondAccess:
		return exprString(o.CondAccess.Receiver) + "?." + exprString(o.CondAccess.WhenNotNull)
	case op.OpAssign:
		return o.Assign.Target + " = " + exprString(o.Assign.Value)
	case op.OpNone:
		return "_"
	}
	return o.Kind.String()
}
