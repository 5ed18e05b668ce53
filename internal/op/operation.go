package op

import (
	"prism/internal/source"
)

// Kind enumerates structured operation kinds.
type Kind uint8

const (
	// OpBlock is a sequence of operations.
	OpBlock Kind = iota
	// OpIf is a two-armed conditional; Else may be nil.
	OpIf
	// OpWhile is a pre-test loop (post-test when DoWhile is set).
	OpWhile
	// OpLogical is short-circuit && / ||.
	OpLogical
	// OpCoalesce is the null-coalescing operator (a ?? b).
	OpCoalesce
	// OpCondAccess is conditional access (a?.b).
	OpCondAccess
	// OpSwitch is a multi-way branch over case clauses.
	OpSwitch
	// OpTry is try/catch/finally with optional catch filters.
	OpTry
	// OpThrow raises an exception; a nil value inside a catch rethrows.
	OpThrow
	// OpReturn exits the enclosing code block.
	OpReturn
	// OpAssign stores Value into the named target.
	OpAssign
	// OpEval evaluates an expression for its side effects.
	OpEval
	// OpLiteral is a constant leaf.
	OpLiteral
	// OpVarRef reads a named variable.
	OpVarRef
	// OpInvoke calls a named function.
	OpInvoke
	// OpNone is the zero operation (absent child).
	OpNone
)

func (k Kind) String() string {
	switch k {
	case OpBlock:
		return "block"
	case OpIf:
		return "if"
	case OpWhile:
		return "while"
	case OpLogical:
		return "logical"
	case OpCoalesce:
		return "coalesce"
	case OpCondAccess:
		return "cond-access"
	case OpSwitch:
		return "switch"
	case OpTry:
		return "try"
	case OpThrow:
		return "throw"
	case OpReturn:
		return "return"
	case OpAssign:
		return "assign"
	case OpEval:
		return "eval"
	case OpLiteral:
		return "literal"
	case OpVarRef:
		return "var-ref"
	case OpInvoke:
		return "invoke"
	case OpNone:
		return "none"
	}
	return "unknown"
}

// LogicalOp distinguishes the two short-circuit operators.
type LogicalOp uint8

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// Constant is a statically-known value. Only booleans matter to the flow
// engine (branch pruning); everything else is opaque.
type Constant struct {
	HasBool bool
	Bool    bool
	Text    string
}

// SwitchCase is one arm of an OpSwitch. A nil Match marks the default arm.
type SwitchCase struct {
	Match *Operation
	Body  *Operation
}

// CatchClause is one handler of an OpTry. Filter, when non-nil, guards the
// handler; ExceptionType names the caught type ("" catches everything).
type CatchClause struct {
	ExceptionType string
	Filter        *Operation
	Body          *Operation
}

// Operation is one node of a structured operation tree.
type Operation struct {
	Kind Kind
	Span source.Span

	Block      BlockOp
	If         IfOp
	While      WhileOp
	Logical    LogicalOpData
	Coalesce   CoalesceOp
	CondAccess CondAccessOp
	Switch     SwitchOp
	Try        TryOp
	Throw      ThrowOp
	Return     ReturnOp
	Assign     AssignOp
	Eval       EvalOp
	Literal    LiteralOp
	VarRef     VarRefOp
	Invoke     InvokeOp
}

// BlockOp is a sequence of operations.
type BlockOp struct {
	Ops []*Operation
}

// IfOp is a conditional; Else may be nil.
type IfOp struct {
	Cond *Operation
	Then *Operation
	Else *Operation
}

// WhileOp is a loop; DoWhile runs the body before the first test.
type WhileOp struct {
	Cond    *Operation
	Body    *Operation
	DoWhile bool
}

// LogicalOpData is a short-circuit binary operator.
type LogicalOpData struct {
	Op    LogicalOp
	Left  *Operation
	Right *Operation
}

// CoalesceOp evaluates Value and falls back to WhenNull.
type CoalesceOp struct {
	Value    *Operation
	WhenNull *Operation
}

// CondAccessOp evaluates WhenNotNull only when Receiver is non-null.
type CondAccessOp struct {
	Receiver    *Operation
	WhenNotNull *Operation
}

// SwitchOp is a multi-way branch.
type SwitchOp struct {
	Value *Operation
	Cases []SwitchCase
}

// TryOp is try/catch/finally.
type TryOp struct {
	Body    *Operation
	Catches []CatchClause
	Finally *Operation
}

// ThrowOp raises Value; nil Value rethrows the in-flight exception.
type ThrowOp struct {
	Value *Operation
}

// ReturnOp exits the code block, optionally with a value.
type ReturnOp struct {
	Value *Operation
}

// AssignOp stores Value into Target.
type AssignOp struct {
	Target string
	Value  *Operation
}

// EvalOp evaluates Value for side effects.
type EvalOp struct {
	Value *Operation
}

// LiteralOp is a constant leaf.
type LiteralOp struct {
	Const Constant
}

// VarRefOp reads a named variable.
type VarRefOp struct {
	Name string
}

// InvokeOp calls a named function.
type InvokeOp struct {
	Callee string
	Args   []*Operation
}

// BoolConst reports the statically-known boolean value of the operation,
// when there is one. Branch pruning in the flow engine relies on this.
func (o *Operation) BoolConst() (value, known bool) {
	if o == nil || o.Kind != OpLiteral || !o.Literal.Const.HasBool {
		return false, false
	}
	return o.Literal.Const.Bool, true
}
