package op

import (
	"prism/internal/source"
)

// LabelID identifies a jump target in a lowered instruction stream.
type LabelID uint32

// InstKind enumerates lowered instruction kinds. The rewriter reduces every
// structured operation to this set plus region markers; the partitioner
// then cuts the stream into basic blocks.
type InstKind uint8

const (
	// InstLabel marks a jump target.
	InstLabel InstKind = iota
	// InstGoto jumps unconditionally.
	InstGoto
	// InstCondGoto jumps when Cond matches JumpIfTrue.
	InstCondGoto
	// InstAssign stores an expression into a target.
	InstAssign
	// InstEval evaluates an expression for side effects.
	InstEval
	// InstReturn exits the code block.
	InstReturn
	// InstThrow raises (Rethrow re-raises) an exception.
	InstThrow
	// InstRegion brackets an exception-handling region.
	InstRegion
)

func (k InstKind) String() string {
	switch k {
	case InstLabel:
		return "label"
	case InstGoto:
		return "goto"
	case InstCondGoto:
		return "cond-goto"
	case InstAssign:
		return "assign"
	case InstEval:
		return "eval"
	case InstReturn:
		return "return"
	case InstThrow:
		return "throw"
	case InstRegion:
		return "region"
	}
	return "unknown"
}

// RegionMarkerKind tells the partitioner which region construct a marker
// opens or closes.
type RegionMarkerKind uint8

const (
	MarkTry RegionMarkerKind = iota
	MarkCatch
	MarkFilter
	MarkFilterAndHandler
	MarkFinally
	MarkTryAndCatch
	MarkTryAndFinally
)

func (k RegionMarkerKind) String() string {
	switch k {
	case MarkTry:
		return "try"
	case MarkCatch:
		return "catch"
	case MarkFilter:
		return "filter"
	case MarkFilterAndHandler:
		return "filter-and-handler"
	case MarkFinally:
		return "finally"
	case MarkTryAndCatch:
		return "try-and-catch"
	case MarkTryAndFinally:
		return "try-and-finally"
	}
	return "unknown"
}

// Inst is one lowered instruction.
type Inst struct {
	Kind InstKind
	Span source.Span

	Label    LabelInst
	Goto     GotoInst
	CondGoto CondGotoInst
	Assign   AssignInst
	Eval     EvalInst
	Return   ReturnInst
	Throw    ThrowInst
	Region   RegionInst
}

// LabelInst marks a jump target.
type LabelInst struct {
	ID LabelID
}

// GotoInst jumps unconditionally to Target.
type GotoInst struct {
	Target LabelID
}

// CondGotoInst jumps to Target when Cond evaluates to JumpIfTrue.
type CondGotoInst struct {
	Cond       *Operation
	JumpIfTrue bool
	Target     LabelID
}

// AssignInst stores Value into Target.
type AssignInst struct {
	Target string
	Value  *Operation
}

// EvalInst evaluates Value for side effects.
type EvalInst struct {
	Value *Operation
}

// ReturnInst exits the code block, optionally with a value.
type ReturnInst struct {
	HasValue bool
	Value    *Operation
}

// ThrowInst raises Value, or re-raises the in-flight exception.
type ThrowInst struct {
	Value   *Operation
	Rethrow bool
}

// RegionInst opens (Enter) or closes a region construct.
type RegionInst struct {
	Mark          RegionMarkerKind
	Enter         bool
	ExceptionType string
}
