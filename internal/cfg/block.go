package cfg

import (
	"prism/internal/op"
)

// BlockKind distinguishes the two synthetic blocks from ordinary ones.
type BlockKind uint8

const (
	BlockEntry BlockKind = iota
	BlockExit
	BlockOrdinary
)

func (k BlockKind) String() string {
	switch k {
	case BlockEntry:
		return "entry"
	case BlockExit:
		return "exit"
	case BlockOrdinary:
		return "block"
	}
	return "unknown"
}

// BranchSemantics classifies how control leaves a block along a branch.
type BranchSemantics uint8

const (
	// SemanticsNone marks an absent branch.
	SemanticsNone BranchSemantics = iota
	// SemanticsRegular is ordinary intra-graph control transfer.
	SemanticsRegular
	// SemanticsReturn leaves the code block through the exit.
	SemanticsReturn
	// SemanticsThrow raises an exception.
	SemanticsThrow
	// SemanticsRethrow re-raises the in-flight exception.
	SemanticsRethrow
	// SemanticsStructuredExceptionHandling ends a finally or filter body;
	// the dataflow engine decides where control resumes.
	SemanticsStructuredExceptionHandling
	// SemanticsProgramTermination ends the program outright.
	SemanticsProgramTermination
)

func (s BranchSemantics) String() string {
	switch s {
	case SemanticsNone:
		return "none"
	case SemanticsRegular:
		return "regular"
	case SemanticsReturn:
		return "return"
	case SemanticsThrow:
		return "throw"
	case SemanticsRethrow:
		return "rethrow"
	case SemanticsStructuredExceptionHandling:
		return "structured-exception-handling"
	case SemanticsProgramTermination:
		return "program-termination"
	}
	return "unknown"
}

// ConditionKind tells when the conditional successor is taken.
type ConditionKind uint8

const (
	ConditionNone ConditionKind = iota
	ConditionWhenTrue
	ConditionWhenFalse
)

func (k ConditionKind) String() string {
	switch k {
	case ConditionNone:
		return "none"
	case ConditionWhenTrue:
		return "when-true"
	case ConditionWhenFalse:
		return "when-false"
	}
	return "unknown"
}

// NoDest marks a branch without an in-graph destination (throws,
// structured exception handling, program termination).
const NoDest = -1

// Branch is one outgoing edge. Dest addresses the block arena by ordinal.
type Branch struct {
	Dest      int
	Semantics BranchSemantics
}

// BasicBlock is a maximal straight-line run of lowered instructions.
// Every non-exit block has exactly one fall-through branch unless it is
// terminated by throw/return/program termination; the conditional branch
// is populated iff CondKind != ConditionNone.
type BasicBlock struct {
	Kind       BlockKind
	Ordinal    int
	Statements []op.Inst

	FallThrough Branch
	Conditional Branch
	CondKind    ConditionKind
	Condition   *op.Operation // branch condition, set iff CondKind != None

	Region       *Region
	IsReachable  bool
	Predecessors []int
}

// HasCondition reports whether the block ends in a conditional branch.
func (b *BasicBlock) HasCondition() bool {
	return b.CondKind != ConditionNone
}

// ConditionalTakenWhen reports the condition value that takes the
// conditional branch.
func (b *BasicBlock) ConditionalTakenWhen() bool {
	return b.CondKind == ConditionWhenTrue
}
