package state

import (
	"sync/atomic"

	"prism/internal/analyzer"
	"prism/internal/compilation"
)

// Kind is the processing flag of one (analyzer, entity) pair.
type Kind int32

const (
	// Ready means no worker holds the entity; TryStart may acquire it.
	Ready Kind = iota
	// InProcess means exactly one worker is executing actions on it.
	InProcess
)

func (k Kind) String() string {
	switch k {
	case Ready:
		return "ready"
	case InProcess:
		return "in-process"
	}
	return "unknown"
}

// StateData is the base per-(analyzer, entity) record. The flag transitions
// Ready -> InProcess by CAS only; InProcess -> Ready by the holder's reset.
// ProcessedActions is mutated only while the holder is InProcess and
// survives resets, so a cancelled entity resumes instead of restarting.
type StateData struct {
	flag             atomic.Int32
	ProcessedActions map[analyzer.ActionID]struct{}
}

// NewStateData creates a record in the Ready state.
func NewStateData() *StateData {
	return &StateData{ProcessedActions: make(map[analyzer.ActionID]struct{})}
}

func (s *StateData) base() *StateData { return s }

// Kind returns the current flag value.
func (s *StateData) Kind() Kind {
	return Kind(s.flag.Load())
}

// tryAcquire attempts the Ready -> InProcess transition.
func (s *StateData) tryAcquire() bool {
	return s.flag.CompareAndSwap(int32(Ready), int32(InProcess))
}

// resetToReady hands the entity back after cancellation or completion of
// the holder's turn. Must be called exactly once per successful acquire.
func (s *StateData) resetToReady() {
	old := s.flag.Swap(int32(Ready))
	debugAssert(Kind(old) == InProcess, "reset of entity not in process (flag=%v)", Kind(old))
}

// MarkActionDone records that one registered action already ran on this
// entity. Only the InProcess holder may call it.
func (s *StateData) MarkActionDone(id analyzer.ActionID) {
	s.ProcessedActions[id] = struct{}{}
}

// ActionDone reports whether the action already ran on this entity.
func (s *StateData) ActionDone(id analyzer.ActionID) bool {
	_, ok := s.ProcessedActions[id]
	return ok
}

// holder lets the specialized state records share the acquire/reset
// machinery through their embedded StateData.
type holder interface {
	base() *StateData
}

// DeclarationState tracks one declaring syntax reference of a symbol:
// which nodes of the declaration subtree were visited, where the current
// walk stands, and the nested code-block analysis state.
type DeclarationState struct {
	StateData
	CurrentNode    compilation.NodeID
	ProcessedNodes map[compilation.NodeID]struct{}
	Block          CodeBlockState
}

// NewDeclarationState creates a declaration record in the Ready state.
func NewDeclarationState() *DeclarationState {
	return &DeclarationState{
		StateData:      StateData{ProcessedActions: make(map[analyzer.ActionID]struct{})},
		CurrentNode:    compilation.NoNode,
		ProcessedNodes: make(map[compilation.NodeID]struct{}),
		Block: CodeBlockState{
			ProcessedBlockActions: make(map[analyzer.ActionID]struct{}),
		},
	}
}

// NodeDone reports whether the declaration walk already visited the node.
func (d *DeclarationState) NodeDone(id compilation.NodeID) bool {
	_, ok := d.ProcessedNodes[id]
	return ok
}

// MarkNodeDone records a visited node and clears the current-node cursor
// when it matches.
func (d *DeclarationState) MarkNodeDone(id compilation.NodeID) {
	d.ProcessedNodes[id] = struct{}{}
	if d.CurrentNode == id {
		d.CurrentNode = compilation.NoNode
	}
}

// CodeBlockState tracks code-block and code-block-end actions for one
// declaration body, nested inside its DeclarationState.
type CodeBlockState struct {
	ProcessedBlockActions map[analyzer.ActionID]struct{}
	EndActionsDone        bool
}

// BlockActionDone reports whether a code-block action already ran.
func (c *CodeBlockState) BlockActionDone(id analyzer.ActionID) bool {
	_, ok := c.ProcessedBlockActions[id]
	return ok
}

// MarkBlockActionDone records a completed code-block action.
func (c *CodeBlockState) MarkBlockActionDone(id analyzer.ActionID) {
	c.ProcessedBlockActions[id] = struct{}{}
}
