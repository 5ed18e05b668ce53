package dataflow

import (
	"context"

	"prism/internal/cfg"
)

// Analyzer is the capability set a flow analysis plugs into the engine.
// T is the per-block analysis data; Merge and Equal must form a monotone
// lattice join or the fixed point may not terminate.
type Analyzer[T any] interface {
	// InitialData is the data seeded at the entry block and at blocks
	// visited from the unreachable backlog with no incoming data.
	InitialData() T

	// Current returns the data stored at the block, when any path has
	// reached it.
	Current(b *cfg.BasicBlock) (T, bool)

	// SetCurrent records data at the block.
	SetCurrent(b *cfg.BasicBlock, data T)

	// AnalyzeBlock applies the block's transfer function to the data
	// stored at it and returns the data after its last statement.
	AnalyzeBlock(ctx context.Context, b *cfg.BasicBlock) T

	// SplitForConditionalBranch refines the block output for the two
	// outgoing edges of a conditional block.
	SplitForConditionalBranch(b *cfg.BasicBlock, data T) (fallThrough, conditional T)

	// Merge joins data flowing into one block from two paths.
	Merge(a, b T) T

	// Equal is the convergence test.
	Equal(a, b T) bool

	// AnalyzeUnreachableBlocks makes the engine visit statically dead
	// blocks once each after the reachable fixed point is done.
	AnalyzeUnreachableBlocks() bool
}

// BlockData is a map-backed store analyzers can embed to satisfy the
// Current/SetCurrent pair.
type BlockData[T any] struct {
	data map[int]T
}

func (s *BlockData[T]) Current(b *cfg.BasicBlock) (T, bool) {
	v, ok := s.data[b.Ordinal]
	return v, ok
}

func (s *BlockData[T]) SetCurrent(b *cfg.BasicBlock, data T) {
	if s.data == nil {
		s.data = make(map[int]T)
	}
	s.data[b.Ordinal] = data
}
