package dataflow

import (
	"context"
	"fmt"

	"prism/internal/cfg"
)

// finallyOutcome memoizes one finally (or filter) sub-walk so repeated
// entries from different branches reuse its result.
type finallyOutcome[T any] struct {
	out              T
	continueDispatch bool
}

type runner[T any] struct {
	g *cfg.Graph
	a Analyzer[T]

	// visited tracks blocks analyzed at least once, so the unreachable
	// backlog never re-processes a block reached some other way.
	visited map[int]bool

	finallyMemo map[*cfg.Region]finallyOutcome[T]

	// dispatched records regions whose exceptional edges were already
	// propagated; entries are cleared when the region's first block is
	// revisited, so back edges into a try re-dispatch with fresh data.
	dispatched map[*cfg.Region]bool
}

// Run computes the fixed point of the analysis over the graph and
// returns the data recorded at the exit block.
func Run[T any](ctx context.Context, g *cfg.Graph, a Analyzer[T]) (T, error) {
	r := &runner[T]{
		g:           g,
		a:           a,
		visited:     make(map[int]bool),
		finallyMemo: make(map[*cfg.Region]finallyOutcome[T]),
		dispatched:  make(map[*cfg.Region]bool),
	}
	return r.run(ctx, g.Entry().Ordinal, g.Exit().Ordinal, a.InitialData(), true)
}

// run walks the block range [first, last] to a fixed point. Sub-walks
// (finally and filter regions) run with drainBacklog false: they analyze
// the region in isolation and leave dead blocks to the top-level walk.
func (r *runner[T]) run(ctx context.Context, first, last int, initial T, drainBacklog bool) (T, error) {
	var zero T
	var toVisit []int
	r.mergeInto(first, initial, &toVisit)
	if len(toVisit) == 0 {
		// Re-entry with already-covered data still needs the range walked.
		toVisit = append(toVisit, first)
	}

	var result T
	haveResult := false
	backlog := first
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		var cur int
		if len(toVisit) > 0 {
			cur = toVisit[len(toVisit)-1]
			toVisit = toVisit[:len(toVisit)-1]
		} else {
			if !drainBacklog || !r.a.AnalyzeUnreachableBlocks() {
				break
			}
			found := false
			for ; backlog <= last; backlog++ {
				b := r.g.Blocks[backlog]
				if b.IsReachable || r.visited[backlog] {
					continue
				}
				cur = backlog
				found = true
				break
			}
			if !found {
				break
			}
			if _, ok := r.a.Current(r.g.Blocks[cur]); !ok {
				r.a.SetCurrent(r.g.Blocks[cur], r.a.InitialData())
			}
		}
		if cur < first || cur > last {
			continue
		}

		block := r.g.Blocks[cur]
		r.visited[cur] = true
		for _, reg := range r.g.RegionsStartingAt(cur) {
			delete(r.dispatched, reg)
		}

		input, hasInput := r.a.Current(block)
		out := r.a.AnalyzeBlock(ctx, block)
		if cur == last {
			// The range result is the last block's post-transfer data;
			// finally sub-walks rely on this.
			result = out
			haveResult = true
		}

		ftData := out
		ftLive := true
		if block.HasCondition() {
			var condData T
			ftData, condData = r.a.SplitForConditionalBranch(block, out)
			condLive := true
			if v, known := block.Condition.BoolConst(); known {
				// The engine, not the builder, prunes constant branches.
				if v == block.ConditionalTakenWhen() {
					ftLive = false
				} else {
					condLive = false
				}
				if r.a.AnalyzeUnreachableBlocks() {
					ftLive, condLive = true, true
				}
			}
			if condLive {
				if err := r.follow(ctx, block, block.Conditional, condData, first, last, &toVisit); err != nil {
					return zero, err
				}
			}
		}
		if ftLive {
			if err := r.follow(ctx, block, block.FallThrough, ftData, first, last, &toVisit); err != nil {
				return zero, err
			}
		}

		// Anything inside a try can throw from any point, so the state
		// handed to handlers covers the block's entry as well as its end.
		excData := out
		if hasInput {
			excData = r.a.Merge(input, out)
		}
		if err := r.dispatchException(ctx, block.Region, excData, first, last, &toVisit); err != nil {
			return zero, err
		}
	}

	if !haveResult {
		result, _ = r.a.Current(r.g.Blocks[last])
	}
	return result, nil
}

// follow propagates data along one outgoing branch, stepping through any
// finally regions between the source and the destination.
func (r *runner[T]) follow(ctx context.Context, block *cfg.BasicBlock, br cfg.Branch, data T, first, last int, toVisit *[]int) error {
	switch br.Semantics {
	case cfg.SemanticsStructuredExceptionHandling:
		// A filter that runs to completion admits the exception into its
		// paired handler.
		if block.Region.Kind == cfg.RegionFilter && block.Ordinal == block.Region.Last {
			group := block.Region.Enclosing
			for _, n := range group.Nested {
				if n.Kind == cfg.RegionCatch && n.First >= first && n.First <= last {
					r.mergeInto(n.First, data, toVisit)
				}
			}
		}
		return nil
	case cfg.SemanticsNone, cfg.SemanticsThrow, cfg.SemanticsRethrow,
		cfg.SemanticsProgramTermination:
		return nil
	case cfg.SemanticsRegular, cfg.SemanticsReturn:
		if br.Dest == cfg.NoDest {
			return nil
		}
		cont, stepped, err := r.stepThroughFinally(ctx, block.Region, br.Dest, data)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		if br.Dest < first || br.Dest > last {
			// Branch leaves the sub-range; the outer walk owns it.
			return nil
		}
		r.mergeInto(br.Dest, stepped, toVisit)
		return nil
	}
	return fmt.Errorf("dataflow: block %d has branch with unknown semantics %v", block.Ordinal, br.Semantics)
}

// mergeInto joins data into the destination block, re-queueing it when
// the stored data changed. This is the loop convergence criterion.
func (r *runner[T]) mergeInto(ordinal int, data T, toVisit *[]int) {
	dest := r.g.Blocks[ordinal]
	cur, ok := r.a.Current(dest)
	if !ok {
		r.a.SetCurrent(dest, data)
		*toVisit = append(*toVisit, ordinal)
		return
	}
	merged := r.a.Merge(cur, data)
	if !r.a.Equal(merged, cur) {
		r.a.SetCurrent(dest, merged)
		*toVisit = append(*toVisit, ordinal)
	}
}

// stepThroughFinally walks up the region tree from the branch source to
// the region containing the destination, sub-analyzing every finally
// left on the way. Returns false when some finally never completes.
func (r *runner[T]) stepThroughFinally(ctx context.Context, region *cfg.Region, dest int, data T) (bool, T, error) {
	for !region.Contains(dest) {
		enclosing := region.Enclosing
		if enclosing == nil {
			return false, data, fmt.Errorf("dataflow: branch destination %d outside the graph", dest)
		}
		if region.Kind == cfg.RegionTry && enclosing.Kind == cfg.RegionTryAndFinally {
			fin := enclosing.FinallyOf()
			if fin == nil {
				return false, data, fmt.Errorf("dataflow: try-and-finally region [%d,%d] has no finally", enclosing.First, enclosing.Last)
			}
			cont, out, err := r.stepThroughSubRegion(ctx, fin, data)
			if err != nil {
				return false, data, err
			}
			if !cont {
				return false, data, nil
			}
			data = out
		}
		region = enclosing
	}
	return true, data, nil
}

// stepThroughSubRegion analyzes a finally or filter region in isolation
// with the given entry data. The outcome is memoized per region; repeated
// entries reuse the first sub-walk's result.
func (r *runner[T]) stepThroughSubRegion(ctx context.Context, region *cfg.Region, data T) (bool, T, error) {
	if memo, ok := r.finallyMemo[region]; ok {
		return memo.continueDispatch, memo.out, nil
	}
	out, err := r.run(ctx, region.First, region.Last, data, false)
	if err != nil {
		return false, data, err
	}
	last := r.g.Blocks[region.Last]
	cont := last.FallThrough.Semantics == cfg.SemanticsStructuredExceptionHandling
	r.finallyMemo[region] = finallyOutcome[T]{out: out, continueDispatch: cont}
	return cont, out, nil
}

// dispatchException propagates data along the exceptional edges implied
// by the region tree: into catch and filter entries of every enclosing
// try, and through every enclosing finally.
func (r *runner[T]) dispatchException(ctx context.Context, from *cfg.Region, data T, first, last int, toVisit *[]int) error {
	for from != nil {
		if r.dispatched[from] {
			return nil
		}
		r.dispatched[from] = true

		enclosing := from.Enclosing
		switch from.Kind {
		case cfg.RegionTry:
			switch enclosing.Kind {
			case cfg.RegionTryAndFinally:
				fin := enclosing.FinallyOf()
				if fin == nil {
					return fmt.Errorf("dataflow: try-and-finally region [%d,%d] has no finally", enclosing.First, enclosing.Last)
				}
				cont, out, err := r.stepThroughSubRegion(ctx, fin, data)
				if err != nil {
					return err
				}
				if !cont {
					return nil
				}
				data = out
			case cfg.RegionTryAndCatch:
				if err := r.dispatchThroughCatches(enclosing, 0, data, first, last, toVisit); err != nil {
					return err
				}
			default:
				return fmt.Errorf("dataflow: try region [%d,%d] enclosed by %v", from.First, from.Last, enclosing.Kind)
			}
		case cfg.RegionFilter:
			// An exception inside a filter moves dispatch to the next
			// handler in textual order.
			group := enclosing            // filter-and-handler
			tryAndCatch := group.Enclosing
			start := 0
			for i, n := range tryAndCatch.Nested {
				if n == group {
					start = i + 1
					break
				}
			}
			if err := r.dispatchThroughCatches(tryAndCatch, start, data, first, last, toVisit); err != nil {
				return err
			}
			from = tryAndCatch
			continue
		}
		from = enclosing
	}
	return nil
}

// dispatchThroughCatches merges exception data into every handler of a
// try-and-catch group starting at the given child index. Filters are
// never assumed to handle all exceptions, so dispatch always continues
// past them.
func (r *runner[T]) dispatchThroughCatches(tryAndCatch *cfg.Region, start int, data T, first, last int, toVisit *[]int) error {
	if tryAndCatch.Kind != cfg.RegionTryAndCatch {
		return fmt.Errorf("dataflow: dispatch into %v region, want try-and-catch", tryAndCatch.Kind)
	}
	handled := false
	for _, h := range tryAndCatch.Nested[start:] {
		switch h.Kind {
		case cfg.RegionTry:
			continue
		case cfg.RegionCatch:
			handled = true
			if h.First >= first && h.First <= last {
				r.mergeInto(h.First, data, toVisit)
			}
		case cfg.RegionFilterAndHandler:
			handled = true
			entry := h.HandlerEntry()
			if entry >= first && entry <= last {
				r.mergeInto(entry, data, toVisit)
			}
		default:
			return fmt.Errorf("dataflow: unexpected %v region inside try-and-catch", h.Kind)
		}
	}
	if !handled && start == 0 {
		return fmt.Errorf("dataflow: try-and-catch region [%d,%d] has no handlers", tryAndCatch.First, tryAndCatch.Last)
	}
	return nil
}
