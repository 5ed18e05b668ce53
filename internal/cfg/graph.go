package cfg

// Graph is a finished control-flow graph: a flat arena of blocks with the
// entry at ordinal 0 and the exit at the highest ordinal, plus the region
// tree rooted at Root. Immutable once built.
type Graph struct {
	Blocks []*BasicBlock
	Root   *Region
}

// Entry returns the synthetic entry block.
func (g *Graph) Entry() *BasicBlock {
	return g.Blocks[0]
}

// Exit returns the synthetic exit block.
func (g *Graph) Exit() *BasicBlock {
	return g.Blocks[len(g.Blocks)-1]
}

// Block returns the block at the given ordinal, or nil when out of range.
func (g *Graph) Block(ordinal int) *BasicBlock {
	if ordinal < 0 || ordinal >= len(g.Blocks) {
		return nil
	}
	return g.Blocks[ordinal]
}

// RegionsStartingAt returns every region whose range begins at the
// ordinal, outermost first. The dataflow engine uses this to clear
// exception-dispatch memos when a loop re-enters a region.
func (g *Graph) RegionsStartingAt(ordinal int) []*Region {
	var out []*Region
	g.Root.walk(func(r *Region) {
		if r.First == ordinal && r.Kind != RegionRoot {
			out = append(out, r)
		}
	})
	return out
}

// computePredecessors fills every block's predecessor list from the
// branch destinations.
func (g *Graph) computePredecessors() {
	for _, b := range g.Blocks {
		b.Predecessors = nil
	}
	for _, b := range g.Blocks {
		for _, br := range []Branch{b.FallThrough, b.Conditional} {
			if br.Semantics == SemanticsNone || br.Dest == NoDest {
				continue
			}
			dest := g.Blocks[br.Dest]
			dest.Predecessors = append(dest.Predecessors, b.Ordinal)
		}
	}
}

// computeReachability marks blocks reachable by regular control flow,
// then iterates handler entries: the blocks of a catch, filter, or
// finally region become reachable once any block of the corresponding
// try region is.
func (g *Graph) computeReachability() {
	for _, b := range g.Blocks {
		b.IsReachable = false
	}

	mark := func(start int) {
		stack := []int{start}
		for len(stack) > 0 {
			ord := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b := g.Blocks[ord]
			if b.IsReachable {
				continue
			}
			b.IsReachable = true
			for _, br := range []Branch{b.FallThrough, b.Conditional} {
				if br.Semantics == SemanticsNone || br.Dest == NoDest {
					continue
				}
				if !g.Blocks[br.Dest].IsReachable {
					stack = append(stack, br.Dest)
				}
			}
		}
	}

	mark(0)

	// Handlers become reachable when their protected region is. Repeat
	// until stable: a catch inside a reachable catch, and so on.
	for changed := true; changed; {
		changed = false
		g.Root.walk(func(r *Region) {
			var protected *Region
			switch r.Kind {
			case RegionTryAndCatch, RegionTryAndFinally:
				protected = r.TryOf()
			default:
				return
			}
			if protected == nil || !g.anyReachable(protected) {
				return
			}
			for _, n := range r.Nested {
				if n == protected {
					continue
				}
				entries := []int{n.First}
				if n.Kind == RegionFilterAndHandler {
					// A filter's trailing branch has no destination, so the
					// handler body is marked separately.
					entries = nil
					for _, part := range n.Nested {
						entries = append(entries, part.First)
					}
				}
				for _, entry := range entries {
					if entry >= 0 && entry < len(g.Blocks) && !g.Blocks[entry].IsReachable {
						mark(entry)
						changed = true
					}
				}
			}
		})
	}
}

func (g *Graph) anyReachable(r *Region) bool {
	for ord := r.First; ord <= r.Last && ord < len(g.Blocks); ord++ {
		if g.Blocks[ord].IsReachable {
			return true
		}
	}
	return false
}
