package cfg

import "fmt"

// Validate checks structural invariants of a finished graph: ordinal
// addressing, branch destinations, region ranges, and region nesting.
func (g *Graph) Validate() error {
	if len(g.Blocks) < 2 {
		return fmt.Errorf("cfg: graph needs entry and exit, has %d blocks", len(g.Blocks))
	}
	if g.Blocks[0].Kind != BlockEntry {
		return fmt.Errorf("cfg: block 0 is %v, want entry", g.Blocks[0].Kind)
	}
	if g.Blocks[len(g.Blocks)-1].Kind != BlockExit {
		return fmt.Errorf("cfg: last block is %v, want exit", g.Blocks[len(g.Blocks)-1].Kind)
	}

	for i, b := range g.Blocks {
		if b.Ordinal != i {
			return fmt.Errorf("cfg: block at index %d has ordinal %d", i, b.Ordinal)
		}
		if err := g.checkBranch(b, b.FallThrough, "fall-through"); err != nil {
			return err
		}
		if b.HasCondition() {
			if b.Condition == nil {
				return fmt.Errorf("cfg: block %d has conditional branch without condition", i)
			}
			if err := g.checkBranch(b, b.Conditional, "conditional"); err != nil {
				return err
			}
		} else if b.Conditional.Semantics != SemanticsNone {
			return fmt.Errorf("cfg: block %d has conditional branch without condition kind", i)
		}
		if b.Kind == BlockExit && b.FallThrough.Semantics != SemanticsNone {
			return fmt.Errorf("cfg: exit block has outgoing branch")
		}
		if b.Region == nil {
			return fmt.Errorf("cfg: block %d has no region", i)
		}
		if !b.Region.Contains(i) {
			return fmt.Errorf("cfg: block %d outside its region [%d,%d]", i, b.Region.First, b.Region.Last)
		}
	}

	return g.checkRegion(g.Root, nil)
}

func (g *Graph) checkBranch(b *BasicBlock, br Branch, what string) error {
	switch br.Semantics {
	case SemanticsNone:
		if br.Dest != 0 && br.Dest != NoDest {
			return fmt.Errorf("cfg: block %d absent %s branch has destination %d", b.Ordinal, what, br.Dest)
		}
	case SemanticsThrow, SemanticsRethrow, SemanticsStructuredExceptionHandling, SemanticsProgramTermination:
		if br.Dest != NoDest {
			return fmt.Errorf("cfg: block %d %s %v branch has in-graph destination %d", b.Ordinal, what, br.Semantics, br.Dest)
		}
	default:
		if br.Dest < 0 || br.Dest >= len(g.Blocks) {
			return fmt.Errorf("cfg: block %d %s branch targets %d, out of range", b.Ordinal, what, br.Dest)
		}
	}
	return nil
}

func (g *Graph) checkRegion(r *Region, parent *Region) error {
	if r.Enclosing != parent {
		return fmt.Errorf("cfg: region [%d,%d] has wrong enclosing link", r.First, r.Last)
	}
	if r.First < 0 || r.Last >= len(g.Blocks) || r.First > r.Last {
		return fmt.Errorf("cfg: region %v has range [%d,%d]", r.Kind, r.First, r.Last)
	}
	if parent != nil && (r.First < parent.First || r.Last > parent.Last) {
		return fmt.Errorf("cfg: region %v [%d,%d] escapes parent [%d,%d]",
			r.Kind, r.First, r.Last, parent.First, parent.Last)
	}
	for _, n := range r.Nested {
		if err := g.checkRegion(n, r); err != nil {
			return err
		}
	}
	return nil
}
