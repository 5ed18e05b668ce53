package cfg

import (
	"fmt"

	"prism/internal/op"
)

// Build lowers a structured operation tree and partitions the result into
// a control-flow graph. Constant branch conditions are not folded here;
// pruning statically dead sides is the dataflow engine's job.
func Build(body *op.Operation) (*Graph, error) {
	rw := &rewriter{}
	rw.lowerStmt(body)

	p := newPartitioner()
	for i := range rw.insts {
		if err := p.add(&rw.insts[i]); err != nil {
			return nil, err
		}
	}
	return p.finish()
}

type partitioner struct {
	blocks []*BasicBlock
	cur    *BasicBlock

	root  *Region
	stack []*Region

	labelBlock    map[op.LabelID]int
	pendingLabels []op.LabelID

	fallToNext  map[int]bool        // block falls into the next ordinal
	returnFalls map[int]bool        // block falls into the exit with Return
	gotoFT      map[int]op.LabelID  // unresolved fall-through goto targets
	gotoCond    map[int]op.LabelID  // unresolved conditional targets
}

func newPartitioner() *partitioner {
	root := &Region{Kind: RegionRoot, First: 0, Last: -1}
	p := &partitioner{
		root:        root,
		stack:       []*Region{root},
		labelBlock:  make(map[op.LabelID]int),
		fallToNext:  make(map[int]bool),
		returnFalls: make(map[int]bool),
		gotoFT:      make(map[int]op.LabelID),
		gotoCond:    make(map[int]op.LabelID),
	}
	entry := &BasicBlock{Kind: BlockEntry, Ordinal: 0, Region: root}
	p.blocks = append(p.blocks, entry)
	p.fallToNext[0] = true
	return p
}

func (p *partitioner) innermost() *Region {
	return p.stack[len(p.stack)-1]
}

// newBlock opens a fresh block inside the innermost region, resolving any
// labels waiting for a target and claiming region starts.
func (p *partitioner) newBlock() *BasicBlock {
	b := &BasicBlock{Kind: BlockOrdinary, Ordinal: len(p.blocks), Region: p.innermost()}
	p.blocks = append(p.blocks, b)
	for _, r := range p.stack {
		if r.First == -1 {
			r.First = b.Ordinal
		}
	}
	for _, l := range p.pendingLabels {
		p.labelBlock[l] = b.Ordinal
	}
	p.pendingLabels = nil
	p.cur = b
	return b
}

func (p *partitioner) ensure() *BasicBlock {
	if p.cur == nil {
		return p.newBlock()
	}
	return p.cur
}

// sealFall closes the open block so it falls into the next one created.
func (p *partitioner) sealFall() {
	if p.cur == nil {
		return
	}
	p.fallToNext[p.cur.Ordinal] = true
	p.cur = nil
}

func (p *partitioner) add(in *op.Inst) error {
	switch in.Kind {
	case op.InstLabel:
		p.sealFall()
		p.pendingLabels = append(p.pendingLabels, in.Label.ID)

	case op.InstAssign, op.InstEval:
		b := p.ensure()
		b.Statements = append(b.Statements, *in)

	case op.InstReturn:
		b := p.ensure()
		b.Statements = append(b.Statements, *in)
		p.returnFalls[b.Ordinal] = true
		p.cur = nil

	case op.InstThrow:
		b := p.ensure()
		b.Statements = append(b.Statements, *in)
		sem := SemanticsThrow
		if in.Throw.Rethrow {
			sem = SemanticsRethrow
		}
		b.FallThrough = Branch{Dest: NoDest, Semantics: sem}
		p.cur = nil

	case op.InstGoto:
		b := p.ensure()
		p.gotoFT[b.Ordinal] = in.Goto.Target
		p.cur = nil

	case op.InstCondGoto:
		b := p.ensure()
		b.Condition = in.CondGoto.Cond
		if in.CondGoto.JumpIfTrue {
			b.CondKind = ConditionWhenTrue
		} else {
			b.CondKind = ConditionWhenFalse
		}
		p.gotoCond[b.Ordinal] = in.CondGoto.Target
		p.fallToNext[b.Ordinal] = true
		p.cur = nil

	case op.InstRegion:
		if in.Region.Enter {
			p.enterRegion(in.Region)
		} else {
			return p.exitRegion(in.Region)
		}

	default:
		return fmt.Errorf("cfg: unexpected lowered instruction %v", in.Kind)
	}
	return nil
}

func regionKindOf(mark op.RegionMarkerKind) RegionKind {
	switch mark {
	case op.MarkTry:
		return RegionTry
	case op.MarkCatch:
		return RegionCatch
	case op.MarkFilter:
		return RegionFilter
	case op.MarkFilterAndHandler:
		return RegionFilterAndHandler
	case op.MarkFinally:
		return RegionFinally
	case op.MarkTryAndCatch:
		return RegionTryAndCatch
	case op.MarkTryAndFinally:
		return RegionTryAndFinally
	}
	return RegionRoot
}

func (p *partitioner) enterRegion(m op.RegionInst) {
	p.sealFall()
	parent := p.innermost()
	r := &Region{
		Kind:          regionKindOf(m.Mark),
		First:         -1,
		Last:          -1,
		ExceptionType: m.ExceptionType,
		Enclosing:     parent,
	}
	parent.Nested = append(parent.Nested, r)
	p.stack = append(p.stack, r)
}

func (p *partitioner) exitRegion(m op.RegionInst) error {
	r := p.innermost()
	if r.Kind != regionKindOf(m.Mark) {
		return fmt.Errorf("cfg: mismatched region exit: %v closed while %v open", regionKindOf(m.Mark), r.Kind)
	}

	// Finally and filter bodies end in a structured-exception-handling
	// branch: the engine, not an edge, decides where control resumes. The
	// SEH block must live inside the region, so any pending join labels or
	// fall-throughs left by the body's last statement are claimed here; a
	// body ending in throw or return never completes and gets no SEH exit.
	if r.Kind == RegionFinally || r.Kind == RegionFilter {
		completes := p.cur != nil || r.First == -1 ||
			len(p.pendingLabels) > 0 || p.fallToNext[len(p.blocks)-1]
		if completes {
			b := p.ensure()
			b.FallThrough = Branch{Dest: NoDest, Semantics: SemanticsStructuredExceptionHandling}
			p.cur = nil
		}
	} else if r.First == -1 {
		// Region never produced a block; give it an empty one so ordinal
		// ranges stay well-formed.
		p.ensure()
		p.sealFall()
	} else {
		p.sealFall()
	}

	if r.First == -1 {
		r.First = len(p.blocks) - 1
	}
	r.Last = len(p.blocks) - 1
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *partitioner) finish() (*Graph, error) {
	if len(p.stack) != 1 {
		return nil, fmt.Errorf("cfg: %d regions left open", len(p.stack)-1)
	}
	p.sealFall()

	exit := &BasicBlock{Kind: BlockExit, Ordinal: len(p.blocks), Region: p.root}
	p.blocks = append(p.blocks, exit)
	for _, l := range p.pendingLabels {
		p.labelBlock[l] = exit.Ordinal
	}
	p.pendingLabels = nil
	p.root.Last = exit.Ordinal

	for ord, target := range p.gotoFT {
		dest, ok := p.labelBlock[target]
		if !ok {
			return nil, fmt.Errorf("cfg: goto targets undefined label %d", target)
		}
		p.blocks[ord].FallThrough = Branch{Dest: dest, Semantics: SemanticsRegular}
	}
	for ord, target := range p.gotoCond {
		dest, ok := p.labelBlock[target]
		if !ok {
			return nil, fmt.Errorf("cfg: conditional goto targets undefined label %d", target)
		}
		p.blocks[ord].Conditional = Branch{Dest: dest, Semantics: SemanticsRegular}
	}
	for ord := range p.fallToNext {
		p.blocks[ord].FallThrough = Branch{Dest: ord + 1, Semantics: SemanticsRegular}
	}
	for ord := range p.returnFalls {
		p.blocks[ord].FallThrough = Branch{Dest: exit.Ordinal, Semantics: SemanticsReturn}
	}

	g := &Graph{Blocks: p.blocks, Root: p.root}
	g.computePredecessors()
	g.computeReachability()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
