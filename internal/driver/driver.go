package driver

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"prism/internal/analyzer"
	"prism/internal/cache"
	"prism/internal/compilation"
	"prism/internal/diag"
	"prism/internal/observ"
	"prism/internal/source"
	"prism/internal/state"
	"prism/internal/trace"
)

// Options configures one driver instance.
type Options struct {
	Jobs           int  // worker pool size; <=0 means GOMAXPROCS
	MaxDiagnostics int  // bag limit; <=0 means 256
	Categorized    bool // bucket the queue by diagnostic category

	Cache  *cache.DiskCache // optional disk cache of finished runs
	Tracer trace.Tracer     // optional; defaults to trace.Nop
	Timer  *observ.Timer    // optional phase timer
}

// Result is the outcome of one run.
type Result struct {
	Bag       *diag.Bag
	FromCache bool
	Metrics   Snapshot
}

// Driver owns the scheduling state for one compilation and a fixed
// analyzer set.
type Driver struct {
	comp      *compilation.Compilation
	analyzers []analyzer.Analyzer
	opts      Options

	session *analyzer.Session
	scopes  *analyzer.CompilationData
	queue   *diag.Queue
	state   *state.AnalysisState
	met     metrics
}

// New creates a driver. Analyzer Initialize callbacks run lazily, once,
// on first use.
func New(comp *compilation.Compilation, analyzers []analyzer.Analyzer, opts Options) *Driver {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 256
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	q := diag.NewQueue()
	if opts.Categorized {
		q = diag.NewCategorizedQueue()
	}
	session := analyzer.NewSession()
	return &Driver{
		comp:      comp,
		analyzers: analyzers,
		opts:      opts,
		session:   session,
		scopes:    analyzer.NewCompilationData(session),
		queue:     q,
	}
}

// categoryFor buckets diagnostics by the action kind that produced them.
func categoryFor(kind analyzer.ActionKind) diag.Category {
	switch kind {
	case analyzer.ActionSyntaxTree:
		return diag.CategoryLocalSyntax
	case analyzer.ActionSyntaxNode, analyzer.ActionCodeBlock, analyzer.ActionCodeBlockEnd:
		return diag.CategoryLocalSemantic
	}
	return diag.CategoryNonLocal
}

func (d *Driver) reporter(a analyzer.Analyzer, kind analyzer.ActionKind) diag.Reporter {
	return diag.QueueReporter{Queue: d.queue, Analyzer: a.Name(), Category: categoryFor(kind)}
}

func (d *Driver) baseContext(ctx context.Context, a analyzer.Analyzer, kind analyzer.ActionKind) analyzer.ActionContext {
	return analyzer.ActionContext{
		Ctx:         ctx,
		Compilation: d.comp,
		Reporter:    d.reporter(a, kind),
		Resolve:     d.comp.Resolver(),
	}
}

// Run executes every analyzer over the compilation and returns the merged
// diagnostics. A cache hit skips the run entirely.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	timer := d.opts.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}
	defer trace.Span(d.opts.Tracer, "driver.run", d.comp.Name)()

	digest := d.comp.Digest()
	var cacheErr error
	if d.opts.Cache != nil {
		phase := timer.Begin("cache-lookup")
		var payload cache.Payload
		hit, err := d.opts.Cache.Get(digest, &payload)
		timer.End(phase, "")
		switch {
		case err != nil:
			cacheErr = err
			d.met.cacheMisses.Add(1)
		case hit && payload.Digest == digest.String():
			d.met.cacheHits.Add(1)
			bag := diag.NewBag(d.opts.MaxDiagnostics)
			for _, item := range cache.Decode(&payload) {
				bag.Add(item)
			}
			bag.Sort()
			return &Result{Bag: bag, FromCache: true, Metrics: d.met.snapshot()}, nil
		default:
			d.met.cacheMisses.Add(1)
		}
	}

	// Resolve per-compilation action tables; compilation-start callbacks
	// run here, exactly once per analyzer.
	phase := timer.Begin("resolve-actions")
	resolved := make(map[analyzer.Analyzer]*analyzer.Actions, len(d.analyzers))
	for _, a := range d.analyzers {
		resolved[a] = d.scopes.Actions(a, d.baseContext(ctx, a, analyzer.ActionCompilationStart))
	}
	timer.End(phase, "")

	trees := make([]compilation.TreeID, len(d.comp.Trees))
	for i, t := range d.comp.Trees {
		trees[i] = t.ID
	}
	d.state = state.New(d.analyzers, func(a analyzer.Analyzer) *analyzer.Actions {
		return resolved[a]
	}, trees)

	events := d.comp.Events()
	for _, ev := range events {
		d.state.OnEventGenerated(ev)
	}

	phase = timer.Begin("analyze")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(d.opts.Jobs, len(events)*len(d.analyzers)+1))
	for _, ev := range events {
		if ev.Kind == compilation.EventCompilationCompleted {
			continue
		}
		for _, a := range d.analyzers {
			ev, a := ev, a
			g.Go(func() error {
				return d.processEvent(gctx, a, resolved[a], ev)
			})
		}
	}
	if err := g.Wait(); err != nil {
		timer.End(phase, "cancelled")
		return nil, err
	}

	// Second sweep for entities released on conflict mid-run.
	for _, tree := range trees {
		for _, ev := range d.state.PendingEvents(d.analyzers, tree) {
			for _, a := range d.analyzers {
				if err := d.processEvent(ctx, a, resolved[a], ev); err != nil {
					timer.End(phase, "cancelled")
					return nil, err
				}
			}
		}
	}

	// Compilation-end actions run strictly after everything else.
	for _, ev := range events {
		if ev.Kind != compilation.EventCompilationCompleted {
			continue
		}
		for _, a := range d.analyzers {
			if err := d.processEvent(ctx, a, resolved[a], ev); err != nil {
				timer.End(phase, "cancelled")
				return nil, err
			}
		}
	}
	d.state.RetireAnalyzedEvents()
	timer.End(phase, d.met.Summary())

	bag := d.drain()
	if cacheErr != nil {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.EngCacheError,
			Message:  fmt.Sprintf("result cache unavailable: %v", cacheErr),
		})
	}
	bag.Sort()

	if d.opts.Cache != nil && cacheErr == nil {
		if err := d.opts.Cache.Put(digest, cache.Encode(digest, bag.Items())); err != nil {
			bag.Add(diag.Diagnostic{
				Severity: diag.SevWarning,
				Code:     diag.EngCacheError,
				Message:  fmt.Sprintf("failed to store result cache: %v", err),
			})
		}
	}
	return &Result{Bag: bag, Metrics: d.met.snapshot()}, nil
}

// drain empties the queue into a fresh bag, stamping each diagnostic with
// its analyzer name.
func (d *Driver) drain() *diag.Bag {
	bag := diag.NewBag(d.opts.MaxDiagnostics)
	names := d.queue.Analyzers()
	sort.Strings(names)
	for _, name := range names {
		var items []diag.Diagnostic
		if d.queue.Categorized() {
			for _, cat := range []diag.Category{diag.CategoryLocalSyntax, diag.CategoryLocalSemantic, diag.CategoryNonLocal} {
				items = append(items, d.queue.DequeueCategory(name, cat)...)
			}
		} else {
			items = d.queue.Dequeue(name)
		}
		for _, item := range items {
			item.Analyzer = name
			bag.Add(item)
		}
	}
	return bag
}

// processEvent is one worker: acquire the event entity, run the cascade
// of sub-entities it implies, and retire it. On cancellation the lease is
// released without completion so a later run can resume.
func (d *Driver) processEvent(ctx context.Context, a analyzer.Analyzer, actions *analyzer.Actions, ev *compilation.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lease := d.state.TryStartProcessingEvent(ev, a)
	if lease == nil {
		d.met.conflicts.Add(1)
		return nil
	}
	d.met.started.Add(1)
	completed := false
	defer func() {
		if !completed {
			d.met.resets.Add(1)
		}
		lease.Release()
	}()

	switch ev.Kind {
	case compilation.EventSymbolDeclared:
		if err := d.processSymbol(ctx, a, actions, ev.Symbol); err != nil {
			return err
		}
		for i := range ev.Symbol.Decls {
			if err := d.processDeclaration(ctx, a, actions, ev.Symbol, i); err != nil {
				return err
			}
		}
	case compilation.EventUnitCompleted:
		if err := d.processTree(ctx, a, actions, ev.Tree); err != nil {
			return err
		}
	case compilation.EventCompilationStarted:
		// Start actions already ran while resolving the action table.
	case compilation.EventCompilationCompleted:
		data := lease.Data()
		cctx := analyzer.CompilationContext{
			ActionContext: d.baseContext(ctx, a, analyzer.ActionCompilationEnd),
		}
		for _, act := range actions.CompilationEnd {
			if data.ActionDone(act.ID) {
				continue
			}
			d.invoke(a, func() { act.Fn(cctx) })
			data.MarkActionDone(act.ID)
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	lease.Complete()
	completed = true
	d.met.completed.Add(1)
	return nil
}

func (d *Driver) processSymbol(ctx context.Context, a analyzer.Analyzer, actions *analyzer.Actions, sym *compilation.Symbol) error {
	lease := d.state.TryStartSymbolAnalysis(sym, a)
	if lease == nil {
		return nil
	}
	defer lease.Release()
	data := lease.Data()

	sctx := analyzer.SymbolContext{
		ActionContext: d.baseContext(ctx, a, analyzer.ActionSymbol),
		Symbol:        sym,
	}
	for _, act := range actions.Symbol {
		if !act.AppliesTo(sym.Kind) || data.ActionDone(act.ID) {
			continue
		}
		d.invoke(a, func() { act.Fn(sctx) })
		data.MarkActionDone(act.ID)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	lease.Complete()
	return nil
}

func (d *Driver) processDeclaration(ctx context.Context, a analyzer.Analyzer, actions *analyzer.Actions, sym *compilation.Symbol, index int) error {
	lease := d.state.TryStartDeclarationAnalysis(sym, index, a)
	if lease == nil {
		return nil
	}
	defer lease.Release()
	ds := lease.Data()
	decl := sym.Decls[index]

	if len(actions.Node) > 0 {
		if tree := d.comp.Tree(decl.Tree); tree != nil {
			if err := d.runNodeActions(ctx, a, actions, ds, tree, decl.Node, sym); err != nil {
				return err
			}
		}
	}

	bctx := analyzer.CodeBlockContext{
		ActionContext: d.baseContext(ctx, a, analyzer.ActionCodeBlock),
		Symbol:        sym,
		Decl:          decl,
		Body:          sym.Body(index),
	}
	for _, act := range actions.CodeBlock {
		if ds.ActionDone(act.ID) {
			continue
		}
		d.invoke(a, func() { act.Fn(bctx) })
		ds.MarkActionDone(act.ID)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	for _, act := range actions.CodeBlockEnd {
		if ds.Block.BlockActionDone(act.ID) {
			continue
		}
		d.invoke(a, func() { act.Fn(bctx) })
		ds.Block.MarkBlockActionDone(act.ID)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	lease.Complete()
	return nil
}

// runNodeActions visits the declaration subtree in preorder, resuming
// past nodes already processed in an earlier, cancelled acquisition.
func (d *Driver) runNodeActions(ctx context.Context, a analyzer.Analyzer, actions *analyzer.Actions, ds *state.DeclarationState, tree *compilation.SyntaxTree, root compilation.NodeID, sym *compilation.Symbol) error {
	var nodes []*compilation.Node
	var collect func(id compilation.NodeID)
	collect = func(id compilation.NodeID) {
		n := tree.Node(id)
		if n == nil {
			return
		}
		nodes = append(nodes, n)
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(root)

	base := d.baseContext(ctx, a, analyzer.ActionSyntaxNode)
	for _, n := range nodes {
		if ds.NodeDone(n.ID) {
			continue
		}
		ds.CurrentNode = n.ID
		nctx := analyzer.NodeContext{ActionContext: base, Tree: tree, Node: n}
		for _, act := range actions.Node {
			if act.AppliesTo(n.Kind) {
				d.invoke(a, func() { act.Fn(nctx) })
			}
		}
		ds.MarkNodeDone(n.ID)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	ds.CurrentNode = compilation.NoNode
	return nil
}

func (d *Driver) processTree(ctx context.Context, a analyzer.Analyzer, actions *analyzer.Actions, tree compilation.TreeID) error {
	lease := d.state.TryStartSyntaxAnalysis(tree, a)
	if lease == nil {
		return nil
	}
	defer lease.Release()
	data := lease.Data()

	tctx := analyzer.TreeContext{
		ActionContext: d.baseContext(ctx, a, analyzer.ActionSyntaxTree),
		Tree:          d.comp.Tree(tree),
	}
	for _, act := range actions.Tree {
		if data.ActionDone(act.ID) {
			continue
		}
		d.invoke(a, func() { act.Fn(tctx) })
		data.MarkActionDone(act.ID)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	lease.Complete()
	return nil
}

// invoke runs one analyzer callback with panic recovery. A panic becomes
// a synthetic diagnostic and never corrupts the scheduling state.
func (d *Driver) invoke(a analyzer.Analyzer, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.met.panics.Add(1)
			d.queue.Enqueue(a.Name(), diag.CategoryNonLocal, diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.EngAnalyzerPanic,
				Message:  fmt.Sprintf("analyzer %s panicked: %v", a.Name(), r),
				Primary:  source.Span{},
			})
		}
	}()
	fn()
}
