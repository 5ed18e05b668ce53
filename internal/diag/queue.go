package diag

import (
	"sync"

	"prism/internal/source"
)

// Category buckets diagnostics by how local their computation was.
// Categorized queues let the driver surface fast, document-local results
// before whole-compilation results arrive.
type Category uint8

const (
	// CategoryLocalSyntax covers diagnostics computed from a single
	// syntax tree without semantic information.
	CategoryLocalSyntax Category = iota
	// CategoryLocalSemantic covers diagnostics computed from a single
	// tree's semantic model.
	CategoryLocalSemantic
	// CategoryNonLocal covers everything else (compilation-wide results).
	CategoryNonLocal

	categoryCount
)

func (c Category) String() string {
	switch c {
	case CategoryLocalSyntax:
		return "local-syntax"
	case CategoryLocalSemantic:
		return "local-semantic"
	case CategoryNonLocal:
		return "non-local"
	}
	return "unknown"
}

// Queue is the sink analyzer callbacks write diagnostics into while running
// on the worker pool. Enqueue may be called from any goroutine; Dequeue and
// DequeueCategory are intended for the single consuming driver goroutine.
// Per-analyzer FIFO order is preserved within a category.
type Queue struct {
	mu          sync.Mutex
	categorized bool
	simple      map[string][]Diagnostic
	buckets     map[string][categoryCount][]Diagnostic
}

// NewQueue creates a simple (single FIFO per analyzer) queue.
func NewQueue() *Queue {
	return &Queue{simple: make(map[string][]Diagnostic)}
}

// NewCategorizedQueue creates a queue with per-category buckets.
func NewCategorizedQueue() *Queue {
	return &Queue{
		categorized: true,
		buckets:     make(map[string][categoryCount][]Diagnostic),
	}
}

// Categorized reports whether the queue splits diagnostics by category.
func (q *Queue) Categorized() bool {
	return q.categorized
}

// Enqueue appends a diagnostic for the given analyzer. In simple mode the
// category is ignored.
func (q *Queue) Enqueue(analyzer string, cat Category, d Diagnostic) {
	d.Analyzer = analyzer
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.categorized {
		q.simple[analyzer] = append(q.simple[analyzer], d)
		return
	}
	b := q.buckets[analyzer]
	b[cat] = append(b[cat], d)
	q.buckets[analyzer] = b
}

// Dequeue removes and returns all queued diagnostics for one analyzer, in
// enqueue order. Categorized queues concatenate local-syntax, then
// local-semantic, then non-local.
func (q *Queue) Dequeue(analyzer string) []Diagnostic {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.categorized {
		out := q.simple[analyzer]
		delete(q.simple, analyzer)
		return out
	}
	b, ok := q.buckets[analyzer]
	if !ok {
		return nil
	}
	delete(q.buckets, analyzer)
	out := make([]Diagnostic, 0, len(b[0])+len(b[1])+len(b[2]))
	for cat := Category(0); cat < categoryCount; cat++ {
		out = append(out, b[cat]...)
	}
	return out
}

// DequeueCategory removes and returns the diagnostics of one category for
// one analyzer. Only valid on categorized queues.
func (q *Queue) DequeueCategory(analyzer string, cat Category) []Diagnostic {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.categorized {
		return nil
	}
	b, ok := q.buckets[analyzer]
	if !ok {
		return nil
	}
	out := b[cat]
	b[cat] = nil
	q.buckets[analyzer] = b
	return out
}

// Analyzers returns the analyzers that currently have queued diagnostics.
func (q *Queue) Analyzers() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var names []string
	if !q.categorized {
		for name := range q.simple {
			names = append(names, name)
		}
		return names
	}
	for name := range q.buckets {
		names = append(names, name)
	}
	return names
}

// QueueReporter adapts one (analyzer, category) pair to the Reporter
// interface so rule callbacks can emit without knowing about the queue.
type QueueReporter struct {
	Queue    *Queue
	Analyzer string
	Category Category
}

func (r QueueReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Queue == nil {
		return
	}
	r.Queue.Enqueue(r.Analyzer, r.Category, Diagnostic{
		Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes,
	})
}
