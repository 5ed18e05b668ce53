package diag

import (
	"fmt"
	"sync"
	"testing"

	"prism/internal/source"
)

func TestQueueSimpleFIFO(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Enqueue("deadcode", CategoryNonLocal, Diagnostic{
			Message: fmt.Sprintf("d%d", i),
		})
	}
	got := q.Dequeue("deadcode")
	if len(got) != 5 {
		t.Fatalf("Dequeue returned %d items, want 5", len(got))
	}
	for i, d := range got {
		if want := fmt.Sprintf("d%d", i); d.Message != want {
			t.Errorf("got[%d].Message = %q, want %q", i, d.Message, want)
		}
		if d.Analyzer != "deadcode" {
			t.Errorf("got[%d].Analyzer = %q", i, d.Analyzer)
		}
	}
	if again := q.Dequeue("deadcode"); again != nil {
		t.Errorf("second Dequeue returned %d items, want none", len(again))
	}
}

func TestQueueCategorizedOrder(t *testing.T) {
	q := NewCategorizedQueue()
	q.Enqueue("assign", CategoryNonLocal, Diagnostic{Message: "late"})
	q.Enqueue("assign", CategoryLocalSyntax, Diagnostic{Message: "early"})
	q.Enqueue("assign", CategoryLocalSemantic, Diagnostic{Message: "mid"})

	got := q.Dequeue("assign")
	if len(got) != 3 {
		t.Fatalf("Dequeue returned %d items, want 3", len(got))
	}
	wantOrder := []string{"early", "mid", "late"}
	for i, d := range got {
		if d.Message != wantOrder[i] {
			t.Errorf("got[%d] = %q, want %q", i, d.Message, wantOrder[i])
		}
	}
}

func TestQueueDequeueCategory(t *testing.T) {
	q := NewCategorizedQueue()
	q.Enqueue("naming", CategoryLocalSyntax, Diagnostic{Message: "syntax"})
	q.Enqueue("naming", CategoryNonLocal, Diagnostic{Message: "global"})

	syn := q.DequeueCategory("naming", CategoryLocalSyntax)
	if len(syn) != 1 || syn[0].Message != "syntax" {
		t.Fatalf("DequeueCategory(local-syntax) = %v", syn)
	}
	// Draining one category must leave the others intact.
	rest := q.Dequeue("naming")
	if len(rest) != 1 || rest[0].Message != "global" {
		t.Fatalf("Dequeue after category drain = %v", rest)
	}
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	q := NewQueue()
	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			name := fmt.Sprintf("rule%d", p)
			for i := 0; i < perProducer; i++ {
				q.Enqueue(name, CategoryNonLocal, Diagnostic{
					Message: fmt.Sprintf("m%d", i),
					Primary: source.Span{Start: uint32(i)},
				})
			}
		}(p)
	}
	wg.Wait()

	for p := 0; p < producers; p++ {
		name := fmt.Sprintf("rule%d", p)
		got := q.Dequeue(name)
		if len(got) != perProducer {
			t.Fatalf("analyzer %s: %d items, want %d", name, len(got), perProducer)
		}
		// Per-analyzer FIFO order survives concurrent producers on other keys.
		for i, d := range got {
			if want := fmt.Sprintf("m%d", i); d.Message != want {
				t.Fatalf("analyzer %s item %d = %q, want %q", name, i, d.Message, want)
			}
		}
	}
}

func TestQueueReporter(t *testing.T) {
	q := NewCategorizedQueue()
	var r Reporter = QueueReporter{Queue: q, Analyzer: "deadcode", Category: CategoryLocalSemantic}
	r.Report(FlowUnreachableCode, SevWarning, source.Span{Start: 3, End: 7}, "unreachable statement", nil)

	got := q.DequeueCategory("deadcode", CategoryLocalSemantic)
	if len(got) != 1 {
		t.Fatalf("queued %d diagnostics, want 1", len(got))
	}
	if got[0].Code != FlowUnreachableCode || got[0].Analyzer != "deadcode" {
		t.Errorf("diagnostic = %+v", got[0])
	}
}
