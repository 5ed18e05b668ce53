// Package trace is a lightweight event tracer for the analysis driver.
// The stream tracer writes one line per event; Nop costs nothing when
// tracing is off.
package trace

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Event is one trace record.
type Event struct {
	Time   time.Time
	Name   string
	Detail string
	Dur    time.Duration // zero for instant events
}

// Tracer records trace events. Implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev Event)
	Flush() error
	Enabled() bool
}

type nopTracer struct{}

func (nopTracer) Emit(Event)    {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Enabled() bool { return false }

// Nop is the package-level no-op tracer.
var Nop Tracer = nopTracer{}

// StreamTracer writes events to w as they arrive.
type StreamTracer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStream(w io.Writer) *StreamTracer {
	return &StreamTracer{w: w}
}

func (t *StreamTracer) Emit(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	if ev.Dur > 0 {
		fmt.Fprintf(t.w, "%s %s %s (%.2fms)\n", ts.Format("15:04:05.000"), ev.Name, ev.Detail,
			float64(ev.Dur)/float64(time.Millisecond))
		return
	}
	fmt.Fprintf(t.w, "%s %s %s\n", ts.Format("15:04:05.000"), ev.Name, ev.Detail)
}

func (t *StreamTracer) Flush() error  { return nil }
func (t *StreamTracer) Enabled() bool { return true }

// Span emits a completed-span event onto tr when the returned func runs.
func Span(tr Tracer, name, detail string) func() {
	if tr == nil || !tr.Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() {
		tr.Emit(Event{Time: start, Name: name, Detail: detail, Dur: time.Since(start)})
	}
}
