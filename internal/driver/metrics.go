package driver

import (
	"fmt"
	"sync/atomic"
)

// metrics tracks scheduling counters for one run. All fields are atomic
// because workers update them concurrently.
type metrics struct {
	started   atomic.Int64 // entity acquisitions that succeeded
	conflicts atomic.Int64 // try-starts lost to another worker or done
	completed atomic.Int64 // entities retired
	resets    atomic.Int64 // leases released without completion
	panics    atomic.Int64 // analyzer callbacks recovered from panic

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// Summary renders the counters for the run report.
func (m *metrics) Summary() string {
	return fmt.Sprintf("started=%d completed=%d conflicts=%d resets=%d panics=%d cache=%d/%d",
		m.started.Load(), m.completed.Load(), m.conflicts.Load(), m.resets.Load(),
		m.panics.Load(), m.cacheHits.Load(), m.cacheHits.Load()+m.cacheMisses.Load())
}

// Snapshot is a copyable view of the counters, used by tests and the CLI.
type Snapshot struct {
	Started   int64
	Conflicts int64
	Completed int64
	Resets    int64
	Panics    int64
}

func (m *metrics) snapshot() Snapshot {
	return Snapshot{
		Started:   m.started.Load(),
		Conflicts: m.conflicts.Load(),
		Completed: m.completed.Load(),
		Resets:    m.resets.Load(),
		Panics:    m.panics.Load(),
	}
}
