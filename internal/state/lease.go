package state

// Lease is the scoped-release handle returned by every successful
// TryStart. The holder must call Release on every exit path (typically via
// defer): if the work finished, Complete first retires the entity and turns
// Release into a no-op; otherwise Release resets the entity to Ready so a
// later retry can resume. Dropping a lease without releasing it starves
// the entity permanently.
type Lease[T holder] struct {
	data      T
	complete  func() bool
	completed bool
	released  bool
}

func newLease[T holder](data T, complete func() bool) *Lease[T] {
	return &Lease[T]{data: data, complete: complete}
}

// Data returns the acquired state record. Only the lease holder may mutate
// it, and only until Release.
func (l *Lease[T]) Data() T {
	return l.data
}

// Complete retires the entity from its pending map. Call at most once,
// before Release.
func (l *Lease[T]) Complete() bool {
	debugAssert(!l.completed, "lease completed twice")
	debugAssert(!l.released, "lease completed after release")
	l.completed = true
	return l.complete()
}

// Release resets the entity to Ready unless it was completed. Idempotent,
// so it is safe in a defer alongside an explicit early call.
func (l *Lease[T]) Release() {
	if l.released {
		return
	}
	l.released = true
	if !l.completed {
		l.data.base().resetToReady()
	}
}
