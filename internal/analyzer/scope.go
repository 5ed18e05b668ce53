package analyzer

import (
	"sync"
	"sync/atomic"
)

// Session caches the per-analyzer action tables built from Initialize.
// Initialize is user code and must run exactly once per analyzer per
// session, even under concurrent Actions calls, so each entry pairs a
// lock with a double-checked done flag.
type Session struct {
	mu      sync.Mutex
	entries map[Analyzer]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	done    atomic.Bool
	reg     *Registrar
	actions *Actions
}

// NewSession creates an empty scope cache.
func NewSession() *Session {
	return &Session{entries: make(map[Analyzer]*sessionEntry)}
}

func (s *Session) entry(a Analyzer) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[a]
	if !ok {
		e = &sessionEntry{}
		s.entries[a] = e
	}
	return e
}

// Actions returns the session-scope action table for the analyzer,
// invoking Initialize on first use.
func (s *Session) Actions(a Analyzer) *Actions {
	actions, _ := s.actionsAndRegistrar(a)
	return actions
}

func (s *Session) actionsAndRegistrar(a Analyzer) (*Actions, *Registrar) {
	e := s.entry(a)
	if e.done.Load() {
		return e.actions, e.reg
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.done.Load() {
		reg := NewRegistrar()
		a.Initialize(reg)
		e.reg = reg
		e.actions = reg.Actions()
		e.done.Store(true)
	}
	return e.actions, e.reg
}

// CompilationData caches per-(analyzer, compilation) scopes: the merged
// action table after running the analyzer's compilation-start callbacks.
// One CompilationData belongs to one compilation and is owned by the
// driver for its lifetime; there is no process-global registry.
type CompilationData struct {
	session *Session

	mu      sync.Mutex
	entries map[Analyzer]*compilationEntry
}

type compilationEntry struct {
	mu      sync.Mutex
	done    atomic.Bool
	actions *Actions
}

// NewCompilationData creates the per-compilation scope cache on top of a
// session cache.
func NewCompilationData(session *Session) *CompilationData {
	return &CompilationData{
		session: session,
		entries: make(map[Analyzer]*compilationEntry),
	}
}

// Session returns the underlying session cache.
func (d *CompilationData) Session() *Session {
	return d.session
}

func (d *CompilationData) entry(a Analyzer) *compilationEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[a]
	if !ok {
		e = &compilationEntry{}
		d.entries[a] = e
	}
	return e
}

// Actions returns the full action table for the analyzer in this
// compilation: session-scope registrations plus whatever the analyzer's
// compilation-start callbacks registered. The start callbacks run exactly
// once per (analyzer, compilation); base supplies their context.
func (d *CompilationData) Actions(a Analyzer, base ActionContext) *Actions {
	e := d.entry(a)
	if e.done.Load() {
		return e.actions
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.done.Load() {
		sessActions, reg := d.session.actionsAndRegistrar(a)
		scoped := reg.child()
		for _, act := range sessActions.CompilationStart {
			act.Fn(CompilationContext{ActionContext: base, Scope: scoped})
		}
		e.actions = sessActions.Merge(scoped.Actions())
		e.done.Store(true)
	}
	return e.actions
}
