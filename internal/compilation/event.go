package compilation

import (
	"fmt"
)

// EventKind enumerates compilation event kinds. The host emits events in
// dependency order: started first, symbol declarations before the unit
// completion of their declaring trees, completed last.
type EventKind uint8

const (
	EventCompilationStarted EventKind = iota
	EventSymbolDeclared
	EventUnitCompleted
	EventCompilationCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventCompilationStarted:
		return "compilation-started"
	case EventSymbolDeclared:
		return "symbol-declared"
	case EventUnitCompleted:
		return "unit-completed"
	case EventCompilationCompleted:
		return "compilation-completed"
	}
	return "unknown"
}

// Event is one compilation event. Events are immutable; identity is the
// pointer, so the scheduler can key maps by *Event directly.
type Event struct {
	Kind   EventKind
	Symbol *Symbol // set for EventSymbolDeclared
	Tree   TreeID  // set for EventUnitCompleted
}

func (e *Event) String() string {
	switch e.Kind {
	case EventSymbolDeclared:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Symbol.Name)
	case EventUnitCompleted:
		return fmt.Sprintf("%s(tree %d)", e.Kind, e.Tree)
	default:
		return e.Kind.String()
	}
}

// SourceEvent reports whether the event is tied to source trees (and thus
// belongs in the per-tree event cache) rather than compilation-wide.
func (e *Event) SourceEvent() bool {
	return e.Kind == EventSymbolDeclared || e.Kind == EventUnitCompleted
}

// Trees returns the syntax trees the event touches: declaring trees for a
// symbol event, the completed tree for a unit event, nothing otherwise.
func (e *Event) Trees() []TreeID {
	switch e.Kind {
	case EventSymbolDeclared:
		seen := make(map[TreeID]struct{}, len(e.Symbol.Decls))
		var out []TreeID
		for _, d := range e.Symbol.Decls {
			if _, ok := seen[d.Tree]; ok {
				continue
			}
			seen[d.Tree] = struct{}{}
			out = append(out, d.Tree)
		}
		return out
	case EventUnitCompleted:
		return []TreeID{e.Tree}
	}
	return nil
}
