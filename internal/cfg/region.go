package cfg

// RegionKind enumerates exception-handling region kinds.
type RegionKind uint8

const (
	// RegionRoot spans the whole graph.
	RegionRoot RegionKind = iota
	// RegionTry is the protected body of a TryAndCatch or TryAndFinally.
	RegionTry
	// RegionCatch is one handler body.
	RegionCatch
	// RegionFilter is the guard expression of a filtered handler.
	RegionFilter
	// RegionFilterAndHandler groups a filter with its handler.
	RegionFilterAndHandler
	// RegionTryAndCatch groups a try with its handlers.
	RegionTryAndCatch
	// RegionTryAndFinally groups a try with its finally.
	RegionTryAndFinally
	// RegionFinally is the cleanup body of a TryAndFinally.
	RegionFinally
)

func (k RegionKind) String() string {
	switch k {
	case RegionRoot:
		return "root"
	case RegionTry:
		return "try"
	case RegionCatch:
		return "catch"
	case RegionFilter:
		return "filter"
	case RegionFilterAndHandler:
		return "filter-and-handler"
	case RegionTryAndCatch:
		return "try-and-catch"
	case RegionTryAndFinally:
		return "try-and-finally"
	case RegionFinally:
		return "finally"
	}
	return "unknown"
}

// Region is one node of the exception-region tree. First and Last are
// block ordinals; sibling ranges are disjoint and every child range is
// contained in its parent's.
type Region struct {
	Kind          RegionKind
	First         int
	Last          int
	ExceptionType string
	Nested        []*Region
	Enclosing     *Region
}

// Contains reports whether the ordinal falls inside the region's range.
func (r *Region) Contains(ordinal int) bool {
	return r != nil && ordinal >= r.First && ordinal <= r.Last
}

// ContainsRegion reports whether other's range nests inside r's.
func (r *Region) ContainsRegion(other *Region) bool {
	return r != nil && other != nil && r.First <= other.First && other.Last <= r.Last
}

// TryOf returns the protected try region of a grouping region.
func (r *Region) TryOf() *Region {
	if r == nil || (r.Kind != RegionTryAndCatch && r.Kind != RegionTryAndFinally) {
		return nil
	}
	for _, n := range r.Nested {
		if n.Kind == RegionTry {
			return n
		}
	}
	return nil
}

// FinallyOf returns the finally region of a TryAndFinally group.
func (r *Region) FinallyOf() *Region {
	if r == nil || r.Kind != RegionTryAndFinally {
		return nil
	}
	for _, n := range r.Nested {
		if n.Kind == RegionFinally {
			return n
		}
	}
	return nil
}

// Handlers returns the catch and filter-and-handler children of a
// TryAndCatch group, in textual order.
func (r *Region) Handlers() []*Region {
	if r == nil || r.Kind != RegionTryAndCatch {
		return nil
	}
	var out []*Region
	for _, n := range r.Nested {
		if n.Kind == RegionCatch || n.Kind == RegionFilterAndHandler {
			out = append(out, n)
		}
	}
	return out
}

// HandlerEntry returns the first block ordinal of the actual handler body:
// the catch region itself, or the filter region of a filtered handler
// (filters run before their handlers).
func (r *Region) HandlerEntry() int {
	if r == nil {
		return -1
	}
	if r.Kind == RegionFilterAndHandler {
		for _, n := range r.Nested {
			if n.Kind == RegionFilter {
				return n.First
			}
		}
	}
	return r.First
}

// walk visits the region and all descendants.
func (r *Region) walk(visit func(*Region)) {
	if r == nil {
		return
	}
	visit(r)
	for _, n := range r.Nested {
		n.walk(visit)
	}
}
