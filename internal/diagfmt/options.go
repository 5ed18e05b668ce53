// Package diagfmt renders diagnostic bags for humans (pretty) and tools
// (JSON). Callers sort the bag first; the renderers preserve order.
package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto prefers a path relative to the working directory and
	// falls back to the recorded one.
	PathModeAuto PathMode = iota
	// PathModeFull always uses the path as recorded in the file set.
	PathModeFull
	// PathModeBasename strips directories.
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool
	// ShowSource includes the offending source line with a caret
	// underline beneath each diagnostic.
	ShowSource bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // add line/col alongside byte offsets
	IncludeNotes     bool
	PathMode         PathMode
	Max              int // truncate output (not the bag); 0 means all
}
