// Package compilation models the inputs the analysis engine consumes from
// the host compiler: syntax trees, symbols with their declaring references,
// code-block operation trees, and the compilation event stream that drives
// incremental scheduling.
//
// The engine never parses or binds anything itself; a Compilation is
// assembled by the host (or, in this repository, by fixtures) and treated
// as immutable from then on.
package compilation
