// Package dataflow runs pluggable fixed-point analyses over control-flow
// graphs. The engine owns the worklist, branch following, finally
// stepping, and exception dispatch; the analyzer owns the lattice (merge,
// equality) and the per-block transfer functions.
package dataflow
