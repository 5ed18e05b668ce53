// Package rules holds the built-in analyzers: dead-code detection over
// the control-flow graph, definite-assignment checking over the dataflow
// engine, and symbol naming policy.
package rules
