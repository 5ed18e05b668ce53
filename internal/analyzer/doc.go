// Package analyzer defines the contract user-supplied analyzers implement
// and the per-analyzer action tables the engine builds from their
// Initialize calls.
//
// An analyzer registers callbacks ("actions") against entity kinds:
// symbols, syntax nodes, code blocks, whole trees, and compilation
// start/end. Registration runs exactly once per analyzer per session;
// compilation-start callbacks may register further actions scoped to one
// compilation, likewise exactly once per (analyzer, compilation) pair.
package analyzer
