// Package diag defines the diagnostic model shared by the analysis engine
// and its built-in rules.
//
// # Purpose
//
//   - Provide deterministic, serialisable data structures that capture
//     findings produced by analyzers.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//   - Provide the concurrent Queue the driver drains while analyzers run
//     on the worker pool.
package diag
