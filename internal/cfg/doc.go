// Package cfg builds control-flow graphs from structured operation trees.
//
// Generation is two-phase. The rewriter lowers structured control flow
// (if, loops, short-circuit operators, coalescing, conditional access,
// switch, try/catch/finally) into a flat instruction stream of labels,
// gotos, conditional gotos, and region markers. The partitioner then cuts
// the stream into basic blocks, wires successor edges, and assembles the
// exception-region tree.
//
// Blocks live in a flat arena addressed by ordinal; branches hold ordinals
// rather than pointers, so the finished graph has no reference cycles and
// regions can describe themselves as contiguous ordinal ranges.
package cfg
