// Package op defines the structured operation tree the host attaches to
// code blocks, and the lowered instruction form the control-flow-graph
// generator rewrites it into.
//
// Both layers use the same representation discipline: a Kind discriminant
// plus one payload struct per kind. No interfaces, no reflection; consumers
// switch on Kind and read the matching payload.
package op
