// Package state implements the incremental analysis state tracker: which
// compilation events, symbols, declarations, and syntax trees each analyzer
// still has to process, with at-most-once acquisition semantics that keep
// concurrent workers from duplicating or losing work.
//
// The tracker never blocks. Acquisition is a compare-and-swap on a
// per-entity flag; contention shows up as a failed TryStart, and the loser
// moves on to other work. Cancellation hands the entity back via the lease's
// deferred release, so a later retry resumes where the previous attempt
// stopped (processed action and node sets survive a reset).
package state
