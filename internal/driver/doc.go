// Package driver schedules analyzers over a compilation. It feeds the
// event stream into the analysis state tracker, runs analyzer actions on
// an errgroup worker pool with at-most-once per-entity acquisition, drains
// the diagnostic queue, and optionally caches finished runs on disk.
package driver
