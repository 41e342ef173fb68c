// Package simulation runs logic diagrams live. A Session owns one working
// graph, evaluates it on a fixed tick from a single goroutine and streams
// snapshots and per-tick deltas to subscribers. Editor mutations take the
// same lock as the tick, so they land between ticks.
package simulation
