// Package logic holds the control-logic diagram model and its evaluator.
//
// A diagram is an arena of nodes and edges (Graph) indexed by id. Each node
// carries a type tag resolved through the behaviour registry, which names
// the fields that are persisted for the type, the input ports it exposes and
// the rule that computes its output. Live execution state for timers and
// latches lives in a separate Runtime side table keyed by node id and is
// never part of a saved diagram.
//
// Engine.Step advances a diagram by exactly one tick. Nodes are visited in
// insertion order in a single pass: a node reads the value its source
// produced earlier in the same tick when the source precedes it, and the
// source's previous-tick value otherwise. Feedback loops therefore see a
// one-tick delay on the back edge instead of being relaxed to a fixed point.
package logic
