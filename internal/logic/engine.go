package logic

import (
	"sort"
	"time"

	"github.com/plantops/engine/pkg/logger"
	"go.uber.org/zap"
)

// DefaultTick is the evaluation period the timer delays are calibrated to.
const DefaultTick = 200 * time.Millisecond

// Delta lists the node values and edge activities a tick changed.
type Delta struct {
	Nodes map[string]float64 `json:"nodes"`
	Edges map[string]bool    `json:"edges"`
}

func newDelta() Delta {
	return Delta{Nodes: map[string]float64{}, Edges: map[string]bool{}}
}

// Empty reports whether nothing changed.
func (d Delta) Empty() bool { return len(d.Nodes) == 0 && len(d.Edges) == 0 }

// Engine advances a graph one tick at a time.
type Engine struct {
	TicksPerSecond float64
}

// NewEngine returns an engine whose timers count in ticks of the given period.
func NewEngine(tick time.Duration) *Engine {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Engine{TicksPerSecond: float64(time.Second) / float64(tick)}
}

type incoming struct {
	source string
	port   string
	rank   int
}

// Step evaluates every node once and commits the changed values and edge
// activities to g. It never fails: unknown types hold their value, edges
// from missing nodes contribute nothing, and a rule that panics holds its
// node's previous value.
func (e *Engine) Step(g *Graph, rt *Runtime) Delta {
	in := e.indexIncoming(g)

	working := make(map[string]float64, len(g.nodes))
	for _, n := range g.nodes {
		switch n.Type {
		case KindDigitalInput:
			working[n.ID] = n.Data.Value.Float()
		case KindAnalogInput:
			working[n.ID] = n.Data.SimValue.Float()
		}
	}

	for i := range g.nodes {
		n := &g.nodes[i]
		b, ok := Lookup(n.Type)
		if !ok || b.Input || !b.Evaluated() {
			continue
		}

		srcs := in[n.ID]
		inputs := make([]Input, 0, len(srcs))
		for _, s := range srcs {
			if v, done := working[s.source]; done {
				inputs = append(inputs, Input{Port: s.port, Value: v})
			} else if j, exists := g.nodeIdx[s.source]; exists {
				inputs = append(inputs, Input{Port: s.port, Value: g.nodes[j].Data.Value.Float()})
			}
		}

		ri := RuleInput{
			Inputs:         inputs,
			Prev:           n.Data.Value.Float(),
			Data:           n.Data,
			TicksPerSecond: e.TicksPerSecond,
		}
		if b.Stateful {
			ri.State = rt.Slot(n.ID)
		}
		working[n.ID] = e.apply(n, b, ri)
	}

	d := newDelta()
	for i := range g.nodes {
		n := &g.nodes[i]
		v, ok := working[n.ID]
		if !ok || n.Data.Value.Float() == v {
			continue
		}
		n.Data.Value = Number(v)
		d.Nodes[n.ID] = v
	}
	for i := range g.edges {
		ed := &g.edges[i]
		var v float64
		if j, ok := g.nodeIdx[ed.Source]; ok {
			v = g.nodes[j].Data.Value.Float()
		}
		active := Flag(v != 0)
		if ed.Data.Active == active {
			continue
		}
		ed.Data.Active = active
		d.Edges[ed.ID] = bool(active)
	}
	return d
}

func (e *Engine) apply(n *Node, b *Behavior, ri RuleInput) (out float64) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.L().Warn("node rule panicked, holding value",
				zap.String("node_id", n.ID), zap.String("type", string(n.Type)), zap.Any("panic", rec))
			out = ri.Prev
		}
	}()
	return b.rule(ri)
}

// indexIncoming maps each target to its sources, ordered by the position of
// the target handle in the node's port list. Edges on unknown or missing
// handles follow in edge order.
func (e *Engine) indexIncoming(g *Graph) map[string][]incoming {
	ranks := map[string]map[string]int{}
	out := map[string][]incoming{}
	for _, ed := range g.edges {
		j, ok := g.nodeIdx[ed.Target]
		if !ok {
			continue
		}
		target := g.nodes[j]
		pr, cached := ranks[target.ID]
		if !cached {
			pr = map[string]int{}
			if b, known := Lookup(target.Type); known {
				for r, p := range b.Ports(target.Data) {
					pr[p] = r
				}
			}
			ranks[target.ID] = pr
		}
		rank, hit := pr[ed.TargetHandle]
		if !hit {
			rank = len(pr)
		}
		out[ed.Target] = append(out[ed.Target], incoming{source: ed.Source, port: ed.TargetHandle, rank: rank})
	}
	for id := range out {
		srcs := out[id]
		sort.SliceStable(srcs, func(a, b int) bool { return srcs[a].rank < srcs[b].rank })
	}
	return out
}
