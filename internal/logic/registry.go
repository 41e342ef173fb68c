package logic

import (
	"fmt"
	"sort"
)

// Kind is a node type tag.
type Kind string

const (
	KindDigitalInput Kind = "digitalInput"
	KindAnalogInput  Kind = "analogInput"
	KindAnd          Kind = "and"
	KindOr           Kind = "or"
	KindXor          Kind = "xor"
	KindNot          Kind = "not"
	KindCoil         Kind = "coil"
	KindRelay        Kind = "relay"
	KindLessThan     Kind = "lt"
	KindGreaterThan  Kind = "gt"
	KindTimerOn      Kind = "timerOn"
	KindTimerOff     Kind = "timerOff"
	KindVoter2oo3    Kind = "voter2of3"
	KindSRLatch      Kind = "srLatch"
	KindRSLatch      Kind = "rsLatch"
	KindAnnotation   Kind = "annotation"
)

const (
	MinGateInputs = 2
	MaxGateInputs = 8
)

// Input is one value arriving at a node, tagged with the port it arrived on.
type Input struct {
	Port  string
	Value float64
}

// RuleInput is everything a rule may look at to compute a node's output.
type RuleInput struct {
	Inputs         []Input
	Prev           float64
	Data           NodeData
	State          *State
	TicksPerSecond float64
}

// Rule computes a node's next output.
type Rule func(RuleInput) float64

// Behavior describes one node type.
type Behavior struct {
	Kind Kind
	// Fields are the data fields persisted for the type, besides notes.
	Fields []string
	// Input nodes are forced by the operator and seed each tick.
	Input bool
	// Stateful types own a Runtime slot.
	Stateful bool
	// Output is false for nodes that cannot be an edge source.
	Output bool

	label string
	ports func(NodeData) []string
	rule  Rule
}

// Evaluated reports whether the engine computes a value for the type.
func (b *Behavior) Evaluated() bool { return b.rule != nil }

// Ports lists the target handles the node accepts, in evaluation order.
func (b *Behavior) Ports(d NodeData) []string {
	if b.ports == nil {
		return nil
	}
	return b.ports(d)
}

// Configurable reports whether field may be changed after creation through
// a configuration edit. Arity and forced input values are excluded.
func (b *Behavior) Configurable(field string) bool {
	switch field {
	case "notes":
		return true
	case "value", "simValue", "inputCount":
		return false
	}
	for _, f := range b.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Defaults returns the data of a freshly created node. inputCount only
// matters for multi-input gates and is clamped to the supported range.
func (b *Behavior) Defaults(inputCount int) NodeData {
	d := NodeData{Label: b.label}
	switch b.Kind {
	case KindAnd, KindOr, KindXor:
		d.InputCount = Number(clampInt(inputCount, MinGateInputs, MaxGateInputs))
	case KindVoter2oo3:
		d.InputCount = 3
	case KindTimerOn, KindTimerOff:
		d.Delay = 1
	}
	return d
}

var (
	singlePort = func(NodeData) []string { return []string{"in"} }
	latchPorts = func(NodeData) []string { return []string{"s", "r"} }
	gatePorts  = func(d NodeData) []string {
		n := clampInt(int(d.InputCount), MinGateInputs, MaxGateInputs)
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("in-%d", i)
		}
		return out
	}
	voterPorts = func(NodeData) []string { return []string{"in-0", "in-1", "in-2"} }
)

var registry = map[Kind]*Behavior{}

func register(b *Behavior) {
	b.Output = b.Kind != KindAnnotation
	registry[b.Kind] = b
}

func init() {
	register(&Behavior{Kind: KindDigitalInput, Fields: []string{"desc", "value"}, Input: true})
	register(&Behavior{Kind: KindAnalogInput, Fields: []string{"desc", "simValue"}, Input: true})

	gateFields := []string{"inputCount", "label"}
	register(&Behavior{Kind: KindAnd, Fields: gateFields, label: "AND", ports: gatePorts, rule: ruleAnd})
	register(&Behavior{Kind: KindOr, Fields: gateFields, label: "OR", ports: gatePorts, rule: ruleOr})
	register(&Behavior{Kind: KindXor, Fields: gateFields, label: "XOR", ports: gatePorts, rule: ruleXor})
	register(&Behavior{Kind: KindVoter2oo3, Fields: gateFields, label: "2OO3", ports: voterPorts, rule: ruleVoter})

	single := []string{"label"}
	register(&Behavior{Kind: KindNot, Fields: single, label: "NOT", ports: singlePort, rule: ruleNot})
	register(&Behavior{Kind: KindCoil, Fields: single, label: "COIL", ports: singlePort, rule: rulePass})
	register(&Behavior{Kind: KindRelay, Fields: single, label: "RELAY", ports: singlePort, rule: rulePass})

	cmp := []string{"setpoint", "hysteresis"}
	register(&Behavior{Kind: KindLessThan, Fields: cmp, label: "LT", ports: singlePort, rule: ruleLessThan})
	register(&Behavior{Kind: KindGreaterThan, Fields: cmp, label: "GT", ports: singlePort, rule: ruleGreaterThan})

	timer := []string{"delay"}
	register(&Behavior{Kind: KindTimerOn, Fields: timer, label: "TON", Stateful: true, ports: singlePort, rule: ruleTimerOn})
	register(&Behavior{Kind: KindTimerOff, Fields: timer, label: "TOFF", Stateful: true, ports: singlePort, rule: ruleTimerOff})

	register(&Behavior{Kind: KindSRLatch, Fields: single, label: "SR", Stateful: true, ports: latchPorts, rule: ruleLatch})
	register(&Behavior{Kind: KindRSLatch, Fields: single, label: "RS", Stateful: true, ports: latchPorts, rule: ruleLatch})

	register(&Behavior{Kind: KindAnnotation, Fields: []string{"text"}})
}

// Lookup returns the behaviour registered for a kind.
func Lookup(k Kind) (*Behavior, bool) {
	b, ok := registry[k]
	return b, ok
}

// Kinds lists every registered kind in lexical order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// legacyKinds maps the tags written by the previous editor.
var legacyKinds = map[Kind]Kind{
	"digitalInputNode": KindDigitalInput,
	"analogInputNode":  KindAnalogInput,
	"andNode":          KindAnd,
	"orNode":           KindOr,
	"xorNode":          KindXor,
	"notNode":          KindNot,
	"coilNode":         KindCoil,
	"relayNode":        KindRelay,
	"ltNode":           KindLessThan,
	"gtNode":           KindGreaterThan,
	"tonNode":          KindTimerOn,
	"toffNode":         KindTimerOff,
	"2oo3Node":         KindVoter2oo3,
	"srNode":           KindSRLatch,
	"rsNode":           KindRSLatch,
}

// NormalizeKind maps legacy tags onto current ones and leaves anything
// else, including unknown tags, untouched.
func NormalizeKind(k Kind) Kind {
	if n, ok := legacyKinds[k]; ok {
		return n
	}
	return k
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
