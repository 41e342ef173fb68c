package logic

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrDuplicateID  = errors.New("duplicate id")
	ErrDanglingEdge = errors.New("edge endpoint does not exist")
)

// Position is the canvas location of a node.
type Position struct {
	X Number `json:"x"`
	Y Number `json:"y"`
}

// NodeData is the union of every per-type field. Which of them are
// meaningful, and persisted, depends on the node's Kind.
type NodeData struct {
	Value  Number `json:"value"`
	Notes  string `json:"notes,omitempty"`
	RoleID string `json:"roleId,omitempty"`

	Label      string `json:"label,omitempty"`
	Desc       string `json:"desc,omitempty"`
	SimValue   Number `json:"simValue,omitempty"`
	InputCount Number `json:"inputCount,omitempty"`
	Setpoint   Number `json:"setpoint,omitempty"`
	Hysteresis Number `json:"hysteresis,omitempty"`
	Delay      Number `json:"delay,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Node is one element of a logic diagram.
type Node struct {
	ID       string   `json:"id"`
	Type     Kind     `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`

	// Extra holds the data keys of an unregistered type that NodeData has
	// no field for. They are written back untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes a node and, for unregistered types, keeps the data
// keys NodeData does not know.
func (n *Node) UnmarshalJSON(b []byte) error {
	type plain Node
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*n = Node(p)
	n.Extra = nil
	if _, known := Lookup(NormalizeKind(n.Type)); known {
		return nil
	}
	var raw struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw.Data {
		if k == "value" || k == "notes" || k == "roleId" || slices.Contains(allFields, k) {
			continue
		}
		if n.Extra == nil {
			n.Extra = map[string]json.RawMessage{}
		}
		n.Extra[k] = v
	}
	return nil
}

// MarshalJSON emits only the data fields that belong to the node's type.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string         `json:"id"`
		Type     Kind           `json:"type"`
		Position Position       `json:"position"`
		Data     map[string]any `json:"data"`
	}{n.ID, n.Type, n.Position, n.dataFields()})
}

func (n Node) dataFields() map[string]any {
	out := map[string]any{"value": n.Data.Value}
	if n.Data.Notes != "" {
		out["notes"] = n.Data.Notes
	}
	if n.Data.RoleID != "" {
		out["roleId"] = n.Data.RoleID
	}
	// unknown types keep whatever they were stored with
	bh, known := Lookup(n.Type)
	fields := allFields
	if known {
		fields = bh.Fields
	}
	for _, f := range fields {
		if f == "value" {
			continue
		}
		v, zero := n.Data.field(f)
		if zero && !known {
			continue
		}
		out[f] = v
	}
	if !known {
		for k, v := range n.Extra {
			if _, set := out[k]; !set {
				out[k] = v
			}
		}
	}
	return out
}

var allFields = []string{"desc", "simValue", "inputCount", "label", "setpoint", "hysteresis", "delay", "text"}

func (d NodeData) field(name string) (v any, zero bool) {
	switch name {
	case "value":
		return d.Value, d.Value == 0
	case "desc":
		return d.Desc, d.Desc == ""
	case "simValue":
		return d.SimValue, d.SimValue == 0
	case "inputCount":
		return d.InputCount, d.InputCount == 0
	case "label":
		return d.Label, d.Label == ""
	case "setpoint":
		return d.Setpoint, d.Setpoint == 0
	case "hysteresis":
		return d.Hysteresis, d.Hysteresis == 0
	case "delay":
		return d.Delay, d.Delay == 0
	case "text":
		return d.Text, d.Text == ""
	}
	return nil, true
}

// EdgeData carries the live activity of an edge. It is recomputed every
// tick and never trusted from storage.
type EdgeData struct {
	Active Flag `json:"active"`
}

// Edge wires the output of Source into an input port of Target.
type Edge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	SourceHandle string   `json:"sourceHandle,omitempty"`
	TargetHandle string   `json:"targetHandle,omitempty"`
	Data         EdgeData `json:"data"`
}

// Document is the serialized form of a diagram.
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Graph is the in-memory store for one diagram: node and edge arenas in
// insertion order with id indexes. It is not safe for concurrent use; the
// owning session serializes access.
type Graph struct {
	nodes   []Node
	edges   []Edge
	nodeIdx map[string]int
	edgeIdx map[string]int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodeIdx: map[string]int{}, edgeIdx: map[string]int{}}
}

// Hydrate builds a graph from a stored document. Legacy type tags are
// normalized, duplicate ids keep their first occurrence, every node value
// and edge activity is reset, and edges pointing at missing nodes are kept
// so they round-trip (they contribute nothing during evaluation). A blank
// target handle into a node with a single port is bound to that port.
func Hydrate(doc Document) *Graph {
	g := NewGraph()
	for _, n := range doc.Nodes {
		if _, dup := g.nodeIdx[n.ID]; dup {
			continue
		}
		n.Type = NormalizeKind(n.Type)
		n.Data.Value = 0
		n.Data.RoleID = ""
		g.nodeIdx[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	for _, e := range doc.Edges {
		if _, dup := g.edgeIdx[e.ID]; dup {
			continue
		}
		e.Data.Active = false
		if e.TargetHandle == "" {
			e.TargetHandle = g.onlyPort(e.Target)
		}
		g.edgeIdx[e.ID] = len(g.edges)
		g.edges = append(g.edges, e)
	}
	return g
}

func (g *Graph) onlyPort(id string) string {
	n, ok := g.Node(id)
	if !ok {
		return ""
	}
	b, known := Lookup(n.Type)
	if !known {
		return ""
	}
	if ports := b.Ports(n.Data); len(ports) == 1 {
		return ports[0]
	}
	return ""
}

// Document returns a deep copy of the graph contents.
func (g *Graph) Document() Document {
	return Document{Nodes: g.Nodes(), Edges: g.Edges()}
}

// Nodes returns a copy of the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.nodeIdx[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (Edge, bool) {
	i, ok := g.edgeIdx[id]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// AddNode appends a node.
func (g *Graph) AddNode(n Node) error {
	if _, dup := g.nodeIdx[n.ID]; dup {
		return fmt.Errorf("node %s: %w", n.ID, ErrDuplicateID)
	}
	g.nodeIdx[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// RemoveNode deletes a node and every edge attached to it. It returns the
// ids of the removed edges.
func (g *Graph) RemoveNode(id string) ([]string, error) {
	i, ok := g.nodeIdx[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	g.reindexNodes()

	var removed []string
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.reindexEdges()
	return removed, nil
}

// AddEdge appends an edge; both endpoints must already be in the graph.
func (g *Graph) AddEdge(e Edge) error {
	if _, dup := g.edgeIdx[e.ID]; dup {
		return fmt.Errorf("edge %s: %w", e.ID, ErrDuplicateID)
	}
	if _, ok := g.nodeIdx[e.Source]; !ok {
		return fmt.Errorf("source %s: %w", e.Source, ErrDanglingEdge)
	}
	if _, ok := g.nodeIdx[e.Target]; !ok {
		return fmt.Errorf("target %s: %w", e.Target, ErrDanglingEdge)
	}
	e.Data.Active = false
	g.edgeIdx[e.ID] = len(g.edges)
	g.edges = append(g.edges, e)
	return nil
}

// RemoveEdge deletes an edge.
func (g *Graph) RemoveEdge(id string) error {
	i, ok := g.edgeIdx[id]
	if !ok {
		return fmt.Errorf("edge %s: %w", id, ErrEdgeNotFound)
	}
	g.edges = append(g.edges[:i], g.edges[i+1:]...)
	g.reindexEdges()
	return nil
}

// UpdateNode applies fn to the stored node in place.
func (g *Graph) UpdateNode(id string, fn func(*Node)) error {
	i, ok := g.nodeIdx[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	fn(&g.nodes[i])
	return nil
}

// Mutator returns the mutation entry point for one node. It resolves the
// node through the index on every call, so it stays valid across removals
// of other nodes and after the graph is re-hydrated under the same ids.
func (g *Graph) Mutator(id string) func(func(*NodeData)) error {
	return func(fn func(*NodeData)) error {
		return g.UpdateNode(id, func(n *Node) { fn(&n.Data) })
	}
}

// Deenergize zeroes every node value and edge activity and returns what
// changed.
func (g *Graph) Deenergize() Delta {
	d := newDelta()
	for i := range g.nodes {
		if g.nodes[i].Data.Value != 0 {
			g.nodes[i].Data.Value = 0
			d.Nodes[g.nodes[i].ID] = 0
		}
	}
	for i := range g.edges {
		if g.edges[i].Data.Active {
			g.edges[i].Data.Active = false
			d.Edges[g.edges[i].ID] = false
		}
	}
	return d
}

// Render returns the nodes with the viewer's role attached, as the UI
// expects it on every node.
func (g *Graph) Render(roleID string) []Node {
	out := g.Nodes()
	for i := range out {
		out[i].Data.RoleID = roleID
	}
	return out
}

func (g *Graph) reindexNodes() {
	g.nodeIdx = make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		g.nodeIdx[n.ID] = i
	}
}

func (g *Graph) reindexEdges() {
	g.edgeIdx = make(map[string]int, len(g.edges))
	for i, e := range g.edges {
		g.edgeIdx[e.ID] = i
	}
}
