package logic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/plantops/engine/pkg/utils"
)

type storedEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

type storedDocument struct {
	Nodes []Node       `json:"nodes"`
	Edges []storedEdge `json:"edges"`
}

// Encode serializes doc in its persisted form: node data filtered to the
// type's fields, the render-time role dropped and edges without their live
// activity.
func Encode(doc Document) ([]byte, error) {
	out := storedDocument{Nodes: make([]Node, len(doc.Nodes)), Edges: make([]storedEdge, len(doc.Edges))}
	for i, n := range doc.Nodes {
		n.Data.RoleID = ""
		out.Nodes[i] = n
	}
	for i, e := range doc.Edges {
		out.Edges[i] = storedEdge{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		}
	}
	return json.Marshal(out)
}

// Decode parses a persisted document. An empty payload is an empty diagram.
func Decode(b []byte) (Document, error) {
	var doc Document
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Document{Nodes: []Node{}, Edges: []Edge{}}, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, fmt.Errorf("decode diagram: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}
	return doc, nil
}

// Fingerprint hashes the structure and configuration of doc. Node values
// are left out, so ticking and forcing inputs do not change it.
func Fingerprint(doc Document) utils.Digest {
	nodes := make([]Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		n.Data.Value = 0
		nodes[i] = n
	}
	b, err := Encode(Document{Nodes: nodes, Edges: doc.Edges})
	if err != nil {
		return utils.Digest{}
	}
	return utils.SumSHA256(b)
}
