package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStripsLiveState(t *testing.T) {
	doc := Document{
		Nodes: []Node{{ID: "c", Type: KindCoil, Data: NodeData{Value: 1, RoleID: "8", Label: "K1", Setpoint: 9}}},
		Edges: []Edge{{ID: "e", Source: "c", Target: "c", TargetHandle: "in", Data: EdgeData{Active: true}}},
	}
	b, err := Encode(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodes":[{"id":"c","type":"coil","position":{"x":0,"y":0},"data":{"value":1,"label":"K1"}}],
		"edges":[{"id":"e","source":"c","target":"c","targetHandle":"in"}]
	}`, string(b))
}

func TestUnregisteredTypesKeepTheirData(t *testing.T) {
	doc, err := Decode([]byte(`{"nodes":[
		{"id":"v","type":"vendorBlock","data":{"value":3,"label":"V1","ratio":0.5,"vendor":{"model":"X9"}}},
		{"id":"c","type":"coil","data":{"value":1,"label":"K1","ratio":0.5}}
	],"edges":[]}`))
	require.NoError(t, err)

	b, err := Encode(Hydrate(doc).Document())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodes":[
			{"id":"v","type":"vendorBlock","position":{"x":0,"y":0},
			 "data":{"value":0,"label":"V1","ratio":0.5,"vendor":{"model":"X9"}}},
			{"id":"c","type":"coil","position":{"x":0,"y":0},"data":{"value":0,"label":"K1"}}
		],
		"edges":[]
	}`, string(b))
}

func TestEncodeEmptyDocument(t *testing.T) {
	b, err := Encode(NewGraph().Document())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(b))
}

func TestDecode(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "{}"} {
		doc, err := Decode([]byte(raw))
		require.NoError(t, err, "%q", raw)
		assert.Empty(t, doc.Nodes)
		assert.NotNil(t, doc.Nodes)
		assert.NotNil(t, doc.Edges)
	}

	_, err := Decode([]byte(`{"nodes":[`))
	assert.Error(t, err)
}

func TestSaveLoadNeverCarriesLiveValues(t *testing.T) {
	g := build(t,
		[]Node{newNode("di", KindDigitalInput), newNode("c", KindCoil)},
		[]Edge{wire("e", "di", "c", "in")},
	)
	force(t, g, "di", 1)
	NewEngine(DefaultTick).Step(g, NewRuntime())
	require.Equal(t, 1.0, value(g, "c"))

	b, err := Encode(g.Document())
	require.NoError(t, err)
	doc, err := Decode(b)
	require.NoError(t, err)
	loaded := Hydrate(doc)

	for _, n := range loaded.Nodes() {
		assert.Zero(t, n.Data.Value, n.ID)
	}
	for _, e := range loaded.Edges() {
		assert.False(t, bool(e.Data.Active), e.ID)
	}
}

func TestFingerprintIgnoresValues(t *testing.T) {
	g := build(t,
		[]Node{newNode("di", KindDigitalInput), newNode("c", KindCoil)},
		[]Edge{wire("e", "di", "c", "in")},
	)
	before := Fingerprint(g.Document())

	force(t, g, "di", 1)
	NewEngine(DefaultTick).Step(g, NewRuntime())
	assert.Equal(t, before, Fingerprint(g.Document()))

	require.NoError(t, g.UpdateNode("c", func(n *Node) { n.Position.X = 40 }))
	assert.NotEqual(t, before, Fingerprint(g.Document()))
}
