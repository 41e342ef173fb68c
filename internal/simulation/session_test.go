package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/engine/internal/logic"
)

const fastTick = 5 * time.Millisecond

func pumpDiagram() logic.Document {
	return logic.Document{
		Nodes: []logic.Node{
			{ID: "start", Type: logic.KindDigitalInput, Data: logic.NodeData{Value: 1}},
			{ID: "ton", Type: logic.KindTimerOn, Data: logic.NodeData{Delay: 0.01}},
			{ID: "coil", Type: logic.KindCoil},
		},
		Edges: []logic.Edge{
			{ID: "e1", Source: "start", Target: "ton", TargetHandle: "in"},
			{ID: "e2", Source: "ton", Target: "coil", TargetHandle: "in"},
		},
	}
}

var pumpRef = DiagramRef{ID: "d1", FolderID: "f1", Name: "pump"}

func nodeValue(s *Session, id string) float64 {
	for _, n := range s.Snapshot().Nodes {
		if n.ID == id {
			return n.Data.Value.Float()
		}
	}
	return -1
}

func force(t *testing.T, s *Session, id string, v float64) {
	t.Helper()
	require.NoError(t, s.Edit(func(w *Workspace) error {
		return w.Graph.Mutator(id)(func(d *logic.NodeData) { d.Value = logic.Number(v) })
	}))
}

// advance runs n evaluation steps synchronously.
func advance(s *Session, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.engine.Step(s.graph, s.rt)
		s.ticks++
	}
}

func TestStartTicksUntilStop(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	s.Load(pumpRef, pumpDiagram())
	force(t, s, "start", 1)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "start is idempotent")
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return nodeValue(s, "coil") == 1 }, 2*time.Second, fastTick)

	s.Stop()
	assert.False(t, s.Running())
	snap := s.Snapshot()
	for _, n := range snap.Nodes {
		assert.Zero(t, n.Data.Value, n.ID)
	}
	for _, e := range snap.Edges {
		assert.False(t, bool(e.Data.Active), e.ID)
	}
	assert.Zero(t, s.rt.Len())

	tick := snap.Tick
	time.Sleep(10 * fastTick)
	assert.Equal(t, tick, s.Snapshot().Tick, "no ticks after stop")
}

func TestStopOnIdleSessionStillResets(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	s.Load(pumpRef, pumpDiagram())
	force(t, s, "start", 1)
	advance(s, 3)
	require.Equal(t, 1.0, nodeValue(s, "start"))

	s.Stop()
	s.Stop()
	assert.Zero(t, nodeValue(s, "start"))
	assert.Zero(t, s.rt.Len())
}

func TestStartStopsWithContext(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() { s.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop blocked after the context ended")
	}
}

func TestLoadResetsSession(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	s.Load(pumpRef, pumpDiagram())
	require.NoError(t, s.SetEditMode(true))
	force(t, s, "start", 1)
	advance(s, 20)
	require.Equal(t, 1.0, nodeValue(s, "coil"))
	require.NoError(t, s.Start(context.Background()))

	stored := s.Snapshot()
	s.Load(pumpRef, logic.Document{Nodes: stored.Nodes, Edges: stored.Edges})

	snap := s.Snapshot()
	assert.False(t, snap.Running)
	assert.False(t, snap.EditMode)
	assert.False(t, snap.Dirty)
	assert.Zero(t, snap.Tick)
	assert.Zero(t, s.rt.Len())
	for _, n := range snap.Nodes {
		assert.Zero(t, n.Data.Value, n.ID)
		assert.Equal(t, "8", n.Data.RoleID)
	}
}

func TestEditModeNeedsDiagram(t *testing.T) {
	s := NewSession("s1", "5", fastTick)
	assert.ErrorIs(t, s.SetEditMode(true), ErrNoDiagram)
	_, _, err := s.Diagram()
	assert.ErrorIs(t, err, ErrNoDiagram)

	s.Load(pumpRef, pumpDiagram())
	require.NoError(t, s.SetEditMode(true))
	assert.True(t, s.Snapshot().EditMode)

	s.Detach()
	assert.False(t, s.Snapshot().EditMode)
	assert.Nil(t, s.Snapshot().Diagram)
	assert.Empty(t, s.Snapshot().Nodes)
}

func TestDirtyTracking(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	s.Load(pumpRef, pumpDiagram())
	assert.False(t, s.Snapshot().Dirty)

	force(t, s, "start", 1)
	advance(s, 5)
	assert.False(t, s.Snapshot().Dirty, "values are not edits")

	require.NoError(t, s.Edit(func(w *Workspace) error {
		return w.Graph.UpdateNode("coil", func(n *logic.Node) { n.Data.Label = "K2" })
	}))
	assert.True(t, s.Snapshot().Dirty)

	ref, doc, err := s.Diagram()
	require.NoError(t, err)
	s.MarkSaved(ref, doc)
	assert.False(t, s.Snapshot().Dirty)
}

func TestEditErrorPublishesNothing(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	ch, unsubscribe := s.Subscribe(4)
	defer unsubscribe()
	<-ch

	err := s.Edit(func(w *Workspace) error { return ErrNoDiagram })
	assert.ErrorIs(t, err, ErrNoDiagram)
	select {
	case e := <-ch:
		t.Fatalf("unexpected %s frame", e.Type)
	default:
	}
}

func TestSubscribeStreamsSnapshotThenDeltas(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	s.Load(pumpRef, pumpDiagram())

	ch, unsubscribe := s.Subscribe(64)
	first := <-ch
	require.Equal(t, EventSnapshot, first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Len(t, first.Snapshot.Nodes, 3)

	force(t, s, "start", 1)
	require.Equal(t, EventSnapshot, (<-ch).Type)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type == EventDelta && e.Delta.Nodes["coil"] == 1 {
				assert.True(t, e.Delta.Edges["e2"])
				unsubscribe()
				unsubscribe()
				assert.Zero(t, s.hub.len())
				return
			}
		case <-deadline:
			t.Fatal("coil never energized on the stream")
		}
	}
}

func TestSlowSubscriberDoesNotBlockTicks(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	s.Load(pumpRef, logic.Document{
		Nodes: []logic.Node{{ID: "n", Type: logic.KindNot}},
		Edges: []logic.Edge{{ID: "loop", Source: "n", Target: "n", TargetHandle: "in"}},
	})
	_, unsubscribe := s.Subscribe(1)
	defer unsubscribe()

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	require.Eventually(t, func() bool { return s.Snapshot().Tick > 20 }, 2*time.Second, fastTick)
}

func TestLaggingSubscriberResyncsWithSnapshot(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	s.Load(pumpRef, pumpDiagram())
	ch, unsubscribe := s.Subscribe(1)
	defer unsubscribe()

	// the buffer still holds the initial snapshot, so this frame is missed
	require.NoError(t, s.SetEditMode(true))
	require.Equal(t, EventSnapshot, (<-ch).Type)

	require.NoError(t, s.SetEditMode(false))
	e := <-ch
	require.Equal(t, EventSnapshot, e.Type, "a missed frame is made up by a snapshot")
	require.NotNil(t, e.Snapshot)
	assert.False(t, e.Snapshot.EditMode)

	require.NoError(t, s.SetEditMode(true))
	e = <-ch
	require.Equal(t, EventState, e.Type, "back to incremental frames")
	assert.True(t, e.State.EditMode)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := NewSession("s1", "8", fastTick)
	ch, _ := s.Subscribe(4)
	<-ch
	s.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.ErrorIs(t, s.Start(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Edit(func(*Workspace) error { return nil }), ErrClosed)
}
