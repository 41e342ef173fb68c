package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/engine/internal/logic"
	"github.com/plantops/engine/pkg/logger"
	"github.com/plantops/engine/pkg/utils"
)

var (
	ErrNoDiagram       = errors.New("no diagram loaded")
	ErrSessionNotFound = errors.New("session not found")
	ErrClosed          = errors.New("session closed")
)

// DiagramRef identifies the persisted diagram a session is working on.
type DiagramRef struct {
	ID       string `json:"id"`
	FolderID string `json:"folderId"`
	Name     string `json:"name"`
}

// Snapshot is the full observable state of a session.
type Snapshot struct {
	SessionID string       `json:"sessionId"`
	Diagram   *DiagramRef  `json:"diagram"`
	Running   bool         `json:"running"`
	EditMode  bool         `json:"editMode"`
	Dirty     bool         `json:"dirty"`
	Tick      uint64       `json:"tick"`
	Nodes     []logic.Node `json:"nodes"`
	Edges     []logic.Edge `json:"edges"`
}

// Workspace is handed to editor callbacks while the session lock is held.
type Workspace struct {
	Graph    *logic.Graph
	Runtime  *logic.Runtime
	Loaded   bool
	EditMode bool
	RoleID   string
}

// Session owns one operator's working copy of a diagram and the goroutine
// that evaluates it.
type Session struct {
	id     string
	roleID string
	owner  string
	tick   time.Duration
	log    *zap.Logger

	mu       sync.Mutex
	graph    *logic.Graph
	rt       *logic.Runtime
	engine   *logic.Engine
	diagram  *DiagramRef
	editMode bool
	saved    utils.Digest
	ticks    uint64
	running  bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}

	hub *hub
}

// NewSession returns an idle session with an empty graph.
func NewSession(id, roleID string, tick time.Duration) *Session {
	if tick <= 0 {
		tick = logic.DefaultTick
	}
	g := logic.NewGraph()
	s := &Session{
		id:     id,
		roleID: roleID,
		tick:   tick,
		log:    logger.Named("simulation").With(zap.String("session_id", id)),
		graph:  g,
		rt:     logic.NewRuntime(),
		engine: logic.NewEngine(tick),
		saved:  logic.Fingerprint(g.Document()),
	}
	s.hub = newHub(s.snapshotEvent)
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) RoleID() string { return s.roleID }

// Owner is the subject that opened the session. Empty means any caller may
// use it.
func (s *Session) Owner() string { return s.owner }

// OwnedBy reports whether subject may act on the session.
func (s *Session) OwnedBy(subject string) bool {
	return s.owner == "" || s.owner == subject
}

// Start begins ticking. Calling it on a running session does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running, s.cancel, s.done = true, cancel, make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.loop(runCtx, done)
	s.log.Info("simulation started", zap.Duration("tick", s.tick))
	s.hub.publish(Event{Type: EventState, State: s.state()})
	return nil
}

func (s *Session) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.step()
		}
	}
}

func (s *Session) step() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	d := s.engine.Step(s.graph, s.rt)
	s.ticks++
	tick := s.ticks
	s.mu.Unlock()

	if !d.Empty() {
		s.hub.publish(Event{Type: EventDelta, Tick: tick, Delta: &d})
	}
}

// Stop halts ticking and puts the diagram in its safe state: runtime state
// cleared, every value 0 and every edge inactive. It is safe to call on an
// idle session and always performs the reset.
func (s *Session) Stop() {
	s.halt()

	s.mu.Lock()
	s.rt.Clear()
	d := s.graph.Deenergize()
	s.mu.Unlock()

	if !d.Empty() {
		s.hub.publish(Event{Type: EventDelta, Delta: &d})
	}
	s.hub.publish(Event{Type: EventState, State: s.state()})
}

// halt cancels the tick goroutine and waits for it to exit.
func (s *Session) halt() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info("simulation stopped")
}

// Running reports whether the tick goroutine is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Load replaces the working graph with doc. A running simulation is
// stopped, runtime state is cleared and edit mode is left.
func (s *Session) Load(ref DiagramRef, doc logic.Document) {
	s.halt()

	g := logic.Hydrate(doc)
	s.mu.Lock()
	s.graph = g
	s.rt.Clear()
	s.diagram = &ref
	s.editMode = false
	s.ticks = 0
	s.saved = logic.Fingerprint(g.Document())
	rev, nodes, edges := s.saved.Short(), g.NodeCount(), g.EdgeCount()
	s.mu.Unlock()

	s.log.Info("diagram loaded", zap.String("diagram_id", ref.ID),
		zap.Int("nodes", nodes), zap.Int("edges", edges), zap.String("revision", rev))
	s.publishSnapshot()
}

// Detach stops the simulation and drops the working diagram.
func (s *Session) Detach() {
	s.halt()

	s.mu.Lock()
	s.graph = logic.NewGraph()
	s.rt.Clear()
	s.diagram = nil
	s.editMode = false
	s.ticks = 0
	s.saved = logic.Fingerprint(s.graph.Document())
	s.mu.Unlock()

	s.publishSnapshot()
}

// Diagram returns the loaded diagram reference and its current document.
func (s *Session) Diagram() (DiagramRef, logic.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diagram == nil {
		return DiagramRef{}, logic.Document{}, ErrNoDiagram
	}
	return *s.diagram, s.graph.Document(), nil
}

// MarkSaved records ref as the persisted identity of the working diagram
// and doc as its saved content.
func (s *Session) MarkSaved(ref DiagramRef, doc logic.Document) {
	s.mu.Lock()
	s.diagram = &ref
	s.saved = logic.Fingerprint(doc)
	rev := s.saved.Short()
	s.mu.Unlock()

	s.log.Info("diagram saved", zap.String("diagram_id", ref.ID), zap.String("revision", rev))
}

// Holds reports whether the session works on the given diagram or on any
// diagram of the given folder. Empty arguments match nothing.
func (s *Session) Holds(diagramID, folderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diagram == nil {
		return false
	}
	return (diagramID != "" && s.diagram.ID == diagramID) ||
		(folderID != "" && s.diagram.FolderID == folderID)
}

// SetEditMode toggles edit mode. It needs a loaded diagram.
func (s *Session) SetEditMode(on bool) error {
	s.mu.Lock()
	if s.diagram == nil {
		s.mu.Unlock()
		return ErrNoDiagram
	}
	s.editMode = on
	s.mu.Unlock()

	s.hub.publish(Event{Type: EventState, State: s.state()})
	return nil
}

// Edit runs fn with exclusive access to the working graph. Changes become
// visible to the engine on the next tick. A snapshot is published when fn
// succeeds.
func (s *Session) Edit(fn func(w *Workspace) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	w := &Workspace{
		Graph:    s.graph,
		Runtime:  s.rt,
		Loaded:   s.diagram != nil,
		EditMode: s.editMode,
		RoleID:   s.roleID,
	}
	err := fn(w)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publishSnapshot()
	return nil
}

// Snapshot returns the full session state with the viewer's role attached
// to every node.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Running:   s.running,
		EditMode:  s.editMode,
		Tick:      s.ticks,
		Nodes:     s.graph.Render(s.roleID),
		Edges:     s.graph.Edges(),
	}
	if s.diagram != nil {
		ref := *s.diagram
		snap.Diagram = &ref
		snap.Dirty = logic.Fingerprint(s.graph.Document()) != s.saved
	}
	return snap
}

func (s *Session) state() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &State{Running: s.running, EditMode: s.editMode, Loaded: s.diagram != nil}
}

func (s *Session) snapshotEvent() Event {
	snap := s.Snapshot()
	return Event{Type: EventSnapshot, Tick: snap.Tick, Snapshot: &snap}
}

func (s *Session) publishSnapshot() {
	s.hub.publish(s.snapshotEvent())
}

// Subscribe registers a live-stream listener. The first event is always a
// full snapshot. The returned function unsubscribes and closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	return s.hub.subscribe(buffer, s.snapshotEvent())
}

// Close stops the session for good and closes every subscriber.
func (s *Session) Close() {
	s.halt()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.close()
}
