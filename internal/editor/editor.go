// Package editor turns operator gestures into graph mutations. Structural
// changes pass two gates: the session must be in edit mode on a loaded
// diagram, and the session's role must hold the edit capability. Moving
// nodes and forcing inputs are open to every viewer.
package editor

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/plantops/engine/internal/logic"
	"github.com/plantops/engine/internal/simulation"
)

var (
	ErrNotEditing      = errors.New("diagram is not in edit mode")
	ErrForbidden       = errors.New("role may not edit diagrams")
	ErrUnknownKind     = errors.New("unknown node type")
	ErrInvalidPort     = errors.New("target does not accept this port")
	ErrPortInUse       = errors.New("target port already connected")
	ErrNoOutput        = errors.New("source has no output")
	ErrNotConfigurable = errors.New("field is not configurable")
	ErrNotInput        = errors.New("node is not a forcible input")
)

// Editor applies gestures to sessions.
type Editor struct {
	caps Capability
}

// New returns an editor that checks structural changes against caps.
func New(caps Capability) *Editor {
	return &Editor{caps: caps}
}

func (e *Editor) guard(w *simulation.Workspace) error {
	if !w.Loaded || !w.EditMode {
		return ErrNotEditing
	}
	if !e.caps.CanEdit(w.RoleID) {
		return ErrForbidden
	}
	return nil
}

// gated runs fn only when both gates are open.
func (e *Editor) gated(s *simulation.Session, fn func(w *simulation.Workspace) error) error {
	return s.Edit(func(w *simulation.Workspace) error {
		if err := e.guard(w); err != nil {
			return err
		}
		return fn(w)
	})
}

// SetEditMode enters or leaves edit mode.
func (e *Editor) SetEditMode(s *simulation.Session, on bool) error {
	return s.SetEditMode(on)
}

// NewNode describes a node to create.
type NewNode struct {
	Type       logic.Kind     `json:"type" validate:"required"`
	Position   logic.Position `json:"position"`
	InputCount int            `json:"inputCount"`
}

// AddNode creates a node with its type's default data.
func (e *Editor) AddNode(s *simulation.Session, req NewNode) (logic.Node, error) {
	kind := logic.NormalizeKind(req.Type)
	b, ok := logic.Lookup(kind)
	if !ok {
		return logic.Node{}, fmt.Errorf("%q: %w", req.Type, ErrUnknownKind)
	}
	n := logic.Node{
		ID:       uuid.NewString(),
		Type:     kind,
		Position: req.Position,
		Data:     b.Defaults(req.InputCount),
	}
	err := e.gated(s, func(w *simulation.Workspace) error {
		return w.Graph.AddNode(n)
	})
	if err != nil {
		return logic.Node{}, err
	}
	return n, nil
}

// RemoveNode deletes a node, its edges and its runtime state.
func (e *Editor) RemoveNode(s *simulation.Session, id string) error {
	return e.gated(s, func(w *simulation.Workspace) error {
		if _, err := w.Graph.RemoveNode(id); err != nil {
			return err
		}
		w.Runtime.Forget(id)
		return nil
	})
}

// MoveNode changes a node's canvas position. It is never gated.
func (e *Editor) MoveNode(s *simulation.Session, id string, pos logic.Position) error {
	return s.Edit(func(w *simulation.Workspace) error {
		return w.Graph.UpdateNode(id, func(n *logic.Node) { n.Position = pos })
	})
}

// Connect wires source to a port of target. A blank target handle picks the
// target's only port.
func (e *Editor) Connect(s *simulation.Session, edge logic.Edge) (logic.Edge, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	err := e.gated(s, func(w *simulation.Workspace) error {
		src, ok := w.Graph.Node(edge.Source)
		if !ok {
			return fmt.Errorf("source %s: %w", edge.Source, logic.ErrNodeNotFound)
		}
		dst, ok := w.Graph.Node(edge.Target)
		if !ok {
			return fmt.Errorf("target %s: %w", edge.Target, logic.ErrNodeNotFound)
		}
		if b, known := logic.Lookup(src.Type); known && !b.Output {
			return ErrNoOutput
		}
		port, err := resolvePort(dst, edge.TargetHandle)
		if err != nil {
			return err
		}
		for _, ex := range w.Graph.Edges() {
			if ex.Target != dst.ID {
				continue
			}
			held := ex.TargetHandle
			if held == "" {
				held, _ = resolvePort(dst, "")
			}
			if held == port {
				return fmt.Errorf("%s on %s: %w", port, dst.ID, ErrPortInUse)
			}
		}
		edge.TargetHandle = port
		return w.Graph.AddEdge(edge)
	})
	if err != nil {
		return logic.Edge{}, err
	}
	edge.Data.Active = false
	return edge, nil
}

func resolvePort(dst logic.Node, handle string) (string, error) {
	b, ok := logic.Lookup(dst.Type)
	if !ok {
		return "", fmt.Errorf("%s: %w", dst.Type, ErrUnknownKind)
	}
	ports := b.Ports(dst.Data)
	if handle == "" && len(ports) == 1 {
		return ports[0], nil
	}
	for _, p := range ports {
		if p == handle {
			return p, nil
		}
	}
	return "", fmt.Errorf("%q on %s: %w", handle, dst.Type, ErrInvalidPort)
}

// Disconnect removes an edge.
func (e *Editor) Disconnect(s *simulation.Session, id string) error {
	return e.gated(s, func(w *simulation.Workspace) error {
		return w.Graph.RemoveEdge(id)
	})
}

// Configure sets configuration fields from free-form text. Numeric fields
// that do not parse become 0; hysteresis and delay never go below 0.
func (e *Editor) Configure(s *simulation.Session, id string, fields map[string]string) (logic.Node, error) {
	var out logic.Node
	err := e.gated(s, func(w *simulation.Workspace) error {
		n, ok := w.Graph.Node(id)
		if !ok {
			return fmt.Errorf("node %s: %w", id, logic.ErrNodeNotFound)
		}
		b, known := logic.Lookup(n.Type)
		for f := range fields {
			if f == "notes" {
				continue
			}
			if !known || !b.Configurable(f) {
				return fmt.Errorf("%s on %s: %w", f, n.Type, ErrNotConfigurable)
			}
		}
		for f, raw := range fields {
			setField(&n.Data, f, raw)
		}
		out = n
		return w.Graph.UpdateNode(id, func(stored *logic.Node) { stored.Data = n.Data })
	})
	return out, err
}

func setField(d *logic.NodeData, field, raw string) {
	switch field {
	case "notes":
		d.Notes = raw
	case "label":
		d.Label = raw
	case "desc":
		d.Desc = raw
	case "text":
		d.Text = raw
	case "setpoint":
		d.Setpoint = logic.ParseNumber(raw)
	case "hysteresis":
		d.Hysteresis = nonNegative(logic.ParseNumber(raw))
	case "delay":
		d.Delay = nonNegative(logic.ParseNumber(raw))
	}
}

func nonNegative(n logic.Number) logic.Number {
	return logic.Number(math.Max(0, n.Float()))
}

// ForceDigital sets a digital input on or off. Any viewer may force inputs.
func (e *Editor) ForceDigital(s *simulation.Session, id string, on bool) error {
	return e.force(s, id, logic.KindDigitalInput, func(d *logic.NodeData) {
		d.Value = 0
		if on {
			d.Value = 1
		}
	})
}

// ForceAnalog sets the simulated reading of an analog input.
func (e *Editor) ForceAnalog(s *simulation.Session, id string, v logic.Number) error {
	return e.force(s, id, logic.KindAnalogInput, func(d *logic.NodeData) { d.SimValue = v })
}

func (e *Editor) force(s *simulation.Session, id string, kind logic.Kind, fn func(*logic.NodeData)) error {
	return s.Edit(func(w *simulation.Workspace) error {
		n, ok := w.Graph.Node(id)
		if !ok {
			return fmt.Errorf("node %s: %w", id, logic.ErrNodeNotFound)
		}
		if n.Type != kind {
			return fmt.Errorf("%s is %s: %w", id, n.Type, ErrNotInput)
		}
		return w.Graph.Mutator(id)(fn)
	})
}
