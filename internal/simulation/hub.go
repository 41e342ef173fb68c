package simulation

import (
	"sync"

	"github.com/plantops/engine/internal/logic"
)

// EventType tags a live-stream frame.
type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventDelta    EventType = "delta"
	EventState    EventType = "state"
)

// State is the run/edit status carried by state frames.
type State struct {
	Running  bool `json:"running"`
	EditMode bool `json:"editMode"`
	Loaded   bool `json:"loaded"`
}

// Event is one live-stream frame.
type Event struct {
	Type     EventType    `json:"type"`
	Tick     uint64       `json:"tick,omitempty"`
	Snapshot *Snapshot    `json:"snapshot,omitempty"`
	Delta    *logic.Delta `json:"delta,omitempty"`
	State    *State       `json:"state,omitempty"`
}

// hub fans events out to subscribers without ever blocking the publisher.
// A subscriber whose buffer is full misses the frame and is marked dropped;
// its next delivered frame is a fresh snapshot instead, since deltas only
// carry what changed.
type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]*subscriber
	closed bool
	resync func() Event
}

type subscriber struct {
	ch      chan Event
	dropped bool
}

func newHub(resync func() Event) *hub {
	return &hub{subs: map[int]*subscriber{}, resync: resync}
}

func (h *hub) subscribe(buffer int, first Event) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	ch <- first

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = &subscriber{ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
}

// publish must not be called with the session lock held: resync takes it.
func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var fresh *Event
	for _, sub := range h.subs {
		out := e
		if sub.dropped && e.Type != EventSnapshot && h.resync != nil {
			// only publish sends, so a full buffer stays full until drained
			if len(sub.ch) == cap(sub.ch) {
				continue
			}
			if fresh == nil {
				f := h.resync()
				fresh = &f
			}
			out = *fresh
		}
		select {
		case sub.ch <- out:
			sub.dropped = false
		default:
			sub.dropped = true
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
