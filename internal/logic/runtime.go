package logic

// State is the live execution state of one timer or latch node.
type State struct {
	Count int     `json:"count"`
	State float64 `json:"state"`
}

// Runtime is the side table of live execution state, keyed by node id.
// It is never persisted and is cleared on stop and on every load.
type Runtime struct {
	slots map[string]*State
}

// NewRuntime returns an empty runtime table.
func NewRuntime() *Runtime {
	return &Runtime{slots: map[string]*State{}}
}

// Slot returns the state for id, creating it on first use.
func (r *Runtime) Slot(id string) *State {
	s, ok := r.slots[id]
	if !ok {
		s = &State{}
		r.slots[id] = s
	}
	return s
}

// Get returns a copy of the state for id.
func (r *Runtime) Get(id string) (State, bool) {
	s, ok := r.slots[id]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Forget drops the state of a removed node.
func (r *Runtime) Forget(id string) { delete(r.slots, id) }

// Clear drops every slot.
func (r *Runtime) Clear() { r.slots = map[string]*State{} }

// Len returns the number of live slots.
func (r *Runtime) Len() int { return len(r.slots) }
