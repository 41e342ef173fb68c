package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry tracks the live sessions of the process.
type Registry struct {
	ctx  context.Context
	tick time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns a registry whose sessions tick at the given interval.
// Simulations started through it run until stopped or until ctx ends.
func NewRegistry(ctx context.Context, tick time.Duration) *Registry {
	return &Registry{ctx: ctx, tick: tick, sessions: map[string]*Session{}}
}

// Create opens a session for a viewer with the given role, bound to the
// owner subject.
func (r *Registry) Create(roleID, owner string) *Session {
	s := NewSession(uuid.NewString(), roleID, r.tick)
	s.owner = owner
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	s.log.Info("session opened", zap.String("role_id", roleID), zap.String("owner", owner))
	return s
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Owned returns a session the subject may act on. Sessions of other
// subjects are reported as missing.
func (r *Registry) Owned(id, subject string) (*Session, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !s.OwnedBy(subject) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Start runs the session's simulation under the registry's lifetime rather
// than a request's.
func (r *Registry) Start(s *Session) error {
	return s.Start(r.ctx)
}

// Close stops and forgets a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Stop()
	s.Close()
	return nil
}

// DetachDiagram drops the diagram from every session working on it and
// returns how many were affected.
func (r *Registry) DetachDiagram(diagramID string) int {
	return r.detach(diagramID, "")
}

// DetachFolder drops every diagram of the folder from the sessions working
// on one of them.
func (r *Registry) DetachFolder(folderID string) int {
	return r.detach("", folderID)
}

func (r *Registry) detach(diagramID, folderID string) int {
	n := 0
	for _, s := range r.list() {
		if s.Holds(diagramID, folderID) {
			s.Detach()
			n++
		}
	}
	return n
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown closes every session.
func (r *Registry) Shutdown() {
	for _, s := range r.list() {
		_ = r.Close(s.ID())
	}
}

func (r *Registry) list() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
