package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Registry tracks live sessions by id. A session is present from creation
// until its teardown completes.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
	closing  atomic.Bool
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*Session),
	}
}

// Add registers s. It fails when the registry is shutting down or s is already torn down.
func (r *Registry) Add(s *Session) error {
	if r.closing.Load() {
		return fmt.Errorf("%w: registry is shutting down", domain.ErrSessionClosed)
	}
	r.mu.Lock()
	if _, ok := r.sessions[s.ID()]; ok {
		r.mu.Unlock()
		return fmt.Errorf("duplicate session id %s", s.ID())
	}
	r.sessions[s.ID()] = s
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	if !s.attach(r) {
		r.remove(s.ID())
		return fmt.Errorf("%w: %s", domain.ErrSessionClosed, s.ID())
	}
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID())).Msg("registered session")
	return nil
}

func (r *Registry) remove(sid domain.SessionID) {
	r.mu.Lock()
	_, ok := r.sessions[sid]
	delete(r.sessions, sid)
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unregistered session")
	}
}

func (r *Registry) Get(sid domain.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns a snapshot of every registered session, oldest first.
func (r *Registry) List() []domain.SessionInfo {
	r.mu.RLock()
	snap := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snap = append(snap, s)
	}
	r.mu.RUnlock()

	out := make([]domain.SessionInfo, 0, len(snap))
	for _, s := range snap {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CloseSession closes one session by id.
func (r *Registry) CloseSession(sid domain.SessionID) error {
	s, ok := r.Get(sid)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sid)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("closing session")
	return s.Close()
}

// CloseAll closes every session concurrently and rejects new ones.
// It returns once all sessions are torn down or ctx is done.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.closing.Store(true)

	r.mu.RLock()
	snap := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snap = append(snap, s)
	}
	r.mu.RUnlock()

	log.Info().Str("module", "app.registry").Int("sessions", len(snap)).Msg("closing all sessions")

	done := make(chan error, 1)
	go func() {
		var g errgroup.Group
		for _, s := range snap {
			g.Go(s.Close)
		}
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("close all sessions: %w", ctx.Err())
	}
}

// Healthy reports whether the registry still accepts sessions.
func (r *Registry) Healthy() bool {
	return !r.closing.Load()
}
