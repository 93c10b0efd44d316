package match

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playgauntlet/backend/internal/config"
)

// Registry owns the live runtimes, keyed by match id. It is the only way to
// reach a runtime, so each match has a single authoritative in-memory copy
// per process.
type Registry struct {
	mu         sync.Mutex
	runtimes   map[string]*Runtime
	recovering map[string]chan struct{}
	gateway    Gateway
	cfg        *config.Config
}

// NewRegistry creates a registry over the given persistence gateway
func NewRegistry(gateway Gateway, cfg *config.Config) *Registry {
	return &Registry{
		runtimes:   make(map[string]*Runtime),
		recovering: make(map[string]chan struct{}),
		gateway:    gateway,
		cfg:        cfg,
	}
}

// Create allocates a new match with the creator seated at seat 1 in a
// CREATED lobby, registers the runtime and logs the creation event.
func (r *Registry) Create(mode, creatorID, displayName string) (*Runtime, []Notification, error) {
	m := &Match{
		ID:        uuid.NewString(),
		Mode:      mode,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
	}

	rt := newRuntime(m, r.gateway, r.cfg)
	creator := &Player{
		MatchID:     m.ID,
		UserID:      creatorID,
		DisplayName: displayName,
		Seat:        1,
		Connected:   true,
	}

	rt.mu.Lock()
	rt.Players = []*Player{creator}
	rt.record(EventMatchCreated, matchCreatedPayload{Source: SourceServer, Match: m, Creator: creator})
	rt.persistLocked(true)
	rt.mu.Unlock()

	r.mu.Lock()
	r.runtimes[m.ID] = rt
	r.mu.Unlock()

	log.Printf("[REGISTRY] Match created: %s (mode=%s, creator=%s)", m.ID, mode, creatorID)

	return rt, []Notification{{
		Type: "match_created",
		Payload: map[string]interface{}{
			"match_id": m.ID,
			"mode":     mode,
			"creator":  creatorID,
		},
	}}, nil
}

// Get returns the resident runtime or recovers it from persistence.
// Concurrent recoveries for the same id are deduplicated: followers wait on
// the leader's channel instead of rebuilding a divergent copy.
func (r *Registry) Get(ctx context.Context, matchID string) (*Runtime, error) {
	for {
		r.mu.Lock()
		if rt, ok := r.runtimes[matchID]; ok {
			r.mu.Unlock()
			return rt, nil
		}
		if ch, ok := r.recovering[matchID]; ok {
			r.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		ch := make(chan struct{})
		r.recovering[matchID] = ch
		r.mu.Unlock()

		rt, err := Recover(ctx, r.gateway, matchID, r.cfg)

		r.mu.Lock()
		if err == nil {
			r.runtimes[matchID] = rt
		}
		delete(r.recovering, matchID)
		close(ch)
		r.mu.Unlock()

		return rt, err
	}
}

// Resident returns the runtime only if it is already in memory, without
// triggering recovery. Used for transient bookkeeping like connection flags.
func (r *Registry) Resident(matchID string) (*Runtime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.runtimes[matchID]
	return rt, ok
}

// ActiveCount returns the number of resident runtimes
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runtimes)
}

// Evict drops a runtime from the registry. Durable state is untouched; the
// match recovers on next reference.
func (r *Registry) Evict(matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runtimes, matchID)
}

// StartEvictionWorker runs a background job that drops terminal matches
// which have been idle past the configured grace period.
func (r *Registry) StartEvictionWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Duration(r.cfg.EvictPollSeconds) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[REGISTRY] Eviction worker stopping")
				return
			case <-ticker.C:
				r.evictStale()
			}
		}
	}()
}

func (r *Registry) evictStale() {
	cutoff := time.Now().Add(-time.Duration(r.cfg.EvictAfterMinutes) * time.Minute)

	r.mu.Lock()
	candidates := make([]*Runtime, 0)
	for _, rt := range r.runtimes {
		candidates = append(candidates, rt)
	}
	r.mu.Unlock()

	for _, rt := range candidates {
		status := rt.Status()
		if status != StatusCompleted && status != StatusCancelled {
			continue
		}
		if rt.LastActivity().After(cutoff) {
			continue
		}
		r.Evict(rt.MatchID())
		log.Printf("[REGISTRY] Evicted idle terminal match %s (status=%s)", rt.MatchID(), status)
	}
}
