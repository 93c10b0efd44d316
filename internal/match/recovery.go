package match

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/playgauntlet/backend/internal/config"
)

// Recover rebuilds a runtime that is not resident in the registry: cache
// fast path, then the latest durable snapshot, then log replay of everything
// past the loaded seq. A match with neither cache nor snapshot is
// unrecoverable and reported not-found.
func Recover(ctx context.Context, gateway Gateway, matchID string, cfg *config.Config) (*Runtime, error) {
	state, fromCache, err := loadState(ctx, gateway, matchID)
	if err != nil {
		return nil, err
	}

	rt := restoreRuntime(state, gateway, cfg)

	events, err := gateway.LoadEventsAfter(ctx, matchID, state.Seq)
	if err != nil {
		log.Printf("[RECOVER] load events after seq=%d for match %s failed: %v", state.Seq, matchID, err)
		return nil, err
	}

	replayed := 0
	for _, ev := range events {
		rt.Seq = ev.Seq

		// Client-originated entries only advance the watermark: their
		// effects were captured by the server entries they triggered.
		var src struct {
			Source string `json:"source"`
		}
		if err := json.Unmarshal(ev.Payload, &src); err != nil || src.Source != SourceServer {
			continue
		}
		if err := rt.applyServerEvent(ev.EventType, ev.Payload); err != nil {
			log.Printf("[RECOVER] replay %s seq=%d for match %s failed: %v", ev.EventType, ev.Seq, matchID, err)
			continue
		}
		replayed++
	}

	log.Printf("[RECOVER] match %s rebuilt from %s at seq=%d (%d events replayed, now seq=%d)",
		matchID, sourceName(fromCache), state.Seq, replayed, rt.Seq)

	// Compact: persist a fresh snapshot at the now-current seq before the
	// runtime goes back into service. Failure is non-fatal.
	compacted := rt.snapshotLocked()
	if data, err := json.Marshal(compacted); err == nil {
		if err := gateway.SaveSnapshot(ctx, matchID, compacted.Seq, data); err != nil {
			log.Printf("[RECOVER] compaction snapshot seq=%d for match %s failed: %v", compacted.Seq, matchID, err)
		}
		if err := gateway.CacheSet(ctx, matchID, data, rt.cacheTTL); err != nil {
			log.Printf("[RECOVER] cache refresh for match %s failed: %v", matchID, err)
		}
	}
	rt.lastSnapshotSeq = rt.Seq

	return rt, nil
}

// loadState tries the cache first, then the durable snapshot store
func loadState(ctx context.Context, gateway Gateway, matchID string) (*SnapshotState, bool, error) {
	if data, err := gateway.CacheGet(ctx, matchID); err == nil {
		var state SnapshotState
		if err := json.Unmarshal(data, &state); err == nil {
			return &state, true, nil
		}
		log.Printf("[RECOVER] cached state for match %s is corrupt, falling back to snapshot", matchID)
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Printf("[RECOVER] cache read for match %s failed: %v", matchID, err)
	}

	record, err := gateway.LoadLatestSnapshot(ctx, matchID)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return nil, false, ErrMatchNotFound
		}
		return nil, false, err
	}

	var state SnapshotState
	if err := json.Unmarshal(record.State, &state); err != nil {
		return nil, false, err
	}
	return &state, false, nil
}

// restoreRuntime re-instantiates a runtime, including its stage machine,
// over rebuilt match/player/stage/status state.
func restoreRuntime(state *SnapshotState, gateway Gateway, cfg *config.Config) *Runtime {
	rt := newRuntime(state.Match, gateway, cfg)
	rt.Players = state.Players
	rt.Ledger = state.Ledger
	rt.Round = state.Round
	rt.ExternalRef = state.ExternalRef
	rt.Seq = state.Seq
	rt.machine = NewStageMachine(state.Stage, state.Status)
	for _, id := range state.Ready {
		rt.Ready[id] = true
	}
	for _, p := range rt.Players {
		p.Connected = false
	}
	return rt
}

func sourceName(fromCache bool) string {
	if fromCache {
		return "cache"
	}
	return "snapshot"
}
