package match

import (
	"context"
	"errors"
	"time"

	"github.com/playgauntlet/backend/internal/models"
)

// Gateway sentinel lookups
var (
	ErrNoSnapshot = errors.New("no snapshot for match")
	ErrCacheMiss  = errors.New("match state not cached")
)

// Gateway is the persistence boundary for match state. The event log is the
// source of truth for ordering; snapshots and the cache are acceleration.
// Implemented by internal/store over Postgres and Redis; tests use an
// in-memory fake.
//
// Append/save failures never roll back in-memory state: the runtime stays
// the near-term source of truth and a later snapshot durable-izes it.
type Gateway interface {
	// AppendEvent durably appends one log entry; ordering is by seq per match.
	AppendEvent(ctx context.Context, matchID string, seq int64, eventType string, payload []byte) error

	// SaveSnapshot stores a full serialized runtime. Idempotent per
	// (matchID, seq): duplicates are ignored.
	SaveSnapshot(ctx context.Context, matchID string, seq int64, state []byte) error

	// LoadLatestSnapshot returns the snapshot with the highest seq, or
	// ErrNoSnapshot.
	LoadLatestSnapshot(ctx context.Context, matchID string) (*models.SnapshotRecord, error)

	// LoadEventsAfter returns log entries with seq strictly greater than
	// afterSeq, ascending.
	LoadEventsAfter(ctx context.Context, matchID string, afterSeq int64) ([]models.EventRecord, error)

	// CacheGet/CacheSet are the best-effort, non-durable fast path.
	CacheGet(ctx context.Context, matchID string) ([]byte, error)
	CacheSet(ctx context.Context, matchID string, state []byte, ttl time.Duration) error
}
