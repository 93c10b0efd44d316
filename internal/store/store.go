package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/playgauntlet/backend/internal/match"
	"github.com/playgauntlet/backend/internal/models"
)

// Store implements the match.Gateway contract over Postgres (event log and
// snapshots) and Redis (best-effort state cache).
type Store struct {
	db  *sqlx.DB
	rdb *redis.Client
}

// New creates a store. rdb may be nil, in which case every cache read is a
// miss and cache writes are skipped.
func New(db *sqlx.DB, rdb *redis.Client) *Store {
	return &Store{db: db, rdb: rdb}
}

// AppendEvent durably appends one event log row. (match_id, seq) is unique,
// so a duplicate append from a retried caller fails loudly rather than
// silently reordering the log.
func (s *Store) AppendEvent(ctx context.Context, matchID string, seq int64, eventType string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_events (match_id, seq, event_type, payload, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		matchID, seq, eventType, payload)
	return err
}

// SaveSnapshot stores a serialized runtime. Idempotent per (matchID, seq):
// a duplicate save is ignored.
func (s *Store) SaveSnapshot(ctx context.Context, matchID string, seq int64, state []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_snapshots (match_id, seq, state, created_at) VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (match_id, seq) DO NOTHING`,
		matchID, seq, state)
	return err
}

// LoadLatestSnapshot returns the snapshot with the highest seq for the match
func (s *Store) LoadLatestSnapshot(ctx context.Context, matchID string) (*models.SnapshotRecord, error) {
	var rec models.SnapshotRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT id, match_id, seq, state, created_at FROM match_snapshots WHERE match_id=$1 ORDER BY seq DESC LIMIT 1`,
		matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, match.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadEventsAfter returns log rows with seq strictly greater than afterSeq,
// ascending.
func (s *Store) LoadEventsAfter(ctx context.Context, matchID string, afterSeq int64) ([]models.EventRecord, error) {
	var events []models.EventRecord
	err := s.db.SelectContext(ctx, &events,
		`SELECT id, match_id, seq, event_type, payload, created_at FROM match_events WHERE match_id=$1 AND seq > $2 ORDER BY seq ASC`,
		matchID, afterSeq)
	if err != nil {
		return nil, err
	}
	return events, nil
}
