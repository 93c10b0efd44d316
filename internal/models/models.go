package models

import (
	"encoding/json"
	"time"
)

// EventRecord is one durable row in the per-match event log. Ordering within
// a match is by seq; (match_id, seq) is unique.
type EventRecord struct {
	ID        int64           `db:"id" json:"id"`
	MatchID   string          `db:"match_id" json:"match_id"`
	Seq       int64           `db:"seq" json:"seq"`
	EventType string          `db:"event_type" json:"event_type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SnapshotRecord is a full serialized match runtime tagged with the seq at
// which it was taken. The latest seq per match is authoritative.
type SnapshotRecord struct {
	ID        int64           `db:"id" json:"id"`
	MatchID   string          `db:"match_id" json:"match_id"`
	Seq       int64           `db:"seq" json:"seq"`
	State     json.RawMessage `db:"state" json:"state"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
