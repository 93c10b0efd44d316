package match

import (
	"time"
)

// Status represents the lifecycle state of a match
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// MaxSeats is the hard cap on players per match
const MaxSeats = 6

// MinPlayersToStart is how many ready players a lobby needs before the match runs
const MinPlayersToStart = 2

// Match is the persistent identity of one game night session
type Match struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Player is one seated participant. Stack is derived state: its only
// legitimate mutator is ledger application.
type Player struct {
	MatchID     string `json:"match_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Seat        int    `json:"seat"`
	Stack       int64  `json:"stack"`
	Connected   bool   `json:"is_connected"`
	IsBot       bool   `json:"is_bot"`
}

// LedgerEntry is an immutable signed stack adjustment with provenance.
// The sum of a user's deltas always equals that user's current stack.
type LedgerEntry struct {
	MatchID string    `json:"match_id"`
	UserID  string    `json:"user_id"`
	Stage   Stage     `json:"stage"`
	Delta   int64     `json:"delta"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// SnapshotState is the wire shape of a full runtime serialization, tagged
// with the seq at which it was taken. Transient fields (connections, the
// per-runtime lock) are not part of it.
type SnapshotState struct {
	Match       *Match        `json:"match"`
	Players     []*Player     `json:"players"`
	Stage       Stage         `json:"stage"`
	Status      Status        `json:"status"`
	Ready       []string      `json:"ready"`
	Ledger      []LedgerEntry `json:"ledger"`
	Round       *RoundState   `json:"round,omitempty"`
	ExternalRef string        `json:"external_ref,omitempty"`
	Seq         int64         `json:"seq"`
}
