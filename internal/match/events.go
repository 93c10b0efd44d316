package match

import "encoding/json"

// Client-originated event types. These reach the runtime through the
// websocket envelope and are logged with source=client: replay only advances
// the seq watermark past them, because their effects are captured by the
// server-originated entries they trigger.
const (
	EventCreateMatch  = "create_match"
	EventJoinMatch    = "join_match"
	EventLeaveMatch   = "leave_match"
	EventReady        = "ready"
	EventArcadeScore  = "arcade_score"
	EventPlaceBet     = "place_bet"
	EventPlayerAction = "player_action"
	EventGetState     = "get_state"
)

// Server-originated event types. These are the replayable record of what the
// runtime actually did.
const (
	EventMatchCreated   = "match_created"
	EventPlayerJoined   = "player_joined"
	EventPlayerLeft     = "player_left"
	EventPlayerReady    = "player_ready"
	EventStatusChanged  = "status_changed"
	EventStageStarted   = "stage_started"
	EventStageCompleted = "stage_completed"
	EventLedgerApplied  = "ledger_applied"
	EventStackSet       = "stack_set"
	EventExternalRefSet = "external_ref_set"
	EventRoundState     = "round_state"
)

// Payload source markers
const (
	SourceClient = "client"
	SourceServer = "server"
)

var clientEventTypes = map[string]bool{
	EventCreateMatch: true, EventJoinMatch: true, EventLeaveMatch: true,
	EventReady: true, EventArcadeScore: true, EventPlaceBet: true,
	EventPlayerAction: true, EventGetState: true,
}

// Envelope is the inbound tagged union: {type, match_id, data}.
type Envelope struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Validate rejects malformed envelopes before any admission check runs.
// Every event except match creation must name its match.
func (e Envelope) Validate() error {
	if !clientEventTypes[e.Type] {
		return ErrMalformedEvent
	}
	if e.Type != EventCreateMatch && e.MatchID == "" {
		return ErrMalformedEvent
	}
	return nil
}

// Client event data shapes

type CreateMatchData struct {
	Mode        string `json:"mode"`
	DisplayName string `json:"display_name"`
}

type JoinMatchData struct {
	DisplayName string `json:"display_name"`
}

type ArcadeScoreData struct {
	Score           int64  `json:"score"`
	ExternalMatchID string `json:"external_match_id,omitempty"`
}

type SpotBet struct {
	Wager     int64  `json:"wager"`
	SidePick  string `json:"side_pick,omitempty"` // "high" or "low"
	SideWager int64  `json:"side_wager,omitempty"`
}

type PlaceBetData struct {
	Spots []SpotBet `json:"spots"`
}

type PlayerActionData struct {
	Action string `json:"action"` // hit, stand, double, split
	Hand   int    `json:"hand"`
}

// Notification is an outbound message produced while handling one event.
// An empty To means broadcast to every connection in the match room.
type Notification struct {
	Type    string                 `json:"type"`
	To      string                 `json:"-"`
	Payload map[string]interface{} `json:"payload"`
}

// clientLogPayload wraps a logged client-originated event.
type clientLogPayload struct {
	Source string          `json:"source"`
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Server event log payload shapes. Every one carries source=server so replay
// can tell them apart from client entries without a type registry.

type matchCreatedPayload struct {
	Source  string  `json:"source"`
	Match   *Match  `json:"match"`
	Creator *Player `json:"creator"`
}

type playerJoinedPayload struct {
	Source string  `json:"source"`
	Player *Player `json:"player"`
}

type playerLeftPayload struct {
	Source string `json:"source"`
	UserID string `json:"user_id"`
}

type playerReadyPayload struct {
	Source string `json:"source"`
	UserID string `json:"user_id"`
}

type statusChangedPayload struct {
	Source string `json:"source"`
	Status Status `json:"status"`
}

type stageStartedPayload struct {
	Source string `json:"source"`
	Stage  Stage  `json:"stage"`
}

type stageCompletedPayload struct {
	Source string `json:"source"`
	Stage  Stage  `json:"stage"`
}

type ledgerAppliedPayload struct {
	Source string      `json:"source"`
	Entry  LedgerEntry `json:"entry"`
}

type stackSetPayload struct {
	Source string `json:"source"`
	UserID string `json:"user_id"`
	Stack  int64  `json:"stack"`
}

type externalRefSetPayload struct {
	Source string `json:"source"`
	Ref    string `json:"ref"`
}

type roundStatePayload struct {
	Source string      `json:"source"`
	Round  *RoundState `json:"round"`
}
