package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/playgauntlet/backend/internal/config"
)

// Runtime is the live in-memory state of one match. It is cache, not source
// of truth: durable state lives in the event log and snapshots. Events for
// one match are processed strictly sequentially under mu; different matches
// run fully in parallel.
type Runtime struct {
	mu sync.Mutex

	Match       *Match
	Players     []*Player
	Ready       map[string]bool
	Ledger      []LedgerEntry
	Seq         int64
	Round       *RoundState
	ExternalRef string

	machine *StageMachine
	gateway Gateway

	rules         RoundRules
	maxRounds     int
	maxPlayers    int
	snapshotEvery int64
	cacheTTL      time.Duration

	lastSnapshotSeq int64
	lastActivity    time.Time
}

func newRuntime(m *Match, gateway Gateway, cfg *config.Config) *Runtime {
	maxPlayers := cfg.MaxPlayers
	if maxPlayers <= 0 || maxPlayers > MaxSeats {
		maxPlayers = MaxSeats
	}
	return &Runtime{
		Match:         m,
		Ready:         make(map[string]bool),
		machine:       NewStageMachine(StageLobby, m.Status),
		gateway:       gateway,
		rules:         RoundRules{MinBet: cfg.MinBet, MaxBet: cfg.MaxBet, MaxSpots: cfg.MaxSpots},
		maxRounds:     cfg.MaxRounds,
		maxPlayers:    maxPlayers,
		snapshotEvery: int64(cfg.SnapshotEvery),
		cacheTTL:      time.Duration(cfg.CacheTTLSeconds) * time.Second,
		lastActivity:  time.Now(),
	}
}

// MatchID returns the match id without taking the runtime lock; the id never
// changes after creation.
func (rt *Runtime) MatchID() string {
	return rt.Match.ID
}

// Stage returns the current stage
func (rt *Runtime) Stage() Stage {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.machine.Stage()
}

// Status returns the current match status
func (rt *Runtime) Status() Status {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.machine.Status()
}

// LastActivity reports when the runtime last processed an event
func (rt *Runtime) LastActivity() time.Time {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.lastActivity
}

func (rt *Runtime) player(userID string) *Player {
	for _, p := range rt.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// SetConnected flips a player's transient connection flag. Not logged:
// connection state is not replayed.
func (rt *Runtime) SetConnected(userID string, connected bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if p := rt.player(userID); p != nil {
		p.Connected = connected
	}
}

// HandleEvent is the single mutation point for one match. It admits the
// event, mutates state synchronously, then issues fire-and-forget
// persistence. Returned notifications are for the transport to deliver;
// errors go back to the originating connection only.
func (rt *Runtime) HandleEvent(userID string, env Envelope) ([]Notification, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.lastActivity = time.Now()

	if err := rt.machine.Admit(env.Type); err != nil {
		return nil, err
	}
	if env.Type != EventJoinMatch && rt.player(userID) == nil {
		return nil, ErrNotParticipant
	}

	// Read-only: personalized view, nothing logged
	if env.Type == EventGetState {
		return []Notification{{Type: "match_state", To: userID, Payload: rt.stateView(userID)}}, nil
	}

	// The client event itself enters the log; replay skips it because its
	// effects are captured by the server events recorded below.
	rt.record(env.Type, clientLogPayload{Source: SourceClient, UserID: userID, Data: env.Data})

	var notes []Notification
	var err error
	switch env.Type {
	case EventJoinMatch:
		notes, err = rt.handleJoin(userID, env.Data)
	case EventLeaveMatch:
		notes, err = rt.handleLeave(userID)
	case EventReady:
		notes, err = rt.handleReady(userID)
	case EventArcadeScore:
		notes, err = rt.handleArcadeScore(userID, env.Data)
	case EventPlaceBet:
		notes, err = rt.handlePlaceBet(userID, env.Data)
	case EventPlayerAction:
		notes, err = rt.handlePlayerAction(userID, env.Data)
	default:
		err = ErrEventNotAllowed
	}

	rt.persistLocked(false)
	return notes, err
}

func (rt *Runtime) handleJoin(userID string, data json.RawMessage) ([]Notification, error) {
	if rt.player(userID) != nil {
		return nil, ErrAlreadyJoined
	}
	if len(rt.Players) >= rt.maxPlayers {
		return nil, ErrMatchFull
	}

	var d JoinMatchData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, ErrMalformedEvent
		}
	}

	player := &Player{
		MatchID:     rt.Match.ID,
		UserID:      userID,
		DisplayName: d.DisplayName,
		Seat:        rt.nextSeat(),
		Connected:   true,
	}
	rt.Players = append(rt.Players, player)
	rt.record(EventPlayerJoined, playerJoinedPayload{Source: SourceServer, Player: player})

	return []Notification{{
		Type: "player_joined",
		Payload: map[string]interface{}{
			"user_id":      player.UserID,
			"display_name": player.DisplayName,
			"seat":         player.Seat,
		},
	}}, nil
}

// nextSeat returns the smallest seat number not held by a current player, so
// seats stay unique after leave/join churn and never outgrow the table.
func (rt *Runtime) nextSeat() int {
	seat := 1
	for {
		taken := false
		for _, p := range rt.Players {
			if p.Seat == seat {
				taken = true
				break
			}
		}
		if !taken {
			return seat
		}
		seat++
	}
}

func (rt *Runtime) handleLeave(userID string) ([]Notification, error) {
	for i, p := range rt.Players {
		if p.UserID == userID {
			rt.Players = append(rt.Players[:i], rt.Players[i+1:]...)
			break
		}
	}
	delete(rt.Ready, userID)
	rt.record(EventPlayerLeft, playerLeftPayload{Source: SourceServer, UserID: userID})

	notes := []Notification{{
		Type:    "player_left",
		Payload: map[string]interface{}{"user_id": userID},
	}}

	// An abandoned match is cancelled rather than left to linger
	if len(rt.Players) == 0 {
		notes = append(notes, rt.setStatus(StatusCancelled)...)
		return notes, nil
	}

	// The remaining players must never be stuck waiting on someone who is
	// gone: re-check whatever the departed player was holding up.
	switch rt.machine.Stage() {
	case StageLobby:
		if len(rt.Players) >= MinPlayersToStart && rt.allReady() {
			notes = append(notes, rt.setStatus(StatusRunning)...)
			advance, err := rt.advanceStage()
			if err != nil {
				return notes, err
			}
			notes = append(notes, advance...)
		}
	case StageArcade:
		if rt.allScoresImported() {
			advance, err := rt.advanceStage()
			if err != nil {
				return notes, err
			}
			notes = append(notes, advance...)
		}
	case StageBlackjack:
		progress, err := rt.forfeitRoundSeat(userID)
		if err != nil {
			return notes, err
		}
		notes = append(notes, progress...)
	}
	return notes, nil
}

// forfeitRoundSeat drops a departed player from the current round and moves
// the round along if it was waiting on them.
func (rt *Runtime) forfeitRoundSeat(userID string) ([]Notification, error) {
	if rt.Round == nil {
		return nil, nil
	}
	if rt.Round.RemovePlayer(userID) {
		rt.record(EventRoundState, roundStatePayload{Source: SourceServer, Round: rt.Round})
	}

	switch rt.Round.Status {
	case RoundBetting:
		return rt.dealIfReady()
	case RoundDealerAction:
		return rt.finishRound()
	}
	return nil, nil
}

func (rt *Runtime) handleReady(userID string) ([]Notification, error) {
	if rt.Ready[userID] {
		return nil, nil
	}
	rt.Ready[userID] = true
	rt.record(EventPlayerReady, playerReadyPayload{Source: SourceServer, UserID: userID})

	notes := []Notification{{
		Type:    "player_ready",
		Payload: map[string]interface{}{"user_id": userID},
	}}

	if len(rt.Players) >= MinPlayersToStart && rt.allReady() {
		notes = append(notes, rt.setStatus(StatusRunning)...)
		advance, err := rt.advanceStage()
		if err != nil {
			return notes, err
		}
		notes = append(notes, advance...)
	}
	return notes, nil
}

func (rt *Runtime) allReady() bool {
	for _, p := range rt.Players {
		if !rt.Ready[p.UserID] {
			return false
		}
	}
	return len(rt.Players) > 0
}

func (rt *Runtime) handleArcadeScore(userID string, data json.RawMessage) ([]Notification, error) {
	var d ArcadeScoreData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, ErrMalformedEvent
	}

	var notes []Notification
	if d.ExternalMatchID != "" && rt.ExternalRef == "" {
		rt.ExternalRef = d.ExternalMatchID
		rt.record(EventExternalRefSet, externalRefSetPayload{Source: SourceServer, Ref: d.ExternalMatchID})
		notes = append(notes, Notification{
			Type:    "external_ref_set",
			Payload: map[string]interface{}{"ref": d.ExternalMatchID},
		})
	}

	// The final arcade score becomes the player's chip stack, expressed as a
	// ledger delta so the sum invariant survives repeated imports.
	ledgerNotes, ok := rt.setStack(userID, d.Score, StageArcade, "arcade score import")
	if !ok {
		return notes, ErrNotParticipant
	}
	notes = append(notes, ledgerNotes...)

	if rt.allScoresImported() {
		advance, err := rt.advanceStage()
		if err != nil {
			return notes, err
		}
		notes = append(notes, advance...)
	}
	return notes, nil
}

// allScoresImported reports whether every seated player has an arcade-stage
// ledger entry. Derived from the ledger so it survives replay.
func (rt *Runtime) allScoresImported() bool {
	for _, p := range rt.Players {
		found := false
		for _, e := range rt.Ledger {
			if e.UserID == p.UserID && e.Stage == StageArcade {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(rt.Players) > 0
}

func (rt *Runtime) handlePlaceBet(userID string, data json.RawMessage) ([]Notification, error) {
	var d PlaceBetData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, ErrMalformedEvent
	}
	if rt.Round == nil {
		return nil, ErrWrongRoundStatus
	}

	player := rt.player(userID)
	if err := rt.Round.PlaceBet(userID, player.Stack, d.Spots, rt.rules); err != nil {
		return nil, err
	}
	rt.record(EventRoundState, roundStatePayload{Source: SourceServer, Round: rt.Round})

	notes := []Notification{{
		Type: "bet_placed",
		Payload: map[string]interface{}{
			"user_id": userID,
			"spots":   len(d.Spots),
		},
	}}

	deal, err := rt.dealIfReady()
	if err != nil {
		return notes, err
	}
	return append(notes, deal...), nil
}

// dealIfReady deals the round once every seated player has wagered. When
// everyone was dealt a natural (or sat out) the round goes straight to the
// house and settles.
func (rt *Runtime) dealIfReady() ([]Notification, error) {
	if !rt.Round.AllWagered(rt.playerIDs()) {
		return nil, nil
	}
	rt.Round.Deal()
	rt.record(EventRoundState, roundStatePayload{Source: SourceServer, Round: rt.Round})
	notes := []Notification{{Type: "round_dealt", Payload: rt.roundView()}}

	if rt.Round.Status == RoundDealerAction {
		finish, err := rt.finishRound()
		if err != nil {
			return notes, err
		}
		notes = append(notes, finish...)
	}
	return notes, nil
}

func (rt *Runtime) handlePlayerAction(userID string, data json.RawMessage) ([]Notification, error) {
	var d PlayerActionData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, ErrMalformedEvent
	}
	if rt.Round == nil {
		return nil, ErrWrongRoundStatus
	}

	player := rt.player(userID)
	if err := rt.Round.Apply(userID, d.Action, d.Hand, player.Stack); err != nil {
		return nil, err
	}
	rt.record(EventRoundState, roundStatePayload{Source: SourceServer, Round: rt.Round})

	notes := []Notification{{
		Type: "player_acted",
		Payload: map[string]interface{}{
			"user_id": userID,
			"action":  d.Action,
			"hand":    d.Hand,
			"round":   rt.roundView(),
		},
	}}

	if rt.Round.Status == RoundDealerAction {
		finish, err := rt.finishRound()
		if err != nil {
			return notes, err
		}
		notes = append(notes, finish...)
	}
	return notes, nil
}

// finishRound plays the dealer, settles every hand, applies one net ledger
// entry per player and either opens the next round or completes the stage.
func (rt *Runtime) finishRound() ([]Notification, error) {
	rt.Round.PlayDealer()
	deltas := rt.Round.Settle()

	var notes []Notification
	// Iterate seated order so replayed ledgers come out identical
	for _, p := range rt.Players {
		delta, ok := deltas[p.UserID]
		if !ok {
			continue
		}
		entry := LedgerEntry{
			MatchID: rt.Match.ID,
			UserID:  p.UserID,
			Stage:   StageBlackjack,
			Delta:   delta,
			Reason:  fmt.Sprintf("round %d settlement", rt.Round.Number),
			At:      time.Now(),
		}
		ledgerNotes, applied := rt.applyLedger(entry)
		if !applied {
			continue
		}
		rt.record(EventLedgerApplied, ledgerAppliedPayload{Source: SourceServer, Entry: entry})
		notes = append(notes, ledgerNotes...)
	}

	rt.record(EventRoundState, roundStatePayload{Source: SourceServer, Round: rt.Round})
	notes = append(notes, Notification{Type: "round_result", Payload: rt.roundView()})

	if rt.Round.Number < rt.maxRounds {
		notes = append(notes, rt.startRound(rt.Round.Number+1, rt.Round.Shoe))
		return notes, nil
	}

	// Round budget exhausted: the stage ends and the match completes
	rt.Round = nil
	rt.record(EventRoundState, roundStatePayload{Source: SourceServer, Round: nil})
	advance, err := rt.advanceStage()
	if err != nil {
		return notes, err
	}
	notes = append(notes, advance...)
	notes = append(notes, rt.setStatus(StatusCompleted)...)
	return notes, nil
}

func (rt *Runtime) startRound(number int, shoe *Shoe) Notification {
	rt.Round = NewRound(number, shoe)
	rt.record(EventRoundState, roundStatePayload{Source: SourceServer, Round: rt.Round})
	return Notification{
		Type:    "round_started",
		Payload: map[string]interface{}{"number": number},
	}
}

// advanceStage completes the current stage and starts its successor,
// recording both lifecycle events. Entering the blackjack stage opens round
// one; entering results is terminal for gameplay.
func (rt *Runtime) advanceStage() ([]Notification, error) {
	current := rt.machine.Stage()
	if err := rt.machine.CompleteStage(current); err != nil {
		return nil, err
	}
	next, ok := rt.machine.NextStage()
	if !ok {
		return nil, ErrInvalidTransition
	}

	rt.record(EventStageCompleted, stageCompletedPayload{Source: SourceServer, Stage: current})
	if err := rt.machine.StartStage(next); err != nil {
		return nil, err
	}
	rt.record(EventStageStarted, stageStartedPayload{Source: SourceServer, Stage: next})

	notes := []Notification{
		{Type: "stage_completed", Payload: map[string]interface{}{"stage": current}},
		{Type: "stage_started", Payload: map[string]interface{}{"stage": next}},
	}

	if next == StageBlackjack {
		notes = append(notes, rt.startRound(1, nil))
	}

	// Stage boundaries are natural snapshot points
	rt.persistLocked(true)
	return notes, nil
}

func (rt *Runtime) setStatus(status Status) []Notification {
	rt.machine.SetStatus(status)
	rt.Match.Status = status
	rt.record(EventStatusChanged, statusChangedPayload{Source: SourceServer, Status: status})
	return []Notification{{
		Type:    "status_changed",
		Payload: map[string]interface{}{"status": status},
	}}
}

func (rt *Runtime) playerIDs() []string {
	ids := make([]string, 0, len(rt.Players))
	for _, p := range rt.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

// record assigns the next seq to a log entry and appends it asynchronously.
// Append failures are logged and swallowed: the in-memory runtime stays
// authoritative and a later snapshot captures the state anyway.
func (rt *Runtime) record(eventType string, payload interface{}) {
	rt.Seq++
	seq := rt.Seq

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[STORE] marshal %s seq=%d for match %s failed: %v", eventType, seq, rt.Match.ID, err)
		return
	}
	if rt.gateway == nil {
		return
	}
	matchID := rt.Match.ID
	go func() {
		if err := rt.gateway.AppendEvent(context.Background(), matchID, seq, eventType, data); err != nil {
			log.Printf("[STORE] append %s seq=%d for match %s failed: %v", eventType, seq, matchID, err)
		}
	}()
}

// persistLocked refreshes the cache copy and, when due (or forced), saves a
// durable snapshot. Both are fire-and-forget relative to in-memory
// correctness.
func (rt *Runtime) persistLocked(force bool) {
	if rt.gateway == nil {
		return
	}

	state := rt.snapshotLocked()
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("[STORE] marshal snapshot for match %s failed: %v", rt.Match.ID, err)
		return
	}

	matchID := rt.Match.ID
	ttl := rt.cacheTTL
	go func() {
		if err := rt.gateway.CacheSet(context.Background(), matchID, data, ttl); err != nil {
			log.Printf("[STORE] cache set for match %s failed: %v", matchID, err)
		}
	}()

	if force || rt.Seq-rt.lastSnapshotSeq >= rt.snapshotEvery {
		rt.lastSnapshotSeq = rt.Seq
		seq := state.Seq
		go func() {
			if err := rt.gateway.SaveSnapshot(context.Background(), matchID, seq, data); err != nil {
				log.Printf("[STORE] snapshot seq=%d for match %s failed: %v", seq, matchID, err)
			}
		}()
	}
}

// snapshotLocked serializes the runtime minus transient fields
func (rt *Runtime) snapshotLocked() *SnapshotState {
	ready := make([]string, 0, len(rt.Ready))
	for id := range rt.Ready {
		ready = append(ready, id)
	}
	sort.Strings(ready)

	return &SnapshotState{
		Match:       rt.Match,
		Players:     rt.Players,
		Stage:       rt.machine.Stage(),
		Status:      rt.machine.Status(),
		Ready:       ready,
		Ledger:      rt.Ledger,
		Round:       rt.Round,
		ExternalRef: rt.ExternalRef,
		Seq:         rt.Seq,
	}
}

// Snapshot returns the current serializable state under the runtime lock
func (rt *Runtime) Snapshot() *SnapshotState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.snapshotLocked()
}

// StateView returns the shareable view of this match for one user
func (rt *Runtime) StateView(userID string) map[string]interface{} {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stateView(userID)
}

func (rt *Runtime) stateView(userID string) map[string]interface{} {
	ready := make([]string, 0, len(rt.Ready))
	for id := range rt.Ready {
		ready = append(ready, id)
	}
	sort.Strings(ready)

	view := map[string]interface{}{
		"match":   rt.Match,
		"stage":   rt.machine.Stage(),
		"status":  rt.machine.Status(),
		"players": rt.Players,
		"ready":   ready,
		"seq":     rt.Seq,
	}
	if rt.ExternalRef != "" {
		view["external_ref"] = rt.ExternalRef
	}
	if rt.Round != nil {
		view["round"] = rt.roundView()
	}
	if userID != "" {
		view["my_id"] = userID
	}
	return view
}

// roundView is the round as clients see it: all cards are public in this
// game, only the shoe contents stay hidden.
func (rt *Runtime) roundView() map[string]interface{} {
	r := rt.Round
	if r == nil {
		return nil
	}
	seats := make(map[string]interface{}, len(r.Seats))
	for userID, seat := range r.Seats {
		hands := make([]map[string]interface{}, 0, len(seat.Hands))
		for _, h := range seat.Hands {
			hand := map[string]interface{}{
				"cards":  h.Cards,
				"total":  HandTotal(h.Cards),
				"wager":  h.Wager,
				"status": h.Status,
			}
			if h.SideBet != nil {
				hand["side_bet"] = h.SideBet
			}
			hands = append(hands, hand)
		}
		seats[userID] = map[string]interface{}{
			"hands":     hands,
			"committed": seat.Committed,
		}
	}
	return map[string]interface{}{
		"number":         r.Number,
		"status":         r.Status,
		"dealer":         r.Dealer,
		"dealer_total":   HandTotal(r.Dealer),
		"seats":          seats,
		"shoe_remaining": r.Shoe.Remaining(),
	}
}

// applyServerEvent is the deterministic per-type transition used by replay.
// Client-originated entries never reach it.
func (rt *Runtime) applyServerEvent(eventType string, payload []byte) error {
	switch eventType {
	case EventMatchCreated:
		var p matchCreatedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		rt.Match = p.Match
		// Replayed players come back disconnected until their socket returns
		p.Creator.Connected = false
		rt.Players = []*Player{p.Creator}
		rt.machine = NewStageMachine(StageLobby, p.Match.Status)

	case EventPlayerJoined:
		var p playerJoinedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		p.Player.Connected = false
		rt.Players = append(rt.Players, p.Player)

	case EventPlayerLeft:
		var p playerLeftPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		for i, pl := range rt.Players {
			if pl.UserID == p.UserID {
				rt.Players = append(rt.Players[:i], rt.Players[i+1:]...)
				break
			}
		}
		delete(rt.Ready, p.UserID)

	case EventPlayerReady:
		var p playerReadyPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		rt.Ready[p.UserID] = true

	case EventStatusChanged:
		var p statusChangedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		rt.machine.SetStatus(p.Status)
		rt.Match.Status = p.Status

	case EventStageStarted:
		var p stageStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		rt.machine.setStage(p.Stage)

	case EventStageCompleted:
		// informational; the paired stage_started carries the transition

	case EventLedgerApplied:
		var p ledgerAppliedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		rt.applyLedger(p.Entry)

	case EventStackSet:
		var p stackSetPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		if pl := rt.player(p.UserID); pl != nil {
			pl.Stack = p.Stack
		}

	case EventExternalRefSet:
		var p externalRefSetPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		rt.ExternalRef = p.Ref

	case EventRoundState:
		var p roundStatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		rt.Round = p.Round

	default:
		return fmt.Errorf("unknown server event type %q", eventType)
	}
	return nil
}
