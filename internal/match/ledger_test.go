package match

import (
	"testing"
	"time"

	"github.com/playgauntlet/backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxPlayers:        6,
		CacheTTLSeconds:   60,
		SnapshotEvery:     20,
		EvictAfterMinutes: 30,
		EvictPollSeconds:  60,
		MinBet:            10,
		MaxBet:            500,
		MaxSpots:          3,
		MaxRounds:         5,
	}
}

func newLedgerRuntime(userIDs ...string) *Runtime {
	m := &Match{ID: "m1", Mode: "game_night", Status: StatusRunning, CreatedAt: time.Now()}
	rt := newRuntime(m, nil, testConfig())
	for i, id := range userIDs {
		rt.Players = append(rt.Players, &Player{MatchID: m.ID, UserID: id, Seat: i + 1})
	}
	return rt
}

func ledgerSum(rt *Runtime, userID string) int64 {
	var sum int64
	for _, e := range rt.Ledger {
		if e.UserID == userID {
			sum += e.Delta
		}
	}
	return sum
}

func TestApplyLedgerKeepsSumInvariant(t *testing.T) {
	rt := newLedgerRuntime("alice", "bob")

	deltas := []int64{100, -30, 45, -115, 20}
	for _, d := range deltas {
		_, applied := rt.applyLedger(LedgerEntry{MatchID: "m1", UserID: "alice", Stage: StageBlackjack, Delta: d, At: time.Now()})
		if !applied {
			t.Fatalf("delta %d not applied", d)
		}
	}

	alice := rt.player("alice")
	if alice.Stack != 20 {
		t.Errorf("stack = %d, want 20", alice.Stack)
	}
	if got := ledgerSum(rt, "alice"); got != alice.Stack {
		t.Errorf("ledger sum %d != stack %d", got, alice.Stack)
	}
	if rt.player("bob").Stack != 0 {
		t.Errorf("bob's stack should be untouched")
	}
}

func TestApplyLedgerUnknownUserIsNoOp(t *testing.T) {
	rt := newLedgerRuntime("alice")
	notes, applied := rt.applyLedger(LedgerEntry{MatchID: "m1", UserID: "ghost", Delta: 50, At: time.Now()})
	if applied || notes != nil {
		t.Errorf("entry for an unseated user should not apply")
	}
	if len(rt.Ledger) != 0 {
		t.Errorf("ledger grew for an unseated user")
	}
}

func TestApplyLedgerNotifications(t *testing.T) {
	rt := newLedgerRuntime("alice")
	notes, _ := rt.applyLedger(LedgerEntry{MatchID: "m1", UserID: "alice", Stage: StageArcade, Delta: 80, Reason: "arcade score import", At: time.Now()})
	if len(notes) != 2 {
		t.Fatalf("got %d notifications, want 2", len(notes))
	}
	if notes[0].Type != "ledger_entry" || notes[1].Type != "stack_update" {
		t.Errorf("notification types = %s, %s", notes[0].Type, notes[1].Type)
	}
	if notes[1].Payload["stack"].(int64) != 80 {
		t.Errorf("stack_update payload = %v, want 80", notes[1].Payload["stack"])
	}
}

func TestSetStackIsExpressedAsDelta(t *testing.T) {
	rt := newLedgerRuntime("alice")
	rt.applyLedger(LedgerEntry{MatchID: "m1", UserID: "alice", Delta: 30, At: time.Now()})

	if _, ok := rt.setStack("alice", 100, StageArcade, "arcade score import"); !ok {
		t.Fatalf("setStack failed for a seated player")
	}
	if got := rt.player("alice").Stack; got != 100 {
		t.Errorf("stack = %d, want 100", got)
	}
	last := rt.Ledger[len(rt.Ledger)-1]
	if last.Delta != 70 {
		t.Errorf("absolute import should land as a delta of 70, got %d", last.Delta)
	}
	if got := ledgerSum(rt, "alice"); got != 100 {
		t.Errorf("ledger sum %d != stack 100", got)
	}
}

func TestSetStackRepeatIsZeroDelta(t *testing.T) {
	rt := newLedgerRuntime("alice")
	rt.setStack("alice", 100, StageArcade, "arcade score import")
	rt.setStack("alice", 100, StageArcade, "arcade score import")

	if got := rt.player("alice").Stack; got != 100 {
		t.Errorf("stack = %d, want 100", got)
	}
	last := rt.Ledger[len(rt.Ledger)-1]
	if last.Delta != 0 {
		t.Errorf("repeated import should be a zero-delta entry, got %d", last.Delta)
	}
}

func TestSetStackUnknownUser(t *testing.T) {
	rt := newLedgerRuntime("alice")
	if _, ok := rt.setStack("ghost", 100, StageArcade, "arcade score import"); ok {
		t.Errorf("setStack for an unseated user should fail")
	}
}
