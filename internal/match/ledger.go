package match

import "time"

// Ledger bookkeeping. These run under the runtime lock; callers record the
// corresponding server events.

// applyLedger credits entry.Delta to the player's stack and appends the
// entry to the immutable ledger. An unknown user is a no-op: the player left
// or never existed. It returns the notifications to broadcast and whether
// the entry was applied.
func (rt *Runtime) applyLedger(entry LedgerEntry) ([]Notification, bool) {
	player := rt.player(entry.UserID)
	if player == nil {
		return nil, false
	}

	player.Stack += entry.Delta
	rt.Ledger = append(rt.Ledger, entry)

	return []Notification{
		{
			Type: "ledger_entry",
			Payload: map[string]interface{}{
				"user_id": entry.UserID,
				"stage":   entry.Stage,
				"delta":   entry.Delta,
				"reason":  entry.Reason,
			},
		},
		{
			Type: "stack_update",
			Payload: map[string]interface{}{
				"user_id": entry.UserID,
				"stack":   player.Stack,
			},
		},
	}, true
}

// setStack expresses "set this player's stack to target" as a ledger delta,
// so the sum invariant holds even for absolute imports. Re-running with the
// same target is a zero-delta no-op entry.
func (rt *Runtime) setStack(userID string, target int64, stage Stage, reason string) ([]Notification, bool) {
	player := rt.player(userID)
	if player == nil {
		return nil, false
	}

	entry := LedgerEntry{
		MatchID: rt.Match.ID,
		UserID:  userID,
		Stage:   stage,
		Delta:   target - player.Stack,
		Reason:  reason,
		At:      time.Now(),
	}

	notes, applied := rt.applyLedger(entry)
	if !applied {
		return nil, false
	}
	rt.record(EventLedgerApplied, ledgerAppliedPayload{Source: SourceServer, Entry: entry})
	rt.record(EventStackSet, stackSetPayload{Source: SourceServer, UserID: userID, Stack: player.Stack})
	return notes, true
}
