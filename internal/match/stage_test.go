package match

import (
	"errors"
	"testing"
)

func TestAdmitRequiresStageAndStatus(t *testing.T) {
	// ready is legal in the LOBBY stage and the CREATED status
	m := NewStageMachine(StageLobby, StatusCreated)
	if err := m.Admit(EventReady); err != nil {
		t.Errorf("ready should be admitted in a created lobby: %v", err)
	}

	// ready passes the stage check but fails the status check once running
	m = NewStageMachine(StageLobby, StatusRunning)
	if !errors.Is(m.Admit(EventReady), ErrEventNotAllowed) {
		t.Errorf("ready should be rejected while RUNNING")
	}

	// place_bet passes the status check but fails the stage check in ARCADE
	m = NewStageMachine(StageArcade, StatusRunning)
	if !errors.Is(m.Admit(EventPlaceBet), ErrEventNotAllowed) {
		t.Errorf("place_bet should be rejected during ARCADE")
	}

	// both checks pass during blackjack
	m = NewStageMachine(StageBlackjack, StatusRunning)
	if err := m.Admit(EventPlaceBet); err != nil {
		t.Errorf("place_bet should be admitted during BLACKJACK: %v", err)
	}
}

func TestTerminalStatusOnlyAllowsReads(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		m := NewStageMachine(StageResults, status)
		if err := m.Admit(EventGetState); err != nil {
			t.Errorf("get_state should be admitted in %s: %v", status, err)
		}
		for _, eventType := range []string{EventJoinMatch, EventReady, EventPlaceBet, EventPlayerAction, EventLeaveMatch} {
			if !errors.Is(m.Admit(eventType), ErrEventNotAllowed) {
				t.Errorf("%s should be rejected in %s", eventType, status)
			}
		}
	}
}

func TestStartStageOnlyAdvancesToSuccessor(t *testing.T) {
	m := NewStageMachine(StageLobby, StatusRunning)

	// Skipping a stage fails and leaves the machine unchanged
	if !errors.Is(m.StartStage(StageBlackjack), ErrInvalidTransition) {
		t.Fatalf("lobby -> blackjack should be rejected")
	}
	if m.Stage() != StageLobby {
		t.Fatalf("failed transition mutated the machine: stage=%s", m.Stage())
	}

	// Moving backwards fails too
	if !errors.Is(m.StartStage(StageLobby), ErrInvalidTransition) {
		t.Fatalf("lobby -> lobby should be rejected")
	}

	// The full legal walk
	for _, next := range []Stage{StageArcade, StageBlackjack, StageResults} {
		if err := m.StartStage(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if m.Stage() != next {
			t.Fatalf("stage = %s, want %s", m.Stage(), next)
		}
	}

	// RESULTS has no successor
	if !errors.Is(m.StartStage(StageResults), ErrInvalidTransition) {
		t.Errorf("advancing past RESULTS should be rejected")
	}
}

func TestCompleteStageChecksCurrent(t *testing.T) {
	m := NewStageMachine(StageArcade, StatusRunning)
	if err := m.CompleteStage(StageArcade); err != nil {
		t.Errorf("completing the current stage: %v", err)
	}
	if !errors.Is(m.CompleteStage(StageBlackjack), ErrStageMismatch) {
		t.Errorf("completing a stage that is not current should be rejected")
	}
}

func TestNextStage(t *testing.T) {
	m := NewStageMachine(StageBlackjack, StatusRunning)
	next, ok := m.NextStage()
	if !ok || next != StageResults {
		t.Errorf("NextStage() = %s, %v; want RESULTS, true", next, ok)
	}

	m = NewStageMachine(StageResults, StatusRunning)
	if _, ok := m.NextStage(); ok {
		t.Errorf("RESULTS should have no successor")
	}
}
