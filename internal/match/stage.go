package match

// Stage is one mini-game phase within a match. Stages are strictly ordered;
// a match is always in exactly one of them.
type Stage string

const (
	StageLobby     Stage = "LOBBY"
	StageArcade    Stage = "ARCADE" // external score import
	StageBlackjack Stage = "BLACKJACK"
	StageResults   Stage = "RESULTS"
)

// stageOrder is the fixed total order of stages. Transitions only ever move
// to the immediate successor.
var stageOrder = []Stage{StageLobby, StageArcade, StageBlackjack, StageResults}

// stageEvents lists which client event types are legal while a stage is current.
var stageEvents = map[Stage]map[string]bool{
	StageLobby: {
		EventJoinMatch: true, EventLeaveMatch: true, EventReady: true, EventGetState: true,
	},
	StageArcade: {
		EventArcadeScore: true, EventLeaveMatch: true, EventGetState: true,
	},
	StageBlackjack: {
		EventPlaceBet: true, EventPlayerAction: true, EventLeaveMatch: true, EventGetState: true,
	},
	StageResults: {
		EventLeaveMatch: true, EventGetState: true,
	},
}

// statusEvents lists which client event types are legal while a status holds.
var statusEvents = map[Status]map[string]bool{
	StatusCreated: {
		EventJoinMatch: true, EventLeaveMatch: true, EventReady: true, EventGetState: true,
	},
	StatusRunning: {
		EventArcadeScore: true, EventPlaceBet: true, EventPlayerAction: true,
		EventLeaveMatch: true, EventGetState: true,
	},
	StatusCompleted: {EventGetState: true},
	StatusCancelled: {EventGetState: true},
}

// StageMachine guards stage/status progression for one match. Its decisions
// are pure; emitting the resulting lifecycle events is the caller's job.
type StageMachine struct {
	stage  Stage
	status Status
}

// NewStageMachine builds a machine over an existing stage/status pair,
// either a fresh lobby or state rebuilt by recovery.
func NewStageMachine(stage Stage, status Status) *StageMachine {
	return &StageMachine{stage: stage, status: status}
}

func (m *StageMachine) Stage() Stage   { return m.stage }
func (m *StageMachine) Status() Status { return m.status }

// Admit decides whether an event type may be processed right now. The type
// must be allowed by the current stage AND the current status (intersection,
// not union), so the same type can be legal in several stages and statuses
// independently.
func (m *StageMachine) Admit(eventType string) error {
	if !stageEvents[m.stage][eventType] {
		return ErrEventNotAllowed
	}
	if !statusEvents[m.status][eventType] {
		return ErrEventNotAllowed
	}
	return nil
}

// StartStage advances to next, which must be exactly one position after the
// current stage in the fixed order. Any other target fails and leaves the
// machine unchanged.
func (m *StageMachine) StartStage(next Stage) error {
	for i, s := range stageOrder {
		if s != m.stage {
			continue
		}
		if i+1 < len(stageOrder) && stageOrder[i+1] == next {
			m.stage = next
			return nil
		}
		return ErrInvalidTransition
	}
	return ErrInvalidTransition
}

// CompleteStage validates that stage is the one currently running.
func (m *StageMachine) CompleteStage(stage Stage) error {
	if stage != m.stage {
		return ErrStageMismatch
	}
	return nil
}

// SetStatus moves the match status. Callers decide legality; the terminal
// statuses are enforced by the admission lists.
func (m *StageMachine) SetStatus(status Status) {
	m.status = status
}

// setStage restores the stage directly during event replay, where the
// recorded transition has already been validated once.
func (m *StageMachine) setStage(stage Stage) {
	m.stage = stage
}

// NextStage returns the successor of the current stage, if any.
func (m *StageMachine) NextStage() (Stage, bool) {
	for i, s := range stageOrder {
		if s == m.stage && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}
