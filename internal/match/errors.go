package match

import "errors"

// Admission and lookup errors. None of these are fatal to the process;
// every rejection is reported back to the originating connection only.
var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrNotParticipant  = errors.New("user is not a match participant")
	ErrEventNotAllowed = errors.New("event not allowed in current stage or status")
	ErrMalformedEvent  = errors.New("malformed event envelope")
	ErrMatchFull       = errors.New("match is full")
	ErrAlreadyJoined   = errors.New("user already joined this match")
)

// Transition errors
var (
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrStageMismatch     = errors.New("stage completion mismatch")
)

// Blackjack rule violations
var (
	ErrWagerOutOfBounds  = errors.New("wager out of bounds")
	ErrTooManySpots      = errors.New("too many spots")
	ErrInsufficientStack = errors.New("insufficient stack")
	ErrAlreadyWagered    = errors.New("player already wagered this round")
	ErrWrongRoundStatus  = errors.New("action not valid for round status")
	ErrHandNotActive     = errors.New("hand is not active")
	ErrActionNotAllowed  = errors.New("action not allowed for this hand")
	ErrUnknownAction     = errors.New("unknown player action")
	ErrInvalidSidePick   = errors.New("side wager pick must be high or low")
)
