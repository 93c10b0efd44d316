package match

// RoundStatus is the per-round lifecycle
type RoundStatus string

const (
	RoundBetting      RoundStatus = "BETTING"
	RoundPlayerAction RoundStatus = "PLAYER_ACTION"
	RoundDealerAction RoundStatus = "DEALER_ACTION"
	RoundResolved     RoundStatus = "RESOLVED"
)

// HandStatus is the per-hand lifecycle within a round
type HandStatus string

const (
	HandActive  HandStatus = "ACTIVE"
	HandStood   HandStatus = "STOOD"
	HandBust    HandStatus = "BUST"
	HandNatural HandStatus = "NATURAL"
)

// Player actions
const (
	ActionHit    = "hit"
	ActionStand  = "stand"
	ActionDouble = "double"
	ActionSplit  = "split"
)

// Side wager picks and outcomes. The side wager is judged against the
// initial two-card total only, independent of the final hand outcome.
const (
	SidePickHigh = "high"
	SidePickLow  = "low"

	SideOutcomeWin  = "WIN"
	SideOutcomeLose = "LOSE"
	SideOutcomePush = "PUSH"
)

// SideBetThreshold is the pivot for the high/low side wager: initial totals
// above it pay HIGH, below it pay LOW, exactly equal pushes.
const SideBetThreshold = 13

// DealerStandTotal is the fixed dealer threshold: the house draws while its
// total is below this, irrespective of softness.
const DealerStandTotal = 17

// SideBet is the optional single binary side wager on one spot
type SideBet struct {
	Pick    string `json:"pick"`
	Wager   int64  `json:"wager"`
	Outcome string `json:"outcome,omitempty"` // set when the initial two cards land
}

// Hand is one spot's cards and wager within a round
type Hand struct {
	Cards        []Card     `json:"cards"`
	Wager        int64      `json:"wager"`
	Status       HandStatus `json:"status"`
	Natural      bool       `json:"natural"`
	FromSplit    bool       `json:"from_split"`
	SplitAces    bool       `json:"split_aces"`
	Doubled      bool       `json:"doubled"`
	SideBet      *SideBet   `json:"side_bet,omitempty"`
	InitialTotal int        `json:"initial_total"` // captured for the side wager
}

// CanDouble reports whether doubling is legal right now: first action on an
// unsplit hand. The stack check happens at apply time.
func (h *Hand) CanDouble() bool {
	return h.Status == HandActive && len(h.Cards) == 2 && !h.FromSplit && !h.Doubled
}

// CanSplit reports whether splitting is legal right now: exactly two cards
// of equal rank on a hand that is not itself a split product.
func (h *Hand) CanSplit() bool {
	return h.Status == HandActive && len(h.Cards) == 2 && !h.FromSplit &&
		h.Cards[0].Rank == h.Cards[1].Rank
}

// SeatState is one player's per-round state
type SeatState struct {
	Hands      []*Hand `json:"hands"`
	HasWagered bool    `json:"has_wagered"`
	Committed  int64   `json:"committed"`
}

// RoundState is the explicit finite-state object for one blackjack round.
// Transitions are plain method calls so the whole round is unit-testable
// without a live connection.
type RoundState struct {
	Number int                   `json:"number"`
	Status RoundStatus           `json:"status"`
	Shoe   *Shoe                 `json:"shoe"`
	Dealer []Card                `json:"dealer"`
	Seats  map[string]*SeatState `json:"seats"`
	Order  []string              `json:"order"` // wager order; fixes the dealing sequence
}

// RoundRules carries the configured wager bounds
type RoundRules struct {
	MinBet   int64
	MaxBet   int64
	MaxSpots int
}

// NewRound opens round number in BETTING, reusing the shoe from the previous
// round so the deck runs down across the stage.
func NewRound(number int, shoe *Shoe) *RoundState {
	if shoe == nil {
		shoe = NewShoe()
	}
	return &RoundState{
		Number: number,
		Status: RoundBetting,
		Shoe:   shoe,
		Seats:  make(map[string]*SeatState),
	}
}

// PlaceBet registers a player's wagers for the round. An empty spot list is
// a legal sit-out. Each wager must be within bounds, the spot count within
// the cap, and the total (main plus side wagers) must fit the player's stack.
func (r *RoundState) PlaceBet(userID string, stack int64, spots []SpotBet, rules RoundRules) error {
	if r.Status != RoundBetting {
		return ErrWrongRoundStatus
	}
	if seat, ok := r.Seats[userID]; ok && seat.HasWagered {
		return ErrAlreadyWagered
	}
	if len(spots) > rules.MaxSpots {
		return ErrTooManySpots
	}

	var sum int64
	for _, spot := range spots {
		if spot.Wager < rules.MinBet || spot.Wager > rules.MaxBet {
			return ErrWagerOutOfBounds
		}
		sum += spot.Wager
		if spot.SideWager > 0 {
			if spot.SidePick != SidePickHigh && spot.SidePick != SidePickLow {
				return ErrInvalidSidePick
			}
			sum += spot.SideWager
		}
	}
	if sum > stack {
		return ErrInsufficientStack
	}

	seat := &SeatState{HasWagered: true, Committed: sum}
	for _, spot := range spots {
		hand := &Hand{Wager: spot.Wager, Status: HandActive}
		if spot.SideWager > 0 {
			hand.SideBet = &SideBet{Pick: spot.SidePick, Wager: spot.SideWager}
		}
		seat.Hands = append(seat.Hands, hand)
	}
	r.Seats[userID] = seat
	r.Order = append(r.Order, userID)
	return nil
}

// RemovePlayer forfeits a departed player's seat: their hands leave play and
// any committed wagers are surrendered. Returns false when the player had no
// seat or the round is already resolved. When the last active hand leaves,
// the round moves to DEALER_ACTION.
func (r *RoundState) RemovePlayer(userID string) bool {
	if r.Status == RoundResolved {
		return false
	}
	if _, ok := r.Seats[userID]; !ok {
		return false
	}
	delete(r.Seats, userID)
	for i, id := range r.Order {
		if id == userID {
			r.Order = append(r.Order[:i], r.Order[i+1:]...)
			break
		}
	}
	if r.Status == RoundPlayerAction && !r.anyActive() {
		r.Status = RoundDealerAction
	}
	return true
}

// AllWagered reports whether every listed user has committed to the round
func (r *RoundState) AllWagered(userIDs []string) bool {
	for _, id := range userIDs {
		seat, ok := r.Seats[id]
		if !ok || !seat.HasWagered {
			return false
		}
	}
	return len(userIDs) > 0
}

// Deal gives every wagered hand and the dealer two cards, captures initial
// totals, settles side wager outcomes against the threshold and closes
// naturals. Hands are dealt in wager order, the dealer last in each pass.
// The round moves to PLAYER_ACTION, or straight to DEALER_ACTION when no
// hand remains active.
func (r *RoundState) Deal() {
	if r.Status != RoundBetting {
		return
	}

	for pass := 0; pass < 2; pass++ {
		for _, id := range r.Order {
			for _, hand := range r.Seats[id].Hands {
				hand.Cards = append(hand.Cards, r.Shoe.Draw())
			}
		}
		r.Dealer = append(r.Dealer, r.Shoe.Draw())
	}

	for _, seat := range r.Seats {
		for _, hand := range seat.Hands {
			hand.InitialTotal = HandTotal(hand.Cards)
			if hand.SideBet != nil {
				hand.SideBet.Outcome = judgeSideBet(hand.SideBet.Pick, hand.InitialTotal)
			}
			if IsNatural(hand.Cards) {
				hand.Natural = true
				hand.Status = HandNatural
			}
		}
	}

	if r.anyActive() {
		r.Status = RoundPlayerAction
	} else {
		r.Status = RoundDealerAction
	}
}

func judgeSideBet(pick string, initialTotal int) string {
	if initialTotal == SideBetThreshold {
		return SideOutcomePush
	}
	high := initialTotal > SideBetThreshold
	if (pick == SidePickHigh) == high {
		return SideOutcomeWin
	}
	return SideOutcomeLose
}

// Apply runs one player action against one of the player's hands. stack is
// the player's current stack, used for the double/split affordability check.
// When no hand remains active the round moves to DEALER_ACTION.
func (r *RoundState) Apply(userID, action string, handIdx int, stack int64) error {
	if r.Status != RoundPlayerAction {
		return ErrWrongRoundStatus
	}
	seat, ok := r.Seats[userID]
	if !ok || handIdx < 0 || handIdx >= len(seat.Hands) {
		return ErrHandNotActive
	}
	hand := seat.Hands[handIdx]
	if hand.Status != HandActive {
		return ErrHandNotActive
	}

	switch action {
	case ActionHit:
		hand.Cards = append(hand.Cards, r.Shoe.Draw())
		if HandTotal(hand.Cards) > 21 {
			hand.Status = HandBust
		}

	case ActionStand:
		hand.Status = HandStood

	case ActionDouble:
		if !hand.CanDouble() {
			return ErrActionNotAllowed
		}
		if seat.Committed+hand.Wager > stack {
			return ErrInsufficientStack
		}
		seat.Committed += hand.Wager
		hand.Wager *= 2
		hand.Doubled = true
		hand.Cards = append(hand.Cards, r.Shoe.Draw())
		if HandTotal(hand.Cards) > 21 {
			hand.Status = HandBust
		} else {
			hand.Status = HandStood
		}

	case ActionSplit:
		if !hand.CanSplit() {
			return ErrActionNotAllowed
		}
		if seat.Committed+hand.Wager > stack {
			return ErrInsufficientStack
		}
		seat.Committed += hand.Wager
		splitAces := hand.Cards[0].Rank == Ace

		second := &Hand{
			Cards:     []Card{hand.Cards[1]},
			Wager:     hand.Wager,
			Status:    HandActive,
			FromSplit: true,
			SplitAces: splitAces,
		}
		hand.Cards = hand.Cards[:1]
		hand.FromSplit = true
		hand.SplitAces = splitAces

		hand.Cards = append(hand.Cards, r.Shoe.Draw())
		second.Cards = append(second.Cards, r.Shoe.Draw())
		seat.Hands = append(seat.Hands, second)

		// Split aces receive one card each and are done
		if splitAces {
			hand.Status = HandStood
			second.Status = HandStood
		}

	default:
		return ErrUnknownAction
	}

	if !r.anyActive() {
		r.Status = RoundDealerAction
	}
	return nil
}

func (r *RoundState) anyActive() bool {
	for _, seat := range r.Seats {
		for _, hand := range seat.Hands {
			if hand.Status == HandActive {
				return true
			}
		}
	}
	return false
}
