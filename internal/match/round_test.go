package match

import (
	"errors"
	"testing"
)

// stackedShoe builds a shoe whose draw order is exactly the given cards.
func stackedShoe(cards ...Card) *Shoe {
	rev := make([]Card, len(cards))
	for i, c := range cards {
		rev[len(cards)-1-i] = c
	}
	return &Shoe{Cards: rev}
}

func spade(rank Rank) Card { return Card{Suit: Spades, Rank: rank} }
func heart(rank Rank) Card { return Card{Suit: Hearts, Rank: rank} }

var testRules = RoundRules{MinBet: 10, MaxBet: 500, MaxSpots: 3}

func TestHandTotalDowngradesAces(t *testing.T) {
	cases := []struct {
		cards []Card
		want  int
	}{
		{[]Card{spade(King), spade(Seven)}, 17},
		{[]Card{spade(Ace), spade(King)}, 21},
		{[]Card{spade(Ace), spade(Ace)}, 12},          // one ace downgraded
		{[]Card{spade(Ace), spade(Nine), spade(Ace)}, 21},
		{[]Card{spade(Ace), spade(King), spade(Five)}, 16}, // soft 21 -> hard 16
		{[]Card{spade(King), spade(Queen), spade(Two)}, 22},
		{[]Card{spade(Ace), spade(Ace), spade(Ace), spade(King), spade(Eight)}, 21},
	}
	for _, c := range cases {
		if got := HandTotal(c.cards); got != c.want {
			t.Errorf("HandTotal(%v) = %d, want %d", c.cards, got, c.want)
		}
	}
}

func TestIsNaturalOnlyTwoCard21(t *testing.T) {
	if !IsNatural([]Card{spade(Ace), heart(Queen)}) {
		t.Errorf("A+Q should be natural")
	}
	if IsNatural([]Card{spade(Seven), spade(Seven), spade(Seven)}) {
		t.Errorf("an assembled 21 is not a natural")
	}
	if IsNatural([]Card{spade(King), spade(Nine)}) {
		t.Errorf("19 is not a natural")
	}
}

func TestShoeReshufflesWhenExhausted(t *testing.T) {
	s := NewShoe()
	if s.Remaining() != 52 {
		t.Fatalf("fresh shoe has %d cards, want 52", s.Remaining())
	}
	for i := 0; i < 52; i++ {
		s.Draw()
	}
	if s.Remaining() != 0 {
		t.Fatalf("shoe should be empty, has %d", s.Remaining())
	}
	s.Draw() // refills, never fails
	if s.Remaining() != 51 {
		t.Errorf("after refill draw: %d remaining, want 51", s.Remaining())
	}
}

func TestPlaceBetValidation(t *testing.T) {
	r := NewRound(1, nil)

	if err := r.PlaceBet("a", 1000, []SpotBet{{Wager: 5}}, testRules); !errors.Is(err, ErrWagerOutOfBounds) {
		t.Errorf("below-minimum wager: got %v", err)
	}
	if err := r.PlaceBet("a", 1000, []SpotBet{{Wager: 600}}, testRules); !errors.Is(err, ErrWagerOutOfBounds) {
		t.Errorf("above-maximum wager: got %v", err)
	}
	spots := []SpotBet{{Wager: 10}, {Wager: 10}, {Wager: 10}, {Wager: 10}}
	if err := r.PlaceBet("a", 1000, spots, testRules); !errors.Is(err, ErrTooManySpots) {
		t.Errorf("spot cap: got %v", err)
	}
	if err := r.PlaceBet("a", 15, []SpotBet{{Wager: 10}, {Wager: 10}}, testRules); !errors.Is(err, ErrInsufficientStack) {
		t.Errorf("stack too small for main wagers: got %v", err)
	}
	// Side wager counts against the stack too
	if err := r.PlaceBet("a", 15, []SpotBet{{Wager: 10, SidePick: SidePickHigh, SideWager: 10}}, testRules); !errors.Is(err, ErrInsufficientStack) {
		t.Errorf("stack too small with side wager: got %v", err)
	}
	if err := r.PlaceBet("a", 100, []SpotBet{{Wager: 10, SidePick: "sideways", SideWager: 5}}, testRules); !errors.Is(err, ErrInvalidSidePick) {
		t.Errorf("bad side pick: got %v", err)
	}

	if err := r.PlaceBet("a", 100, []SpotBet{{Wager: 50}}, testRules); err != nil {
		t.Fatalf("valid bet rejected: %v", err)
	}
	if err := r.PlaceBet("a", 100, []SpotBet{{Wager: 50}}, testRules); !errors.Is(err, ErrAlreadyWagered) {
		t.Errorf("re-bet: got %v", err)
	}
}

func TestEmptySpotsIsASitOut(t *testing.T) {
	r := NewRound(1, nil)
	if err := r.PlaceBet("a", 100, nil, testRules); err != nil {
		t.Fatalf("sit-out rejected: %v", err)
	}
	if !r.AllWagered([]string{"a"}) {
		t.Errorf("sitting out should still count as wagered")
	}
	if len(r.Seats["a"].Hands) != 0 {
		t.Errorf("sit-out should have no hands")
	}
}

func TestAllWageredNeedsEveryone(t *testing.T) {
	r := NewRound(1, nil)
	r.PlaceBet("a", 100, []SpotBet{{Wager: 10}}, testRules)
	if r.AllWagered([]string{"a", "b"}) {
		t.Errorf("b has not wagered yet")
	}
	if r.AllWagered(nil) {
		t.Errorf("an empty player list never counts as all-wagered")
	}
}

func TestDealCapturesInitialTotalAndSideOutcome(t *testing.T) {
	// Draw order: player, dealer, player, dealer
	r := NewRound(1, stackedShoe(spade(King), spade(Nine), spade(Five), spade(Eight)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 10, SidePick: SidePickHigh, SideWager: 5}}, testRules)
	r.Deal()

	hand := r.Seats["a"].Hands[0]
	if hand.InitialTotal != 15 {
		t.Fatalf("initial total = %d, want 15", hand.InitialTotal)
	}
	if hand.SideBet.Outcome != SideOutcomeWin {
		t.Errorf("high pick on 15 should win, got %s", hand.SideBet.Outcome)
	}
	if r.Status != RoundPlayerAction {
		t.Errorf("round status = %s, want PLAYER_ACTION", r.Status)
	}
}

func TestJudgeSideBet(t *testing.T) {
	cases := []struct {
		pick  string
		total int
		want  string
	}{
		{SidePickHigh, 14, SideOutcomeWin},
		{SidePickHigh, 12, SideOutcomeLose},
		{SidePickLow, 12, SideOutcomeWin},
		{SidePickLow, 14, SideOutcomeLose},
		{SidePickHigh, 13, SideOutcomePush},
		{SidePickLow, 13, SideOutcomePush},
	}
	for _, c := range cases {
		if got := judgeSideBet(c.pick, c.total); got != c.want {
			t.Errorf("judgeSideBet(%s, %d) = %s, want %s", c.pick, c.total, got, c.want)
		}
	}
}

func TestNaturalClosesHandOnDeal(t *testing.T) {
	r := NewRound(1, stackedShoe(spade(Ace), spade(Nine), spade(King), spade(Eight)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 10}}, testRules)
	r.Deal()

	hand := r.Seats["a"].Hands[0]
	if !hand.Natural || hand.Status != HandNatural {
		t.Errorf("two-card 21 should close as natural, got status=%s natural=%v", hand.Status, hand.Natural)
	}
	// No hand left to act: straight to the dealer
	if r.Status != RoundDealerAction {
		t.Errorf("round status = %s, want DEALER_ACTION", r.Status)
	}
}

func TestHitUntilBust(t *testing.T) {
	// Player: 10+6, then draws a king and busts. Dealer: 9+8.
	r := NewRound(1, stackedShoe(spade(Ten), spade(Nine), spade(Six), spade(Eight), spade(King)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 20}}, testRules)
	r.Deal()

	if err := r.Apply("a", ActionHit, 0, 100); err != nil {
		t.Fatalf("hit: %v", err)
	}
	hand := r.Seats["a"].Hands[0]
	if hand.Status != HandBust {
		t.Fatalf("26 should bust, got %s", hand.Status)
	}
	if r.Status != RoundDealerAction {
		t.Errorf("bust of the only hand should hand the round to the dealer")
	}

	r.PlayDealer()
	deltas := r.Settle()
	if deltas["a"] != -20 {
		t.Errorf("bust loses the wager regardless of the dealer: delta = %d, want -20", deltas["a"])
	}
}

func TestActionsOnClosedHandRejected(t *testing.T) {
	// Two spots so standing one hand keeps the round in PLAYER_ACTION
	r := NewRound(1, stackedShoe(spade(Ten), spade(Five), spade(Nine), spade(Six), spade(Four), spade(Eight)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 20}, {Wager: 20}}, testRules)
	r.Deal()

	if err := r.Apply("a", ActionStand, 0, 100); err != nil {
		t.Fatalf("stand: %v", err)
	}
	if r.Status != RoundPlayerAction {
		t.Fatalf("second hand is still active, round status = %s", r.Status)
	}
	if err := r.Apply("a", ActionHit, 0, 100); !errors.Is(err, ErrHandNotActive) {
		t.Errorf("acting on a stood hand: got %v", err)
	}
	if err := r.Apply("b", ActionHit, 0, 100); !errors.Is(err, ErrHandNotActive) {
		t.Errorf("acting without a seat: got %v", err)
	}
	if err := r.Apply("a", ActionHit, 5, 100); !errors.Is(err, ErrHandNotActive) {
		t.Errorf("acting on an out-of-range hand: got %v", err)
	}
}

func TestUnknownActionRejected(t *testing.T) {
	r := NewRound(1, stackedShoe(spade(Ten), spade(Nine), spade(Six), spade(Eight)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 20}}, testRules)
	r.Deal()
	if err := r.Apply("a", "surrender", 0, 100); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action: got %v", err)
	}
}

func TestDoubleRules(t *testing.T) {
	// Player: 5+6 = 11, doubles into a ten for 21. Dealer: 9+9 = 18.
	r := NewRound(1, stackedShoe(spade(Five), spade(Nine), spade(Six), heart(Nine), spade(Ten)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 30}}, testRules)
	r.Deal()

	// Stack too small to double: committed 30 + 30 > 50
	if err := r.Apply("a", ActionDouble, 0, 50); !errors.Is(err, ErrInsufficientStack) {
		t.Fatalf("unaffordable double: got %v", err)
	}

	if err := r.Apply("a", ActionDouble, 0, 100); err != nil {
		t.Fatalf("double: %v", err)
	}
	hand := r.Seats["a"].Hands[0]
	if hand.Wager != 60 || !hand.Doubled {
		t.Errorf("double should double the wager: wager=%d doubled=%v", hand.Wager, hand.Doubled)
	}
	if hand.Status != HandStood {
		t.Errorf("doubled hand takes exactly one card then stands, got %s", hand.Status)
	}
	if r.Seats["a"].Committed != 60 {
		t.Errorf("committed = %d, want 60", r.Seats["a"].Committed)
	}

	r.PlayDealer()
	deltas := r.Settle()
	if deltas["a"] != 60 {
		t.Errorf("21 vs 18 pays the doubled wager: delta = %d, want 60", deltas["a"])
	}
}

func TestDoubleOnlyAsFirstAction(t *testing.T) {
	r := NewRound(1, stackedShoe(spade(Five), spade(Nine), spade(Six), spade(Eight), spade(Two)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 10}}, testRules)
	r.Deal()

	if err := r.Apply("a", ActionHit, 0, 100); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := r.Apply("a", ActionDouble, 0, 100); !errors.Is(err, ErrActionNotAllowed) {
		t.Errorf("double after a hit: got %v", err)
	}
}

func TestSplitProducesTwoHands(t *testing.T) {
	// Player: 8+8 splits; each split hand draws one card (3, then 2).
	r := NewRound(1, stackedShoe(spade(Eight), spade(Nine), heart(Eight), spade(Seven), spade(Three), spade(Two)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 20}}, testRules)
	r.Deal()

	if err := r.Apply("a", ActionSplit, 0, 100); err != nil {
		t.Fatalf("split: %v", err)
	}
	seat := r.Seats["a"]
	if len(seat.Hands) != 2 {
		t.Fatalf("split should yield 2 hands, got %d", len(seat.Hands))
	}
	if seat.Committed != 40 {
		t.Errorf("committed = %d, want 40", seat.Committed)
	}
	for i, h := range seat.Hands {
		if !h.FromSplit {
			t.Errorf("hand %d should be marked from-split", i)
		}
		if len(h.Cards) != 2 {
			t.Errorf("hand %d has %d cards after split, want 2", i, len(h.Cards))
		}
	}

	// A hand born from a split cannot split again
	if err := r.Apply("a", ActionSplit, 0, 1000); !errors.Is(err, ErrActionNotAllowed) {
		t.Errorf("re-split: got %v", err)
	}
}

func TestSplitAcesGetOneCardEach(t *testing.T) {
	r := NewRound(1, stackedShoe(spade(Ace), spade(Nine), heart(Ace), spade(Seven), spade(Ten), spade(Nine)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 20}}, testRules)
	r.Deal()

	if err := r.Apply("a", ActionSplit, 0, 100); err != nil {
		t.Fatalf("split aces: %v", err)
	}
	seat := r.Seats["a"]
	for i, h := range seat.Hands {
		if h.Status != HandStood {
			t.Errorf("split-ace hand %d should be auto-stood, got %s", i, h.Status)
		}
		if !h.SplitAces {
			t.Errorf("hand %d should be marked split-aces", i)
		}
	}
	if r.Status != RoundDealerAction {
		t.Errorf("both hands closed: round should move to the dealer")
	}
}

func TestSplitRequiresMatchingRanks(t *testing.T) {
	r := NewRound(1, stackedShoe(spade(Eight), spade(Nine), spade(Seven), spade(Six)))
	r.PlaceBet("a", 100, []SpotBet{{Wager: 20}}, testRules)
	r.Deal()
	if err := r.Apply("a", ActionSplit, 0, 1000); !errors.Is(err, ErrActionNotAllowed) {
		t.Errorf("splitting 8+7: got %v", err)
	}
}

func TestDealFollowsWagerOrder(t *testing.T) {
	r := NewRound(1, stackedShoe(
		spade(Two), spade(Three), spade(Four),
		spade(Five), spade(Six), spade(Seven)))
	if err := r.PlaceBet("b", 100, []SpotBet{{Wager: 10}}, testRules); err != nil {
		t.Fatalf("b bets: %v", err)
	}
	if err := r.PlaceBet("a", 100, []SpotBet{{Wager: 10}}, testRules); err != nil {
		t.Fatalf("a bets: %v", err)
	}
	r.Deal()

	if got := r.Seats["b"].Hands[0].Cards; got[0].Rank != Two || got[1].Rank != Five {
		t.Errorf("first bettor's cards = %v, want 2 then 5", got)
	}
	if got := r.Seats["a"].Hands[0].Cards; got[0].Rank != Three || got[1].Rank != Six {
		t.Errorf("second bettor's cards = %v, want 3 then 6", got)
	}
	if r.Dealer[0].Rank != Four || r.Dealer[1].Rank != Seven {
		t.Errorf("dealer's cards = %v, want 4 then 7", r.Dealer)
	}
}

func TestRemovePlayerForfeitsSeat(t *testing.T) {
	r := NewRound(1, stackedShoe(spade(King), spade(Nine), spade(Six), spade(Eight)))
	if r.RemovePlayer("a") {
		t.Error("removing a player with no seat should be a no-op")
	}
	if err := r.PlaceBet("a", 100, []SpotBet{{Wager: 10}}, testRules); err != nil {
		t.Fatalf("bet: %v", err)
	}
	r.Deal()
	if r.Status != RoundPlayerAction {
		t.Fatalf("status = %s, want PLAYER_ACTION", r.Status)
	}

	if !r.RemovePlayer("a") {
		t.Fatal("seated player should be removable")
	}
	if _, ok := r.Seats["a"]; ok {
		t.Error("seat should be gone")
	}
	if len(r.Order) != 0 {
		t.Errorf("wager order = %v, want empty", r.Order)
	}
	if r.Status != RoundDealerAction {
		t.Errorf("status = %s, want DEALER_ACTION once no hand is live", r.Status)
	}
	if r.RemovePlayer("a") {
		t.Error("second removal should be a no-op")
	}
}
