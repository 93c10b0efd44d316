package match

// PlayDealer runs the house draw: hit while total < 17, irrespective of
// softness. No-op unless the round is in DEALER_ACTION.
func (r *RoundState) PlayDealer() {
	if r.Status != RoundDealerAction {
		return
	}
	for HandTotal(r.Dealer) < DealerStandTotal {
		r.Dealer = append(r.Dealer, r.Shoe.Draw())
	}
}

// Settle compares every hand against the final dealer hand and returns the
// net delta per player across all their hands and side wagers. The round
// moves to RESOLVED.
//
// Note: the behavior this replaces resolved certain equal upper-teen totals
// as losses after establishing the totals were equal. Equal totals push
// here, with naturals taking precedence over a plain total comparison.
func (r *RoundState) Settle() map[string]int64 {
	if r.Status != RoundDealerAction {
		return nil
	}
	r.Status = RoundResolved

	deltas := make(map[string]int64)
	for userID, seat := range r.Seats {
		var net int64
		for _, hand := range seat.Hands {
			net += settleHand(hand, r.Dealer)
			if hand.SideBet != nil {
				switch hand.SideBet.Outcome {
				case SideOutcomeWin:
					net += hand.SideBet.Wager
				case SideOutcomeLose:
					net -= hand.SideBet.Wager
				}
			}
		}
		deltas[userID] = net
	}
	return deltas
}

// settleHand returns the signed main-wager delta for one hand
func settleHand(hand *Hand, dealer []Card) int64 {
	if hand.Status == HandBust {
		return -hand.Wager
	}

	dealerTotal := HandTotal(dealer)
	dealerNatural := IsNatural(dealer)

	// Dealer bust pays every surviving hand
	if dealerTotal > 21 {
		if hand.Natural {
			return naturalWin(hand.Wager)
		}
		return hand.Wager
	}

	// Naturals outrank any assembled 21
	if hand.Natural && !dealerNatural {
		return naturalWin(hand.Wager)
	}
	if dealerNatural && !hand.Natural {
		return -hand.Wager
	}

	handTotal := HandTotal(hand.Cards)
	switch {
	case handTotal > dealerTotal:
		return hand.Wager
	case handTotal < dealerTotal:
		return -hand.Wager
	default:
		return 0
	}
}

// naturalWin pays 3:2 on the wager
func naturalWin(wager int64) int64 {
	return wager + wager/2
}
