package match

import (
	"math/rand"
	"time"
)

// Suit represents a card suit
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Rank represents a card rank
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

// Card represents a playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// String returns a short representation like "AS" for Ace of Spades
func (c Card) String() string {
	suitChar := map[Suit]string{
		Hearts:   "H",
		Diamonds: "D",
		Clubs:    "C",
		Spades:   "S",
	}
	return string(c.Rank) + suitChar[c.Suit]
}

// Value returns the blackjack value of the card. Aces count 11 here; the
// downgrade to 1 happens per hand in HandTotal.
func (c Card) Value() int {
	switch c.Rank {
	case Ace:
		return 11
	case King, Queen, Jack, Ten:
		return 10
	case Nine:
		return 9
	case Eight:
		return 8
	case Seven:
		return 7
	case Six:
		return 6
	case Five:
		return 5
	case Four:
		return 4
	case Three:
		return 3
	default:
		return 2
	}
}

// Shoe is the drawable card set for the blackjack stage. Access is
// serialized by the owning runtime, so no lock here.
type Shoe struct {
	Cards []Card `json:"cards"`
}

// NewShoe creates a freshly shuffled 52-card shoe
func NewShoe() *Shoe {
	s := &Shoe{}
	s.refill()
	return s
}

func (s *Shoe) refill() {
	suits := []Suit{Hearts, Diamonds, Clubs, Spades}
	ranks := []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

	cards := make([]Card, 0, 52)
	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	s.Cards = cards
}

// Draw removes and returns the top card. An exhausted shoe reshuffles a
// fresh full deck first; a draw never fails.
func (s *Shoe) Draw() Card {
	if len(s.Cards) == 0 {
		s.refill()
	}
	card := s.Cards[len(s.Cards)-1]
	s.Cards = s.Cards[:len(s.Cards)-1]
	return card
}

// Remaining returns the number of cards left in the shoe
func (s *Shoe) Remaining() int {
	return len(s.Cards)
}

// HandTotal computes the blackjack total of a set of cards. Aces start at 11
// and are downgraded to 1 one at a time while the running total exceeds 21.
func HandTotal(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		total += c.Value()
		if c.Rank == Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports whether cards are a two-card 21, which outranks any
// later-assembled 21.
func IsNatural(cards []Card) bool {
	return len(cards) == 2 && HandTotal(cards) == 21
}
