package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "Spades"
	case Hearts:
		return "Hearts"
	case Diamonds:
		return "Diamonds"
	case Clubs:
		return "Clubs"
	default:
		return "Unknown"
	}
}

// Rank represents a card rank. Numeric ranks carry their pip value.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		if r >= Two && r <= Ten {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

// Card represents a playing card
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card (e.g., "A Spades")
func (c Card) String() string {
	return fmt.Sprintf("%s %s", c.Rank, c.Suit)
}

// PipValue returns the blackjack pip value of the card: face cards
// count 10, aces count 1 (soft promotion happens in Hand.Value).
func (c Card) PipValue() int {
	switch {
	case c.Rank == Ace:
		return 1
	case c.Rank >= Jack:
		return 10
	default:
		return int(c.Rank)
	}
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// DealtCard is a card as it sits in a hand. Concealed is a display
// property only: it hides the card from other players and excludes it
// from Value until revealed. It is never a rank.
type DealtCard struct {
	Card      Card `json:"card"`
	Concealed bool `json:"concealed"`
}

// Deal wraps a card face-up.
func Deal(c Card) DealtCard {
	return DealtCard{Card: c}
}

// DealConcealed wraps a card face-down.
func DealConcealed(c Card) DealtCard {
	return DealtCard{Card: c, Concealed: true}
}

// Hand is an ordered sequence of dealt cards owned by one participant.
type Hand []DealtCard

// Value computes the blackjack total of the hand, skipping concealed
// cards. Aces count 1 and are then promoted to 11 one at a time while
// the total stays at or under 21.
func (h Hand) Value() int {
	v, _ := h.value(false)
	return v
}

// FullValue computes the total including concealed cards. The dealer
// plays against this during settlement.
func (h Hand) FullValue() int {
	v, _ := h.value(true)
	return v
}

// ValueSoft returns the visible total and whether it is soft, that is
// whether an ace is currently counted as 11. The dealer hits a soft
// seventeen.
func (h Hand) ValueSoft() (int, bool) {
	return h.value(false)
}

func (h Hand) value(countConcealed bool) (int, bool) {
	total, aces := 0, 0
	for _, dc := range h {
		if dc.Concealed && !countConcealed {
			continue
		}
		total += dc.Card.PipValue()
		if dc.Card.IsAce() {
			aces++
		}
	}
	promoted := 0
	for ; aces > 0; aces-- {
		if total+10 <= 21 {
			total += 10
			promoted++
		}
	}
	return total, promoted > 0
}

// IsNatural reports whether the hand is an opening two-card 21.
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.FullValue() == 21
}

// Reveal clears the concealment flag on every card in the hand.
func (h Hand) Reveal() {
	for i := range h {
		h[i].Concealed = false
	}
}
