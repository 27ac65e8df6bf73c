package deck

import (
	rand "math/rand/v2"
	"time"

	"github.com/lox/blackjacktable/internal/randutil"
)

// Deck represents an ordered stack of playing cards. Draw removes from
// the end, matching the stack the round record stores.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck in canonical order: suits in
// declaration order, ranks Two through Ace within each suit.
func New() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	return d
}

// NewShuffled creates a freshly shuffled 52-card deck seeded from the
// wall clock.
func NewShuffled() *Deck {
	d := New()
	d.Shuffle(randutil.New(time.Now().UnixNano()))
	return d
}

// FromCards builds a deck from an existing card sequence, used when
// rehydrating a round record.
func FromCards(cards []Card) *Deck {
	out := make([]Card, len(cards))
	copy(out, cards)
	return &Deck{cards: out}
}

// Shuffle applies a Fisher-Yates shuffle driven by the provided rng.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top (last) card.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// Remaining returns the number of cards left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in order.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
