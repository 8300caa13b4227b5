// Card, Deck, and Hand primitives for the blackjack table.
package deck

import (
	"errors"
	"fmt"
	"math/rand"
)

// Suit of a playing card. The numeric values match the wire encoding.
type Suit uint8

const (
	Heart Suit = iota
	Diamond
	Club
	Spade
)

func (s Suit) String() string {
	switch s {
	case Heart:
		return "♥"
	case Diamond:
		return "♦"
	case Club:
		return "♣"
	case Spade:
		return "♠"
	}
	return "?"
}

// Named ranks. Numeric cards use their face value directly.
const (
	Ace   = 1
	Jack  = 11
	Queen = 12
	King  = 13
)

// Card is an immutable rank/suit pair. Rank is 1..13 with Ace low.
type Card struct {
	Rank uint8
	Suit Suit
}

func (c Card) String() string {
	rankStr := ""
	switch c.Rank {
	case Ace:
		rankStr = "A"
	case Jack:
		rankStr = "J"
	case Queen:
		rankStr = "Q"
	case King:
		rankStr = "K"
	default:
		rankStr = fmt.Sprintf("%d", c.Rank)
	}
	return rankStr + c.Suit.String()
}

// Points returns the base blackjack value of the card: face cards count 10
// and an ace counts 11. Soft ace demotion to 1 is handled by Hand.Value.
func (c Card) Points() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= Jack:
		return 10
	default:
		return int(c.Rank)
	}
}

// ErrDeckExhausted is returned by Draw once all 52 cards have been dealt.
// A single player round can never draw that deep, so hitting this is an
// invariant violation and fatal to the session.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is a shuffled ordering of the 52 distinct cards with a draw cursor.
// Decks are owned by exactly one session and are not safe for concurrent use.
type Deck struct {
	cards  []Card
	cursor int
}

// NewShuffledDeck returns a full deck permuted by a Fisher-Yates shuffle
// seeded with seed. The same seed always produces the same ordering, which
// the table relies on for deterministic round tests.
func NewShuffledDeck(seed int64) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}

	for suit := Heart; suit <= Spade; suit++ {
		for rank := Ace; rank <= King; rank++ {
			d.cards = append(d.cards, Card{Rank: uint8(rank), Suit: suit})
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// NewStackedDeck returns a deck that deals the given cards in order. Used
// to script exact rounds in tests.
func NewStackedDeck(cards ...Card) *Deck {
	stacked := make([]Card, len(cards))
	copy(stacked, cards)
	return &Deck{cards: stacked}
}

// Draw returns the next undealt card, advancing the cursor.
func (d *Deck) Draw() (Card, error) {
	if d.cursor >= len(d.cards) {
		return Card{}, ErrDeckExhausted
	}
	card := d.cards[d.cursor]
	d.cursor++
	return card, nil
}

// Remaining reports how many cards have not yet been drawn.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.cursor
}
