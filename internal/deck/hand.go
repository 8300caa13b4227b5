package deck

import "strings"

// Hand is the ordered set of cards held by the player or the dealer.
type Hand struct {
	cards []Card
}

// Add appends a drawn card to the hand.
func (h *Hand) Add(c Card) {
	h.cards = append(h.cards, c)
}

// Cards returns the cards in the order they were drawn.
func (h *Hand) Cards() []Card {
	return h.cards
}

// Size returns the number of cards in the hand.
func (h *Hand) Size() int {
	return len(h.cards)
}

// Value computes the blackjack total of the hand. Aces start at 11 and are
// demoted to 1 one at a time while the total exceeds 21.
func (h *Hand) Value() int {
	total, _ := h.value()
	return total
}

// IsSoft reports whether the hand still counts an ace as 11.
func (h *Hand) IsSoft() bool {
	_, soft := h.value()
	return soft
}

func (h *Hand) value() (total int, soft bool) {
	aces := 0
	for _, c := range h.cards {
		if c.Rank == Ace {
			aces++
		}
		total += c.Points()
	}

	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

// IsBust reports whether the hand's value exceeds 21.
func (h *Hand) IsBust() bool {
	return h.Value() > 21
}

// IsBlackjack reports whether the hand is a natural: exactly two cards
// totalling 21. Only meaningful on the initial deal.
func (h *Hand) IsBlackjack() bool {
	return len(h.cards) == 2 && h.Value() == 21
}

func (h *Hand) String() string {
	strs := make([]string, 0, len(h.cards))
	for _, c := range h.cards {
		strs = append(strs, c.String())
	}
	return strings.Join(strs, " ")
}
