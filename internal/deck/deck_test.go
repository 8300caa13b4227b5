package deck

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func drawAll(t *testing.T, d *Deck) []Card {
	t.Helper()
	var cards []Card
	for d.Remaining() > 0 {
		card, err := d.Draw()
		if err != nil {
			t.Fatalf("Draw() returned error with %d cards remaining: %v", d.Remaining(), err)
		}
		cards = append(cards, card)
	}
	return cards
}

func TestNewShuffledDeckIsPermutation(t *testing.T) {
	for _, seed := range []int64{0, 1, 42, -7, 1 << 40} {
		d := NewShuffledDeck(seed)

		seen := make(map[Card]bool)
		for _, card := range drawAll(t, d) {
			if card.Rank < 1 || card.Rank > 13 || card.Suit > Spade {
				t.Errorf("seed %d: deck contains invalid card %+v", seed, card)
			}
			if seen[card] {
				t.Errorf("seed %d: deck contains duplicate card %v", seed, card)
			}
			seen[card] = true
		}
		if len(seen) != 52 {
			t.Errorf("seed %d: deck contained %d distinct cards, want 52", seed, len(seen))
		}
	}
}

func TestNewShuffledDeckIsDeterministic(t *testing.T) {
	first := drawAll(t, NewShuffledDeck(1234))
	second := drawAll(t, NewShuffledDeck(1234))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical seeds produced different orderings; diff:\n%s", diff)
	}
}

func TestDrawExhausted(t *testing.T) {
	d := NewShuffledDeck(99)
	drawAll(t, d)

	if _, err := d.Draw(); err != ErrDeckExhausted {
		t.Errorf("Draw() on empty deck = %v, want ErrDeckExhausted", err)
	}
}

func TestCardPoints(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want int
	}{
		{name: "ace counts eleven", card: Card{Rank: Ace, Suit: Spade}, want: 11},
		{name: "numeric card", card: Card{Rank: 7, Suit: Heart}, want: 7},
		{name: "jack counts ten", card: Card{Rank: Jack, Suit: Club}, want: 10},
		{name: "queen counts ten", card: Card{Rank: Queen, Suit: Diamond}, want: 10},
		{name: "king counts ten", card: Card{Rank: King, Suit: Heart}, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.Points(); got != tt.want {
				t.Errorf("Points() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		name     string
		cards    []Card
		want     int
		wantSoft bool
	}{
		{
			name:  "no aces",
			cards: []Card{{Rank: 10, Suit: Club}, {Rank: 9, Suit: Diamond}},
			want:  19,
		},
		{
			name:     "soft ace",
			cards:    []Card{{Rank: Ace, Suit: Spade}, {Rank: 5, Suit: Heart}},
			want:     16,
			wantSoft: true,
		},
		{
			name:  "ace demoted after hit",
			cards: []Card{{Rank: Ace, Suit: Spade}, {Rank: 5, Suit: Heart}, {Rank: 9, Suit: Club}},
			want:  15,
		},
		{
			name:     "two aces demote one at a time",
			cards:    []Card{{Rank: Ace, Suit: Spade}, {Rank: Ace, Suit: Heart}},
			want:     12,
			wantSoft: true,
		},
		{
			name: "all four aces",
			cards: []Card{
				{Rank: Ace, Suit: Spade}, {Rank: Ace, Suit: Heart},
				{Rank: Ace, Suit: Club}, {Rank: Ace, Suit: Diamond},
			},
			want:     14,
			wantSoft: true,
		},
		{
			name:  "hard bust",
			cards: []Card{{Rank: 10, Suit: Club}, {Rank: 5, Suit: Diamond}, {Rank: 9, Suit: Spade}},
			want:  24,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := &Hand{}
			for _, c := range tt.cards {
				hand.Add(c)
			}
			if got := hand.Value(); got != tt.want {
				t.Errorf("Value() = %d, want %d", got, tt.want)
			}
			if got := hand.IsSoft(); got != tt.wantSoft {
				t.Errorf("IsSoft() = %v, want %v", got, tt.wantSoft)
			}
			if got := hand.IsBust(); got != (tt.want > 21) {
				t.Errorf("IsBust() = %v, want %v", got, tt.want > 21)
			}
		})
	}
}

func TestHandIsBlackjack(t *testing.T) {
	tests := []struct {
		name  string
		cards []Card
		want  bool
	}{
		{
			name:  "ten and ace",
			cards: []Card{{Rank: 10, Suit: Club}, {Rank: Ace, Suit: Spade}},
			want:  true,
		},
		{
			name:  "face card and ace",
			cards: []Card{{Rank: King, Suit: Heart}, {Rank: Ace, Suit: Diamond}},
			want:  true,
		},
		{
			name:  "twenty one in three cards is not a natural",
			cards: []Card{{Rank: 7, Suit: Club}, {Rank: 7, Suit: Heart}, {Rank: 7, Suit: Spade}},
			want:  false,
		},
		{
			name:  "two card nineteen",
			cards: []Card{{Rank: 10, Suit: Club}, {Rank: 9, Suit: Diamond}},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := &Hand{}
			for _, c := range tt.cards {
				hand.Add(c)
			}
			if got := hand.IsBlackjack(); got != tt.want {
				t.Errorf("IsBlackjack() = %v, want %v", got, tt.want)
			}
		})
	}
}
