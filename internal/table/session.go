package table

import (
	"fmt"

	"croupier/internal/core/data"
	"croupier/internal/deck"
)

// sessionState tracks where in the round lifecycle a session is resting
// while it waits for the next client frame. Dealing, the dealer turn, and
// settlement all run inline on the server, so the session only ever waits
// in one of these states.
type sessionState int

const (
	stateAwaitJoin sessionState = iota
	stateAwaitBet
	statePlayerTurn
	stateTerminated
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitJoin:
		return "AWAIT_JOIN"
	case stateAwaitBet:
		return "AWAIT_BET"
	case statePlayerTurn:
		return "PLAYER_TURN"
	case stateTerminated:
		return "TERMINATED"
	}
	return fmt.Sprintf("sessionState(%d)", int(s))
}

// session is the per-connection game state. It is owned exclusively by the
// goroutine serving its connection; sessions never share decks, hands, or
// balances with each other.
type session struct {
	state sessionState

	// Persistent chip account, loaded on JOIN.
	account *data.Player
	// Live chip count. The active bet is already deducted from this.
	balance uint64
	// Wager for the round in progress.
	bet uint64

	shoe       *deck.Deck
	playerHand *deck.Hand
	dealerHand *deck.Hand

	stats sessionStats
}

// sessionStats accumulates per-connection round statistics, summarized to
// the log when the client disconnects. Never persisted.
type sessionStats struct {
	roundsPlayed int
	wins         int
	losses       int
	pushes       int
	blackjacks   int
	playerBusts  int
	dealerBusts  int
	playerHits   int
}

func (s *sessionStats) summary() string {
	if s.roundsPlayed == 0 {
		return "no completed rounds"
	}
	return fmt.Sprintf("played=%d W=%d L=%d P=%d BJ=%d busts(P/D)=%d/%d hits=%d",
		s.roundsPlayed, s.wins, s.losses, s.pushes, s.blackjacks,
		s.playerBusts, s.dealerBusts, s.playerHits)
}
