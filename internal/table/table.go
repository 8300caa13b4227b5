// The table backend hosts one blackjack session per connection.
package table

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"croupier/internal/core"
	corebytes "croupier/internal/core/bytes"
	"croupier/internal/core/client"
	"croupier/internal/core/data"
	"croupier/internal/deck"
	"croupier/internal/packets"
)

// How long a player's chip account stays in the lookaside cache before a
// join falls through to the database again.
const accountCacheTTL = 5 * time.Minute

// Server is the blackjack table backend. Each accepted connection gets its
// own session; the Server itself holds only immutable configuration and the
// shared account store, so sessions never contend with each other.
type Server struct {
	Name   string
	Config *core.Config
	Logger *logrus.Logger

	db       *gorm.DB
	accounts *gocache.Cache

	// Deck factory for new rounds. Overridable so tests can stack the shoe.
	newDeck func() *deck.Deck
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(_ context.Context) error {
	s.db = data.DB()
	s.accounts = gocache.New(accountCacheTTL, 10*time.Minute)

	if s.newDeck == nil {
		s.newDeck = func() *deck.Deck {
			return deck.NewShuffledDeck(time.Now().UnixNano())
		}
	}
	return nil
}

func (s *Server) SetUpClient(c *client.Client) {
	c.Extension = &session{state: stateAwaitJoin}
	c.DebugTags["server_type"] = "table"
}

// Handshake is a no-op: the client speaks first with a JOIN frame.
func (s *Server) Handshake(_ *client.Client) error {
	return nil
}

// Disconnect is called by the frontend once the connection is gone.
func (s *Server) Disconnect(c *client.Client) {
	sess := c.Extension.(*session)
	sess.state = stateTerminated

	name := "unjoined player"
	if sess.account != nil {
		name = sess.account.Name
	}
	s.Logger.Infof("[%s] session ended for %s (%s): %s",
		s.Name, name, c.IPAddr(), sess.stats.summary())
}

// Handle processes one frame from the client. Returning an error terminates
// the session; recoverable problems are reported with an ERROR frame instead.
func (s *Server) Handle(_ context.Context, c *client.Client, frame []byte) error {
	header, err := packets.ParseHeader(frame)
	if err != nil {
		return err
	}

	sess := c.Extension.(*session)

	switch header.Type {
	case packets.JoinType:
		err = s.handleJoin(c, sess, frame)
	case packets.BetType:
		err = s.handleBet(c, sess, frame)
	case packets.ActionType:
		err = s.handleAction(c, sess, frame)
	default:
		err = fmt.Errorf("%w: %s frame not legal in state %v",
			packets.ErrProtocol, packets.Name(header.Type), sess.state)
	}
	return err
}

func (s *Server) handleJoin(c *client.Client, sess *session, frame []byte) error {
	if sess.state != stateAwaitJoin {
		return fmt.Errorf("%w: JOIN not legal in state %v", packets.ErrProtocol, sess.state)
	}

	var joinPkt packets.Join
	if err := packets.Unmarshal(frame, &joinPkt); err != nil {
		return err
	}

	name := string(corebytes.StripPadding(joinPkt.PlayerName[:]))
	if name == "" {
		return fmt.Errorf("%w: JOIN with empty player name", packets.ErrProtocol)
	}

	account, err := s.lookUpAccount(name)
	if err != nil {
		return fmt.Errorf("error loading account for %s: %w", name, err)
	}

	sess.account = account
	sess.balance = account.Chips
	sess.state = stateAwaitBet

	s.Logger.Infof("[%s] %s joined from %s with %d chips", s.Name, name, c.IPAddr(), sess.balance)
	return nil
}

// lookUpAccount fetches the player's chip account, creating one with the
// configured starting stack for a name we have never seen. The cache holds
// Player values, never pointers, so every session gets its own copy to
// mutate during settlement.
func (s *Server) lookUpAccount(name string) (*data.Player, error) {
	if cached, found := s.accounts.Get(name); found {
		account := cached.(data.Player)
		return &account, nil
	}

	account, err := data.FindPlayerByName(s.db, name)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &data.Player{Name: name, Chips: uint64(s.Config.Table.StartingChips)}
		if err := data.CreatePlayer(s.db, account); err != nil {
			// Two first-time joins under one name can race on the unique
			// constraint; the loser picks up the winner's row.
			existing, findErr := data.FindPlayerByName(s.db, name)
			if findErr != nil || existing == nil {
				return nil, err
			}
			account = existing
		}
	}

	s.accounts.Set(name, *account, gocache.DefaultExpiration)
	return account, nil
}

func (s *Server) handleBet(c *client.Client, sess *session, frame []byte) error {
	if sess.state != stateAwaitBet {
		return fmt.Errorf("%w: BET not legal in state %v", packets.ErrProtocol, sess.state)
	}

	var betPkt packets.Bet
	if err := packets.Unmarshal(frame, &betPkt); err != nil {
		return err
	}

	amount := uint64(betPkt.Amount)
	if amount == 0 || amount > sess.balance {
		s.Logger.Debugf("[%s] rejected bet of %d from %s (balance %d)",
			s.Name, amount, sess.account.Name, sess.balance)
		return s.sendError(c, packets.ErrorCodeInvalidBet,
			fmt.Sprintf("invalid bet %d (balance %d)", amount, sess.balance))
	}

	sess.balance -= amount
	sess.bet = amount

	return s.dealRound(c, sess)
}

// dealRound shuffles a fresh shoe, deals the opening hands, and either hands
// control to the player or resolves the dealer immediately on a natural.
func (s *Server) dealRound(c *client.Client, sess *session) error {
	sess.shoe = s.newDeck()
	sess.playerHand = &deck.Hand{}
	sess.dealerHand = &deck.Hand{}

	// Deal order: both player cards, then the upcard, then the hole card.
	for _, hand := range []*deck.Hand{sess.playerHand, sess.playerHand, sess.dealerHand, sess.dealerHand} {
		card, err := sess.shoe.Draw()
		if err != nil {
			return fmt.Errorf("dealing opening hands: %w", err)
		}
		hand.Add(card)
	}

	dealPkt := &packets.Deal{
		Header:       packets.Header{Type: packets.DealType},
		PlayerValue:  uint8(sess.playerHand.Value()),
		DealerUpcard: wireCard(sess.dealerHand.Cards()[0]),
	}
	for i, card := range sess.playerHand.Cards() {
		dealPkt.PlayerCards[i] = wireCard(card)
	}
	if sess.playerHand.IsBlackjack() {
		dealPkt.Blackjack = 1
	}

	if err := c.Send(dealPkt); err != nil {
		return err
	}

	s.Logger.Debugf("[%s] dealt %s (%d) to %s, dealer shows %s",
		s.Name, sess.playerHand, sess.playerHand.Value(), sess.account.Name,
		sess.dealerHand.Cards()[0])

	// A natural ends the player's turn before it starts; the dealer still
	// resolves so a dealer natural can push.
	if sess.playerHand.IsBlackjack() {
		return s.finishRound(c, sess)
	}

	sess.state = statePlayerTurn
	return nil
}

func (s *Server) handleAction(c *client.Client, sess *session, frame []byte) error {
	if sess.state != statePlayerTurn {
		return fmt.Errorf("%w: ACTION not legal in state %v", packets.ErrProtocol, sess.state)
	}

	var actionPkt packets.Action
	if err := packets.Unmarshal(frame, &actionPkt); err != nil {
		return err
	}

	switch actionPkt.Kind {
	case packets.ActionHit:
		return s.handleHit(c, sess)
	case packets.ActionStand:
		s.Logger.Debugf("[%s] %s stands at %d", s.Name, sess.account.Name, sess.playerHand.Value())
		return s.finishRound(c, sess)
	default:
		return fmt.Errorf("%w: unknown action kind 0x%02x", packets.ErrProtocol, actionPkt.Kind)
	}
}

func (s *Server) handleHit(c *client.Client, sess *session) error {
	card, err := sess.shoe.Draw()
	if err != nil {
		return fmt.Errorf("drawing for player hit: %w", err)
	}
	sess.playerHand.Add(card)
	sess.stats.playerHits++

	updatePkt := &packets.HandUpdate{
		Header:   packets.Header{Type: packets.HandUpdateType},
		Drawn:    wireCard(card),
		NumCards: uint8(sess.playerHand.Size()),
		Value:    uint8(sess.playerHand.Value()),
	}
	fillWireHand(updatePkt.Cards[:], sess.playerHand)
	if sess.playerHand.IsBust() {
		updatePkt.Bust = 1
	}

	if err := c.Send(updatePkt); err != nil {
		return err
	}

	s.Logger.Debugf("[%s] %s hits: %s -> %d", s.Name, sess.account.Name, card, sess.playerHand.Value())

	if sess.playerHand.IsBust() {
		// The loss is already decided; the dealer reveals without drawing.
		return s.finishRound(c, sess)
	}
	return nil
}

// finishRound resolves the dealer's hand, reveals it, and settles the round.
func (s *Server) finishRound(c *client.Client, sess *session) error {
	// Dealer only draws when the player can still be beaten: hits on any
	// total below 17 and stands on all 17s, soft ones included.
	if !sess.playerHand.IsBust() {
		for sess.dealerHand.Value() < 17 {
			card, err := sess.shoe.Draw()
			if err != nil {
				return fmt.Errorf("drawing for dealer: %w", err)
			}
			sess.dealerHand.Add(card)
		}
	}

	revealPkt := &packets.DealerReveal{
		Header:   packets.Header{Type: packets.DealerRevealType},
		NumCards: uint8(sess.dealerHand.Size()),
		Value:    uint8(sess.dealerHand.Value()),
	}
	fillWireHand(revealPkt.Cards[:], sess.dealerHand)
	if sess.dealerHand.IsBust() {
		revealPkt.Bust = 1
	}

	if err := c.Send(revealPkt); err != nil {
		return err
	}

	return s.settle(c, sess)
}

// settle compares the hands, credits the payout, persists the new balance,
// and returns the session to AWAIT_BET for the next round.
func (s *Server) settle(c *client.Client, sess *session) error {
	playerValue := sess.playerHand.Value()
	dealerValue := sess.dealerHand.Value()
	playerNatural := sess.playerHand.IsBlackjack()
	dealerNatural := sess.dealerHand.IsBlackjack()

	var outcome uint8
	var payout uint64

	switch {
	case sess.playerHand.IsBust():
		outcome = packets.OutcomeLose
	case playerNatural && dealerNatural:
		outcome = packets.OutcomePush
		payout = sess.bet
	case playerNatural:
		outcome = packets.OutcomeBlackjack
		payout = sess.bet + uint64(float64(sess.bet)*s.Config.Table.BlackjackPayout)
	case sess.dealerHand.IsBust():
		outcome = packets.OutcomeWin
		payout = sess.bet * 2
	case playerValue > dealerValue:
		outcome = packets.OutcomeWin
		payout = sess.bet * 2
	case playerValue < dealerValue:
		outcome = packets.OutcomeLose
	default:
		outcome = packets.OutcomePush
		payout = sess.bet
	}

	sess.balance += payout
	sess.recordOutcome(outcome)

	// A failed write costs us durability, not correctness; the live balance
	// stays authoritative for this session.
	if err := data.UpdatePlayerChips(s.db, sess.account, sess.balance); err != nil {
		s.Logger.Warnf("[%s] failed to persist balance for %s: %s", s.Name, sess.account.Name, err)
	} else {
		s.accounts.Set(sess.account.Name, *sess.account, gocache.DefaultExpiration)
	}

	resultPkt := &packets.RoundResult{
		Header:  packets.Header{Type: packets.RoundResultType},
		Outcome: outcome,
		Payout:  uint32(payout),
		Balance: uint32(sess.balance),
	}
	if err := c.Send(resultPkt); err != nil {
		return err
	}

	s.Logger.Infof("[%s] %s: player %d vs dealer %d -> %s (payout %d, balance %d)",
		s.Name, sess.account.Name, playerValue, dealerValue,
		outcomeName(outcome), payout, sess.balance)

	sess.bet = 0
	sess.state = stateAwaitBet
	return nil
}

func (sess *session) recordOutcome(outcome uint8) {
	sess.stats.roundsPlayed++
	if sess.playerHand.IsBust() {
		sess.stats.playerBusts++
	}
	if sess.dealerHand.IsBust() {
		sess.stats.dealerBusts++
	}

	switch outcome {
	case packets.OutcomeWin:
		sess.stats.wins++
	case packets.OutcomeLose:
		sess.stats.losses++
	case packets.OutcomePush:
		sess.stats.pushes++
	case packets.OutcomeBlackjack:
		sess.stats.wins++
		sess.stats.blackjacks++
	}
}

func (s *Server) sendError(c *client.Client, code uint8, message string) error {
	errorPkt := &packets.Error{
		Header: packets.Header{Type: packets.ErrorType},
		Code:   code,
	}
	copy(errorPkt.Message[:], message)
	return c.Send(errorPkt)
}

func wireCard(c deck.Card) packets.Card {
	return packets.Card{Rank: c.Rank, Suit: uint8(c.Suit)}
}

func fillWireHand(slots []packets.Card, hand *deck.Hand) {
	for i, card := range hand.Cards() {
		if i >= len(slots) {
			break
		}
		slots[i] = wireCard(card)
	}
}

func outcomeName(outcome uint8) string {
	switch outcome {
	case packets.OutcomeWin:
		return "WIN"
	case packets.OutcomeLose:
		return "LOSE"
	case packets.OutcomePush:
		return "PUSH"
	case packets.OutcomeBlackjack:
		return "BLACKJACK"
	}
	return fmt.Sprintf("OUTCOME(0x%02x)", outcome)
}
