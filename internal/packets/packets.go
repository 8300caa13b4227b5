// Wire format for the discovery and table protocols.
//
// Every frame is a fixed-width struct in network byte order starting with a
// common Header. The discovery Offer is sent as a single UDP datagram; all
// other frames travel over the table's TCP stream and are reassembled by the
// frontend using Header.Size.
package packets

import (
	"encoding/binary"
	"errors"
	"fmt"

	"croupier/internal/core/bytes"
)

// Magic is the cookie carried by every frame. Frames without it are
// rejected before any other field is inspected.
const Magic = 0xABCDDCBA

// HeaderSize is the wire size of Header in bytes.
const HeaderSize = 0x08

// MaxFrameSize bounds how large a declared frame may be. The largest real
// frame (Error) is well under this; anything bigger is a corrupt stream.
const MaxFrameSize = 0x100

// Frame types.
const (
	OfferType        = 0x02
	JoinType         = 0x03
	BetType          = 0x04
	DealType         = 0x05
	ActionType       = 0x06
	HandUpdateType   = 0x07
	DealerRevealType = 0x08
	RoundResultType  = 0x09
	ErrorType        = 0x0A
)

// Player action kinds carried by Action.Kind.
const (
	ActionHit   = 0x01
	ActionStand = 0x02
)

// Round outcomes carried by RoundResult.Outcome.
const (
	OutcomeWin       = 0x01
	OutcomeLose      = 0x02
	OutcomePush      = 0x03
	OutcomeBlackjack = 0x04
)

// Error codes carried by Error.Code.
const (
	ErrorCodeProtocol   = 0x01
	ErrorCodeInvalidBet = 0x02
)

// MaxHandCards is the number of card slots reserved in hand-carrying frames.
// A hand that has not yet resolved can hold at most 11 cards before the next
// draw necessarily ends the round, so 12 slots always suffice.
const MaxHandCards = 12

// ErrProtocol indicates a frame that could not be decoded or was not legal
// in the current session state. It is fatal to the session.
var ErrProtocol = errors.New("protocol error")

// Header precedes every frame in both protocols.
type Header struct {
	Magic uint32
	Size  uint16 // total frame length, header included
	Type  uint16
}

// Card is the two byte wire representation of a playing card.
// Rank is 1..13 (A=1, J=11, Q=12, K=13) and Suit is 0..3.
type Card struct {
	Rank uint8
	Suit uint8
}

// Offer is broadcast over UDP to advertise the table server.
type Offer struct {
	Header
	SessionPort uint16
	Nonce       uint32
	ServerName  [32]byte
}

// Join is the first frame a client must send on a new connection.
type Join struct {
	Header
	PlayerName [32]byte
}

// Bet opens a round by wagering Amount chips.
type Bet struct {
	Header
	Amount uint32
}

// Deal reveals the initial two player cards and the dealer's upcard.
// The dealer's second card stays hidden until DealerReveal.
type Deal struct {
	Header
	PlayerCards  [2]Card
	PlayerValue  uint8
	Blackjack    uint8
	DealerUpcard Card
}

// Action carries the player's hit/stand decision.
type Action struct {
	Header
	Kind uint8
}

// HandUpdate is sent after each player hit with the full hand state.
type HandUpdate struct {
	Header
	Drawn    Card
	Cards    [MaxHandCards]Card
	NumCards uint8
	Value    uint8
	Bust     uint8
}

// DealerReveal exposes the dealer's completed hand, hole card included.
type DealerReveal struct {
	Header
	Cards    [MaxHandCards]Card
	NumCards uint8
	Value    uint8
	Bust     uint8
}

// RoundResult settles the round. Payout is the amount credited back to the
// player (0 on a loss, bet on a push) and Balance is the post-settlement stack.
type RoundResult struct {
	Header
	Outcome uint8
	Payout  uint32
	Balance uint32
}

// Error reports a recoverable problem to the client without ending the session.
type Error struct {
	Header
	Code    uint8
	Message [64]byte
}

var typeNames = map[uint16]string{
	OfferType:        "OFFER",
	JoinType:         "JOIN",
	BetType:          "BET",
	DealType:         "DEAL",
	ActionType:       "ACTION",
	HandUpdateType:   "HAND_UPDATE",
	DealerRevealType: "DEALER_REVEAL",
	RoundResultType:  "ROUND_RESULT",
	ErrorType:        "ERROR",
}

// Name returns the protocol name of a frame type for logging.
func Name(frameType uint16) string {
	if name, ok := typeNames[frameType]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", frameType)
}

// ParseHeader decodes and validates the frame header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: short header (%d bytes)", ErrProtocol, len(data))
	}

	var header Header
	bytes.StructFromBytes(data[:HeaderSize], &header)

	if header.Magic != Magic {
		return Header{}, fmt.Errorf("%w: bad magic 0x%08x", ErrProtocol, header.Magic)
	}
	if int(header.Size) < HeaderSize || int(header.Size) > MaxFrameSize {
		return Header{}, fmt.Errorf("%w: invalid frame size %d", ErrProtocol, header.Size)
	}
	return header, nil
}

// Unmarshal decodes a full frame into pkt, enforcing that the payload is
// exactly as long as the target struct expects.
func Unmarshal(data []byte, pkt interface{}) error {
	expected := binary.Size(pkt)
	if expected < 0 {
		panic(fmt.Sprintf("Unmarshal(): %T is not a fixed size struct", pkt))
	}
	if len(data) < expected {
		return fmt.Errorf("%w: truncated frame (%d bytes, want %d)", ErrProtocol, len(data), expected)
	}
	bytes.StructFromBytes(data[:expected], pkt)
	return nil
}
