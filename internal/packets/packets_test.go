package packets

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"croupier/internal/core/bytes"
)

func header(frameType uint16, size int) Header {
	return Header{Magic: Magic, Size: uint16(size), Type: frameType}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		packet interface{}
		decode func(data []byte) (interface{}, error)
	}{
		{
			name: "offer",
			packet: &Offer{
				Header:      header(OfferType, 46),
				SessionPort: 31222,
				Nonce:       0xDEADBEEF,
				ServerName:  bytes.FixedName("House of Cards"),
			},
			decode: func(data []byte) (interface{}, error) {
				var pkt Offer
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name: "join",
			packet: &Join{
				Header:     header(JoinType, 40),
				PlayerName: bytes.FixedName("Scully"),
			},
			decode: func(data []byte) (interface{}, error) {
				var pkt Join
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name:   "bet",
			packet: &Bet{Header: header(BetType, 12), Amount: 250},
			decode: func(data []byte) (interface{}, error) {
				var pkt Bet
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name: "deal",
			packet: &Deal{
				Header:       header(DealType, 16),
				PlayerCards:  [2]Card{{Rank: 10, Suit: 2}, {Rank: 1, Suit: 3}},
				PlayerValue:  21,
				Blackjack:    1,
				DealerUpcard: Card{Rank: 9, Suit: 1},
			},
			decode: func(data []byte) (interface{}, error) {
				var pkt Deal
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name:   "action",
			packet: &Action{Header: header(ActionType, 9), Kind: ActionHit},
			decode: func(data []byte) (interface{}, error) {
				var pkt Action
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name: "hand update",
			packet: &HandUpdate{
				Header:   header(HandUpdateType, 37),
				Drawn:    Card{Rank: 13, Suit: 3},
				Cards:    [MaxHandCards]Card{{Rank: 10, Suit: 0}, {Rank: 5, Suit: 1}, {Rank: 13, Suit: 3}},
				NumCards: 3,
				Value:    25,
				Bust:     1,
			},
			decode: func(data []byte) (interface{}, error) {
				var pkt HandUpdate
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name: "dealer reveal",
			packet: &DealerReveal{
				Header:   header(DealerRevealType, 35),
				Cards:    [MaxHandCards]Card{{Rank: 10, Suit: 1}, {Rank: 8, Suit: 2}},
				NumCards: 2,
				Value:    18,
			},
			decode: func(data []byte) (interface{}, error) {
				var pkt DealerReveal
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name: "round result",
			packet: &RoundResult{
				Header:  header(RoundResultType, 17),
				Outcome: OutcomeBlackjack,
				Payout:  375,
				Balance: 1125,
			},
			decode: func(data []byte) (interface{}, error) {
				var pkt RoundResult
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
		{
			name: "error",
			packet: &Error{
				Header:  header(ErrorType, 73),
				Code:    ErrorCodeInvalidBet,
				Message: func() (m [64]byte) { copy(m[:], "bet exceeds balance"); return }(),
			},
			decode: func(data []byte) (interface{}, error) {
				var pkt Error
				err := Unmarshal(data, &pkt)
				return &pkt, err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := bytes.BytesFromStruct(tt.packet)

			got, err := tt.decode(data)
			if err != nil {
				t.Fatalf("decode returned error: %v", err)
			}
			if diff := cmp.Diff(tt.packet, got); diff != "" {
				t.Errorf("decoded packet did not match encoded; diff:\n%s", diff)
			}

			// Decoding the same frame twice must yield identical values.
			again, err := tt.decode(data)
			if err != nil {
				t.Fatalf("second decode returned error: %v", err)
			}
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("second decode differed from first; diff:\n%s", diff)
			}
		})
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Header
		wantErr bool
	}{
		{
			name: "valid header",
			data: func() []byte {
				b, _ := bytes.BytesFromStruct(&Bet{Header: header(BetType, 12), Amount: 100})
				return b
			}(),
			want: Header{Magic: Magic, Size: 12, Type: BetType},
		},
		{
			name:    "short header",
			data:    []byte{0xAB, 0xCD},
			wantErr: true,
		},
		{
			name:    "bad magic",
			data:    []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x0C, 0x00, 0x04},
			wantErr: true,
		},
		{
			name:    "declared size smaller than header",
			data:    []byte{0xAB, 0xCD, 0xDC, 0xBA, 0x00, 0x04, 0x00, 0x04},
			wantErr: true,
		},
		{
			name:    "declared size above maximum",
			data:    []byte{0xAB, 0xCD, 0xDC, 0xBA, 0xFF, 0xFF, 0x00, 0x04},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeader() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrProtocol) {
					t.Errorf("ParseHeader() error = %v, want ErrProtocol", err)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("header did not match expected; diff:\n%s", diff)
			}
		})
	}
}

func TestUnmarshalTruncatedFrame(t *testing.T) {
	data, _ := bytes.BytesFromStruct(&Join{Header: header(JoinType, 40), PlayerName: bytes.FixedName("Mulder")})

	var pkt Join
	if err := Unmarshal(data[:20], &pkt); !errors.Is(err, ErrProtocol) {
		t.Errorf("Unmarshal() on truncated frame = %v, want ErrProtocol", err)
	}
}
