package debug

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/davecgh/go-spew/spew"

	"croupier/internal/packets"
)

// Associates frame types with the structs that implement them so that
// captured frames can be decoded and dumped. New frame types must also be
// added here for the packet printer and sniffer to name them correctly.
var packetTypes = map[uint16]func() interface{}{
	packets.OfferType:        func() interface{} { return &packets.Offer{} },
	packets.JoinType:         func() interface{} { return &packets.Join{} },
	packets.BetType:          func() interface{} { return &packets.Bet{} },
	packets.DealType:         func() interface{} { return &packets.Deal{} },
	packets.ActionType:       func() interface{} { return &packets.Action{} },
	packets.HandUpdateType:   func() interface{} { return &packets.HandUpdate{} },
	packets.DealerRevealType: func() interface{} { return &packets.DealerReveal{} },
	packets.RoundResultType:  func() interface{} { return &packets.RoundResult{} },
	packets.ErrorType:        func() interface{} { return &packets.Error{} },
}

// DecodePacket decodes a full frame into its typed struct representation.
func DecodePacket(data []byte) (interface{}, error) {
	header, err := packets.ParseHeader(data)
	if err != nil {
		return nil, err
	}

	newPacket, ok := packetTypes[header.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown frame type 0x%02x", packets.ErrProtocol, header.Type)
	}

	packet := newPacket()
	if err := packets.Unmarshal(data, packet); err != nil {
		return nil, err
	}
	return packet, nil
}

// PrintPacketParams are the arguments to PrintPacket.
type PrintPacketParams struct {
	Writer       *bufio.Writer
	ClientPacket bool
	Data         []byte
}

var spewConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true}

// PrintPacket writes a frame to the Writer as a hex/ascii dump followed by
// the decoded struct, or just the dump if the frame cannot be decoded.
func PrintPacket(params PrintPacketParams) {
	direction := "server->client"
	if params.ClientPacket {
		direction = "client->server"
	}

	header, err := packets.ParseHeader(params.Data)
	if err != nil {
		fmt.Fprintf(params.Writer, "[%s] undecodable frame: %v\n", direction, err)
	} else {
		fmt.Fprintf(params.Writer, "[%s] %s (%d bytes)\n", direction, packets.Name(header.Type), header.Size)
	}

	printPayload(params.Writer, params.Data)

	if packet, err := DecodePacket(params.Data); err == nil {
		spewConfig.Fdump(params.Writer, packet)
	}
	params.Writer.Flush()
}

const displayWidth = 16

// printPayload prints the contents of a frame in two columns, one for bytes
// and the other for their ascii representation.
func printPayload(w *bufio.Writer, data []uint8) {
	for offset := 0; offset < len(data); offset += displayWidth {
		end := offset + displayWidth
		if end > len(data) {
			end = len(data)
		}
		printPacketLine(w, data[offset:end], offset)
	}
}

func printPacketLine(w *bufio.Writer, data []uint8, offset int) {
	fmt.Fprintf(w, "(%04X) ", offset)

	for i, j := 0, 0; i < len(data); i++ {
		if j == 8 {
			// Visual aid - spacing between groups of 8 bytes.
			j = 0
			fmt.Fprint(w, "  ")
		}
		fmt.Fprintf(w, "%02x ", data[i])
		j++
	}
	// Fill in the gap if we don't have enough bytes to fill the line.
	for i := len(data); i < displayWidth; i++ {
		if i == 8 {
			fmt.Fprint(w, "  ")
		}
		fmt.Fprint(w, "   ")
	}
	fmt.Fprint(w, "    ")
	// Display the print characters as-is, others as periods.
	for i := 0; i < len(data); i++ {
		c := data[i]
		if strconv.IsPrint(rune(c)) {
			fmt.Fprintf(w, "%c", data[i])
		} else {
			fmt.Fprint(w, ".")
		}
	}
	fmt.Fprintln(w)
}
