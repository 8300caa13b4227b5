package main

import (
	"bufio"
	"encoding/binary"

	"github.com/google/gopacket"

	"croupier/internal/core/debug"
	"croupier/internal/packets"
)

// sniffer reassembles table frames out of captured TCP segments and prints
// them. Traffic in each direction is buffered separately since frames from
// the client and server interleave on the wire.
type sniffer struct {
	Writer    *bufio.Writer
	TablePort uint16

	toServer   frameBuffer
	fromServer frameBuffer
}

// frameBuffer accumulates raw payload bytes for one direction until at least
// one whole frame is available.
type frameBuffer struct {
	buffer []byte
}

func (fb *frameBuffer) append(data []byte) {
	fb.buffer = append(fb.buffer, data...)
}

// nextFrame pops one complete frame off the front of the buffer, or returns
// nil if a full frame hasn't arrived yet. Undecodable leading bytes (e.g.
// from joining a capture mid-frame) are discarded.
func (fb *frameBuffer) nextFrame() []byte {
	if len(fb.buffer) < packets.HeaderSize {
		return nil
	}

	header, err := packets.ParseHeader(fb.buffer)
	if err != nil {
		fb.buffer = nil
		return nil
	}

	if len(fb.buffer) < int(header.Size) {
		return nil
	}

	frame := fb.buffer[:header.Size]
	fb.buffer = fb.buffer[header.Size:]
	return frame
}

func (s *sniffer) startReading(packetChan chan gopacket.Packet) {
	for packet := range packetChan {
		transport := packet.TransportLayer()
		app := packet.ApplicationLayer()
		if transport == nil || app == nil {
			continue
		}

		flow := transport.TransportFlow()
		srcPort := binary.BigEndian.Uint16(flow.Src().Raw())
		dstPort := binary.BigEndian.Uint16(flow.Dst().Raw())

		switch {
		case dstPort == s.TablePort:
			s.handleTCPData(&s.toServer, true, app.Payload())
		case srcPort == s.TablePort:
			s.handleTCPData(&s.fromServer, false, app.Payload())
		default:
			// Discovery offers are datagrams, one frame per packet.
			debug.PrintPacket(debug.PrintPacketParams{
				Writer:       s.Writer,
				ClientPacket: false,
				Data:         app.Payload(),
			})
		}
	}
}

func (s *sniffer) handleTCPData(fb *frameBuffer, clientPacket bool, data []byte) {
	fb.append(data)

	// Multiple frames might be sent as part of the same segment, so keep
	// popping until the buffer runs dry.
	for frame := fb.nextFrame(); frame != nil; frame = fb.nextFrame() {
		debug.PrintPacket(debug.PrintPacketParams{
			Writer:       s.Writer,
			ClientPacket: clientPacket,
			Data:         frame,
		})
	}
}
