// Periodic UDP advertisement of the table server.
package discovery

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"croupier/internal/core"
	corebytes "croupier/internal/core/bytes"
	"croupier/internal/packets"
)

// Broadcaster periodically announces the server name and the session
// acceptor's port to the discovery port so clients can find the table
// without knowing its address. It never expects a reply.
type Broadcaster struct {
	Config *core.Config
	Logger *logrus.Logger

	// Port the session acceptor is actually bound to.
	SessionPort uint16

	conn  *net.UDPConn
	nonce uint32
}

// Start opens the send socket and spawns the announcement loop. The loop
// runs until ctx is cancelled; send failures are logged and do not stop
// subsequent ticks.
func (b *Broadcaster) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp4",
		fmt.Sprintf("%s:%d", b.Config.Discovery.BroadcastAddress, b.Config.Discovery.Port))
	if err != nil {
		return fmt.Errorf("error resolving discovery address: %w", err)
	}

	b.conn, err = net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("error opening discovery socket: %w", err)
	}

	b.Logger.Infof("[DISCOVERY] announcing %s on %v every %v",
		b.Config.ServerName, addr, b.Config.Discovery.Interval)

	go b.announceLoop(ctx)
	return nil
}

func (b *Broadcaster) announceLoop(ctx context.Context) {
	ticker := time.NewTicker(b.Config.Discovery.Interval)
	defer ticker.Stop()
	defer b.Close()

	for {
		select {
		case <-ctx.Done():
			b.Logger.Infof("[DISCOVERY] exited")
			return
		case <-ticker.C:
			if _, err := b.conn.Write(b.nextOffer()); err != nil {
				// Best effort; the next tick may succeed (e.g. after the
				// network interface comes back).
				b.Logger.Warnf("[DISCOVERY] offer send failed: %s", err)
			}
		}
	}
}

// nextOffer packs a fresh offer frame. Offers are ephemeral: each tick gets
// a new nonce so listeners can tell rebroadcasts apart.
func (b *Broadcaster) nextOffer() []byte {
	b.nonce++

	offer := &packets.Offer{
		Header: packets.Header{
			Magic: packets.Magic,
			Size:  uint16(binary.Size(packets.Offer{})),
			Type:  packets.OfferType,
		},
		SessionPort: b.SessionPort,
		Nonce:       b.nonce,
		ServerName:  corebytes.FixedName(b.Config.ServerName),
	}
	data, _ := corebytes.BytesFromStruct(offer)
	return data
}

// Close shuts the send socket. Safe to call once Start has returned successfully.
func (b *Broadcaster) Close() error {
	return b.conn.Close()
}
