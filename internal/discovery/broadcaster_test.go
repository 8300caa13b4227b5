package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"croupier/internal/core"
	corebytes "croupier/internal/core/bytes"
	"croupier/internal/packets"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// Binds a UDP listener on an ephemeral loopback port for the broadcaster to
// send to. Sending to loopback exercises the same code path as broadcast.
func testListener(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("error binding test listener: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	parts := strings.Split(conn.LocalAddr().String(), ":")
	port, _ := strconv.Atoi(parts[len(parts)-1])
	return conn, port
}

func receiveOffer(t *testing.T, conn *net.UDPConn) packets.Offer {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("error setting read deadline: %v", err)
	}

	buffer := make([]byte, 1024)
	n, err := conn.Read(buffer)
	if err != nil {
		t.Fatalf("error reading offer datagram: %v", err)
	}

	var offer packets.Offer
	if err := packets.Unmarshal(buffer[:n], &offer); err != nil {
		t.Fatalf("error decoding offer: %v", err)
	}
	return offer
}

func TestBroadcasterAnnouncesOffers(t *testing.T) {
	listener, port := testListener(t)

	cfg := &core.Config{ServerName: "House of Cards"}
	cfg.Discovery.BroadcastAddress = "127.0.0.1"
	cfg.Discovery.Port = port
	cfg.Discovery.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &Broadcaster{Config: cfg, Logger: testLogger(), SessionPort: 31222}
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	first := receiveOffer(t, listener)
	if first.Magic != packets.Magic {
		t.Errorf("offer magic = 0x%08x, want 0x%08x", first.Magic, uint32(packets.Magic))
	}
	if first.Type != packets.OfferType {
		t.Errorf("offer type = 0x%02x, want OfferType", first.Type)
	}
	if first.SessionPort != 31222 {
		t.Errorf("offer session port = %d, want 31222", first.SessionPort)
	}
	if got := string(corebytes.StripPadding(first.ServerName[:])); got != "House of Cards" {
		t.Errorf("offer server name = %q, want %q", got, "House of Cards")
	}

	// Each rebroadcast carries a fresh nonce.
	second := receiveOffer(t, listener)
	if second.Nonce == first.Nonce {
		t.Errorf("consecutive offers shared nonce %d", first.Nonce)
	}
}

func TestBroadcasterStopsOnCancel(t *testing.T) {
	listener, port := testListener(t)

	cfg := &core.Config{ServerName: "dealer"}
	cfg.Discovery.BroadcastAddress = "127.0.0.1"
	cfg.Discovery.Port = port
	cfg.Discovery.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	b := &Broadcaster{Config: cfg, Logger: testLogger(), SessionPort: 1}
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	receiveOffer(t, listener)
	cancel()

	// Drain anything sent before the loop observed the cancellation, then
	// expect silence.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 20; i++ {
		if err := listener.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			t.Fatalf("error setting read deadline: %v", err)
		}
		buffer := make([]byte, 1024)
		if _, err := listener.Read(buffer); err != nil {
			return // timed out: broadcasts stopped
		}
	}
	t.Error("broadcaster kept announcing after context cancellation")
}
