package internal

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"croupier/internal/core"
	"croupier/internal/core/client"
)

// stubBackend accepts anything and records disconnects.
type stubBackend struct {
	disconnected chan *client.Client
}

func (b *stubBackend) Identifier() string           { return "STUB" }
func (b *stubBackend) Init(_ context.Context) error { return nil }
func (b *stubBackend) SetUpClient(_ *client.Client) {}
func (b *stubBackend) Handshake(_ *client.Client) error { return nil }
func (b *stubBackend) Handle(_ context.Context, _ *client.Client, _ []byte) error {
	return nil
}
func (b *stubBackend) Disconnect(c *client.Client) { b.disconnected <- c }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestFrontendDrainsConnectionsOnShutdown(t *testing.T) {
	backend := &stubBackend{disconnected: make(chan *client.Client, 1)}
	f := &frontend{
		Address: "127.0.0.1:0",
		Backend: backend,
		Config:  &core.Config{},
		Logger:  testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	if err := f.Start(ctx, wg); err != nil {
		t.Fatalf("Start() returned error: %s", err)
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", f.Port()))
	if err != nil {
		t.Fatalf("error connecting to frontend: %s", err)
	}
	defer conn.Close()

	// Wait for the connection to make it into the registry before shutting
	// down, otherwise the drain has nothing to close.
	deadline := time.Now().Add(5 * time.Second)
	for f.clients.len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the client to register")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()

	// The WaitGroup is what the shutdown path blocks on; it must release
	// once all client goroutines have exited.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("frontend did not drain connections after cancellation")
	}

	select {
	case <-backend.disconnected:
	default:
		t.Error("backend was not told about the disconnect")
	}

	// The server side closed the connection during the drain.
	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("error setting read deadline: %s", err)
	}
	buffer := make([]byte, 1)
	if _, err := conn.Read(buffer); err == nil {
		t.Error("expected the connection to be closed by the server")
	}
}
