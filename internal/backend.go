package internal

import (
	"context"

	"croupier/internal/core/client"
)

// Backend is an interface for a server that handles a specific set of
// client interactions over connections accepted by a frontend.
type Backend interface {
	// Identifier returns a uniquely identifying string.
	Identifier() string

	// Init is called before a Backend is started as a hook for the Backend to
	// perform any necessary initialization before it can accept clients.
	Init(ctx context.Context) error

	// SetUpClient performs any initialization on the Client needed to be
	// able to begin the session.
	SetUpClient(c *client.Client)

	// Handshake performs any connection initialization necessary to begin
	// communicating with the client. May be a no-op for protocols where the
	// client speaks first.
	Handshake(c *client.Client) error

	// Handle is the main entry point for processing client frames. It's
	// responsible for generally handling all frames from a client as well
	// as sending any responses. A returned error terminates the session.
	Handle(ctx context.Context, c *client.Client, frame []byte) error

	// Disconnect is called exactly once after the client's connection has
	// been closed, regardless of which side closed it.
	Disconnect(c *client.Client)
}
