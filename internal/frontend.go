package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"croupier/internal/core"
	"croupier/internal/core/client"
	archdebug "croupier/internal/core/debug"
	"croupier/internal/packets"
)

// frontend implements the concurrent client connection logic.
//
// Data is read from any connected clients and passed to a backend instance,
// abstracting the lower level connection details away from the Backends.
type frontend struct {
	Address string
	Backend Backend
	Config  *core.Config
	Logger  *logrus.Logger

	socket  *net.TCPListener
	clients *clientList
}

// Start initializes the server backend and opens a TCP socket for the specified
// server. A blocking loop for accepting client connections is spun off in its
// own goroutine and added to the WaitGroup. Context cancellations will stop the
// server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := f.Backend.Init(ctx); err != nil {
		return fmt.Errorf("error initializing %s server: %v", f.Backend.Identifier(), err)
	}

	socket, err := f.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %v", f.Address, err)
	}
	f.socket = socket
	f.clients = newClientList()

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

// Port returns the TCP port the frontend is actually bound to, which may
// have been chosen by the OS. Only valid after Start succeeds.
func (f *frontend) Port() uint16 {
	return uint16(f.socket.Addr().(*net.TCPAddr).Port)
}

// createSocket opens a TCP socket to listen for client connections on the
// Address provided to the frontend.
func (f *frontend) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %s", err.Error())
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %s", err.Error())
	}

	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely
// responsible for accepting new connections and spinning off goroutines for
// the Backend to handle them.
func (f *frontend) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Infof("[%s] waiting for connections on %v", f.Backend.Identifier(), socket.Addr())

	// Unblock AcceptTCP when the server is shutting down.
	go func() {
		<-ctx.Done()
		_ = socket.Close()
	}()

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for f.Config.MaxConnections > 0 && f.clients.len() >= f.Config.MaxConnections {
				time.Sleep(time.Second)
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					close(connections)
					return
				}
				// One failed accept must not take the acceptor down.
				f.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection, ok := <-connections:
			if !ok {
				break handleLoop
			}
			clientWg.Add(1)
			// Note: If there is eventually a need to implement worker pooling
			// rather than spawning new goroutines for each client, this is
			// where it should be implemented.
			go f.acceptClient(ctx, connection, clientWg)
		}
	}

	f.Logger.Infof("[%v] shutting down (waiting for connections to close)", f.Backend.Identifier())
	f.clients.closeAll()
	clientWg.Wait()
	f.Logger.Infof("[%v] exited", f.Backend.Identifier())
}

// acceptClient takes a connection and attempts to initiate a "session" by
// setting up the Client and performing the handshake. If it succeeds, the
// goroutine moves into the frame processing loop.
func (f *frontend) acceptClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	c := client.NewClient(connection)
	f.Backend.SetUpClient(c)
	c.Debug = f.Config.Debugging.PacketLoggingEnabled

	f.Logger.Infof("[%s] accepted connection from %s", f.Backend.Identifier(), c.IPAddr())

	if err := f.Backend.Handshake(c); err != nil {
		f.Logger.Errorf("Handshake() failed for client %s: %s", c.IPAddr(), err)
		_ = connection.Close()
		return
	}

	f.clients.add(c)
	f.processFrames(ctx, c)
}

// processFrames starts a blocking loop dedicated to reading data sent from a
// game client and only returns once the connection has closed.
func (f *frontend) processFrames(ctx context.Context, c *client.Client) {
	defer f.closeConnectionAndRecover(f.Backend.Identifier(), c)

	buffer := make([]byte, 2048)
	var size int
	var err error

	for {
		select {
		case <-ctx.Done():
			// For now just allow the deferred function to close the connection.
			return
		default:
		}

		buffer, size, err = f.readNextFrame(c, buffer)

		if err == io.EOF {
			break
		} else if err != nil {
			f.Logger.Warn(err.Error())
			break
		}

		if c.Debug {
			archdebug.PrintPacket(archdebug.PrintPacketParams{
				Writer:       bufio.NewWriter(os.Stdout),
				ClientPacket: true,
				Data:         buffer[:size],
			})
		}

		if err = f.Backend.Handle(ctx, c, buffer[:size]); err != nil {
			f.Logger.Warn("error in client communication: " + err.Error())
			return
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics,
// disconnects the client, and removes them from the list regardless of the
// state of the connection.
func (f *frontend) closeConnectionAndRecover(serverName string, c *client.Client) {
	if err := recover(); err != nil {
		f.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.IPAddr(), err, debug.Stack())
	}

	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		f.Logger.Warnf("failed to close client connection: %s", err)
	}

	f.clients.remove(c)
	f.Backend.Disconnect(c)

	f.Logger.Infof("[%s] disconnected client %s", serverName, c.IPAddr())
}

// readNextFrame is a blocking call that only returns once the client has sent
// the next frame to be processed, returning the (possibly grown) buffer and
// the frame's length.
func (f *frontend) readNextFrame(c *client.Client, buffer []byte) ([]byte, int, error) {
	if f.Config.Table.IdleTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(f.Config.Table.IdleTimeout)); err != nil {
			return buffer, 0, err
		}
	}

	if err := f.readDataFromClient(c, packets.HeaderSize, buffer); err != nil {
		return buffer, 0, err
	}

	header, err := packets.ParseHeader(buffer[:packets.HeaderSize])
	if err != nil {
		return buffer, 0, err
	}

	frameSize := int(header.Size)

	// Grow the receive buffer if the client sends us a frame bigger than its
	// current capacity.
	if frameSize > cap(buffer) {
		newBuf := make([]byte, cap(buffer)+frameSize)
		copy(newBuf, buffer)
		buffer = newBuf
	}

	if err := f.readDataFromClient(c, frameSize-packets.HeaderSize, buffer[packets.HeaderSize:]); err != nil {
		return buffer, 0, err
	}

	return buffer, frameSize, nil
}

func (f *frontend) readDataFromClient(c *client.Client, n int, buffer []byte) error {
	received := 0

	for received < n {
		bytesRead, err := c.Read(buffer[received:n])
		received += bytesRead

		if bytesRead == 0 || err == io.EOF {
			return io.EOF
		} else if err != nil {
			return errors.New("socket error (" + c.IPAddr() + ") " + err.Error())
		}
	}

	return nil
}
