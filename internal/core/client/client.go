package client

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"croupier/internal/core/bytes"
	"croupier/internal/packets"
)

// Client represents one remote player connected to the table server.
type Client struct {
	connection net.Conn
	ipAddr     string
	port       string

	// Whether decoded frames should be logged for this connection.
	Debug bool

	// Extension holds per-session state owned by the Backend serving
	// this connection. Nothing else touches it.
	Extension interface{}

	// Debugging information used for logging purposes.
	DebugTags map[string]interface{}
}

func NewClient(connection net.Conn) *Client {
	c := &Client{
		connection: connection,
		DebugTags:  make(map[string]interface{}),
	}

	addr := strings.Split(connection.RemoteAddr().String(), ":")
	c.ipAddr = addr[0]
	if len(addr) > 1 {
		c.port = addr[1]
	}
	return c
}

func (c *Client) IPAddr() string { return c.ipAddr }
func (c *Client) Port() string   { return c.port }

// Read consumes the available bytes directly from the client's TCP connection.
func (c *Client) Read(b []byte) (int, error) {
	return c.connection.Read(b)
}

// Write directly sends data to the client over its TCP connection.
func (c *Client) Write(bytes []byte) (int, error) {
	return c.connection.Write(bytes)
}

// Close the TCP connection.
func (c *Client) Close() error {
	return c.connection.Close()
}

// SetReadDeadline bounds how long the next Read may block. A zero time
// clears any existing deadline.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.connection.SetReadDeadline(t)
}

// Send serializes a frame struct and writes it to the client. The frame's
// header Magic and Size fields are filled in from the serialized length, so
// callers only need to set the Type.
func (c *Client) Send(packet interface{}) error {
	data, length := bytes.BytesFromStruct(packet)
	stampHeader(data, uint16(length))
	return c.transmit(data, uint16(length))
}

// transmit writes the contents of data to the TCP connection until the number
// of bytes written >= length.
func (c *Client) transmit(data []byte, length uint16) error {
	bytesSent := 0

	for bytesSent < int(length) {
		b, err := c.Write(data[bytesSent:length])
		if err != nil {
			return fmt.Errorf("failed to send to client %v: %s", c.IPAddr(), err.Error())
		}
		bytesSent += b
	}

	return nil
}

// stampHeader overwrites the magic and size fields at the head of a
// serialized frame with their correct values, in network byte order.
func stampHeader(data []byte, length uint16) {
	binary.BigEndian.PutUint32(data[0:4], packets.Magic)
	binary.BigEndian.PutUint16(data[4:6], length)
}
