package websocket

import (
	"errors"
	"sync"
)

var errClientClosed = errors.New("connection closed")

// Conn is the subset of the websocket connection the handler uses. Narrowed
// to an interface so tests can drive the loop with a fake connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// client serializes writes to the connection and latches closed state, so an
// offloaded job finishing after disconnect cannot write to a dead socket.
type client struct {
	mu     sync.Mutex
	conn   Conn
	closed bool
}

func newClient(conn Conn) *client {
	return &client{conn: conn}
}

func (c *client) sendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	return c.conn.WriteJSON(v)
}

func (c *client) sendControl(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	return c.conn.WriteMessage(messageType, data)
}

// shutdown marks the client closed and closes the underlying connection.
// Idempotent.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}
