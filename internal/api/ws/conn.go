package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Message directions reported to the observer
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// Conn carries protocol messages over a websocket, one JSON text frame per
// message. Send is safe for concurrent use; Receive is not.
type Conn struct {
	ws       *websocket.Conn
	writeMu  sync.Mutex
	observe  func(direction, msgType string)
	pongWait time.Duration // read deadline extended by each pong
	done     chan struct{}
	once     sync.Once
}

// NewConn wraps ws. observe may be nil. The read deadline and pong handler
// are installed here, before any read starts; each pong extends the deadline.
func NewConn(ws *websocket.Conn, observe func(direction, msgType string)) *Conn {
	return newConn(ws, observe, pongWait)
}

func newConn(ws *websocket.Conn, observe func(direction, msgType string), wait time.Duration) *Conn {
	if observe == nil {
		observe = func(string, string) {}
	}
	ws.SetReadLimit(utils.MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(wait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wait))
	})
	return &Conn{ws: ws, observe: observe, pongWait: wait, done: make(chan struct{})}
}

// Send encodes m and writes it as one text frame
func (c *Conn) Send(ctx context.Context, m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed() {
		return protocol.ErrClosed
	}
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return c.mapErr(err)
	}
	c.observe(DirectionOut, string(m.Type))
	return nil
}

// Receive reads the next frame. Frames that do not decode to a valid
// message return an error wrapping protocol.ErrInvalidMessage or
// protocol.ErrUnknownType and leave the connection usable.
func (c *Conn) Receive(ctx context.Context) (protocol.Message, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Message{}, err
	}

	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return protocol.Message{}, c.mapErr(err)
	}
	if kind != websocket.TextMessage {
		c.observe(DirectionIn, "invalid")
		return protocol.Message{}, fmt.Errorf("%w: binary frame", protocol.ErrInvalidMessage)
	}

	m, err := protocol.Decode(data)
	if err != nil {
		c.observe(DirectionIn, "invalid")
		if !errors.Is(err, protocol.ErrUnknownType) && !errors.Is(err, protocol.ErrInvalidMessage) {
			err = fmt.Errorf("%w: %v", protocol.ErrInvalidMessage, err)
		}
		return protocol.Message{}, err
	}
	c.observe(DirectionIn, string(m.Type))
	return m, nil
}

// KeepAlive pings the peer until ctx ends or the connection closes. A peer
// that stops answering makes the pending Receive fail.
func (c *Conn) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Close sends a close frame and closes the socket
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) mapErr(err error) error {
	if c.closed() {
		return protocol.ErrClosed
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return protocol.ErrClosed
	}
	return err
}

var _ protocol.Conn = (*Conn)(nil)
