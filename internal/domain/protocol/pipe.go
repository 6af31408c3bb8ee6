package protocol

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a closed connection
var ErrClosed = errors.New("connection closed")

// Conn is one side of an ordered, bidirectional message channel
type Conn interface {
	Send(ctx context.Context, m Message) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// pipeEnd is one endpoint of an in-process Pipe. Messages travel encoded,
// so the receiver never aliases the sender's values.
type pipeEnd struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-process endpoints. Each direction buffers up
// to buffer messages before Send blocks.
func Pipe(buffer int) (Conn, Conn) {
	a := make(chan []byte, buffer)
	b := make(chan []byte, buffer)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: a, out: b, done: done, once: once},
		&pipeEnd{in: b, out: a, done: done, once: once}
}

// Send encodes and enqueues a message
func (p *pipeEnd) Send(ctx context.Context, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- data:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next message. Messages already queued are still
// delivered after Close.
func (p *pipeEnd) Receive(ctx context.Context) (Message, error) {
	select {
	case data := <-p.in:
		return Decode(data)
	default:
	}
	select {
	case data := <-p.in:
		return Decode(data)
	case <-p.done:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close closes both endpoints
func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
