package protocol

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	// ErrUnknownType is returned when decoding a message with an unrecognized type
	ErrUnknownType = errors.New("unknown message type")
	// ErrInvalidMessage is returned when a message is missing required fields
	ErrInvalidMessage = errors.New("invalid message")
)

// Encode serializes a message to JSON
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := sonic.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses and validates a JSON message
func Decode(data []byte) (Message, error) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Validate checks the type and the fields the type requires
func (m Message) Validate() error {
	if !knownTypes[m.Type] {
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	switch m.Type {
	case TypeExecute:
		if m.Width < 0 || m.Height < 0 {
			return fmt.Errorf("%w: negative container size", ErrInvalidMessage)
		}
	case TypeDispatchInput:
		if m.NodeID == "" {
			return fmt.Errorf("%w: dispatch without node id", ErrInvalidMessage)
		}
	case TypeLog:
		if m.Level == "" {
			return fmt.Errorf("%w: log without level", ErrInvalidMessage)
		}
	}
	return nil
}
