// Package protocol defines the messages exchanged between an execution host
// and a presentation host. Messages only ever cross the boundary in encoded
// form; the two sides share no memory.
package protocol

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// Type discriminates messages
type Type string

const (
	// Presentation to host
	TypeInitialize    Type = "initialize"
	TypeExecute       Type = "execute"
	TypeDispatchInput Type = "dispatch_input"

	// Host to presentation
	TypeReady           Type = "ready"
	TypeInitFailed      Type = "init_failed"
	TypeTree            Type = "tree"
	TypeExecutionFailed Type = "execution_failed"
	TypeLog             Type = "log"
)

var knownTypes = map[Type]bool{
	TypeInitialize:      true,
	TypeExecute:         true,
	TypeDispatchInput:   true,
	TypeReady:           true,
	TypeInitFailed:      true,
	TypeTree:            true,
	TypeExecutionFailed: true,
	TypeLog:             true,
}

// Level is the severity of a Log message
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// InputKind names the input gesture being dispatched
type InputKind string

const (
	InputPress InputKind = "press"
)

// Message is the envelope for every protocol message. Only the fields
// relevant to Type are set.
type Message struct {
	Type      Type             `json:"type"`
	Source    string           `json:"source,omitempty"`
	Width     float64          `json:"width,omitempty"`
	Height    float64          `json:"height,omitempty"`
	Tree      *tree.Serialized `json:"tree,omitempty"`
	Error     string           `json:"error,omitempty"`
	Phase     string           `json:"phase,omitempty"`
	Level     Level            `json:"level,omitempty"`
	Text      string           `json:"text,omitempty"`
	NodeID    string           `json:"node_id,omitempty"`
	Input     InputKind        `json:"input,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

func now() int64 {
	return time.Now().UnixMilli()
}

// Initialize asks the host to boot
func Initialize() Message {
	return Message{Type: TypeInitialize, Timestamp: now()}
}

// Ready reports a successful boot
func Ready() Message {
	return Message{Type: TypeReady, Timestamp: now()}
}

// InitFailed reports a fatal boot failure
func InitFailed(err error) Message {
	return Message{Type: TypeInitFailed, Error: errorText(err), Timestamp: now()}
}

// Execute requests a full execution pass
func Execute(source string, width, height float64) Message {
	return Message{Type: TypeExecute, Source: source, Width: width, Height: height, Timestamp: now()}
}

// TreeDelivered carries a completed render
func TreeDelivered(t *tree.Serialized) Message {
	return Message{Type: TypeTree, Tree: t, Timestamp: now()}
}

// ExecutionFailed reports a recoverable pass failure and the phase it failed in
func ExecutionFailed(err error, phase string) Message {
	return Message{Type: TypeExecutionFailed, Error: errorText(err), Phase: phase, Timestamp: now()}
}

// Log carries a diagnostic
func Log(level Level, text string) Message {
	return Message{Type: TypeLog, Level: level, Text: text, Timestamp: now()}
}

// DispatchInput routes an input gesture to a node of the latest tree
func DispatchInput(nodeID string, kind InputKind) Message {
	return Message{Type: TypeDispatchInput, NodeID: nodeID, Input: kind, Timestamp: now()}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
