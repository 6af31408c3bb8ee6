package host

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// Config defines host configuration
type Config struct {
	MaxCallStackSize int  // Maximum JS call depth
	EnableConsole    bool // Forward console.* as Log messages
	DebugState       bool // Flag state cell count changes between passes
	MaxRerenders     int  // Consecutive state-triggered passes before failing
}

// DefaultConfig returns the default host configuration
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		DebugState:       false,
		MaxRerenders:     25,
	}
}

// State is the lifecycle state of a host
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateExecuting
	StateIdle
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	case StateIdle:
		return "idle"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Emitter receives every message a host produces, in order
type Emitter func(protocol.Message)

// Observer receives host measurements
type Observer interface {
	PassCompleted(outcome string, duration time.Duration, nodes int)
	PhaseCompleted(phase Phase, duration time.Duration)
	DispatchCompleted(outcome string)
}

type nopObserver struct{}

func (nopObserver) PassCompleted(string, time.Duration, int) {}
func (nopObserver) PhaseCompleted(Phase, time.Duration)     {}
func (nopObserver) DispatchCompleted(string)                {}

// LogEntry is one diagnostic emitted during a render
type LogEntry struct {
	Level   protocol.Level `json:"level"`
	Message string         `json:"message"`
	Time    time.Time      `json:"time"`
}

// Result collects the outcome of a one-shot render
type Result struct {
	Tree     *tree.Serialized `json:"tree"`
	Logs     []LogEntry       `json:"logs"`
	Error    string           `json:"error,omitempty"`
	Phase    Phase            `json:"phase,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// Collect returns an Emitter that records messages into r
func (r *Result) Collect() Emitter {
	return func(m protocol.Message) {
		switch m.Type {
		case protocol.TypeTree:
			r.Tree = m.Tree
		case protocol.TypeLog:
			r.Logs = append(r.Logs, LogEntry{Level: m.Level, Message: m.Text, Time: time.UnixMilli(m.Timestamp)})
		case protocol.TypeExecutionFailed, protocol.TypeInitFailed:
			r.Error = m.Error
			r.Phase = Phase(m.Phase)
		}
	}
}
