package session

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// Info is a snapshot of one live session
type Info struct {
	ID         string    `json:"id"`
	Client     string    `json:"client,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OpenedAt   time.Time `json:"opened_at"`
	LastActive time.Time `json:"last_active"`
	Executions int64     `json:"executions"`
	Dispatches int64     `json:"dispatches"`
	Trees      int64     `json:"trees"`
	Failures   int64     `json:"failures"`
	Nodes      int       `json:"nodes"`
	LastError  string    `json:"last_error,omitempty"`
}

// Stats summarizes the registry
type Stats struct {
	Active     int   `json:"active"`
	Opened     int64 `json:"opened"`
	Executions int64 `json:"executions"`
	Dispatches int64 `json:"dispatches"`
	Failures   int64 `json:"failures"`
}

// Manager is the registry of live sessions
type Manager struct {
	sessions sync.Map // id -> *Session
	active   int64    // Atomic
	opened   int64    // Atomic
	now      func() time.Time
}

// NewManager creates an empty registry
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// Session tracks one connection
type Session struct {
	mu     sync.Mutex
	info   Info
	tree   *tree.Serialized
	cancel func()
	now    func() time.Time
}

// Open registers a new session
func (m *Manager) Open(id, client, userAgent string) *Session {
	now := m.now()
	s := &Session{
		info: Info{
			ID:         id,
			Client:     client,
			UserAgent:  userAgent,
			OpenedAt:   now,
			LastActive: now,
		},
		now: m.now,
	}
	if _, loaded := m.sessions.LoadOrStore(id, s); loaded {
		m.sessions.Store(id, s)
	} else {
		atomic.AddInt64(&m.active, 1)
	}
	atomic.AddInt64(&m.opened, 1)
	return s
}

// Close removes a session; it reports whether the session was registered
func (m *Manager) Close(id string) bool {
	if _, ok := m.sessions.LoadAndDelete(id); ok {
		atomic.AddInt64(&m.active, -1)
		return true
	}
	return false
}

// Terminate ends a session through the cancel function its transport
// installed. The transport then closes it.
func (m *Manager) Terminate(id string) bool {
	v, ok := m.sessions.Load(id)
	if !ok {
		return false
	}
	s := v.(*Session)
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Get returns a snapshot of one session
func (m *Manager) Get(id string) (Info, bool) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return Info{}, false
	}
	return v.(*Session).Info(), true
}

// Tree returns the most recent tree a session emitted
func (m *Manager) Tree(id string) (*tree.Serialized, bool) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree, s.tree != nil
}

// List returns snapshots ordered by opening time
func (m *Manager) List() []Info {
	var out []Info
	m.sessions.Range(func(_, value interface{}) bool {
		out = append(out, value.(*Session).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	return int(atomic.LoadInt64(&m.active))
}

// Stats aggregates counters over live sessions
func (m *Manager) Stats() Stats {
	stats := Stats{
		Active: m.Len(),
		Opened: atomic.LoadInt64(&m.opened),
	}
	m.sessions.Range(func(_, value interface{}) bool {
		info := value.(*Session).Info()
		stats.Executions += info.Executions
		stats.Dispatches += info.Dispatches
		stats.Failures += info.Failures
		return true
	})
	return stats
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.info.ID
}

// SetCancel installs the function Terminate calls
func (s *Session) SetCancel(cancel func()) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// Observe records a request accepted from the client or a message the
// execution host emitted
func (s *Session) Observe(m protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m.Type {
	case protocol.TypeExecute:
		s.info.Executions++
	case protocol.TypeDispatchInput:
		s.info.Dispatches++
	case protocol.TypeTree:
		s.info.Trees++
		s.info.LastError = ""
		s.tree = m.Tree
		s.info.Nodes = m.Tree.Count()
	case protocol.TypeExecutionFailed, protocol.TypeInitFailed:
		s.info.Failures++
		s.info.LastError = m.Error
	default:
		return
	}
	s.info.LastActive = s.now()
}

// Info returns a snapshot
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}
