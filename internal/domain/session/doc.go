// Package session tracks the live execution sessions served over the
// stream transport.
//
// Each connection registers a Session on open and closes it on disconnect.
// The transport reports every accepted request and every emitted message,
// so the registry always knows each session's counters, its last error and
// its most recent tree. Operators can list sessions, inspect one, or
// terminate it.
//
// Example usage:
//
//	sessions := session.NewManager()
//	s := sessions.Open(id, client, userAgent)
//	defer sessions.Close(s.ID())
//	s.Observe(msg)
//	infos := sessions.List()
package session
