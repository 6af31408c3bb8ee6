// Package ws carries the execution protocol over WebSocket.
//
// A remote presentation host connects to /stream and exchanges protocol
// messages encoded as JSON text frames. Each connection gets its own
// execution host, driven by a host.Worker with a bounded inbox and a
// watchdog, so sessions never share runtime or state.
//
// Message Types (Client → Server):
//   - initialize: boot the session's host
//   - execute: run a source module against a container size
//   - dispatch_input: press a node of the latest tree
//
// Message Types (Server → Client):
//   - ready / init_failed: boot outcome
//   - tree: a completed render
//   - execution_failed: a recoverable failure and its phase
//   - log: diagnostics, console output and dropped-request warnings
//
// Example Usage:
//
//	handler := ws.NewHandler(cfg, transformer, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
//	defer handler.Close()
package ws
