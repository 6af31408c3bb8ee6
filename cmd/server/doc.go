// Package main is the entry point for the sandbox server.
//
// The server executes untrusted component modules in isolated execution
// hosts and serves the resulting layout trees.
//
// The server provides:
//   - WebSocket sessions speaking the execution protocol (/stream)
//   - One-shot JSON, PNG and HTML renders (/render, /render/png, /render/html)
//   - A module library (/modules) seeded from -modules
//   - Live session inspection and termination (/sessions)
//   - The Renderer gRPC service on -grpc-port
//   - Prometheus metrics (/metrics) and a JSON summary (/metrics/summary)
//   - The runtime log level (/log/level)
//
// Configuration:
//   - Environment variables (12-factor)
//   - A TOML or YAML file via -config, layered on defaults
//   - CLI flags override both
//
// Usage:
//
//	./server -port 8080
//	./server -config sandbox.toml -dev
//	./server -modules ./components -grpc-port 9090
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
