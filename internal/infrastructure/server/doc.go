// Package server assembles the sandbox service: transformer chain, host
// pool, painter and HTML exporter, module library, middleware, HTTP and
// websocket routes, and the optional gRPC listener.
package server
