// Package http provides the one-shot render endpoints of the sandbox service.
//
// Renders run on a pool of booted execution hosts; each request acquires a
// host, executes one module, collects the tree and logs, and releases the
// host with its state cleared.
//
// Endpoints:
//   - Health: / and /health
//   - Render: POST /render (JSON tree), POST /render/png (raster image)
//   - Metrics: /metrics/summary (JSON snapshot)
//
// Example Usage:
//
//	handlers := http.NewHandlers(cfg, pool, painter, http.Options{Metrics: metrics})
//	router.POST("/render", handlers.Render)
//	router.POST("/render/png", handlers.RenderPNG)
package http
