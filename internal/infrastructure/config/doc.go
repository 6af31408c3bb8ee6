// Package config provides 12-factor configuration management for the sandbox
// service.
//
// Configuration is loaded from environment variables with sensible defaults,
// or from a TOML/YAML file overlaid on the defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, shutdown timeout)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Sandbox: Execution host limits (container, watchdog, inbox, pool)
//   - Transform: Remote transformer and transform cache backend
//   - Paint: Raster rendering defaults
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SANDBOX_WIDTH, SANDBOX_HEIGHT, SANDBOX_WATCHDOG, SANDBOX_POOL_SIZE, ...
//   - TRANSFORM_URL, TRANSFORM_CACHE, REDIS_ADDR, TRANSFORM_CACHE_TTL
//   - PAINT_BACKGROUND
package config
