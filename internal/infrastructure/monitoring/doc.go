/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics for the sandbox service on
its own registry: HTTP requests, execution passes and phases, input
dispatches, transform cache lookups and WebSocket traffic.

Metrics implements host.Observer, so it can be handed straight to a host or
a pool.

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Observe execution hosts
	h := host.New(host.Options{Observer: metrics})

	// Expose the registry
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
