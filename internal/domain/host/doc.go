/*
Package host provides the execution host: it evaluates user UI source in an
isolated goja runtime and turns it into a laid-out, serialized tree.

# Overview

Every execution request runs the full pipeline:

 1. Transform: source to a CommonJS module (see package transform)
 2. Evaluate: run the module with a restricted require that resolves only
    "react" and "react-native"; the default export is the root component
 3. Build: render components depth-first into nodes (see package builder)
 4. Layout: compute boxes against the requested container
 5. Serialize: strip handlers and emit a TreeDelivered message

State updates made while rendering or from a dispatched press schedule a
new pass with the last source and container size.

# Lifecycle

	Uninitialized --Boot--> Initializing --ok--> Ready --Execute--> Executing --> Idle
	                             |                                      |
	                           error                                 failure
	                             v                                      v
	                       Failed (fatal)                    Failed, then Idle again

A boot failure is permanent: the owner must create a new host. A pass
failure is reported as ExecutionFailed and the host accepts further work.

# Security Model

Sandboxed code cannot:
  - Load modules other than the two virtual ones
  - Reach process, timers or any host object
  - Run forever when its owner arms a watchdog (see Worker)

# Usage Example

	h := host.New(host.Options{
		Config:      host.DefaultConfig(),
		Transformer: transform.NewEsbuild(),
		Emit:        func(m protocol.Message) { ... },
	})
	if err := h.Boot(ctx); err != nil {
		return err
	}
	err := h.Execute(ctx, source, 390, 844)

For serving a connection, wrap the host in a Worker. For one-shot renders
use a Pool.
*/
package host
