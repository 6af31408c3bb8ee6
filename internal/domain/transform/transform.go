/*
Package transform turns user source (JSX and TypeScript) into the CommonJS
module shape the execution host evaluates.

# Implementations

  - Esbuild: in-process, the default
  - Remote: posts source to an HTTP transform service with retries
  - Cached: wraps any Transformer with a content-addressed cache (memory or
    redis) behind a circuit breaker, so a failing cache never blocks a pass

Source bytes arriving from outside the process go through Normalize first.
*/
package transform

import (
	"context"
	"errors"
)

// ErrTransform wraps every rejection of the source itself
var ErrTransform = errors.New("transform failed")

// ProbeSource is a minimal module used to confirm a transformer works
const ProbeSource = "export default function App() { return null }"

// Transformer produces CommonJS code from source. The result must assign a
// function to module.exports.default.
type Transformer interface {
	Transform(ctx context.Context, source string) (string, error)
	Name() string
}

// Probe runs the probe source through t
func Probe(ctx context.Context, t Transformer) error {
	_, err := t.Transform(ctx, ProbeSource)
	return err
}
