/*
Package resilience implements a circuit breaker.

The sandbox wraps its shared transform cache in a breaker so a failing cache
backend degrades to uncached transforms instead of failing renders. While the
breaker is open every call is rejected without touching the backend; after
Settings.Timeout a limited number of trial calls decide whether it closes again.

	breaker := resilience.New("transform-cache", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 3 },
	})

	code, err := resilience.Call(breaker, func() (string, error) {
		return cache.Get(ctx, key)
	})
	if resilience.IsRejection(err) {
		// open or saturated: skip the cache
	}

State changes are reported through Settings.OnStateChange. Settings.Now
replaces the clock in tests.
*/
package resilience
