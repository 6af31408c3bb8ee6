package transform

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Cache lookup outcomes reported to OnResult
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultError  = "error"
	ResultBypass = "bypass"
)

// Cached memoizes a Transformer by source hash. Cache failures are logged
// and counted by the breaker; while it is open the cache is bypassed.
type Cached struct {
	inner   Transformer
	cache   Cache
	breaker *resilience.Breaker
	hasher  *utils.Hasher
	logger  *zap.Logger

	// OnResult observes every lookup
	OnResult func(result string)
}

// NewCached wraps inner with cache
func NewCached(inner Transformer, cache Cache, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("transform-cache")
	breaker := resilience.New("transform-cache", resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("cache breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Cached{
		inner:   inner,
		cache:   cache,
		breaker: breaker,
		hasher:  utils.DefaultHasher(),
		logger:  logger,
	}
}

// WithHasher replaces the key hasher
func (c *Cached) WithHasher(h *utils.Hasher) *Cached {
	if h != nil {
		c.hasher = h
	}
	return c
}

// Name identifies the transformer in logs and metrics
func (c *Cached) Name() string {
	return c.inner.Name() + "+cache"
}

// Breaker exposes the cache guard
func (c *Cached) Breaker() *resilience.Breaker {
	return c.breaker
}

// Transform returns cached code or transforms and stores it. Transform
// errors are never cached.
func (c *Cached) Transform(ctx context.Context, source string) (string, error) {
	key := c.inner.Name() + ":" + string(c.hasher.Algorithm()) + ":" + c.hasher.HashString(source)

	type lookup struct {
		code string
		ok   bool
	}
	res, err := resilience.Call(c.breaker, func() (lookup, error) {
		code, ok, err := c.cache.Get(ctx, key)
		return lookup{code: code, ok: ok}, err
	})
	switch {
	case err != nil:
		c.observe(resultFor(err))
		c.logger.Debug("cache lookup skipped", zap.Error(err))
	case res.ok:
		c.observe(ResultHit)
		return res.code, nil
	default:
		c.observe(ResultMiss)
	}

	code, err := c.inner.Transform(ctx, source)
	if err != nil {
		return "", err
	}

	if err := c.breaker.Execute(func() error {
		return c.cache.Set(ctx, key, code)
	}); err != nil {
		c.logger.Debug("cache store skipped", zap.Error(err))
	}
	return code, nil
}

func (c *Cached) observe(result string) {
	if c.OnResult != nil {
		c.OnResult(result)
	}
}

func resultFor(err error) string {
	if resilience.IsRejection(err) {
		return ResultBypass
	}
	return ResultError
}
