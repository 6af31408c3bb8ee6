package host

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrPoolClosed = errors.New("host pool is closed")
	ErrTimeout    = errors.New("host acquisition timeout")
)

// Pool manages booted hosts for one-shot renders
type Pool struct {
	opts    Options
	hosts   chan *Host
	size    int
	timeout time.Duration
	mu      sync.RWMutex
	closed  bool
}

// NewPool creates and boots size hosts
func NewPool(ctx context.Context, opts Options, size int, acquireTimeout time.Duration) (*Pool, error) {
	if size <= 0 {
		size = 4
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}

	pool := &Pool{
		opts:    opts,
		hosts:   make(chan *Host, size),
		size:    size,
		timeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		h, err := pool.spawn(ctx)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.hosts <- h
	}

	return pool, nil
}

func (p *Pool) spawn(ctx context.Context) (*Host, error) {
	opts := p.opts
	opts.Emit = nil
	h := New(opts)
	if err := h.Boot(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Acquire gets a host from the pool
func (p *Pool) Acquire(ctx context.Context) (*Host, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	select {
	case h := <-p.hosts:
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.timeout):
		return nil, ErrTimeout
	}
}

// Release resets a host and returns it to the pool. A host that cannot be
// reset is replaced.
func (p *Pool) Release(h *Host) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil
	}

	h.SetEmitter(nil)
	if err := h.Reset(); err != nil {
		if replacement, spawnErr := p.spawn(context.Background()); spawnErr == nil {
			p.hosts <- replacement
		}
		return err
	}

	select {
	case p.hosts <- h:
	default:
	}
	return nil
}

// Render executes source on a pooled host and collects what it emitted.
// Interrupts the pass when ctx ends.
func (p *Pool) Render(ctx context.Context, source string, width, height float64) (*Result, error) {
	h, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(h)

	result := &Result{}
	h.SetEmitter(result.Collect())

	stop := context.AfterFunc(ctx, func() { h.Interrupt("context cancelled") })
	defer stop()

	start := time.Now()
	err = h.Execute(ctx, source, width, height)
	result.Duration = time.Since(start)
	if err != nil && result.Error == "" {
		result.Error = err.Error()
		result.Phase = PhaseOf(err)
	}
	return result, nil
}

// Close closes the pool
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.hosts)
	for range p.hosts {
	}
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.hosts),
		"in_use":    p.size - len(p.hosts),
		"closed":    p.closed,
	}
}
