package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/presentation"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
)

// errNoUpdate is returned when a tap does not produce a new tree in time
var errNoUpdate = errors.New("no update")

type sessionOptions struct {
	Width      float64
	Height     float64
	Background string
	Watchdog   time.Duration
	Settle     time.Duration
	DebugState bool
	Logger     *zap.Logger
	// OnLog receives host diagnostics
	OnLog func(level protocol.Level, text string)
	// Transformer defaults to esbuild behind a small memory cache
	Transformer transform.Transformer
}

// session is an execution host and a presentation host joined by a pipe
type session struct {
	opts   sessionOptions
	pres   *presentation.Host
	raster *paint.Raster
	cancel context.CancelFunc
	done   chan struct{}
}

func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}
	if opts.Transformer == nil {
		opts.Transformer = transform.NewCached(transform.NewEsbuild(), transform.NewMemoryCache(16), opts.Logger)
	}

	raster, err := paint.NewRaster(int(opts.Width), int(opts.Height))
	if err != nil {
		return nil, err
	}
	painter, err := paint.NewPainter(opts.Background, opts.Logger)
	if err != nil {
		return nil, err
	}

	hostEnd, client := protocol.Pipe(32)
	cfg := host.DefaultConfig()
	cfg.DebugState = opts.DebugState
	worker := host.NewWorker(host.New(host.Options{
		Config:      cfg,
		Transformer: opts.Transformer,
		Logger:      opts.Logger,
	}), host.WorkerConfig{Watchdog: opts.Watchdog})

	pres := presentation.New(client, presentation.Options{
		Surface: raster,
		Painter: painter,
		Logger:  opts.Logger,
		OnLog:   opts.OnLog,
	})

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{opts: opts, pres: pres, raster: raster, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		_ = worker.Serve(runCtx, hostEnd)
	}()
	go func() { _ = pres.Run(runCtx) }()

	if err := pres.Initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}
	u, err := s.next(ctx, 0)
	if err != nil {
		s.Close()
		return nil, err
	}
	if u.Type == protocol.TypeInitFailed {
		s.Close()
		return nil, fmt.Errorf("%w: %s", presentation.ErrHostFailed, u.Error)
	}
	return s, nil
}

// execute runs source and waits for its tree or failure
func (s *session) execute(ctx context.Context, source string) (presentation.Update, error) {
	if err := s.pres.Execute(ctx, source, s.opts.Width, s.opts.Height); err != nil {
		return presentation.Update{}, err
	}
	return s.next(ctx, 0)
}

// tap presses the node under (x, y). A handler that changes no state
// produces no tree; that case returns errNoUpdate after the settle time.
func (s *session) tap(ctx context.Context, x, y float64) (string, presentation.Update, error) {
	id, err := s.pres.Tap(ctx, x, y)
	if err != nil {
		return "", presentation.Update{}, err
	}
	u, err := s.next(ctx, s.opts.Settle)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return id, presentation.Update{}, errNoUpdate
	}
	return id, u, err
}

func (s *session) next(ctx context.Context, timeout time.Duration) (presentation.Update, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.pres.Next(ctx)
}

// Close stops both hosts
func (s *session) Close() {
	s.cancel()
	<-s.done
}
