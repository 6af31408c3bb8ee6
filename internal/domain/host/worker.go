package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
)

// WorkerConfig configures the worker loop
type WorkerConfig struct {
	// Inbox bounds queued requests; requests beyond it are dropped
	Inbox int
	// Watchdog interrupts a pass or dispatch that runs longer; zero disables it
	Watchdog time.Duration
}

// Worker owns a host and feeds it requests one at a time from a bounded
// inbox. It is the owner the host relies on for watchdog and queue policy.
type Worker struct {
	host     *Host
	inbox    chan protocol.Message
	watchdog time.Duration
	logger   *zap.Logger
}

// NewWorker creates a worker around h
func NewWorker(h *Host, cfg WorkerConfig) *Worker {
	if cfg.Inbox <= 0 {
		cfg.Inbox = 8
	}
	return &Worker{
		host:     h,
		inbox:    make(chan protocol.Message, cfg.Inbox),
		watchdog: cfg.Watchdog,
		logger:   h.logger.Named("worker"),
	}
}

// Host returns the worker's host
func (w *Worker) Host() *Host {
	return w.host
}

// Submit enqueues a request without blocking. When the inbox is full the
// request is dropped and a warning is emitted.
func (w *Worker) Submit(m protocol.Message) bool {
	select {
	case w.inbox <- m:
		return true
	default:
		w.host.log(protocol.LevelWarn, fmt.Sprintf("host busy: %s request dropped", m.Type))
		return false
	}
}

// Run processes requests until ctx is done
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-w.inbox:
			w.handle(ctx, m)
		}
	}
}

// Pump reads from conn and submits every message until the connection or
// ctx ends. Malformed messages are reported and skipped.
func (w *Worker) Pump(ctx context.Context, conn protocol.Conn) error {
	for {
		m, err := conn.Receive(ctx)
		switch {
		case err == nil:
			w.Submit(m)
		case errors.Is(err, protocol.ErrUnknownType), errors.Is(err, protocol.ErrInvalidMessage):
			w.host.log(protocol.LevelWarn, err.Error())
		case errors.Is(err, protocol.ErrClosed), ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

// Serve connects a worker to conn: the host emits on conn and requests are
// read from it. It returns when ctx ends or the connection closes.
func (w *Worker) Serve(ctx context.Context, conn protocol.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.host.SetEmitter(func(m protocol.Message) {
		if err := conn.Send(ctx, m); err != nil && !errors.Is(err, protocol.ErrClosed) && ctx.Err() == nil {
			w.logger.Warn("failed to send message", zap.String("type", string(m.Type)), zap.Error(err))
		}
	})
	go w.Run(ctx)
	return w.Pump(ctx, conn)
}

// handle runs one request under the watchdog
func (w *Worker) handle(ctx context.Context, m protocol.Message) {
	stop := context.AfterFunc(ctx, func() { w.host.Interrupt("context cancelled") })
	defer stop()
	if w.watchdog > 0 {
		timer := time.AfterFunc(w.watchdog, func() {
			w.host.Interrupt(fmt.Sprintf("watchdog: exceeded %s", w.watchdog))
		})
		defer timer.Stop()
	}

	var err error
	switch m.Type {
	case protocol.TypeInitialize:
		err = w.host.Boot(ctx)
	case protocol.TypeExecute:
		err = w.host.Execute(ctx, m.Source, m.Width, m.Height)
		if errors.Is(err, ErrNotReady) || errors.Is(err, ErrHostFailed) {
			w.host.send(protocol.ExecutionFailed(err, ""))
		}
	case protocol.TypeDispatchInput:
		err = w.host.Dispatch(ctx, m.NodeID, m.Input)
		if errors.Is(err, ErrNotReady) || errors.Is(err, ErrHostFailed) {
			w.host.log(protocol.LevelWarn, fmt.Sprintf("dispatch dropped: %v", err))
		}
	default:
		w.host.log(protocol.LevelWarn, fmt.Sprintf("unexpected %s message ignored", m.Type))
		return
	}
	if err != nil {
		w.logger.Debug("request finished with error", zap.String("type", string(m.Type)), zap.Error(err))
	}
}
