// Package presentation is the receiving side of the protocol: it keeps the
// latest delivered tree, paints it, and turns pointer input into dispatch
// requests via hit-testing.
package presentation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/hittest"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

var (
	// ErrHostFailed is returned once the execution host reported InitFailed
	ErrHostFailed = errors.New("execution host failed to initialize")
	// ErrNoTarget is returned when a tap resolves to no press handler
	ErrNoTarget = errors.New("no pressable node at point")
)

// Update is one outcome observed from the execution host
type Update struct {
	Type  protocol.Type
	Tree  *tree.Serialized
	Error string
	Phase string
}

// Options configures a presentation host
type Options struct {
	Surface paint.Surface
	Painter *paint.Painter
	Logger  *zap.Logger
	// OnLog receives Log messages from the execution host
	OnLog func(level protocol.Level, text string)
}

// Host owns the surface and the latest tree
type Host struct {
	conn    protocol.Conn
	surface paint.Surface
	painter *paint.Painter
	logger  *zap.Logger
	onLog   func(protocol.Level, string)
	updates chan Update

	mu      sync.RWMutex
	latest  *tree.Serialized // Protected by mu
	trees   int              // Protected by mu
	lastErr string           // Protected by mu
	failed  error            // Protected by mu
}

// New creates a presentation host talking over conn
func New(conn protocol.Conn, opts Options) *Host {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Host{
		conn:    conn,
		surface: opts.Surface,
		painter: opts.Painter,
		logger:  opts.Logger.Named("presentation"),
		onLog:   opts.OnLog,
		updates: make(chan Update, 16),
	}
}

// Initialize asks the execution host to boot
func (p *Host) Initialize(ctx context.Context) error {
	return p.conn.Send(ctx, protocol.Initialize())
}

// Execute requests a pass over source for a width x height container
func (p *Host) Execute(ctx context.Context, source string, width, height float64) error {
	if err := p.Failed(); err != nil {
		return err
	}
	return p.conn.Send(ctx, protocol.Execute(source, width, height))
}

// Tap resolves a point against the latest tree and dispatches a press to
// the node that claims it.
func (p *Host) Tap(ctx context.Context, x, y float64) (string, error) {
	p.mu.RLock()
	latest := p.latest
	p.mu.RUnlock()

	id, ok := hittest.Resolve(latest, hittest.Point{X: x, Y: y})
	if !ok {
		return "", fmt.Errorf("%w: (%g, %g)", ErrNoTarget, x, y)
	}
	if err := p.conn.Send(ctx, protocol.DispatchInput(id, protocol.InputPress)); err != nil {
		return "", err
	}
	return id, nil
}

// Run consumes messages from the execution host until ctx ends or the
// connection closes.
func (p *Host) Run(ctx context.Context) error {
	for {
		m, err := p.conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, protocol.ErrUnknownType) || errors.Is(err, protocol.ErrInvalidMessage) {
				p.logger.Warn("skipping malformed message", zap.Error(err))
				continue
			}
			return err
		}
		p.handle(m)
	}
}

func (p *Host) handle(m protocol.Message) {
	switch m.Type {
	case protocol.TypeTree:
		p.mu.Lock()
		p.latest = m.Tree
		p.trees++
		p.lastErr = ""
		p.mu.Unlock()
		p.paint(m.Tree)
	case protocol.TypeExecutionFailed:
		// the tree on screen stays
		p.mu.Lock()
		p.lastErr = m.Error
		p.mu.Unlock()
		p.logger.Warn("execution failed", zap.String("phase", m.Phase), zap.String("error", m.Error))
	case protocol.TypeInitFailed:
		p.mu.Lock()
		p.failed = fmt.Errorf("%w: %s", ErrHostFailed, m.Error)
		p.mu.Unlock()
		p.logger.Error("execution host failed", zap.String("error", m.Error))
	case protocol.TypeLog:
		if p.onLog != nil {
			p.onLog(m.Level, m.Text)
		}
		return
	case protocol.TypeReady:
	default:
		p.logger.Debug("ignoring message", zap.String("type", string(m.Type)))
		return
	}
	p.publish(Update{Type: m.Type, Tree: m.Tree, Error: m.Error, Phase: m.Phase})
}

// publish drops the oldest pending update when nobody keeps up
func (p *Host) publish(u Update) {
	for {
		select {
		case p.updates <- u:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}

func (p *Host) paint(t *tree.Serialized) {
	if p.surface == nil || p.painter == nil {
		return
	}
	if err := p.painter.Paint(p.surface, t); err != nil {
		p.logger.Warn("paint failed", zap.Error(err))
	}
}

// Next waits for the next Ready, TreeDelivered, ExecutionFailed or
// InitFailed outcome.
func (p *Host) Next(ctx context.Context) (Update, error) {
	select {
	case u := <-p.updates:
		return u, nil
	case <-ctx.Done():
		return Update{}, ctx.Err()
	}
}

// Tree returns the latest delivered tree; superseded trees are discarded
func (p *Host) Tree() *tree.Serialized {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Trees returns how many trees have been delivered
func (p *Host) Trees() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.trees
}

// LastError returns the message of the most recent failed execution, cleared
// by the next delivered tree
func (p *Host) LastError() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Failed returns ErrHostFailed once initialization failed
func (p *Host) Failed() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failed
}
