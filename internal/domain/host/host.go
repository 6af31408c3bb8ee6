package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/builder"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/layout"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/state"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

// Pass outcomes reported to the Observer
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Options wires a host to its collaborators
type Options struct {
	Config      Config
	Transformer transform.Transformer
	Logger      *zap.Logger
	Emit        Emitter
	Observer    Observer
}

// Host is an execution host. It owns one JS runtime, one state engine and
// one builder; passes never interleave.
type Host struct {
	mu sync.Mutex // serializes passes and dispatches

	stateMu sync.RWMutex
	state   State // Protected by stateMu

	emitMu sync.RWMutex
	emit   Emitter // Protected by emitMu

	cfg         Config
	transformer transform.Transformer
	logger      *zap.Logger
	observer    Observer

	rt      *runtime
	engine  *state.Engine
	builder *builder.Builder
	pending bool

	lastSource string
	lastWidth  float64
	lastHeight float64
	lastTree   *tree.Serialized
}

// New creates an uninitialized host
func New(opts Options) *Host {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Transformer == nil {
		opts.Transformer = transform.NewEsbuild()
	}
	if opts.Config == (Config{}) {
		opts.Config = DefaultConfig()
	}
	if opts.Config.MaxRerenders <= 0 {
		opts.Config.MaxRerenders = DefaultConfig().MaxRerenders
	}

	h := &Host{
		state:       StateUninitialized,
		emit:        opts.Emit,
		cfg:         opts.Config,
		transformer: opts.Transformer,
		logger:      opts.Logger.Named("host"),
		observer:    opts.Observer,
	}
	h.engine = h.newEngine()
	h.builder = builder.New(h.engine)
	return h
}

func (h *Host) newEngine() *state.Engine {
	return state.New(state.Options{
		OnUpdate: func() { h.pending = true },
		Debug:    h.cfg.DebugState,
		OnWarn:   func(msg string) { h.log(protocol.LevelWarn, msg) },
		Equal:    sameValue,
	})
}

// State returns the lifecycle state
func (h *Host) State() State {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.state
}

func (h *Host) setState(s State) {
	h.stateMu.Lock()
	prev := h.state
	h.state = s
	h.stateMu.Unlock()
	if prev != s {
		h.logger.Debug("state changed", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// SetEmitter replaces the message sink
func (h *Host) SetEmitter(e Emitter) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()
	h.emit = e
}

func (h *Host) send(m protocol.Message) {
	h.emitMu.RLock()
	emit := h.emit
	h.emitMu.RUnlock()
	if emit != nil {
		emit(m)
	}
}

// log emits a Log message and mirrors it to the host logger
func (h *Host) log(level protocol.Level, msg string) {
	switch level {
	case protocol.LevelError:
		h.logger.Error(msg)
	case protocol.LevelWarn:
		h.logger.Warn(msg)
	case protocol.LevelDebug:
		h.logger.Debug(msg)
	default:
		h.logger.Info(msg)
	}
	h.send(protocol.Log(level, msg))
}

// Boot initializes the host. A boot failure is permanent: the host stays
// Failed and must be recreated.
func (h *Host) Boot(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.State() {
	case StateUninitialized:
	case StateFailed:
		return ErrHostFailed
	default:
		return nil
	}
	h.setState(StateInitializing)

	if err := h.boot(ctx); err != nil {
		h.setState(StateFailed)
		h.logger.Error("initialization failed", zap.Error(err))
		h.send(protocol.InitFailed(err))
		return fail(PhaseInit, fmt.Errorf("%w: %v", ErrHostFailed, err))
	}

	h.setState(StateReady)
	h.logger.Info("host ready", zap.String("transformer", h.transformer.Name()))
	h.send(protocol.Ready())
	return nil
}

func (h *Host) boot(ctx context.Context) error {
	if err := transform.Probe(ctx, h.transformer); err != nil {
		return fmt.Errorf("transformer %s unavailable: %w", h.transformer.Name(), err)
	}
	rt, err := newRuntime(h.cfg, h.engine, h.log)
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	h.stateMu.Lock()
	h.rt = rt
	h.stateMu.Unlock()
	return nil
}

// Execute runs a full pass over source, followed by any passes scheduled
// by state updates. Failures are reported as ExecutionFailed and leave the
// host Idle.
func (h *Host) Execute(ctx context.Context, source string, width, height float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.acceptWork(); err != nil {
		return err
	}
	h.lastSource, h.lastWidth, h.lastHeight = source, width, height
	return h.runPasses(ctx)
}

// Dispatch invokes the press handler of a node from the latest tree. An
// unknown identifier is logged and otherwise ignored.
func (h *Host) Dispatch(ctx context.Context, nodeID string, kind protocol.InputKind) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.acceptWork(); err != nil {
		return err
	}
	if kind != "" && kind != protocol.InputPress {
		h.log(protocol.LevelWarn, fmt.Sprintf("unsupported input %q for node %s", kind, nodeID))
		h.observer.DispatchCompleted("unsupported")
		return nil
	}

	handler, ok := h.builder.Handler(nodeID)
	if !ok {
		h.log(protocol.LevelWarn, fmt.Sprintf("%v: %s", ErrHandlerNotFound, nodeID))
		h.observer.DispatchCompleted("not_found")
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, nodeID)
	}

	h.setState(StateExecuting)
	h.rt.clearInterrupt()
	start := time.Now()
	err := guard(handler)
	h.observer.PhaseCompleted(PhaseDispatch, time.Since(start))
	if err != nil {
		h.observer.DispatchCompleted("error")
		return h.failPass(fail(PhaseDispatch, err))
	}
	h.observer.DispatchCompleted("handled")

	if !h.pending {
		h.setState(StateIdle)
		return nil
	}
	return h.runPasses(ctx)
}

// Interrupt aborts the JS currently running, if any. It is safe to call
// from any goroutine.
func (h *Host) Interrupt(reason string) {
	h.stateMu.RLock()
	rt := h.rt
	h.stateMu.RUnlock()
	if rt != nil {
		rt.interrupt(reason)
	}
}

// Reset drops all component state and starts a fresh runtime. Used when a
// pooled host changes hands.
func (h *Host) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.State() == StateFailed || h.State() == StateUninitialized {
		return ErrNotReady
	}
	h.engine = h.newEngine()
	h.builder = builder.New(h.engine)
	rt, err := newRuntime(h.cfg, h.engine, h.log)
	if err != nil {
		h.setState(StateFailed)
		return fmt.Errorf("failed to reset runtime: %w", err)
	}
	h.stateMu.Lock()
	h.rt = rt
	h.stateMu.Unlock()
	h.pending = false
	h.lastSource, h.lastTree = "", nil
	h.setState(StateReady)
	return nil
}

// Tree returns the most recently delivered tree
func (h *Host) Tree() *tree.Serialized {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastTree
}

func (h *Host) acceptWork() error {
	switch h.State() {
	case StateReady, StateIdle:
		return nil
	case StateFailed:
		return ErrHostFailed
	default:
		return ErrNotReady
	}
}

// runPasses executes passes until no state update is pending
func (h *Host) runPasses(ctx context.Context) error {
	h.setState(StateExecuting)
	for passes := 1; ; passes++ {
		if passes > h.cfg.MaxRerenders {
			h.pending = false
			return h.failPass(fail(PhaseEvaluate, fmt.Errorf("%w: more than %d consecutive passes", ErrTooManyRerenders, h.cfg.MaxRerenders)))
		}
		serialized, err := h.pass(ctx)
		if err != nil {
			return h.failPass(err)
		}
		if h.pending {
			continue
		}
		h.lastTree = serialized
		h.send(protocol.TreeDelivered(serialized))
		h.setState(StateIdle)
		return nil
	}
}

func (h *Host) failPass(err error) error {
	h.setState(StateFailed)
	phase := PhaseOf(err)
	h.logger.Warn("pass failed", zap.String("phase", string(phase)), zap.Error(err))
	h.send(protocol.ExecutionFailed(err, string(phase)))
	h.setState(StateIdle)
	return err
}

// pass runs transform, evaluate, build, layout and serialize once
func (h *Host) pass(ctx context.Context) (out *tree.Serialized, err error) {
	start := time.Now()
	nodes := 0
	defer func() {
		if r := recover(); r != nil {
			err = fail(PhaseEvaluate, fmt.Errorf("panic: %v", r))
		}
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
		}
		h.observer.PassCompleted(outcome, time.Since(start), nodes)
	}()

	h.pending = false
	h.rt.clearInterrupt()

	code, err := timed(h, PhaseTransform, func() (string, error) {
		return h.transformer.Transform(ctx, h.lastSource)
	})
	if err != nil {
		return nil, fail(PhaseTransform, err)
	}

	app, err := timed(h, PhaseEvaluate, func() (*builder.Component, error) {
		return h.rt.load(code)
	})
	if err != nil {
		return nil, fail(PhaseEvaluate, err)
	}

	h.builder.Reset()
	root, err := timed(h, PhaseBuild, func() (*tree.Node, error) {
		return h.builder.Build(&builder.Element{Component: app})
	})
	for _, w := range h.builder.Warnings() {
		h.log(protocol.LevelWarn, w)
	}
	if err != nil {
		return nil, fail(buildPhase(err), err)
	}
	if h.pending {
		// superseded by a state update made while rendering
		return nil, nil
	}
	if root == nil {
		return nil, fail(PhaseBuild, ErrEmptyTree)
	}

	_, _ = timed(h, PhaseLayout, func() (tree.Box, error) {
		return layout.Layout(root, h.lastWidth, h.lastHeight), nil
	})
	nodes = root.Count()
	return tree.Serialize(root), nil
}

// buildPhase attributes errors thrown by user components to evaluation
func buildPhase(err error) Phase {
	var exc *goja.Exception
	if errors.As(err, &exc) || errors.Is(err, ErrInterrupted) || errors.Is(err, ErrModuleNotFound) {
		return PhaseEvaluate
	}
	return PhaseBuild
}

func timed[T any](h *Host, phase Phase, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	h.observer.PhaseCompleted(phase, time.Since(start))
	return v, err
}

// guard runs a handler, converting a Go panic into an error
func guard(fn builder.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return fn()
}
