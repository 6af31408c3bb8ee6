package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS middleware
	},
}

// Config configures the sessions a Handler opens
type Config struct {
	Host   host.Config
	Worker host.WorkerConfig
	// MaxSourceBytes rejects larger execute requests; zero disables the check
	MaxSourceBytes int
	// ExecuteLimit throttles execute requests per client address; a zero
	// rate disables it
	ExecuteLimit middleware.RateLimitConfig
}

// Handler manages WebSocket sessions. Every connection gets its own
// execution host running on its own worker goroutine.
type Handler struct {
	cfg         Config
	transformer transform.Transformer
	metrics     *monitoring.Metrics
	limiters    *middleware.Limiters
	sessions    *session.Manager
	logger      *zap.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(cfg Config, transformer transform.Transformer, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	h := &Handler{
		cfg:         cfg,
		transformer: transformer,
		metrics:     metrics,
		sessions:    session.NewManager(),
		logger:      logger.Named("ws"),
		base:        base,
		cancel:      cancel,
	}
	if cfg.ExecuteLimit.RequestsPerSecond > 0 {
		h.limiters = middleware.NewLimiters(cfg.ExecuteLimit)
	}
	return h
}

// HandleConnection upgrades the request and serves the session until the
// peer disconnects or the handler is closed.
func (h *Handler) HandleConnection(c *gin.Context) {
	h.wg.Add(1)
	defer h.wg.Done()

	select {
	case <-h.base.Done():
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
		return
	default:
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sessionID := id.NewSessionID()
	logger := h.logger.With(
		zap.String("session_id", sessionID.String()),
		zap.String("request_id", middleware.GetRequestID(c.Request.Context())),
	)

	conn := NewConn(wsConn, h.observe)
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	ctx, cancel := context.WithCancel(h.base)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	tracked := h.sessions.Open(sessionID.String(), c.ClientIP(), c.Request.UserAgent())
	defer h.sessions.Close(tracked.ID())
	tracked.SetCancel(cancel)

	go conn.KeepAlive(ctx)

	opts := host.Options{
		Config:      h.cfg.Host,
		Transformer: h.transformer,
		Logger:      logger,
	}
	if h.metrics != nil {
		opts.Observer = h.metrics
	}
	worker := host.NewWorker(host.New(opts), h.cfg.Worker)

	s := &peer{
		Conn:     conn,
		client:   c.ClientIP(),
		tracked:  tracked,
		limiters: h.limiters,
		maxBytes: h.cfg.MaxSourceBytes,
	}
	_ = conn.Send(ctx, protocol.Log(protocol.LevelInfo, fmt.Sprintf("session %s opened", sessionID)))

	logger.Info("session opened", zap.String("client", s.client))
	err = worker.Serve(ctx, s)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Info("session closed")
	default:
		logger.Warn("session ended abnormally", zap.Error(err))
	}
}

// Sessions returns the registry of live sessions
func (h *Handler) Sessions() *session.Manager {
	return h.sessions
}

// Close ends all open sessions and waits for them to finish
func (h *Handler) Close() {
	h.cancel()
	h.wg.Wait()
}

func (h *Handler) observe(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

// peer filters client requests before they reach the worker and reports
// traffic to the session registry. Rejected requests are answered with a
// warning Log and skipped.
type peer struct {
	protocol.Conn
	client   string
	tracked  *session.Session
	limiters *middleware.Limiters
	maxBytes int
}

// Send records and forwards a message from the execution host
func (s *peer) Send(ctx context.Context, m protocol.Message) error {
	s.tracked.Observe(m)
	return s.Conn.Send(ctx, m)
}

// Receive returns the next accepted request
func (s *peer) Receive(ctx context.Context) (protocol.Message, error) {
	for {
		m, err := s.Conn.Receive(ctx)
		if err != nil {
			return m, err
		}
		reason := s.reject(m)
		if reason == "" {
			s.tracked.Observe(m)
			return m, nil
		}
		if err := s.Conn.Send(ctx, protocol.Log(protocol.LevelWarn, reason)); err != nil {
			return protocol.Message{}, err
		}
	}
}

func (s *peer) reject(m protocol.Message) string {
	switch m.Type {
	case protocol.TypeExecute:
		if s.maxBytes > 0 && len(m.Source) > s.maxBytes {
			return fmt.Sprintf("execute request dropped: source exceeds %d bytes", s.maxBytes)
		}
		if s.limiters != nil && !s.limiters.Allow(s.client) {
			return "rate limited: execute request dropped"
		}
	case protocol.TypeDispatchInput:
		if err := utils.ValidateNodeID(m.NodeID); err != nil {
			return fmt.Sprintf("dispatch dropped: %v", err)
		}
	}
	return ""
}
