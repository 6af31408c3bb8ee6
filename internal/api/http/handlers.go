package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Config bounds one-shot renders
type Config struct {
	MaxSourceBytes int
	DefaultWidth   float64
	DefaultHeight  float64
	MaxWidth       int
	MaxHeight      int
	Timeout        time.Duration
}

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg         Config
	pool        *host.Pool
	painter     *paint.Painter
	html        *paint.HTML
	transformer transform.Transformer
	breaker     *resilience.Breaker
	metrics     *monitoring.Metrics
	modules     *registry.Manager
	sessions    *session.Manager
	logger      *zap.Logger
}

// Options wires optional collaborators into the handlers
type Options struct {
	HTML        *paint.HTML
	Transformer transform.Transformer
	Breaker     *resilience.Breaker
	Metrics     *monitoring.Metrics
	Modules     *registry.Manager
	Sessions    *session.Manager
	Logger      *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(cfg Config, pool *host.Pool, painter *paint.Painter, opts Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = 256 * 1024
	}
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = 390
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = 844
	}
	return &Handlers{
		cfg:         cfg,
		pool:        pool,
		painter:     painter,
		html:        opts.HTML,
		transformer: opts.Transformer,
		breaker:     opts.Breaker,
		metrics:     opts.Metrics,
		modules:     opts.Modules,
		sessions:    opts.Sessions,
		logger:      opts.Logger.Named("http"),
	}
}

// RenderRequest is the body of POST /render
type RenderRequest struct {
	Source string  `json:"source" binding:"required"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RenderResponse reports a one-shot render
type RenderResponse struct {
	ID string `json:"id"`
	*host.Result
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "sandbox",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status": "healthy",
		"pool":   h.pool.Stats(),
	}
	if h.transformer != nil {
		body["transformer"] = h.transformer.Name()
	}
	if h.breaker != nil {
		body["cache_breaker"] = h.breaker.State().String()
	}
	if h.modules != nil {
		body["modules"] = h.modules.Len()
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions.Len()
	}
	c.JSON(http.StatusOK, body)
}

// Render executes a source module once and returns the serialized tree
func (h *Handlers) Render(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	source, err := transform.Normalize([]byte(req.Source), h.cfg.MaxSourceBytes)
	if err != nil {
		h.rejectSource(c, err)
		return
	}
	width, height, err := h.size(req.Width, req.Height)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, ok := h.render(c, source, width, height)
	if !ok {
		return
	}
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}

// RenderPNG executes a raw source body once and paints the tree
func (h *Handlers) RenderPNG(c *gin.Context) {
	resp, width, height, ok := h.renderBody(c)
	if !ok {
		return
	}
	h.writePNG(c, resp, width, height)
}

// RenderHTML executes a raw source body once and exports the tree as an
// HTML document
func (h *Handlers) RenderHTML(c *gin.Context) {
	resp, width, height, ok := h.renderBody(c)
	if !ok {
		return
	}
	h.writeHTML(c, resp, width, height, "render "+resp.ID)
}

// renderBody renders a raw source body sized by the width and height query
// parameters. Failed renders are answered with 422.
func (h *Handlers) renderBody(c *gin.Context) (*RenderResponse, float64, float64, bool) {
	width, height, ok := h.querySize(c, 0, 0)
	if !ok {
		return nil, 0, 0, false
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(h.cfg.MaxSourceBytes)+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body: " + err.Error()})
		return nil, 0, 0, false
	}
	source, err := transform.Normalize(data, h.cfg.MaxSourceBytes)
	if err != nil {
		h.rejectSource(c, err)
		return nil, 0, 0, false
	}

	resp, ok := h.render(c, source, width, height)
	if !ok {
		return nil, 0, 0, false
	}
	if resp.Error != "" {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return nil, 0, 0, false
	}
	return resp, width, height, true
}

// querySize reads width and height query parameters, falling back to the
// given defaults and then to the configured ones
func (h *Handlers) querySize(c *gin.Context, defWidth, defHeight float64) (float64, float64, bool) {
	width, werr := queryFloat(c, "width")
	height, herr := queryFloat(c, "height")
	if err := errors.Join(werr, herr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	if width == 0 {
		width = defWidth
	}
	if height == 0 {
		height = defHeight
	}
	width, height, err := h.size(width, height)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	return width, height, true
}

func (h *Handlers) writePNG(c *gin.Context, resp *RenderResponse, width, height float64) {
	raster, err := paint.NewRaster(int(width), int(height))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := h.painter.Paint(raster, resp.Tree); err != nil {
		h.logger.Error("paint failed", zap.String("render_id", resp.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "paint failed"})
		return
	}
	if err := raster.EncodePNG(&buf); err != nil {
		h.logger.Error("png encoding failed", zap.String("render_id", resp.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "png encoding failed"})
		return
	}

	c.Header("X-Render-ID", resp.ID)
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handlers) writeHTML(c *gin.Context, resp *RenderResponse, width, height float64, title string) {
	if h.html == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "html export disabled"})
		return
	}
	var buf bytes.Buffer
	if err := h.html.Render(&buf, resp.Tree, width, height, title); err != nil {
		h.logger.Error("html export failed", zap.String("render_id", resp.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "html export failed"})
		return
	}

	c.Header("X-Render-ID", resp.ID)
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// MetricsSummary returns the JSON metrics snapshot
func (h *Handlers) MetricsSummary(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics disabled"})
		return
	}
	snap := h.metrics.Snapshot()
	avg := 0.0
	if snap.RequestCount > 0 {
		avg = snap.TotalDuration / float64(snap.RequestCount)
	}
	body := gin.H{
		"timestamp":            time.Now().UTC(),
		"metrics":              snap,
		"avg_request_duration": avg,
		"pool":                 h.pool.Stats(),
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions.Stats()
	}
	if h.modules != nil {
		body["modules"] = h.modules.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// render runs source on a pooled host. It writes the error response itself
// when the pool cannot serve the request.
func (h *Handlers) render(c *gin.Context, source string, width, height float64) (*RenderResponse, bool) {
	ctx := c.Request.Context()
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	renderID := id.NewRenderID().String()
	result, err := h.pool.Render(ctx, source, width, height)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.Canceled) {
			status = 499
		}
		h.logger.Warn("render rejected",
			zap.String("render_id", renderID),
			zap.String("request_id", middleware.GetRequestID(c.Request.Context())),
			zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}

	if result.Error != "" {
		h.logger.Debug("render failed",
			zap.String("render_id", renderID),
			zap.String("phase", string(result.Phase)),
			zap.String("error", result.Error))
	}
	return &RenderResponse{ID: renderID, Result: result}, true
}

func (h *Handlers) size(width, height float64) (float64, float64, error) {
	if err := utils.ValidateDimension("width", width, float64(h.cfg.MaxWidth)); err != nil {
		return 0, 0, err
	}
	if err := utils.ValidateDimension("height", height, float64(h.cfg.MaxHeight)); err != nil {
		return 0, 0, err
	}
	if width == 0 {
		width = h.cfg.DefaultWidth
	}
	if height == 0 {
		height = h.cfg.DefaultHeight
	}
	return width, height, nil
}

func (h *Handlers) rejectSource(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, transform.ErrSourceTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func queryFloat(c *gin.Context, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}
