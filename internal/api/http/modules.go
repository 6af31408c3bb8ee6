package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
)

// ModuleRequest is the body of PUT /modules/:id
type ModuleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Width       float64  `json:"width"`
	Height      float64  `json:"height"`
	Source      string   `json:"source" binding:"required"`
}

// Render output formats for POST /modules/:id/render
const (
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatHTML = "html"
)

// ListModules returns module metadata, filtered by the tag query parameter
func (h *Handlers) ListModules(c *gin.Context) {
	if !h.modulesEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"modules": h.modules.List(c.Query("tag")),
		"stats":   h.modules.Stats(),
	})
}

// GetModule returns one module including its source
func (h *Handlers) GetModule(c *gin.Context) {
	if !h.modulesEnabled(c) {
		return
	}
	mod, err := h.modules.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.moduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, mod)
}

// PutModule creates or replaces a module
func (h *Handlers) PutModule(c *gin.Context) {
	if !h.modulesEnabled(c) {
		return
	}
	var req ModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	source, err := transform.Normalize([]byte(req.Source), h.cfg.MaxSourceBytes)
	if err != nil {
		h.rejectSource(c, err)
		return
	}
	if _, _, err := h.size(req.Width, req.Height); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	existed := h.modules.Exists(id)
	mod := &registry.Module{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Width:       req.Width,
		Height:      req.Height,
		Source:      source,
	}
	if err := h.modules.Save(c.Request.Context(), mod); err != nil {
		h.moduleError(c, err)
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	c.JSON(status, mod.ToMetadata())
}

// DeleteModule removes a module
func (h *Handlers) DeleteModule(c *gin.Context) {
	if !h.modulesEnabled(c) {
		return
	}
	if err := h.modules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.moduleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RenderModule renders a stored module. The module's own size applies
// unless width or height are given as query parameters; format selects
// json (default), png or html output.
func (h *Handlers) RenderModule(c *gin.Context) {
	if !h.modulesEnabled(c) {
		return
	}
	mod, err := h.modules.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.moduleError(c, err)
		return
	}

	format := c.DefaultQuery("format", FormatJSON)
	switch format {
	case FormatJSON, FormatPNG, FormatHTML:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json, png or html"})
		return
	}
	width, height, ok := h.querySize(c, mod.Width, mod.Height)
	if !ok {
		return
	}

	resp, ok := h.render(c, mod.Source, width, height)
	if !ok {
		return
	}
	if resp.Error != "" {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	switch format {
	case FormatPNG:
		h.writePNG(c, resp, width, height)
	case FormatHTML:
		h.writeHTML(c, resp, width, height, mod.Name)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handlers) modulesEnabled(c *gin.Context) bool {
	if h.modules == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "module library disabled"})
		return false
	}
	return true
}

func (h *Handlers) moduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrInvalidModule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrFull):
		c.JSON(http.StatusInsufficientStorage, gin.H{"error": err.Error()})
	default:
		h.logger.Error("module operation failed", zap.String("module", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "module operation failed"})
	}
}
