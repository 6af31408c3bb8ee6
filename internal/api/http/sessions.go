package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListSessions returns the live stream sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	if !h.sessionsEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.sessions.List(),
		"stats":    h.sessions.Stats(),
	})
}

// GetSession returns one session
func (h *Handlers) GetSession(c *gin.Context) {
	if !h.sessionsEnabled(c) {
		return
	}
	info, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// SessionTree returns the most recent tree a session rendered
func (h *Handlers) SessionTree(c *gin.Context) {
	if !h.sessionsEnabled(c) {
		return
	}
	t, ok := h.sessions.Tree(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no tree for session"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// TerminateSession disconnects a session
func (h *Handlers) TerminateSession(c *gin.Context) {
	if !h.sessionsEnabled(c) {
		return
	}
	if !h.sessions.Terminate(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handlers) sessionsEnabled(c *gin.Context) bool {
	if h.sessions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session registry disabled"})
		return false
	}
	return true
}
