// Package http exposes the read-only observability surface: health,
// desktop and broker statistics, session listing, and theme queries.
// Every desktop read runs as a task on the control loop so handlers
// observe a consistent snapshot.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumen-os/lumen/server/internal/domain/desktop"
	"github.com/lumen-os/lumen/server/internal/domain/theme"
	"github.com/lumen-os/lumen/server/internal/session"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// Handlers holds the control plane surfaces the HTTP API reads from.
type Handlers struct {
	loop      *session.Loop
	directory *session.Directory
	desktop   *desktop.Desktop
	broker    *shm.Broker
	themes    *theme.Registry
	started   time.Time
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(loop *session.Loop, directory *session.Directory, desk *desktop.Desktop, broker *shm.Broker, themes *theme.Registry) *Handlers {
	return &Handlers{
		loop:      loop,
		directory: directory,
		desktop:   desk,
		broker:    broker,
		themes:    themes,
		started:   time.Now(),
	}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Stats returns desktop and broker statistics.
func (h *Handlers) Stats(c *gin.Context) {
	var desktopStats desktop.Stats
	var sessions int
	h.loop.Call(func() {
		desktopStats = h.desktop.Stats()
		sessions = h.directory.Len()
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": sessions,
		"desktop":  desktopStats,
		"broker":   h.broker.Stats(),
	})
}

type sessionInfo struct {
	ClientID   int    `json:"client_id"`
	Windows    int    `json:"windows"`
	Misbehaved bool   `json:"misbehaved"`
	Violation  string `json:"violation,omitempty"`
}

// Sessions lists the connected sessions.
func (h *Handlers) Sessions(c *gin.Context) {
	infos := make([]sessionInfo, 0)
	h.loop.Call(func() {
		h.directory.ForEach(func(s *session.Session) {
			misbehaved, violation := s.Misbehaved()
			infos = append(infos, sessionInfo{
				ClientID:   s.ClientID(),
				Windows:    s.WindowCount(),
				Misbehaved: misbehaved,
				Violation:  violation,
			})
		})
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": infos,
	})
}

// Themes lists the loaded themes and which one is active.
func (h *Handlers) Themes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"active":  h.themes.Active(),
		"themes":  h.themes.Names(),
	})
}

// Theme returns a single theme's palette.
func (h *Handlers) Theme(c *gin.Context) {
	t, ok := h.themes.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "unknown theme",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"theme":   t,
	})
}
