package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"knowledge-assistant/internal/transport/http/response"
)

// DependencyCheck pings one backing service. A nil check marks the
// dependency as disabled.
type DependencyCheck func(ctx context.Context) error

type HealthHandler struct {
	appName   string
	env       string
	startedAt time.Time
	indexed   func() int
	deps      map[string]DependencyCheck
}

type dependencyStatus struct {
	Enabled bool   `json:"enabled"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(appName, env string, startedAt time.Time, indexed func() int, deps map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{
		appName:   appName,
		env:       env,
		startedAt: startedAt,
		indexed:   indexed,
		deps:      deps,
	}
}

// Root is the liveness probe kept for existing clients.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "Backend running",
		"time":   time.Now().UTC(),
	})
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	allOK := true
	statuses := make(gin.H, len(h.deps))
	for name, check := range h.deps {
		st := dependencyStatus{Enabled: check != nil, OK: true}
		if check != nil {
			if err := check(ctx); err != nil {
				st.OK, st.Message = false, err.Error()
				allOK = false
			}
		}
		statuses[name] = st
	}

	body := gin.H{
		"status":         "ok",
		"app":            h.appName,
		"env":            h.env,
		"uptime_sec":     int(time.Since(h.startedAt).Seconds()),
		"indexed_chunks": h.indexed(),
		"dependencies":   statuses,
	}
	if !allOK {
		body["status"] = "degraded"
		body["code"] = response.CodeServiceDegraded
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
