package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker is a dependency the service needs to be ready.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Handler answers liveness and readiness probes.
type Handler struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewHandler probes every named checker on readiness.
func NewHandler(checks map[string]Checker) *Handler {
	return &Handler{
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.LivenessCheck)
	r.GET("/health/ready", h.ReadinessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	status, code := "UP", http.StatusOK
	for name, checker := range h.checks {
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "DOWN"
			status, code = "DOWN", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "UP"
	}

	c.JSON(code, gin.H{"status": status, "checks": checks})
}
