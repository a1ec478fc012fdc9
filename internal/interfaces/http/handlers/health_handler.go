package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
)

// Checker is the readiness probe contract satisfied by the postgres pool
// and the redis client.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks map[string]Checker
	log    logging.Logger
}

// NewHealthHandler builds the handler from named dependency checks.
func NewHealthHandler(checks map[string]Checker, log logging.Logger) *HealthHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &HealthHandler{checks: checks, log: log}
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz: every registered dependency must
// answer within two seconds.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			h.log.Warn("readiness check failed", logging.String("dependency", name), logging.Err(err))
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}

	body := gin.H{"status": "ok", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}
