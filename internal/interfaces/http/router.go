// Package http assembles the gin route tree and the HTTP server for the
// AR intelligence API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CashFlow-Sentinel/internal/interfaces/http/handlers"
	"github.com/turtacn/CashFlow-Sentinel/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and infrastructure the route tree
// needs. Nil handlers leave their routes unregistered, so partial
// deployments (e.g. analytics-only) stay possible.
type RouterConfig struct {
	ScoreHandler          *handlers.ScoreHandler
	RecommendationHandler *handlers.RecommendationHandler
	ScheduleHandler       *handlers.ScheduleHandler
	AnalyticsHandler      *handlers.AnalyticsHandler
	HealthHandler         *handlers.HealthHandler

	Metrics *prometheus.Metrics
	Logger  logging.Logger
	Mode    string // gin mode: "debug" | "release" | "test"
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")

	if cfg.ScoreHandler != nil {
		api.POST("/score", cfg.ScoreHandler.Score)
		api.POST("/score/train", cfg.ScoreHandler.Train)
	}
	if cfg.RecommendationHandler != nil {
		api.POST("/recommendations", cfg.RecommendationHandler.Recommend)
	}
	if cfg.ScheduleHandler != nil {
		api.POST("/schedules", cfg.ScheduleHandler.Plan)
		api.GET("/schedules/today", cfg.ScheduleHandler.Today)
		api.GET("/schedules/week", cfg.ScheduleHandler.Week)
		api.POST("/schedules/:id/complete", cfg.ScheduleHandler.Complete)
		api.POST("/schedules/:id/reschedule", cfg.ScheduleHandler.Reschedule)
		api.POST("/schedules/invoices/:id/cancel", cfg.ScheduleHandler.CancelInvoice)
		api.POST("/schedules/effectiveness", cfg.ScheduleHandler.Effectiveness)
	}
	if cfg.AnalyticsHandler != nil {
		api.POST("/analytics/aging", cfg.AnalyticsHandler.Aging)
		api.POST("/analytics/summary", cfg.AnalyticsHandler.Summary)
		api.POST("/analytics/forecast", cfg.AnalyticsHandler.Forecast)
		api.POST("/analytics/scenarios", cfg.AnalyticsHandler.Scenarios)
		api.POST("/analytics/cash-gap", cfg.AnalyticsHandler.CashGap)
	}

	return r
}
