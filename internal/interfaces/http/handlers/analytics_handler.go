package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/analytics"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
)

// AnalyticsHandler exposes aging, AR metrics, and cash forecasting.
type AnalyticsHandler struct {
	svc *analytics.Service
	log logging.Logger
}

// NewAnalyticsHandler builds the handler.
func NewAnalyticsHandler(svc *analytics.Service, log logging.Logger) *AnalyticsHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AnalyticsHandler{svc: svc, log: log}
}

// Aging handles POST /api/v1/analytics/aging.
func (h *AnalyticsHandler) Aging(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"as_of":     asOf.Format("2006-01-02"),
		"buckets":   h.svc.AgingSummary(ds, asOf),
		"customers": h.svc.CustomerAgingSummary(ds, asOf),
	})
}

// Summary handles POST /api/v1/analytics/summary: the full AR health
// report (totals, DSO, CEI, payment behaviour).
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.Summary(ds, asOf))
}

// Forecast handles POST /api/v1/analytics/forecast: expected cash
// inflows over the 7/14/30 day horizons.
func (h *AnalyticsHandler) Forecast(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.ForecastInflows(ds, asOf))
}

// Scenarios handles POST /api/v1/analytics/scenarios: seeded Monte-Carlo
// collection scenarios with P10/P50/P90 percentiles. Query params:
// days (default 30), seed (default 42).
func (h *AnalyticsHandler) Scenarios(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}
	days := queryInt(c, "days", 30)
	seed := int64(queryInt(c, "seed", 42))

	scenarios := h.svc.SimulateScenarios(ds, asOf, days, seed)
	c.JSON(http.StatusOK, gin.H{
		"days_ahead":  days,
		"runs":        len(scenarios),
		"percentiles": analytics.SummarizeScenarios(scenarios),
	})
}

// CashGap handles POST /api/v1/analytics/cash-gap: outstanding AR versus
// expected collections over the horizon. Query param: days (default 30).
func (h *AnalyticsHandler) CashGap(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.CashGapAnalysis(ds, asOf, queryInt(c, "days", 30)))
}
