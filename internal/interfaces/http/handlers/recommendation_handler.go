package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/recommendation"
	"github.com/turtacn/CashFlow-Sentinel/internal/application/scoring"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/action"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
)

// RecommendationHandler exposes the collections recommendation plan.
type RecommendationHandler struct {
	scorer *scoring.Service
	engine *recommendation.Engine
	repo   action.Repository
	log    logging.Logger
}

// NewRecommendationHandler builds the handler. repo supplies prior-touch
// counts; a nil repo means no outreach history.
func NewRecommendationHandler(scorer *scoring.Service, engine *recommendation.Engine, repo action.Repository, log logging.Logger) *RecommendationHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RecommendationHandler{scorer: scorer, engine: engine, repo: repo, log: log}
}

// Recommend handles POST /api/v1/recommendations: score the posted book
// and return the prioritized collections plan. Optional query params
// top (max entries) and min_priority filter the result.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}

	scored, err := h.scorer.Score(c.Request.Context(), ds, asOf)
	if err != nil {
		writeError(c, err)
		return
	}

	prior := map[string]int{}
	if h.repo != nil {
		for i := range scored.Invoices {
			id := scored.Invoices[i].ID
			n, err := h.repo.CountByInvoice(c.Request.Context(), id)
			if err != nil {
				writeError(c, err)
				return
			}
			prior[id] = n
		}
	}

	recs := h.engine.Recommend(scored.Invoices, ds.CustomerByID(), prior, asOf)

	if topN := queryInt(c, "top", 0); topN > 0 {
		recs = recommendation.Top(recs, topN, queryInt(c, "min_priority", 0))
	}

	c.JSON(http.StatusOK, gin.H{
		"as_of":           asOf.Format("2006-01-02"),
		"model_kind":      scored.ModelKind,
		"used_fallback":   scored.UsedFallback,
		"recommendations": recs,
	})
}

func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
