package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/scoring"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
)

// ScoreHandler exposes risk scoring and model training.
type ScoreHandler struct {
	svc *scoring.Service
	log logging.Logger
}

// NewScoreHandler builds the handler.
func NewScoreHandler(svc *scoring.Service, log logging.Logger) *ScoreHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ScoreHandler{svc: svc, log: log}
}

// Score handles POST /api/v1/score: annotate every open invoice in the
// posted dataset with a risk score and category.
func (h *ScoreHandler) Score(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}

	res, err := h.svc.Score(c.Request.Context(), ds, asOf)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Train handles POST /api/v1/score/train: fit a fresh model on the
// posted payment history and persist the artifact.
func (h *ScoreHandler) Train(c *gin.Context) {
	var req DatasetRequest
	ds, asOf, ok := bindDataset(c, &req)
	if !ok {
		return
	}

	metrics, err := h.svc.Train(c.Request.Context(), ds, asOf)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}
