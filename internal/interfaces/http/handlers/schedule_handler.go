package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/scheduler"
	"github.com/turtacn/CashFlow-Sentinel/internal/application/scoring"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// PlanPublisher emits plan-generated events.
type PlanPublisher interface {
	PublishPlanGenerated(ctx context.Context, payload kafka.PlanGeneratedPayload) error
}

// ScheduleHandler exposes the collections scheduler.
type ScheduleHandler struct {
	scorer    *scoring.Service
	scheduler *scheduler.Scheduler
	publisher PlanPublisher
	log       logging.Logger
}

// NewScheduleHandler builds the handler. publisher may be nil.
func NewScheduleHandler(scorer *scoring.Service, sched *scheduler.Scheduler, publisher PlanPublisher, log logging.Logger) *ScheduleHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ScheduleHandler{scorer: scorer, scheduler: sched, publisher: publisher, log: log}
}

// Plan handles POST /api/v1/schedules: score the posted book and persist
// a follow-up cadence for every open invoice without pending touches.
func (h *ScheduleHandler) Plan(c *gin.Context) {
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

	planned, err := h.scheduler.Plan(c.Request.Context(), scored.Invoices, asOf)
	if err != nil {
		writeError(c, err)
		return
	}

	planID := uuid.New().String()
	if h.publisher != nil {
		err := h.publisher.PublishPlanGenerated(c.Request.Context(), kafka.PlanGeneratedPayload{
			PlanID:       planID,
			AsOf:         asOf,
			InvoiceCount: len(scored.Invoices),
			TouchCount:   len(planned),
			GeneratedAt:  time.Now().UTC(),
		})
		if err != nil {
			h.log.Warn("failed to publish plan-generated event", logging.Err(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"plan_id": planID,
		"as_of":   asOf.Format("2006-01-02"),
		"actions": planned,
	})
}

// Today handles GET /api/v1/schedules/today: pending touches due on the
// given date (query param date, default today UTC).
func (h *ScheduleHandler) Today(c *gin.Context) {
	day, err := queryDate(c, "date")
	if err != nil {
		writeError(c, err)
		return
	}
	actions, err := h.scheduler.DueOn(c.Request.Context(), day)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day.Format("2006-01-02"), "actions": actions})
}

// Week handles GET /api/v1/schedules/week: pending touches in the seven
// days starting at the given date.
func (h *ScheduleHandler) Week(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		writeError(c, err)
		return
	}
	actions, err := h.scheduler.WeekAhead(c.Request.Context(), from)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from.Format("2006-01-02"), "actions": actions})
}

type completeRequest struct {
	Outcome     string `json:"outcome" binding:"required"`
	CompletedAt string `json:"completed_at"`
	Notes       string `json:"notes"`
}

// Complete handles POST /api/v1/schedules/:id/complete.
func (h *ScheduleHandler) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
		return
	}
	at, err := parseOptionalTime(req.CompletedAt)
	if err != nil {
		writeError(c, err)
		return
	}
	a, err := h.scheduler.MarkCompleted(c.Request.Context(), c.Param("id"), ar.ActionOutcome(req.Outcome), at, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type rescheduleRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required"`
	Reason      string `json:"reason"`
}

// Reschedule handles POST /api/v1/schedules/:id/reschedule. The new date
// is shifted forward past weekends and holidays.
func (h *ScheduleHandler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
		return
	}
	newAt, err := parseOptionalTime(req.ScheduledAt)
	if err != nil {
		writeError(c, err)
		return
	}
	a, err := h.scheduler.Reschedule(c.Request.Context(), c.Param("id"), newAt, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelInvoice handles POST /api/v1/schedules/invoices/:id/cancel:
// cancel every pending touch for an invoice, typically on payment.
func (h *ScheduleHandler) CancelInvoice(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
		return
	}
	n, err := h.scheduler.CancelFutureActions(c.Request.Context(), c.Param("id"), req.Reason, time.Now().UTC())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}

type effectivenessRequest struct {
	PaidInvoiceIDs []string `json:"paid_invoice_ids"`
}

// Effectiveness handles POST /api/v1/schedules/effectiveness.
func (h *ScheduleHandler) Effectiveness(c *gin.Context) {
	var req effectivenessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
		return
	}
	paid := make(map[string]struct{}, len(req.PaidInvoiceIDs))
	for _, id := range req.PaidInvoiceIDs {
		paid[id] = struct{}{}
	}
	eff, err := h.scheduler.Effectiveness(c.Request.Context(), paid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eff)
}

func queryDate(c *gin.Context, name string) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errors.InvalidParam(name + " must be YYYY-MM-DD").WithDetail(name + "=" + v)
	}
	return t, nil
}

func parseOptionalTime(v string) (time.Time, error) {
	if v == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, errors.InvalidParam("timestamp must be YYYY-MM-DD or RFC 3339").WithDetail("value=" + v)
}
