// Package scheduler plans and manages the automated collections cadence:
// for every risk-scored open invoice it lays out a sequence of future
// touches whose spacing tightens with risk, lands each touch on a
// business day, and walks an escalation ladder as attempts accumulate.
package scheduler

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/action"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// cadences maps a risk category to the day offsets, from the planning
// instant, of each follow-up touch. Spacing tightens with risk: weekly
// for low, near-daily opening for very high.
var cadences = map[ar.RiskCategory][]int{
	ar.RiskLow:      {7, 14, 21, 30},
	ar.RiskMedium:   {5, 10, 15, 22, 30},
	ar.RiskHigh:     {3, 7, 10, 14, 17, 21},
	ar.RiskVeryHigh: {1, 3, 5, 7, 9, 12, 15},
}

// cadenceFor returns the offsets for a category, defaulting to the
// medium cadence for anything unrecognized.
func cadenceFor(category ar.RiskCategory) []int {
	if c, ok := cadences[category]; ok {
		return c
	}
	return cadences[ar.RiskMedium]
}

// Effectiveness summarizes how the cadence strategy performed over a
// schedule history.
type Effectiveness struct {
	TotalActions         int                   `json:"total_actions"`
	CompletedActions     int                   `json:"completed_actions"`
	CancelledActions     int                   `json:"cancelled_actions"`
	PendingActions       int                   `json:"pending_actions"`
	CompletionRate       float64               `json:"completion_rate"`
	ActionTypeBreakdown  map[ar.ActionType]int `json:"action_type_breakdown,omitempty"`
	AvgAttemptsToPayment float64               `json:"avg_attempts_to_payment"`
}

// Scheduler generates and manages collection schedules backed by an
// action repository.
type Scheduler struct {
	repo        action.Repository
	horizonDays int
	maxAttempts int
	holidays    map[time.Time]struct{}
	metrics     *prometheus.Metrics
	log         logging.Logger
}

// New builds a scheduler from the collections configuration. metrics may
// be nil when Prometheus exposition is disabled.
func New(repo action.Repository, cfg config.SchedulerConfig, metrics *prometheus.Metrics, log logging.Logger) *Scheduler {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = config.DefaultSchedulerHorizonDays
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = config.DefaultSchedulerMaxAttempts
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	holidays := make(map[time.Time]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		if t, err := time.Parse("2006-01-02", h); err == nil {
			holidays[t.UTC()] = struct{}{}
		}
	}

	return &Scheduler{
		repo:        repo,
		horizonDays: cfg.HorizonDays,
		maxAttempts: cfg.MaxAttempts,
		holidays:    holidays,
		metrics:     metrics,
		log:         log.Named("scheduler"),
	}
}

// ScheduleInvoice lays out the follow-up sequence for one invoice,
// starting from the last contact (or planning) instant. Touches beyond
// the planning horizon are dropped; each date is advanced to the next
// business day. The returned actions are not persisted.
func (s *Scheduler) ScheduleInvoice(invoiceID, customerID string, category ar.RiskCategory, daysOverdue int, lastContact time.Time) []*action.Action {
	cadence := cadenceFor(category)
	if len(cadence) > s.maxAttempts {
		cadence = cadence[:s.maxAttempts]
	}

	out := make([]*action.Action, 0, len(cadence))
	for i, offset := range cadence {
		if offset > s.horizonDays {
			break
		}
		attempt := i + 1
		scheduledAt := dates.NextBusinessDay(lastContact.AddDate(0, 0, offset), s.holidays)
		typ := ladderAction(attempt, daysOverdue+offset, category)
		out = append(out, action.NewAction(invoiceID, customerID, attempt, typ, scheduledAt))
	}
	return out
}

// Plan generates and persists schedules for every open invoice in
// scored. Invoices that already have pending actions are skipped so
// repeated planning runs do not double-book touches.
func (s *Scheduler) Plan(ctx context.Context, scored []invoice.RiskAnnotated, asOf time.Time) ([]*action.Action, error) {
	var planned []*action.Action

	for i := range scored {
		inv := &scored[i]
		if inv.Status != ar.InvoiceOpen && inv.Status != "" {
			continue
		}

		existing, err := s.repo.List(ctx, action.Filter{
			InvoiceID: inv.ID,
			Status:    string(ar.ActionPending),
			Limit:     1,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing pending actions")
		}
		if len(existing) > 0 {
			continue
		}

		planned = append(planned, s.ScheduleInvoice(inv.ID, inv.CustomerID, inv.RiskCategory, inv.DaysOverdueAt, asOf)...)
	}

	if len(planned) == 0 {
		return nil, nil
	}
	if err := s.repo.SaveBatch(ctx, planned); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "persisting schedule")
	}

	if s.metrics != nil {
		for _, a := range planned {
			s.metrics.ObserveScheduledTouch(string(a.Type))
		}
	}
	s.log.Info("collections schedule planned",
		logging.Int("invoices", len(scored)),
		logging.Int("touches", len(planned)))
	return planned, nil
}

// DueOn returns the pending actions scheduled on the given calendar day,
// ordered by scheduled time.
func (s *Scheduler) DueOn(ctx context.Context, day time.Time) ([]*action.Action, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.repo.List(ctx, action.Filter{
		Status: string(ar.ActionPending),
		Since:  start,
		Until:  start.AddDate(0, 0, 1).Add(-time.Nanosecond),
	})
}

// WeekAhead returns the pending actions falling in [from, from+7d],
// ordered by scheduled time.
func (s *Scheduler) WeekAhead(ctx context.Context, from time.Time) ([]*action.Action, error) {
	return s.repo.List(ctx, action.Filter{
		Status: string(ar.ActionPending),
		Since:  from,
		Until:  from.AddDate(0, 0, 7),
	})
}

// Reschedule moves a pending action to a new date, advanced to the next
// business day. Terminal actions cannot be rescheduled.
func (s *Scheduler) Reschedule(ctx context.Context, actionID string, newAt time.Time, reason string) (*action.Action, error) {
	a, err := s.repo.GetByID(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, errors.New(errors.ErrCodeAttemptInvalidState, "cannot reschedule terminal action").
			WithDetail("action_id=" + actionID + " status=" + string(a.Status))
	}

	a.ScheduledAt = dates.NextBusinessDay(newAt, s.holidays)
	if reason != "" {
		a.Notes = reason
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// MarkCompleted records the outcome of an executed touch.
func (s *Scheduler) MarkCompleted(ctx context.Context, actionID string, outcome ar.ActionOutcome, at time.Time, notes string) (*action.Action, error) {
	a, err := s.repo.GetByID(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if err := a.Complete(outcome, at); err != nil {
		return nil, err
	}
	if notes != "" {
		a.Notes = notes
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CancelFutureActions cancels every pending action for an invoice,
// typically after payment lands. Returns the number cancelled.
func (s *Scheduler) CancelFutureActions(ctx context.Context, invoiceID, reason string, at time.Time) (int, error) {
	pending, err := s.repo.List(ctx, action.Filter{
		InvoiceID: invoiceID,
		Status:    string(ar.ActionPending),
	})
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, a := range pending {
		if err := a.Cancel(reason, at); err != nil {
			continue
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return cancelled, err
		}
		cancelled++
	}
	if cancelled > 0 {
		s.log.Info("pending actions cancelled",
			logging.String("invoice_id", invoiceID),
			logging.Int("count", cancelled),
			logging.String("reason", reason))
	}
	return cancelled, nil
}

// Effectiveness computes strategy metrics over the full schedule history.
// paidInvoiceIDs marks invoices that have since been paid; for those, the
// highest attempt number reached feeds the average-attempts-to-payment
// figure.
func (s *Scheduler) Effectiveness(ctx context.Context, paidInvoiceIDs map[string]struct{}) (Effectiveness, error) {
	all, err := s.repo.List(ctx, action.Filter{})
	if err != nil {
		return Effectiveness{}, err
	}

	eff := Effectiveness{TotalActions: len(all)}
	if len(all) == 0 {
		return eff, nil
	}

	breakdown := make(map[ar.ActionType]int)
	maxAttemptByPaid := make(map[string]int)
	for _, a := range all {
		switch a.Status {
		case ar.ActionCompleted:
			eff.CompletedActions++
			breakdown[a.Type]++
		case ar.ActionCancelled:
			eff.CancelledActions++
		default:
			eff.PendingActions++
		}
		if _, paid := paidInvoiceIDs[a.InvoiceID]; paid && a.Attempt > maxAttemptByPaid[a.InvoiceID] {
			maxAttemptByPaid[a.InvoiceID] = a.Attempt
		}
	}

	eff.CompletionRate = round4(float64(eff.CompletedActions) / float64(eff.TotalActions))
	if len(breakdown) > 0 {
		eff.ActionTypeBreakdown = breakdown
	}
	if len(maxAttemptByPaid) > 0 {
		total := 0
		for _, attempts := range maxAttemptByPaid {
			total += attempts
		}
		eff.AvgAttemptsToPayment = round4(float64(total) / float64(len(maxAttemptByPaid)))
	}
	return eff, nil
}

// CadenceSummary describes one risk tier's cadence rule.
type CadenceSummary struct {
	RiskCategory      ar.RiskCategory `json:"risk_category"`
	TotalAttempts     int             `json:"total_attempts"`
	CadenceDays       []int           `json:"cadence_days"`
	TotalDurationDays int             `json:"total_duration_days"`
}

// CadenceSummaries returns the cadence table, ordered from low to very
// high risk.
func CadenceSummaries() []CadenceSummary {
	order := []ar.RiskCategory{ar.RiskLow, ar.RiskMedium, ar.RiskHigh, ar.RiskVeryHigh}
	out := make([]CadenceSummary, 0, len(order))
	for _, cat := range order {
		days := cadences[cat]
		out = append(out, CadenceSummary{
			RiskCategory:      cat,
			TotalAttempts:     len(days),
			CadenceDays:       append([]int(nil), days...),
			TotalDurationDays: days[len(days)-1],
		})
	}
	return out
}

// ladderAction walks the escalation ladder: the attempt number sets the
// base rung, pushed harder when the invoice will already be deep overdue
// by the time the touch runs.
func ladderAction(attempt, estimatedDaysOverdue int, category ar.RiskCategory) ar.ActionType {
	switch {
	case attempt == 1:
		return ar.ActionFriendlyReminder
	case attempt == 2:
		return ar.ActionSecondNotice
	case attempt == 3:
		if category == ar.RiskVeryHigh || estimatedDaysOverdue > 30 {
			return ar.ActionCallRequest
		}
		return ar.ActionSecondNotice
	case attempt == 4:
		if estimatedDaysOverdue > 45 {
			return ar.ActionEscalate
		}
		return ar.ActionCallRequest
	default:
		if estimatedDaysOverdue > 60 {
			return ar.ActionEscalate
		}
		if attempt%2 == 0 {
			return ar.ActionPaymentPlanOffer
		}
		return ar.ActionCallRequest
	}
}

// SortBySchedule orders actions by scheduled time, then attempt number.
func SortBySchedule(actions []*action.Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		if !actions[i].ScheduledAt.Equal(actions[j].ScheduledAt) {
			return actions[i].ScheduledAt.Before(actions[j].ScheduledAt)
		}
		return actions[i].Attempt < actions[j].Attempt
	})
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
