// Package recommendation turns risk-annotated open invoices into a ranked
// collections plan: next-best action, numeric priority, urgency tier, and
// communication tone per invoice. The engine is deterministic: identical
// input always yields the identical plan.
package recommendation

import (
	"sort"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// Config tunes the decision table.
type Config struct {
	// HighValueThreshold marks an invoice as high-value by amount.
	HighValueThreshold float64
	// MaxReminders is the prior-action count at which the engine stops
	// reminding and escalates.
	MaxReminders int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{HighValueThreshold: 10000, MaxReminders: 5}
}

// Recommendation is one invoice's entry in the collections plan.
type Recommendation struct {
	InvoiceID    string        `json:"invoice_id"`
	CustomerID   string        `json:"customer_id"`
	CustomerName string        `json:"customer_name,omitempty"`
	Amount       float64       `json:"invoice_amount"`
	DaysOverdue  int           `json:"days_overdue"`
	RiskScore    int           `json:"risk_score"`
	PriorActions int           `json:"prior_actions"`
	Action       ar.ActionType `json:"recommended_action"`
	Priority     int           `json:"action_priority"`
	Urgency      ar.Urgency    `json:"urgency"`
	Tone         ar.Tone       `json:"message_tone"`
}

// Engine generates recommendations.
type Engine struct {
	cfg     Config
	metrics *prometheus.Metrics
	log     logging.Logger
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithMetrics attaches prometheus instrumentation to the engine.
func WithMetrics(m *prometheus.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine returns a recommendation engine with the given thresholds.
func NewEngine(cfg Config, log logging.Logger, opts ...EngineOption) *Engine {
	if cfg.HighValueThreshold == 0 {
		cfg.HighValueThreshold = 10000
	}
	if cfg.MaxReminders == 0 {
		cfg.MaxReminders = 5
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	e := &Engine{cfg: cfg, log: log.Named("recommendation")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend builds the ranked plan for the open invoices in scored.
// Non-open invoices are skipped. priorActions maps invoice id to the
// count of previously logged collection touches; missing entries mean
// zero. The result is sorted by priority descending with ties kept in
// input order.
func (e *Engine) Recommend(scored []invoice.RiskAnnotated, customers map[string]*invoice.Customer, priorActions map[string]int, asOf time.Time) []Recommendation {
	out := make([]Recommendation, 0, len(scored))

	for i := range scored {
		inv := &scored[i]
		if inv.Status != ar.InvoiceOpen && inv.Status != "" {
			continue
		}

		d := dates.DaysOverdue(inv.DueDate, asOf)
		prior := priorActions[inv.ID]
		highValue := inv.Amount >= e.cfg.HighValueThreshold

		rec := Recommendation{
			InvoiceID:    inv.ID,
			CustomerID:   inv.CustomerID,
			Amount:       inv.Amount,
			DaysOverdue:  d,
			RiskScore:    inv.RiskScore,
			PriorActions: prior,
			Action:       e.selectAction(d, inv.RiskScore, prior, highValue),
			Tone:         selectTone(d, prior, highValue),
		}
		rec.Priority = priorityScore(d, inv.RiskScore, inv.Amount, prior)
		rec.Urgency = ar.UrgencyFromPriority(rec.Priority)
		if cust := customers[inv.CustomerID]; cust != nil {
			rec.CustomerName = cust.Name
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Priority > out[b].Priority })

	if e.metrics != nil {
		for i := range out {
			e.metrics.ObserveRecommendation(string(out[i].Action), string(out[i].Urgency))
		}
	}

	e.log.Info("recommendations generated", logging.Int("count", len(out)))
	return out
}

// selectAction walks the decision table top to bottom; the first matching
// rule wins.
func (e *Engine) selectAction(daysOverdue, riskScore, prior int, highValue bool) ar.ActionType {
	switch {
	case prior >= e.cfg.MaxReminders:
		return ar.ActionEscalate

	case daysOverdue <= 0 && riskScore >= 70:
		// Not yet overdue but high predicted risk: proactive touch.
		return ar.ActionFriendlyReminder

	case daysOverdue <= 0:
		// Not overdue, low risk: nothing in the table matches; treat as a
		// gentle first touch.
		return ar.ActionFriendlyReminder

	case daysOverdue <= 3:
		if prior == 0 {
			return ar.ActionFriendlyReminder
		}
		return ar.ActionSecondReminder

	case daysOverdue <= 10:
		if prior == 0 {
			return ar.ActionReminderWithInquiry
		}
		return ar.ActionCall

	case daysOverdue <= 20:
		if highValue {
			return ar.ActionCall
		}
		return ar.ActionFirmReminder

	case daysOverdue <= 45:
		if prior < 2 {
			return ar.ActionPaymentPlanOffer
		}
		return ar.ActionPauseServiceWarning

	default:
		if highValue {
			return ar.ActionEscalate
		}
		return ar.ActionFinalNotice
	}
}

// priorityScore combines overdue severity (40%), risk (30%), amount (20%),
// and prior outreach (10%) into an integer 0-100.
func priorityScore(daysOverdue, riskScore int, amount float64, prior int) int {
	overdueScore := min100(float64(daysOverdue) / 90 * 100)
	amountScore := min100(amount / 50000 * 100)
	actionsScore := min100(float64(prior) / 5 * 100)

	p := overdueScore*0.4 + float64(riskScore)*0.3 + amountScore*0.2 + actionsScore*0.1
	return int(p)
}

func selectTone(daysOverdue, prior int, highValue bool) ar.Tone {
	if highValue && daysOverdue < 15 {
		return ar.ToneFriendly
	}
	if daysOverdue <= 7 && prior == 0 {
		return ar.ToneFriendly
	}
	if prior >= 2 || daysOverdue >= 30 {
		return ar.ToneFirm
	}
	return ar.ToneNeutral
}

// Top filters recs to those with priority ≥ minPriority and returns at
// most n entries, preserving rank order.
func Top(recs []Recommendation, n, minPriority int) []Recommendation {
	out := make([]Recommendation, 0, n)
	for _, r := range recs {
		if r.Priority < minPriority {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	return out
}

func min100(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}
