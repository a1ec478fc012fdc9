// Package fallback implements the rule-based risk scorer used when no
// trained model artifact is available. It shares the 0-100 score range
// and the four-tier category boundaries with the model path, so
// downstream consumers cannot tell which path produced a score. The
// formula is maintained independently from the model's feature set.
package fallback

import (
	"math"
	"sort"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// Component weights of the linear risk formula.
const (
	weightOverdue     = 0.40
	weightAmount      = 0.20
	weightTerms       = 0.20
	weightUtilization = 0.20
)

// Normalization horizons: days overdue saturates at 90 days, payment
// terms at 60 days.
const (
	overdueHorizonDays = 90
	termsHorizonDays   = 60
)

// defaultTermsDays substitutes for a missing customer record.
const defaultTermsDays = 30

// Scored is one invoice's fallback output, shape-compatible with the
// model path.
type Scored struct {
	InvoiceID    string          `json:"invoice_id"`
	RiskScore    int             `json:"risk_score"`
	RiskCategory ar.RiskCategory `json:"risk_category"`
}

// Scorer computes rule-based risk scores.
type Scorer struct {
	log logging.Logger
}

// NewScorer returns a fallback scorer logging through log.
func NewScorer(log logging.Logger) *Scorer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Scorer{log: log.Named("fallback")}
}

// Score computes the weighted linear risk score for every open invoice in
// the dataset, at asOf:
//
//	0.40 × overdue severity   (days_overdue / 90, saturating)
//	0.20 × amount severity    (amount / p95 batch amount, saturating)
//	0.20 × terms severity     (payment terms / 60 days, saturating)
//	0.20 × utilization        (customer open AR / credit limit, saturating)
//
// Each component is a 0-100 sub-score; the combination rounds to an
// integer 0-100 and categorizes through the shared boundary table.
func (s *Scorer) Score(ds *invoice.Dataset, asOf time.Time) []Scored {
	open := ds.OpenInvoices()
	if len(open) == 0 {
		return nil
	}

	customers := ds.CustomerByID()
	p95 := amountP95(ds.Invoices)
	openAR := openARByCustomer(open)

	out := make([]Scored, 0, len(open))
	for i := range open {
		inv := &open[i]

		overdueScore := clip100(float64(dates.DaysOverdue(inv.DueDate, asOf)) / overdueHorizonDays * 100)

		amountScore := 0.0
		if p95 > 0 {
			amountScore = clip100(inv.Amount / p95 * 100)
		}

		terms := float64(defaultTermsDays)
		var utilizationScore float64
		if cust := customers[inv.CustomerID]; cust != nil {
			if cust.PaymentTermsDays > 0 {
				terms = float64(cust.PaymentTermsDays)
			}
			if cust.CreditLimit > 0 {
				utilizationScore = clip100(openAR[inv.CustomerID] / cust.CreditLimit * 100)
			}
		}
		termsScore := clip100(terms / termsHorizonDays * 100)

		score := int(math.Round(
			overdueScore*weightOverdue +
				amountScore*weightAmount +
				termsScore*weightTerms +
				utilizationScore*weightUtilization,
		))

		out = append(out, Scored{
			InvoiceID:    inv.ID,
			RiskScore:    score,
			RiskCategory: ar.RiskCategoryFromScore(score),
		})
	}

	s.log.Info("fallback risk scoring complete", logging.Int("scored", len(out)))
	return out
}

// amountP95 returns the 95th-percentile invoice amount of the full batch,
// the normalizer for the amount component.
func amountP95(invoices []invoice.Invoice) float64 {
	if len(invoices) == 0 {
		return 0
	}
	amounts := make([]float64, len(invoices))
	for i := range invoices {
		amounts[i] = invoices[i].Amount
	}
	sort.Float64s(amounts)

	// Linear interpolation between the two nearest ranks.
	rank := 0.95 * float64(len(amounts)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return amounts[lo]
	}
	frac := rank - float64(lo)
	return amounts[lo]*(1-frac) + amounts[hi]*frac
}

func openARByCustomer(open []invoice.Invoice) map[string]float64 {
	out := make(map[string]float64)
	for i := range open {
		out[open[i].CustomerID] += open[i].Amount
	}
	return out
}

func clip100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
