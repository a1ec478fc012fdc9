// Package features transforms raw invoice, customer, and payment records
// into the fixed-width numeric feature vectors consumed by the risk model.
// All derivations are pure functions of the input dataset and an explicit
// as-of instant; nothing here reads the wall clock or mutates its inputs.
package features

import (
	"math"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// Matrix is the engineered feature output: one row per input invoice, in
// input order, each row NumFeatures wide in Columns order. Ephemeral:
// keyed by invoice id and as-of instant, recomputed on every call, never
// persisted.
type Matrix struct {
	Columns    []string
	InvoiceIDs []string
	Rows       [][]float64
	AsOf       time.Time
}

// Engine derives feature vectors and training labels from AR datasets.
type Engine struct {
	log logging.Logger
}

// NewEngine returns a feature engine logging through log.
func NewEngine(log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{log: log.Named("features")}
}

// CustomerHistory is a customer's payment behavior computed strictly from
// invoices issued before the as-of instant and payments dated before it.
// The cutoff prevents label leakage during training simulation.
type CustomerHistory struct {
	InvoiceCount     float64
	AvgDaysLate      float64
	LateRatePct      float64 // 0-100
	AvgPaymentAmount float64
	hasPayments      bool
}

// Engineer produces one feature row per input invoice, in input order.
// Missing customers, absent payment history, and zero credit limits all
// degrade to documented neutral defaults rather than failing; the output
// row count always equals the input invoice count.
func (e *Engine) Engineer(ds *invoice.Dataset, asOf time.Time) *Matrix {
	m := &Matrix{
		Columns:    Columns(),
		InvoiceIDs: make([]string, 0, len(ds.Invoices)),
		Rows:       make([][]float64, 0, len(ds.Invoices)),
		AsOf:       asOf,
	}

	customers := ds.CustomerByID()
	history := e.customerHistories(ds, asOf)
	concentration := openARConcentration(ds.Invoices)

	for i := range ds.Invoices {
		inv := &ds.Invoices[i]
		m.InvoiceIDs = append(m.InvoiceIDs, inv.ID)
		m.Rows = append(m.Rows, e.row(asOf, inv, customers[inv.CustomerID], history[inv.CustomerID], concentration[inv.CustomerID]))
	}

	e.log.Debug("features engineered",
		logging.Int("invoices", len(m.Rows)),
		logging.Time("as_of", asOf),
	)
	return m
}

func (e *Engine) row(asOf time.Time, inv *invoice.Invoice, cust *invoice.Customer, hist *CustomerHistory, concentrationPct float64) []float64 {
	daysUntilDue := float64(dates.DaysUntilDue(inv.DueDate, asOf))
	daysSinceIssue := float64(dates.DaysBetween(inv.IssueDate, asOf))
	termDays := float64(dates.DaysBetween(inv.IssueDate, inv.DueDate))

	amountLog := math.Log1p(inv.Amount)
	amountSqrt := math.Sqrt(inv.Amount)

	var creditLimitLog, utilization float64
	if cust != nil && cust.CreditLimit > 0 {
		creditLimitLog = math.Log1p(cust.CreditLimit)
		utilization = clip(inv.Amount/cust.CreditLimit, 0, 2)
	}

	// New customers with no qualifying history get neutral defaults.
	count, avgLate, lateRate := 1.0, 0.0, 0.0
	if hist != nil {
		count = hist.InvoiceCount
		avgLate = hist.AvgDaysLate
		lateRate = hist.LateRatePct
	}

	return []float64{
		daysUntilDue,
		daysSinceIssue,
		termDays,
		float64(inv.IssueDate.Month()),
		float64(dates.Quarter(inv.IssueDate)),
		float64(mondayIndexedWeekday(inv.IssueDate)),
		boolFlag(dates.IsWeekend(inv.IssueDate)),
		float64(inv.DueDate.Month()),
		float64(dates.Quarter(inv.DueDate)),
		float64(mondayIndexedWeekday(inv.DueDate)),
		boolFlag(dates.IsWeekend(inv.DueDate)),
		amountLog,
		amountSqrt,
		creditLimitLog,
		utilization,
		count,
		avgLate,
		lateRate,
		concentrationPct,
		boolFlag(inv.Type == ar.InvoiceRecurring),
		boolFlag(inv.Type == ar.InvoiceMilestone),
		boolFlag(inv.Channel == ar.ChannelOnline),
		amountLog * daysUntilDue,
		amountLog * lateRate,
		utilization * lateRate,
	}
}

// mondayIndexedWeekday maps time.Weekday (Sunday=0) to the Monday=0
// convention used by the feature contract.
func mondayIndexedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func boolFlag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openARConcentration computes each customer's open AR as a percentage of
// the batch-wide open AR. Customers with no open invoices map to 0.
func openARConcentration(invoices []invoice.Invoice) map[string]float64 {
	perCustomer := make(map[string]float64)
	total := 0.0
	for i := range invoices {
		if !isOpen(invoices[i].Status) {
			continue
		}
		perCustomer[invoices[i].CustomerID] += invoices[i].Amount
		total += invoices[i].Amount
	}
	out := make(map[string]float64, len(perCustomer))
	if total <= 0 {
		return out
	}
	for id, amt := range perCustomer {
		out[id] = amt / total * 100
	}
	return out
}

func isOpen(s ar.InvoiceStatus) bool {
	return s == ar.InvoiceOpen || s == ""
}

// customerHistories aggregates per-customer behavior from the historical
// slice of the dataset: invoices issued strictly before asOf, left-joined
// with their payments, keeping only payments dated strictly before asOf.
// Each invoice-payment pair is one observation; an invoice with no
// qualifying payment contributes one unpaid observation with zero days
// late.
func (e *Engine) customerHistories(ds *invoice.Dataset, asOf time.Time) map[string]*CustomerHistory {
	byInvoice := ds.PaymentsByInvoice()

	type accum struct {
		count      int
		daysLate   float64
		lateCount  int
		paidAmount float64
		paidCount  int
	}
	acc := make(map[string]*accum)

	for i := range ds.Invoices {
		inv := &ds.Invoices[i]
		if !inv.IssueDate.Before(asOf) {
			continue
		}

		a := acc[inv.CustomerID]
		if a == nil {
			a = &accum{}
			acc[inv.CustomerID] = a
		}

		qualifying := 0
		for _, p := range byInvoice[inv.ID] {
			if !p.Date.Before(asOf) {
				continue
			}
			qualifying++
			dl := float64(dates.DaysOverdue(inv.DueDate, p.Date))
			a.count++
			a.daysLate += dl
			if dl > 0 {
				a.lateCount++
			}
			a.paidAmount += p.Amount
			a.paidCount++
		}
		if qualifying == 0 {
			// Unpaid historical invoice: one observation, zero days late.
			a.count++
		}
	}

	out := make(map[string]*CustomerHistory, len(acc))
	for id, a := range acc {
		if a.count == 0 {
			continue
		}
		h := &CustomerHistory{
			InvoiceCount: float64(a.count),
			AvgDaysLate:  a.daysLate / float64(a.count),
			LateRatePct:  round2(float64(a.lateCount) / float64(a.count) * 100),
		}
		if a.paidCount > 0 {
			h.AvgPaymentAmount = a.paidAmount / float64(a.paidCount)
			h.hasPayments = true
		}
		out[id] = h
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
