package features

import (
	"sort"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
)

// Labeled pairs a feature row with its training label and the invoice's
// issue date, which drives the temporal train/test split.
type Labeled struct {
	InvoiceID string
	IssueDate time.Time
	Features  []float64
	IsLate    bool
}

// BuildTraining assembles the labeled training set: feature rows for every
// invoice with a recorded payment, labeled late when the first payment
// landed more than lateThresholdDays past due. Invoices without a payment
// carry no label and are excluded. The result is sorted by issue date
// ascending so callers can split temporally (older rows train, newer rows
// test).
func (e *Engine) BuildTraining(ds *invoice.Dataset, lateThresholdDays int, asOf time.Time) []Labeled {
	m := e.Engineer(ds, asOf)
	firstPayment := firstPaymentDates(ds)

	out := make([]Labeled, 0, len(ds.Invoices))
	for i := range ds.Invoices {
		inv := &ds.Invoices[i]
		paidAt, ok := firstPayment[inv.ID]
		if !ok {
			continue
		}
		daysLate := dates.DaysOverdue(inv.DueDate, paidAt)
		out = append(out, Labeled{
			InvoiceID: inv.ID,
			IssueDate: inv.IssueDate,
			Features:  m.Rows[i],
			IsLate:    daysLate > lateThresholdDays,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IssueDate.Before(out[j].IssueDate)
	})
	return out
}

// firstPaymentDates maps each invoice to its earliest payment date.
func firstPaymentDates(ds *invoice.Dataset) map[string]time.Time {
	first := make(map[string]time.Time)
	for _, p := range ds.Payments {
		if cur, ok := first[p.InvoiceID]; !ok || p.Date.Before(cur) {
			first[p.InvoiceID] = p.Date
		}
	}
	return first
}
