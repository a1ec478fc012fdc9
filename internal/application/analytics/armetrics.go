package analytics

import (
	"sort"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// DSO computes Days Sales Outstanding over the trailing period:
//
//	DSO = current open AR / credit sales in period × period days
//
// Returns 0 when there were no sales in the period.
func (s *Service) DSO(ds *invoice.Dataset, asOf time.Time, periodDays int) float64 {
	if periodDays <= 0 {
		periodDays = 90
	}
	currentAR := 0.0
	for _, inv := range ds.OpenInvoices() {
		currentAR += inv.Amount
	}

	cutoff := asOf.AddDate(0, 0, -periodDays)
	periodSales := 0.0
	for i := range ds.Invoices {
		if !ds.Invoices[i].IssueDate.Before(cutoff) {
			periodSales += ds.Invoices[i].Amount
		}
	}
	if periodSales == 0 {
		return 0
	}
	return round2(currentAR / periodSales * float64(periodDays))
}

// CEI computes the Collection Effectiveness Index over the trailing
// period, clamped to [0, 100]:
//
//	CEI = (beginning AR + credit sales − ending AR) /
//	      (beginning AR + credit sales − ending current AR) × 100
//
// A zero denominator (nothing was collectible) reports 100.
func (s *Service) CEI(ds *invoice.Dataset, asOf time.Time, periodDays int) float64 {
	if periodDays <= 0 {
		periodDays = 90
	}
	start := asOf.AddDate(0, 0, -periodDays)

	var beginningAR, creditSales, endingAR, endingCurrentAR float64
	for i := range ds.Invoices {
		inv := &ds.Invoices[i]
		open := inv.Status == ar.InvoiceOpen || inv.Status == ""

		if open && inv.IssueDate.Before(start) {
			beginningAR += inv.Amount
		}
		if !inv.IssueDate.Before(start) && inv.IssueDate.Before(asOf) {
			creditSales += inv.Amount
		}
		if open {
			endingAR += inv.Amount
			if !inv.DueDate.Before(asOf) {
				endingCurrentAR += inv.Amount
			}
		}
	}

	denominator := beginningAR + creditSales - endingCurrentAR
	if denominator == 0 {
		return 100
	}
	cei := (beginningAR + creditSales - endingAR) / denominator * 100
	if cei < 0 {
		cei = 0
	}
	if cei > 100 {
		cei = 100
	}
	return round2(cei)
}

// PaymentBehavior summarizes how the book actually pays. Each payment
// against an invoice is one observation.
type PaymentBehavior struct {
	TotalInvoices       int     `json:"total_invoices"`
	PaidInvoices        int     `json:"paid_invoices"`
	PaymentRatePct      float64 `json:"payment_rate"`
	AvgDaysToPayment    float64 `json:"avg_days_to_payment"`
	MedianDaysToPayment float64 `json:"median_days_to_payment"`
	LatePaymentCount    int     `json:"late_payment_count"`
	LatePaymentRatePct  float64 `json:"late_payment_rate"`
	AvgDaysLate         float64 `json:"avg_days_late"`
	MedianDaysLate      float64 `json:"median_days_late"`
	MaxDaysLate         int     `json:"max_days_late"`
}

// PaymentBehaviorMetrics joins invoices with their payments and derives
// days-to-payment and lateness statistics. Without payment records it
// falls back to status counting.
func (s *Service) PaymentBehaviorMetrics(ds *invoice.Dataset) PaymentBehavior {
	pb := PaymentBehavior{TotalInvoices: len(ds.Invoices)}

	if len(ds.Payments) == 0 {
		for i := range ds.Invoices {
			if ds.Invoices[i].Status == ar.InvoicePaid {
				pb.PaidInvoices++
			}
		}
		if pb.TotalInvoices > 0 {
			pb.PaymentRatePct = round2(float64(pb.PaidInvoices) / float64(pb.TotalInvoices) * 100)
		}
		return pb
	}

	invByID := make(map[string]*invoice.Invoice, len(ds.Invoices))
	for i := range ds.Invoices {
		invByID[ds.Invoices[i].ID] = &ds.Invoices[i]
	}

	var daysToPayment, daysLate []float64
	for i := range ds.Payments {
		p := &ds.Payments[i]
		inv := invByID[p.InvoiceID]
		if inv == nil {
			continue
		}
		daysToPayment = append(daysToPayment, float64(dates.DaysBetween(inv.IssueDate, p.Date)))
		late := dates.DaysOverdue(inv.DueDate, p.Date)
		daysLate = append(daysLate, float64(late))
		if late > 0 {
			pb.LatePaymentCount++
			if late > pb.MaxDaysLate {
				pb.MaxDaysLate = late
			}
		}
	}

	pb.PaidInvoices = len(daysToPayment)
	if pb.TotalInvoices > 0 {
		pb.PaymentRatePct = round2(float64(pb.PaidInvoices) / float64(pb.TotalInvoices) * 100)
	}
	if pb.PaidInvoices == 0 {
		return pb
	}

	pb.AvgDaysToPayment = round2(mean(daysToPayment))
	pb.MedianDaysToPayment = round2(median(daysToPayment))
	pb.LatePaymentRatePct = round2(float64(pb.LatePaymentCount) / float64(pb.PaidInvoices) * 100)

	if pb.LatePaymentCount > 0 {
		lateOnly := make([]float64, 0, pb.LatePaymentCount)
		for _, d := range daysLate {
			if d > 0 {
				lateOnly = append(lateOnly, d)
			}
		}
		pb.AvgDaysLate = round2(mean(lateOnly))
		pb.MedianDaysLate = round2(median(lateOnly))
	}
	return pb
}

// ARSummary is the one-page health report of the receivables book.
type ARSummary struct {
	TotalAR           float64         `json:"total_ar"`
	OpenInvoices      int             `json:"open_invoices"`
	OverdueAR         float64         `json:"overdue_ar"`
	OverdueInvoices   int             `json:"overdue_invoices"`
	OverduePercentage float64         `json:"overdue_percentage"`
	DSO               float64         `json:"dso"`
	CEI               float64         `json:"cei"`
	AvgInvoiceAmount  float64         `json:"avg_invoice_amount"`
	Behavior          PaymentBehavior `json:"payment_behavior"`
}

// Summary computes the full AR summary at asOf with a 90-day trailing
// window for DSO and CEI.
func (s *Service) Summary(ds *invoice.Dataset, asOf time.Time) ARSummary {
	sum := ARSummary{}
	open := ds.OpenInvoices()
	sum.OpenInvoices = len(open)
	for _, inv := range open {
		sum.TotalAR += inv.Amount
		if inv.DueDate.Before(asOf) {
			sum.OverdueAR += inv.Amount
			sum.OverdueInvoices++
		}
	}
	sum.TotalAR = round2(sum.TotalAR)
	sum.OverdueAR = round2(sum.OverdueAR)
	if sum.TotalAR > 0 {
		sum.OverduePercentage = round2(sum.OverdueAR / sum.TotalAR * 100)
	}
	if sum.OpenInvoices > 0 {
		sum.AvgInvoiceAmount = round2(sum.TotalAR / float64(sum.OpenInvoices))
	}

	sum.DSO = s.DSO(ds, asOf, 90)
	sum.CEI = s.CEI(ds, asOf, 90)
	sum.Behavior = s.PaymentBehaviorMetrics(ds)

	s.log.Info("ar summary computed",
		logging.Float64("total_ar", sum.TotalAR),
		logging.Float64("overdue_ar", sum.OverdueAR),
		logging.Float64("dso", sum.DSO))
	return sum
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range vs {
		total += v
	}
	return total / float64(len(vs))
}

func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
