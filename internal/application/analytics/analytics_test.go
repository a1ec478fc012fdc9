package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newService() *Service {
	return NewService(config.AnalyticsConfig{
		ForecastPayProbability: 0.8,
		ForecastSlipDays:       7,
		MonteCarloRuns:         100,
	}, logging.NewNopLogger())
}

func TestAgingSummaryEndToEnd(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", CustomerID: "C-1", IssueDate: day(2025, 3, 1), DueDate: asOf.AddDate(0, 0, -60), Amount: 5000, Status: "open"},
			{ID: "INV-2", CustomerID: "C-1", IssueDate: day(2025, 5, 1), DueDate: asOf.AddDate(0, 0, 15), Amount: 2000, Status: "open"},
			{ID: "INV-3", CustomerID: "C-2", IssueDate: day(2025, 4, 20), DueDate: asOf.AddDate(0, 0, -10), Amount: 3000, Status: "open"},
			{ID: "INV-4", CustomerID: "C-2", IssueDate: day(2025, 5, 10), DueDate: asOf.AddDate(0, 0, 5), Amount: 1000, Status: "open"},
			{ID: "INV-5", CustomerID: "C-3", IssueDate: day(2025, 2, 1), DueDate: day(2025, 3, 1), Amount: 9000, Status: "paid"},
		},
	}

	lines := newService().AgingSummary(ds, asOf)
	require.Len(t, lines, 6)

	byBucket := map[dates.Bucket]AgingLine{}
	nonZero := 0
	pctSum := 0.0
	for _, l := range lines {
		byBucket[l.Bucket] = l
		pctSum += l.Percentage
		if l.TotalAmount > 0 {
			nonZero++
		}
	}

	assert.Equal(t, 3, nonZero)
	assert.InDelta(t, 100.0, pctSum, 0.1)
	// 60 days overdue sits in 31-60 (upper-inclusive boundary).
	assert.Equal(t, 5000.0, byBucket[dates.Bucket31To60].TotalAmount)
	assert.Equal(t, 3000.0, byBucket[dates.Bucket1To15].TotalAmount)
	assert.Equal(t, 3000.0, byBucket[dates.BucketCurrent].TotalAmount)
	assert.Equal(t, 2, byBucket[dates.BucketCurrent].InvoiceCount)
	// The paid invoice contributes nowhere.
	assert.Equal(t, 0.0, byBucket[dates.Bucket90Plus].TotalAmount)
}

func TestAgingSummaryPublishesOpenARGauge(t *testing.T) {
	asOf := day(2025, 6, 1)
	m := prometheus.New()
	svc := NewService(config.AnalyticsConfig{
		ForecastPayProbability: 0.8,
		ForecastSlipDays:       7,
		MonteCarloRuns:         100,
	}, logging.NewNopLogger(), WithMetrics(m))

	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", CustomerID: "C-1", IssueDate: day(2025, 3, 1), DueDate: asOf.AddDate(0, 0, -40), Amount: 5000, Status: "open"},
			{ID: "INV-2", CustomerID: "C-1", IssueDate: day(2025, 5, 1), DueDate: asOf.AddDate(0, 0, 15), Amount: 2000, Status: "open"},
		},
	}
	lines := svc.AgingSummary(ds, asOf)
	require.Len(t, lines, 6)

	expected := `
# HELP cfsentinel_analytics_open_ar_amount Open accounts-receivable amount by aging bucket.
# TYPE cfsentinel_analytics_open_ar_amount gauge
cfsentinel_analytics_open_ar_amount{bucket="current"} 2000
cfsentinel_analytics_open_ar_amount{bucket="1-15"} 0
cfsentinel_analytics_open_ar_amount{bucket="16-30"} 0
cfsentinel_analytics_open_ar_amount{bucket="31-60"} 5000
cfsentinel_analytics_open_ar_amount{bucket="61-90"} 0
cfsentinel_analytics_open_ar_amount{bucket="90+"} 0
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(),
		strings.NewReader(expected), "cfsentinel_analytics_open_ar_amount"))
}

func TestAgingSummaryEmptyBook(t *testing.T) {
	lines := newService().AgingSummary(&invoice.Dataset{}, day(2025, 6, 1))
	require.Len(t, lines, 6)
	for _, l := range lines {
		assert.Zero(t, l.TotalAmount)
		assert.Zero(t, l.Percentage)
	}
}

func TestCustomerAgingSummary(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Customers: []invoice.Customer{
			{ID: "C-1", Name: "Acme"},
			{ID: "C-2", Name: "Globex"},
		},
		Invoices: []invoice.Invoice{
			{ID: "INV-1", CustomerID: "C-1", DueDate: asOf.AddDate(0, 0, -20), Amount: 1000, Status: "open"},
			{ID: "INV-2", CustomerID: "C-1", DueDate: asOf.AddDate(0, 0, 10), Amount: 500, Status: "open"},
			{ID: "INV-3", CustomerID: "C-2", DueDate: asOf.AddDate(0, 0, -5), Amount: 4000, Status: "open"},
		},
	}

	rows := newService().CustomerAgingSummary(ds, asOf)
	require.Len(t, rows, 2)
	// Sorted by total AR descending.
	assert.Equal(t, "C-2", rows[0].CustomerID)
	assert.Equal(t, "Globex", rows[0].CustomerName)
	assert.Equal(t, 4000.0, rows[0].TotalAR)
	assert.Equal(t, "C-1", rows[1].CustomerID)
	assert.Equal(t, 1500.0, rows[1].TotalAR)
	assert.Equal(t, 1000.0, rows[1].Buckets[dates.Bucket16To30])
	assert.Equal(t, 500.0, rows[1].Buckets[dates.BucketCurrent])
}

func TestDSO(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", IssueDate: day(2025, 5, 1), DueDate: day(2025, 5, 31), Amount: 1000, Status: "open"},
			{ID: "INV-2", IssueDate: day(2025, 5, 1), DueDate: day(2025, 5, 31), Amount: 1000, Status: "paid"},
		},
	}
	// AR 1000 over 2000 of 90-day sales: 45 days outstanding.
	assert.InDelta(t, 45.0, newService().DSO(ds, asOf, 90), 1e-9)
}

func TestDSONoPeriodSales(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-OLD", IssueDate: day(2024, 1, 1), DueDate: day(2024, 1, 31), Amount: 1000, Status: "open"},
		},
	}
	assert.Zero(t, newService().DSO(ds, asOf, 90))
}

func TestCEI(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			// Open since January: beginning AR, still uncollected and past due.
			{ID: "INV-A", IssueDate: day(2025, 1, 1), DueDate: day(2025, 2, 1), Amount: 500, Status: "open"},
			// Sold and collected within the period.
			{ID: "INV-B", IssueDate: day(2025, 4, 1), DueDate: day(2025, 5, 1), Amount: 1000, Status: "paid"},
			// Sold within the period, not yet due.
			{ID: "INV-C", IssueDate: day(2025, 5, 1), DueDate: day(2025, 7, 1), Amount: 400, Status: "open"},
		},
	}
	// (500+1400-900) / (500+1400-400) × 100 = 66.67
	assert.InDelta(t, 66.67, newService().CEI(ds, asOf, 90), 0.01)
}

func TestCEIEmptyBookIsPerfect(t *testing.T) {
	assert.Equal(t, 100.0, newService().CEI(&invoice.Dataset{}, day(2025, 6, 1), 90))
}

func TestPaymentBehaviorMetrics(t *testing.T) {
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", IssueDate: day(2025, 1, 1), DueDate: day(2025, 1, 31), Amount: 1000, Status: "paid"},
			{ID: "INV-2", IssueDate: day(2025, 1, 1), DueDate: day(2025, 1, 31), Amount: 1000, Status: "paid"},
			{ID: "INV-3", IssueDate: day(2025, 5, 1), DueDate: day(2025, 5, 31), Amount: 1000, Status: "open"},
			{ID: "INV-4", IssueDate: day(2025, 5, 1), DueDate: day(2025, 5, 31), Amount: 1000, Status: "open"},
		},
		Payments: []invoice.Payment{
			{ID: "P-1", InvoiceID: "INV-1", Date: day(2025, 2, 10), Amount: 1000}, // 10 days late
			{ID: "P-2", InvoiceID: "INV-2", Date: day(2025, 1, 25), Amount: 1000}, // early
		},
	}

	pb := newService().PaymentBehaviorMetrics(ds)
	assert.Equal(t, 4, pb.TotalInvoices)
	assert.Equal(t, 2, pb.PaidInvoices)
	assert.InDelta(t, 50.0, pb.PaymentRatePct, 1e-9)
	assert.InDelta(t, 32.0, pb.AvgDaysToPayment, 1e-9) // (40+24)/2
	assert.InDelta(t, 32.0, pb.MedianDaysToPayment, 1e-9)
	assert.Equal(t, 1, pb.LatePaymentCount)
	assert.InDelta(t, 50.0, pb.LatePaymentRatePct, 1e-9)
	assert.InDelta(t, 10.0, pb.AvgDaysLate, 1e-9)
	assert.Equal(t, 10, pb.MaxDaysLate)
}

func TestPaymentBehaviorWithoutPayments(t *testing.T) {
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", Status: "paid"},
			{ID: "INV-2", Status: "open"},
		},
	}
	pb := newService().PaymentBehaviorMetrics(ds)
	assert.Equal(t, 1, pb.PaidInvoices)
	assert.InDelta(t, 50.0, pb.PaymentRatePct, 1e-9)
}

func TestSummaryOverdueARPositive(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", IssueDate: day(2025, 3, 1), DueDate: asOf.AddDate(0, 0, -60), Amount: 5000, Status: "open"},
			{ID: "INV-2", IssueDate: day(2025, 5, 1), DueDate: asOf.AddDate(0, 0, 15), Amount: 2000, Status: "open"},
			{ID: "INV-3", IssueDate: day(2025, 4, 20), DueDate: asOf.AddDate(0, 0, -10), Amount: 3000, Status: "open"},
			{ID: "INV-4", IssueDate: day(2025, 5, 10), DueDate: asOf.AddDate(0, 0, 5), Amount: 1000, Status: "open"},
			{ID: "INV-5", IssueDate: day(2025, 2, 1), DueDate: day(2025, 3, 1), Amount: 9000, Status: "paid"},
		},
	}

	sum := newService().Summary(ds, asOf)
	assert.Equal(t, 11000.0, sum.TotalAR)
	assert.Equal(t, 4, sum.OpenInvoices)
	assert.Greater(t, sum.OverdueAR, 0.0)
	assert.Equal(t, 8000.0, sum.OverdueAR)
	assert.Equal(t, 2, sum.OverdueInvoices)
	assert.InDelta(t, 72.73, sum.OverduePercentage, 0.01)
	assert.Equal(t, 2750.0, sum.AvgInvoiceAmount)
}

func TestForecastDefaultPattern(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", DueDate: day(2025, 5, 30), Amount: 1000, Status: "open"}, // expected Jun 6
			{ID: "INV-2", DueDate: day(2025, 6, 5), Amount: 500, Status: "open"},   // expected Jun 12
			{ID: "INV-3", DueDate: day(2025, 6, 20), Amount: 2000, Status: "open"}, // expected Jun 27
		},
	}

	f := newService().ForecastInflows(ds, asOf)
	assert.InDelta(t, 800.0, f.Days7, 1e-9)
	assert.InDelta(t, 1200.0, f.Days14, 1e-9)
	assert.InDelta(t, 2800.0, f.Days30, 1e-9)
}

func TestForecastHorizonsAreCumulative(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", DueDate: day(2025, 5, 1), Amount: 1000, Status: "open"},
			{ID: "INV-2", DueDate: day(2025, 6, 10), Amount: 3000, Status: "open"},
		},
	}
	f := newService().ForecastInflows(ds, asOf)
	assert.LessOrEqual(t, f.Days7, f.Days14)
	assert.LessOrEqual(t, f.Days14, f.Days30)
}

func TestSimulateScenariosDeterministic(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-1", DueDate: day(2025, 6, 5), Amount: 1000, Status: "open"},
			{ID: "INV-2", DueDate: day(2025, 6, 15), Amount: 2500, Status: "open"},
		},
	}

	s := newService()
	first := s.SimulateScenarios(ds, asOf, 30, 42)
	second := s.SimulateScenarios(ds, asOf, 30, 42)
	require.Len(t, first, 100)
	assert.Equal(t, first, second)

	for _, sc := range first {
		assert.GreaterOrEqual(t, sc.TotalCollected, 0.0)
		assert.LessOrEqual(t, sc.TotalCollected, 3500.0)
		assert.Equal(t, 30, sc.DaysAhead)
	}

	p := SummarizeScenarios(first)
	assert.LessOrEqual(t, p.P10, p.P50)
	assert.LessOrEqual(t, p.P50, p.P90)
}

func TestCashGapAnalysis(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-PAST", DueDate: day(2025, 5, 20), Amount: 1000, Status: "open"}, // already overdue
			{ID: "INV-SOON", DueDate: day(2025, 6, 10), Amount: 2000, Status: "open"}, // due in window
			{ID: "INV-FAR", DueDate: day(2025, 7, 15), Amount: 500, Status: "open"},   // beyond window
		},
	}

	gap := newService().CashGapAnalysis(ds, asOf, 30)
	assert.Equal(t, 3500.0, gap.TotalAR)
	assert.InDelta(t, 1600.0, gap.ExpectedCollections, 1e-9)
	assert.InDelta(t, 1900.0, gap.Gap, 1e-9)
	assert.InDelta(t, 54.29, gap.GapPercentage, 0.01)
}

func TestHistoricalPatternOverridesDefault(t *testing.T) {
	// Every historical invoice paid exactly on the due date, so the slip
	// becomes 0 and a due-in-6-days invoice lands inside the 7-day window.
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-H1", DueDate: day(2025, 4, 1), Amount: 100, Status: "paid"},
			{ID: "INV-H2", DueDate: day(2025, 4, 15), Amount: 100, Status: "paid"},
			{ID: "INV-OPEN", DueDate: day(2025, 6, 7), Amount: 1000, Status: "open"},
		},
		Payments: []invoice.Payment{
			{ID: "P-1", InvoiceID: "INV-H1", Date: day(2025, 4, 1), Amount: 100},
			{ID: "P-2", InvoiceID: "INV-H2", Date: day(2025, 4, 15), Amount: 100},
		},
	}

	f := newService().ForecastInflows(ds, asOf)
	// Probability 2/3, slip 0: 1000 × 2/3 expected within 7 days.
	assert.InDelta(t, 666.67, f.Days7, 0.01)
}
