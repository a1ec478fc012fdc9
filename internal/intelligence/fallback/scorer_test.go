package fallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverdueInvoiceOutranksFutureDue(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Customers: []invoice.Customer{
			{ID: "C-001", PaymentTermsDays: 30, CreditLimit: 50000},
		},
		Invoices: []invoice.Invoice{
			// Identical except for the due date: 60 days overdue vs due in 15 days.
			{ID: "INV-OVERDUE", CustomerID: "C-001", IssueDate: day(2025, 3, 1), DueDate: asOf.AddDate(0, 0, -60), Amount: 3000, Status: "open"},
			{ID: "INV-FUTURE", CustomerID: "C-001", IssueDate: day(2025, 5, 15), DueDate: asOf.AddDate(0, 0, 15), Amount: 3000, Status: "open"},
		},
	}

	scored := NewScorer(logging.NewNopLogger()).Score(ds, asOf)
	require.Len(t, scored, 2)

	byID := map[string]Scored{}
	for _, s := range scored {
		byID[s.InvoiceID] = s
	}
	assert.Greater(t, byID["INV-OVERDUE"].RiskScore, byID["INV-FUTURE"].RiskScore)
}

func TestScoreRangeAndCategories(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Customers: []invoice.Customer{
			{ID: "C-001", PaymentTermsDays: 60, CreditLimit: 1000},
		},
		Invoices: []invoice.Invoice{
			// Everything saturated: 120 days overdue, top amount, max terms,
			// utilization far past the limit.
			{ID: "INV-MAX", CustomerID: "C-001", IssueDate: day(2025, 1, 1), DueDate: asOf.AddDate(0, 0, -120), Amount: 50000, Status: "open"},
		},
	}

	scored := NewScorer(logging.NewNopLogger()).Score(ds, asOf)
	require.Len(t, scored, 1)
	assert.Equal(t, 100, scored[0].RiskScore)
	assert.Equal(t, ar.RiskVeryHigh, scored[0].RiskCategory)
}

func TestCategoryBoundariesMatchModelPath(t *testing.T) {
	// The fallback must classify through the same boundary table as the
	// trained-model path.
	cases := map[int]ar.RiskCategory{
		30: ar.RiskLow, 31: ar.RiskMedium, 60: ar.RiskMedium,
		61: ar.RiskHigh, 85: ar.RiskHigh, 86: ar.RiskVeryHigh,
	}
	for score, want := range cases {
		assert.Equal(t, want, ar.RiskCategoryFromScore(score), "score %d", score)
	}
}

func TestOnlyOpenInvoicesScored(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Customers: []invoice.Customer{{ID: "C-001", PaymentTermsDays: 30, CreditLimit: 10000}},
		Invoices: []invoice.Invoice{
			{ID: "INV-OPEN", CustomerID: "C-001", IssueDate: day(2025, 4, 1), DueDate: day(2025, 5, 1), Amount: 1000, Status: "open"},
			{ID: "INV-PAID", CustomerID: "C-001", IssueDate: day(2025, 4, 1), DueDate: day(2025, 5, 1), Amount: 1000, Status: "paid"},
		},
	}

	scored := NewScorer(logging.NewNopLogger()).Score(ds, asOf)
	require.Len(t, scored, 1)
	assert.Equal(t, "INV-OPEN", scored[0].InvoiceID)
}

func TestMissingCustomerDegradesGracefully(t *testing.T) {
	asOf := day(2025, 6, 1)
	ds := &invoice.Dataset{
		Invoices: []invoice.Invoice{
			{ID: "INV-ORPHAN", CustomerID: "C-GONE", IssueDate: day(2025, 4, 1), DueDate: day(2025, 5, 1), Amount: 1000, Status: "open"},
		},
	}

	scored := NewScorer(logging.NewNopLogger()).Score(ds, asOf)
	require.Len(t, scored, 1)
	assert.GreaterOrEqual(t, scored[0].RiskScore, 0)
	assert.LessOrEqual(t, scored[0].RiskScore, 100)
}

func TestAmountP95(t *testing.T) {
	invoices := make([]invoice.Invoice, 0, 100)
	for i := 1; i <= 100; i++ {
		invoices = append(invoices, invoice.Invoice{Amount: float64(i * 100)})
	}
	p95 := amountP95(invoices)
	assert.InDelta(t, 9505.0, p95, 1.0)
}

func TestEmptyDataset(t *testing.T) {
	scored := NewScorer(logging.NewNopLogger()).Score(&invoice.Dataset{}, day(2025, 6, 1))
	assert.Empty(t, scored)
}
