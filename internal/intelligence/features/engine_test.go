package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func colIndex(t *testing.T, name string) int {
	t.Helper()
	for i, c := range Columns() {
		if c == name {
			return i
		}
	}
	t.Fatalf("unknown column %s", name)
	return -1
}

func testDataset() *invoice.Dataset {
	return &invoice.Dataset{
		Customers: []invoice.Customer{
			{ID: "C-001", PaymentTermsDays: 30, CreditLimit: 10000},
			{ID: "C-002", PaymentTermsDays: 45, CreditLimit: 0},
		},
		Invoices: []invoice.Invoice{
			{ID: "INV-001", CustomerID: "C-001", IssueDate: day(2025, 1, 1), DueDate: day(2025, 1, 31), Amount: 2000, Status: "open", Type: "recurring", Channel: "online"},
			{ID: "INV-002", CustomerID: "C-002", IssueDate: day(2025, 2, 1), DueDate: day(2025, 3, 18), Amount: 6000, Status: "open"},
		},
	}
}

func TestEngineerRowCountAndWidth(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	m := e.Engineer(testDataset(), day(2025, 3, 1))

	require.Len(t, m.Rows, 2)
	require.Equal(t, []string{"INV-001", "INV-002"}, m.InvoiceIDs)
	for _, row := range m.Rows {
		assert.Len(t, row, NumFeatures)
	}
	assert.Equal(t, Columns(), m.Columns)
}

func TestColumnContract(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, 25)
	assert.Equal(t, "days_until_due", cols[0])
	assert.Equal(t, "utilization_x_late_rate", cols[24])
	assert.True(t, ColumnsMatch(cols))

	reordered := Columns()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	assert.False(t, ColumnsMatch(reordered))
	assert.False(t, ColumnsMatch(cols[:24]))
}

func TestTemporalFeatures(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	asOf := day(2025, 3, 1)
	m := e.Engineer(testDataset(), asOf)

	row := m.Rows[0] // INV-001: issued Jan 1 (Wed), due Jan 31 (Fri)
	assert.Equal(t, float64(-29), row[colIndex(t, "days_until_due")])
	assert.Equal(t, float64(59), row[colIndex(t, "days_since_issue")])
	assert.Equal(t, float64(30), row[colIndex(t, "payment_term_days")])
	assert.Equal(t, float64(1), row[colIndex(t, "issue_month")])
	assert.Equal(t, float64(1), row[colIndex(t, "issue_quarter")])
	// 2025-01-01 is a Wednesday: Monday-indexed weekday 2.
	assert.Equal(t, float64(2), row[colIndex(t, "issue_day_of_week")])
	assert.Equal(t, float64(0), row[colIndex(t, "issue_is_weekend")])
	// 2025-01-31 is a Friday.
	assert.Equal(t, float64(4), row[colIndex(t, "due_day_of_week")])
}

func TestCreditUtilizationClipped(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	ds := testDataset()
	ds.Invoices[0].Amount = 50000 // 5x the credit limit
	m := e.Engineer(ds, day(2025, 3, 1))

	util := colIndex(t, "credit_utilization")
	assert.Equal(t, 2.0, m.Rows[0][util])
	// Zero credit limit degrades to 0, never NaN or Inf.
	assert.Equal(t, 0.0, m.Rows[1][util])

	for _, row := range m.Rows {
		v := row[util]
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 2.0)
	}
}

func TestNoPaymentsMeansZeroHistory(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	m := e.Engineer(testDataset(), day(2025, 3, 1))

	for _, row := range m.Rows {
		assert.Equal(t, 0.0, row[colIndex(t, "customer_late_rate")])
		assert.Equal(t, 0.0, row[colIndex(t, "customer_avg_days_late")])
	}
}

func TestHistoricalCutoffExcludesFutureRecords(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	asOf := day(2025, 6, 1)

	ds := testDataset()
	// Historical invoice paid 20 days late, before asOf: counts.
	ds.Invoices = append(ds.Invoices, invoice.Invoice{
		ID: "INV-H1", CustomerID: "C-001",
		IssueDate: day(2025, 1, 1), DueDate: day(2025, 1, 31), Amount: 1000, Status: "paid",
	})
	// Invoice issued after asOf: must not count toward history.
	ds.Invoices = append(ds.Invoices, invoice.Invoice{
		ID: "INV-F1", CustomerID: "C-001",
		IssueDate: day(2025, 7, 1), DueDate: day(2025, 7, 31), Amount: 1000, Status: "open",
	})
	ds.Payments = []invoice.Payment{
		{ID: "P-1", InvoiceID: "INV-H1", Date: day(2025, 2, 20), Amount: 1000},
	}

	m := e.Engineer(ds, asOf)
	lateRate := colIndex(t, "customer_late_rate")
	avgLate := colIndex(t, "customer_avg_days_late")

	// C-001 history: INV-001 (unpaid, issued before asOf) and INV-H1
	// (paid 20 days late) → 2 observations, 1 late → 50%.
	row := m.Rows[0]
	assert.InDelta(t, 50.0, row[lateRate], 0.001)
	assert.InDelta(t, 10.0, row[avgLate], 0.001)

	// Payment dated after asOf must not count either.
	ds.Payments[0].Date = day(2025, 6, 15)
	m = e.Engineer(ds, asOf)
	assert.Equal(t, 0.0, m.Rows[0][lateRate])
}

func TestConcentrationSumsAcrossOpenAR(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	m := e.Engineer(testDataset(), day(2025, 3, 1))

	conc := colIndex(t, "customer_ar_concentration")
	// Open AR: 2000 + 6000 = 8000.
	assert.InDelta(t, 25.0, m.Rows[0][conc], 0.001)
	assert.InDelta(t, 75.0, m.Rows[1][conc], 0.001)
}

func TestCategoricalFlags(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	m := e.Engineer(testDataset(), day(2025, 3, 1))

	assert.Equal(t, 1.0, m.Rows[0][colIndex(t, "invoice_type_recurring")])
	assert.Equal(t, 0.0, m.Rows[0][colIndex(t, "invoice_type_milestone")])
	assert.Equal(t, 1.0, m.Rows[0][colIndex(t, "channel_online")])
	assert.Equal(t, 0.0, m.Rows[1][colIndex(t, "invoice_type_recurring")])
	assert.Equal(t, 0.0, m.Rows[1][colIndex(t, "channel_online")])
}

func TestInteractionTerms(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	m := e.Engineer(testDataset(), day(2025, 3, 1))

	row := m.Rows[0]
	expected := row[colIndex(t, "invoice_amount_log")] * row[colIndex(t, "days_until_due")]
	assert.InDelta(t, expected, row[colIndex(t, "amount_x_days_until_due")], 1e-9)
}

func TestBuildTrainingLabels(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	ds := testDataset()
	ds.Invoices = append(ds.Invoices,
		invoice.Invoice{ID: "INV-L1", CustomerID: "C-001", IssueDate: day(2024, 11, 1), DueDate: day(2024, 12, 1), Amount: 500, Status: "paid"},
		invoice.Invoice{ID: "INV-L2", CustomerID: "C-001", IssueDate: day(2024, 12, 1), DueDate: day(2025, 1, 1), Amount: 700, Status: "paid"},
	)
	ds.Payments = []invoice.Payment{
		{ID: "P-1", InvoiceID: "INV-L1", Date: day(2024, 12, 21), Amount: 500}, // 20 days late
		{ID: "P-2", InvoiceID: "INV-L2", Date: day(2025, 1, 4), Amount: 700},  // 3 days late
	}

	labeled := e.BuildTraining(ds, 7, day(2025, 6, 1))
	// Only the two paid invoices receive labels.
	require.Len(t, labeled, 2)
	// Sorted by issue date ascending.
	assert.Equal(t, "INV-L1", labeled[0].InvoiceID)
	assert.True(t, labeled[0].IsLate)
	assert.Equal(t, "INV-L2", labeled[1].InvoiceID)
	assert.False(t, labeled[1].IsLate)
}

func TestEngineerIsDeterministic(t *testing.T) {
	e := NewEngine(logging.NewNopLogger())
	ds := testDataset()
	asOf := day(2025, 3, 1)

	a := e.Engineer(ds, asOf)
	b := e.Engineer(ds, asOf)
	assert.Equal(t, a.Rows, b.Rows)
}
