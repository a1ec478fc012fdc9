package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validDataset() *Dataset {
	return &Dataset{
		Customers: []Customer{
			{ID: "C-001", Name: "Acme", PaymentTermsDays: 30, CreditLimit: 50000},
			{ID: "C-002", Name: "Globex", PaymentTermsDays: 45, CreditLimit: 20000},
		},
		Invoices: []Invoice{
			{ID: "INV-001", CustomerID: "C-001", IssueDate: day(2025, 1, 1), DueDate: day(2025, 1, 31), Amount: 1200, Status: "open"},
			{ID: "INV-002", CustomerID: "C-002", IssueDate: day(2025, 2, 1), DueDate: day(2025, 3, 18), Amount: 800, Status: "open"},
		},
		Payments: []Payment{
			{ID: "P-001", InvoiceID: "INV-001", Date: day(2025, 1, 20), Amount: 600},
		},
	}
}

func TestValidateDatasetClean(t *testing.T) {
	res := ValidateDataset(validDataset())
	assert.True(t, res.IsValid())
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 5, res.RowCount)
}

func TestValidateDatasetDueBeforeIssue(t *testing.T) {
	d := validDataset()
	d.Invoices[0].DueDate = day(2024, 12, 15)
	res := ValidateDataset(d)
	require.False(t, res.IsValid())
	assert.Contains(t, res.Errors[0].Message, "due_date before issue_date")
}

func TestValidateDatasetOverpaymentIsWarning(t *testing.T) {
	d := validDataset()
	d.Payments = append(d.Payments, Payment{ID: "P-002", InvoiceID: "INV-001", Date: day(2025, 1, 25), Amount: 700})
	res := ValidateDataset(d)
	// 1300 > 1200*1.01 must warn, not fail.
	assert.True(t, res.IsValid())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "INV-001", res.Warnings[0].EntityID)
}

func TestValidateDatasetOverpaymentWithinTolerance(t *testing.T) {
	d := validDataset()
	d.Payments = []Payment{{ID: "P-001", InvoiceID: "INV-001", Date: day(2025, 1, 25), Amount: 1210}}
	res := ValidateDataset(d)
	assert.True(t, res.IsValid())
	assert.Empty(t, res.Warnings)
}

func TestValidateDatasetDuplicateInvoice(t *testing.T) {
	d := validDataset()
	d.Invoices = append(d.Invoices, d.Invoices[0])
	res := ValidateDataset(d)
	require.False(t, res.IsValid())
	assert.Contains(t, res.Errors[0].Message, "duplicate invoice_id")
}

func TestValidateDatasetUnknownCustomer(t *testing.T) {
	d := validDataset()
	d.Invoices[1].CustomerID = "C-999"
	res := ValidateDataset(d)
	require.False(t, res.IsValid())
	assert.Contains(t, res.Errors[0].Message, "unknown customer")
}

func TestValidateDatasetOrphanPayment(t *testing.T) {
	d := validDataset()
	d.Payments = append(d.Payments, Payment{ID: "P-009", InvoiceID: "INV-404", Date: day(2025, 3, 1), Amount: 50})
	res := ValidateDataset(d)
	require.False(t, res.IsValid())
	assert.Contains(t, res.Errors[0].Message, "unknown invoice")
}

func TestInvoiceLifecycle(t *testing.T) {
	inv, err := NewInvoice("C-001", day(2025, 1, 1), day(2025, 1, 31), 500, "USD")
	require.NoError(t, err)
	assert.Equal(t, "open", string(inv.Status))

	require.NoError(t, inv.MarkPaid())
	assert.Equal(t, "paid", string(inv.Status))

	// Terminal states reject further transitions.
	err = inv.MarkVoid()
	require.Error(t, err)
}

func TestNewInvoiceRejectsInvertedDates(t *testing.T) {
	_, err := NewInvoice("C-001", day(2025, 2, 1), day(2025, 1, 1), 500, "USD")
	require.Error(t, err)
}

func TestInvoiceDaysOverdue(t *testing.T) {
	inv := Invoice{ID: "INV-X", CustomerID: "C-1", IssueDate: day(2025, 1, 1), DueDate: day(2025, 1, 31), Amount: 100}
	assert.Equal(t, 0, inv.DaysOverdue(day(2025, 1, 20)))
	assert.Equal(t, 14, inv.DaysOverdue(day(2025, 2, 14)))
}
