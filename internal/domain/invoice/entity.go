// Package invoice holds the accounts-receivable aggregates (Customer,
// Invoice, Payment) and the dataset validators that gate external tabular
// records before they enter the scoring pipeline.
package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// Customer is the owning party of zero or more invoices.
type Customer struct {
	ID               string    `json:"customer_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Industry         string    `json:"industry,omitempty"`
	Country          string    `json:"country,omitempty"`
	State            string    `json:"state,omitempty"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	CreditLimit      float64   `json:"credit_limit"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the integrity of the customer record.
func (c *Customer) Validate() error {
	if c.ID == "" {
		return errors.Validation("customer_id cannot be empty")
	}
	if c.PaymentTermsDays < 0 || c.PaymentTermsDays > 365 {
		return errors.Validation("payment_terms_days out of range [0, 365]").WithDetail("customer_id=" + c.ID)
	}
	if c.CreditLimit < 0 {
		return errors.Validation("credit_limit cannot be negative").WithDetail("customer_id=" + c.ID)
	}
	return nil
}

// Invoice is a receivable issued to a customer. Invoices are created open
// and transition exactly once to a terminal status; risk fields are
// recomputed on every scoring pass and never treated as ground truth.
type Invoice struct {
	ID         string           `json:"invoice_id"`
	CustomerID string           `json:"customer_id"`
	IssueDate  time.Time        `json:"issue_date"`
	DueDate    time.Time        `json:"due_date"`
	Amount     float64          `json:"invoice_amount"`
	Currency   string           `json:"currency"`
	Status     ar.InvoiceStatus `json:"status"`
	Type       ar.InvoiceType   `json:"invoice_type,omitempty"`
	Channel    ar.Channel       `json:"channel,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewInvoice constructs an open invoice, enforcing the due ≥ issue
// invariant. Violations are validation errors, never silently corrected.
func NewInvoice(customerID string, issueDate, dueDate time.Time, amount float64, currency string) (*Invoice, error) {
	inv := &Invoice{
		ID:         "INV-" + uuid.New().String()[:8],
		CustomerID: customerID,
		IssueDate:  issueDate,
		DueDate:    dueDate,
		Amount:     amount,
		Currency:   currency,
		Status:     ar.InvoiceOpen,
		CreatedAt:  issueDate,
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Validate checks the integrity of the invoice record.
func (i *Invoice) Validate() error {
	if i.ID == "" {
		return errors.Validation("invoice_id cannot be empty")
	}
	if i.CustomerID == "" {
		return errors.Validation("customer_id cannot be empty").WithDetail("invoice_id=" + i.ID)
	}
	if i.Amount <= 0 {
		return errors.Validation("invoice_amount must be positive").WithDetail("invoice_id=" + i.ID)
	}
	if i.IssueDate.IsZero() || i.DueDate.IsZero() {
		return errors.Validation("issue_date and due_date are required").WithDetail("invoice_id=" + i.ID)
	}
	if i.DueDate.Before(i.IssueDate) {
		return errors.Validation("due_date before issue_date").WithDetail("invoice_id=" + i.ID)
	}
	if i.Status != "" && !i.Status.Valid() {
		return errors.Validation("unknown invoice status").WithDetail("invoice_id=" + i.ID)
	}
	return nil
}

// MarkPaid transitions an open invoice to paid.
func (i *Invoice) MarkPaid() error {
	return i.transition(ar.InvoicePaid)
}

// MarkVoid transitions an open invoice to void.
func (i *Invoice) MarkVoid() error {
	return i.transition(ar.InvoiceVoid)
}

// MarkCancelled transitions an open invoice to cancelled.
func (i *Invoice) MarkCancelled() error {
	return i.transition(ar.InvoiceCancelled)
}

func (i *Invoice) transition(to ar.InvoiceStatus) error {
	if i.Status != ar.InvoiceOpen {
		return errors.New(errors.ErrCodeConflict, "invoice status is terminal").
			WithDetail("invoice_id=" + i.ID + " status=" + string(i.Status))
	}
	i.Status = to
	return nil
}

// DaysOverdue returns whole days past due at asOf, clipped at zero.
func (i *Invoice) DaysOverdue(asOf time.Time) int {
	return dates.DaysOverdue(i.DueDate, asOf)
}

// AgingBucket returns the invoice's aging bucket at asOf.
func (i *Invoice) AgingBucket(asOf time.Time) dates.Bucket {
	return dates.AgingBucket(i.DaysOverdue(asOf))
}

// Payment references exactly one invoice. Payments are appended, never
// mutated; an invoice may accumulate zero, one, or multiple payments.
type Payment struct {
	ID        string    `json:"payment_id"`
	InvoiceID string    `json:"invoice_id"`
	Date      time.Time `json:"payment_date"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method,omitempty"`
}

// Validate checks the integrity of the payment record.
func (p *Payment) Validate() error {
	if p.InvoiceID == "" {
		return errors.Validation("payment missing invoice_id").WithDetail("payment_id=" + p.ID)
	}
	if p.Amount <= 0 {
		return errors.Validation("payment amount must be positive").WithDetail("payment_id=" + p.ID)
	}
	if p.Date.IsZero() {
		return errors.Validation("payment_date is required").WithDetail("payment_id=" + p.ID)
	}
	return nil
}

// RiskAnnotated is an invoice joined with its recomputed risk fields, the
// shape handed to the recommendation engine and external consumers.
type RiskAnnotated struct {
	Invoice
	DaysOverdueAt int             `json:"days_overdue"`
	RiskScore     int             `json:"risk_score"`
	RiskCategory  ar.RiskCategory `json:"risk_category"`
}
