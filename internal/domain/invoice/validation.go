package invoice

import (
	"fmt"
)

// overpaymentTolerance allows small rounding slack before flagging a
// payment total as exceeding its invoice amount.
const overpaymentTolerance = 1.01

// Issue is a single validation finding on an input dataset.
type Issue struct {
	Field    string `json:"field"`
	EntityID string `json:"entity_id,omitempty"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	if i.EntityID != "" {
		return fmt.Sprintf("%s [%s]: %s", i.Field, i.EntityID, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationResult aggregates findings from a dataset validation pass.
// Errors make the dataset unusable; warnings are surfaced but do not
// block downstream processing.
type ValidationResult struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	RowCount int     `json:"row_count"`
}

// IsValid reports whether the dataset passed with no errors. Warnings
// alone never invalidate a dataset.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) addError(field, entityID, message string) {
	r.Errors = append(r.Errors, Issue{Field: field, EntityID: entityID, Message: message})
}

func (r *ValidationResult) addWarning(field, entityID, message string) {
	r.Warnings = append(r.Warnings, Issue{Field: field, EntityID: entityID, Message: message})
}

// Merge appends another result's findings into r.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.RowCount += other.RowCount
}

// Dataset is the full AR snapshot handed to the validators and the
// feature engine: customers, invoices, payments.
type Dataset struct {
	Customers []Customer
	Invoices  []Invoice
	Payments  []Payment
}

// CustomerByID builds a lookup map over the dataset's customers.
func (d *Dataset) CustomerByID() map[string]*Customer {
	m := make(map[string]*Customer, len(d.Customers))
	for i := range d.Customers {
		m[d.Customers[i].ID] = &d.Customers[i]
	}
	return m
}

// PaymentsByInvoice groups the dataset's payments by invoice id.
func (d *Dataset) PaymentsByInvoice() map[string][]Payment {
	m := make(map[string][]Payment)
	for _, p := range d.Payments {
		m[p.InvoiceID] = append(m[p.InvoiceID], p)
	}
	return m
}

// OpenInvoices returns the invoices still awaiting payment.
func (d *Dataset) OpenInvoices() []Invoice {
	out := make([]Invoice, 0, len(d.Invoices))
	for _, inv := range d.Invoices {
		if inv.Status == "" || inv.Status == "open" {
			out = append(out, inv)
		}
	}
	return out
}

// ValidateDataset runs the full cross-record validation pass: per-record
// integrity, duplicate ids, referential integrity from invoices to
// customers and from payments to invoices, date-order checks, and
// overpayment detection. Overpayments beyond 1% tolerance are warnings,
// not errors: real books contain credits and double-postings, and
// rejecting the dataset for them would block scoring entirely.
func ValidateDataset(d *Dataset) *ValidationResult {
	res := &ValidationResult{}
	if d == nil {
		res.addError("dataset", "", "dataset is nil")
		return res
	}
	res.RowCount = len(d.Customers) + len(d.Invoices) + len(d.Payments)

	seenCustomers := make(map[string]struct{}, len(d.Customers))
	for i := range d.Customers {
		c := &d.Customers[i]
		if err := c.Validate(); err != nil {
			res.addError("customer", c.ID, err.Error())
			continue
		}
		if _, dup := seenCustomers[c.ID]; dup {
			res.addError("customer_id", c.ID, "duplicate customer_id")
			continue
		}
		seenCustomers[c.ID] = struct{}{}
	}

	seenInvoices := make(map[string]struct{}, len(d.Invoices))
	for i := range d.Invoices {
		inv := &d.Invoices[i]
		if err := inv.Validate(); err != nil {
			res.addError("invoice", inv.ID, err.Error())
			continue
		}
		if _, dup := seenInvoices[inv.ID]; dup {
			res.addError("invoice_id", inv.ID, "duplicate invoice_id")
			continue
		}
		seenInvoices[inv.ID] = struct{}{}
		if len(seenCustomers) > 0 {
			if _, ok := seenCustomers[inv.CustomerID]; !ok {
				res.addError("customer_id", inv.ID, "invoice references unknown customer "+inv.CustomerID)
			}
		}
	}

	paidTotals := make(map[string]float64)
	for i := range d.Payments {
		p := &d.Payments[i]
		if err := p.Validate(); err != nil {
			res.addError("payment", p.ID, err.Error())
			continue
		}
		if _, ok := seenInvoices[p.InvoiceID]; !ok {
			res.addError("invoice_id", p.ID, "payment references unknown invoice "+p.InvoiceID)
			continue
		}
		paidTotals[p.InvoiceID] += p.Amount
	}

	for i := range d.Invoices {
		inv := &d.Invoices[i]
		if paid, ok := paidTotals[inv.ID]; ok && paid > inv.Amount*overpaymentTolerance {
			res.addWarning("amount", inv.ID,
				fmt.Sprintf("payments %.2f exceed invoice amount %.2f", paid, inv.Amount))
		}
	}

	return res
}
