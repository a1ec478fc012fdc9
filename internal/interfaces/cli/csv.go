package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// CSV adapters for the three AR input files. Columns are matched by
// header name, so column order is free and unknown columns are ignored.

type csvTable struct {
	cols map[string]int
	rows [][]string
}

func readCSV(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to open "+path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecordInvalid, "failed to read CSV header from "+path)
	}
	t := &csvTable{cols: make(map[string]int, len(header))}
	for i, name := range header {
		t.cols[strings.TrimSpace(strings.ToLower(name))] = i
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRecordInvalid, "malformed CSV row in "+path)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func (t *csvTable) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *csvTable) getFloat(row []string, col string) (float64, error) {
	v := t.get(row, col)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Validation(fmt.Sprintf("column %s is not numeric", col)).WithDetail("value=" + v)
	}
	return f, nil
}

func (t *csvTable) getInt(row []string, col string) (int, error) {
	f, err := t.getFloat(row, col)
	return int(f), err
}

func (t *csvTable) getDate(row []string, col string) (time.Time, error) {
	v := t.get(row, col)
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse("2006-01-02", v); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, v); err == nil {
		return d, nil
	}
	return time.Time{}, errors.Validation(fmt.Sprintf("column %s is not a date", col)).WithDetail("value=" + v)
}

// LoadCustomersCSV reads a customers file. Required: customer_id.
func LoadCustomersCSV(path string) ([]invoice.Customer, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]invoice.Customer, 0, len(t.rows))
	for _, row := range t.rows {
		terms, err := t.getInt(row, "payment_terms_days")
		if err != nil {
			return nil, err
		}
		limit, err := t.getFloat(row, "credit_limit")
		if err != nil {
			return nil, err
		}
		created, err := t.getDate(row, "created_at")
		if err != nil {
			return nil, err
		}
		out = append(out, invoice.Customer{
			ID:               t.get(row, "customer_id"),
			Name:             t.get(row, "name"),
			Email:            t.get(row, "email"),
			Phone:            t.get(row, "phone"),
			Industry:         t.get(row, "industry"),
			Country:          t.get(row, "country"),
			State:            t.get(row, "state"),
			PaymentTermsDays: terms,
			CreditLimit:      limit,
			CreatedAt:        created,
		})
	}
	return out, nil
}

// LoadInvoicesCSV reads an invoices file. Required: invoice_id,
// customer_id, issue_date, due_date, invoice_amount, status.
func LoadInvoicesCSV(path string) ([]invoice.Invoice, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]invoice.Invoice, 0, len(t.rows))
	for _, row := range t.rows {
		issue, err := t.getDate(row, "issue_date")
		if err != nil {
			return nil, err
		}
		due, err := t.getDate(row, "due_date")
		if err != nil {
			return nil, err
		}
		amount, err := t.getFloat(row, "invoice_amount")
		if err != nil {
			return nil, err
		}
		out = append(out, invoice.Invoice{
			ID:         t.get(row, "invoice_id"),
			CustomerID: t.get(row, "customer_id"),
			IssueDate:  issue,
			DueDate:    due,
			Amount:     amount,
			Currency:   t.get(row, "currency"),
			Status:     ar.InvoiceStatus(t.get(row, "status")),
			Type:       ar.InvoiceType(t.get(row, "invoice_type")),
			Channel:    ar.Channel(t.get(row, "channel")),
		})
	}
	return out, nil
}

// LoadPaymentsCSV reads a payments file. Required: payment_id,
// invoice_id, payment_date, amount.
func LoadPaymentsCSV(path string) ([]invoice.Payment, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]invoice.Payment, 0, len(t.rows))
	for _, row := range t.rows {
		date, err := t.getDate(row, "payment_date")
		if err != nil {
			return nil, err
		}
		amount, err := t.getFloat(row, "amount")
		if err != nil {
			return nil, err
		}
		out = append(out, invoice.Payment{
			ID:        t.get(row, "payment_id"),
			InvoiceID: t.get(row, "invoice_id"),
			Date:      date,
			Amount:    amount,
			Method:    t.get(row, "method"),
		})
	}
	return out, nil
}

// LoadDataset assembles the full book from the three CSV paths. The
// payments path may be empty.
func LoadDataset(customersPath, invoicesPath, paymentsPath string) (*invoice.Dataset, error) {
	customers, err := LoadCustomersCSV(customersPath)
	if err != nil {
		return nil, err
	}
	invoices, err := LoadInvoicesCSV(invoicesPath)
	if err != nil {
		return nil, err
	}
	ds := &invoice.Dataset{Customers: customers, Invoices: invoices}

	if paymentsPath != "" {
		ds.Payments, err = LoadPaymentsCSV(paymentsPath)
		if err != nil {
			return nil, err
		}
	}

	if res := invoice.ValidateDataset(ds); !res.IsValid() {
		first := res.Errors[0]
		return nil, errors.Validation("dataset failed validation").
			WithDetail(fmt.Sprintf("%d errors, first: %s", len(res.Errors), first.Message))
	}
	return ds, nil
}
