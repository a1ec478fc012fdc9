// Package action holds the collection-action aggregate tracked by the
// scheduler: each planned or executed outreach against an overdue invoice,
// with its life cycle and outcome.
package action

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// Action is a single collections touch against an invoice. Actions are
// created pending with attempt numbers assigned in planning order and
// transition exactly once to completed or cancelled.
type Action struct {
	ID          string           `json:"action_id"`
	InvoiceID   string           `json:"invoice_id"`
	CustomerID  string           `json:"customer_id"`
	Attempt     int              `json:"attempt"`
	Type        ar.ActionType    `json:"action_type"`
	Status      ar.ActionStatus  `json:"status"`
	Outcome     ar.ActionOutcome `json:"outcome,omitempty"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewAction creates a pending action for the given invoice and attempt.
func NewAction(invoiceID, customerID string, attempt int, typ ar.ActionType, scheduledAt time.Time) *Action {
	return &Action{
		ID:          uuid.New().String(),
		InvoiceID:   invoiceID,
		CustomerID:  customerID,
		Attempt:     attempt,
		Type:        typ,
		Status:      ar.ActionPending,
		Outcome:     ar.OutcomePending,
		ScheduledAt: scheduledAt,
		CreatedAt:   scheduledAt,
	}
}

// Complete marks a pending action completed with the given outcome.
func (a *Action) Complete(outcome ar.ActionOutcome, at time.Time) error {
	if a.Status.Terminal() {
		return errors.New(errors.ErrCodeAttemptInvalidState, "action already in terminal state").
			WithDetail("action_id=" + a.ID + " status=" + string(a.Status))
	}
	a.Status = ar.ActionCompleted
	a.Outcome = outcome
	a.CompletedAt = &at
	return nil
}

// Cancel marks a pending action cancelled, recording the reason. Used
// when the underlying invoice is paid or voided before the touch runs.
func (a *Action) Cancel(reason string, at time.Time) error {
	if a.Status.Terminal() {
		return errors.New(errors.ErrCodeAttemptInvalidState, "action already in terminal state").
			WithDetail("action_id=" + a.ID + " status=" + string(a.Status))
	}
	a.Status = ar.ActionCancelled
	a.CompletedAt = &at
	if reason != "" {
		a.Notes = reason
	}
	return nil
}

// Succeeded reports whether the action resolved the receivable.
func (a *Action) Succeeded() bool {
	switch a.Outcome {
	case ar.OutcomeSuccess, ar.OutcomePromiseToPay, ar.OutcomePaymentPlanAccepted:
		return true
	}
	return false
}
