package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestActionLifecycle(t *testing.T) {
	a := NewAction("INV-001", "C-001", 1, ar.ActionFriendlyReminder, t0)
	assert.Equal(t, ar.ActionPending, a.Status)
	assert.Equal(t, ar.OutcomePending, a.Outcome)

	require.NoError(t, a.Complete(ar.OutcomePromiseToPay, t0.Add(24*time.Hour)))
	assert.Equal(t, ar.ActionCompleted, a.Status)
	assert.True(t, a.Succeeded())

	err := a.Cancel("invoice paid", t0.Add(48*time.Hour))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAttemptInvalidState))
}

func TestActionCancel(t *testing.T) {
	a := NewAction("INV-001", "C-001", 2, ar.ActionSecondNotice, t0)
	require.NoError(t, a.Cancel("invoice voided", t0))
	assert.Equal(t, ar.ActionCancelled, a.Status)
	assert.Equal(t, "invoice voided", a.Notes)
	assert.False(t, a.Succeeded())
}

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	a1 := NewAction("INV-001", "C-001", 1, ar.ActionFriendlyReminder, t0)
	a2 := NewAction("INV-001", "C-001", 2, ar.ActionSecondNotice, t0.AddDate(0, 0, 7))
	a3 := NewAction("INV-002", "C-002", 1, ar.ActionCall, t0.AddDate(0, 0, 3))
	require.NoError(t, repo.SaveBatch(ctx, []*Action{a1, a2, a3}))

	got, err := repo.GetByID(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, a1.InvoiceID, got.InvoiceID)

	n, err := repo.CountByInvoice(ctx, "INV-001")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := repo.List(ctx, Filter{InvoiceID: "INV-001"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Sorted by scheduled time ascending.
	assert.Equal(t, 1, list[0].Attempt)
	assert.Equal(t, 2, list[1].Attempt)
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAttemptNotFound))
}

func TestMemoryRepositoryDuplicateSave(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	a := NewAction("INV-001", "C-001", 1, ar.ActionFriendlyReminder, t0)
	require.NoError(t, repo.Save(ctx, a))
	err := repo.Save(ctx, a)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
}

func TestMemoryRepositoryDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	old := NewAction("INV-001", "C-001", 1, ar.ActionFriendlyReminder, t0.AddDate(-1, 0, 0))
	recent := NewAction("INV-002", "C-002", 1, ar.ActionCall, t0)
	require.NoError(t, repo.SaveBatch(ctx, []*Action{old, recent}))

	n, err := repo.DeleteOlderThan(ctx, t0.AddDate(0, -6, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, old.ID)
	require.Error(t, err)
	_, err = repo.GetByID(ctx, recent.ID)
	require.NoError(t, err)
}
