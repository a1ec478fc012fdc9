package scoring

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// historyDataset builds a book with a learnable split: slow customers
// pay ~20 days late, prompt customers pay on time. The trailing open
// invoices are what Score annotates.
func historyDataset(paidCount, openCount int) *invoice.Dataset {
	ds := &invoice.Dataset{
		Customers: []invoice.Customer{
			{ID: "C-SLOW", PaymentTermsDays: 30, CreditLimit: 5000},
			{ID: "C-PROMPT", PaymentTermsDays: 30, CreditLimit: 80000},
		},
	}

	start := day(2024, 1, 1)
	for i := 0; i < paidCount; i++ {
		issue := start.AddDate(0, 0, i*3)
		due := issue.AddDate(0, 0, 30)

		custID := "C-PROMPT"
		payDate := due
		amount := 900.0
		if i%2 == 0 {
			custID = "C-SLOW"
			payDate = due.AddDate(0, 0, 18+i%5)
			amount = 4200.0
		}

		id := fmt.Sprintf("INV-%03d", i)
		ds.Invoices = append(ds.Invoices, invoice.Invoice{
			ID: id, CustomerID: custID,
			IssueDate: issue, DueDate: due, Amount: amount, Status: "paid",
		})
		ds.Payments = append(ds.Payments, invoice.Payment{
			ID: "P-" + id, InvoiceID: id, Date: payDate, Amount: amount,
		})
	}

	for i := 0; i < openCount; i++ {
		custID := "C-PROMPT"
		if i%2 == 0 {
			custID = "C-SLOW"
		}
		issue := day(2025, 4, 1).AddDate(0, 0, i)
		ds.Invoices = append(ds.Invoices, invoice.Invoice{
			ID: fmt.Sprintf("INV-OPEN-%02d", i), CustomerID: custID,
			IssueDate: issue, DueDate: issue.AddDate(0, 0, 30),
			Amount: 2000 + float64(i)*500, Status: "open",
		})
	}
	return ds
}

type fakePublisher struct {
	payloads []kafka.RiskScoredPayload
	err      error
}

func (f *fakePublisher) PublishRiskScored(_ context.Context, payload kafka.RiskScoredPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeLocker struct {
	locked   int
	unlocked int
	lockErr  error
}

func (f *fakeLocker) Lock(context.Context) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	f.locked++
	return nil
}

func (f *fakeLocker) Unlock(context.Context) error {
	f.unlocked++
	return nil
}

func newService(t *testing.T, cfg config.ModelConfig, opts ...ServiceOption) *Service {
	t.Helper()
	return NewService(cfg, nil, logging.NewNopLogger(), opts...)
}

func TestScoreFallsBackWithoutArtifact(t *testing.T) {
	svc := newService(t, config.ModelConfig{ArtifactPath: filepath.Join(t.TempDir(), "missing.json")})
	ds := historyDataset(0, 6)

	res, err := svc.Score(context.Background(), ds, day(2025, 6, 2))
	require.NoError(t, err)

	assert.True(t, res.UsedFallback)
	assert.Equal(t, "fallback", res.ModelKind)
	assert.NotEmpty(t, res.BatchID)
	assert.Len(t, res.Invoices, 6)
}

func TestScoreAnnotatesOnlyOpenInvoices(t *testing.T) {
	svc := newService(t, config.ModelConfig{})
	ds := historyDataset(4, 3)

	res, err := svc.Score(context.Background(), ds, day(2025, 6, 2))
	require.NoError(t, err)

	require.Len(t, res.Invoices, 3)
	for _, inv := range res.Invoices {
		assert.Equal(t, "open", string(inv.Status))
	}
}

func TestScoreSortsByRiskDescending(t *testing.T) {
	svc := newService(t, config.ModelConfig{})
	ds := historyDataset(0, 8)

	res, err := svc.Score(context.Background(), ds, day(2025, 7, 1))
	require.NoError(t, err)

	for i := 1; i < len(res.Invoices); i++ {
		prev, cur := res.Invoices[i-1], res.Invoices[i]
		if prev.RiskScore == cur.RiskScore {
			assert.Less(t, prev.ID, cur.ID)
		} else {
			assert.Greater(t, prev.RiskScore, cur.RiskScore)
		}
	}
}

func TestScorePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, config.ModelConfig{}, WithPublisher(pub))
	ds := historyDataset(0, 4)
	asOf := day(2025, 6, 2)

	res, err := svc.Score(context.Background(), ds, asOf)
	require.NoError(t, err)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, res.BatchID, pub.payloads[0].BatchID)
	assert.Equal(t, asOf, pub.payloads[0].AsOf)
	assert.Equal(t, 4, pub.payloads[0].InvoiceCount)
	assert.Equal(t, "fallback", pub.payloads[0].ModelKind)
	assert.True(t, pub.payloads[0].UsedFallback)
}

func TestScorePublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New(errors.ErrCodePublishFailure, "broker down")}
	svc := newService(t, config.ModelConfig{}, WithPublisher(pub))

	_, err := svc.Score(context.Background(), historyDataset(0, 2), day(2025, 6, 2))
	assert.NoError(t, err)
}

func TestTrainThenScoreUsesModel(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "model.json")
	cfg := config.ModelConfig{
		Kind:            "gradient_boost",
		ArtifactPath:    artifact,
		MinTrainingRows: 50,
		Seed:            42,
	}
	svc := newService(t, cfg)
	ds := historyDataset(80, 6)
	asOf := day(2025, 6, 2)

	metrics, err := svc.Train(context.Background(), ds, asOf)
	require.NoError(t, err)
	assert.Equal(t, "gradient_boost", metrics.ModelKind)
	assert.Positive(t, metrics.TrainSamples)

	res, err := svc.Score(context.Background(), ds, asOf)
	require.NoError(t, err)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, "gradient_boost", res.ModelKind)
	assert.Len(t, res.Invoices, 6)
}

func TestTrainRejectsUnknownKind(t *testing.T) {
	svc := newService(t, config.ModelConfig{Kind: "random_forest"})

	_, err := svc.Train(context.Background(), historyDataset(80, 0), day(2025, 6, 2))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelKindUnknown))
}

func TestTrainInsufficientData(t *testing.T) {
	svc := newService(t, config.ModelConfig{Kind: "logistic", MinTrainingRows: 50})

	_, err := svc.Train(context.Background(), historyDataset(10, 0), day(2025, 6, 2))
	require.Error(t, err)
	assert.True(t, errors.IsInsufficientData(err))
}

func TestTrainHoldsLock(t *testing.T) {
	lk := &fakeLocker{}
	svc := newService(t, config.ModelConfig{Kind: "logistic", MinTrainingRows: 50}, WithLocker(lk))

	_, err := svc.Train(context.Background(), historyDataset(80, 0), day(2025, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, lk.locked)
	assert.Equal(t, 1, lk.unlocked)
}

func TestTrainLockContention(t *testing.T) {
	lk := &fakeLocker{lockErr: errors.New(errors.ErrCodeConflict, "held elsewhere")}
	svc := newService(t, config.ModelConfig{Kind: "logistic"}, WithLocker(lk))

	_, err := svc.Train(context.Background(), historyDataset(80, 0), day(2025, 6, 2))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	assert.Zero(t, lk.unlocked)
}
