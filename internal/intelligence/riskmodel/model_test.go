package riskmodel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/intelligence/features"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// trainingDataset builds a synthetic book with a learnable pattern: the
// "slow" customers pay ~20 days late on every invoice, the "prompt"
// customers pay on or before the due date.
func trainingDataset(paidCount int) *invoice.Dataset {
	ds := &invoice.Dataset{
		Customers: []invoice.Customer{
			{ID: "C-SLOW-1", PaymentTermsDays: 30, CreditLimit: 5000},
			{ID: "C-SLOW-2", PaymentTermsDays: 60, CreditLimit: 8000},
			{ID: "C-PROMPT-1", PaymentTermsDays: 30, CreditLimit: 50000},
			{ID: "C-PROMPT-2", PaymentTermsDays: 14, CreditLimit: 100000},
		},
	}

	start := day(2024, 1, 1)
	for i := 0; i < paidCount; i++ {
		issue := start.AddDate(0, 0, i*3)
		due := issue.AddDate(0, 0, 30)

		var custID string
		var payDate time.Time
		var amount float64
		if i%2 == 0 {
			custID = fmt.Sprintf("C-SLOW-%d", i%2+1)
			payDate = due.AddDate(0, 0, 18+i%5) // well past the 7-day threshold
			amount = 4000 + float64(i%7)*300
		} else {
			custID = fmt.Sprintf("C-PROMPT-%d", i%2+1)
			payDate = due.AddDate(0, 0, -(i % 3)) // on time or early
			amount = 900 + float64(i%7)*50
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
	return ds
}

func newTestModel(t *testing.T, kind Kind) *Model {
	t.Helper()
	engine := features.NewEngine(logging.NewNopLogger())
	m, err := New(kind, engine, logging.NewNopLogger())
	require.NoError(t, err)
	return m
}

func TestNewRejectsUnknownKind(t *testing.T) {
	engine := features.NewEngine(logging.NewNopLogger())
	_, err := New(Kind("random_forest"), engine, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelKindUnknown))
}

func TestScoringBeforeTrainingFails(t *testing.T) {
	m := newTestModel(t, KindLogistic)
	_, err := m.PredictProba(trainingDataset(10), day(2025, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.IsModelNotTrained(err))
}

func TestSaveBeforeTrainingFails(t *testing.T) {
	m := newTestModel(t, KindLogistic)
	err := m.Save(filepath.Join(t.TempDir(), "model.json"))
	require.Error(t, err)
	assert.True(t, errors.IsModelNotTrained(err))
}

func TestTrainInsufficientData(t *testing.T) {
	m := newTestModel(t, KindGradientBoost)
	_, err := m.Train(trainingDataset(30), TrainParams{}, day(2025, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.IsInsufficientData(err))
}

func TestTrainAndScoreLogistic(t *testing.T) {
	testTrainAndScore(t, KindLogistic)
}

func TestTrainAndScoreGradientBoost(t *testing.T) {
	testTrainAndScore(t, KindGradientBoost)
}

func testTrainAndScore(t *testing.T, kind Kind) {
	m := newTestModel(t, kind)
	ds := trainingDataset(80)
	asOf := day(2025, 1, 1)

	metrics, err := m.Train(ds, TrainParams{}, asOf)
	require.NoError(t, err)
	assert.True(t, m.Trained())

	assert.Equal(t, 60, metrics.TrainSamples) // 80 × (1 − 0.25)
	assert.Equal(t, 20, metrics.TestSamples)
	assert.InDelta(t, 50.0, metrics.LateRatePct, 0.01)
	// The pattern is fully separable on customer history and amount.
	assert.Greater(t, metrics.TrainAccuracy, 0.7)
	assert.Greater(t, metrics.CVAUCMean, 0.6)

	// Score fresh open invoices for a slow and a prompt customer.
	scoring := &invoice.Dataset{
		Customers: ds.Customers,
		Invoices: append(append([]invoice.Invoice{}, ds.Invoices...),
			invoice.Invoice{ID: "INV-OPEN-SLOW", CustomerID: "C-SLOW-1", IssueDate: day(2024, 12, 1), DueDate: day(2024, 12, 31), Amount: 4500, Status: "open"},
			invoice.Invoice{ID: "INV-OPEN-PROMPT", CustomerID: "C-PROMPT-1", IssueDate: day(2024, 12, 1), DueDate: day(2024, 12, 31), Amount: 950, Status: "open"},
		),
		Payments: ds.Payments,
	}

	scored, err := m.ScoreInvoices(scoring, asOf)
	require.NoError(t, err)
	require.Len(t, scored, len(scoring.Invoices))

	byID := map[string]Scored{}
	for _, s := range scored {
		byID[s.InvoiceID] = s
		assert.GreaterOrEqual(t, s.RiskScore, 0)
		assert.LessOrEqual(t, s.RiskScore, 100)
	}
	assert.Greater(t, byID["INV-OPEN-SLOW"].Probability, byID["INV-OPEN-PROMPT"].Probability)
}

func TestPredictPaymentDates(t *testing.T) {
	m := newTestModel(t, KindLogistic)
	ds := trainingDataset(80)
	asOf := day(2025, 1, 1)
	_, err := m.Train(ds, TrainParams{}, asOf)
	require.NoError(t, err)

	dates, err := m.PredictPaymentDates(ds, asOf)
	require.NoError(t, err)
	require.Len(t, dates, len(ds.Invoices))

	for _, inv := range ds.Invoices {
		predicted, ok := dates[inv.ID]
		require.True(t, ok)
		// Due date at p=0, at most 45 days later at p=1.
		assert.False(t, predicted.Before(inv.DueDate))
		assert.False(t, predicted.After(inv.DueDate.AddDate(0, 0, 45)))
	}
}

func TestTrainingIsDeterministic(t *testing.T) {
	ds := trainingDataset(80)
	asOf := day(2025, 1, 1)

	m1 := newTestModel(t, KindGradientBoost)
	m2 := newTestModel(t, KindGradientBoost)
	_, err := m1.Train(ds, TrainParams{}, asOf)
	require.NoError(t, err)
	_, err = m2.Train(ds, TrainParams{}, asOf)
	require.NoError(t, err)

	p1, err := m1.PredictProba(ds, asOf)
	require.NoError(t, err)
	p2, err := m2.PredictProba(ds, asOf)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestFeatureImportancesSorted(t *testing.T) {
	m := newTestModel(t, KindGradientBoost)
	_, err := m.Train(trainingDataset(80), TrainParams{}, day(2025, 1, 1))
	require.NoError(t, err)

	imps := m.FeatureImportances()
	require.Len(t, imps, features.NumFeatures)
	total := 0.0
	for i := 1; i < len(imps); i++ {
		assert.GreaterOrEqual(t, imps[i-1].Importance, imps[i].Importance)
	}
	for _, fi := range imps {
		total += fi.Importance
	}
	assert.InDelta(t, 1.0, total, 1e-6)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ds := trainingDataset(80)
	asOf := day(2025, 1, 1)
	path := filepath.Join(t.TempDir(), "models", "risk_model.json")

	m := newTestModel(t, KindGradientBoost)
	_, err := m.Train(ds, TrainParams{}, asOf)
	require.NoError(t, err)
	require.NoError(t, m.Save(path))

	engine := features.NewEngine(logging.NewNopLogger())
	loaded, err := Load(path, engine, logging.NewNopLogger())
	require.NoError(t, err)
	assert.True(t, loaded.Trained())
	assert.Equal(t, KindGradientBoost, loaded.Kind())

	want, err := m.PredictProba(ds, asOf)
	require.NoError(t, err)
	got, err := loaded.PredictProba(ds, asOf)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	path := writeTamperedArtifact(t, func(raw map[string]any) {
		raw["schema_version"] = 99
	})
	_, err := Load(path, features.NewEngine(logging.NewNopLogger()), logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelArtifact))
}

func TestLoadRejectsColumnMismatch(t *testing.T) {
	path := writeTamperedArtifact(t, func(raw map[string]any) {
		cols := raw["feature_columns"].([]any)
		cols[0], cols[1] = cols[1], cols[0]
	})
	_, err := Load(path, features.NewEngine(logging.NewNopLogger()), logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsContractMismatch(err))
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := Load(path, features.NewEngine(logging.NewNopLogger()), logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelArtifact))
}

// writeTamperedArtifact trains a small model, saves it, applies mutate to
// the decoded JSON, and writes it back.
func writeTamperedArtifact(t *testing.T, mutate func(map[string]any)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")

	m := newTestModel(t, KindLogistic)
	_, err := m.Train(trainingDataset(60), TrainParams{}, day(2025, 1, 1))
	require.NoError(t, err)
	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	mutate(raw)
	data, err = json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
