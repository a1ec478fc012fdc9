// Package riskmodel implements the trainable late-payment classifier: a
// closed set of estimators behind one train/score interface, a fitted
// feature scaler, and versioned artifact persistence. The model's life
// cycle is uninitialized → trained → (scored | persisted → reloaded).
// Scoring or saving before training fails with ErrCodeModelNotTrained.
package riskmodel

import (
	"math"
	"sort"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/intelligence/features"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

// TrainParams tunes one training run. Zero values take the documented
// defaults.
type TrainParams struct {
	LateThresholdDays int     // default 7
	TestSize          float64 // default 0.25
	CVFolds           int     // default 5
	MinRows           int     // default 50
}

func (p TrainParams) withDefaults() TrainParams {
	if p.LateThresholdDays == 0 {
		p.LateThresholdDays = 7
	}
	if p.TestSize == 0 {
		p.TestSize = 0.25
	}
	if p.CVFolds == 0 {
		p.CVFolds = 5
	}
	if p.MinRows == 0 {
		p.MinRows = 50
	}
	return p
}

// TrainMetrics summarizes a completed training run.
type TrainMetrics struct {
	ModelKind         string    `json:"model_kind"`
	TrainSamples      int       `json:"train_samples"`
	TestSamples       int       `json:"test_samples"`
	TrainAccuracy     float64   `json:"train_accuracy"`
	TestAccuracy      float64   `json:"test_accuracy"`
	CVAUCMean         float64   `json:"cv_auc_mean"`
	CVAUCStd          float64   `json:"cv_auc_std"`
	LateRatePct       float64   `json:"late_rate_pct"`
	LateThresholdDays int       `json:"late_threshold_days"`
	TrainedAt         time.Time `json:"trained_at"`
}

// Scored is one invoice's model output.
type Scored struct {
	InvoiceID    string          `json:"invoice_id"`
	Probability  float64         `json:"probability"`
	RiskScore    int             `json:"risk_score"`
	RiskCategory ar.RiskCategory `json:"risk_category"`
}

// FeatureImportance pairs a feature column with its normalized share of
// the fitted estimator's importance mass.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Model is the late-payment classifier.
type Model struct {
	kind  Kind
	seed  int64
	hyper Hyperparams

	engine *features.Engine
	log    logging.Logger

	est         estimator
	scaler      *Scaler
	cols        []string
	importances []float64
	trained     bool
}

// Option adjusts model construction.
type Option func(*Model)

// WithSeed overrides the default training seed (42).
func WithSeed(seed int64) Option {
	return func(m *Model) { m.seed = seed }
}

// WithHyperparams overrides individual estimator hyperparameters; unset
// fields keep the per-kind defaults.
func WithHyperparams(h Hyperparams) Option {
	return func(m *Model) { m.hyper = h }
}

// New constructs an untrained model of the given kind.
func New(kind Kind, engine *features.Engine, log logging.Logger, opts ...Option) (*Model, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	m := &Model{
		kind:   kind,
		seed:   42,
		engine: engine,
		log:    log.Named("riskmodel"),
		scaler: &Scaler{},
		cols:   features.Columns(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.hyper = m.hyper.withDefaults(kind)
	return m, nil
}

// Kind returns the model's estimator kind.
func (m *Model) Kind() Kind { return m.kind }

// Trained reports whether the model has completed a training run or been
// restored from an artifact.
func (m *Model) Trained() bool { return m.trained }

// Train builds labels from the dataset's paid invoices, splits them
// temporally by issue date (older rows train, newer rows test), fits the
// scaler on the training split only, cross-validates on the scaled
// training split, and fits the final estimator. Fails with
// ErrCodeInsufficientData below MinRows labeled rows.
func (m *Model) Train(ds *invoice.Dataset, params TrainParams, asOf time.Time) (*TrainMetrics, error) {
	params = params.withDefaults()

	labeled := m.engine.BuildTraining(ds, params.LateThresholdDays, asOf)
	if len(labeled) < params.MinRows {
		return nil, errors.Newf(errors.ErrCodeInsufficientData,
			"insufficient training data: %d labeled invoices, need at least %d", len(labeled), params.MinRows)
	}

	lateCount := 0
	for _, l := range labeled {
		if l.IsLate {
			lateCount++
		}
	}
	m.log.Info("training risk model",
		logging.String("kind", string(m.kind)),
		logging.Int("labeled_rows", len(labeled)),
		logging.Float64("late_rate_pct", float64(lateCount)/float64(len(labeled))*100),
	)

	// Temporal split: BuildTraining returns rows sorted by issue date.
	splitIdx := int(float64(len(labeled)) * (1 - params.TestSize))
	train, test := labeled[:splitIdx], labeled[splitIdx:]

	trainX := make([][]float64, len(train))
	trainY := make([]float64, len(train))
	for i, l := range train {
		trainX[i] = l.Features
		trainY[i] = boolTo01(l.IsLate)
	}
	testX := make([][]float64, len(test))
	testY := make([]float64, len(test))
	for i, l := range test {
		testX[i] = l.Features
		testY[i] = boolTo01(l.IsLate)
	}

	scaledTrain := m.scaler.FitTransform(trainX)
	scaledTest := m.scaler.Transform(testX)

	cvMean, cvStd := crossValidateAUC(m.kind, m.hyper, scaledTrain, trainY, params.CVFolds, m.seed)

	est, err := newEstimator(m.kind, m.hyper)
	if err != nil {
		return nil, err
	}
	est.fit(scaledTrain, trainY, m.seed)
	m.est = est
	m.importances = est.featureImportances(len(m.cols))
	m.trained = true

	metrics := &TrainMetrics{
		ModelKind:         string(m.kind),
		TrainSamples:      len(train),
		TestSamples:       len(test),
		TrainAccuracy:     round4(accuracy(predictAll(est, scaledTrain), trainY)),
		TestAccuracy:      round4(accuracy(predictAll(est, scaledTest), testY)),
		CVAUCMean:         round4(cvMean),
		CVAUCStd:          round4(cvStd),
		LateRatePct:       round2(float64(lateCount) / float64(len(labeled)) * 100),
		LateThresholdDays: params.LateThresholdDays,
		TrainedAt:         asOf,
	}

	m.log.Info("risk model trained",
		logging.Float64("train_accuracy", metrics.TrainAccuracy),
		logging.Float64("test_accuracy", metrics.TestAccuracy),
		logging.Float64("cv_auc_mean", metrics.CVAUCMean),
	)
	return metrics, nil
}

// PredictProba re-derives features with the frozen 25-column contract,
// scales them through the trained scaler, and returns the late-payment
// probability for every invoice in the dataset, in input order.
func (m *Model) PredictProba(ds *invoice.Dataset, asOf time.Time) ([]float64, error) {
	if !m.trained {
		return nil, errors.New(errors.ErrCodeModelNotTrained, "model not trained; call Train or load an artifact first")
	}

	matrix := m.engine.Engineer(ds, asOf)
	if !features.ColumnsMatch(m.cols) {
		return nil, errors.New(errors.ErrCodeFeatureContractMismatch,
			"model feature columns disagree with the feature engine contract")
	}

	out := make([]float64, len(matrix.Rows))
	for i, row := range matrix.Rows {
		out[i] = m.est.predictProba(m.scaler.TransformRow(row))
	}
	return out, nil
}

// ScoreInvoices scores every invoice in the dataset and maps each
// probability onto the shared 0-100 score and four-tier category.
func (m *Model) ScoreInvoices(ds *invoice.Dataset, asOf time.Time) ([]Scored, error) {
	probs, err := m.PredictProba(ds, asOf)
	if err != nil {
		return nil, err
	}
	out := make([]Scored, len(probs))
	for i, p := range probs {
		score := int(math.Round(p * 100))
		out[i] = Scored{
			InvoiceID:    ds.Invoices[i].ID,
			Probability:  p,
			RiskScore:    score,
			RiskCategory: ar.RiskCategoryFromScore(score),
		}
	}
	return out, nil
}

// PredictPaymentDates estimates when each invoice will be paid: the due
// date pushed out in proportion to the late-payment probability, up to
// 45 days at p=1. Keyed by invoice ID.
func (m *Model) PredictPaymentDates(ds *invoice.Dataset, asOf time.Time) (map[string]time.Time, error) {
	probs, err := m.PredictProba(ds, asOf)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(probs))
	for i, p := range probs {
		slip := int(math.Round(p * 45))
		out[ds.Invoices[i].ID] = ds.Invoices[i].DueDate.AddDate(0, 0, slip)
	}
	return out, nil
}

// FeatureImportances returns the fitted estimator's importances paired
// with column names, sorted descending. Empty before training.
func (m *Model) FeatureImportances() []FeatureImportance {
	if !m.trained || len(m.importances) == 0 {
		return nil
	}
	out := make([]FeatureImportance, len(m.cols))
	for i, c := range m.cols {
		out[i] = FeatureImportance{Feature: c, Importance: m.importances[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

func predictAll(est estimator, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = est.predictProba(row)
	}
	return out
}

func boolTo01(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
