// Package scoring orchestrates invoice risk scoring and model training.
// It prefers the persisted model artifact; when no usable artifact
// exists it degrades to the rule-based fallback scorer with a logged
// warning. Degradation is never an error: a missing artifact is the
// normal state of a fresh deployment.
package scoring

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CashFlow-Sentinel/internal/intelligence/fallback"
	"github.com/turtacn/CashFlow-Sentinel/internal/intelligence/features"
	"github.com/turtacn/CashFlow-Sentinel/internal/intelligence/riskmodel"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// Locker serializes training runs across processes. *redis.Mutex
// satisfies it; a nil Locker means single-process operation.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// Publisher emits scoring events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishRiskScored(ctx context.Context, payload kafka.RiskScoredPayload) error
}

// Result is the outcome of one scoring batch.
type Result struct {
	BatchID      string                  `json:"batch_id"`
	AsOf         time.Time               `json:"as_of"`
	ModelKind    string                  `json:"model_kind"`
	UsedFallback bool                    `json:"used_fallback"`
	Invoices     []invoice.RiskAnnotated `json:"invoices"`
}

// Service wires the model, the fallback scorer, and the surrounding
// infrastructure into the two entry points the interfaces layer calls:
// Score and Train.
type Service struct {
	cfg      config.ModelConfig
	engine   *features.Engine
	fallback *fallback.Scorer
	metrics  *prometheus.Metrics
	producer Publisher
	locker   Locker
	log      logging.Logger
}

// ServiceOption tunes a Service.
type ServiceOption func(*Service)

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *prometheus.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher attaches the event producer.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.producer = p }
}

// WithLocker attaches the distributed training lock.
func WithLocker(l Locker) ServiceOption {
	return func(s *Service) { s.locker = l }
}

// NewService builds the scoring service.
func NewService(cfg config.ModelConfig, engine *features.Engine, log logging.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if engine == nil {
		engine = features.NewEngine(log)
	}
	s := &Service{
		cfg:      cfg,
		engine:   engine,
		fallback: fallback.NewScorer(log),
		log:      log.Named("scoring"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score annotates every open invoice in the dataset with a risk score
// and category, sorted by score descending. The trained model is used
// when its artifact loads cleanly; otherwise the rule-based fallback
// takes over.
func (s *Service) Score(ctx context.Context, ds *invoice.Dataset, asOf time.Time) (*Result, error) {
	start := time.Now()

	res := &Result{
		BatchID: uuid.New().String(),
		AsOf:    asOf,
	}

	model := s.loadModel()
	if model != nil {
		scored, err := model.ScoreInvoices(ds, asOf)
		if err != nil {
			return nil, err
		}
		res.ModelKind = string(model.Kind())
		res.Invoices = annotateFromModel(ds, scored, asOf)
	} else {
		res.ModelKind = "fallback"
		res.UsedFallback = true
		res.Invoices = annotateFromFallback(ds, s.fallback.Score(ds, asOf), asOf)
		if s.metrics != nil {
			s.metrics.ObserveFallback()
		}
	}

	sort.SliceStable(res.Invoices, func(a, b int) bool {
		if res.Invoices[a].RiskScore != res.Invoices[b].RiskScore {
			return res.Invoices[a].RiskScore > res.Invoices[b].RiskScore
		}
		return res.Invoices[a].ID < res.Invoices[b].ID
	})

	if s.metrics != nil {
		for i := range res.Invoices {
			s.metrics.ObserveScored(string(res.Invoices[i].RiskCategory))
		}
		s.metrics.ObserveScoringBatch(time.Since(start))
	}

	s.publishScored(ctx, res)

	s.log.Info("scoring batch complete",
		logging.String("batch_id", res.BatchID),
		logging.String("model_kind", res.ModelKind),
		logging.Int("invoices", len(res.Invoices)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Train fits a fresh model on the dataset's payment history and saves
// the artifact. When a Locker is configured the run is serialized
// against concurrent trainers.
func (s *Service) Train(ctx context.Context, ds *invoice.Dataset, asOf time.Time) (*riskmodel.TrainMetrics, error) {
	if s.locker != nil {
		if err := s.locker.Lock(ctx); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConflict, "another training run is in progress")
		}
		defer func() {
			if err := s.locker.Unlock(ctx); err != nil {
				s.log.Warn("failed to release training lock", logging.Err(err))
			}
		}()
	}

	start := time.Now()
	metrics, err := s.train(ds, asOf)
	if s.metrics != nil {
		outcome := "success"
		auc := 0.0
		if err != nil {
			outcome = "failure"
		} else {
			auc = metrics.CVAUCMean
		}
		s.metrics.ObserveTraining(outcome, time.Since(start), auc)
	}
	return metrics, err
}

func (s *Service) train(ds *invoice.Dataset, asOf time.Time) (*riskmodel.TrainMetrics, error) {
	kind, err := riskmodel.ParseKind(s.cfg.Kind)
	if err != nil {
		return nil, err
	}

	opts := []riskmodel.Option{}
	if s.cfg.Seed != 0 {
		opts = append(opts, riskmodel.WithSeed(s.cfg.Seed))
	}
	model, err := riskmodel.New(kind, s.engine, s.log, opts...)
	if err != nil {
		return nil, err
	}

	metrics, err := model.Train(ds, riskmodel.TrainParams{
		LateThresholdDays: s.cfg.LateThresholdDays,
		TestSize:          s.cfg.TestSize,
		CVFolds:           s.cfg.CVFolds,
		MinRows:           s.cfg.MinTrainingRows,
	}, asOf)
	if err != nil {
		return nil, err
	}

	if s.cfg.ArtifactPath != "" {
		if err := model.Save(s.cfg.ArtifactPath); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

// loadModel attempts to restore the persisted model. Any failure is a
// warning, not an error.
func (s *Service) loadModel() *riskmodel.Model {
	if s.cfg.ArtifactPath == "" {
		return nil
	}
	model, err := riskmodel.Load(s.cfg.ArtifactPath, s.engine, s.log)
	if err != nil {
		s.log.Warn("model artifact unavailable, using fallback scorer",
			logging.String("artifact_path", s.cfg.ArtifactPath),
			logging.Err(err),
		)
		return nil
	}
	return model
}

func (s *Service) publishScored(ctx context.Context, res *Result) {
	if s.producer == nil {
		return
	}
	err := s.producer.PublishRiskScored(ctx, kafka.RiskScoredPayload{
		BatchID:      res.BatchID,
		AsOf:         res.AsOf,
		InvoiceCount: len(res.Invoices),
		ModelKind:    res.ModelKind,
		UsedFallback: res.UsedFallback,
		ScoredAt:     time.Now().UTC(),
	})
	if err != nil {
		// The event stream is advisory; scoring results stand on their own.
		s.log.Warn("failed to publish risk-scored event", logging.Err(err))
	}
}

func annotateFromModel(ds *invoice.Dataset, scored []riskmodel.Scored, asOf time.Time) []invoice.RiskAnnotated {
	byID := make(map[string]riskmodel.Scored, len(scored))
	for _, sc := range scored {
		byID[sc.InvoiceID] = sc
	}
	open := ds.OpenInvoices()
	out := make([]invoice.RiskAnnotated, 0, len(open))
	for i := range open {
		sc, ok := byID[open[i].ID]
		if !ok {
			continue
		}
		out = append(out, invoice.RiskAnnotated{
			Invoice:       open[i],
			DaysOverdueAt: open[i].DaysOverdue(asOf),
			RiskScore:     sc.RiskScore,
			RiskCategory:  sc.RiskCategory,
		})
	}
	return out
}

func annotateFromFallback(ds *invoice.Dataset, scored []fallback.Scored, asOf time.Time) []invoice.RiskAnnotated {
	byID := make(map[string]fallback.Scored, len(scored))
	for _, sc := range scored {
		byID[sc.InvoiceID] = sc
	}
	open := ds.OpenInvoices()
	out := make([]invoice.RiskAnnotated, 0, len(open))
	for i := range open {
		sc, ok := byID[open[i].ID]
		if !ok {
			continue
		}
		out = append(out, invoice.RiskAnnotated{
			Invoice:       open[i],
			DaysOverdueAt: open[i].DaysOverdue(asOf),
			RiskScore:     sc.RiskScore,
			RiskCategory:  sc.RiskCategory,
		})
	}
	return out
}
