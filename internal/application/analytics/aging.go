// Package analytics computes portfolio-level receivables insight: aging
// breakdowns, DSO and collection-effectiveness metrics, payment-behavior
// statistics, and probabilistic cash-inflow forecasts. Everything is
// computed against an explicit as-of instant so reports are reproducible.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CashFlow-Sentinel/pkg/dates"
)

// Service computes receivables analytics.
type Service struct {
	cfg     config.AnalyticsConfig
	metrics *prometheus.Metrics
	log     logging.Logger
}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*Service)

// WithMetrics attaches prometheus instrumentation to the service.
func WithMetrics(m *prometheus.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService returns an analytics service. Zero-value config fields fall
// back to the platform defaults.
func NewService(cfg config.AnalyticsConfig, log logging.Logger, opts ...ServiceOption) *Service {
	if cfg.ForecastPayProbability <= 0 || cfg.ForecastPayProbability > 1 {
		cfg.ForecastPayProbability = config.DefaultForecastPayProbability
	}
	if cfg.ForecastSlipDays == 0 {
		cfg.ForecastSlipDays = config.DefaultForecastSlipDays
	}
	if cfg.MonteCarloRuns <= 0 {
		cfg.MonteCarloRuns = config.DefaultMonteCarloRuns
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &Service{cfg: cfg, log: log.Named("analytics")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AgingLine is one bucket of the aging summary.
type AgingLine struct {
	Bucket       dates.Bucket `json:"aging_bucket"`
	InvoiceCount int          `json:"invoice_count"`
	TotalAmount  float64      `json:"total_amount"`
	Percentage   float64      `json:"percentage"`
}

// AgingSummary breaks the open AR down by aging bucket, in canonical
// bucket order. Every bucket appears, zero or not; percentages are of
// total open AR and sum to 100 when any AR exists.
func (s *Service) AgingSummary(ds *invoice.Dataset, asOf time.Time) []AgingLine {
	amounts := make(map[dates.Bucket]float64)
	counts := make(map[dates.Bucket]int)
	totalAR := 0.0

	for _, inv := range ds.OpenInvoices() {
		b := inv.AgingBucket(asOf)
		amounts[b] += inv.Amount
		counts[b]++
		totalAR += inv.Amount
	}

	out := make([]AgingLine, 0, 6)
	for _, b := range dates.AllBuckets() {
		line := AgingLine{Bucket: b, InvoiceCount: counts[b], TotalAmount: round2(amounts[b])}
		if totalAR > 0 {
			line.Percentage = round2(amounts[b] / totalAR * 100)
		}
		if s.metrics != nil {
			s.metrics.SetOpenAR(string(b), line.TotalAmount)
		}
		out = append(out, line)
	}
	return out
}

// CustomerAging is one customer's open AR pivoted across aging buckets.
type CustomerAging struct {
	CustomerID   string                   `json:"customer_id"`
	CustomerName string                   `json:"customer_name,omitempty"`
	TotalAR      float64                  `json:"total_ar"`
	InvoiceCount int                      `json:"invoice_count"`
	Buckets      map[dates.Bucket]float64 `json:"buckets"`
}

// CustomerAgingSummary pivots the open AR by customer and bucket, sorted
// by total AR descending (customer id breaks ties).
func (s *Service) CustomerAgingSummary(ds *invoice.Dataset, asOf time.Time) []CustomerAging {
	customers := ds.CustomerByID()
	byCustomer := make(map[string]*CustomerAging)

	for _, inv := range ds.OpenInvoices() {
		ca := byCustomer[inv.CustomerID]
		if ca == nil {
			ca = &CustomerAging{CustomerID: inv.CustomerID, Buckets: make(map[dates.Bucket]float64)}
			if cust := customers[inv.CustomerID]; cust != nil {
				ca.CustomerName = cust.Name
			}
			byCustomer[inv.CustomerID] = ca
		}
		ca.TotalAR += inv.Amount
		ca.InvoiceCount++
		ca.Buckets[inv.AgingBucket(asOf)] += inv.Amount
	}

	out := make([]CustomerAging, 0, len(byCustomer))
	for _, ca := range byCustomer {
		ca.TotalAR = round2(ca.TotalAR)
		out = append(out, *ca)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAR != out[j].TotalAR {
			return out[i].TotalAR > out[j].TotalAR
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
