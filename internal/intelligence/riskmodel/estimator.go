package riskmodel

import (
	"encoding/json"

	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// Kind identifies a supported estimator. The set is closed: adding a kind
// means a new constant, a new branch in newEstimator, and a new artifact
// decoder, never a free-form string at a call site.
type Kind string

const (
	KindGradientBoost Kind = "gradient_boost"
	KindLogistic      Kind = "logistic"
)

// ParseKind validates a model-kind string from config or an artifact.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGradientBoost, KindLogistic:
		return Kind(s), nil
	default:
		return "", errors.Newf(errors.ErrCodeModelKindUnknown, "unknown model kind %q", s)
	}
}

// Hyperparams carries every tunable of both estimator kinds. Zero values
// are replaced by the per-kind defaults in withDefaults.
type Hyperparams struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	LearningRate    float64 `json:"learning_rate"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Subsample       float64 `json:"subsample"`

	// Logistic regression only.
	MaxIter int     `json:"max_iter"`
	L2      float64 `json:"l2"`
}

func (h Hyperparams) withDefaults(kind Kind) Hyperparams {
	switch kind {
	case KindGradientBoost:
		if h.NEstimators == 0 {
			h.NEstimators = 100
		}
		if h.MaxDepth == 0 {
			h.MaxDepth = 5
		}
		if h.LearningRate == 0 {
			h.LearningRate = 0.1
		}
		if h.MinSamplesSplit == 0 {
			h.MinSamplesSplit = 20
		}
		if h.MinSamplesLeaf == 0 {
			h.MinSamplesLeaf = 10
		}
		if h.Subsample == 0 {
			h.Subsample = 0.8
		}
	case KindLogistic:
		if h.MaxIter == 0 {
			h.MaxIter = 1000
		}
		if h.LearningRate == 0 {
			h.LearningRate = 0.1
		}
		if h.L2 == 0 {
			h.L2 = 1e-4
		}
	}
	return h
}

// estimator is the single polymorphic training/scoring contract both
// kinds implement.
type estimator interface {
	fit(X [][]float64, y []float64, seed int64)
	predictProba(x []float64) float64
	featureImportances(nFeatures int) []float64

	// marshalParams / unmarshalParams round-trip the fitted state for
	// the versioned artifact.
	marshalParams() (json.RawMessage, error)
	unmarshalParams(raw json.RawMessage) error
}

// newEstimator constructs an unfitted estimator of the given kind.
func newEstimator(kind Kind, h Hyperparams) (estimator, error) {
	h = h.withDefaults(kind)
	switch kind {
	case KindGradientBoost:
		return newGradientBoost(h), nil
	case KindLogistic:
		return newLogistic(h), nil
	default:
		return nil, errors.Newf(errors.ErrCodeModelKindUnknown, "unknown model kind %q", kind)
	}
}
