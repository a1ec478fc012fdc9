package riskmodel

import (
	"encoding/json"
	"math"
)

// logisticModel is an L2-regularized logistic regression fit by full-batch
// gradient descent. Deterministic: the loss surface is convex and the
// optimizer uses no randomness, so the seed is ignored.
type logisticModel struct {
	hyper   Hyperparams
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func newLogistic(h Hyperparams) *logisticModel {
	return &logisticModel{hyper: h}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	// Numerically stable branch for large negative z.
	e := math.Exp(z)
	return e / (1 + e)
}

func (m *logisticModel) fit(X [][]float64, y []float64, _ int64) {
	n := len(X)
	if n == 0 {
		return
	}
	width := len(X[0])
	m.Weights = make([]float64, width)
	m.Bias = 0

	lr := m.hyper.LearningRate
	grad := make([]float64, width)

	for iter := 0; iter < m.hyper.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0

		for i, row := range X {
			err := sigmoid(m.decision(row)) - y[i]
			for j, v := range row {
				grad[j] += err * v
			}
			gradBias += err
		}

		scale := lr / float64(n)
		for j := range m.Weights {
			m.Weights[j] -= scale*grad[j] + lr*m.hyper.L2*m.Weights[j]
		}
		m.Bias -= scale * gradBias
	}
}

func (m *logisticModel) decision(x []float64) float64 {
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * v
	}
	return z
}

func (m *logisticModel) predictProba(x []float64) float64 {
	return sigmoid(m.decision(x))
}

// featureImportances reports normalized absolute weights. On standardized
// inputs these are directly comparable across features.
func (m *logisticModel) featureImportances(nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	total := 0.0
	for j := 0; j < nFeatures && j < len(m.Weights); j++ {
		out[j] = math.Abs(m.Weights[j])
		total += out[j]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

func (m *logisticModel) marshalParams() (json.RawMessage, error) {
	return json.Marshal(m)
}

func (m *logisticModel) unmarshalParams(raw json.RawMessage) error {
	return json.Unmarshal(raw, m)
}
