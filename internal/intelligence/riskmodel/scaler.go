package riskmodel

import "math"

// Scaler standardizes feature columns to zero mean and unit variance.
// Statistics are fit on the training split only and frozen; scoring
// always transforms through the fitted statistics.
type Scaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
	fitted bool
}

// Fit computes per-column mean and standard deviation over rows.
// Columns with zero variance get scale 1 so transformed values collapse
// to zero instead of dividing by zero.
func (s *Scaler) Fit(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	width := len(rows[0])
	s.Means = make([]float64, width)
	s.Scales = make([]float64, width)

	for j := 0; j < width; j++ {
		sum := 0.0
		for _, r := range rows {
			sum += r[j]
		}
		s.Means[j] = sum / float64(len(rows))
	}
	for j := 0; j < width; j++ {
		varSum := 0.0
		for _, r := range rows {
			d := r[j] - s.Means[j]
			varSum += d * d
		}
		sd := math.Sqrt(varSum / float64(len(rows)))
		if sd == 0 {
			sd = 1
		}
		s.Scales[j] = sd
	}
	s.fitted = true
}

// Transform returns standardized copies of rows; inputs are not mutated.
func (s *Scaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.TransformRow(r)
	}
	return out
}

// TransformRow standardizes a single row.
func (s *Scaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Means[j]) / s.Scales[j]
	}
	return out
}

// FitTransform fits on rows and returns their standardized copies.
func (s *Scaler) FitTransform(rows [][]float64) [][]float64 {
	s.Fit(rows)
	return s.Transform(rows)
}

// Fitted reports whether statistics have been computed or restored.
func (s *Scaler) Fitted() bool {
	return s.fitted || (len(s.Means) > 0 && len(s.Means) == len(s.Scales))
}
