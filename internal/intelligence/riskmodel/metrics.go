package riskmodel

import (
	"math"
	"math/rand"
	"sort"
)

// rankAUC computes the area under the ROC curve via the rank statistic,
// averaging ranks across tied scores. Returns 0.5 when only one class is
// present (no ranking is possible).
func rankAUC(scores, labels []float64) float64 {
	n := len(scores)
	pos, neg := 0.0, 0.0
	for _, l := range labels {
		if l > 0.5 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	// Assign average ranks to tied groups.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[order[j]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	posRankSum := 0.0
	for i, l := range labels {
		if l > 0.5 {
			posRankSum += ranks[i]
		}
	}
	return (posRankSum - pos*(pos+1)/2) / (pos * neg)
}

// accuracy scores probability predictions against binary labels at the
// 0.5 threshold.
func accuracy(probs, labels []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	correct := 0
	for i, p := range probs {
		pred := 0.0
		if p >= 0.5 {
			pred = 1
		}
		if (pred > 0.5) == (labels[i] > 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(probs))
}

// stratifiedFolds partitions sample indices into k folds preserving the
// class balance, shuffling within each class with the given seed.
func stratifiedFolds(labels []float64, k int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))

	var pos, neg []int
	for i, l := range labels {
		if l > 0.5 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	rng.Shuffle(len(pos), func(a, b int) { pos[a], pos[b] = pos[b], pos[a] })
	rng.Shuffle(len(neg), func(a, b int) { neg[a], neg[b] = neg[b], neg[a] })

	folds := make([][]int, k)
	for i, idx := range pos {
		folds[i%k] = append(folds[i%k], idx)
	}
	for i, idx := range neg {
		folds[i%k] = append(folds[i%k], idx)
	}
	return folds
}

// crossValidateAUC runs stratified k-fold cross-validation on the scaled
// training matrix, fitting a fresh estimator per fold, and returns the
// mean and standard deviation of the per-fold rank-AUC.
func crossValidateAUC(kind Kind, hyper Hyperparams, X [][]float64, y []float64, folds int, seed int64) (mean, std float64) {
	if folds < 2 || len(X) < folds {
		return 0.5, 0
	}
	partition := stratifiedFolds(y, folds, seed)
	aucs := make([]float64, 0, folds)

	for f := 0; f < folds; f++ {
		holdout := partition[f]
		if len(holdout) == 0 {
			continue
		}
		inHoldout := make(map[int]bool, len(holdout))
		for _, i := range holdout {
			inHoldout[i] = true
		}

		var trainX [][]float64
		var trainY []float64
		for i := range X {
			if !inHoldout[i] {
				trainX = append(trainX, X[i])
				trainY = append(trainY, y[i])
			}
		}

		est, err := newEstimator(kind, hyper)
		if err != nil {
			continue
		}
		est.fit(trainX, trainY, seed+int64(f))

		scores := make([]float64, len(holdout))
		labels := make([]float64, len(holdout))
		for i, idx := range holdout {
			scores[i] = est.predictProba(X[idx])
			labels[i] = y[idx]
		}
		aucs = append(aucs, rankAUC(scores, labels))
	}

	if len(aucs) == 0 {
		return 0.5, 0
	}
	for _, a := range aucs {
		mean += a
	}
	mean /= float64(len(aucs))
	for _, a := range aucs {
		std += (a - mean) * (a - mean)
	}
	std = math.Sqrt(std / float64(len(aucs)))
	return mean, std
}
