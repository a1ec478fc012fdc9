package riskmodel

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"
)

// gradientBoostModel is a gradient-boosted ensemble of regression trees on
// the logistic loss: each stage fits a depth-limited CART tree to the
// residuals of the running log-odds estimate, with leaf values set by a
// single Newton step. Subsampling per stage is driven by the training
// seed, so identical inputs and seed reproduce the ensemble exactly.
type gradientBoostModel struct {
	hyper Hyperparams

	InitialLogOdds float64     `json:"initial_log_odds"`
	Trees          []boostTree `json:"trees"`

	gains []float64
}

// boostTree is one fitted regression tree, nodes stored in a flat slice.
// Leaf nodes have Feature == -1.
type boostTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func newGradientBoost(h Hyperparams) *gradientBoostModel {
	return &gradientBoostModel{hyper: h}
}

func (m *gradientBoostModel) fit(X [][]float64, y []float64, seed int64) {
	n := len(X)
	if n == 0 {
		return
	}
	nFeatures := len(X[0])
	m.gains = make([]float64, nFeatures)
	m.Trees = m.Trees[:0]

	// Base prediction: log-odds of the positive rate, clamped away from
	// the degenerate single-class case.
	pos := 0.0
	for _, v := range y {
		pos += v
	}
	p := clampProb(pos / float64(n))
	m.InitialLogOdds = math.Log(p / (1 - p))

	rng := rand.New(rand.NewSource(seed))

	// Running log-odds per sample.
	f := make([]float64, n)
	for i := range f {
		f[i] = m.InitialLogOdds
	}

	residual := make([]float64, n)
	hessian := make([]float64, n)

	for stage := 0; stage < m.hyper.NEstimators; stage++ {
		for i := range X {
			pi := sigmoid(f[i])
			residual[i] = y[i] - pi
			hessian[i] = pi * (1 - pi)
		}

		idx := m.subsampleIndices(n, rng)
		tree := m.buildTree(X, residual, hessian, idx)
		m.Trees = append(m.Trees, tree)

		for i, row := range X {
			f[i] += m.hyper.LearningRate * tree.predict(row)
		}
	}
}

// subsampleIndices draws a without-replacement sample of
// ceil(subsample*n) row indices for one boosting stage.
func (m *gradientBoostModel) subsampleIndices(n int, rng *rand.Rand) []int {
	k := int(math.Ceil(m.hyper.Subsample * float64(n)))
	if k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	perm := rng.Perm(n)
	idx := perm[:k]
	sort.Ints(idx)
	return idx
}

// buildTree grows one regression tree on the residuals, breadth-first via
// recursion, respecting max depth and the minimum split/leaf sizes.
func (m *gradientBoostModel) buildTree(X [][]float64, residual, hessian []float64, idx []int) boostTree {
	t := &boostTree{}
	m.growNode(t, X, residual, hessian, idx, 0)
	return *t
}

// growNode appends the node for idx to t and returns its index in Nodes.
func (m *gradientBoostModel) growNode(t *boostTree, X [][]float64, residual, hessian []float64, idx []int, depth int) int {
	nodeIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{Feature: -1})

	if depth >= m.hyper.MaxDepth || len(idx) < m.hyper.MinSamplesSplit {
		t.Nodes[nodeIdx].Value = newtonLeafValue(residual, hessian, idx)
		return nodeIdx
	}

	feature, threshold, gain, ok := m.bestSplit(X, residual, idx)
	if !ok {
		t.Nodes[nodeIdx].Value = newtonLeafValue(residual, hessian, idx)
		return nodeIdx
	}
	m.gains[feature] += gain

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	leftIdx := m.growNode(t, X, residual, hessian, left, depth+1)
	rightIdx := m.growNode(t, X, residual, hessian, right, depth+1)

	t.Nodes[nodeIdx].Feature = feature
	t.Nodes[nodeIdx].Threshold = threshold
	t.Nodes[nodeIdx].Left = leftIdx
	t.Nodes[nodeIdx].Right = rightIdx
	return nodeIdx
}

// bestSplit scans every feature for the threshold minimizing the summed
// squared residual error of the two children. Candidate thresholds are
// midpoints between consecutive distinct sorted values. Splits that would
// leave a child below MinSamplesLeaf are skipped.
func (m *gradientBoostModel) bestSplit(X [][]float64, residual []float64, idx []int) (int, float64, float64, bool) {
	nFeatures := len(X[idx[0]])

	total := 0.0
	for _, i := range idx {
		total += residual[i]
	}
	n := float64(len(idx))
	parentScore := total * total / n

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, len(idx))
	for feature := 0; feature < nFeatures; feature++ {
		copy(order, idx)
		f := feature
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		leftSum, leftN := 0.0, 0.0
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftSum += residual[i]
			leftN++

			cur, next := X[i][f], X[order[pos+1]][f]
			if cur == next {
				continue
			}
			rightN := n - leftN
			if int(leftN) < m.hyper.MinSamplesLeaf || int(rightN) < m.hyper.MinSamplesLeaf {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/leftN + rightSum*rightSum/rightN - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

// newtonLeafValue is the single Newton-Raphson step for the logistic
// loss: sum(residual) / sum(p(1-p)) over the leaf's samples.
func newtonLeafValue(residual, hessian []float64, idx []int) float64 {
	num, den := 0.0, 0.0
	for _, i := range idx {
		num += residual[i]
		den += hessian[i]
	}
	if den < 1e-10 {
		return 0
	}
	return num / den
}

func (t *boostTree) predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	node := 0
	for t.Nodes[node].Feature >= 0 {
		if x[t.Nodes[node].Feature] <= t.Nodes[node].Threshold {
			node = t.Nodes[node].Left
		} else {
			node = t.Nodes[node].Right
		}
	}
	return t.Nodes[node].Value
}

func (m *gradientBoostModel) predictProba(x []float64) float64 {
	f := m.InitialLogOdds
	for i := range m.Trees {
		f += m.hyper.LearningRate * m.Trees[i].predict(x)
	}
	return sigmoid(f)
}

// featureImportances reports each feature's share of the accumulated
// split gain across all stages.
func (m *gradientBoostModel) featureImportances(nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	total := 0.0
	for j := 0; j < nFeatures && j < len(m.gains); j++ {
		out[j] = m.gains[j]
		total += out[j]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

func (m *gradientBoostModel) marshalParams() (json.RawMessage, error) {
	return json.Marshal(m)
}

func (m *gradientBoostModel) unmarshalParams(raw json.RawMessage) error {
	return json.Unmarshal(raw, m)
}

func clampProb(p float64) float64 {
	const eps = 1e-6
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
