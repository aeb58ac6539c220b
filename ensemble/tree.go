// Package ensemble implements the decision-tree and random-forest
// classifiers used by the report. Labels are class indices produced by
// preprocessing.LabelEncoder; decoding back to label strings happens at the
// caller.
package ensemble

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/liftqc/core/model"
	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

// treeNode is a node in a fitted decision tree.
type treeNode struct {
	isLeaf       bool
	feature      int       // split feature (internal nodes)
	threshold    float64   // split threshold (internal nodes)
	left         *treeNode // values <= threshold
	right        *treeNode // values > threshold
	classCounts  []int     // class counts at this node
	predictClass int       // majority class index
	impurity     float64
	nSamples     int
	depth        int
}

// DecisionTreeClassifier is a CART-style classification tree. When
// maxFeatures is positive, each split considers only that many randomly
// sampled features, which is what makes the forest's trees decorrelated.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	maxDepth        int    // 0 = unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int   // features sampled per split; 0 = all
	randomState     int64 // seed for the per-split feature sampling

	// Fitted state
	tree_      *treeNode
	classes_   []int // class labels, sorted
	nClasses_  int
	nFeatures_ int
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier.
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a decision tree classifier with gini
// splitting and no growth limits.
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithTreeCriterion sets the splitting criterion ("gini" or "entropy").
func WithTreeCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithTreeMaxDepth sets the maximum tree depth (0 = unlimited).
func WithTreeMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithTreeMinSamplesSplit sets the minimum samples required to split a node.
func WithTreeMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithTreeMinSamplesLeaf sets the minimum samples required in a leaf.
func WithTreeMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithTreeMaxFeatures sets the number of features sampled per split (mtry).
func WithTreeMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = n }
}

// WithTreeRandomState sets the seed for per-split feature sampling.
func WithTreeRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

// Fit trains the tree on X and the class labels in y.
func (dt *DecisionTreeClassifier) Fit(X mat.Matrix, y *mat.VecDense) (err error) {
	defer liftqcErrors.Recover(&err, "DecisionTreeClassifier.Fit")

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return liftqcErrors.NewFitError("DecisionTreeClassifier.Fit", "empty training data")
	}
	if y.Len() != nSamples {
		return liftqcErrors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, y.Len(), 0)
	}

	classSet := make(map[int]bool)
	for i := 0; i < nSamples; i++ {
		classSet[int(y.AtVec(i))] = true
	}
	classes := make([]int, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	classToIdx := make(map[int]int, len(classes))
	for i, c := range classes {
		classToIdx[c] = i
	}
	yIdx := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		yIdx[i] = classToIdx[int(y.AtVec(i))]
	}

	sampleIdx := make([]int, nSamples)
	for i := range sampleIdx {
		sampleIdx[i] = i
	}

	dt.classes_ = classes
	return dt.fitIndices(X, yIdx, sampleIdx, len(classes))
}

// fitIndices trains the tree on the rows listed in sampleIdx, with y already
// converted to class indices in [0, nClasses). The forest calls this directly
// with bootstrap samples so no data is copied per tree.
func (dt *DecisionTreeClassifier) fitIndices(X mat.Matrix, yIdx []int, sampleIdx []int, nClasses int) error {
	_, nFeatures := X.Dims()

	dt.nClasses_ = nClasses
	dt.nFeatures_ = nFeatures
	if dt.classes_ == nil {
		dt.classes_ = make([]int, nClasses)
		for i := range dt.classes_ {
			dt.classes_[i] = i
		}
	}

	rng := rand.New(rand.NewSource(dt.randomState))
	dt.tree_ = dt.buildNode(X, yIdx, sampleIdx, 0, rng)

	dt.state.SetDimensions(nFeatures, len(sampleIdx))
	dt.state.SetFitted()
	return nil
}

// buildNode recursively grows the tree over the rows in idx.
func (dt *DecisionTreeClassifier) buildNode(X mat.Matrix, yIdx []int, idx []int, depth int, rng *rand.Rand) *treeNode {
	classCounts := make([]int, dt.nClasses_)
	for _, i := range idx {
		classCounts[yIdx[i]]++
	}

	predictClass := 0
	maxCount := 0
	for c, count := range classCounts {
		if count > maxCount {
			maxCount = count
			predictClass = c
		}
	}

	node := &treeNode{
		classCounts:  classCounts,
		predictClass: predictClass,
		impurity:     dt.impurity(classCounts, len(idx)),
		nSamples:     len(idx),
		depth:        depth,
	}

	if dt.shouldStop(len(idx), node.impurity, depth) {
		node.isLeaf = true
		return node
	}

	feature, threshold, ok := dt.findBestSplit(X, yIdx, idx, node.impurity, rng)
	if !ok {
		node.isLeaf = true
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X.At(i, feature) <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < dt.minSamplesLeaf || len(rightIdx) < dt.minSamplesLeaf {
		node.isLeaf = true
		return node
	}

	node.feature = feature
	node.threshold = threshold
	node.left = dt.buildNode(X, yIdx, leftIdx, depth+1, rng)
	node.right = dt.buildNode(X, yIdx, rightIdx, depth+1, rng)
	return node
}

func (dt *DecisionTreeClassifier) shouldStop(nSamples int, impurity float64, depth int) bool {
	if dt.maxDepth > 0 && depth >= dt.maxDepth {
		return true
	}
	if nSamples < dt.minSamplesSplit {
		return true
	}
	return impurity == 0.0
}

// impurity computes gini or entropy from class counts over total samples.
func (dt *DecisionTreeClassifier) impurity(classCounts []int, total int) float64 {
	if total == 0 {
		return 0.0
	}

	if dt.criterion == "entropy" {
		entropy := 0.0
		for _, count := range classCounts {
			if count > 0 {
				p := float64(count) / float64(total)
				entropy -= p * math.Log2(p)
			}
		}
		return entropy
	}

	// gini
	sumSquared := 0.0
	for _, count := range classCounts {
		if count > 0 {
			p := float64(count) / float64(total)
			sumSquared += p * p
		}
	}
	return 1.0 - sumSquared
}

// findBestSplit scans candidate features for the threshold with the largest
// impurity decrease. When maxFeatures is positive and smaller than the
// feature count, a random subset of that size is scanned instead of all
// features. The sweep over thresholds keeps running left/right class counts,
// one pass per feature over the sorted rows.
func (dt *DecisionTreeClassifier) findBestSplit(X mat.Matrix, yIdx []int, idx []int, parentImpurity float64, rng *rand.Rand) (int, float64, bool) {
	_, nFeatures := X.Dims()
	n := len(idx)

	features := rng.Perm(nFeatures)
	if dt.maxFeatures > 0 && dt.maxFeatures < nFeatures {
		features = features[:dt.maxFeatures]
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestDecrease := 0.0

	sorted := make([]int, n)
	leftCounts := make([]int, dt.nClasses_)
	rightCounts := make([]int, dt.nClasses_)

	for _, feature := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return X.At(sorted[a], feature) < X.At(sorted[b], feature)
		})

		for c := range leftCounts {
			leftCounts[c] = 0
			rightCounts[c] = 0
		}
		for _, i := range sorted {
			rightCounts[yIdx[i]]++
		}

		// Move rows from right to left one at a time; a split is evaluated
		// between every pair of distinct adjacent values.
		for pos := 0; pos < n-1; pos++ {
			row := sorted[pos]
			leftCounts[yIdx[row]]++
			rightCounts[yIdx[row]]--

			v, next := X.At(row, feature), X.At(sorted[pos+1], feature)
			if v == next {
				continue
			}

			nLeft, nRight := pos+1, n-pos-1
			if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
				continue
			}

			weighted := (float64(nLeft)*dt.impurity(leftCounts, nLeft) +
				float64(nRight)*dt.impurity(rightCounts, nRight)) / float64(n)
			decrease := parentImpurity - weighted

			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = (v + next) / 2.0
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature != -1
}

// Predict returns the predicted class label for each row of X.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "Predict"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.nFeatures_ {
		return nil, liftqcErrors.NewDimensionError("DecisionTreeClassifier.Predict", dt.nFeatures_, nFeatures, 1)
	}

	out := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		out.SetVec(i, float64(dt.classes_[dt.predictRowIndex(X, i)]))
	}
	return out, nil
}

// predictRowIndex traverses the tree for row i and returns the class index.
func (dt *DecisionTreeClassifier) predictRowIndex(X mat.Matrix, i int) int {
	node := dt.tree_
	for !node.isLeaf {
		if X.At(i, node.feature) <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.predictClass
}

// IsFitted returns whether the tree has been fitted.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// Depth returns the maximum depth of the fitted tree.
func (dt *DecisionTreeClassifier) Depth() int {
	return maxDepth(dt.tree_)
}

func maxDepth(node *treeNode) int {
	if node == nil {
		return 0
	}
	if node.isLeaf {
		return node.depth
	}
	left, right := maxDepth(node.left), maxDepth(node.right)
	if left > right {
		return left
	}
	return right
}
