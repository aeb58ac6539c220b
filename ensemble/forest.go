package ensemble

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/liftqc/core/model"
	"github.com/liftlab/liftqc/metrics"
	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

// RandomForestClassifier is a bagged ensemble of decision trees. Each tree is
// grown on a bootstrap sample of the rows, considering maxFeatures (mtry)
// randomly sampled features per split, and prediction is the majority vote
// across trees. The out-of-bag error is computed during Fit from the rows
// each tree did not see.
//
// Trees are fitted sequentially: the report is a single-pass batch run and
// the forest keeps to that model. Reproducibility comes from the explicit
// RandomState; tree i derives its seed as RandomState + i.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators     int
	maxFeatures     int // mtry; 0 = floor(sqrt(nFeatures))
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	bootstrap       bool
	randomState     int64

	// Fitted state
	trees      []*DecisionTreeClassifier
	classes_   []int
	nClasses_  int
	nFeatures_ int
	oobError_  float64
	oobValid   bool
}

// RandomForestOption is a functional option for RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a random forest with 500 trees,
// bootstrap sampling and mtry defaulting to sqrt of the feature count.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     500,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
		randomState:     1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithMaxFeatures sets mtry, the number of candidate features considered at
// each split (0 = floor(sqrt(nFeatures))).
func WithMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = n }
}

// WithMaxDepth limits tree depth (0 = unlimited).
func WithMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithBootstrap toggles bootstrap sampling; without it every tree sees all
// rows and no out-of-bag estimate exists.
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.bootstrap = b }
}

// WithRandomState sets the forest seed. The seed is explicit configuration,
// never a process-wide global.
func WithRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// Fit trains the forest on X and the class labels in y. A target with fewer
// than two classes is degenerate and returns a FitError.
func (rf *RandomForestClassifier) Fit(X mat.Matrix, y *mat.VecDense) (err error) {
	defer liftqcErrors.Recover(&err, "RandomForestClassifier.Fit")

	const op = "RandomForestClassifier.Fit"

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return liftqcErrors.NewFitError(op, "empty training data")
	}
	if y.Len() != nSamples {
		return liftqcErrors.NewDimensionError(op, nSamples, y.Len(), 0)
	}
	if rf.nEstimators < 1 {
		return liftqcErrors.NewValidationError("nEstimators", "must be at least 1", rf.nEstimators)
	}

	classSet := make(map[int]bool)
	for i := 0; i < nSamples; i++ {
		classSet[int(y.AtVec(i))] = true
	}
	if len(classSet) < 2 {
		return liftqcErrors.NewFitError(op, "target has a single class")
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

	rf.classes_ = classes
	rf.nClasses_ = len(classes)
	rf.nFeatures_ = nFeatures

	mtry := rf.maxFeatures
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(nFeatures)))
		if mtry < 1 {
			mtry = 1
		}
	}
	if mtry > nFeatures {
		mtry = nFeatures
	}

	oobVotes := make([][]int, nSamples)

	rf.trees = make([]*DecisionTreeClassifier, rf.nEstimators)
	inBag := make([]bool, nSamples)
	sampleIdx := make([]int, nSamples)

	for t := 0; t < rf.nEstimators; t++ {
		treeSeed := rf.randomState + int64(t)
		rng := rand.New(rand.NewSource(treeSeed))

		for i := range inBag {
			inBag[i] = false
		}
		if rf.bootstrap {
			for i := 0; i < nSamples; i++ {
				j := rng.Intn(nSamples)
				sampleIdx[i] = j
				inBag[j] = true
			}
		} else {
			for i := 0; i < nSamples; i++ {
				sampleIdx[i] = i
				inBag[i] = true
			}
		}

		tree := NewDecisionTreeClassifier(
			WithTreeMaxDepth(rf.maxDepth),
			WithTreeMinSamplesSplit(rf.minSamplesSplit),
			WithTreeMinSamplesLeaf(rf.minSamplesLeaf),
			WithTreeMaxFeatures(mtry),
			WithTreeRandomState(treeSeed),
		)
		if err := tree.fitIndices(X, yIdx, sampleIdx, rf.nClasses_); err != nil {
			return liftqcErrors.Wrapf(err, "%s: tree %d", op, t)
		}
		rf.trees[t] = tree

		if rf.bootstrap {
			for i := 0; i < nSamples; i++ {
				if inBag[i] {
					continue
				}
				if oobVotes[i] == nil {
					oobVotes[i] = make([]int, rf.nClasses_)
				}
				oobVotes[i][tree.predictRowIndex(X, i)]++
			}
		}
	}

	rf.oobError_, rf.oobValid = oobErrorFromVotes(oobVotes, yIdx)

	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()
	return nil
}

// oobErrorFromVotes computes the out-of-bag misclassification rate over the
// rows that received at least one out-of-bag vote.
func oobErrorFromVotes(oobVotes [][]int, yIdx []int) (float64, bool) {
	counted, wrong := 0, 0
	for i, votes := range oobVotes {
		if votes == nil {
			continue
		}
		counted++
		if argmax(votes) != yIdx[i] {
			wrong++
		}
	}
	if counted == 0 {
		return 0, false
	}
	return float64(wrong) / float64(counted), true
}

// argmax returns the index of the largest count; ties go to the lowest index.
func argmax(counts []int) int {
	best, bestCount := 0, counts[0]
	for c := 1; c < len(counts); c++ {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// Predict returns the majority-vote class label for each row of X,
// preserving row order. Vote ties resolve to the lowest class index, which
// for encoded labels means the alphabetically first class.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "Predict"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != rf.nFeatures_ {
		return nil, liftqcErrors.NewDimensionError("RandomForestClassifier.Predict", rf.nFeatures_, nFeatures, 1)
	}
	if nSamples == 0 {
		return nil, liftqcErrors.NewValueError("RandomForestClassifier.Predict", "input has no rows")
	}

	out := mat.NewVecDense(nSamples, nil)
	votes := make([]int, rf.nClasses_)
	for i := 0; i < nSamples; i++ {
		for c := range votes {
			votes[c] = 0
		}
		for _, tree := range rf.trees {
			votes[tree.predictRowIndex(X, i)]++
		}
		out.SetVec(i, float64(rf.classes_[argmax(votes)]))
	}
	return out, nil
}

// Score returns the accuracy of the forest on the given data.
func (rf *RandomForestClassifier) Score(X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// OOBError returns the out-of-bag error estimate from the last Fit. It is
// only defined when the forest was fitted with bootstrap sampling.
func (rf *RandomForestClassifier) OOBError() (float64, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "OOBError"); err != nil {
		return 0, err
	}
	if !rf.oobValid {
		return 0, liftqcErrors.NewValueError("RandomForestClassifier.OOBError",
			"no out-of-bag estimate: forest was fitted without bootstrap sampling")
	}
	return rf.oobError_, nil
}

// NEstimators returns the number of trees in the forest.
func (rf *RandomForestClassifier) NEstimators() int {
	return rf.nEstimators
}

// IsFitted returns whether the forest has been fitted.
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

// Params returns the forest hyperparameters.
func (rf *RandomForestClassifier) Params() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"max_features":      rf.maxFeatures,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
	}
}

// String describes the forest configuration.
func (rf *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, max_features=%d, random_state=%d)",
		rf.nEstimators, rf.maxFeatures, rf.randomState)
}
