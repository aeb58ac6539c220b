package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

func TestRandomForest_FitPredict(t *testing.T) {
	X, y := twoClusterData()

	rf := NewRandomForestClassifier(
		WithNEstimators(25),
		WithRandomState(42),
	)
	require.NoError(t, rf.Fit(X, y))
	require.True(t, rf.IsFitted())

	pred, err := rf.Predict(X)
	require.NoError(t, err)

	// Prediction count equals row count, order preserved.
	require.Equal(t, y.Len(), pred.Len())
	for i := 0; i < y.Len(); i++ {
		assert.Equal(t, y.AtVec(i), pred.AtVec(i), "row %d", i)
	}

	score, err := rf.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestRandomForest_OOBError(t *testing.T) {
	X, y := twoClusterData()

	rf := NewRandomForestClassifier(WithNEstimators(50), WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	oob, err := rf.OOBError()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, oob, 0.0)
	assert.LessOrEqual(t, oob, 1.0)
	// Two well-separated clusters: out-of-bag trees should rarely miss.
	assert.Less(t, oob, 0.2)
}

func TestRandomForest_NoOOBWithoutBootstrap(t *testing.T) {
	X, y := twoClusterData()

	rf := NewRandomForestClassifier(
		WithNEstimators(10),
		WithBootstrap(false),
		WithRandomState(1),
	)
	require.NoError(t, rf.Fit(X, y))

	_, err := rf.OOBError()
	assert.Error(t, err, "no out-of-bag estimate exists without bootstrap sampling")
}

func TestRandomForest_Reproducible(t *testing.T) {
	X, y := twoClusterData()
	probe := mat.NewDense(3, 2, []float64{
		0.2, 0.1,
		5.1, 4.9,
		2.5, 2.5,
	})

	predict := func(seed int64) *mat.VecDense {
		rf := NewRandomForestClassifier(WithNEstimators(20), WithRandomState(seed))
		require.NoError(t, rf.Fit(X, y))
		pred, err := rf.Predict(probe)
		require.NoError(t, err)
		return pred
	}

	first := predict(99)
	second := predict(99)
	for i := 0; i < first.Len(); i++ {
		assert.Equal(t, first.AtVec(i), second.AtVec(i), "same seed must reproduce predictions")
	}
}

func TestRandomForest_SingleClassTarget(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewVecDense(4, []float64{0, 0, 0, 0})

	rf := NewRandomForestClassifier(WithNEstimators(5))
	err := rf.Fit(X, y)
	require.Error(t, err)

	var fitErr *liftqcErrors.FitError
	require.True(t, liftqcErrors.As(err, &fitErr), "expected *FitError, got %T", err)
}

func TestRandomForest_EmptyInput(t *testing.T) {
	rf := NewRandomForestClassifier()
	err := rf.Fit(mat.NewDense(1, 1, nil), mat.NewVecDense(1, nil))
	// 1x1 with a single class is degenerate as well; zero-row input cannot
	// even be constructed as a Dense, so the single-class path covers it.
	assert.Error(t, err)
}

func TestRandomForest_SchemaMismatch(t *testing.T) {
	X, y := twoClusterData()

	rf := NewRandomForestClassifier(WithNEstimators(10), WithRandomState(3))
	require.NoError(t, rf.Fit(X, y))

	// One predictor short of the training schema.
	_, err := rf.Predict(mat.NewDense(2, 1, []float64{0.1, 5.0}))
	require.Error(t, err)

	var dimErr *liftqcErrors.DimensionError
	require.True(t, liftqcErrors.As(err, &dimErr), "expected *DimensionError, got %T", err)
	assert.Equal(t, 2, dimErr.Expected)
	assert.Equal(t, 1, dimErr.Got)
}

func TestRandomForest_NotFitted(t *testing.T) {
	rf := NewRandomForestClassifier()

	_, err := rf.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	require.Error(t, err)

	var notFitted *liftqcErrors.NotFittedError
	require.True(t, liftqcErrors.As(err, &notFitted))
}

func TestRandomForest_Params(t *testing.T) {
	rf := NewRandomForestClassifier(
		WithNEstimators(500),
		WithMaxFeatures(27),
		WithRandomState(1813),
	)

	params := rf.Params()
	assert.Equal(t, 500, params["n_estimators"])
	assert.Equal(t, 27, params["max_features"])
	assert.Equal(t, int64(1813), params["random_state"])
}
