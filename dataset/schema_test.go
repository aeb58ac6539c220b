package dataset

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

func trainingTable() dataframe.DataFrame {
	return dataframe.LoadRecords([][]string{
		{"roll_belt", "pitch_arm", "yaw_dumbbell", "classe"},
		{"1.41", "10.1", "-0.02", "Correct"},
		{"1.42", "10.2", "-0.03", "ElbowThrow"},
		{"1.48", "10.3", "-0.01", "HalfLift"},
	})
}

func TestAlign_MatchesTrainingPredictors(t *testing.T) {
	training := trainingTable()
	scoring := dataframe.LoadRecords([][]string{
		// Different order plus a scoring-only column.
		{"problem_id", "yaw_dumbbell", "roll_belt", "pitch_arm"},
		{"1", "-0.05", "1.40", "10.9"},
		{"2", "-0.07", "1.39", "11.0"},
	})

	aligned, err := Align(scoring, training, "classe")
	require.NoError(t, err)

	// The aligned column set equals the training columns minus the target,
	// in training order; the scoring-only column is gone.
	assert.Equal(t, []string{"roll_belt", "pitch_arm", "yaw_dumbbell"}, aligned.Names())
	assert.Equal(t, 2, aligned.Nrow())
}

func TestAlign_MissingPredictor(t *testing.T) {
	training := trainingTable()
	scoring := dataframe.LoadRecords([][]string{
		{"roll_belt", "pitch_arm"},
		{"1.40", "10.9"},
	})

	_, err := Align(scoring, training, "classe")
	require.Error(t, err)

	var schemaErr *liftqcErrors.SchemaMismatchError
	require.True(t, liftqcErrors.As(err, &schemaErr), "expected *SchemaMismatchError, got %T", err)
	assert.Equal(t, []string{"yaw_dumbbell"}, schemaErr.Missing)
}

func TestAlign_TypeMismatch(t *testing.T) {
	training := trainingTable()
	scoring := dataframe.LoadRecords([][]string{
		{"roll_belt", "pitch_arm", "yaw_dumbbell"},
		{"1.40", "10.9", "broken"},
		{"1.39", "11.0", "values"},
	})

	_, err := Align(scoring, training, "classe")
	require.Error(t, err)

	var schemaErr *liftqcErrors.SchemaMismatchError
	require.True(t, liftqcErrors.As(err, &schemaErr))
	assert.Equal(t, "yaw_dumbbell", schemaErr.Column)
}

func TestAlign_IntAndFloatAreCompatible(t *testing.T) {
	training := trainingTable()
	scoring := dataframe.LoadRecords([][]string{
		{"roll_belt", "pitch_arm", "yaw_dumbbell"},
		{"1", "10", "-1"}, // detected as int columns
		{"2", "11", "-2"},
	})

	_, err := Align(scoring, training, "classe")
	assert.NoError(t, err)
}

func TestMatrix(t *testing.T) {
	training := trainingTable()

	X, names, err := Matrix(training, "classe")
	require.NoError(t, err)

	assert.Equal(t, []string{"roll_belt", "pitch_arm", "yaw_dumbbell"}, names)

	rows, cols := X.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, 1.41, X.At(0, 0), 1e-9)
	assert.InDelta(t, 10.3, X.At(2, 1), 1e-9)
}

func TestMatrix_RejectsTextColumn(t *testing.T) {
	training := trainingTable()

	_, _, err := Matrix(training) // target not excluded: classe is text
	assert.Error(t, err)
}

func TestMatrix_RejectsResidualNaN(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"roll_belt", "pitch_arm"},
		{"1.41", "NA"},
		{"1.42", "10.2"},
	})

	_, _, err := Matrix(df)
	assert.Error(t, err)
}

func TestTargetLabels(t *testing.T) {
	training := trainingTable()

	labels, err := TargetLabels(training, "classe")
	require.NoError(t, err)
	assert.Equal(t, []string{"Correct", "ElbowThrow", "HalfLift"}, labels)

	_, err = TargetLabels(training, "absent")
	assert.Error(t, err)
}
