package dataset

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/liftqc/pkg/errors"
)

// Align restricts and reorders the scoring table to exactly the predictor
// columns of the cleaned training table (training columns minus the target).
// Scoring-only columns are dropped. A predictor missing from the scoring
// table, or present with an incompatible type, is a SchemaMismatchError.
// Int and float columns are considered compatible; text and numeric are not.
func Align(scoring, training dataframe.DataFrame, target string) (dataframe.DataFrame, error) {
	const op = "dataset.Align"

	var predictors []string
	for _, name := range training.Names() {
		if name != target {
			predictors = append(predictors, name)
		}
	}
	if len(predictors) == 0 {
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrEmptyData, op)
	}

	scoringTypes := make(map[string]series.Type, scoring.Ncol())
	for _, name := range scoring.Names() {
		scoringTypes[name] = scoring.Col(name).Type()
	}

	var missing []string
	for _, name := range predictors {
		if _, ok := scoringTypes[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return dataframe.DataFrame{}, errors.NewSchemaMismatchError(op, missing, "", "")
	}

	for _, name := range predictors {
		trainNumeric := isNumeric(training.Col(name).Type())
		scoreNumeric := isNumeric(scoringTypes[name])
		if trainNumeric != scoreNumeric {
			reason := "training column is numeric, scoring column is text"
			if !trainNumeric {
				reason = "training column is text, scoring column is numeric"
			}
			return dataframe.DataFrame{}, errors.NewSchemaMismatchError(op, nil, name, reason)
		}
	}

	aligned := scoring.Select(predictors)
	if aligned.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(aligned.Err, op)
	}
	return aligned, nil
}

func isNumeric(t series.Type) bool {
	return t == series.Int || t == series.Float
}

// Matrix converts the dataframe's columns, minus any excluded names, into a
// dense row-major matrix in column order, returning the ordered predictor
// names alongside. Text columns and residual NaN values among the predictors
// are errors: after cleaning, every predictor must be fully numeric.
func Matrix(df dataframe.DataFrame, exclude ...string) (*mat.Dense, []string, error) {
	const op = "dataset.Matrix"

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	var names []string
	for _, name := range df.Names() {
		if !excluded[name] {
			names = append(names, name)
		}
	}

	nRows := df.Nrow()
	if nRows == 0 || len(names) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, op)
	}

	out := mat.NewDense(nRows, len(names), nil)
	for j, name := range names {
		col := df.Col(name)
		if col.Type() == series.String {
			return nil, nil, errors.NewValueError(op, "column "+name+" is not numeric")
		}
		for i, v := range col.Float() {
			if math.IsNaN(v) {
				return nil, nil, errors.NewValueError(op, "column "+name+" still contains missing values after cleaning")
			}
			out.Set(i, j, v)
		}
	}

	return out, names, nil
}

// TargetLabels extracts the target column as a string slice in row order.
func TargetLabels(df dataframe.DataFrame, target string) ([]string, error) {
	for _, name := range df.Names() {
		if name == target {
			return df.Col(target).Records(), nil
		}
	}
	return nil, errors.NewValueError("dataset.TargetLabels", "target column "+target+" not present in table")
}
