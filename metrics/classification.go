// Package metrics implements the classification metrics reported by the
// cross-validation sweep: accuracy, error rate, the confusion matrix and
// Cohen's kappa agreement statistic.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

// ErrorRate calculates the fraction of incorrect predictions.
//
// Parameters:
//   - yTrue: Ground truth class indices
//   - yPred: Predicted class indices
//
// Returns:
//   - The error rate (between 0 and 1)
//   - An error if inputs are invalid
func ErrorRate(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := validatePair("ErrorRate", yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	wrong := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}

// Accuracy calculates the fraction of correct predictions.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	errorRate, err := ErrorRate(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}

// ConfusionMatrix builds the nClasses x nClasses count matrix where entry
// (i, j) is the number of samples with true class i predicted as class j.
// Class indices must lie in [0, nClasses).
func ConfusionMatrix(yTrue, yPred *mat.VecDense, nClasses int) ([][]int, error) {
	if err := validatePair("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, err
	}
	if nClasses < 2 {
		return nil, liftqcErrors.NewValidationError("nClasses", "must be at least 2", nClasses)
	}

	cm := make([][]int, nClasses)
	for i := range cm {
		cm[i] = make([]int, nClasses)
	}

	n := yTrue.Len()
	for i := 0; i < n; i++ {
		t := int(yTrue.AtVec(i))
		p := int(yPred.AtVec(i))
		if t < 0 || t >= nClasses || p < 0 || p >= nClasses {
			return nil, liftqcErrors.NewValueError("ConfusionMatrix",
				fmt.Sprintf("class index out of range at row %d: true=%d pred=%d", i, t, p))
		}
		cm[t][p]++
	}
	return cm, nil
}

// CohenKappa calculates Cohen's kappa, the chance-corrected agreement between
// true and predicted labels:
//
//	kappa = (p_o - p_e) / (1 - p_e)
//
// where p_o is the observed accuracy and p_e the agreement expected from the
// marginal class frequencies. When p_e is 1 (both raters constant and equal),
// kappa is defined as 1 for perfect agreement and 0 otherwise.
func CohenKappa(yTrue, yPred *mat.VecDense, nClasses int) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred, nClasses)
	if err != nil {
		return 0, err
	}

	n := float64(yTrue.Len())
	observed := 0.0
	rowSums := make([]float64, nClasses)
	colSums := make([]float64, nClasses)
	for i := 0; i < nClasses; i++ {
		observed += float64(cm[i][i])
		for j := 0; j < nClasses; j++ {
			rowSums[i] += float64(cm[i][j])
			colSums[j] += float64(cm[i][j])
		}
	}
	pObserved := observed / n

	pExpected := 0.0
	for i := 0; i < nClasses; i++ {
		pExpected += (rowSums[i] / n) * (colSums[i] / n)
	}

	if pExpected == 1.0 {
		if pObserved == 1.0 {
			return 1.0, nil
		}
		return 0.0, nil
	}

	return (pObserved - pExpected) / (1.0 - pExpected), nil
}

func validatePair(op string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil {
		return liftqcErrors.NewValueError(op, "input vectors cannot be nil")
	}
	if yTrue.Len() == 0 {
		return liftqcErrors.NewValueError(op, "input vectors cannot be empty")
	}
	if yTrue.Len() != yPred.Len() {
		return liftqcErrors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return nil
}
