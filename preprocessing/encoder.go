// Package preprocessing provides the label encoding step between the cleaned
// tables (string categories) and the estimators (class indices).
package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/liftqc/core/model"
	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

// LabelEncoder maps string class labels to contiguous integer indices and
// back. Classes are sorted during Fit, so the index assignment is
// deterministic for a given label set.
type LabelEncoder struct {
	state *model.StateManager

	// Classes holds the distinct labels seen during Fit, sorted.
	Classes []string

	classToIdx map[string]int
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit learns the class set from the given labels.
func (e *LabelEncoder) Fit(labels []string) (err error) {
	defer liftqcErrors.Recover(&err, "LabelEncoder.Fit")

	if len(labels) == 0 {
		return liftqcErrors.Wrap(liftqcErrors.ErrEmptyData, "LabelEncoder.Fit")
	}

	seen := make(map[string]bool)
	for _, label := range labels {
		seen[label] = true
	}

	e.Classes = make([]string, 0, len(seen))
	for label := range seen {
		e.Classes = append(e.Classes, label)
	}
	sort.Strings(e.Classes)

	e.classToIdx = make(map[string]int, len(e.Classes))
	for i, label := range e.Classes {
		e.classToIdx[label] = i
	}

	e.state.SetFitted()
	return nil
}

// Transform converts labels to their class indices as a column vector.
// A label not seen during Fit is an error.
func (e *LabelEncoder) Transform(labels []string) (*mat.VecDense, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(len(labels), nil)
	for i, label := range labels {
		idx, ok := e.classToIdx[label]
		if !ok {
			return nil, liftqcErrors.NewValueError("LabelEncoder.Transform", "unknown label "+label)
		}
		out.SetVec(i, float64(idx))
	}
	return out, nil
}

// FitTransform fits on labels and transforms them in one step.
func (e *LabelEncoder) FitTransform(labels []string) (*mat.VecDense, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform converts class indices back to labels, preserving order.
// An index outside the fitted class range is an error.
func (e *LabelEncoder) InverseTransform(indices *mat.VecDense) ([]string, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	if indices == nil {
		return nil, liftqcErrors.NewValueError("LabelEncoder.InverseTransform", "indices cannot be nil")
	}

	out := make([]string, indices.Len())
	for i := 0; i < indices.Len(); i++ {
		idx := int(indices.AtVec(i))
		if idx < 0 || idx >= len(e.Classes) {
			return nil, liftqcErrors.NewValueError("LabelEncoder.InverseTransform", "class index out of range")
		}
		out[i] = e.Classes[idx]
	}
	return out, nil
}

// NClasses returns the number of classes learned during Fit.
func (e *LabelEncoder) NClasses() int {
	return len(e.Classes)
}

// IsFitted returns whether the encoder has been fitted.
func (e *LabelEncoder) IsFitted() bool {
	return e.state.IsFitted()
}
