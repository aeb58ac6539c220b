package modelsel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/liftlab/liftqc/ensemble"
	"github.com/liftlab/liftqc/metrics"
	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

// TieBreak selects among candidates whose mean cross-validated accuracy is
// exactly equal. The rule is deliberately explicit configuration: the source
// analysis left it to a library default.
type TieBreak int

const (
	// TieBreakFirst picks the first tied candidate in sweep order (default).
	TieBreakFirst TieBreak = iota
	// TieBreakSmallest picks the smallest tied mtry.
	TieBreakSmallest
	// TieBreakLargest picks the largest tied mtry.
	TieBreakLargest
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakSmallest:
		return "smallest"
	case TieBreakLargest:
		return "largest"
	default:
		return "first"
	}
}

// Config controls the mtry sweep.
type Config struct {
	// Folds is the number of cross-validation folds.
	Folds int

	// Candidates are the mtry values to sweep, in order.
	Candidates []int

	// NEstimators is the tree count of each candidate forest.
	NEstimators int

	// Seed drives the fold shuffle and the per-candidate forest seeds.
	Seed int64

	// TieBreak resolves exact mean-accuracy ties between candidates.
	TieBreak TieBreak
}

// DefaultConfig returns the sweep used by the report: 10 folds over the
// candidate set {2, 10, 27, 40} with 500-tree forests.
func DefaultConfig() Config {
	return Config{
		Folds:       10,
		Candidates:  []int{2, 10, 27, 40},
		NEstimators: 500,
		Seed:        1,
		TieBreak:    TieBreakFirst,
	}
}

// FoldScore is the evaluation of one candidate on one fold.
type FoldScore struct {
	Mtry     int
	Fold     int
	Accuracy float64
	Kappa    float64
}

// CandidateSummary aggregates a candidate's fold scores.
type CandidateSummary struct {
	Mtry         int
	MeanAccuracy float64
	StdAccuracy  float64
	MeanKappa    float64
}

// Result is the outcome of a sweep: the full fold-level score table, the
// per-candidate aggregates in sweep order, and the selected mtry.
type Result struct {
	FoldScores []FoldScore
	Summaries  []CandidateSummary
	BestMtry   int

	// TiedCandidates lists every candidate that reached the best mean
	// accuracy; more than one entry means TieBreak decided the winner.
	TiedCandidates []int
	TieBreak       TieBreak
}

// TuneMtry cross-validates each candidate mtry over k folds and selects the
// value with the highest mean accuracy, breaking exact ties with the
// configured policy. X holds the predictors, y the encoded class indices.
func TuneMtry(cfg Config, X mat.Matrix, y *mat.VecDense) (_ *Result, err error) {
	defer liftqcErrors.Recover(&err, "modelsel.TuneMtry")

	const op = "modelsel.TuneMtry"

	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return nil, liftqcErrors.Wrap(liftqcErrors.ErrEmptyData, op)
	}
	if y.Len() != nSamples {
		return nil, liftqcErrors.NewDimensionError(op, nSamples, y.Len(), 0)
	}
	if len(cfg.Candidates) == 0 {
		return nil, liftqcErrors.NewValidationError("Candidates", "must not be empty", cfg.Candidates)
	}
	if cfg.Folds < 2 {
		return nil, liftqcErrors.NewValidationError("Folds", "must be at least 2", cfg.Folds)
	}
	if nSamples < cfg.Folds {
		return nil, liftqcErrors.NewValidationError("Folds", "more folds than samples", cfg.Folds)
	}

	nClasses := 0
	for i := 0; i < nSamples; i++ {
		if c := int(y.AtVec(i)) + 1; c > nClasses {
			nClasses = c
		}
	}

	folds := NewKFold(cfg.Folds, true, cfg.Seed).Split(nSamples)

	result := &Result{TieBreak: cfg.TieBreak}

	for ci, mtry := range cfg.Candidates {
		accuracies := make([]float64, 0, len(folds))
		kappas := make([]float64, 0, len(folds))

		for fi, fold := range folds {
			trainX, trainY := subset(X, y, fold.TrainIndices)
			testX, testY := subset(X, y, fold.TestIndices)

			forest := ensemble.NewRandomForestClassifier(
				ensemble.WithNEstimators(cfg.NEstimators),
				ensemble.WithMaxFeatures(mtry),
				ensemble.WithRandomState(cfg.Seed+int64(ci*len(folds)+fi)),
			)
			if err := forest.Fit(trainX, trainY); err != nil {
				return nil, liftqcErrors.Wrapf(err, "%s: mtry=%d fold=%d", op, mtry, fi)
			}

			pred, err := forest.Predict(testX)
			if err != nil {
				return nil, liftqcErrors.Wrapf(err, "%s: mtry=%d fold=%d", op, mtry, fi)
			}

			accuracy, err := metrics.Accuracy(testY, pred)
			if err != nil {
				return nil, liftqcErrors.Wrapf(err, "%s: mtry=%d fold=%d", op, mtry, fi)
			}
			kappa, err := metrics.CohenKappa(testY, pred, nClasses)
			if err != nil {
				return nil, liftqcErrors.Wrapf(err, "%s: mtry=%d fold=%d", op, mtry, fi)
			}

			accuracies = append(accuracies, accuracy)
			kappas = append(kappas, kappa)
			result.FoldScores = append(result.FoldScores, FoldScore{
				Mtry:     mtry,
				Fold:     fi,
				Accuracy: accuracy,
				Kappa:    kappa,
			})
		}

		result.Summaries = append(result.Summaries, CandidateSummary{
			Mtry:         mtry,
			MeanAccuracy: mean(accuracies),
			StdAccuracy:  std(accuracies),
			MeanKappa:    mean(kappas),
		})
	}

	result.BestMtry, result.TiedCandidates = selectBest(result.Summaries, cfg.TieBreak)
	return result, nil
}

// selectBest returns the winning mtry and every candidate tied at the best
// mean accuracy. Ties are exact float equality: distinct fold results almost
// never tie, and when they do the policy must be the one deciding.
func selectBest(summaries []CandidateSummary, policy TieBreak) (int, []int) {
	best := summaries[0].MeanAccuracy
	for _, s := range summaries[1:] {
		if s.MeanAccuracy > best {
			best = s.MeanAccuracy
		}
	}

	var tied []int
	for _, s := range summaries {
		if s.MeanAccuracy == best {
			tied = append(tied, s.Mtry)
		}
	}

	winner := tied[0]
	switch policy {
	case TieBreakSmallest:
		for _, m := range tied[1:] {
			if m < winner {
				winner = m
			}
		}
	case TieBreakLargest:
		for _, m := range tied[1:] {
			if m > winner {
				winner = m
			}
		}
	}
	return winner, tied
}

// subset copies the given rows of X and y into fresh dense values.
func subset(X mat.Matrix, y *mat.VecDense, idx []int) (*mat.Dense, *mat.VecDense) {
	_, nFeatures := X.Dims()
	outX := mat.NewDense(len(idx), nFeatures, nil)
	outY := mat.NewVecDense(len(idx), nil)
	for i, row := range idx {
		for j := 0; j < nFeatures; j++ {
			outX.Set(i, j, X.At(row, j))
		}
		outY.SetVec(i, y.AtVec(row))
	}
	return outX, outY
}
