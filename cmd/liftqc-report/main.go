// Command liftqc-report runs the weight-lifting exercise quality analysis
// end to end: fetch the accelerometer tables, clean them, render the
// exploratory figures, cross-validate the forest's mtry, refit on the full
// training table and predict the 20 held-out cases.
//
// The pipeline is strictly sequential and runs exactly once. There are no
// flags and no environment variables; inputs and outputs are fixed.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/liftlab/liftqc/dataset"
	"github.com/liftlab/liftqc/ensemble"
	"github.com/liftlab/liftqc/explore"
	"github.com/liftlab/liftqc/modelsel"
	"github.com/liftlab/liftqc/pkg/log"
	"github.com/liftlab/liftqc/preprocessing"
)

const (
	trainingURL = "https://d396qusza40orc.cloudfront.net/predmachlearn/pml-training.csv"
	scoringURL  = "https://d396qusza40orc.cloudfront.net/predmachlearn/pml-testing.csv"

	targetColumn = "classe"
	figureDir    = "figures"

	// seed makes every stochastic step of the run reproducible. It is
	// threaded explicitly into the splitter and the forests.
	seed   = 1813
	nTrees = 500
)

func main() {
	logger := log.New("liftqc-report")
	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("report failed")
	}
}

func run(logger zerolog.Logger) error {
	ctx := context.Background()
	start := time.Now()

	// Loader
	logger.Info().Str("url", trainingURL).Msg("fetching training table")
	training, err := dataset.FetchCSV(ctx, trainingURL)
	if err != nil {
		return err
	}
	logger.Info().Int("rows", training.Nrow()).Int("cols", training.Ncol()).Msg("training table loaded")

	logger.Info().Str("url", scoringURL).Msg("fetching scoring table")
	scoring, err := dataset.FetchCSV(ctx, scoringURL)
	if err != nil {
		return err
	}
	logger.Info().Int("rows", scoring.Nrow()).Int("cols", scoring.Ncol()).Msg("scoring table loaded")

	// Cleaner
	scoringCfg := dataset.DefaultCleanConfig()
	trainingCfg := dataset.DefaultCleanConfig()
	trainingCfg.Target = targetColumn

	cleanTraining, err := dataset.Clean(training, trainingCfg)
	if err != nil {
		return err
	}
	cleanScoring, err := dataset.Clean(scoring, scoringCfg)
	if err != nil {
		return err
	}
	aligned, err := dataset.Align(cleanScoring, cleanTraining, targetColumn)
	if err != nil {
		return err
	}
	logger.Info().
		Int("training_cols", cleanTraining.Ncol()).
		Int("scoring_cols", aligned.Ncol()).
		Msg("tables cleaned and aligned")

	// Explorer (side branch; its output feeds nothing downstream)
	if err := os.MkdirAll(figureDir, 0o755); err != nil {
		return err
	}
	labels, err := dataset.TargetLabels(cleanTraining, targetColumn)
	if err != nil {
		return err
	}
	if err := explore.ClassCountBar(labels, "Exercise quality class counts", filepath.Join(figureDir, "class_counts.png")); err != nil {
		return err
	}
	beltFigures, err := explore.HistogramGrid(cleanTraining, explore.NameContains("_belt"), targetColumn, figureDir)
	if err != nil {
		return err
	}
	logger.Info().Int("figures", len(beltFigures)+1).Str("dir", figureDir).Msg("exploratory figures rendered")

	// Trainer
	encoder := preprocessing.NewLabelEncoder()
	y, err := encoder.FitTransform(labels)
	if err != nil {
		return err
	}
	X, predictors, err := dataset.Matrix(cleanTraining, targetColumn)
	if err != nil {
		return err
	}
	logger.Info().Int("predictors", len(predictors)).Int("classes", encoder.NClasses()).Msg("training matrix assembled")

	cvCfg := modelsel.DefaultConfig()
	cvCfg.Seed = seed
	cvCfg.NEstimators = nTrees

	logger.Info().Ints("candidates", cvCfg.Candidates).Int("folds", cvCfg.Folds).Msg("cross-validating mtry")
	cv, err := modelsel.TuneMtry(cvCfg, X, y)
	if err != nil {
		return err
	}
	printSweep(cv)
	logger.Info().Int("best_mtry", cv.BestMtry).Str("tie_break", cv.TieBreak.String()).Msg("mtry selected")

	forest := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(nTrees),
		ensemble.WithMaxFeatures(cv.BestMtry),
		ensemble.WithRandomState(seed),
	)
	if err := forest.Fit(X, y); err != nil {
		return err
	}
	oob, err := forest.OOBError()
	if err != nil {
		return err
	}
	logger.Info().Int("trees", forest.NEstimators()).Float64("oob_error", oob).Msg("final forest fitted")

	// Predictor
	scoringX, _, err := dataset.Matrix(aligned)
	if err != nil {
		return err
	}
	predIndices, err := forest.Predict(scoringX)
	if err != nil {
		return err
	}
	predictions, err := encoder.InverseTransform(predIndices)
	if err != nil {
		return err
	}
	printPredictions(predictions)

	if err := explore.PredictionBar(predictions, filepath.Join(figureDir, "predictions.png")); err != nil {
		return err
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("report complete")
	return nil
}

// printSweep writes the fold-level and aggregated cross-validation table.
func printSweep(cv *modelsel.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "mtry\tfold\taccuracy\tkappa")
	for _, s := range cv.FoldScores {
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%.4f\n", s.Mtry, s.Fold, s.Accuracy, s.Kappa)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "mtry\tmean accuracy\tsd accuracy\tmean kappa")
	for _, s := range cv.Summaries {
		marker := ""
		if s.Mtry == cv.BestMtry {
			marker = "  <- selected"
		}
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f%s\n", s.Mtry, s.MeanAccuracy, s.StdAccuracy, s.MeanKappa, marker)
	}
	if len(cv.TiedCandidates) > 1 {
		fmt.Fprintf(w, "tie between %v resolved by %q policy\n", cv.TiedCandidates, cv.TieBreak)
	}
	_ = w.Flush()
	fmt.Println()
}

// printPredictions writes the predicted label for each scoring row, in row order.
func printPredictions(predictions []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "case\tpredicted quality")
	for i, label := range predictions {
		fmt.Fprintf(w, "%d\t%s\n", i+1, label)
	}
	_ = w.Flush()
}
