package dataset

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/liftlab/liftqc/pkg/errors"
)

// ClassLabels maps the raw single-letter exercise-quality categories to the
// names used throughout the report. A is the correct execution; the others
// are the four common mistakes.
var ClassLabels = map[string]string{
	"A": "Correct",
	"B": "ElbowThrow",
	"C": "HalfLift",
	"D": "HalfLower",
	"E": "HipThrow",
}

// NonPredictiveColumns are dropped by name: row identifiers, subject names,
// timestamps and the sliding-window bookkeeping carry no signal about
// execution quality.
var NonPredictiveColumns = []string{
	"X",
	"user_name",
	"raw_timestamp_part_1",
	"raw_timestamp_part_2",
	"cvtd_timestamp",
	"new_window",
	"num_window",
}

// CleanConfig controls the cleaning pass.
type CleanConfig struct {
	// MissingThreshold drops a column when its missing-value fraction
	// (NA markers) reaches or exceeds this value.
	MissingThreshold float64

	// EmptyThreshold drops a text column when its empty-string fraction
	// reaches or exceeds this value.
	EmptyThreshold float64

	// DropColumns are removed by name regardless of content.
	DropColumns []string

	// Target names the label column. When set, its values are remapped
	// through TargetLabels; an absent target is then an error.
	Target string

	// TargetLabels is the category relabeling lookup.
	TargetLabels map[string]string
}

// DefaultCleanConfig returns the configuration used by the report: both
// thresholds at 0.5, the identifier/timestamp columns dropped, and the
// five-class relabeling.
func DefaultCleanConfig() CleanConfig {
	return CleanConfig{
		MissingThreshold: 0.5,
		EmptyThreshold:   0.5,
		DropColumns:      NonPredictiveColumns,
		TargetLabels:     ClassLabels,
	}
}

// Clean returns a new dataframe with sparse and non-predictive columns
// removed and, when cfg.Target is set, the target column relabeled. The
// source dataframe is not modified.
//
// A column is retained iff its missing-value fraction is below
// cfg.MissingThreshold, its empty-string fraction (text columns only) is
// below cfg.EmptyThreshold, and its name is not in cfg.DropColumns.
func Clean(df dataframe.DataFrame, cfg CleanConfig) (_ dataframe.DataFrame, err error) {
	defer errors.Recover(&err, "dataset.Clean")

	nRows := df.Nrow()
	if nRows == 0 || df.Ncol() == 0 {
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrEmptyData, "dataset.Clean")
	}
	if cfg.MissingThreshold <= 0 || cfg.MissingThreshold > 1 {
		return dataframe.DataFrame{}, errors.NewValidationError("MissingThreshold", "must be in (0, 1]", cfg.MissingThreshold)
	}
	if cfg.EmptyThreshold <= 0 || cfg.EmptyThreshold > 1 {
		return dataframe.DataFrame{}, errors.NewValidationError("EmptyThreshold", "must be in (0, 1]", cfg.EmptyThreshold)
	}

	dropSet := make(map[string]bool, len(cfg.DropColumns))
	for _, name := range cfg.DropColumns {
		dropSet[name] = true
	}

	var kept []string
	targetSeen := false
	for _, name := range df.Names() {
		if dropSet[name] {
			continue
		}

		col := df.Col(name)
		missing, empty := 0, 0
		for _, rec := range col.Records() {
			switch rec {
			case "NaN", "NA", "#DIV/0!":
				missing++
			case "":
				empty++
			}
		}

		if float64(missing)/float64(nRows) >= cfg.MissingThreshold {
			continue
		}
		if col.Type() == series.String && float64(empty)/float64(nRows) >= cfg.EmptyThreshold {
			continue
		}

		if name == cfg.Target {
			targetSeen = true
		}
		kept = append(kept, name)
	}

	if len(kept) == 0 {
		return dataframe.DataFrame{}, errors.Newf("dataset.Clean: no columns survived cleaning")
	}

	cleaned := df.Select(kept)
	if cleaned.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(cleaned.Err, "dataset.Clean: selecting retained columns")
	}

	if cfg.Target == "" {
		return cleaned, nil
	}
	if !targetSeen {
		return dataframe.DataFrame{}, errors.NewValueError("dataset.Clean",
			"target column "+cfg.Target+" not present in table")
	}

	relabeled, err := remapTarget(cleaned, cfg.Target, cfg.TargetLabels)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return relabeled, nil
}

// remapTarget rewrites the target column through the label lookup. Values
// already in the mapped range pass through unchanged, so cleaning an
// already-clean table does not double-map.
func remapTarget(df dataframe.DataFrame, target string, lookup map[string]string) (dataframe.DataFrame, error) {
	mappedRange := make(map[string]bool, len(lookup))
	for _, v := range lookup {
		mappedRange[v] = true
	}

	records := df.Col(target).Records()
	relabeled := make([]string, len(records))
	for i, v := range records {
		switch {
		case lookup[v] != "":
			relabeled[i] = lookup[v]
		case mappedRange[v]:
			relabeled[i] = v
		default:
			return dataframe.DataFrame{}, errors.NewValueError("dataset.Clean",
				"target value "+v+" is outside the expected category alphabet")
		}
	}

	out := df.Mutate(series.New(relabeled, series.String, target))
	if out.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(out.Err, "dataset.Clean: relabeling target")
	}
	return out, nil
}
