package explore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
)

func TestClassCountBar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "class_counts.png")

	labels := []string{"Correct", "Correct", "HipThrow", "ElbowThrow", "Correct"}
	if err := ClassCountBar(labels, "Class counts", path); err != nil {
		t.Fatalf("ClassCountBar failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("figure not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("figure file is empty")
	}
}

func TestClassCountBar_NoLabels(t *testing.T) {
	if err := ClassCountBar(nil, "empty", filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("expected an error for an empty label set")
	}
}

func TestHistogramGrid(t *testing.T) {
	dir := t.TempDir()

	df := dataframe.LoadRecords([][]string{
		{"roll_belt", "pitch_arm", "classe"},
		{"1.41", "10.1", "Correct"},
		{"1.52", "10.4", "Correct"},
		{"2.80", "11.0", "HipThrow"},
		{"2.95", "11.2", "HipThrow"},
	})
	if df.Err != nil {
		t.Fatalf("loading records: %v", df.Err)
	}

	written, err := HistogramGrid(df, NameContains("_belt"), "classe", dir)
	if err != nil {
		t.Fatalf("HistogramGrid failed: %v", err)
	}

	// Only the belt measurement matches the predicate.
	if len(written) != 1 {
		t.Fatalf("wrote %d figures, want 1", len(written))
	}
	if filepath.Base(written[0]) != "roll_belt.png" {
		t.Errorf("unexpected figure name %s", written[0])
	}
	if _, err := os.Stat(written[0]); err != nil {
		t.Errorf("figure not written: %v", err)
	}
}

func TestHistogramGrid_MissingTarget(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"roll_belt"},
		{"1.41"},
	})

	if _, err := HistogramGrid(df, NameContains("_belt"), "classe", t.TempDir()); err == nil {
		t.Error("expected an error for a missing target column")
	}
}

func TestNameContains(t *testing.T) {
	keep := NameContains("_belt")
	if !keep("roll_belt") {
		t.Error("roll_belt should match")
	}
	if keep("pitch_arm") {
		t.Error("pitch_arm should not match")
	}
}
