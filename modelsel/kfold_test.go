package modelsel

import (
	"testing"
)

func TestKFold_Split(t *testing.T) {
	const nSamples = 53
	kf := NewKFold(10, true, 7)

	folds := kf.Split(nSamples)
	if len(folds) != 10 {
		t.Fatalf("got %d folds, want 10", len(folds))
	}

	seen := make(map[int]int)
	for fi, fold := range folds {
		// Test and train partitions are disjoint and together cover all rows.
		inTest := make(map[int]bool)
		for _, idx := range fold.TestIndices {
			inTest[idx] = true
			seen[idx]++
		}
		for _, idx := range fold.TrainIndices {
			if inTest[idx] {
				t.Errorf("fold %d: index %d appears in both train and test", fi, idx)
			}
		}
		if len(fold.TrainIndices)+len(fold.TestIndices) != nSamples {
			t.Errorf("fold %d: partitions cover %d rows, want %d",
				fi, len(fold.TrainIndices)+len(fold.TestIndices), nSamples)
		}
	}

	// Every row appears in exactly one test fold.
	for i := 0; i < nSamples; i++ {
		if seen[i] != 1 {
			t.Errorf("row %d appears in %d test folds", i, seen[i])
		}
	}
}

func TestKFold_SizesDifferByAtMostOne(t *testing.T) {
	folds := NewKFold(10, false, 0).Split(53)

	minSize, maxSize := len(folds[0].TestIndices), len(folds[0].TestIndices)
	for _, fold := range folds[1:] {
		n := len(fold.TestIndices)
		if n < minSize {
			minSize = n
		}
		if n > maxSize {
			maxSize = n
		}
	}
	if maxSize-minSize > 1 {
		t.Errorf("fold sizes range from %d to %d", minSize, maxSize)
	}
}

func TestKFold_ShuffleIsSeeded(t *testing.T) {
	a := NewKFold(5, true, 123).Split(40)
	b := NewKFold(5, true, 123).Split(40)

	for fi := range a {
		if len(a[fi].TestIndices) != len(b[fi].TestIndices) {
			t.Fatalf("fold %d: sizes differ across identical seeds", fi)
		}
		for i := range a[fi].TestIndices {
			if a[fi].TestIndices[i] != b[fi].TestIndices[i] {
				t.Fatalf("fold %d: order differs across identical seeds", fi)
			}
		}
	}
}

func TestKFold_TooFewSplitsFallsBack(t *testing.T) {
	kf := NewKFold(1, false, 0)
	if kf.NSplits != 5 {
		t.Errorf("NSplits = %d, want fallback to 5", kf.NSplits)
	}
}
