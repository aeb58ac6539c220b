package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect agreement",
			yTrue: []float64{0, 1, 2, 3, 4},
			yPred: []float64{0, 1, 2, 3, 4},
			want:  1.0,
		},
		{
			name:  "one of five wrong",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.8,
		},
		{
			name:    "length mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yPred *mat.VecDense
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}
			got, err := Accuracy(mat.NewVecDense(len(tt.yTrue), tt.yTrue), yPred)

			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Accuracy failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Accuracy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracy_NilInput(t *testing.T) {
	if _, err := Accuracy(nil, nil); err == nil {
		t.Error("expected an error for nil inputs")
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{0, 0, 1, 1, 2, 2})
	yPred := mat.NewVecDense(6, []float64{0, 1, 1, 1, 2, 0})

	cm, err := ConfusionMatrix(yTrue, yPred, 3)
	if err != nil {
		t.Fatalf("ConfusionMatrix failed: %v", err)
	}

	want := [][]int{
		{1, 1, 0},
		{0, 2, 0},
		{1, 0, 1},
	}
	for i := range want {
		for j := range want[i] {
			if cm[i][j] != want[i][j] {
				t.Errorf("cm[%d][%d] = %d, want %d", i, j, cm[i][j], want[i][j])
			}
		}
	}
}

func TestConfusionMatrix_OutOfRange(t *testing.T) {
	yTrue := mat.NewVecDense(2, []float64{0, 5})
	yPred := mat.NewVecDense(2, []float64{0, 1})

	if _, err := ConfusionMatrix(yTrue, yPred, 3); err == nil {
		t.Error("expected an error for a class index outside [0, nClasses)")
	}
}

func TestCohenKappa(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{
			name:  "perfect agreement",
			yTrue: []float64{0, 1, 0, 1},
			yPred: []float64{0, 1, 0, 1},
			want:  1.0,
		},
		{
			// p_o = 0.75; marginals give p_e = 0.5; kappa = 0.5
			name:  "partial agreement",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0, 0, 1, 0},
			want:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CohenKappa(
				mat.NewVecDense(len(tt.yTrue), tt.yTrue),
				mat.NewVecDense(len(tt.yPred), tt.yPred),
				2,
			)
			if err != nil {
				t.Fatalf("CohenKappa failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("CohenKappa = %v, want %v", got, tt.want)
			}
		})
	}
}
