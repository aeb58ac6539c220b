// Package explore renders the report's descriptive figures. It is a side
// branch of the pipeline: nothing here feeds the modeling path.
package explore

import (
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/liftlab/liftqc/pkg/errors"
)

// NameContains returns a column-name predicate matching names that contain
// sub. Column selection for plotting is an explicit predicate so it stays
// independent of the modeling path.
func NameContains(sub string) func(string) bool {
	return func(name string) bool { return strings.Contains(name, sub) }
}

// ClassCountBar renders a bar chart of per-class counts to a PNG at path.
// Classes appear in sorted label order.
func ClassCountBar(labels []string, title, path string) error {
	classes, counts, err := countByClass(labels)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(plotter.Values(counts), vg.Points(40))
	if err != nil {
		return errors.Wrap(err, "explore.ClassCountBar")
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(classes...)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "explore.ClassCountBar: saving %s", path)
	}
	return nil
}

// PredictionBar renders the distribution of predicted labels.
func PredictionBar(labels []string, path string) error {
	return ClassCountBar(labels, "Predicted exercise quality (20 held-out cases)", path)
}

// HistogramGrid renders one PNG per numeric column whose name satisfies the
// keep predicate: overlaid per-class histograms of that measurement. Returns
// the paths written, in column order.
func HistogramGrid(df dataframe.DataFrame, keep func(string) bool, target, dir string) ([]string, error) {
	const op = "explore.HistogramGrid"

	targetRecords, err := targetColumn(df, target)
	if err != nil {
		return nil, err
	}

	classSet := make(map[string]bool)
	for _, c := range targetRecords {
		classSet[c] = true
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	var written []string
	for _, name := range df.Names() {
		if name == target || !keep(name) {
			continue
		}
		col := df.Col(name)
		if col.Type() == series.String {
			continue
		}

		p := plot.New()
		p.Title.Text = name + " by exercise quality"
		p.X.Label.Text = name
		p.Y.Label.Text = "Count"

		values := col.Float()
		for ci, class := range classes {
			var classValues plotter.Values
			for i, v := range values {
				if targetRecords[i] == class && !math.IsNaN(v) {
					classValues = append(classValues, v)
				}
			}
			if len(classValues) == 0 {
				continue
			}

			h, err := plotter.NewHist(classValues, 30)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: column %s class %s", op, name, class)
			}
			h.FillColor = translucent(plotutil.Color(ci))
			p.Add(h)
			p.Legend.Add(class, h)
		}

		path := filepath.Join(dir, name+".png")
		if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
			return nil, errors.Wrapf(err, "%s: saving %s", op, path)
		}
		written = append(written, path)
	}

	return written, nil
}

func countByClass(labels []string) ([]string, []float64, error) {
	if len(labels) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "explore: no labels to plot")
	}

	countMap := make(map[string]int)
	for _, label := range labels {
		countMap[label]++
	}

	classes := make([]string, 0, len(countMap))
	for c := range countMap {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	counts := make([]float64, len(classes))
	for i, c := range classes {
		counts[i] = float64(countMap[c])
	}
	return classes, counts, nil
}

func targetColumn(df dataframe.DataFrame, target string) ([]string, error) {
	for _, name := range df.Names() {
		if name == target {
			return df.Col(target).Records(), nil
		}
	}
	return nil, errors.NewValueError("explore.HistogramGrid", "target column "+target+" not present in table")
}

// translucent lightens a palette color so overlaid histograms stay readable.
func translucent(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 128}
}
