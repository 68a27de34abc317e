package evaluation

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// AccuracyCurve returns the fraction of distances strictly below each threshold
// 0, step, 2*step, ... up to and including maxCM.
func AccuracyCurve(dists *mat.Dense, maxCM, step float64) (plotter.XYs, error) {
	if step <= 0 || maxCM < 0 {
		return nil, errors.Errorf("invalid curve range [0, %v] with step %v", maxCM, step)
	}
	values := flatten(dists)
	if len(values) == 0 {
		return nil, errors.New("no distances for accuracy curve")
	}
	n := int(maxCM/step) + 1
	xys := make(plotter.XYs, n)
	for i := range xys {
		threshold := float64(i) * step
		xys[i].X = threshold
		xys[i].Y = fractionBelow(values, threshold)
	}
	return xys, nil
}

// PlotAccuracyCurve saves the named accuracy curves to path as one plot. The
// image format follows the file extension.
func PlotAccuracyCurve(path string, curves map[string]plotter.XYs) error {
	p := plot.New()
	p.Title.Text = "Joint accuracy"
	p.X.Label.Text = "distance threshold (cm)"
	p.Y.Label.Text = "fraction of joints"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	names := lo.Keys(curves)
	slices.Sort(names)
	for i, name := range names {
		line, err := plotter.NewLine(curves[name])
		if err != nil {
			return errors.Wrapf(err, "curve %q", name)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = false
	p.Legend.Left = false

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
