package cli

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gonum.org/v1/plot/plotter"

	"go.viam.com/depthpose/dataset"
	"go.viam.com/depthpose/evaluation"
	"go.viam.com/depthpose/visualize"
)

// Accuracy curve range, in centimetres.
const (
	curveMaxCM = 30
	curveStep  = 0.5

	histogramWidth = 40
)

// PrepareAction is the corresponding action for 'prepare'.
func PrepareAction(c *cli.Context) (err error) {
	cfg, err := loadOptionalConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	opts := dataset.DefaultPrepareOptions(c.Path(flagRoot), c.Path(flagOut), c.String(generalFlagView), logger)
	valPersons := c.IntSlice(flagValPersons)
	opts.ValPersons = lo.Times(c.Int(flagPersons), func(person int) bool {
		return lo.Contains(valPersons, person)
	})
	opts.Scale = !c.Bool(flagCrop)
	if err := dataset.Prepare(c.Context, opts); err != nil {
		return err
	}
	printf(c.App.Writer, "prepared %s view of %d persons in %s", opts.View, len(opts.ValPersons), opts.Out)
	return nil
}

// MergeAction is the corresponding action for 'merge'.
func MergeAction(c *cli.Context) (err error) {
	cfg, err := loadOptionalConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	split, err := parseSplit(c)
	if err != nil {
		return err
	}
	persons := c.IntSlice(flagPersons)
	if err := dataset.Merge(c.Context, c.Path(flagRoot), c.Path(flagOut), c.String(generalFlagView), persons, split, logger); err != nil {
		return err
	}
	printf(c.App.Writer, "merged %d persons into the %s split", len(persons), split)
	return nil
}

// ResizeAction is the corresponding action for 'resize'.
func ResizeAction(c *cli.Context) (err error) {
	cfg, err := loadOptionalConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()
	return dataset.ResizeDir(c.Context, c.Path(flagDir), c.Int(flagWidth), c.Int(flagHeight), logger)
}

// EvaluateAction is the corresponding action for 'evaluate'.
func EvaluateAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	split, err := parseSplit(c)
	if err != nil {
		return err
	}
	data, err := loadSplit(c.Context, cfg, split, logger)
	if err != nil {
		return err
	}
	predictions, err := loadEstimates(c.Path(flagPredictions), data)
	if err != nil {
		return err
	}

	dists, err := evaluation.Distances(data.Depth, data.Joints, predictions, cfg.Intrinsics())
	if err != nil {
		return err
	}
	summary, err := evaluation.Summarize(dists)
	if err != nil {
		return err
	}
	perJoint, err := evaluation.SummarizePerJoint(dists)
	if err != nil {
		return err
	}
	logger.Infow("evaluated", "split", split, "frames", dists.RawMatrix().Rows, "average_distance_cm", summary.MeanDistance)
	evaluation.Report(logger, summary)
	if c.Bool(flagPerJoint) {
		evaluation.ReportPerJoint(logger, perJoint)
	}
	printf(c.App.Writer, "%s", evaluation.Table(perJoint, summary))
	if bins := c.Int(flagHistogram); bins > 0 {
		if err := evaluation.FprintHistogram(c.App.Writer, dists, bins, histogramWidth); err != nil {
			return err
		}
	}

	if path := c.Path(flagCurve); path != "" {
		curve, err := evaluation.AccuracyCurve(dists, curveMaxCM, curveStep)
		if err != nil {
			return err
		}
		name := filepath.Base(c.Path(flagPredictions))
		if err := evaluation.PlotAccuracyCurve(path, map[string]plotter.XYs{name: curve}); err != nil {
			return err
		}
		printf(c.App.Writer, "wrote accuracy curve to %s", path)
	}
	return nil
}

// HeatmapsAction is the corresponding action for 'heatmaps'.
func HeatmapsAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	split, err := parseSplit(c)
	if err != nil {
		return err
	}
	batcher, err := newBatcher(c, cfg, split, logger)
	if err != nil {
		return err
	}
	start := c.Int(flagStart)
	end := c.Int(flagEnd)
	if end == 0 {
		end = min(start+cfg.BatchSize, batcher.Len())
	}
	x, eps, err := batcher.Batch(c.Context, start, end)
	if err != nil {
		return err
	}

	out := c.Path(flagOut)
	xPath := filepath.Join(out, fmt.Sprintf("x_%s_%s_%d_%d.npy", cfg.View, split, start, end))
	epsPath := filepath.Join(out, fmt.Sprintf("eps_%s_%s_%d_%d.npy", cfg.View, split, start, end))
	if err := dataset.WriteTensor(xPath, x, x.Dtype()); err != nil {
		return err
	}
	if err := dataset.SaveJoints(epsPath, eps); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote input %v to %s and corrections to %s", x.Shape(), xPath, epsPath)
	return nil
}

// SubsampleAction is the corresponding action for 'subsample'.
func SubsampleAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	store, err := dataset.NewStore(cfg.DataRoot, cfg.View, cfg.Units, logger)
	if err != nil {
		return err
	}
	train, val, err := store.LoadTrainVal(c.Context)
	if err != nil {
		return err
	}
	//nolint:gosec
	rng := rand.New(rand.NewSource(c.Int64(flagSeed)))
	smallTrain, smallVal, err := dataset.Subsample(rng, train, val)
	if err != nil {
		return err
	}
	out, err := dataset.NewStore(c.Path(flagOut), cfg.View, dataset.UnitsMeters, logger)
	if err != nil {
		return err
	}
	if err := out.Save(dataset.Train, smallTrain); err != nil {
		return err
	}
	if err := out.Save(dataset.Val, smallVal); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %d train and %d val frames to %s", smallTrain.Frames(), smallVal.Frames(), out.Root)
	return nil
}

// VisualizeAction is the corresponding action for 'visualize'.
func VisualizeAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	split, err := parseSplit(c)
	if err != nil {
		return err
	}
	batcher, err := newBatcher(c, cfg, split, logger)
	if err != nil {
		return err
	}
	n := min(c.Int(flagFrames), batcher.Len())
	x, eps, err := batcher.Batch(c.Context, 0, n)
	if err != nil {
		return err
	}
	depth, err := batcher.Depth().Slice(0, n)
	if err != nil {
		return err
	}
	current, err := batcher.Current().Slice(0, n)
	if err != nil {
		return err
	}

	out := c.Path(flagOut)
	paths, err := visualize.Corrections(out, string(split), depth, current, eps)
	if err != nil {
		return err
	}
	if c.Bool(flagHeatmaps) {
		more, err := visualize.Heatmaps(out, string(split), x, current, eps)
		if err != nil {
			return err
		}
		paths = append(paths, more...)
	}
	printf(c.App.Writer, "wrote %d images to %s", len(paths), out)
	return nil
}
