package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/depthpose/config"
	"go.viam.com/depthpose/dataset"
	"go.viam.com/depthpose/ief"
	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
)

// printf prints a message with a newline.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// loadConfig reads the --config file, or builds a default configuration from --data-root
// and --view.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.Path(generalFlagConfig); path != "" {
		return config.Read(path)
	}
	root := c.Path(generalFlagDataRoot)
	if root == "" {
		return nil, errors.Errorf("either --%s or --%s is required", generalFlagConfig, generalFlagDataRoot)
	}
	cfg := config.Default(root)
	cfg.View = c.String(generalFlagView)
	if err := cfg.Validate(generalFlagDataRoot); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadOptionalConfig reads the --config file if one is given, else returns a nil config.
// Commands taking their paths from flags only use its log settings.
func loadOptionalConfig(c *cli.Context) (*config.Config, error) {
	path := c.Path(generalFlagConfig)
	if path == "" {
		//nolint:nilnil
		return nil, nil
	}
	return config.Read(path)
}

// newLogger returns the command's logger and a function releasing its log file, and makes
// the logger global so main reports the command's error through it. cfg may be nil.
func newLogger(c *cli.Context, cfg *config.Config) (logging.Logger, func() error) {
	debug := c.Bool(generalFlagDebug) || (cfg != nil && cfg.Debug)
	closeLog := func() error { return nil }
	var logger logging.Logger
	switch {
	case cfg != nil && cfg.LogFile != "":
		var file *logging.FileAppender
		logger, file = logging.NewFileLogger("depthpose", cfg.LogFile)
		if !debug {
			logger.SetLevel(logging.INFO)
		}
		closeLog = file.Close
	case debug:
		logger = logging.NewDebugLogger("depthpose")
	default:
		logger = logging.NewLogger("depthpose")
	}
	logging.ReplaceGlobal(logger)
	return logger, closeLog
}

func parseSplit(c *cli.Context) (dataset.Split, error) {
	switch split := dataset.Split(c.String(flagSplit)); split {
	case dataset.Train, dataset.Val:
		return split, nil
	default:
		return "", errors.Errorf("unknown split %q", split)
	}
}

// loadSplit reads the configured dataset with depth in metres and 2D joints, and returns
// the requested split.
func loadSplit(ctx context.Context, cfg *config.Config, split dataset.Split, logger logging.Logger) (*dataset.Data, error) {
	store, err := dataset.NewStore(cfg.DataRoot, cfg.View, cfg.Units, logger)
	if err != nil {
		return nil, err
	}
	train, val, err := store.LoadTrainVal(ctx)
	if err != nil {
		return nil, err
	}
	if split == dataset.Train {
		return train, nil
	}
	return val, nil
}

// loadEstimates reads a joint file, keeping pixel coordinates, and checks it covers every
// frame of data.
func loadEstimates(path string, data *dataset.Data) (*pose.Batch, error) {
	joints, err := dataset.LoadJoints(path)
	if err != nil {
		return nil, err
	}
	joints, err = joints.Project(2)
	if err != nil {
		return nil, err
	}
	if err := joints.CheckSameShape(data.Joints); err != nil {
		return nil, errors.Wrapf(err, "%s does not match the dataset joints", path)
	}
	return joints, nil
}

// newBatcher pairs the split with the --estimates joints.
func newBatcher(c *cli.Context, cfg *config.Config, split dataset.Split, logger logging.Logger) (*ief.Batcher, error) {
	data, err := loadSplit(c.Context, cfg, split, logger)
	if err != nil {
		return nil, err
	}
	estimates, err := loadEstimates(c.Path(flagEstimates), data)
	if err != nil {
		return nil, err
	}
	kernel, err := ief.NewKernel(cfg.Height, cfg.Width)
	if err != nil {
		return nil, err
	}
	return ief.NewBatcher(data.Depth, data.Joints, estimates, kernel, cfg.Limit())
}
