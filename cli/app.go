// Package cli contains the depthpose command line tool.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/depthpose/dataset"
)

const (
	// Global flags.
	generalFlagConfig   = "config"
	generalFlagDebug    = "debug"
	generalFlagDataRoot = "data-root"
	generalFlagView     = "view"

	flagRoot        = "root"
	flagOut         = "out"
	flagPersons     = "persons"
	flagValPersons  = "val-persons"
	flagCrop        = "crop"
	flagSplit       = "split"
	flagDir         = "dir"
	flagWidth       = "width"
	flagHeight      = "height"
	flagPredictions = "predictions"
	flagEstimates   = "estimates"
	flagPerJoint    = "per-joint"
	flagCurve       = "curve"
	flagHistogram   = "histogram"
	flagStart       = "start"
	flagEnd         = "end"
	flagFrames      = "frames"
	flagHeatmaps    = "heatmaps"
	flagSeed        = "seed"
)

func splitFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagSplit,
		Value: string(dataset.Val),
		Usage: "dataset split: train or val",
	}
}

// NewApp returns the depthpose CLI writing to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "depthpose",
		Usage:           "prepare depth pose datasets and evaluate joint estimates",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    generalFlagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.PathFlag{
				Name:  generalFlagDataRoot,
				Usage: "directory holding the merged split arrays, when no config is given",
			},
			&cli.StringFlag{
				Name:  generalFlagView,
				Value: dataset.ViewTop,
				Usage: "camera view: top or side, when no config is given",
			},
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "prepare",
				Usage:     "convert raw per-person ITOP arrays into train and val splits",
				UsageText: fmt.Sprintf("depthpose prepare --%s <dir> --%s <dir> [other options]", flagRoot, flagOut),
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagRoot,
						Required: true,
						Usage:    "directory of <NN>_depth_<view>.npy, <NN>_predicts_<view>.npy and <NN>_joints_<view>.npy files",
					},
					&cli.PathFlag{
						Name:     flagOut,
						Required: true,
						Usage:    "output directory",
					},
					&cli.IntSliceFlag{
						Name:  flagValPersons,
						Value: cli.NewIntSlice(0, 1, 2, 3),
						Usage: "persons whose frames go to the val split",
					},
					&cli.IntFlag{
						Name:  flagPersons,
						Value: len(dataset.ITOPValPersons),
						Usage: "number of persons",
					},
					&cli.BoolFlag{
						Name:  flagCrop,
						Usage: "crop a 224x224 window instead of scaling frames",
					},
				},
				Action: PrepareAction,
			},
			{
				Name:  "merge",
				Usage: "concatenate per-person depth and joint arrays into one split",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagRoot,
						Required: true,
						Usage:    "directory of <NN>_depth_<view>.npy and <NN>_joints_<view>.npy files",
					},
					&cli.PathFlag{
						Name:     flagOut,
						Required: true,
						Usage:    "output directory",
					},
					&cli.IntSliceFlag{
						Name:     flagPersons,
						Required: true,
						Usage:    "persons to merge, in order",
					},
					splitFlag(),
				},
				Action: MergeAction,
			},
			{
				Name:  "resize",
				Usage: "resize every depth array in a directory in place",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagDir,
						Required: true,
						Usage:    "directory of .npy files",
					},
					&cli.IntFlag{
						Name:  flagWidth,
						Value: 224,
					},
					&cli.IntFlag{
						Name:  flagHeight,
						Value: 224,
					},
				},
				Action: ResizeAction,
			},
			{
				Name:  "evaluate",
				Usage: "score predicted joints against a split by world-space distance",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagPredictions,
						Required: true,
						Usage:    "frames x joints x 2 .npy file of predicted pixel joints",
					},
					splitFlag(),
					&cli.BoolFlag{
						Name:  flagPerJoint,
						Usage: "log accuracy per joint",
					},
					&cli.PathFlag{
						Name:  flagCurve,
						Usage: "write an accuracy curve plot to `FILE`",
					},
					&cli.IntFlag{
						Name:  flagHistogram,
						Usage: "print a histogram of joint distances with `N` buckets",
					},
				},
				Action: EvaluateAction,
			},
			{
				Name:  "heatmaps",
				Usage: "write heatmap-augmented network inputs and bounded corrections for a range of frames",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagEstimates,
						Required: true,
						Usage:    "frames x joints x 2 .npy file of current joint estimates",
					},
					&cli.PathFlag{
						Name:     flagOut,
						Required: true,
						Usage:    "output directory",
					},
					splitFlag(),
					&cli.IntFlag{
						Name:  flagStart,
						Usage: "first frame",
					},
					&cli.IntFlag{
						Name:  flagEnd,
						Usage: "frame after the last one, start plus the configured batch size when unset",
					},
				},
				Action: HeatmapsAction,
			},
			{
				Name:  "subsample",
				Usage: "write a small train and val dataset for quick runs",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagOut,
						Required: true,
						Usage:    "output directory",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Value: 1,
						Usage: "random seed for picking training frames",
					},
				},
				Action: SubsampleAction,
			},
			{
				Name:  "visualize",
				Usage: "draw joint estimates and their bounded corrections over depth frames",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagEstimates,
						Required: true,
						Usage:    "frames x joints x 2 .npy file of current joint estimates",
					},
					&cli.PathFlag{
						Name:  flagOut,
						Value: "out",
						Usage: "output directory",
					},
					splitFlag(),
					&cli.IntFlag{
						Name:  flagFrames,
						Value: 10,
						Usage: "number of frames to draw",
					},
					&cli.BoolFlag{
						Name:  flagHeatmaps,
						Usage: "also draw the summed heatmaps with correction vectors",
					},
				},
				Action: VisualizeAction,
			},
		},
	}
}
