package dataset

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
)

// Split names a dataset partition.
type Split string

// The dataset partitions.
const (
	Train Split = "train"
	Val   Split = "val"
)

// Views of the ITOP dataset.
const (
	ViewTop  = "top"
	ViewSide = "side"
)

// CheckView returns an error unless view is a known camera view.
func CheckView(view string) error {
	switch view {
	case ViewTop, ViewSide:
		return nil
	default:
		return errors.Errorf("unknown view %q, expected %q or %q", view, ViewTop, ViewSide)
	}
}

// Units describes how depth values are stored on disk.
type Units string

const (
	// UnitsMeters means stored depth is already in metres.
	UnitsMeters Units = "meters"
	// UnitsMillimeters means stored depth is divided by 1000 when loaded.
	UnitsMillimeters Units = "millimeters"
	// UnitsAuto guesses millimetres when the mean nonzero training depth exceeds
	// autoMillimeterThreshold.
	//
	// Deprecated: store depth in metres or declare UnitsMillimeters.
	UnitsAuto Units = "auto"
)

const autoMillimeterThreshold = 100

// Validate returns an error for unknown units. The empty value means UnitsMeters.
func (u Units) Validate() error {
	switch u {
	case "", UnitsMeters, UnitsMillimeters, UnitsAuto:
		return nil
	default:
		return errors.Errorf("unknown depth units %q", u)
	}
}

// Data is one split of a dataset: depth images and their joints.
type Data struct {
	Depth  *pose.DepthBatch
	Joints *pose.Batch
}

// Frames returns the number of frames.
func (d *Data) Frames() int {
	return d.Depth.Frames()
}

// Store is a directory of merged per-split arrays for one view, named
// depth_<view>_<split>.npy and joint_<view>_<split>.npy.
type Store struct {
	Root   string
	View   string
	Units  Units
	Logger logging.Logger
}

// NewStore validates the view and units.
func NewStore(root, view string, units Units, logger logging.Logger) (*Store, error) {
	if err := CheckView(view); err != nil {
		return nil, err
	}
	if err := units.Validate(); err != nil {
		return nil, err
	}
	return &Store{Root: root, View: view, Units: units, Logger: logger}, nil
}

// DepthPath returns the depth array path of a split.
func (s *Store) DepthPath(split Split) string {
	return filepath.Join(s.Root, fmt.Sprintf("depth_%s_%s.npy", s.View, split))
}

// JointPath returns the joint array path of a split.
func (s *Store) JointPath(split Split) string {
	return filepath.Join(s.Root, fmt.Sprintf("joint_%s_%s.npy", s.View, split))
}

// Load reads a split as stored, without unit conversion.
func (s *Store) Load(split Split) (*Data, error) {
	depth, err := LoadDepth(s.DepthPath(split))
	if err != nil {
		return nil, err
	}
	joints, err := LoadJoints(s.JointPath(split))
	if err != nil {
		return nil, err
	}
	if depth.Frames() != joints.Frames() {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "%s split has %d depth frames but %d joint frames",
			split, depth.Frames(), joints.Frames())
	}
	return &Data{Depth: depth, Joints: joints}, nil
}

// Save writes a split.
func (s *Store) Save(split Split, d *Data) error {
	if err := SaveDepth(s.DepthPath(split), d.Depth); err != nil {
		return err
	}
	return SaveJoints(s.JointPath(split), d.Joints)
}

// LoadTrainVal reads both splits concurrently, converts depth to metres according to the
// store's units and keeps the (column, row) pixel coordinates of the joints.
func (s *Store) LoadTrainVal(ctx context.Context) (*Data, *Data, error) {
	var train, val *Data
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		train, err = s.Load(Train)
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		val, err = s.Load(Val)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if s.toMillimeters(train) {
		train.Depth.Scale(1.0 / 1000)
		val.Depth.Scale(1.0 / 1000)
	}
	for _, d := range []*Data{train, val} {
		joints, err := d.Joints.Project(2)
		if err != nil {
			return nil, nil, err
		}
		d.Joints = joints
	}
	return train, val, nil
}

func (s *Store) toMillimeters(train *Data) bool {
	switch s.Units {
	case UnitsMillimeters:
		return true
	case UnitsAuto:
		mean, ok := train.Depth.MeanNonZero()
		if !ok || mean <= autoMillimeterThreshold {
			return false
		}
		s.Logger.Warnw("training depth looks like millimetres, converting to metres; set units explicitly",
			"mean_nonzero_depth", mean)
		return true
	default:
		return false
	}
}

// Subsampling sizes of the small data mode.
const (
	SmallFrames   = 23
	SmallValStart = 500
)

// Subsample returns a small dataset for quick runs: SmallFrames training frames drawn at
// random with replacement and SmallFrames consecutive validation frames starting at
// SmallValStart. The validation window is moved back to fit when val is shorter.
func Subsample(rng *rand.Rand, train, val *Data) (*Data, *Data, error) {
	if train.Frames() == 0 {
		return nil, nil, errors.New("cannot subsample an empty training split")
	}
	picks := make([]int, SmallFrames)
	for i := range picks {
		picks[i] = rng.Intn(train.Frames())
	}
	smallTrain, err := selectFrames(train, picks)
	if err != nil {
		return nil, nil, err
	}

	end := min(SmallValStart+SmallFrames, val.Frames())
	start := max(end-SmallFrames, 0)
	smallVal, err := sliceFrames(val, start, end)
	if err != nil {
		return nil, nil, err
	}
	return smallTrain, smallVal, nil
}

func selectFrames(d *Data, frames []int) (*Data, error) {
	depth, err := d.Depth.Select(frames)
	if err != nil {
		return nil, err
	}
	joints, err := d.Joints.Select(frames)
	if err != nil {
		return nil, err
	}
	return &Data{Depth: depth, Joints: joints}, nil
}

func sliceFrames(d *Data, from, to int) (*Data, error) {
	depth, err := d.Depth.Slice(from, to)
	if err != nil {
		return nil, err
	}
	joints, err := d.Joints.Slice(from, to)
	if err != nil {
		return nil, err
	}
	return &Data{Depth: depth, Joints: joints}, nil
}
