package dataset

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
	"go.viam.com/depthpose/rimage"
)

// Raw ITOP frame size.
const (
	SourceWidth  = 320
	SourceHeight = 240
)

// ITOPValPersons flags, for each of the 12 ITOP persons, whether its frames go to the
// validation split.
var ITOPValPersons = []bool{true, true, true, true, false, false, false, false, false, false, false, false}

// DefaultCropOrigin is the top-left corner of the crop window used when not scaling.
var DefaultCropOrigin = image.Point{X: 48, Y: 16}

// PrepareOptions configures Prepare.
type PrepareOptions struct {
	// Root holds the per-person depth, predicts and joints arrays.
	Root string
	// Out receives the train and val arrays.
	Out  string
	View string
	// ValPersons flags which persons are validation persons; its length is the person count.
	ValPersons []bool
	Width      int
	Height     int
	// Scale resizes frames to Width x Height. Otherwise a Width x Height window at CropOrigin
	// is cut out.
	Scale      bool
	CropOrigin image.Point
	// Dtype is the element type of the written depth arrays, half precision by default.
	Dtype  tensor.Dtype
	Logger logging.Logger
}

// DefaultPrepareOptions returns the ITOP preparation settings for a view.
func DefaultPrepareOptions(root, out, view string, logger logging.Logger) PrepareOptions {
	return PrepareOptions{
		Root:       root,
		Out:        out,
		View:       view,
		ValPersons: ITOPValPersons,
		Width:      224,
		Height:     224,
		Scale:      true,
		CropOrigin: DefaultCropOrigin,
		Dtype:      pose.Float16,
		Logger:     logger,
	}
}

// Prepare converts raw per-person ITOP arrays into train and val splits: depth outside the
// segmented body is zeroed, depth and the joint depth coordinate are converted from
// millimetres to metres, and frames and joints are scaled or cropped to the output size.
func Prepare(ctx context.Context, opts PrepareOptions) error {
	if err := CheckView(opts.View); err != nil {
		return err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return errors.Errorf("invalid output size %dx%d", opts.Width, opts.Height)
	}
	if err := pose.CheckDtype(opts.Dtype); err != nil {
		return err
	}
	persons := make([]int, len(opts.ValPersons))
	for i := range persons {
		persons[i] = i
	}
	prepared, err := loadPersons(ctx, persons, func(person int) (*Data, error) {
		return preparePerson(opts, person)
	})
	if err != nil {
		return err
	}

	var train, val []*Data
	for person, d := range prepared {
		if opts.ValPersons[person] {
			val = append(val, d)
		} else {
			train = append(train, d)
		}
	}
	store := &Store{Root: opts.Out, View: opts.View, Units: UnitsMeters, Logger: opts.Logger}
	for split, parts := range map[Split][]*Data{Train: train, Val: val} {
		if len(parts) == 0 {
			opts.Logger.Warnw("no persons assigned to split", "split", split)
			continue
		}
		merged, err := concatData(parts)
		if err != nil {
			return err
		}
		if err := merged.Depth.SetDtype(opts.Dtype); err != nil {
			return err
		}
		if err := store.Save(split, merged); err != nil {
			return err
		}
		opts.Logger.Infow("prepared", "split", split, "frames", merged.Frames())
	}
	return nil
}

func preparePerson(opts PrepareOptions, person int) (*Data, error) {
	opts.Logger.Debugw("preparing person", "person", person, "view", opts.View)
	depth, err := LoadDepth(PersonPath(opts.Root, person, KindDepth, opts.View))
	if err != nil {
		return nil, err
	}
	labels, err := LoadDepth(PersonPath(opts.Root, person, KindPredicts, opts.View))
	if err != nil {
		return nil, err
	}
	joints, err := LoadJoints(PersonPath(opts.Root, person, KindJoints, opts.View))
	if err != nil {
		return nil, err
	}
	if err := MaskDepth(depth, labels); err != nil {
		return nil, err
	}
	depth.Scale(1.0 / 1000)
	if joints.Dims() == 3 {
		for i := 0; i < joints.Frames(); i++ {
			for j := 0; j < joints.Joints(); j++ {
				joints.At(i, j)[2] /= 1000
			}
		}
	}

	var maps []*rimage.DepthMap
	if opts.Scale {
		maps, err = scaleFrames(depth, joints, opts.Width, opts.Height)
	} else {
		maps, err = cropFrames(depth, joints, image.Rectangle{Min: opts.CropOrigin, Max: opts.CropOrigin.Add(image.Pt(opts.Width, opts.Height))})
	}
	if err != nil {
		return nil, err
	}
	out, err := pose.DepthBatchFromMaps(maps)
	if err != nil {
		return nil, err
	}
	return &Data{Depth: out, Joints: joints}, nil
}

// MaskDepth zeroes, in place, every depth reading whose segmentation label is negative.
func MaskDepth(depth, labels *pose.DepthBatch) error {
	if depth.Frames() != labels.Frames() || depth.Width() != labels.Width() || depth.Height() != labels.Height() {
		return errors.Wrapf(pose.ErrShapeMismatch, "labels (%d, %d, %d) do not match depth (%d, %d, %d)",
			labels.Frames(), labels.Height(), labels.Width(), depth.Frames(), depth.Height(), depth.Width())
	}
	for i := 0; i < depth.Frames(); i++ {
		d, l := depth.Frame(i).Data(), labels.Frame(i).Data()
		for p, label := range l {
			if label < 0 {
				d[p] = 0
			}
		}
	}
	return nil
}

func scaleFrames(depth *pose.DepthBatch, joints *pose.Batch, width, height int) ([]*rimage.DepthMap, error) {
	if depth.Width() != SourceWidth || depth.Height() != SourceHeight {
		return nil, errors.Errorf("expected %dx%d ITOP frames, got %dx%d", SourceWidth, SourceHeight, depth.Width(), depth.Height())
	}
	sx, sy := float64(width)/SourceWidth, float64(height)/SourceHeight
	for i := 0; i < joints.Frames(); i++ {
		for j := 0; j < joints.Joints(); j++ {
			c := joints.At(i, j)
			c[0] *= sx
			c[1] *= sy
		}
	}
	maps := depth.Maps()
	for i, dm := range maps {
		maps[i] = dm.Resize(width, height)
	}
	return maps, nil
}

func cropFrames(depth *pose.DepthBatch, joints *pose.Batch, window image.Rectangle) ([]*rimage.DepthMap, error) {
	for i := 0; i < joints.Frames(); i++ {
		for j := 0; j < joints.Joints(); j++ {
			c := joints.At(i, j)
			c[0] -= float64(window.Min.X)
			c[1] -= float64(window.Min.Y)
		}
	}
	maps := depth.Maps()
	for i, dm := range maps {
		cropped, err := dm.Crop(window)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		maps[i] = cropped
	}
	return maps, nil
}

func concatData(parts []*Data) (*Data, error) {
	depths := make([]*pose.DepthBatch, len(parts))
	joints := make([]*pose.Batch, len(parts))
	for i, d := range parts {
		depths[i], joints[i] = d.Depth, d.Joints
	}
	depth, err := pose.ConcatDepth(depths...)
	if err != nil {
		return nil, err
	}
	j, err := pose.Concat(joints...)
	if err != nil {
		return nil, err
	}
	return &Data{Depth: depth, Joints: j}, nil
}
