package dataset

import (
	"context"
	"errors"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
)

func constantDepth(t *testing.T, frames, height, width int, z float64) *pose.DepthBatch {
	t.Helper()
	db, err := pose.NewDepthBatch(frames, height, width)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < frames; i++ {
		data := db.Frame(i).Data()
		for p := range data {
			data[p] = z
		}
	}
	return db
}

func constantJoints(t *testing.T, frames, joints int, coords ...float64) *pose.Batch {
	t.Helper()
	b, err := pose.NewBatch(pose.Shape{Frames: frames, Joints: joints, Dims: len(coords)})
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < frames; i++ {
		for j := 0; j < joints; j++ {
			b.Set(i, j, coords...)
		}
	}
	return b
}

func TestNpyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	depth := constantDepth(t, 2, 3, 4, 1.5)
	depth.Frame(1).Set(3, 2, 0.25)
	test.That(t, depth.SetDtype(tensor.Float32), test.ShouldBeNil)
	path := filepath.Join(dir, "nested", "depth.npy")
	test.That(t, SaveDepth(path, depth), test.ShouldBeNil)

	loaded, err := LoadDepth(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Dtype(), test.ShouldEqual, tensor.Float32)
	test.That(t, loaded.Frames(), test.ShouldEqual, 2)
	test.That(t, loaded.Height(), test.ShouldEqual, 3)
	test.That(t, loaded.Width(), test.ShouldEqual, 4)
	test.That(t, loaded.Frame(1).GetDepth(3, 2), test.ShouldEqual, 0.25)

	wide := tensor.New(tensor.WithShape(1, 2, 4), tensor.WithBacking([]float64{1, 2, 3, 4, 5, 6, 7, 8}))
	jointPath := filepath.Join(dir, "joints.npy")
	test.That(t, WriteTensor(jointPath, wide, wide.Dtype()), test.ShouldBeNil)
	joints, err := LoadJoints(jointPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, joints.Dims(), test.ShouldEqual, 3)
	test.That(t, joints.Data(), test.ShouldResemble, []float64{1, 2, 3, 5, 6, 7})

	_, err = LoadDepth(filepath.Join(dir, "missing.npy"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNpyDtypes(t *testing.T) {
	dir := t.TempDir()
	for _, dtype := range []tensor.Dtype{
		tensor.Float64, tensor.Float32, pose.Float16,
		tensor.Int8, tensor.Int16, tensor.Int32, tensor.Int64,
		tensor.Uint8, tensor.Uint16, tensor.Uint32, tensor.Uint64,
	} {
		t.Run(dtype.String(), func(t *testing.T) {
			depth := constantDepth(t, 1, 2, 3, 7)
			depth.Frame(0).Set(2, 1, 100)
			test.That(t, depth.SetDtype(dtype), test.ShouldBeNil)
			path := filepath.Join(dir, dtype.String()+".npy")
			test.That(t, SaveDepth(path, depth), test.ShouldBeNil)

			loaded, err := LoadDepth(path)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, loaded.Dtype().Size(), test.ShouldEqual, dtype.Size())
			test.That(t, loaded.Dtype().Kind(), test.ShouldBeIn, dtype.Kind(), reflect.Int, reflect.Uint)
			test.That(t, loaded.Frame(0).Data(), test.ShouldResemble, depth.Frame(0).Data())

			again := filepath.Join(dir, "again_"+dtype.String()+".npy")
			test.That(t, SaveDepth(again, loaded), test.ShouldBeNil)
			first, err := os.ReadFile(path)
			test.That(t, err, test.ShouldBeNil)
			second, err := os.ReadFile(again)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, second, test.ShouldResemble, first)
		})
	}
}

// float16File returns a version 1.0 .npy file of a 1x2x2 '<f2' array, laid out as numpy
// writes it.
func float16File(bits ...uint16) []byte {
	header := "{'descr': '<f2', 'fortran_order': False, 'shape': (1, 2, 2), }"
	header += strings.Repeat(" ", 128-10-len(header)-1) + "\n"
	file := append([]byte("\x93NUMPY\x01\x00"), byte(len(header)), byte(len(header)>>8))
	file = append(file, header...)
	for _, b := range bits {
		file = append(file, byte(b), byte(b>>8))
	}
	return file
}

func TestFloat16Depth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "depth_top_train.npy")
	// 0, 1.5, 2.25, -0.5
	raw := float16File(0x0000, 0x3e00, 0x4080, 0xb800)
	test.That(t, os.WriteFile(path, raw, 0o600), test.ShouldBeNil)

	depth, err := LoadDepth(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, depth.Dtype(), test.ShouldEqual, pose.Float16)
	test.That(t, depth.Frames(), test.ShouldEqual, 1)
	test.That(t, depth.Frame(0).Data(), test.ShouldResemble, []float64{0, 1.5, 2.25, -0.5})

	out := filepath.Join(dir, "copy.npy")
	test.That(t, SaveDepth(out, depth), test.ShouldBeNil)
	written, err := os.ReadFile(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldResemble, raw)

	store, err := NewStore(dir, ViewTop, UnitsMeters, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, SaveJoints(store.JointPath(Train), constantJoints(t, 1, 2, 3, 4)), test.ShouldBeNil)
	data, err := store.Load(Train)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data.Depth.Frame(0).GetDepth(1, 1), test.ShouldEqual, -0.5)

	test.That(t, os.WriteFile(path, raw[:len(raw)-2], 0o600), test.ShouldBeNil)
	_, err = LoadDepth(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, os.WriteFile(path, []byte("not numpy"), 0o600), test.ShouldBeNil)
	_, err = LoadDepth(path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	root := t.TempDir()

	_, err := NewStore(root, "front", UnitsMeters, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewStore(root, ViewTop, Units("inches"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	store, err := NewStore(root, ViewTop, UnitsMeters, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, store.DepthPath(Train), test.ShouldEqual, filepath.Join(root, "depth_top_train.npy"))
	test.That(t, store.JointPath(Val), test.ShouldEqual, filepath.Join(root, "joint_top_val.npy"))

	train := &Data{Depth: constantDepth(t, 3, 8, 8, 2000), Joints: constantJoints(t, 3, 2, 4, 5, 2)}
	val := &Data{Depth: constantDepth(t, 2, 8, 8, 1000), Joints: constantJoints(t, 2, 2, 6, 7, 1)}
	test.That(t, store.Save(Train, train), test.ShouldBeNil)
	test.That(t, store.Save(Val, val), test.ShouldBeNil)

	t.Run("meters", func(t *testing.T) {
		tr, va, err := store.LoadTrainVal(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tr.Frames(), test.ShouldEqual, 3)
		test.That(t, va.Frames(), test.ShouldEqual, 2)
		test.That(t, tr.Depth.Frame(0).GetDepth(0, 0), test.ShouldEqual, 2000.0)
		test.That(t, tr.Joints.Dims(), test.ShouldEqual, 2)
		test.That(t, va.Joints.At(1, 1), test.ShouldResemble, []float64{6, 7})
	})

	t.Run("millimeters", func(t *testing.T) {
		mm := *store
		mm.Units = UnitsMillimeters
		tr, va, err := mm.LoadTrainVal(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tr.Depth.Frame(2).GetDepth(7, 7), test.ShouldEqual, 2.0)
		test.That(t, va.Depth.Frame(0).GetDepth(0, 0), test.ShouldEqual, 1.0)
	})

	t.Run("auto", func(t *testing.T) {
		auto := *store
		auto.Units = UnitsAuto
		tr, va, err := auto.LoadTrainVal(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tr.Depth.Frame(0).GetDepth(0, 0), test.ShouldEqual, 2.0)
		test.That(t, va.Depth.Frame(0).GetDepth(0, 0), test.ShouldEqual, 1.0)
		test.That(t, logs.FilterMessageSnippet("millimetres").Len(), test.ShouldEqual, 1)
	})

	t.Run("missing split", func(t *testing.T) {
		empty, err := NewStore(t.TempDir(), ViewSide, UnitsMeters, logger)
		test.That(t, err, test.ShouldBeNil)
		_, _, err = empty.LoadTrainVal(ctx)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := store.LoadTrainVal(canceled)
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	})
}

func TestSubsample(t *testing.T) {
	train := &Data{Depth: constantDepth(t, 40, 2, 2, 1), Joints: constantJoints(t, 40, 1, 0, 0)}
	for i := 0; i < 40; i++ {
		train.Joints.Set(i, 0, float64(i), 0)
	}
	val := &Data{Depth: constantDepth(t, 600, 2, 2, 1), Joints: constantJoints(t, 600, 1, 0, 0)}
	for i := 0; i < 600; i++ {
		val.Joints.Set(i, 0, float64(i), 0)
	}

	smallTrain, smallVal, err := Subsample(rand.New(rand.NewSource(1)), train, val)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, smallTrain.Frames(), test.ShouldEqual, SmallFrames)
	test.That(t, smallVal.Frames(), test.ShouldEqual, SmallFrames)
	test.That(t, smallVal.Joints.At(0, 0)[0], test.ShouldEqual, 500.0)
	test.That(t, smallVal.Joints.At(22, 0)[0], test.ShouldEqual, 522.0)
	for i := 0; i < SmallFrames; i++ {
		test.That(t, smallTrain.Joints.At(i, 0)[0], test.ShouldBeBetweenOrEqual, 0.0, 39.0)
	}

	shortVal := &Data{Depth: constantDepth(t, 30, 2, 2, 1), Joints: constantJoints(t, 30, 1, 0, 0)}
	_, smallVal, err = Subsample(rand.New(rand.NewSource(1)), train, shortVal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, smallVal.Frames(), test.ShouldEqual, SmallFrames)

	empty := &Data{Depth: constantDepth(t, 0, 2, 2, 1), Joints: constantJoints(t, 0, 1, 0, 0)}
	_, _, err = Subsample(rand.New(rand.NewSource(1)), empty, val)
	test.That(t, err, test.ShouldNotBeNil)
}

func writePerson(t *testing.T, root string, person, frames int, labels float64) {
	t.Helper()
	depth := constantDepth(t, frames, SourceHeight, SourceWidth, 1000)
	test.That(t, SaveDepth(PersonPath(root, person, KindDepth, ViewTop), depth), test.ShouldBeNil)

	mask := constantDepth(t, frames, SourceHeight, SourceWidth, labels)
	for i := 0; i < frames; i++ {
		for y := 0; y < SourceHeight/2; y++ {
			for x := 0; x < SourceWidth; x++ {
				mask.Frame(i).Set(x, y, -1)
			}
		}
	}
	test.That(t, mask.SetDtype(tensor.Int32), test.ShouldBeNil)
	test.That(t, SaveDepth(PersonPath(root, person, KindPredicts, ViewTop), mask), test.ShouldBeNil)

	joints := tensor.New(tensor.WithShape(frames, 2, 4), tensor.WithBacking(make([]float64, frames*2*4)))
	data := joints.Data().([]float64)
	for k := 0; k < frames*2; k++ {
		copy(data[k*4:], []float64{160, 120, 2000, float64(person)})
	}
	test.That(t, WriteTensor(PersonPath(root, person, KindJoints, ViewTop), joints, joints.Dtype()), test.ShouldBeNil)
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	writePerson(t, root, 0, 1, 3)
	writePerson(t, root, 1, 2, 0)

	t.Run("scale", func(t *testing.T) {
		out := t.TempDir()
		opts := DefaultPrepareOptions(root, out, ViewTop, logger)
		opts.ValPersons = []bool{true, false}
		test.That(t, Prepare(ctx, opts), test.ShouldBeNil)

		store, err := NewStore(out, ViewTop, UnitsMeters, logger)
		test.That(t, err, test.ShouldBeNil)
		val, err := store.Load(Val)
		test.That(t, err, test.ShouldBeNil)
		train, err := store.Load(Train)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, val.Frames(), test.ShouldEqual, 1)
		test.That(t, train.Frames(), test.ShouldEqual, 2)
		test.That(t, train.Depth.Dtype(), test.ShouldEqual, pose.Float16)
		test.That(t, train.Depth.Width(), test.ShouldEqual, 224)
		test.That(t, train.Depth.Height(), test.ShouldEqual, 224)
		test.That(t, train.Depth.Frame(1).GetDepth(100, 10), test.ShouldEqual, 0.0)
		test.That(t, train.Depth.Frame(1).GetDepth(100, 200), test.ShouldAlmostEqual, 1.0, 1e-3)

		test.That(t, train.Joints.Dims(), test.ShouldEqual, 3)
		c := train.Joints.At(0, 1)
		test.That(t, c[0], test.ShouldAlmostEqual, 112)
		test.That(t, c[1], test.ShouldAlmostEqual, 112)
		test.That(t, c[2], test.ShouldAlmostEqual, 2)
	})

	t.Run("crop", func(t *testing.T) {
		out := t.TempDir()
		opts := DefaultPrepareOptions(root, out, ViewTop, logger)
		opts.ValPersons = []bool{false, false}
		opts.Scale = false
		test.That(t, Prepare(ctx, opts), test.ShouldBeNil)

		store, err := NewStore(out, ViewTop, UnitsMeters, logger)
		test.That(t, err, test.ShouldBeNil)
		train, err := store.Load(Train)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, train.Frames(), test.ShouldEqual, 3)
		test.That(t, train.Joints.At(2, 0)[0], test.ShouldEqual, 112.0)
		test.That(t, train.Joints.At(2, 0)[1], test.ShouldEqual, 104.0)
		test.That(t, train.Depth.Frame(0).GetDepth(0, 0), test.ShouldEqual, 0.0)
		test.That(t, train.Depth.Frame(0).GetDepth(0, 223), test.ShouldAlmostEqual, 1.0, 1e-6)
		_, err = os.Stat(store.DepthPath(Val))
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	})

	t.Run("crop outside frame", func(t *testing.T) {
		opts := DefaultPrepareOptions(root, t.TempDir(), ViewTop, logger)
		opts.ValPersons = []bool{false, false}
		opts.Scale = false
		opts.CropOrigin = image.Pt(200, 0)
		test.That(t, Prepare(ctx, opts), test.ShouldNotBeNil)
	})

	t.Run("missing person", func(t *testing.T) {
		opts := DefaultPrepareOptions(root, t.TempDir(), ViewTop, logger)
		test.That(t, Prepare(ctx, opts), test.ShouldNotBeNil)
	})
}

func TestMergeAndResize(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	for person, frames := range []int{2, 3} {
		depth := constantDepth(t, frames, 6, 8, float64(person+1))
		test.That(t, SaveDepth(PersonPath(root, person, KindDepth, ViewSide), depth), test.ShouldBeNil)
		joints := constantJoints(t, frames, 2, float64(person), 0, 1)
		test.That(t, SaveJoints(PersonPath(root, person, KindJoints, ViewSide), joints), test.ShouldBeNil)
	}

	out := t.TempDir()
	test.That(t, Merge(ctx, root, out, ViewSide, []int{1, 0}, Train, logger), test.ShouldBeNil)
	store, err := NewStore(out, ViewSide, UnitsMeters, logger)
	test.That(t, err, test.ShouldBeNil)
	merged, err := store.Load(Train)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, merged.Frames(), test.ShouldEqual, 5)
	test.That(t, merged.Depth.Frame(0).GetDepth(0, 0), test.ShouldEqual, 2.0)
	test.That(t, merged.Depth.Frame(4).GetDepth(0, 0), test.ShouldEqual, 1.0)
	test.That(t, merged.Joints.At(0, 0)[0], test.ShouldEqual, 1.0)

	test.That(t, Merge(ctx, root, out, ViewSide, []int{0, 0}, Val, logger), test.ShouldNotBeNil)
	err = Merge(ctx, root, out, ViewSide, []int{0, 7}, Val, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "person 07")

	test.That(t, ResizeDir(ctx, out, 4, 3, logger), test.ShouldBeNil)
	resized, err := store.Load(Train)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resized.Depth.Width(), test.ShouldEqual, 4)
	test.That(t, resized.Depth.Height(), test.ShouldEqual, 3)
	test.That(t, resized.Depth.Frame(0).GetDepth(2, 1), test.ShouldAlmostEqual, 2.0, 1e-6)
	test.That(t, resized.Joints.Frames(), test.ShouldEqual, 5)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err = ResizeDir(canceled, out, 4, 3, logger)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}
