package pose

import (
	"errors"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/rimage"
)

func TestBatchShape(t *testing.T) {
	_, err := NewBatch(Shape{Frames: 1, Joints: 15, Dims: 4})
	test.That(t, err, test.ShouldNotBeNil)

	b, err := NewBatch(Shape{Frames: 2, Joints: 3, Dims: 3})
	test.That(t, err, test.ShouldBeNil)
	b.Set(1, 2, 10, 20, 1.5)
	test.That(t, b.At(1, 2), test.ShouldResemble, []float64{10, 20, 1.5})
	test.That(t, b.Data()[len(b.Data())-1], test.ShouldEqual, 1.5)
	test.That(t, b.Vector(1, 2).Z, test.ShouldEqual, 1.5)
	test.That(t, b.Point(1, 2).X, test.ShouldEqual, 10.0)

	projected, err := b.Project(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, projected.Shape(), test.ShouldResemble, Shape{Frames: 2, Joints: 3, Dims: 2})
	test.That(t, projected.At(1, 2), test.ShouldResemble, []float64{10, 20})
	_, err = projected.Project(3)
	test.That(t, err, test.ShouldNotBeNil)

	err = b.CheckSameShape(projected)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
	_, err = b.Add(projected)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
}

func TestBatchTensorRoundTrip(t *testing.T) {
	backing := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	tens := tensor.New(tensor.WithShape(2, 2, 2), tensor.WithBacking(backing))
	b, err := BatchFromTensor(tens)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.At(1, 0), test.ShouldResemble, []float64{5, 6})

	out, err := b.Tensor()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Dtype(), test.ShouldEqual, tensor.Float32)
	test.That(t, []int(out.Shape()), test.ShouldResemble, []int{2, 2, 2})
	test.That(t, out.Data(), test.ShouldResemble, backing)

	_, err = BatchFromTensor(tensor.New(tensor.WithShape(2, 4), tensor.WithBacking(backing)))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBatchSliceSelectConcat(t *testing.T) {
	b, _ := NewBatch(Shape{Frames: 3, Joints: 1, Dims: 2})
	for i := 0; i < 3; i++ {
		b.Set(i, 0, float64(i), float64(i))
	}
	s, err := b.Slice(1, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Frames(), test.ShouldEqual, 2)
	test.That(t, s.At(0, 0), test.ShouldResemble, []float64{1, 1})
	_, err = b.Slice(2, 4)
	test.That(t, err, test.ShouldNotBeNil)

	sel, err := b.Select([]int{2, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sel.At(0, 0), test.ShouldResemble, []float64{2, 2})
	_, err = b.Select([]int{3})
	test.That(t, err, test.ShouldNotBeNil)

	all, err := Concat(s, sel)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all.Frames(), test.ShouldEqual, 4)
	test.That(t, all.At(3, 0), test.ShouldResemble, []float64{0, 0})

	moved, err := s.Add(s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moved.At(1, 0), test.ShouldResemble, []float64{4, 4})
	test.That(t, s.At(1, 0), test.ShouldResemble, []float64{2, 2})
}

func TestDepthBatch(t *testing.T) {
	db, err := NewDepthBatch(2, 2, 3)
	test.That(t, err, test.ShouldBeNil)
	db.Frame(1).Set(2, 1, 4)
	tens, err := db.Tensor()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tens.Data().([]float64)[11], test.ShouldEqual, 4.0)

	mean, ok := db.MeanNonZero()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mean, test.ShouldEqual, 4.0)

	db.Scale(0.5)
	test.That(t, db.Frame(1).GetDepth(2, 1), test.ShouldEqual, 2.0)

	one, err := db.Slice(1, 2)
	test.That(t, err, test.ShouldBeNil)
	both, err := ConcatDepth(one, one)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, both.Frames(), test.ShouldEqual, 2)
	test.That(t, both.Frame(0).GetDepth(2, 1), test.ShouldEqual, 2.0)

	other, _ := NewDepthBatch(1, 3, 3)
	_, err = ConcatDepth(one, other)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)

	stacked, err := DepthBatchFromMaps([]*rimage.DepthMap{rimage.NewEmptyDepthMap(3, 2), db.Frame(1)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stacked.Frame(1).GetDepth(2, 1), test.ShouldEqual, 2.0)

	ints := tensor.New(tensor.WithShape(1, 1, 2), tensor.WithBacking([]uint16{1000, 0}))
	fromInts, err := DepthBatchFromTensor(ints)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromInts.Frame(0).GetDepth(0, 0), test.ShouldEqual, 1000.0)
}

func TestTensorDtypes(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	for _, dtype := range []tensor.Dtype{
		tensor.Float64, tensor.Float32,
		tensor.Int, tensor.Int8, tensor.Int16, tensor.Int32, tensor.Int64,
		tensor.Uint, tensor.Uint8, tensor.Uint16, tensor.Uint32, tensor.Uint64,
	} {
		t.Run(dtype.String(), func(t *testing.T) {
			in, err := NewTensor(dtype, values, 2, 2, 2)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, in.Dtype(), test.ShouldEqual, dtype)

			db, err := DepthBatchFromTensor(in)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, db.Dtype(), test.ShouldEqual, dtype)
			out, err := db.Tensor()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, out.Dtype(), test.ShouldEqual, dtype)
			test.That(t, out.Data(), test.ShouldResemble, in.Data())

			b, err := BatchFromTensor(in)
			test.That(t, err, test.ShouldBeNil)
			out, err = b.Tensor()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, out.Dtype(), test.ShouldEqual, dtype)
			test.That(t, out.Data(), test.ShouldResemble, in.Data())
		})
	}
}

func TestFloat16Dtype(t *testing.T) {
	db, err := NewDepthBatch(1, 1, 3)
	test.That(t, err, test.ShouldBeNil)
	copy(db.Frame(0).Data(), []float64{1.5, 2.0001, -0.25})
	test.That(t, db.SetDtype(Float16), test.ShouldBeNil)
	test.That(t, db.Dtype(), test.ShouldEqual, Float16)

	out, err := db.Tensor()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Dtype(), test.ShouldEqual, tensor.Float32)
	test.That(t, out.Data(), test.ShouldResemble, []float32{1.5, 2, -0.25})

	test.That(t, db.SetDtype(tensor.Complex128), test.ShouldNotBeNil)
	test.That(t, db.Dtype(), test.ShouldEqual, Float16)
	_, err = NewTensor(tensor.Bool, []float64{1}, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Float64s(tensor.New(tensor.WithShape(1), tensor.WithBacking([]bool{true})))
	test.That(t, err, test.ShouldNotBeNil)
}
