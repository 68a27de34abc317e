// Package pose defines fixed-shape joint and depth batches exchanged by the pipeline.
package pose

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// JointNames are the ITOP skeleton joints, in dataset order.
var JointNames = []string{
	"HEAD", "NECK", "LEFT_SHOULDER", "RIGHT_SHOULDER",
	"LEFT_ELBOW", "RIGHT_ELBOW", "LEFT_HAND", "RIGHT_HAND",
	"TORSO", "LEFT_HIP", "RIGHT_HIP", "LEFT_KNEE",
	"RIGHT_KNEE", "LEFT_FOOT", "RIGHT_FOOT",
}

// NumJoints is the number of joints in the ITOP skeleton.
var NumJoints = len(JointNames)

// ErrShapeMismatch is returned when two batches that must agree in shape do not.
var ErrShapeMismatch = errors.New("shape mismatch")

// Shape is the declared shape of a Batch.
type Shape struct {
	Frames int
	Joints int
	Dims   int
}

// Batch holds frames x joints x dims coordinates in row-major order. Pixel coordinates are
// (column, row[, depth]); world coordinates are (x, y, z).
type Batch struct {
	shape Shape
	dtype tensor.Dtype
	data  []float64
}

// NewBatch returns a zeroed batch of the given shape.
func NewBatch(shape Shape) (*Batch, error) {
	if shape.Frames < 0 || shape.Joints <= 0 || shape.Dims < 2 || shape.Dims > 3 {
		return nil, errors.Errorf("invalid joint batch shape %+v", shape)
	}
	return &Batch{
		shape: shape,
		dtype: tensor.Float64,
		data:  make([]float64, shape.Frames*shape.Joints*shape.Dims),
	}, nil
}

// BatchFromTensor converts a frames x joints x dims tensor. The tensor's dtype is remembered
// so Tensor can write it back unchanged.
func BatchFromTensor(t *tensor.Dense) (*Batch, error) {
	shape := t.Shape()
	if len(shape) != 3 {
		return nil, errors.Errorf("joint tensor must have 3 dimensions, got shape %v", shape)
	}
	b, err := NewBatch(Shape{Frames: shape[0], Joints: shape[1], Dims: shape[2]})
	if err != nil {
		return nil, err
	}
	data, err := Float64s(t)
	if err != nil {
		return nil, err
	}
	copy(b.data, data)
	b.dtype = t.Dtype()
	return b, nil
}

// Tensor returns the batch as a frames x joints x dims tensor in the batch's dtype.
func (b *Batch) Tensor() (*tensor.Dense, error) {
	return NewTensor(b.dtype, b.data, b.shape.Frames, b.shape.Joints, b.shape.Dims)
}

// Dtype returns the dtype Tensor writes.
func (b *Batch) Dtype() tensor.Dtype {
	return b.dtype
}

// SetDtype changes the dtype Tensor writes.
func (b *Batch) SetDtype(dtype tensor.Dtype) error {
	if err := CheckDtype(dtype); err != nil {
		return err
	}
	b.dtype = dtype
	return nil
}

// Shape returns the batch's shape.
func (b *Batch) Shape() Shape {
	return b.shape
}

// Frames returns the number of frames.
func (b *Batch) Frames() int {
	return b.shape.Frames
}

// Joints returns the number of joints per frame.
func (b *Batch) Joints() int {
	return b.shape.Joints
}

// Dims returns the number of coordinates per joint.
func (b *Batch) Dims() int {
	return b.shape.Dims
}

// Data returns the row-major backing slice.
func (b *Batch) Data() []float64 {
	return b.data
}

// SameShape returns whether both batches have identical shapes.
func (b *Batch) SameShape(other *Batch) bool {
	return b.shape == other.shape
}

// CheckSameShape returns an ErrShapeMismatch error unless both batches have identical shapes.
func (b *Batch) CheckSameShape(other *Batch) error {
	if !b.SameShape(other) {
		return errors.Wrapf(ErrShapeMismatch, "%+v != %+v", b.shape, other.shape)
	}
	return nil
}

// At returns the coordinates of joint j in frame i. The slice aliases the batch.
func (b *Batch) At(i, j int) []float64 {
	start := (i*b.shape.Joints + j) * b.shape.Dims
	return b.data[start : start+b.shape.Dims : start+b.shape.Dims]
}

// Set overwrites the coordinates of joint j in frame i.
func (b *Batch) Set(i, j int, coords ...float64) {
	copy(b.At(i, j), coords)
}

// Point returns joint j of frame i as a 2D pixel point.
func (b *Batch) Point(i, j int) r2.Point {
	c := b.At(i, j)
	return r2.Point{X: c[0], Y: c[1]}
}

// Points returns the joints of frame i as 2D pixel points.
func (b *Batch) Points(i int) []r2.Point {
	pts := make([]r2.Point, b.shape.Joints)
	for j := range pts {
		pts[j] = b.Point(i, j)
	}
	return pts
}

// Vector returns joint j of frame i as a 3-vector; a 2D joint has Z = 0.
func (b *Batch) Vector(i, j int) r3.Vector {
	c := b.At(i, j)
	v := r3.Vector{X: c[0], Y: c[1]}
	if len(c) == 3 {
		v.Z = c[2]
	}
	return v
}

// Slice returns a copy of frames [from, to).
func (b *Batch) Slice(from, to int) (*Batch, error) {
	if from < 0 || to > b.shape.Frames || from > to {
		return nil, errors.Errorf("frame range [%d, %d) outside batch of %d frames", from, to, b.shape.Frames)
	}
	stride := b.shape.Joints * b.shape.Dims
	out := &Batch{
		shape: Shape{Frames: to - from, Joints: b.shape.Joints, Dims: b.shape.Dims},
		dtype: b.dtype,
		data:  make([]float64, (to-from)*stride),
	}
	copy(out.data, b.data[from*stride:to*stride])
	return out, nil
}

// Select returns a copy holding the given frames in order.
func (b *Batch) Select(frames []int) (*Batch, error) {
	stride := b.shape.Joints * b.shape.Dims
	out := &Batch{
		shape: Shape{Frames: len(frames), Joints: b.shape.Joints, Dims: b.shape.Dims},
		dtype: b.dtype,
		data:  make([]float64, len(frames)*stride),
	}
	for k, i := range frames {
		if i < 0 || i >= b.shape.Frames {
			return nil, errors.Errorf("frame %d outside batch of %d frames", i, b.shape.Frames)
		}
		copy(out.data[k*stride:(k+1)*stride], b.data[i*stride:(i+1)*stride])
	}
	return out, nil
}

// Project returns a copy keeping only the first dims coordinates of every joint.
func (b *Batch) Project(dims int) (*Batch, error) {
	if dims < 2 || dims > b.shape.Dims {
		return nil, errors.Errorf("cannot project %d coordinates to %d", b.shape.Dims, dims)
	}
	out, err := NewBatch(Shape{Frames: b.shape.Frames, Joints: b.shape.Joints, Dims: dims})
	if err != nil {
		return nil, err
	}
	out.dtype = b.dtype
	for i := 0; i < b.shape.Frames; i++ {
		for j := 0; j < b.shape.Joints; j++ {
			copy(out.At(i, j), b.At(i, j)[:dims])
		}
	}
	return out, nil
}

// Add returns b + other, e.g. an estimate moved by its corrections.
func (b *Batch) Add(other *Batch) (*Batch, error) {
	if err := b.CheckSameShape(other); err != nil {
		return nil, err
	}
	out := b.Clone()
	for i, v := range other.data {
		out.data[i] += v
	}
	return out, nil
}

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	data := make([]float64, len(b.data))
	copy(data, b.data)
	return &Batch{shape: b.shape, dtype: b.dtype, data: data}
}

// Concat stacks batches of equal joints and dims along the frame axis.
func Concat(batches ...*Batch) (*Batch, error) {
	if len(batches) == 0 {
		return nil, errors.New("nothing to concatenate")
	}
	shape := batches[0].shape
	shape.Frames = 0
	for _, b := range batches {
		if b.shape.Joints != shape.Joints || b.shape.Dims != shape.Dims {
			return nil, errors.Wrapf(ErrShapeMismatch, "cannot concatenate %+v with %+v", b.shape, batches[0].shape)
		}
		shape.Frames += b.shape.Frames
	}
	out := &Batch{shape: shape, dtype: batches[0].dtype, data: make([]float64, 0, shape.Frames*shape.Joints*shape.Dims)}
	for _, b := range batches {
		out.data = append(out.data, b.data...)
	}
	return out, nil
}
