package pose

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/rimage"
)

// DepthBatch holds frames x height x width depth images in row-major order.
type DepthBatch struct {
	frames, height, width int
	dtype                 tensor.Dtype
	data                  []float64
}

// NewDepthBatch returns a batch of frames images with no readings.
func NewDepthBatch(frames, height, width int) (*DepthBatch, error) {
	if frames < 0 || height <= 0 || width <= 0 {
		return nil, errors.Errorf("invalid depth batch shape (%d, %d, %d)", frames, height, width)
	}
	return &DepthBatch{
		frames: frames,
		height: height,
		width:  width,
		dtype:  tensor.Float64,
		data:   make([]float64, frames*height*width),
	}, nil
}

// DepthBatchFromTensor converts a frames x height x width tensor.
func DepthBatchFromTensor(t *tensor.Dense) (*DepthBatch, error) {
	shape := t.Shape()
	if len(shape) != 3 {
		return nil, errors.Errorf("depth tensor must have 3 dimensions, got shape %v", shape)
	}
	db, err := NewDepthBatch(shape[0], shape[1], shape[2])
	if err != nil {
		return nil, err
	}
	data, err := Float64s(t)
	if err != nil {
		return nil, err
	}
	copy(db.data, data)
	db.dtype = t.Dtype()
	return db, nil
}

// DepthBatchFromMaps stacks equally sized depth maps.
func DepthBatchFromMaps(maps []*rimage.DepthMap) (*DepthBatch, error) {
	if len(maps) == 0 {
		return nil, errors.New("no depth maps to stack")
	}
	db, err := NewDepthBatch(len(maps), maps[0].Height(), maps[0].Width())
	if err != nil {
		return nil, err
	}
	for i, dm := range maps {
		if dm.Width() != db.width || dm.Height() != db.height {
			return nil, errors.Wrapf(ErrShapeMismatch, "depth map %d is %dx%d, want %dx%d",
				i, dm.Width(), dm.Height(), db.width, db.height)
		}
		copy(db.data[i*db.frameSize():(i+1)*db.frameSize()], dm.Data())
	}
	return db, nil
}

// Tensor returns the batch as a frames x height x width tensor in the batch's dtype.
func (db *DepthBatch) Tensor() (*tensor.Dense, error) {
	return NewTensor(db.dtype, db.data, db.frames, db.height, db.width)
}

// Dtype returns the dtype Tensor writes.
func (db *DepthBatch) Dtype() tensor.Dtype {
	return db.dtype
}

// SetDtype changes the dtype Tensor writes.
func (db *DepthBatch) SetDtype(dtype tensor.Dtype) error {
	if err := CheckDtype(dtype); err != nil {
		return err
	}
	db.dtype = dtype
	return nil
}

// Frames returns the number of images.
func (db *DepthBatch) Frames() int {
	return db.frames
}

// Height returns the image height in pixels.
func (db *DepthBatch) Height() int {
	return db.height
}

// Width returns the image width in pixels.
func (db *DepthBatch) Width() int {
	return db.width
}

func (db *DepthBatch) frameSize() int {
	return db.height * db.width
}

// Frame returns image i. The map shares memory with the batch.
func (db *DepthBatch) Frame(i int) *rimage.DepthMap {
	dm, err := rimage.NewDepthMapFromData(db.width, db.height, db.data[i*db.frameSize():(i+1)*db.frameSize()])
	if err != nil {
		// sizes are validated at construction
		panic(err)
	}
	return dm
}

// Maps returns every frame as a depth map sharing memory with the batch.
func (db *DepthBatch) Maps() []*rimage.DepthMap {
	maps := make([]*rimage.DepthMap, db.frames)
	for i := range maps {
		maps[i] = db.Frame(i)
	}
	return maps
}

// MeanNonZero returns the mean of all nonzero readings in the batch.
func (db *DepthBatch) MeanNonZero() (float64, bool) {
	return rimage.MeanNonZero(db.Maps()...)
}

// Scale multiplies every reading by f in place.
func (db *DepthBatch) Scale(f float64) {
	for i := range db.data {
		db.data[i] *= f
	}
}

// Slice returns a copy of frames [from, to).
func (db *DepthBatch) Slice(from, to int) (*DepthBatch, error) {
	if from < 0 || to > db.frames || from > to {
		return nil, errors.Errorf("frame range [%d, %d) outside batch of %d frames", from, to, db.frames)
	}
	out := &DepthBatch{frames: to - from, height: db.height, width: db.width, dtype: db.dtype}
	out.data = make([]float64, out.frames*out.frameSize())
	copy(out.data, db.data[from*db.frameSize():to*db.frameSize()])
	return out, nil
}

// Select returns a copy holding the given frames in order.
func (db *DepthBatch) Select(frames []int) (*DepthBatch, error) {
	out := &DepthBatch{frames: len(frames), height: db.height, width: db.width, dtype: db.dtype}
	out.data = make([]float64, out.frames*out.frameSize())
	size := db.frameSize()
	for k, i := range frames {
		if i < 0 || i >= db.frames {
			return nil, errors.Errorf("frame %d outside batch of %d frames", i, db.frames)
		}
		copy(out.data[k*size:(k+1)*size], db.data[i*size:(i+1)*size])
	}
	return out, nil
}

// ConcatDepth stacks batches of equal image size along the frame axis.
func ConcatDepth(batches ...*DepthBatch) (*DepthBatch, error) {
	if len(batches) == 0 {
		return nil, errors.New("nothing to concatenate")
	}
	first := batches[0]
	out := &DepthBatch{height: first.height, width: first.width, dtype: first.dtype}
	for _, db := range batches {
		if db.height != first.height || db.width != first.width {
			return nil, errors.Wrapf(ErrShapeMismatch, "cannot concatenate %dx%d images with %dx%d images",
				db.width, db.height, first.width, first.height)
		}
		out.frames += db.frames
		out.data = append(out.data, db.data...)
	}
	return out, nil
}
