package ief

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/pose"
)

// Batcher cuts a dataset into training batches for the corrective network. Each batch pairs
// the depth images augmented with heatmaps of the current estimates with the bounded
// corrections that move those estimates toward the targets.
type Batcher struct {
	depth   *pose.DepthBatch
	target  *pose.Batch
	current *pose.Batch
	kernel  *Kernel
	limit   float64
}

// NewBatcher validates that depth, target and current describe the same frames.
func NewBatcher(depth *pose.DepthBatch, target, current *pose.Batch, kernel *Kernel, limit float64) (*Batcher, error) {
	if err := target.CheckSameShape(current); err != nil {
		return nil, errors.Wrap(err, "target and current estimates differ")
	}
	if depth.Frames() != target.Frames() {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "%d depth frames but %d joint frames", depth.Frames(), target.Frames())
	}
	if kernel == nil {
		return nil, errors.New("heatmap kernel is required")
	}
	return &Batcher{depth: depth, target: target, current: current, kernel: kernel, limit: limit}, nil
}

// Depth returns the depth images.
func (b *Batcher) Depth() *pose.DepthBatch {
	return b.depth
}

// Current returns the current estimates the inputs are built from.
func (b *Batcher) Current() *pose.Batch {
	return b.current
}

// Len returns the number of frames.
func (b *Batcher) Len() int {
	return b.depth.Frames()
}

// Batch returns the augmented input and bounded corrections for frames [start, end).
func (b *Batcher) Batch(ctx context.Context, start, end int) (*tensor.Dense, *pose.Batch, error) {
	depth, err := b.depth.Slice(start, end)
	if err != nil {
		return nil, nil, err
	}
	target, err := b.target.Slice(start, end)
	if err != nil {
		return nil, nil, err
	}
	current, err := b.current.Slice(start, end)
	if err != nil {
		return nil, nil, err
	}
	x, err := Augment(ctx, depth, current, b.kernel)
	if err != nil {
		return nil, nil, err
	}
	eps, err := BoundedCorrection(target, current, b.limit)
	if err != nil {
		return nil, nil, err
	}
	return x, eps, nil
}

// Range is a half-open frame interval [Start, End).
type Range struct {
	Start, End int
}

// Ranges splits the frames into consecutive ranges of at most size frames.
func (b *Batcher) Ranges(size int) ([]Range, error) {
	if size <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", size)
	}
	var ranges []Range
	for start := 0; start < b.Len(); start += size {
		ranges = append(ranges, Range{Start: start, End: min(start+size, b.Len())})
	}
	return ranges, nil
}

// ForEach builds every batch of at most size frames in order and hands it to f.
func (b *Batcher) ForEach(ctx context.Context, size int, f func(r Range, x *tensor.Dense, eps *pose.Batch) error) error {
	ranges, err := b.Ranges(size)
	if err != nil {
		return err
	}
	for _, r := range ranges {
		x, eps, err := b.Batch(ctx, r.Start, r.End)
		if err != nil {
			return errors.Wrapf(err, "batch [%d, %d)", r.Start, r.End)
		}
		if err := f(r, x, eps); err != nil {
			return err
		}
	}
	return nil
}
