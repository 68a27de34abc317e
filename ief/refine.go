package ief

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
)

// Regressor is the corrective network: given an augmented input batch it predicts, per
// joint, the displacement from the current estimate toward the true position.
type Regressor interface {
	Predict(ctx context.Context, input *tensor.Dense) (*pose.Batch, error)
}

// Refiner runs Iterative Error Feedback: each step augments the depth images with heatmaps
// of the current estimate, asks the regressor for a correction, bounds it and applies it.
type Refiner struct {
	kernel *Kernel
	model  Regressor
	steps  int
	limit  float64
	logger logging.Logger
}

// NewRefiner returns a refiner running steps iterations with corrections capped at limit.
func NewRefiner(kernel *Kernel, model Regressor, steps int, limit float64, logger logging.Logger) (*Refiner, error) {
	if kernel == nil || model == nil {
		return nil, errors.New("refiner needs a heatmap kernel and a regressor")
	}
	if steps <= 0 {
		return nil, errors.Errorf("refiner needs at least one step, got %d", steps)
	}
	return &Refiner{kernel: kernel, model: model, steps: steps, limit: limit, logger: logger}, nil
}

// Refine returns the final estimate and the estimate after every step. initial is not
// modified.
func (r *Refiner) Refine(ctx context.Context, depth *pose.DepthBatch, initial *pose.Batch) (*pose.Batch, []*pose.Batch, error) {
	zero, err := pose.NewBatch(initial.Shape())
	if err != nil {
		return nil, nil, err
	}
	current := initial.Clone()
	history := make([]*pose.Batch, 0, r.steps)
	for step := 0; step < r.steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		x, err := Augment(ctx, depth, current, r.kernel)
		if err != nil {
			return nil, nil, err
		}
		predicted, err := r.model.Predict(ctx, x)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "step %d", step)
		}
		if err := predicted.CheckSameShape(current); err != nil {
			return nil, nil, errors.Wrapf(err, "step %d prediction", step)
		}
		nudge, err := BoundedCorrection(predicted, zero, r.limit)
		if err != nil {
			return nil, nil, err
		}
		current, err = current.Add(nudge)
		if err != nil {
			return nil, nil, err
		}
		history = append(history, current)
		r.logger.Debugw("refinement step", "step", step+1, "of", r.steps, "frames", current.Frames())
	}
	return current, history, nil
}
