// Package ief implements the Iterative Error Feedback support math: bounded corrections,
// Gaussian joint heatmaps and the batches and refinement loop built from them.
package ief

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/depthpose/pose"
)

// DefaultCorrectionLimit caps, in pixels, how far a single refinement step moves a joint.
const DefaultCorrectionLimit = 20.0

// NoLimit leaves correction magnitudes unclamped.
var NoLimit = math.Inf(1)

// BoundedCorrection returns, per joint, the error u = y - yt rescaled to length
// min(|u|, limit) with its direction kept; adding it to yt moves yt toward y. Joints with no
// error get an exactly zero correction.
func BoundedCorrection(y, yt *pose.Batch, limit float64) (*pose.Batch, error) {
	if err := y.CheckSameShape(yt); err != nil {
		return nil, err
	}
	if math.IsNaN(limit) || limit < 0 {
		return nil, errors.Errorf("correction limit must be a non-negative number, got %v", limit)
	}
	out, err := pose.NewBatch(y.Shape())
	if err != nil {
		return nil, err
	}
	for i := 0; i < y.Frames(); i++ {
		for j := 0; j < y.Joints(); j++ {
			u := floats.SubTo(out.At(i, j), y.At(i, j), yt.At(i, j))
			norm := floats.Norm(u, 2)
			if norm == 0 {
				continue
			}
			floats.Scale(math.Min(norm, limit)/norm, u)
		}
	}
	return out, nil
}
