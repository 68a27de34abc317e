// Package evaluation scores joint predictions against ground truth by their distance in
// world space.
package evaluation

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/depthpose/pose"
	"go.viam.com/depthpose/rimage"
	"go.viam.com/depthpose/rimage/transform"
)

// centimetersPerMeter converts world distances, which are in metres, for reporting.
const centimetersPerMeter = 100

// Distances returns a frames x joints matrix holding, in centimetres, the world-space
// distance between each true and predicted joint. Joint coordinates are (column, row) pixels;
// only their first two coordinates are used. The depth of each joint is read from its frame
// at the truncated pixel position clamped into the image, and a missing reading is replaced
// by the mean of all nonzero readings in depth. The world position uses the unclamped pixel
// coordinates.
func Distances(
	depth *pose.DepthBatch,
	truth, pred *pose.Batch,
	intrinsics *transform.ScaleCameraIntrinsics,
) (*mat.Dense, error) {
	if err := truth.CheckSameShape(pred); err != nil {
		return nil, err
	}
	if truth.Dims() < 2 {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "joints need pixel coordinates, have %d dims", truth.Dims())
	}
	if depth.Frames() != truth.Frames() {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "%d depth frames but %d joint frames", depth.Frames(), truth.Frames())
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if depth.Width() != intrinsics.Width || depth.Height() != intrinsics.Height {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "depth images are %dx%d but intrinsics describe %dx%d",
			depth.Width(), depth.Height(), intrinsics.Width, intrinsics.Height)
	}
	if truth.Frames() == 0 || truth.Joints() == 0 {
		return nil, errors.New("no joints to compare")
	}

	fallback, ok := depth.MeanNonZero()
	if ok {
		if err := rimage.CheckFallbackDepth(fallback, ok); err != nil {
			return nil, err
		}
	}
	lookup := func(dm *rimage.DepthMap, col, row float64) (float64, error) {
		z := dm.GetDepthClamped(col, row)
		if z != 0 {
			return z, nil
		}
		if !ok {
			return 0, rimage.ErrNoDepthReadings
		}
		return fallback, nil
	}

	dists := mat.NewDense(truth.Frames(), truth.Joints(), nil)
	for i := 0; i < truth.Frames(); i++ {
		frame := depth.Frame(i)
		for j := 0; j < truth.Joints(); j++ {
			t, p := truth.At(i, j), pred.At(i, j)
			zt, err := lookup(frame, t[0], t[1])
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d joint %d", i, j)
			}
			zp, err := lookup(frame, p[0], p[1])
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d joint %d prediction", i, j)
			}
			wt := intrinsics.PixelToPoint(t[0], t[1], zt)
			wp := intrinsics.PixelToPoint(p[0], p[1], zp)
			dists.Set(i, j, wt.Sub(wp).Norm()*centimetersPerMeter)
		}
	}
	return dists, nil
}
