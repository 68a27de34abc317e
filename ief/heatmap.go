package ief

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/pose"
	"go.viam.com/depthpose/utils"
)

// kernelVariance is the per-axis variance, in squared pixels, of the heatmap Gaussian.
const kernelVariance = 50

// Kernel is a 2H x 2W isotropic Gaussian density centered at (H, W) and divided by its
// value range, so its peak is 1. Any H x W window of it is the heatmap of a joint at the
// matching offset. A Kernel is never modified after NewKernel returns and may be shared.
type Kernel struct {
	height, width int
	data          *mat.Dense
}

// NewKernel builds the kernel for height x width images.
func NewKernel(height, width int) (*Kernel, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.Errorf("invalid heatmap size %dx%d", width, height)
	}
	cov := mat.NewSymDense(2, []float64{kernelVariance, 0, 0, kernelVariance})
	normal, ok := distmv.NewNormal([]float64{float64(height), float64(width)}, cov, nil)
	if !ok {
		return nil, errors.New("heatmap covariance is not positive definite")
	}

	rows, cols := 2*height, 2*width
	grid := utils.Meshgrid(utils.Arange(rows), utils.Arange(cols))
	probs := make([]float64, rows*cols)
	for i := range probs {
		probs[i] = normal.Prob(grid.RawRowView(i))
	}
	data := mat.NewDense(rows, cols, probs)
	data.Scale(1/(mat.Max(data)-mat.Min(data)), data)
	return &Kernel{height: height, width: width, data: data}, nil
}

// Height returns the height of the images the kernel serves.
func (k *Kernel) Height() int {
	return k.height
}

// Width returns the width of the images the kernel serves.
func (k *Kernel) Width() int {
	return k.width
}

// At returns the kernel value at row r, column c of the 2H x 2W grid.
func (k *Kernel) At(r, c int) float64 {
	return k.data.At(r, c)
}

// JointHeatmap writes into dst, an H x W row-major plane with the given stride between
// consecutive pixels, the kernel window centered on the joint at (col, row). The window
// spans kernel rows [H-row, 2H-row) and columns [W-col, 2W-col), with offsets truncated
// toward zero. When the window does not fit inside the kernel dst is left untouched.
// It reports whether the heatmap was written.
func (k *Kernel) JointHeatmap(dst []float64, stride int, col, row float64) bool {
	rowStart := int(float64(k.height) - row)
	colStart := int(float64(k.width) - col)
	if rowStart < 0 || rowStart+k.height > 2*k.height || colStart < 0 || colStart+k.width > 2*k.width {
		return false
	}
	raw := k.data.RawMatrix()
	for r := 0; r < k.height; r++ {
		src := raw.Data[(rowStart+r)*raw.Stride+colStart:]
		for c := 0; c < k.width; c++ {
			dst[(r*k.width+c)*stride] = src[c]
		}
	}
	return true
}

// Heatmaps returns a frames x H x W x joints tensor holding one heatmap per joint, placed at
// the joint's pixel position.
func Heatmaps(ctx context.Context, joints *pose.Batch, kernel *Kernel) (*tensor.Dense, error) {
	return stamp(ctx, nil, joints, kernel)
}

// Augment returns the frames x H x W x (1+joints) network input: channel 0 is the depth
// image and channel 1+j the heatmap of joint j.
func Augment(ctx context.Context, depth *pose.DepthBatch, joints *pose.Batch, kernel *Kernel) (*tensor.Dense, error) {
	if depth.Frames() != joints.Frames() {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "%d depth frames but %d joint frames", depth.Frames(), joints.Frames())
	}
	if depth.Height() != kernel.height || depth.Width() != kernel.width {
		return nil, errors.Errorf("depth images are %dx%d but the heatmap kernel is for %dx%d",
			depth.Width(), depth.Height(), kernel.width, kernel.height)
	}
	return stamp(ctx, depth, joints, kernel)
}

func stamp(ctx context.Context, depth *pose.DepthBatch, joints *pose.Batch, kernel *Kernel) (*tensor.Dense, error) {
	offset := 0
	if depth != nil {
		offset = 1
	}
	n, h, w, k := joints.Frames(), kernel.height, kernel.width, joints.Joints()
	channels := offset + k
	frameSize := h * w * channels
	data := make([]float64, n*frameSize)

	err := utils.ParallelForEach(ctx, n, func(i int) error {
		frame := data[i*frameSize : (i+1)*frameSize]
		if depth != nil {
			for p, z := range depth.Frame(i).Data() {
				frame[p*channels] = z
			}
		}
		for j := 0; j < k; j++ {
			c := joints.At(i, j)
			kernel.JointHeatmap(frame[offset+j:], channels, c[0], c[1])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(n, h, w, channels), tensor.WithBacking(data)), nil
}
