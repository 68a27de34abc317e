// Package visualize renders depth frames, joints, corrections and heatmaps to image files.
package visualize

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/pose"
	"go.viam.com/depthpose/rimage"
)

const (
	jointRadius     = 2
	correctionWidth = 2
	labelSize       = 10
)

var (
	correctedColor  = color.RGBA{R: 255, A: 255}
	correctionColor = color.RGBA{B: 255, A: 255}
	labelColor      = color.RGBA{G: 255, A: 255}
)

// Frame draws the joints of frame i over its equalized depth image, one color per joint.
// When eps is not nil the corrected joints are drawn too, in red.
func Frame(depth *pose.DepthBatch, joints, eps *pose.Batch, i int) (image.Image, error) {
	if joints.Frames() != depth.Frames() {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "%d depth frames but %d joint frames", depth.Frames(), joints.Frames())
	}
	if i < 0 || i >= depth.Frames() {
		return nil, errors.Errorf("frame %d outside batch of %d frames", i, depth.Frames())
	}
	var img image.Image = rimage.ToGray(depth.Frame(i))
	points := joints.Points(i)
	for j := range points {
		img = rimage.DrawJoints(img, points[j:j+1], jointRadius, rimage.JointColor(j, len(points)))
	}
	if eps == nil {
		return img, nil
	}
	if err := joints.CheckSameShape(eps); err != nil {
		return nil, err
	}
	moved := eps.Points(i)
	for j := range moved {
		moved[j] = points[j].Add(moved[j])
	}
	return rimage.DrawJoints(img, moved, jointRadius, correctedColor), nil
}

// Corrections writes Frame for every frame to dir/<name>_<i>.jpg and returns the paths.
func Corrections(dir, name string, depth *pose.DepthBatch, joints, eps *pose.Batch) ([]string, error) {
	paths := make([]string, 0, depth.Frames())
	for i := 0; i < depth.Frames(); i++ {
		img, err := Frame(depth, joints, eps, i)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", name, i))
		if err := rimage.WriteImageToFile(path, img); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Heatmap renders frame i of an augmented network input: the sum of its heatmap channels,
// equalized, with a line from each current joint along its correction.
func Heatmap(x *tensor.Dense, joints, eps *pose.Batch, i int) (image.Image, error) {
	shape := x.Shape()
	if len(shape) != 4 || shape[3] < 2 {
		return nil, errors.Errorf("expected a frames x height x width x (1+joints) input, got shape %v", shape)
	}
	n, h, w, c := shape[0], shape[1], shape[2], shape[3]
	if i < 0 || i >= n {
		return nil, errors.Errorf("frame %d outside input of %d frames", i, n)
	}
	if err := joints.CheckSameShape(eps); err != nil {
		return nil, err
	}
	if joints.Frames() != n || joints.Joints() != c-1 {
		return nil, errors.Wrapf(pose.ErrShapeMismatch, "input has %d frames of %d joints, joints are %+v", n, c-1, joints.Shape())
	}
	data, err := pose.Float64s(x)
	if err != nil {
		return nil, err
	}

	frame := data[i*h*w*c : (i+1)*h*w*c]
	channels := make([]*rimage.DepthMap, c-1)
	for k := range channels {
		channels[k] = rimage.NewEmptyDepthMap(w, h)
	}
	for p := 0; p < h*w; p++ {
		for k, dm := range channels {
			dm.Set(p%w, p/w, frame[p*c+k+1])
		}
	}
	sum, err := rimage.SumDepthMaps(channels...)
	if err != nil {
		return nil, err
	}

	img, err := rimage.DrawCorrections(rimage.ToGray(sum), joints.Points(i), eps.Points(i), correctionColor, correctionWidth)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContextForImage(img)
	rimage.DrawString(dc, fmt.Sprintf("frame %d", i), image.Pt(2, 2), labelColor, labelSize)
	return dc.Image(), nil
}

// Heatmaps writes Heatmap for every frame to dir/<name>_hms_<i>.png and returns the paths.
func Heatmaps(dir, name string, x *tensor.Dense, joints, eps *pose.Batch) ([]string, error) {
	paths := make([]string, 0, joints.Frames())
	for i := 0; i < joints.Frames(); i++ {
		img, err := Heatmap(x, joints, eps, i)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_hms_%d.png", name, i))
		if err := rimage.WriteImageToFile(path, img); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
