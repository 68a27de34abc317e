package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/depthpose/pose"
)

// ITOPCalibration is the pixel-to-metre scale constant of the ITOP depth camera.
const ITOPCalibration = 3.50666662e-3

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// ScaleCameraIntrinsics model a pinhole camera whose principal point is the image center and
// whose focal length is folded into a single scale constant C, so a pixel offset times depth
// times C is a metric offset.
type ScaleCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	C      float64 `json:"calibration"`
}

// NewITOPIntrinsics returns the intrinsics of ITOP frames resized to width x height.
func NewITOPIntrinsics(width, height int) *ScaleCameraIntrinsics {
	return &ScaleCameraIntrinsics{Width: width, Height: height, C: ITOPCalibration}
}

// CheckValid checks if the fields for ScaleCameraIntrinsics have valid inputs.
func (params *ScaleCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.C <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid calibration C = %#v", params.C))
	}
	return nil
}

// NewScaleCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into ScaleCameraIntrinsics.
func NewScaleCameraIntrinsicsFromJSONFile(jsonPath string) (*ScaleCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &ScaleCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return intrinsics, intrinsics.CheckValid()
}

// PixelToPoint transforms a pixel (column px, row py) with depth pz to camera-frame world
// coordinates. Rows grow downwards while world y grows upwards.
func (params *ScaleCameraIntrinsics) PixelToPoint(px, py, pz float64) r3.Vector {
	return r3.Vector{
		X: (px - float64(params.Width)/2) * params.C * pz,
		Y: -(py - float64(params.Height)/2) * params.C * pz,
		Z: pz,
	}
}

// PointToPixel projects a world point to (column, row, depth). The depth must be nonzero.
func (params *ScaleCameraIntrinsics) PointToPixel(p r3.Vector) (float64, float64, float64) {
	px := p.X/(p.Z*params.C) + float64(params.Width)/2
	py := -(p.Y / (p.Z * params.C)) + float64(params.Height)/2
	return px, py, p.Z
}

// PixelsToPoints converts a batch of (column, row, depth) joints to world coordinates.
func (params *ScaleCameraIntrinsics) PixelsToPoints(pixels *pose.Batch) (*pose.Batch, error) {
	return convertBatch(pixels, func(c []float64) []float64 {
		p := params.PixelToPoint(c[0], c[1], c[2])
		return []float64{p.X, p.Y, p.Z}
	})
}

// PointsToPixels converts a batch of world joints to (column, row, depth).
func (params *ScaleCameraIntrinsics) PointsToPixels(points *pose.Batch) (*pose.Batch, error) {
	for i := 0; i < points.Frames(); i++ {
		for j := 0; j < points.Joints(); j++ {
			if points.Dims() == 3 && points.At(i, j)[2] == 0 {
				return nil, errors.Errorf("frame %d joint %d has zero depth and cannot be projected", i, j)
			}
		}
	}
	return convertBatch(points, func(c []float64) []float64 {
		px, py, pz := params.PointToPixel(r3.Vector{X: c[0], Y: c[1], Z: c[2]})
		return []float64{px, py, pz}
	})
}

func convertBatch(in *pose.Batch, f func([]float64) []float64) (*pose.Batch, error) {
	if in.Dims() != 3 {
		return nil, errors.Errorf("need 3 coordinates per joint, have %d", in.Dims())
	}
	out, err := pose.NewBatch(in.Shape())
	if err != nil {
		return nil, err
	}
	for i := 0; i < in.Frames(); i++ {
		for j := 0; j < in.Joints(); j++ {
			out.Set(i, j, f(in.At(i, j))...)
		}
	}
	return out, nil
}
