package rimage

import (
	"image"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"go.viam.com/depthpose/utils"
)

// MaxFallbackDepth is the largest plausible mean depth, in metres, of a normalized depth image.
// Larger means indicate data that is still in millimetres or otherwise malformed.
const MaxFallbackDepth = 4.0

var (
	// ErrNoDepthReadings is returned when a fallback depth is needed but no pixel has a reading.
	ErrNoDepthReadings = errors.New("depth image has no nonzero readings")
	// ErrImplausibleDepth is returned when the mean nonzero depth exceeds MaxFallbackDepth.
	ErrImplausibleDepth = errors.New("mean depth is implausibly large")
)

// DepthMap is a row-major grid of distances from the camera. Zero means no reading.
type DepthMap struct {
	width  int
	height int

	data []float64
}

// NewEmptyDepthMap returns a width x height depth map with no readings.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
}

// NewDepthMapFromData wraps data, which is shared and not copied, as a depth map.
func NewDepthMapFromData(width, height int, data []float64) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad width or height for depth map %v %v", width, height)
	}
	if len(data) != width*height {
		return nil, errors.Errorf("depth map %dx%d needs %d values, got %d", width, height, width*height, len(data))
	}
	return &DepthMap{width: width, height: height, data: data}, nil
}

// Width returns the width in pixels.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height in pixels.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle covering the map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// Data returns the row-major backing slice.
func (dm *DepthMap) Data() []float64 {
	return dm.data
}

// GetDepth returns the depth at column x, row y.
func (dm *DepthMap) GetDepth(x, y int) float64 {
	return dm.data[y*dm.width+x]
}

// GetDepthClamped truncates (x, y) to integers, clamps them into the image and returns the
// depth found there.
func (dm *DepthMap) GetDepthClamped(x, y float64) float64 {
	return dm.GetDepth(utils.ClampIndex(x, dm.width), utils.ClampIndex(y, dm.height))
}

// Set sets the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, val float64) {
	dm.data[y*dm.width+x] = val
}

// Clone returns a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	data := make([]float64, len(dm.data))
	copy(data, dm.data)
	return &DepthMap{width: dm.width, height: dm.height, data: data}
}

// Scale multiplies every reading by f in place.
func (dm *DepthMap) Scale(f float64) {
	for i := range dm.data {
		dm.data[i] *= f
	}
}

// MinMax returns the smallest and largest values over all pixels, zeros included.
func (dm *DepthMap) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, z := range dm.data {
		lo = math.Min(lo, z)
		hi = math.Max(hi, z)
	}
	return lo, hi
}

// MeanNonZero returns the mean of all nonzero readings over the given maps. The boolean is
// false when there is no reading at all.
func MeanNonZero(maps ...*DepthMap) (float64, bool) {
	var (
		total float64
		num   int
	)
	for _, dm := range maps {
		for _, z := range dm.data {
			if z == 0 {
				continue
			}
			total += z
			num++
		}
	}
	if num == 0 {
		return 0, false
	}
	return total / float64(num), true
}

// CheckFallbackDepth validates a mean nonzero depth for use in place of missing readings.
func CheckFallbackDepth(mean float64, ok bool) error {
	if !ok {
		return ErrNoDepthReadings
	}
	if mean > MaxFallbackDepth {
		return errors.Wrapf(ErrImplausibleDepth, "mean %f > %f", mean, MaxFallbackDepth)
	}
	return nil
}

// Crop returns a copy of the pixels inside r, which must lie within the map.
func (dm *DepthMap) Crop(r image.Rectangle) (*DepthMap, error) {
	if r.Empty() || !r.In(dm.Bounds()) {
		return nil, errors.Errorf("crop %v is outside depth map bounds %v", r, dm.Bounds())
	}
	out := NewEmptyDepthMap(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		src := dm.data[(r.Min.Y+y)*dm.width+r.Min.X : (r.Min.Y+y)*dm.width+r.Max.X]
		copy(out.data[y*out.width:(y+1)*out.width], src)
	}
	return out, nil
}

// Resize returns the map bilinearly resampled to width x height. Readings are quantized to
// 16 bits relative to the largest reading while resampling.
func (dm *DepthMap) Resize(width, height int) *DepthMap {
	out := NewEmptyDepthMap(width, height)
	_, hi := dm.MinMax()
	if hi <= 0 {
		return out
	}
	toGray := math.MaxUint16 / hi

	gray := image.NewGray16(dm.Bounds())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			v := uint16(math.Round(math.Max(dm.GetDepth(x, y), 0) * toGray))
			i := gray.PixOffset(x, y)
			gray.Pix[i] = uint8(v >> 8)
			gray.Pix[i+1] = uint8(v)
		}
	}

	resized, ok := resize.Resize(uint(width), uint(height), gray, resize.Bilinear).(*image.Gray16)
	if !ok {
		// resize keeps Gray16 inputs as Gray16
		panic(errors.New("unexpected image type from resize"))
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Set(x, y, float64(resized.Gray16At(x, y).Y)/toGray)
		}
	}
	return out
}
