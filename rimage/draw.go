package rimage

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// JointColor returns a distinct, fully saturated color for joint j of numJoints.
func JointColor(j, numJoints int) color.Color {
	if numJoints <= 0 {
		numJoints = 1
	}
	return colorful.Hsv(360*float64(j)/float64(numJoints), 1, 1)
}

// ToGray min-max normalizes the map to 0..255 over all pixels, zeros included, and
// equalizes the histogram of the result.
func ToGray(dm *DepthMap) *image.Gray {
	gray := image.NewGray(dm.Bounds())
	lo, hi := dm.MinMax()
	span := hi - lo
	if span > 0 {
		for y := 0; y < dm.Height(); y++ {
			for x := 0; x < dm.Width(); x++ {
				gray.SetGray(x, y, color.Gray{uint8((dm.GetDepth(x, y) - lo) * 255 / span)})
			}
		}
	}
	return EqualizeHist(gray)
}

// EqualizeHist spreads the intensity histogram of a gray image over the full 0..255 range.
func EqualizeHist(src *image.Gray) *image.Gray {
	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}
	total := len(src.Pix)
	cdfMin := 0
	for _, n := range hist {
		if n != 0 {
			cdfMin = n
			break
		}
	}
	out := image.NewGray(src.Bounds())
	if total == cdfMin {
		copy(out.Pix, src.Pix)
		return out
	}

	var lut [256]uint8
	cdf := 0
	for v, n := range hist {
		cdf += n
		if cdf < cdfMin {
			continue
		}
		lut[v] = uint8(math.Round(float64(cdf-cdfMin) * 255 / float64(total-cdfMin)))
	}
	for i, v := range src.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// DrawJoints draws a filled circle of the given radius at every joint.
func DrawJoints(img image.Image, joints []r2.Point, radius float64, c color.Color) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetColor(c)
	for _, p := range joints {
		dc.DrawCircle(p.X, p.Y, radius)
		dc.Fill()
	}
	return dc.Image()
}

// DrawCorrections draws, for every joint, a line from the joint to the joint moved by its
// correction.
func DrawCorrections(img image.Image, joints, corrections []r2.Point, c color.Color, width float64) (image.Image, error) {
	if len(joints) != len(corrections) {
		return nil, errors.Errorf("have %d joints but %d corrections", len(joints), len(corrections))
	}
	dc := gg.NewContextForImage(img)
	dc.SetColor(c)
	dc.SetLineWidth(width)
	for i, p := range joints {
		q := p.Add(corrections[i])
		dc.DrawLine(p.X, p.Y, q.X, q.Y)
		dc.Stroke()
	}
	return dc.Image(), nil
}

// SumDepthMaps adds maps of equal size pixel by pixel.
func SumDepthMaps(maps ...*DepthMap) (*DepthMap, error) {
	if len(maps) == 0 {
		return nil, errors.New("no depth maps to sum")
	}
	out := NewEmptyDepthMap(maps[0].Width(), maps[0].Height())
	for _, dm := range maps {
		if dm.Bounds() != out.Bounds() {
			return nil, errors.Errorf("depth map sizes differ %v != %v", dm.Bounds(), out.Bounds())
		}
		for i, z := range dm.data {
			out.data[i] += z
		}
	}
	return out, nil
}

// WriteImageToFile writes img to path, creating missing directories. The format is
// chosen from the file extension.
func WriteImageToFile(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return imaging.Save(img, path)
}
