package evaluation

import (
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FprintHistogram writes a text histogram of all distances to w, with bins buckets and bars
// at most width characters long.
func FprintHistogram(w io.Writer, dists *mat.Dense, bins, width int) error {
	if bins <= 0 || width <= 0 {
		return errors.Errorf("invalid histogram of %d bins and width %d", bins, width)
	}
	values := flatten(dists)
	if len(values) == 0 {
		return errors.New("no distances for histogram")
	}
	return histogram.Fprint(w, histogram.Hist(bins, values), histogram.Linear(width))
}

func flatten(dists *mat.Dense) []float64 {
	r, c := dists.Dims()
	values := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		values = append(values, dists.RawRowView(i)...)
	}
	return values
}
