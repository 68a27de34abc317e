package utils

import "gonum.org/v1/gonum/mat"

// Arange returns 0, 1, ..., n-1.
func Arange(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// Meshgrid generates an n-dimensional grid from the values of each axis. The result has one
// row per grid point and one column per axis; the last axis varies fastest. Every axis must
// have at least one value.
func Meshgrid(axes ...[]float64) *mat.Dense {
	dims := make([]int, len(axes))
	for i, axis := range axes {
		dims[i] = len(axis)
	}
	out := mat.NewDense(size(dims), len(axes), nil)
	sub := make([]int, len(axes))
	for i := 0; i < size(dims); i++ {
		SubFor(sub, i, dims)
		for j, k := range sub {
			out.Set(i, j, axes[j][k])
		}
	}
	return out
}

func size(dims []int) int {
	n := 1
	for _, v := range dims {
		n *= v
	}
	return n
}

// SubFor constructs the multi-dimensional subscript for the input linear index.
// Dims specifies the maximum size in each dimension.
//
// If sub is non-nil the result is stored in-place into sub. If it is nil a new
// slice of the appropriate length is allocated.
func SubFor(sub []int, idx int, dims []int) []int {
	for _, v := range dims {
		if v <= 0 {
			panic("bad dims")
		}
	}
	if sub == nil {
		sub = make([]int, len(dims))
	}
	if len(sub) != len(dims) {
		panic("size mismatch")
	}
	if idx < 0 || idx >= size(dims) {
		panic("bad index")
	}
	for i := len(dims) - 1; i >= 0; i-- {
		sub[i] = idx % dims[i]
		idx /= dims[i]
	}
	return sub
}
