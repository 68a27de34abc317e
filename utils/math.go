package utils

import "golang.org/x/exp/constraints"

// Clamp limits v to the closed range [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampIndex truncates a pixel coordinate toward zero and clamps it to [0, size-1].
func ClampIndex(v float64, size int) int {
	return Clamp(int(v), 0, size-1)
}
