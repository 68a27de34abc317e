package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestMeshgrid(t *testing.T) {
	mesh := Meshgrid(Arange(2), []float64{10, 20, 30})
	r, c := mesh.Dims()
	test.That(t, r, test.ShouldEqual, 6)
	test.That(t, c, test.ShouldEqual, 2)
	test.That(t, mesh.RawRowView(0), test.ShouldResemble, []float64{0, 10})
	test.That(t, mesh.RawRowView(2), test.ShouldResemble, []float64{0, 30})
	test.That(t, mesh.RawRowView(3), test.ShouldResemble, []float64{1, 10})
	test.That(t, mesh.RawRowView(5), test.ShouldResemble, []float64{1, 30})
}

func TestSubFor(t *testing.T) {
	dims := []int{2, 3, 4}
	test.That(t, SubFor(nil, 0, dims), test.ShouldResemble, []int{0, 0, 0})
	test.That(t, SubFor(nil, 23, dims), test.ShouldResemble, []int{1, 2, 3})
	sub := make([]int, 3)
	SubFor(sub, 13, dims)
	test.That(t, sub, test.ShouldResemble, []int{1, 0, 1})
	test.That(t, func() { SubFor(nil, 24, dims) }, test.ShouldPanic)
	test.That(t, func() { SubFor(nil, 0, []int{2, 0}) }, test.ShouldPanic)
}
