package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEach(t *testing.T) {
	for _, n := range []int{0, 1, 3, ParallelFactor, ParallelFactor*3 + 1} {
		seen := make([]int32, n)
		err := ParallelForEach(context.Background(), n, func(i int) error {
			atomic.AddInt32(&seen[i], 1)
			return nil
		})
		test.That(t, err, test.ShouldBeNil)
		for i := range seen {
			test.That(t, seen[i], test.ShouldEqual, int32(1))
		}
	}
}

func TestParallelForEachError(t *testing.T) {
	errBad := errors.New("bad frame")
	err := ParallelForEach(context.Background(), 10, func(i int) error {
		if i == 7 {
			return errBad
		}
		return nil
	})
	test.That(t, errors.Is(err, errBad), test.ShouldBeTrue)

	err = ParallelForEach(context.Background(), 4, func(i int) error {
		panic("boom")
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "boom")
}

func TestParallelForEachCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	err := ParallelForEach(ctx, 5, func(i int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, calls, test.ShouldEqual, int32(0))
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(5, 0, 3), test.ShouldEqual, 3)
	test.That(t, Clamp(-1.5, 0, 3), test.ShouldEqual, 0.0)
	test.That(t, ClampIndex(223.9, 224), test.ShouldEqual, 223)
	test.That(t, ClampIndex(224.2, 224), test.ShouldEqual, 223)
	test.That(t, ClampIndex(-0.5, 224), test.ShouldEqual, 0)
}
