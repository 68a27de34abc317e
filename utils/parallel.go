package utils

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

type (
	// MemberWorkFunc runs for each work item (member) of a group.
	MemberWorkFunc func(memberNum, workNum int) error
	// GroupWorkFunc runs to determine what work members should do, if any.
	GroupWorkFunc func(groupNum, groupSize, from, to int) MemberWorkFunc
)

// GroupWorkParallel splits totalSize work items into at most ParallelFactor contiguous groups
// and runs each group on its own goroutine. Items of one group run in order. The first error
// of every group is collected; a canceled context stops groups before their next item.
func GroupWorkParallel(ctx context.Context, totalSize int, groupWork GroupWorkFunc) error {
	if totalSize <= 0 {
		return nil
	}
	numGroups := ParallelFactor
	if numGroups > totalSize {
		numGroups = totalSize
	}
	groupSize := totalSize / numGroups
	extra := totalSize % numGroups

	var (
		wait    sync.WaitGroup
		errMu   sync.Mutex
		allErrs error
	)
	storeError := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		allErrs = multierr.Combine(allErrs, err)
	}

	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		groupNum := groupNum
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to += extra
		}
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			defer func() {
				if thePanic := recover(); thePanic != nil {
					storeError(fmt.Errorf("got panic running group %d in parallel: %v", groupNum, thePanic))
				}
			}()
			memberWork := groupWork(groupNum, to-from, from, to)
			if memberWork == nil {
				return
			}
			memberNum := 0
			for workNum := from; workNum < to; workNum++ {
				if err := ctx.Err(); err != nil {
					storeError(err)
					return
				}
				if err := memberWork(memberNum, workNum); err != nil {
					storeError(err)
					return
				}
				memberNum++
			}
		})
	}
	wait.Wait()
	return allErrs
}

// ParallelForEach calls f once for every index in [0, n), spreading the calls over
// ParallelFactor goroutines.
func ParallelForEach(ctx context.Context, n int, f func(i int) error) error {
	return GroupWorkParallel(ctx, n, func(groupNum, groupSize, from, to int) MemberWorkFunc {
		return func(memberNum, workNum int) error {
			return f(workNum)
		}
	})
}
