package device

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the number of lanes an accelerator created without an explicit
// width uses. Tests may lower it where too much parallelism slows them down in aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// accelerator executes gathers and scans across a fixed number of goroutine lanes.
type accelerator struct {
	index int
	lanes int
}

// NewAccelerator returns an accelerator-class device with the given index running work on
// the given number of lanes.
func NewAccelerator(index, lanes int) Device {
	if lanes <= 0 {
		lanes = 1
	}
	return &accelerator{index: index, lanes: lanes}
}

func (a *accelerator) String() string {
	return fmt.Sprintf("accel:%d", a.index)
}

func (a *accelerator) Kind() Kind { return KindAccelerator }

func (a *accelerator) Transfer(t *Tensor) *Tensor {
	return t.cloneTo(a)
}

func (a *accelerator) Gather(n int, fn func(from, to int) error) error {
	if n <= 0 {
		return nil
	}
	var g errgroup.Group
	for _, r := range splitRanges(n, a.lanes) {
		r := r
		g.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = errors.Errorf("got panic in gather over [%d,%d): %v", r.from, r.to, thePanic)
				}
			}()
			return fn(r.from, r.to)
		})
	}
	return g.Wait()
}

// Scan is a two pass block scan: per-block totals in parallel, a short serial pass over the
// block totals, then per-block fills in parallel.
func (a *accelerator) Scan(n int, value func(i int) int64) ([]int64, error) {
	out := make([]int64, n+1)
	if n == 0 {
		return out, nil
	}
	ranges := splitRanges(n, a.lanes)
	blockSums := make([]int64, len(ranges))

	var g errgroup.Group
	for b, r := range ranges {
		b, r := b, r
		g.Go(func() error {
			var sum int64
			for i := r.from; i < r.to; i++ {
				sum += value(i)
			}
			blockSums[b] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	blockStarts := make([]int64, len(ranges))
	for b := 1; b < len(ranges); b++ {
		blockStarts[b] = blockStarts[b-1] + blockSums[b-1]
	}

	var fill errgroup.Group
	for b, r := range ranges {
		b, r := b, r
		fill.Go(func() error {
			acc := blockStarts[b]
			for i := r.from; i < r.to; i++ {
				out[i] = acc
				acc += value(i)
			}
			if b == len(ranges)-1 {
				out[n] = acc
			}
			return nil
		})
	}
	if err := fill.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type workRange struct {
	from, to int
}

// splitRanges divides [0, total) into at most groups contiguous ranges. The remainder goes
// to the last range.
func splitRanges(total, groups int) []workRange {
	if total <= 0 {
		return nil
	}
	if groups > total {
		groups = total
	}
	if groups <= 0 {
		groups = 1
	}
	groupSize := total / groups
	extra := total % groups
	ranges := make([]workRange, groups)
	for g := 0; g < groups; g++ {
		from := groupSize * g
		to := groupSize * (g + 1)
		if g == groups-1 {
			to += extra
		}
		ranges[g] = workRange{from: from, to: to}
	}
	return ranges
}
