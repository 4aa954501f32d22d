// Package device abstracts over where tensors live and how the vectorized primitives the
// octree builders rely on (transfer, scan, gather) are executed.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies devices.
type Kind int

const (
	// KindCPU is host memory with inline execution.
	KindCPU = Kind(iota)
	// KindAccelerator is an accelerator-class device executing work across many lanes.
	KindAccelerator
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindAccelerator:
		return "accel"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// A Device owns tensor storage and executes the vectorized primitives over it.
type Device interface {
	fmt.Stringer

	// Kind returns the class of the device.
	Kind() Kind

	// Transfer returns a copy of t resident on this device. The copy never shares storage
	// with t, even when t already lives here.
	Transfer(t *Tensor) *Tensor

	// Gather runs fn over [0, n) partitioned into contiguous, disjoint ranges. Ranges may run
	// concurrently, so fn must only write to locations owned by its range.
	Gather(n int, fn func(from, to int) error) error

	// Scan returns the exclusive prefix sum of value(0..n-1) as a slice of n+1 entries, the
	// last being the total.
	Scan(n int, value func(i int) int64) ([]int64, error)
}

// CPU is the host device.
var CPU Device = cpuDevice{}

// Accelerator is the default accelerator-class device.
var Accelerator Device = NewAccelerator(0, ParallelFactor)

// Parse resolves a device descriptor such as "cpu", "accel", "accel:0" or "cuda".
func Parse(name string) (Device, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	kind, idx, hasIdx := strings.Cut(name, ":")
	switch kind {
	case "", "cpu":
		if hasIdx {
			return nil, errors.Errorf("cpu device takes no index: %q", name)
		}
		return CPU, nil
	case "accel", "accelerator", "cuda", "gpu":
		if !hasIdx {
			return Accelerator, nil
		}
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 {
			return nil, errors.Errorf("invalid device index in %q", name)
		}
		if i == 0 {
			return Accelerator, nil
		}
		return NewAccelerator(i, ParallelFactor), nil
	default:
		return nil, errors.Errorf("unknown device %q", name)
	}
}

// Same reports whether a and b denote the same device.
func Same(a, b Device) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

type cpuDevice struct{}

func (cpuDevice) String() string { return "cpu" }

func (cpuDevice) Kind() Kind { return KindCPU }

func (d cpuDevice) Transfer(t *Tensor) *Tensor {
	return t.cloneTo(d)
}

func (cpuDevice) Gather(n int, fn func(from, to int) error) error {
	if n <= 0 {
		return nil
	}
	return fn(0, n)
}

func (cpuDevice) Scan(n int, value func(i int) int64) ([]int64, error) {
	out := make([]int64, n+1)
	for i := 0; i < n; i++ {
		out[i+1] = out[i] + value(i)
	}
	return out, nil
}
