package spc

import (
	"github.com/samber/lo"

	"go.viam.com/spc/device"
	"go.viam.com/spc/logging"
)

// FromList concatenates per-octree occupancy tensors into one batch, in order, and derives
// lengths from their sizes. Every tensor must be 1-d uint8. The batch lives on the first
// tensor's device; tensors on other devices are transferred there.
func FromList(list []*device.Tensor, opts ...Option) (*SPC, error) {
	if len(list) == 0 {
		return nil, shapeMismatchf("from list needs at least one octree")
	}
	for i, t := range list {
		if t == nil || t.Dtype() != device.Uint8 || t.Dims() != 1 {
			return nil, shapeMismatchf("octree %d must be a 1-d uint8 tensor", i)
		}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.Global()
	}

	dev := list[0].Device()
	lens := lo.Map(list, func(t *device.Tensor, _ int) int32 { return int32(t.Len()) })
	octrees := make([]uint8, 0, lo.Sum(lo.Map(list, func(t *device.Tensor, _ int) int { return t.Len() })))
	for i, t := range list {
		if !device.Same(t.Device(), dev) {
			logger.Debugw("moving listed octree to the batch device", "octree", i, "from", t.Device().String(), "to", dev.String())
			t = t.To(dev)
		}
		octrees = append(octrees, t.Uint8Data()...)
	}
	return New(device.Uint8s(dev, octrees), device.Int32s(dev, lens), append(opts, WithLogger(logger))...)
}

// Split returns each octree's occupancy bytes as its own tensor, in batch order. FromList of
// the result rebuilds the same octrees and lengths.
func (s *SPC) Split() []*device.Tensor {
	codes := s.octrees.Uint8Data()
	out := make([]*device.Tensor, s.BatchSize())
	for b := range out {
		part := append([]uint8(nil), codes[s.starts[b]:s.starts[b+1]]...)
		out[b] = device.Uint8s(s.dev, part)
	}
	return out
}
