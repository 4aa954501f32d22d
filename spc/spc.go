// Package spc implements structured point clouds: batches of sparse voxel octrees stored as
// one occupancy byte per internal node, with their auxiliary indices (pyramids, exclusive
// sums and explicit point hierarchies) derived once, on demand.
package spc

import (
	"sync"

	"go.viam.com/spc/device"
	"go.viam.com/spc/logging"
)

// SPC is a batch of octrees. octrees and lengths are fixed at construction. The derived
// fields each go from unset to computed at most once and are never modified afterwards.
//
// An SPC is safe for concurrent use. The first reader of an unset derived field computes
// it while holding the container's lock; other readers wait and then see the result.
type SPC struct {
	logger  logging.Logger
	dev     device.Device
	octrees *device.Tensor
	lengths *device.Tensor
	starts  []int

	mu               sync.Mutex
	maxLevel         *int
	pyramids         *device.Tensor
	exsum            *device.Tensor
	pointHierarchies *device.Tensor
	pointBases       []int
}

// Option configures New with derived fields computed elsewhere, or a logger.
type Option func(*options)

type options struct {
	logger           logging.Logger
	maxLevel         *int
	pyramids         *device.Tensor
	exsum            *device.Tensor
	pointHierarchies *device.Tensor
}

// WithMaxLevel supplies the batch's maximum level.
func WithMaxLevel(maxLevel int) Option {
	return func(o *options) { o.maxLevel = &maxLevel }
}

// WithPyramids supplies the (batch, 2, maxLevel+2) int32 pyramids.
func WithPyramids(pyramids *device.Tensor) Option {
	return func(o *options) { o.pyramids = pyramids }
}

// WithExsum supplies the int32 exclusive sums.
func WithExsum(exsum *device.Tensor) Option {
	return func(o *options) { o.exsum = exsum }
}

// WithPointHierarchies supplies the (numPoints, 3) int16 point hierarchies.
func WithPointHierarchies(pointHierarchies *device.Tensor) Option {
	return func(o *options) { o.pointHierarchies = pointHierarchies }
}

// WithLogger sets the logger. The default is the global logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New returns a structured point cloud over octrees, a 1-d uint8 tensor of occupancy
// bytes, and lengths, a 1-d int32 tensor of per-octree byte counts. Unsupplied derived
// fields are left unset. The container lives on octrees' device; lengths and supplied
// fields residing elsewhere are transferred there.
//
// Supplied fields get cheap checks only (dtypes, shapes, prefix sum monotonicity). Use
// Verify for a full cross check.
//
// The container takes ownership of every tensor it is given that already resides on the
// octrees' device: their storage is kept as is, not copied, so callers must not modify it
// afterwards. The slices returned by the accessors are that same storage and are read only.
// Use To for an independent copy.
func New(octrees, lengths *device.Tensor, opts ...Option) (*SPC, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if _, _, err := rawData(octrees, lengths); err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = logging.Global()
	}

	dev := octrees.Device()
	s := &SPC{
		logger:           logger,
		dev:              dev,
		octrees:          octrees,
		lengths:          onDevice(logger, FieldLengths, lengths, dev),
		maxLevel:         o.maxLevel,
		pyramids:         onDevice(logger, FieldPyramids, o.pyramids, dev),
		exsum:            onDevice(logger, FieldExsum, o.exsum, dev),
		pointHierarchies: onDevice(logger, FieldPointHierarchies, o.pointHierarchies, dev),
	}
	s.starts = byteStarts(s.lengths.Int32Data())
	if err := s.checkSupplied(); err != nil {
		return nil, err
	}
	return s, nil
}

func onDevice(logger logging.Logger, field Field, t *device.Tensor, dev device.Device) *device.Tensor {
	if t == nil || device.Same(t.Device(), dev) {
		return t
	}
	logger.Debugw("moving supplied field to the octrees' device", "field", field, "from", t.Device().String(), "to", dev.String())
	return t.To(dev)
}

// Device returns the device every field of the container resides on.
func (s *SPC) Device() device.Device {
	return s.dev
}

// Octrees returns the occupancy bytes.
func (s *SPC) Octrees() *device.Tensor {
	return s.octrees
}

// Lengths returns the per-octree byte counts.
func (s *SPC) Lengths() *device.Tensor {
	return s.lengths
}

// BatchSize returns the number of octrees.
func (s *SPC) BatchSize() int {
	return s.lengths.Len()
}

// MaxLevel returns the deepest level of any octree in the batch. If unset it scans the
// octrees, which also fills pyramids and exsum.
func (s *SPC) MaxLevel() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLevelLocked()
}

func (s *SPC) maxLevelLocked() (int, error) {
	if s.maxLevel == nil {
		if err := s.ensurePyramidsLocked(); err != nil {
			return 0, err
		}
	}
	return *s.maxLevel, nil
}

// Pyramids returns the per-octree level counts and cumulative counts, scanning the octrees
// if needed. Scanning also derives the exclusive sums if they are unset.
func (s *SPC) Pyramids() (*device.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensurePyramidsLocked(); err != nil {
		return nil, err
	}
	return s.pyramids, nil
}

// Exsum returns the per-octree exclusive sums of occupied children.
func (s *SPC) Exsum() (*device.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureExsumLocked(); err != nil {
		return nil, err
	}
	return s.exsum, nil
}

// PointHierarchies returns the coordinates of every node, deriving max level, pyramids and
// exclusive sums first if they are unset.
func (s *SPC) PointHierarchies() (*device.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensurePointsLocked(); err != nil {
		return nil, err
	}
	return s.pointHierarchies, nil
}

// Has reports whether field is populated, without computing it.
func (s *SPC) Has(field Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasLocked(field)
}

func (s *SPC) hasLocked(field Field) bool {
	switch field {
	case FieldOctrees, FieldLengths:
		return true
	case FieldMaxLevel:
		return s.maxLevel != nil
	case FieldPyramids:
		return s.pyramids != nil
	case FieldExsum:
		return s.exsum != nil
	case FieldPointHierarchies:
		return s.pointHierarchies != nil
	}
	return false
}

func (s *SPC) populatedLocked() []Field {
	var populated []Field
	for _, f := range Fields {
		if s.hasLocked(f) {
			populated = append(populated, f)
		}
	}
	return populated
}

func (s *SPC) ensurePyramidsLocked() error {
	if s.pyramids == nil {
		maxLevel, pyramids, err := BuildPyramids(s.dev, s.octrees, s.lengths)
		if err != nil {
			return err
		}
		if s.maxLevel != nil && *s.maxLevel != maxLevel {
			return inconsistentf("supplied max level %d but the octrees are %d deep", *s.maxLevel, maxLevel)
		}
		s.maxLevel = &maxLevel
		s.pyramids = pyramids
		s.logger.Debugw("computed pyramids", "batch_size", s.BatchSize(), "max_level", maxLevel, "device", s.dev.String())
	} else if s.maxLevel == nil {
		maxLevel := s.pyramids.Dim(2) - 2
		s.maxLevel = &maxLevel
	}
	return s.ensureExsumLocked()
}

func (s *SPC) ensureExsumLocked() error {
	if s.exsum != nil {
		return nil
	}
	exsum, err := BuildExsum(s.dev, s.octrees, s.lengths)
	if err != nil {
		return err
	}
	s.exsum = exsum
	s.logger.Debugw("computed exsum", "entries", exsum.Len(), "device", s.dev.String())
	return nil
}

func (s *SPC) ensurePointsLocked() error {
	if s.pointHierarchies != nil {
		return nil
	}
	if err := s.ensurePyramidsLocked(); err != nil {
		return err
	}
	points, err := BuildPointHierarchies(s.dev, s.octrees, s.lengths, *s.maxLevel, s.pyramids, s.exsum)
	if err != nil {
		return err
	}
	s.pointHierarchies = points
	s.logger.Debugw("computed point hierarchies", "points", points.Dim(0), "device", s.dev.String())
	return nil
}

// To returns a new container on dev holding copies of every populated field. Unset derived
// fields stay unset and are computed on dev when first read.
func (s *SPC) To(dev device.Device) *SPC {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &SPC{
		logger:  s.logger,
		dev:     dev,
		octrees: s.octrees.To(dev),
		lengths: s.lengths.To(dev),
		starts:  s.starts,
	}
	if s.maxLevel != nil {
		maxLevel := *s.maxLevel
		out.maxLevel = &maxLevel
	}
	if s.pyramids != nil {
		out.pyramids = s.pyramids.To(dev)
	}
	if s.exsum != nil {
		out.exsum = s.exsum.To(dev)
	}
	if s.pointHierarchies != nil {
		out.pointHierarchies = s.pointHierarchies.To(dev)
	}
	s.logger.Debugw("transferred", "from", s.dev.String(), "to", dev.String(), "populated", s.populatedLocked())
	return out
}

// CPU returns a copy of the container on the host.
func (s *SPC) CPU() *SPC {
	return s.To(device.CPU)
}

// Accelerator returns a copy of the container on the default accelerator.
func (s *SPC) Accelerator() *SPC {
	return s.To(device.Accelerator)
}
