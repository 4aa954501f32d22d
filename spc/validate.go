package spc

import "go.viam.com/spc/device"

// checkSupplied runs the cheap checks on supplied derived fields: dtypes, shapes, agreement
// between supplied fields and monotone prefix sums. It does not walk the octrees.
func (s *SPC) checkSupplied() error {
	numBytes, batchSize := s.octrees.Len(), s.BatchSize()

	if s.maxLevel != nil {
		if *s.maxLevel < 0 {
			return shapeMismatchf("max level %d is negative", *s.maxLevel)
		}
		if *s.maxLevel > MaxLevel {
			return overflowf("max level %d exceeds %d", *s.maxLevel, MaxLevel)
		}
	}

	numPoints := -1
	if s.pyramids != nil {
		pyr, width, err := pyramidData(s.pyramids, batchSize)
		if err != nil {
			return err
		}
		if s.maxLevel != nil && width != *s.maxLevel+2 {
			return shapeMismatchf("pyramids have %d levels but max level is %d", width-1, *s.maxLevel)
		}
		if width-2 > MaxLevel {
			return overflowf("pyramids are %d levels deep, more than %d", width-2, MaxLevel)
		}
		numPoints = 0
		for b := 0; b < batchSize; b++ {
			_, row1 := pyramidRows(pyr, width, b)
			for l := 1; l < width; l++ {
				if row1[l] < row1[l-1] {
					return inconsistentf("octree %d: cumulative counts decrease at level %d", b, l)
				}
			}
			if row1[0] != 0 {
				return inconsistentf("octree %d: cumulative counts start at %d", b, row1[0])
			}
			numPoints += int(row1[width-1])
		}
	}

	if s.exsum != nil {
		ex, err := exsumData(s.exsum, numBytes, batchSize)
		if err != nil {
			return err
		}
		for b := 0; b < batchSize; b++ {
			octreeEx := ex[s.starts[b]+b : s.starts[b+1]+b+1]
			if octreeEx[0] != 0 {
				return inconsistentf("octree %d: exsum starts at %d", b, octreeEx[0])
			}
			for k := 1; k < len(octreeEx); k++ {
				if octreeEx[k] < octreeEx[k-1] {
					return inconsistentf("octree %d: exsum decreases at byte %d", b, k-1)
				}
			}
		}
	}

	if s.pointHierarchies != nil {
		shape := s.pointHierarchies.Shape()
		if s.pointHierarchies.Dtype() != device.Int16 || len(shape) != 2 || shape[1] != 3 {
			return shapeMismatchf("point hierarchies must be int16 of shape (n, 3), got %v %v",
				s.pointHierarchies.Dtype(), shape)
		}
		if numPoints >= 0 && shape[0] != numPoints {
			return shapeMismatchf("pyramids count %d points but point hierarchies hold %d", numPoints, shape[0])
		}
		if shape[0] < batchSize {
			return shapeMismatchf("point hierarchies hold %d points for %d octrees", shape[0], batchSize)
		}
	}
	return nil
}
