package spc

import (
	"github.com/pkg/errors"

	"go.viam.com/spc/octant"
)

// NumPoints returns the number of nodes in the batch, which is the number of rows of the
// point hierarchies.
func (s *SPC) NumPoints() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bases, err := s.pointBasesLocked()
	if err != nil {
		return 0, err
	}
	return bases[len(bases)-1], nil
}

// LevelRange returns the half open range of batch point indices holding level level of
// octree batch. Levels deeper than the octree give an empty range.
func (s *SPC) LevelRange(batch, level int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch < 0 || batch >= s.BatchSize() {
		return 0, 0, errors.Errorf("batch index %d out of range [0, %d)", batch, s.BatchSize())
	}
	bases, err := s.pointBasesLocked()
	if err != nil {
		return 0, 0, err
	}
	if level < 0 || level > *s.maxLevel {
		return 0, 0, errors.Errorf("level %d out of range [0, %d]", level, *s.maxLevel)
	}
	width := *s.maxLevel + 2
	_, row1 := pyramidRows(s.pyramids.Int32Data(), width, batch)
	return bases[batch] + int(row1[level]), bases[batch] + int(row1[level+1]), nil
}

// ChildIndex returns the batch point index of the child in octant bit of node, an in-octree
// point index of octree batch. It returns -1 when the octant is empty or node is a leaf.
func (s *SPC) ChildIndex(batch, node, bit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch < 0 || batch >= s.BatchSize() {
		return 0, errors.Errorf("batch index %d out of range [0, %d)", batch, s.BatchSize())
	}
	if bit < 0 || bit >= octant.NumChildren {
		return 0, errors.Errorf("octant %d out of range [0, %d)", bit, octant.NumChildren)
	}
	bases, err := s.pointBasesLocked()
	if err != nil {
		return 0, err
	}
	if total := bases[batch+1] - bases[batch]; node < 0 || node >= total {
		return 0, errors.Errorf("node %d out of range [0, %d) of octree %d", node, total, batch)
	}
	start := s.starts[batch]
	if node >= s.starts[batch+1]-start {
		return -1, nil
	}
	code := s.octrees.Uint8Data()[start+node]
	if !octant.Has(code, bit) {
		return -1, nil
	}
	first := int(s.exsum.Int32Data()[start+batch+node]) + 1
	return bases[batch] + first + octant.Rank(code, bit), nil
}

// pointBasesLocked returns the batch point index of each octree's root, plus the total.
func (s *SPC) pointBasesLocked() ([]int, error) {
	if s.pointBases != nil {
		return s.pointBases, nil
	}
	if err := s.ensurePyramidsLocked(); err != nil {
		return nil, err
	}
	width := *s.maxLevel + 2
	pyr := s.pyramids.Int32Data()
	bases := make([]int, s.BatchSize()+1)
	for b := 0; b < s.BatchSize(); b++ {
		_, row1 := pyramidRows(pyr, width, b)
		bases[b+1] = bases[b] + int(row1[width-1])
	}
	s.pointBases = bases
	return bases, nil
}
