// Package pointcloud exports levels of a structured point cloud as 3-d points.
package pointcloud

import (
	"github.com/golang/geo/r3"

	"go.viam.com/spc/spc"
)

// LevelVectors returns the points of one level of one octree in the batch, in point
// hierarchy order. With normalize, each point is the center of its voxel scaled into the
// [-1, 1] cube. Otherwise points are the integer coordinates at that level.
func LevelVectors(s *spc.SPC, batch, level int, normalize bool) ([]r3.Vector, error) {
	from, to, err := s.LevelRange(batch, level)
	if err != nil {
		return nil, err
	}
	points, err := s.PointHierarchies()
	if err != nil {
		return nil, err
	}
	coords := points.Int16Data()

	scale := 2 / float64(int(1)<<level)
	vectors := make([]r3.Vector, 0, to-from)
	for i := from; i < to; i++ {
		v := r3.Vector{X: float64(coords[3*i]), Y: float64(coords[3*i+1]), Z: float64(coords[3*i+2])}
		if normalize {
			v = v.Add(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}).Mul(scale).Sub(r3.Vector{X: 1, Y: 1, Z: 1})
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}
