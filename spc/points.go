package spc

import (
	"go.viam.com/spc/device"
	"go.viam.com/spc/octant"
)

// BuildPointHierarchies assigns every node of every octree its integer coordinate at its own
// level. The result is a (numPoints, 3) int16 tensor: per octree, the root (0,0,0) first,
// then each level in ascending order, with children in their parents' order and then by
// child bit.
//
// pyramids and exsum are trusted for addressing but are cross checked against octrees
// first, since they may have been supplied rather than derived.
func BuildPointHierarchies(
	dev device.Device,
	octrees, lengths *device.Tensor,
	maxLevel int,
	pyramids, exsum *device.Tensor,
) (*device.Tensor, error) {
	codes, lens, err := rawData(octrees, lengths)
	if err != nil {
		return nil, err
	}
	if maxLevel > MaxLevel {
		return nil, overflowf("max level %d exceeds %d, coordinates would not fit int16", maxLevel, MaxLevel)
	}
	pyr, width, err := pyramidData(pyramids, len(lens))
	if err != nil {
		return nil, err
	}
	if width != maxLevel+2 {
		return nil, inconsistentf("pyramids have %d levels but max level is %d", width-1, maxLevel)
	}
	ex, err := exsumData(exsum, len(codes), len(lens))
	if err != nil {
		return nil, err
	}

	starts := byteStarts(lens)
	bases := make([]int, len(lens)+1)
	depths := make([]int, len(lens))
	for b := range lens {
		row0, row1 := pyramidRows(pyr, width, b)
		depth, err := checkOctreeIndex(b, codes[starts[b]:starts[b+1]], ex[starts[b]+b:starts[b+1]+b+1], row0, row1)
		if err != nil {
			return nil, err
		}
		depths[b] = depth
		bases[b+1] = bases[b] + int(row1[width-1])
	}

	points := make([]int16, 3*bases[len(lens)])
	for b := range lens {
		start, base := starts[b], bases[b]
		total := bases[b+1] - base
		octreeEx := ex[start+b:]
		_, row1 := pyramidRows(pyr, width, b)
		for l := 0; l < depths[b]; l++ {
			from, to := int(row1[l]), int(row1[l+1])
			if err := dev.Gather(to-from, func(lo, hi int) error {
				for k := from + lo; k < from+hi; k++ {
					code := codes[start+k]
					parent := readPoint(points, base+k)
					child := int(octreeEx[k]) + 1
					for bit := 0; bit < octant.NumChildren; bit++ {
						if !octant.Has(code, bit) {
							continue
						}
						if child >= total {
							return inconsistentf("octree %d: node %d addresses child %d of %d nodes", b, k, child, total)
						}
						writePoint(points, base+child, octant.Child(parent, bit))
						child++
					}
				}
				return nil
			}); err != nil {
				return nil, err
			}
		}
	}

	return device.New(dev, points, len(points)/3, 3)
}

// checkOctreeIndex cross checks one octree's exsum entries and pyramid rows against its
// bytes and returns its depth.
func checkOctreeIndex(b int, codes []uint8, ex, row0, row1 []int32) (int, error) {
	if ex[0] != 0 {
		return 0, inconsistentf("octree %d: exsum starts at %d", b, ex[0])
	}
	for k, code := range codes {
		if int(ex[k+1]-ex[k]) != octant.Count(code) {
			return 0, inconsistentf("octree %d: exsum step at byte %d is %d but the byte has %d children",
				b, k, ex[k+1]-ex[k], octant.Count(code))
		}
	}
	if row0[0] != 1 {
		return 0, inconsistentf("octree %d: pyramid counts %d roots", b, row0[0])
	}
	if sentinel := row0[len(row0)-1]; sentinel != 0 {
		return 0, inconsistentf("octree %d: pyramid sentinel count is %d", b, sentinel)
	}
	var cum int32
	depth := 0
	for l := range row0 {
		if row0[l] < 0 {
			return 0, inconsistentf("octree %d: negative node count at level %d", b, l)
		}
		if row1[l] != cum {
			return 0, inconsistentf("octree %d: cumulative count at level %d is %d, expected %d", b, l, row1[l], cum)
		}
		if row0[l] > 0 {
			depth = l
		}
		cum += row0[l]
	}
	total := row1[len(row1)-1]
	if total != ex[len(codes)]+1 {
		return 0, inconsistentf("octree %d: pyramid has %d nodes but exsum addresses %d", b, total, ex[len(codes)]+1)
	}
	if int(row1[depth]) != len(codes) {
		return 0, inconsistentf("octree %d: pyramid has %d internal nodes but the octree has %d bytes",
			b, row1[depth], len(codes))
	}
	for l := 0; l < depth; l++ {
		if children := ex[row1[l+1]] - ex[row1[l]]; children != row0[l+1] {
			return 0, inconsistentf("octree %d: level %d has %d children but the pyramid counts %d at level %d",
				b, l, children, row0[l+1], l+1)
		}
	}
	return depth, nil
}

func readPoint(points []int16, i int) octant.Point {
	return octant.Point{X: points[3*i], Y: points[3*i+1], Z: points[3*i+2]}
}

func writePoint(points []int16, i int, p octant.Point) {
	points[3*i], points[3*i+1], points[3*i+2] = p.X, p.Y, p.Z
}

// pyramidData validates a pyramid tensor for a batch and returns its data and level width.
func pyramidData(pyramids *device.Tensor, batchSize int) ([]int32, int, error) {
	if pyramids == nil {
		return nil, 0, inconsistentf("pyramids are required")
	}
	shape := pyramids.Shape()
	if pyramids.Dtype() != device.Int32 || len(shape) != 3 || shape[0] != batchSize || shape[1] != 2 || shape[2] < 2 {
		return nil, 0, shapeMismatchf("pyramids must be int32 of shape (%d, 2, >=2), got %v %v",
			batchSize, pyramids.Dtype(), shape)
	}
	return pyramids.Int32Data(), shape[2], nil
}

// exsumData validates an exsum tensor for a batch.
func exsumData(exsum *device.Tensor, numBytes, batchSize int) ([]int32, error) {
	if exsum == nil {
		return nil, inconsistentf("exsum is required")
	}
	if exsum.Dtype() != device.Int32 || exsum.Dims() != 1 || exsum.Dim(0) != numBytes+batchSize {
		return nil, shapeMismatchf("exsum must be int32 of shape (%d), got %v %v",
			numBytes+batchSize, exsum.Dtype(), exsum.Shape())
	}
	return exsum.Int32Data(), nil
}

// pyramidRows returns octree b's count and cumulative rows.
func pyramidRows(pyr []int32, width, b int) ([]int32, []int32) {
	row := pyr[b*2*width : (b+1)*2*width]
	return row[:width], row[width:]
}
