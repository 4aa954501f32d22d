package spc

import (
	"math"

	"go.viam.com/spc/device"
	"go.viam.com/spc/octant"
)

// MaxLevel is the deepest level whose coordinates fit the int16 point hierarchy.
const MaxLevel = 15

// BuildPyramids walks each octree's occupancy level by level and returns the batch's
// maximum depth and its (batch, 2, maxLevel+2) pyramid. Row 0 holds the node count per
// level, with the root counted at level 0 and a trailing zero sentinel. Row 1 holds the
// exclusive prefix of row 0, so its sentinel is the octree's total node count.
func BuildPyramids(dev device.Device, octrees, lengths *device.Tensor) (int, *device.Tensor, error) {
	codes, lens, err := rawData(octrees, lengths)
	if err != nil {
		return 0, nil, err
	}
	popcounts, err := dev.Scan(len(codes), func(i int) int64 { return int64(octant.Count(codes[i])) })
	if err != nil {
		return 0, nil, err
	}
	starts := byteStarts(lens)

	levels := make([][]int64, len(lens))
	if err := dev.Gather(len(lens), func(from, to int) error {
		for b := from; b < to; b++ {
			lv, err := octreeLevels(b, popcounts, starts[b], int(lens[b]))
			if err != nil {
				return err
			}
			levels[b] = lv
		}
		return nil
	}); err != nil {
		return 0, nil, err
	}

	maxLevel := 0
	for _, lv := range levels {
		if depth := len(lv) - 1; depth > maxLevel {
			maxLevel = depth
		}
	}

	width := maxLevel + 2
	pyramids := make([]int32, len(lens)*2*width)
	for b, lv := range levels {
		row0 := pyramids[b*2*width : b*2*width+width]
		row1 := pyramids[b*2*width+width : (b+1)*2*width]
		var cum int64
		for l := 0; l < width; l++ {
			var count int64
			if l < len(lv) {
				count = lv[l]
			}
			row0[l] = int32(count)
			row1[l] = int32(cum)
			cum += count
		}
		if cum > math.MaxInt32 {
			return 0, nil, overflowf("octree %d has %d nodes", b, cum)
		}
	}

	t, err := device.New(dev, pyramids, len(lens), 2, width)
	if err != nil {
		return 0, nil, err
	}
	return maxLevel, t, nil
}

// BuildExsum returns, for every octree, the exclusive prefix sum of its bytes' occupied
// child counts followed by the octree's total. Octrees are concatenated, so the result has
// len(octrees)+batchSize entries and byte k of octree b has its entry at start(b)+b+k.
func BuildExsum(dev device.Device, octrees, lengths *device.Tensor) (*device.Tensor, error) {
	codes, lens, err := rawData(octrees, lengths)
	if err != nil {
		return nil, err
	}
	popcounts, err := dev.Scan(len(codes), func(i int) int64 { return int64(octant.Count(codes[i])) })
	if err != nil {
		return nil, err
	}
	starts := byteStarts(lens)

	exsum := make([]int32, len(codes)+len(lens))
	if err := dev.Gather(len(lens), func(from, to int) error {
		for b := from; b < to; b++ {
			start, n := starts[b], int(lens[b])
			base := popcounts[start]
			// The root is one more node than the children counted here.
			if total := popcounts[start+n] - base + 1; total > math.MaxInt32 {
				return overflowf("octree %d has %d nodes", b, total)
			}
			out := exsum[start+b : start+b+n+1]
			for k := range out {
				out[k] = int32(popcounts[start+k] - base)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return device.Int32s(dev, exsum), nil
}

// octreeLevels returns the node count of every level of octree b, whose bytes start at
// start in the batch. Level L consumes one byte per node, and the next level has as many
// nodes as those bytes have set bits. Every stored level must have at least one occupied
// child, so the deepest level always holds nodes.
func octreeLevels(b int, popcounts []int64, start, length int) ([]int64, error) {
	counts := []int64{1}
	offset := 0
	for offset < length {
		level := len(counts) - 1
		count := int(counts[level])
		if offset+count > length {
			return nil, malformedf("octree %d: level %d needs %d bytes but only %d of %d remain",
				b, level, count, length-offset, length)
		}
		next := popcounts[start+offset+count] - popcounts[start+offset]
		if next == 0 {
			return nil, malformedf("octree %d: the %d bytes of level %d have no occupied children",
				b, count, level)
		}
		offset += count
		counts = append(counts, next)
	}
	return counts, nil
}

// rawData validates and unwraps the raw fields.
func rawData(octrees, lengths *device.Tensor) ([]uint8, []int32, error) {
	if octrees == nil || lengths == nil {
		return nil, nil, shapeMismatchf("octrees and lengths are required")
	}
	if octrees.Dtype() != device.Uint8 || octrees.Dims() != 1 {
		return nil, nil, shapeMismatchf("octrees must be a 1-d uint8 tensor, got %v %v", octrees.Dtype(), octrees.Shape())
	}
	if lengths.Dtype() != device.Int32 || lengths.Dims() != 1 {
		return nil, nil, shapeMismatchf("lengths must be a 1-d int32 tensor, got %v %v", lengths.Dtype(), lengths.Shape())
	}
	codes, lens := octrees.Uint8Data(), lengths.Int32Data()
	var sum int64
	for b, n := range lens {
		if n < 0 {
			return nil, nil, shapeMismatchf("octree %d has negative length %d", b, n)
		}
		sum += int64(n)
	}
	if sum != int64(len(codes)) {
		return nil, nil, shapeMismatchf("lengths sum to %d but there are %d octree bytes", sum, len(codes))
	}
	return codes, lens, nil
}

// byteStarts returns the offset of each octree's first byte, plus the total.
func byteStarts(lens []int32) []int {
	starts := make([]int, len(lens)+1)
	for b, n := range lens {
		starts[b+1] = starts[b] + int(n)
	}
	return starts
}
