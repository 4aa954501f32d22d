// Package testutils holds the reference batch and helpers shared by package tests.
package testutils

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/spc/device"
	"go.viam.com/spc/octant"
)

// FixtureRows are the occupancy flags of the reference batch, one row per internal node,
// written most significant bit first. The first six rows are octree 0 and the last five
// are octree 1.
var FixtureRows = [][octant.NumChildren]bool{
	row(0, 0, 0, 1, 0, 0, 0, 1),
	row(0, 0, 0, 0, 0, 1, 1, 0), row(0, 0, 1, 0, 0, 0, 0, 0),
	row(1, 0, 0, 0, 0, 0, 0, 0), row(1, 0, 0, 0, 0, 0, 0, 0), row(0, 0, 0, 0, 1, 0, 0, 0),

	row(1, 0, 0, 0, 0, 0, 0, 0),
	row(0, 1, 1, 1, 0, 0, 0, 0),
	row(0, 0, 1, 0, 0, 0, 0, 0), row(1, 1, 1, 1, 1, 1, 1, 1), row(0, 1, 0, 1, 0, 1, 0, 1),
}

// FixtureLengths are the byte counts of the reference batch.
var FixtureLengths = []int32{6, 5}

// FixtureMaxLevel is the depth of the reference batch.
const FixtureMaxLevel = 3

// FixturePyramids are the pyramids of the reference batch, shaped (2, 2, 5).
var FixturePyramids = []int32{
	1, 2, 3, 3, 0,
	0, 1, 3, 6, 9,

	1, 1, 3, 13, 0,
	0, 1, 2, 5, 18,
}

// FixtureExsum is the exclusive sum of the reference batch.
var FixtureExsum = []int32{0, 2, 4, 5, 6, 7, 8, 0, 1, 4, 5, 13, 17}

// FixturePoints are the point hierarchies of the reference batch, one row per node.
var FixturePoints = [][3]int16{
	{0, 0, 0},
	{0, 0, 0}, {1, 0, 0},
	{0, 0, 1}, {0, 1, 0}, {3, 0, 1},
	{1, 1, 3}, {1, 3, 1}, {6, 1, 3},

	{0, 0, 0},
	{1, 1, 1},
	{3, 2, 2}, {3, 2, 3}, {3, 3, 2},
	{7, 4, 5}, {6, 4, 6}, {6, 4, 7}, {6, 5, 6}, {6, 5, 7}, {7, 4, 6},
	{7, 4, 7}, {7, 5, 6}, {7, 5, 7}, {6, 6, 4}, {6, 7, 4},
	{7, 6, 4}, {7, 7, 4},
}

func row(flags ...int) [octant.NumChildren]bool {
	var r [octant.NumChildren]bool
	for i, f := range flags {
		r[i] = f != 0
	}
	return r
}

// FixtureOctreeBytes returns a fresh copy of the reference batch's occupancy bytes.
func FixtureOctreeBytes() []uint8 {
	return octant.PackMSBFirst(FixtureRows...)
}

// FixtureOctrees returns the reference occupancy bytes on dev.
func FixtureOctrees(dev device.Device) *device.Tensor {
	return device.Uint8s(dev, FixtureOctreeBytes())
}

// FixtureLengthsTensor returns the reference lengths on dev.
func FixtureLengthsTensor(dev device.Device) *device.Tensor {
	return device.Int32s(dev, append([]int32(nil), FixtureLengths...))
}

// FixturePyramidsTensor returns the reference pyramids on dev.
func FixturePyramidsTensor(t testing.TB, dev device.Device) *device.Tensor {
	t.Helper()
	pyr, err := device.New(dev, append([]int32(nil), FixturePyramids...), 2, 2, FixtureMaxLevel+2)
	test.That(t, err, test.ShouldBeNil)
	return pyr
}

// FixtureExsumTensor returns the reference exsum on dev.
func FixtureExsumTensor(dev device.Device) *device.Tensor {
	return device.Int32s(dev, append([]int32(nil), FixtureExsum...))
}

// FixturePointsFlat returns a fresh copy of the reference point hierarchies, three
// coordinates per node.
func FixturePointsFlat() []int16 {
	flat := make([]int16, 0, 3*len(FixturePoints))
	for _, p := range FixturePoints {
		flat = append(flat, p[:]...)
	}
	return flat
}

// FixturePointsTensor returns the reference point hierarchies on dev.
func FixturePointsTensor(t testing.TB, dev device.Device) *device.Tensor {
	t.Helper()
	points, err := device.New(dev, FixturePointsFlat(), len(FixturePoints), 3)
	test.That(t, err, test.ShouldBeNil)
	return points
}
