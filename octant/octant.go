// Package octant pins the single convention relating an occupancy bit to the corner of a
// subdivided cell. Packing occupancy bytes, partitioning levels and decoding child
// coordinates all go through this table.
package octant

import (
	"math/bits"

	"github.com/pkg/errors"
)

// NumChildren is the number of octants of a cell and the number of bits in an occupancy byte.
const NumChildren = 8

// Point is an integer voxel coordinate at some level of an octree.
type Point struct {
	X, Y, Z int16
}

// Offsets maps occupancy bit k (bit 0 is the least significant) to the unit corner offset of
// octant k. x is the high bit of k and z the low bit.
var Offsets = [NumChildren]Point{
	{0, 0, 0},
	{0, 0, 1},
	{0, 1, 0},
	{0, 1, 1},
	{1, 0, 0},
	{1, 0, 1},
	{1, 1, 0},
	{1, 1, 1},
}

// Offset returns the corner offset of the given child bit.
func Offset(bit int) Point {
	return Offsets[bit&(NumChildren-1)]
}

// Index returns the child bit whose offset is (x, y, z), each of which must be 0 or 1.
func Index(x, y, z int) int {
	return (x&1)<<2 | (y&1)<<1 | z&1
}

// Child returns the coordinate, one level down, of the child of parent in octant bit.
func Child(parent Point, bit int) Point {
	off := Offset(bit)
	return Point{
		X: 2*parent.X + off.X,
		Y: 2*parent.Y + off.Y,
		Z: 2*parent.Z + off.Z,
	}
}

// Count returns the number of occupied children encoded by code.
func Count(code byte) int {
	return bits.OnesCount8(code)
}

// Rank returns the number of occupied children whose bit is lower than bit. This is the
// position of child bit among its siblings.
func Rank(code byte, bit int) int {
	return bits.OnesCount8(code & (1<<uint(bit&(NumChildren-1)) - 1))
}

// Has reports whether child bit is occupied in code.
func Has(code byte, bit int) bool {
	return code&(1<<uint(bit&(NumChildren-1))) != 0
}

// Pack encodes occupancy flags into one byte, flag i becoming bit i.
func Pack(occupied [NumChildren]bool) byte {
	var code byte
	for i, o := range occupied {
		if o {
			code |= 1 << uint(i)
		}
	}
	return code
}

// Unpack decodes a byte into occupancy flags, bit i becoming flag i.
func Unpack(code byte) [NumChildren]bool {
	var occupied [NumChildren]bool
	for i := range occupied {
		occupied[i] = Has(code, i)
	}
	return occupied
}

// PackBits packs a flat sequence of flags, eight per byte, in the same order as Pack.
func PackBits(flags []bool) ([]byte, error) {
	if len(flags)%NumChildren != 0 {
		return nil, errors.Errorf("cannot pack %d flags into whole bytes", len(flags))
	}
	out := make([]byte, len(flags)/NumChildren)
	for i := range out {
		var group [NumChildren]bool
		copy(group[:], flags[i*NumChildren:])
		out[i] = Pack(group)
	}
	return out, nil
}

// PackMSBFirst packs rows of flags written most significant bit first, the way occupancy
// is commonly printed (row element j is bit 7-j).
func PackMSBFirst(rows ...[NumChildren]bool) []byte {
	out := make([]byte, len(rows))
	for i, row := range rows {
		var flipped [NumChildren]bool
		for j := range row {
			flipped[NumChildren-1-j] = row[j]
		}
		out[i] = Pack(flipped)
	}
	return out
}
