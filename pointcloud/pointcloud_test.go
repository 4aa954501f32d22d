package pointcloud

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/spc/device"
	"go.viam.com/spc/logging"
	"go.viam.com/spc/spc"
	"go.viam.com/spc/testutils"
)

func fixture(t *testing.T) *spc.SPC {
	t.Helper()
	s, err := spc.New(testutils.FixtureOctrees(device.CPU), testutils.FixtureLengthsTensor(device.CPU),
		spc.WithLogger(logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)
	return s
}

func TestLevelVectors(t *testing.T) {
	s := fixture(t)

	vectors, err := LevelVectors(s, 0, 2, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vectors, test.ShouldResemble, []r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}, {X: 3, Y: 0, Z: 1}})

	root, err := LevelVectors(s, 1, 0, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root, test.ShouldResemble, []r3.Vector{{X: 0, Y: 0, Z: 0}})

	level1, err := LevelVectors(s, 1, 1, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level1, test.ShouldResemble, []r3.Vector{{X: 0.5, Y: 0.5, Z: 0.5}})

	leaves, err := LevelVectors(s, 1, 3, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(leaves), test.ShouldEqual, 13)
	for _, v := range leaves {
		for _, c := range []float64{v.X, v.Y, v.Z} {
			test.That(t, c, test.ShouldBeBetween, -1.0, 1.0)
		}
	}

	_, err = LevelVectors(s, 2, 0, false)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPCDRoundTrip(t *testing.T) {
	vectors, err := LevelVectors(fixture(t), 1, 3, true)
	test.That(t, err, test.ShouldBeNil)

	for _, outputType := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, WritePCD(&buf, vectors, outputType), test.ShouldBeNil)
		got, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(got), test.ShouldEqual, len(vectors))
		for i := range got {
			test.That(t, got[i].X, test.ShouldAlmostEqual, vectors[i].X, 1e-6)
			test.That(t, got[i].Y, test.ShouldAlmostEqual, vectors[i].Y, 1e-6)
			test.That(t, got[i].Z, test.ShouldAlmostEqual, vectors[i].Z, 1e-6)
		}
	}
}

func TestWritePCDHeader(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, WritePCD(&buf, []r3.Vector{{X: 1, Y: 2, Z: 3}}, PCDAscii), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH 1\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS 1\n"+
		"DATA ascii\n"+
		"1.000000 2.000000 3.000000\n")

	test.That(t, WritePCD(&buf, nil, PCDType(7)), test.ShouldNotBeNil)
}

func TestReadPCDErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"VERSION .6\n",
		"VERSION .7\nFIELDS x y z rgb\n",
		"VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 3\nDATA ascii\n",
		"VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 1\nHEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 1\nDATA ascii\n1 2\n",
	} {
		_, err := ReadPCD(strings.NewReader(in))
		test.That(t, err, test.ShouldNotBeNil)
	}
}
