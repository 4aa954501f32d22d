package spcfile

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
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

func encode(t *testing.T, s *spc.SPC, opts ...WriteOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, Encode(&buf, s, opts...), test.ShouldBeNil)
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []WriteOption
	}{
		{"zstd", nil},
		{"none", []WriteOption{WithCompression(CompressionNone)}},
		{"zstd with indices", []WriteOption{WithIndices()}},
		{"none with indices", []WriteOption{WithCompression(CompressionNone), WithIndices()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := encode(t, fixture(t), tc.opts...)

			h, err := ReadHeader(bytes.NewReader(data))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, h.Version, test.ShouldEqual, uint8(Version))
			test.That(t, h.BatchSize, test.ShouldEqual, uint32(2))

			s, err := Decode(bytes.NewReader(data), device.Accelerator, spc.WithLogger(logging.NewTestLogger(t)))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, device.Same(s.Device(), device.Accelerator), test.ShouldBeTrue)
			test.That(t, s.Octrees().Uint8Data(), test.ShouldResemble, testutils.FixtureOctreeBytes())
			test.That(t, s.Lengths().Int32Data(), test.ShouldResemble, testutils.FixtureLengths)
			test.That(t, s.Has(spc.FieldPyramids), test.ShouldEqual, h.HasIndices)
			test.That(t, s.Has(spc.FieldExsum), test.ShouldEqual, h.HasIndices)
			test.That(t, s.Verify(), test.ShouldBeNil)

			pyramids, err := s.Pyramids()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, pyramids.Int32Data(), test.ShouldResemble, testutils.FixturePyramids)
		})
	}
}

func TestRoundTripPayloadSizes(t *testing.T) {
	// One octree of n bytes has a payload of n plus a two byte uvarint length.
	for _, n := range []int{998, 1022, 1023, 4998} {
		t.Run(fmt.Sprint(n+2), func(t *testing.T) {
			codes := bytes.Repeat([]byte{0xFF}, n)
			s, err := spc.New(device.Uint8s(device.CPU, codes), device.Int32s(device.CPU, []int32{int32(n)}))
			test.That(t, err, test.ShouldBeNil)
			data := encode(t, s)

			h, err := ReadHeader(bytes.NewReader(data))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, h.PayloadLen, test.ShouldEqual, uint32(n+2))

			decoded, err := Decode(bytes.NewReader(data), device.CPU)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, decoded.Octrees().Uint8Data(), test.ShouldResemble, codes)
		})
	}
}

func TestEncodeDoesNotPopulateSource(t *testing.T) {
	s := fixture(t)
	encode(t, s, WithIndices())
	test.That(t, s.Has(spc.FieldPyramids), test.ShouldBeFalse)
}

func TestCorrupt(t *testing.T) {
	good := encode(t, fixture(t), WithCompression(CompressionNone))

	for _, tc := range []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"empty", func([]byte) []byte { return nil }},
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"version", func(b []byte) []byte { b[4] = 9; return b }},
		{"compression", func(b []byte) []byte { b[5] = 7; return b }},
		{"truncated body", func(b []byte) []byte { return b[:len(b)-1] }},
		{"flipped byte", func(b []byte) []byte { b[len(b)-1] ^= 0xFF; return b }},
		{"huge batch", func(b []byte) []byte { b[7], b[8], b[9], b[10] = 0xFF, 0xFF, 0xFF, 0x7F; return b }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.mangle(append([]byte(nil), good...))
			_, err := Decode(bytes.NewReader(data), device.CPU)
			test.That(t, errors.Is(err, ErrCorrupt), test.ShouldBeTrue)
		})
	}

	t.Run("zstd garbage", func(t *testing.T) {
		data := encode(t, fixture(t))
		data = append(data[:headerSize], 1, 2, 3, 4)
		_, err := Decode(bytes.NewReader(data), device.CPU)
		test.That(t, errors.Is(err, ErrCorrupt), test.ShouldBeTrue)
	})
	t.Run("body larger than declared", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		test.That(t, err, test.ShouldBeNil)
		bomb := enc.EncodeAll(make([]byte, 8<<20), nil)
		test.That(t, enc.Close(), test.ShouldBeNil)

		data := encode(t, fixture(t))
		data = append(data[:headerSize:headerSize], bomb...)
		_, err = Decode(bytes.NewReader(data), device.CPU)
		test.That(t, errors.Is(err, ErrCorrupt), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "cannot decompress body")
	})
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.spcb")
	test.That(t, WriteFile(path, fixture(t), WithIndices()), test.ShouldBeNil)

	h, err := ReadFileHeader(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Compression, test.ShouldEqual, CompressionZstd)
	test.That(t, h.HasIndices, test.ShouldBeTrue)

	s, err := ReadFile(path, device.CPU, spc.WithLogger(logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)
	maxLevel, err := s.MaxLevel()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, maxLevel, test.ShouldEqual, testutils.FixtureMaxLevel)

	_, err = ReadFile(path+".missing", device.CPU)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("none")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldEqual, CompressionNone)
	c, err = ParseCompression("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldEqual, CompressionZstd)
	_, err = ParseCompression("lz4")
	test.That(t, err, test.ShouldNotBeNil)
}
