// Package spcfile reads and writes structured point cloud batches as files.
//
// A file is a fixed header followed by a body:
//
//	magic       "SPCB"
//	version     u8
//	compression u8 (0 none, 1 zstd)
//	flags       u8 (bit 0: indices present)
//	batch       u32
//	payload len u32, of the uncompressed payload
//	checksum    u64, xxhash64 of the uncompressed payload
//	body        the payload, compressed as the header says
//
// The payload holds one uvarint length per octree, then the octree bytes. With indices it
// continues with the max level as a uvarint and the pyramids and exsum as little endian
// int32s. Integers in the header are little endian.
package spcfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"go.viam.com/spc/device"
	"go.viam.com/spc/spc"
)

// Version is the file format version written.
const Version = 1

const (
	magic      = "SPCB"
	headerSize = len(magic) + 3 + 4 + 4 + 8

	flagIndices = 1 << 0
)

// ErrCorrupt is wrapped by every decode error caused by the file's contents.
var ErrCorrupt = errors.New("corrupt spc file")

// Compression is how a file's body is stored.
type Compression uint8

// Known compressions.
const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	}
	return "unknown"
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "", "zstd":
		return CompressionZstd, nil
	}
	return 0, errors.Errorf("unknown compression %q", name)
}

// Header is the fixed part of a file.
type Header struct {
	Version     uint8
	Compression Compression
	HasIndices  bool
	BatchSize   uint32
	PayloadLen  uint32
	Checksum    uint64
}

type writeOptions struct {
	compression Compression
	indices     bool
}

// WriteOption configures Encode.
type WriteOption func(*writeOptions)

// WithCompression sets the body compression. The default is zstd.
func WithCompression(c Compression) WriteOption {
	return func(o *writeOptions) { o.compression = c }
}

// WithIndices also stores max level, pyramids and exsum, computing them if needed.
func WithIndices() WriteOption {
	return func(o *writeOptions) { o.indices = true }
}

// Encode writes s to w.
func Encode(w io.Writer, s *spc.SPC, opts ...WriteOption) error {
	o := writeOptions{compression: CompressionZstd}
	for _, opt := range opts {
		opt(&o)
	}

	host := s.CPU()
	lens := host.Lengths().Int32Data()
	var payload bytes.Buffer
	var scratch [binary.MaxVarintLen64]byte
	for _, n := range lens {
		payload.Write(scratch[:binary.PutUvarint(scratch[:], uint64(n))])
	}
	payload.Write(host.Octrees().Uint8Data())

	var flags uint8
	if o.indices {
		flags |= flagIndices
		maxLevel, err := host.MaxLevel()
		if err != nil {
			return err
		}
		pyramids, err := host.Pyramids()
		if err != nil {
			return err
		}
		exsum, err := host.Exsum()
		if err != nil {
			return err
		}
		payload.Write(scratch[:binary.PutUvarint(scratch[:], uint64(maxLevel))])
		if err := binary.Write(&payload, binary.LittleEndian, pyramids.Int32Data()); err != nil {
			return err
		}
		if err := binary.Write(&payload, binary.LittleEndian, exsum.Int32Data()); err != nil {
			return err
		}
	}
	raw := payload.Bytes()

	var body []byte
	switch o.compression {
	case CompressionNone:
		body = raw
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		body = enc.EncodeAll(raw, nil)
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		return errors.Errorf("unsupported compression %d", o.compression)
	}

	header := make([]byte, 0, headerSize)
	header = append(header, magic...)
	header = append(header, Version, byte(o.compression), flags)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(lens)))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(raw)))
	header = binary.LittleEndian.AppendUint64(header, xxhash.Sum64(raw))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadHeader reads and checks the fixed part of a file.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, errors.Wrap(ErrCorrupt, "short header")
	}
	if string(buf[:len(magic)]) != magic {
		return Header{}, errors.Wrap(ErrCorrupt, "not an spc file")
	}
	rest := buf[len(magic):]
	h := Header{
		Version:     rest[0],
		Compression: Compression(rest[1]),
		HasIndices:  rest[2]&flagIndices != 0,
		BatchSize:   binary.LittleEndian.Uint32(rest[3:]),
		PayloadLen:  binary.LittleEndian.Uint32(rest[7:]),
		Checksum:    binary.LittleEndian.Uint64(rest[11:]),
	}
	if h.Version != Version {
		return Header{}, errors.Wrapf(ErrCorrupt, "unsupported version %d", h.Version)
	}
	if h.Compression > CompressionZstd {
		return Header{}, errors.Wrapf(ErrCorrupt, "unsupported compression %d", h.Compression)
	}
	return h, nil
}

// Decode reads a batch from r onto dev. Stored indices are passed to spc.New as supplied
// fields after opts.
func Decode(r io.Reader, dev device.Device, opts ...spc.Option) (*spc.SPC, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	raw := body
	if h.Compression == CompressionZstd {
		// Small payloads are encoded with a window of up to twice the minimum, which the
		// decoder must be allowed to allocate.
		limit := max(uint64(h.PayloadLen), 2*zstd.MinWindowSize)
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		raw, err = dec.DecodeAll(body, nil)
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "cannot decompress body: %v", err)
		}
	}
	if uint32(len(raw)) != h.PayloadLen {
		return nil, errors.Wrapf(ErrCorrupt, "payload is %d bytes, header says %d", len(raw), h.PayloadLen)
	}
	if sum := xxhash.Sum64(raw); sum != h.Checksum {
		return nil, errors.Wrapf(ErrCorrupt, "checksum %016x does not match %016x", sum, h.Checksum)
	}

	p := bytes.NewReader(raw)
	if uint64(h.BatchSize) > uint64(p.Len()) {
		return nil, errors.Wrapf(ErrCorrupt, "%d octrees cannot fit %d payload bytes", h.BatchSize, p.Len())
	}
	lens := make([]int32, h.BatchSize)
	var total uint64
	for b := range lens {
		n, err := binary.ReadUvarint(p)
		if err != nil || n > uint64(p.Len()) {
			return nil, errors.Wrapf(ErrCorrupt, "bad length of octree %d", b)
		}
		lens[b] = int32(n)
		total += n
	}
	if total > uint64(p.Len()) {
		return nil, errors.Wrapf(ErrCorrupt, "lengths sum to %d but %d bytes remain", total, p.Len())
	}
	codes := make([]uint8, total)
	if _, err := io.ReadFull(p, codes); err != nil {
		return nil, errors.Wrap(ErrCorrupt, "short octree bytes")
	}

	if h.HasIndices {
		idx, err := readIndices(p, dev, len(lens), len(codes))
		if err != nil {
			return nil, err
		}
		opts = append(opts, idx...)
	}
	if p.Len() != 0 {
		return nil, errors.Wrapf(ErrCorrupt, "%d trailing payload bytes", p.Len())
	}

	octrees := device.Uint8s(dev, codes)
	lengths := device.Int32s(dev, lens)
	return spc.New(octrees, lengths, opts...)
}

func readIndices(p *bytes.Reader, dev device.Device, batchSize, numBytes int) ([]spc.Option, error) {
	maxLevel, err := binary.ReadUvarint(p)
	if err != nil || maxLevel > spc.MaxLevel {
		return nil, errors.Wrap(ErrCorrupt, "bad max level")
	}
	width := int(maxLevel) + 2
	pyr := make([]int32, batchSize*2*width)
	ex := make([]int32, numBytes+batchSize)
	if 4*(len(pyr)+len(ex)) > p.Len() {
		return nil, errors.Wrap(ErrCorrupt, "short indices")
	}
	if err := binary.Read(p, binary.LittleEndian, pyr); err != nil {
		return nil, errors.Wrap(ErrCorrupt, "short pyramids")
	}
	if err := binary.Read(p, binary.LittleEndian, ex); err != nil {
		return nil, errors.Wrap(ErrCorrupt, "short exsum")
	}
	pyramids, err := device.New(dev, pyr, batchSize, 2, width)
	if err != nil {
		return nil, err
	}
	return []spc.Option{
		spc.WithMaxLevel(int(maxLevel)),
		spc.WithPyramids(pyramids),
		spc.WithExsum(device.Int32s(dev, ex)),
	}, nil
}

// WriteFile encodes s into a new file at path.
func WriteFile(path string, s *spc.SPC, opts ...WriteOption) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	w := bufio.NewWriter(f)
	if err := Encode(w, s, opts...); err != nil {
		return err
	}
	return w.Flush()
}

// ReadFile decodes the batch stored at path onto dev.
func ReadFile(path string, dev device.Device, opts ...spc.Option) (*spc.SPC, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f), dev, opts...)
}

// ReadFileHeader reads only the header of the file at path.
func ReadFileHeader(path string) (Header, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return ReadHeader(f)
}
