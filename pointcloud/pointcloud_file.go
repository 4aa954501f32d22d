package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

// WritePCD writes points as an unorganized x y z pcd v0.7 cloud.
func WritePCD(out io.Writer, points []r3.Vector, outputType PCDType) error {
	var data string
	switch outputType {
	case PCDAscii:
		data = "ascii"
	case PCDBinary:
		data = "binary"
	default:
		return errors.Errorf("unsupported pcd data type %d", outputType)
	}

	w := bufio.NewWriter(out)
	_, err := fmt.Fprintf(w, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		len(points), len(points), data)
	if err != nil {
		return err
	}

	buf := make([]byte, 12)
	for _, p := range points {
		switch outputType {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			_, err = w.Write(buf)
		case PCDAscii:
			_, err = fmt.Fprintf(w, "%f %f %f\n", p.X, p.Y, p.Z)
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

type pcdHeader struct {
	width, height, points uint64
	data                  PCDType
}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		if value != "x y z" {
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if value != "4 4 4" {
			return errors.Errorf("unsupported pcd sizes %s", value)
		}
	case "TYPE":
		if value != "F F F" {
			return errors.Errorf("unsupported pcd types %s", value)
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "POINTS":
		header.points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if header.points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", header.points, header.width*header.height)
		}
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}
	return nil
}

// ReadPCD reads an x y z pcd v0.7 cloud as written by WritePCD.
func ReadPCD(inRaw io.Reader) ([]r3.Vector, error) {
	var header pcdHeader
	in := bufio.NewReader(inRaw)
	for index := 0; index < len(pcdHeaderFields); {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", index)
		}
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, index, &header); err != nil {
			return nil, err
		}
		index++
	}

	points := make([]r3.Vector, 0, header.points)
	switch header.data {
	case PCDAscii:
		for i := uint64(0); i < header.points; i++ {
			line, err := in.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				return nil, errors.Wrapf(err, "reading point %d", i)
			}
			tokens := strings.Fields(line)
			if len(tokens) != 3 {
				return nil, errors.Errorf("unexpected number of fields in point %d", i)
			}
			var xyz [3]float64
			for j, token := range tokens {
				if xyz[j], err = strconv.ParseFloat(token, 64); err != nil {
					return nil, errors.Wrapf(err, "invalid point %d field %s", i, token)
				}
			}
			points = append(points, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		}
	case PCDBinary:
		buf := make([]byte, 12)
		for i := uint64(0); i < header.points; i++ {
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, errors.Wrapf(err, "reading point %d", i)
			}
			points = append(points, r3.Vector{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
			})
		}
	}
	return points, nil
}
