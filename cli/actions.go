package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/spc/config"
	"go.viam.com/spc/device"
	"go.viam.com/spc/logging"
	"go.viam.com/spc/pointcloud"
	"go.viam.com/spc/spc"
	"go.viam.com/spc/spcfile"
)

type settings struct {
	cfg    *config.Config
	dev    device.Device
	logger logging.Logger
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// loadSettings reads the config named by the global flags, or the default one, and sets up
// logging to the app's error writer.
func loadSettings(c *cli.Context) (*settings, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	if name := c.String(flagDevice); name != "" {
		cfg.Device = name
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dev, err := cfg.ParsedDevice()
	if err != nil {
		return nil, err
	}

	logger := logging.NewBlankLogger("spc")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if err := config.InitLoggingSettings(logger, c.Bool(flagDebug), cfg); err != nil {
		return nil, err
	}
	return &settings{cfg: cfg, dev: dev, logger: logger}, nil
}

func (st *settings) readBatch(path string) (*spc.SPC, error) {
	s, err := spcfile.ReadFile(path, st.dev, spc.WithLogger(st.logger))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %q", path)
	}
	if st.cfg.Verify {
		if err := s.Verify(); err != nil {
			return nil, err
		}
		st.logger.Debugw("verified stored indices", "file", path)
	}
	return s, nil
}

func args(c *cli.Context, names ...string) ([]string, error) {
	if c.Args().Len() != len(names) {
		return nil, errors.Errorf("expected %d arguments <%s>, got %d", len(names), strings.Join(names, "> <"), c.Args().Len())
	}
	return c.Args().Slice(), nil
}

// PackAction packs a file of raw occupancy bytes into a batch file.
func PackAction(c *cli.Context) error {
	paths, err := args(c, "raw-octrees", "out.spcb")
	if err != nil {
		return err
	}
	st, err := loadSettings(c)
	if err != nil {
		return err
	}

	compressionName := st.cfg.Compression
	if c.IsSet(flagCompression) {
		compressionName = c.String(flagCompression)
	}
	compression, err := spcfile.ParseCompression(compressionName)
	if err != nil {
		return err
	}

	//nolint:gosec
	raw, err := os.ReadFile(paths[0])
	if err != nil {
		return err
	}
	lens := lo.Map(c.IntSlice(flagLengths), func(n, _ int) int32 { return int32(n) })
	s, err := spc.New(device.Uint8s(st.dev, raw), device.Int32s(st.dev, lens), spc.WithLogger(st.logger))
	if err != nil {
		return err
	}

	opts := []spcfile.WriteOption{spcfile.WithCompression(compression)}
	if c.Bool(flagIndices) {
		opts = append(opts, spcfile.WithIndices())
	} else if _, err := s.Pyramids(); err != nil {
		// Indices are not stored, but a batch that cannot be scanned is not packed either.
		return err
	}
	if err := spcfile.WriteFile(paths[1], s, opts...); err != nil {
		return err
	}
	printf(c.App.Writer, "packed %d octrees (%d bytes) into %s", s.BatchSize(), len(raw), paths[1])
	return nil
}

// InfoAction prints a summary of a batch file.
func InfoAction(c *cli.Context) error {
	paths, err := args(c, "file.spcb")
	if err != nil {
		return err
	}
	st, err := loadSettings(c)
	if err != nil {
		return err
	}
	h, err := spcfile.ReadFileHeader(paths[0])
	if err != nil {
		return err
	}
	s, err := st.readBatch(paths[0])
	if err != nil {
		return err
	}
	maxLevel, err := s.MaxLevel()
	if err != nil {
		return err
	}
	pyramids, err := s.Pyramids()
	if err != nil {
		return err
	}
	numPoints, err := s.NumPoints()
	if err != nil {
		return err
	}

	w := c.App.Writer
	printf(w, "%s: version %d, %s compression, indices stored: %t", paths[0], h.Version, h.Compression, h.HasIndices)
	printf(w, "batch size: %d", s.BatchSize())
	printf(w, "octree bytes: %d", s.Octrees().Len())
	printf(w, "max level: %d", maxLevel)
	printf(w, "points: %d", numPoints)
	width := maxLevel + 2
	pyr := pyramids.Int32Data()
	lens := s.Lengths().Int32Data()
	for b := 0; b < s.BatchSize(); b++ {
		row := pyr[b*2*width : b*2*width+width-1]
		printf(w, "octree %d: %d bytes, level sizes %v", b, lens[b], row)
	}
	return nil
}

// PointsAction exports one level of one octree of a batch file as pcd.
func PointsAction(c *cli.Context) error {
	paths, err := args(c, "file.spcb", "out.pcd")
	if err != nil {
		return err
	}
	st, err := loadSettings(c)
	if err != nil {
		return err
	}
	s, err := st.readBatch(paths[0])
	if err != nil {
		return err
	}
	vectors, err := pointcloud.LevelVectors(s, c.Int(flagBatch), c.Int(flagLevel), c.Bool(flagNormalize))
	if err != nil {
		return err
	}

	outputType := pointcloud.PCDAscii
	if c.Bool(flagBinary) {
		outputType = pointcloud.PCDBinary
	}
	//nolint:gosec
	f, err := os.Create(paths[1])
	if err != nil {
		return err
	}
	if err := pointcloud.WritePCD(f, vectors, outputType); err != nil {
		//nolint:errcheck
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	st.logger.Debugw("wrote points", "file", paths[1], "points", len(vectors))
	printf(c.App.Writer, "wrote %d points of octree %d level %d to %s", len(vectors), c.Int(flagBatch), c.Int(flagLevel), paths[1])
	return nil
}
