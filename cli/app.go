// Package cli contains the spc command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

// Flags.
const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagLengths     = "lengths"
	flagIndices     = "indices"
	flagCompression = "compression"
	flagDevice      = "device"
	flagBatch       = "batch"
	flagLevel       = "level"
	flagBinary      = "binary"
	flagNormalize   = "normalize"
)

func newApp() *cli.App {
	return &cli.App{
		Name:            "spc",
		Usage:           "pack, inspect and export structured point cloud batches",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagDevice,
				Usage: "device to scan on, overriding the config (cpu, accel[:N])",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "pack",
				Usage:     "pack raw occupancy bytes into a batch file",
				ArgsUsage: "<raw-octrees> <out.spcb>",
				Flags: []cli.Flag{
					&cli.IntSliceFlag{
						Name:     flagLengths,
						Usage:    "byte count of each octree, e.g. 6,5",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  flagIndices,
						Usage: "also store max level, pyramids and exsum",
					},
					&cli.StringFlag{
						Name:  flagCompression,
						Usage: "body compression, overriding the config (none, zstd)",
					},
				},
				Action: PackAction,
			},
			{
				Name:      "info",
				Usage:     "print a summary of a batch file",
				ArgsUsage: "<file.spcb>",
				Action:    InfoAction,
			},
			{
				Name:      "points",
				Usage:     "export one level of one octree as a pcd file",
				ArgsUsage: "<file.spcb> <out.pcd>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagBatch,
						Usage: "octree index in the batch",
					},
					&cli.IntFlag{
						Name:     flagLevel,
						Usage:    "level to export",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  flagBinary,
						Usage: "write binary pcd data",
					},
					&cli.BoolFlag{
						Name:  flagNormalize,
						Usage: "write voxel centers in the [-1, 1] cube instead of integer coordinates",
					},
				},
				Action: PointsAction,
			},
		},
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
