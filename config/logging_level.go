package config

import (
	"go.uber.org/zap/zapcore"

	"go.viam.com/spc/logging"
)

// InitLoggingSettings sets the process log level from the command line debug flag and the
// config's log level. The debug flag wins.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool, cfg *Config) error {
	level, err := cfg.ParsedLevel()
	if err != nil {
		return err
	}
	if cmdLineDebugFlag {
		level = logging.DEBUG
	}
	logger.SetLevel(level)
	if level == logging.DEBUG {
		logging.GlobalLogLevel.SetLevel(zapcore.DebugLevel)
	} else {
		logging.GlobalLogLevel.SetLevel(zapcore.InfoLevel)
	}
	logger.Debugw("log level initialized", "level", level.String())
	return nil
}
