package config

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/spc/device"
	"go.viam.com/spc/logging"
	"go.viam.com/spc/testutils"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	dev, err := cfg.ParsedDevice()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dev.Kind(), test.ShouldEqual, device.KindCPU)
	level, err := cfg.ParsedLevel()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, logging.INFO)
}

func TestFromReader(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(`{"device": "accel:0", "verify": true}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Device, test.ShouldEqual, "accel:0")
	test.That(t, cfg.Verify, test.ShouldBeTrue)
	test.That(t, cfg.Compression, test.ShouldEqual, CompressionZstd)

	for _, bad := range []string{
		`{"device": "tpu"}`,
		`{"compression": "lz4"}`,
		`{"log_level": "loud"}`,
		`{"devise": "cpu"}`,
		`{`,
	} {
		_, err := FromReader(strings.NewReader(bad))
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestReadExpandsEnvironment(t *testing.T) {
	t.Setenv("SPC_TEST_DEVICE", "gpu:1")
	path := testutils.WriteTempFile(t, "spc.json", []byte(`{"device": "${SPC_TEST_DEVICE}", "compression": "none"}`))
	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Device, test.ShouldEqual, "gpu:1")
	test.That(t, cfg.Compression, test.ShouldEqual, CompressionNone)

	_, err = Read(path + ".missing")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInitLoggingSettings(t *testing.T) {
	defer logging.GlobalLogLevel.SetLevel(zapcore.InfoLevel)
	logger := logging.NewBlankLogger("spc")

	test.That(t, InitLoggingSettings(logger, false, &Config{LogLevel: "warn"}), test.ShouldBeNil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.WARN)
	test.That(t, logging.GlobalLogLevel.Level(), test.ShouldEqual, zapcore.InfoLevel)

	test.That(t, InitLoggingSettings(logger, true, &Config{LogLevel: "warn"}), test.ShouldBeNil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
	test.That(t, logging.GlobalLogLevel.Level(), test.ShouldEqual, zapcore.DebugLevel)

	test.That(t, InitLoggingSettings(logger, false, &Config{LogLevel: "loud"}), test.ShouldNotBeNil)
}
