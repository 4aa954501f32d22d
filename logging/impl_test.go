package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestConsoleAppender(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("scan")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Infow("built pyramids", "max_level", 3, "batch_size", 2)
	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, len(parts), test.ShouldBeGreaterThanOrEqualTo, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "scan")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "built pyramids")
	test.That(t, line, test.ShouldContainSubstring, `"max_level": 3`)
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("lvl")
	logger.AddAppender(NewWriterAppender(&buf))
	logger.SetLevel(WARN)

	logger.Debug("hidden")
	logger.Infof("hidden %d", 1)
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Warnf("shown %d", 2)
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown 2")
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)

	for _, name := range []string{"debug", "INFO", "warning", "Error"} {
		_, err := LevelFromString(name)
		test.That(t, err, test.ShouldBeNil)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("spc").Sublogger("scan")
	sub.Debugw("computed", "field", "exsum")
	sub.Errorw("odd", "key")

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entry := logs.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "spc.scan")
	test.That(t, entry.ContextMap()["field"], test.ShouldEqual, "exsum")
	test.That(t, logs.FilterMessage("odd").All()[0].ContextMap()["key"], test.ShouldNotBeNil)
	test.That(t, sub.Sync(), test.ShouldBeNil)
}
