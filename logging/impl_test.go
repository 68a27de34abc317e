package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestConsoleAppender(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("eval")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Debugw("accuracy", "within_5cm", 0.5)
	line := buf.String()
	parts := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	test.That(t, len(parts), test.ShouldEqual, 6)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[2], test.ShouldEqual, "eval")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "accuracy")
	test.That(t, parts[5], test.ShouldEqual, `{"within_5cm": 0.5}`)
}

func TestLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(WARN)
	logger.Info("dropped")
	logger.Warnf("kept %d", 1)
	logger.Errorw("kept", "n", 2)
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "kept 1")
	test.That(t, logs.All()[0].Level, test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, logs.All()[1].ContextMap()["n"], test.ShouldEqual, int64(2))

	level, err := LevelFromString("WARNING")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("ief")
	sub.Sublogger("refine").Debug("step")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "ief.refine")
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	logger, file := NewFileLogger("depthpose", path)
	logger.Info("hello")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, file.Close(), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("loaded", "frames", 23, "view")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	fields := logs.All()[0].ContextMap()
	test.That(t, fields["frames"], test.ShouldEqual, int64(23))
	test.That(t, fields["view"], test.ShouldEqual, "unpaired log key")
}

func TestReplaceGlobal(t *testing.T) {
	previous := Global()
	defer ReplaceGlobal(previous)

	var buf bytes.Buffer
	logger := NewBlankLogger("cli")
	logger.AddAppender(NewWriterAppender(&buf))
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)

	Global().Error("no such split")
	test.That(t, buf.String(), test.ShouldContainSubstring, "no such split")
}
