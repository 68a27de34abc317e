package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that writes through tb.Log, so each line is attributed to
// the test that produced it even when tests run in parallel. Times are local.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write formats the entry as tab separated columns: time, level, logger name, caller, message
// and the fields as a JSON object.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	columns := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		columns = append(columns, entry.Caller.TrimmedPath())
	}
	columns = append(columns, entry.Message)

	var err error
	if len(fields) > 0 {
		encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
		buf, encErr := encoder.EncodeEntry(zapcore.Entry{}, fields)
		if encErr == nil {
			columns = append(columns, buf.String())
			buf.Free()
		}
		err = encErr
	}
	tapp.tb.Log(strings.Join(columns, "\t"))
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
