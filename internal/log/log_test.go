package log

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	defer func() {
		for _, l := range Loggers {
			l.Formatter = &logrus.TextFormatter{}
			l.SetLevel(logrus.InfoLevel)
		}
	}()

	for _, tc := range []struct {
		desc        string
		level       string
		expected    logrus.Level
		expectedAcc logrus.Level
	}{
		{desc: "warn", level: "warn", expected: logrus.WarnLevel, expectedAcc: logrus.WarnLevel},
		{desc: "debug", level: "debug", expected: logrus.DebugLevel, expectedAcc: logrus.InfoLevel},
		{desc: "invalid falls back to info", level: "chatty", expected: logrus.InfoLevel, expectedAcc: logrus.InfoLevel},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			Configure("json", tc.level)

			require.Equal(t, tc.expected, defaultLogger.GetLevel())
			require.Equal(t, tc.expectedAcc, accessLogger.GetLevel())
		})
	}
}

func TestDefault_pid(t *testing.T) {
	var buf bytes.Buffer
	defer func(out io.Writer, formatter logrus.Formatter) {
		defaultLogger.Out = out
		defaultLogger.Formatter = formatter
	}(defaultLogger.Out, defaultLogger.Formatter)
	defaultLogger.Out = &buf

	Configure("json", "info")
	Default().Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Contains(t, entry, "pid")
}
