package log

import (
	"os"

	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/logsanitizer"
)

var (
	defaultLogger = logrus.StandardLogger()
	accessLogger  = logrus.New()

	// Loggers is convenient when you want to apply configuration to all
	// loggers
	Loggers = []*logrus.Logger{defaultLogger, accessLogger}
)

func init() {
	// This ensures that any log statements that occur before
	// the configuration has been loaded will be written to
	// stdout instead of stderr
	for _, l := range Loggers {
		l.Out = os.Stdout
		l.AddHook(logsanitizer.NewDSNSanitizerHook())
	}
}

// Configure sets the format and level on all loggers. The access logger
// follows the requested level unless it is 'debug' or 'trace', where
// request lines are still emitted at 'info'.
func Configure(format string, level string) {
	switch format {
	case "json":
		for _, l := range Loggers {
			l.Formatter = &logrus.JSONFormatter{}
		}
	case "text":
		for _, l := range Loggers {
			l.Formatter = &logrus.TextFormatter{}
		}
	case "":
		// Just stick with the default
	default:
		logrus.WithField("format", format).Fatal("invalid logger format")
	}

	logrusLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrusLevel = logrus.InfoLevel
	}

	for _, l := range Loggers {
		if l == accessLogger {
			l.SetLevel(mapAccessLogLevel(logrusLevel))
		} else {
			l.SetLevel(logrusLevel)
		}
	}
}

func mapAccessLogLevel(level logrus.Level) logrus.Level {
	if level > logrus.InfoLevel {
		return logrus.InfoLevel
	}

	return level
}

// Default is the default logrus logger
func Default() *logrus.Entry { return defaultLogger.WithField("pid", os.Getpid()) }

// Access is a dedicated logrus logger for HTTP request lines.
func Access() *logrus.Entry { return accessLogger.WithField("pid", os.Getpid()) }
