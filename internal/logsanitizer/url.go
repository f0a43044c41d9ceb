// Package logsanitizer removes database credentials from log entries.
package logsanitizer

import (
	"regexp"

	"github.com/sirupsen/logrus"
)

var (
	// Pattern taken from Regular Expressions Cookbook, slightly modified though
	//                                        |Scheme                |User                         |Named/IPv4 host|IPv6+ host
	hostPattern = regexp.MustCompile(`(?i)([a-z][a-z0-9+\-.]*://)([a-z0-9\-._~%!$&'()*+,;=:]+@)([a-z0-9\-._~%]+|\[[a-z0-9\-._~%!$&'()*+,;=:]+\])`)

	// keyword/value connection strings as produced by config.DB.ToPQString,
	// where spaces and quotes in the value are backslash escaped
	passwordPattern = regexp.MustCompile(`(?i)(password=)(?:\\.|[^\s\\])+`)
)

// DSNSanitizerHook filters credentials out of the message and the error
// field of every entry.
type DSNSanitizerHook struct{}

// NewDSNSanitizerHook returns a new logrus hook for sanitizing connection strings.
func NewDSNSanitizerHook() *DSNSanitizerHook {
	return &DSNSanitizerHook{}
}

// Fire is called by logrus.
func (hook *DSNSanitizerHook) Fire(entry *logrus.Entry) error {
	if err, ok := entry.Data[logrus.ErrorKey].(error); ok {
		if sanitized := sanitizeString(err.Error()); sanitized != err.Error() {
			entry.Data[logrus.ErrorKey] = sanitized
		}
	}

	entry.Message = sanitizeString(entry.Message)

	return nil
}

// Levels is called by logrus.
func (hook *DSNSanitizerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func sanitizeString(str string) string {
	str = hostPattern.ReplaceAllString(str, "$1[FILTERED]@$3")
	return passwordPattern.ReplaceAllString(str, "$1[FILTERED]")
}
