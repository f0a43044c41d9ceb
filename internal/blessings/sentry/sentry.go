package sentry

import (
	sentry "github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
)

// ConfigureSentry configures the sentry DSN. Reporting stays disabled if
// no DSN is configured.
func ConfigureSentry(logger logrus.FieldLogger, version string, conf config.Sentry) error {
	if conf.DSN == "" {
		return nil
	}

	logger.Debug("Using sentry logging")

	return sentry.Init(sentry.ClientOptions{
		Dsn:         conf.DSN,
		Environment: conf.Environment,
		Release:     "v" + version,
	})
}
