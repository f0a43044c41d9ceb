package sentry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/testhelper"
)

func TestConfigureSentry(t *testing.T) {
	logger := testhelper.DiscardTestEntry(t)

	t.Run("disabled without dsn", func(t *testing.T) {
		require.NoError(t, ConfigureSentry(logger, "1.0.0", config.Sentry{}))
	})

	t.Run("invalid dsn", func(t *testing.T) {
		require.Error(t, ConfigureSentry(logger, "1.0.0", config.Sentry{DSN: "not a dsn"}))
	})

	t.Run("valid dsn", func(t *testing.T) {
		require.NoError(t, ConfigureSentry(logger, "1.0.0", config.Sentry{
			DSN:         "https://public@sentry.example.com/1",
			Environment: "test",
		}))
	})
}
