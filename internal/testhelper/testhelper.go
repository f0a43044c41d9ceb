package testhelper

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/log"
)

var configureOnce sync.Once

// Configure sets up the global test configuration. It returns a cleanup
// function which should be called at the end of TestMain.
func Configure() func() {
	configureOnce.Do(func() {
		log.Configure("json", os.Getenv("BLESSINGS_TEST_LOG_LEVEL"))
	})

	return func() {}
}

type contextOpts struct {
	timeout time.Duration
}

// ContextOpt returns a new context instance with the new additions to it.
type ContextOpt func(*contextOpts)

// ContextWithTimeout allows to set the deadline of the returned context.
func ContextWithTimeout(duration time.Duration) ContextOpt {
	return func(o *contextOpts) { o.timeout = duration }
}

// Context returns a cancellable context with a one minute deadline unless
// ContextWithTimeout says otherwise.
func Context(opts ...ContextOpt) (context.Context, func()) {
	o := contextOpts{timeout: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	return context.WithTimeout(context.Background(), o.timeout)
}

// MustClose closes c and fails the test on error.
func MustClose(t testing.TB, c interface{ Close() error }) {
	t.Helper()
	require.NoError(t, c.Close())
}
