package service

import (
	"net/http"
	"strconv"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/log"
	"gitlab.com/gitlab-org/labkit/correlation"
)

const correlationIDField = "correlation_id"

// route returns the matched route pattern, which keeps label cardinality
// bounded, or a placeholder for unmatched requests.
func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		s.logger.WithFields(logrus.Fields{
			"http.method":      c.Request.Method,
			"http.route":       route(c),
			correlationIDField: correlation.ExtractFromContext(c.Request.Context()),
		}).Errorf("handler panic: %v", recovered)

		sentry.CurrentHub().Recover(recovered)
		abortWithStatus(c, http.StatusInternalServerError, panicError{recovered}, errInternal.Error())
	})
}

func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.inFlight != nil {
			s.inFlight.Inc()
			defer s.inFlight.Dec()
		}

		if s.requestLatency != nil {
			start := time.Now()
			defer func() {
				s.requestLatency.
					WithLabelValues(c.Request.Method, route(c), strconv.Itoa(c.Writer.Status())).
					Observe(time.Since(start).Seconds())
			}()
		}

		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	access := log.Access()

	return func(c *gin.Context) {
		start := time.Now()
		defer func() { logRequest(access, c, start) }()

		c.Next()
	}
}

func logRequest(access *logrus.Entry, c *gin.Context, start time.Time) {
	entry := access.WithFields(logrus.Fields{
		"http.method":      c.Request.Method,
		"http.path":        c.Request.URL.Path,
		"http.route":       route(c),
		"http.status":      c.Writer.Status(),
		"http.time_ms":     time.Since(start).Milliseconds(),
		correlationIDField: correlation.ExtractFromContext(c.Request.Context()),
	})

	if err := c.Errors.Last(); err != nil {
		entry = entry.WithError(err.Err)
	}

	switch status := c.Writer.Status(); {
	case status >= http.StatusInternalServerError:
		entry.Error("request failed")
	case status >= http.StatusBadRequest:
		entry.Warn("request rejected")
	default:
		entry.Info("request served")
	}
}
