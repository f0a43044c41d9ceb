package service

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"gitlab.com/gitlab-org/labkit/correlation"
)

var ignoredStatuses = []int{
	// GatewayTimeout indicates clients whose deadline expired
	http.StatusGatewayTimeout,
}

type panicError struct{ recovered interface{} }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.recovered) }

func sentryReporter() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if event := generateSentryEvent(c, start); event != nil {
			sentry.CaptureEvent(event)
		}
	}
}

func bypassSentry(status int) bool {
	if status < http.StatusInternalServerError {
		return true
	}

	for _, ignored := range ignoredStatuses {
		if status == ignored {
			return true
		}
	}

	return false
}

func routeToCulprit(method, route string) string {
	route = strings.TrimPrefix(route, "/v1/")
	return method + " " + route
}

func generateSentryEvent(c *gin.Context, start time.Time) *sentry.Event {
	status := c.Writer.Status()
	last := c.Errors.Last()
	if last == nil || bypassSentry(status) {
		return nil
	}

	err := last.Err
	event := sentry.NewEvent()

	for k, v := range map[string]string{
		"http.method":      c.Request.Method,
		"http.route":       route(c),
		"http.status":      strconv.Itoa(status),
		"http.time_ms":     fmt.Sprintf("%.0f", time.Since(start).Seconds()*1000),
		correlationIDField: correlation.ExtractFromContext(c.Request.Context()),
		"system":           "http",
	} {
		event.Tags[k] = v
	}

	event.Message = err.Error()

	// Skip the stacktrace as it's not helpful in this context
	event.Exception = append(event.Exception, newException(err, nil))

	culprit := routeToCulprit(c.Request.Method, route(c))

	// Details on fingerprinting
	// https://docs.sentry.io/learn/rollups/#customize-grouping-with-fingerprints
	event.Fingerprint = []string{"http", culprit, strconv.Itoa(status)}
	event.Transaction = culprit

	return event
}

var errorMsgPattern = regexp.MustCompile(`\A(\w+): (.+)\z`)

// newException constructs an Exception using provided Error and Stacktrace
func newException(err error, stacktrace *sentry.Stacktrace) sentry.Exception {
	msg := err.Error()
	ex := sentry.Exception{
		Stacktrace: stacktrace,
		Value:      msg,
		Type:       reflect.TypeOf(err).String(),
	}
	if m := errorMsgPattern.FindStringSubmatch(msg); m != nil {
		ex.Module, ex.Value = m[1], m[2]
	}
	return ex
}
