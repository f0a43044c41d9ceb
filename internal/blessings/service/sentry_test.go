package service

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
)

func Test_generateSentryEvent(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		route       string
		path        string
		sinceStart  time.Duration
		status      int
		err         error
		wantNil     bool
		wantMessage string
		wantCulprit string
	}{
		{
			name:        "internal error",
			method:      http.MethodPost,
			route:       "/v1/products",
			path:        "/v1/products",
			sinceStart:  500 * time.Millisecond,
			status:      http.StatusInternalServerError,
			err:         fmt.Errorf("Internal"),
			wantMessage: "Internal",
			wantCulprit: "POST products",
		},
		{
			name:        "store unavailable",
			method:      http.MethodGet,
			route:       "/v1/products/:id/prices",
			path:        "/v1/products/7/prices",
			sinceStart:  500 * time.Millisecond,
			status:      http.StatusServiceUnavailable,
			err:         fmt.Errorf("query: %w", errUnavailable),
			wantMessage: "query: store unavailable",
			wantCulprit: "GET products/:id/prices",
		},
		{
			name:       "nil",
			method:     http.MethodGet,
			route:      "/v1/blessings",
			path:       "/v1/blessings",
			sinceStart: 500 * time.Millisecond,
			status:     http.StatusInternalServerError,
			wantNil:    true,
		},
		{
			name:       "NotFound",
			method:     http.MethodGet,
			route:      "/v1/blessings/:id",
			path:       "/v1/blessings/9",
			sinceStart: 500 * time.Millisecond,
			status:     http.StatusNotFound,
			err:        datastore.NotFoundError{Entity: "blessing", ID: 9},
			wantNil:    true,
		},
		{
			name:       "GatewayTimeout",
			method:     http.MethodGet,
			route:      "/v1/products",
			path:       "/v1/products",
			sinceStart: 500 * time.Millisecond,
			status:     http.StatusGatewayTimeout,
			err:        errDeadline,
			wantNil:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event *sentry.Event

			_, engine := gin.CreateTestContext(httptest.NewRecorder())
			engine.Handle(tt.method, tt.route, func(c *gin.Context) {
				if tt.err != nil {
					_ = c.Error(tt.err)
				}
				c.Status(tt.status)
				event = generateSentryEvent(c, time.Now().Add(-tt.sinceStart))
			})

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)

			if tt.wantNil {
				assert.Nil(t, event)
				return
			}

			status := fmt.Sprint(tt.status)
			assert.Equal(t, tt.wantCulprit, event.Transaction)
			assert.Equal(t, tt.wantMessage, event.Message)
			assert.Equal(t, event.Tags["system"], "http")
			assert.NotEmpty(t, event.Tags["http.time_ms"])
			assert.Equal(t, tt.method, event.Tags["http.method"])
			assert.Equal(t, tt.route, event.Tags["http.route"])
			assert.Equal(t, status, event.Tags["http.status"])
			assert.Equal(t, []string{"http", tt.wantCulprit, status}, event.Fingerprint)
		})
	}
}

func TestNewException(t *testing.T) {
	ex := newException(fmt.Errorf("commit: %w", errors.New("disk full")), nil)
	assert.Equal(t, "commit", ex.Module)
	assert.Equal(t, "disk full", ex.Value)
	assert.Equal(t, "*fmt.wrapError", ex.Type)

	ex = newException(panicError{"boom"}, nil)
	assert.Equal(t, "panic", ex.Module)
	assert.Equal(t, "boom", ex.Value)
	assert.Equal(t, "service.panicError", ex.Type)
}

func TestBypassSentry(t *testing.T) {
	for status, bypass := range map[int]bool{
		http.StatusOK:                  true,
		http.StatusBadRequest:          true,
		http.StatusConflict:            true,
		http.StatusInternalServerError: false,
		http.StatusServiceUnavailable:  false,
		http.StatusGatewayTimeout:      true,
	} {
		assert.Equal(t, bypass, bypassSentry(status), "status %d", status)
	}
}
