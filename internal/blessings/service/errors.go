package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
)

var (
	errInvalidID       = errors.New("id must be a positive integer")
	errInternal        = errors.New("internal error")
	errUnavailable     = errors.New("store unavailable")
	errDeadline        = errors.New("request timed out")
	errInvalidArgument = errors.New("invalid request body")
)

// statusFor maps an error returned by the stores to the HTTP status code and
// the message exposed to the client.
func statusFor(err error) (int, string) {
	var (
		invalid     datastore.InvalidArgumentError
		notFound    datastore.NotFoundError
		violation   datastore.ConstraintViolationError
		unavailable datastore.StoreUnavailableError
	)

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &violation):
		if violation.Kind == datastore.KindUnique {
			return http.StatusConflict, "price already defined for this product and client category"
		}
		return http.StatusBadRequest, "referenced product or client category does not exist"
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, errUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errDeadline.Error()
	default:
		return http.StatusInternalServerError, errInternal.Error()
	}
}

// abort records err on the context for the logging and sentry middlewares
// and writes the matching response.
func abort(c *gin.Context, err error) {
	status, msg := statusFor(err)
	abortWithStatus(c, status, err, msg)
}

func abortWithStatus(c *gin.Context, status int, err error, msg string) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
