package utils

import (
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// NewRequestID returns the value sent in the X-Request-Id header of outbound requests
func NewRequestID() string {
	return uuid.NewString()
}

// GetRequestID reads the request ID the server middleware echoed back in the response
func GetRequestID(c echo.Context) string {
	id := c.Response().Header().Get(echo.HeaderXRequestID)
	if id == "" {
		id = c.Request().Header.Get(echo.HeaderXRequestID)
	}
	return id
}

// GetTraceID returns the sentry trace of the request, empty without the sentry middleware
func GetTraceID(c echo.Context) string {
	span := sentryecho.GetSpanFromContext(c)
	if span == nil {
		return ""
	}
	return span.TraceID.String()
}
