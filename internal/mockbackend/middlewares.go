package mockbackend

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gkmit/notify-console/internal/utils"
	"github.com/labstack/echo/v4"
)

const headerClientID string = "X-Client-Id"
const usernameKey string = "mockbackend_username"

// NoCaching sets headers in responses that prevent caching by the browser.
func NoCaching(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var noCacheHeaders = map[string]string{
			"Expires":         time.Unix(0, 0).Format(time.RFC1123),
			"Cache-Control":   "no-cache, no-store, must-revalidate, max-age=0",
			"X-Accel-Expires": "0",
		}
		for k, v := range noCacheHeaders {
			c.Response().Header().Set(k, v)
		}
		return next(c)
	}
}

// RequireClientID rejects the requests that do not identify the calling client
func (s *Server) RequireClientID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get(headerClientID) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "missing client id"})
		}
		return next(c)
	}
}

// RequireBearer checks the access token and stores the username in the echo context
func (s *Server) RequireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		value, found := strings.CutPrefix(header, "Bearer ")
		if !found || value == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "missing token"})
		}
		username, err := s.verifyAccessToken(value)
		if err != nil {
			slog.Debug(
				"MOCK BACKEND",
				"message", "rejected access token",
				"error", err,
				"requestID", utils.GetRequestID(c),
			)
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "token expired"})
		}
		c.Set(usernameKey, username)
		return next(c)
	}
}
