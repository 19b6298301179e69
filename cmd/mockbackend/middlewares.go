package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var logLevel *slog.LevelVar = new(slog.LevelVar)
var jsonLogger *slog.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
func setDebugMode(enabled bool) {
	if enabled {
		logLevel.Set(slog.LevelDebug)
		return
	}
	logLevel.Set(slog.LevelInfo)
}

func applyConfigChange(cfg config.Config, err error) {
	if err != nil {
		slog.Error("CONFIG", "message", "the changed configuration is invalid, keeping the previous settings", "error", err)
		return
	}
	if cfg.DebugMode != (logLevel.Level() == slog.LevelDebug) {
		slog.Info("CONFIG", "message", "applying the changed debug mode", "debugMode", cfg.DebugMode)
	}
	setDebugMode(cfg.DebugMode)
}

var requestLogger echo.MiddlewareFunc = middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
	LogStatus:    true,
	LogURI:       true,
	LogError:     true,
	LogRequestID: true,
	LogRoutePath: true,
	LogMethod:    true,
	LogUserAgent: true,
	HandleError:  true, // forwards error to the global error handler, so it can decide appropriate status code
	LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
		if v.Error == nil {
			jsonLogger.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("requestID", v.RequestID),
				slog.String("clientID", c.Request().Header.Get("X-Client-Id")),
				slog.String("method", v.Method),
				slog.String("handler", v.RoutePath),
				slog.String("userAgent", v.UserAgent),
			)
		} else {
			jsonLogger.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("error", v.Error.Error()),
				slog.String("requestID", v.RequestID),
				slog.String("traceID", utils.GetTraceID(c)),
				slog.String("method", v.Method),
				slog.String("handler", v.RoutePath),
				slog.String("userAgent", v.UserAgent),
			)
		}
		return nil
	},
})
