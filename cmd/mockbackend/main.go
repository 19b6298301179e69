package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/mockbackend"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Load configuration
	ch := config.NewConfigHandler()
	cfg, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded config", "config", cfg.MockBackend)
	setDebugMode(cfg.DebugMode)
	// only debugMode is applied on the fly, the rest needs a restart
	ch.HandleChanges(applyConfigChange)
	ch.Watch()
	mockConfig := cfg.MockBackend
	serverConfig := mockConfig.Server
	err = mockConfig.Validate(cfg.RunningEnvironment)
	if err == nil {
		err = serverConfig.Validate()
	}
	if err != nil {
		slog.Error("the mock backend config validation failed", "error", err)
		os.Exit(1)
	}
	middlewares := []echo.MiddlewareFunc{requestLogger}
	// Rate limiting
	if serverConfig.RateLimits.Enabled {
		middlewares = append(middlewares, middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(serverConfig.RateLimits.Rate),
					Burst:     serverConfig.RateLimits.Burst,
					ExpiresIn: 3 * time.Minute,
				}),
		))
	}
	// CORS
	if len(serverConfig.AllowOrigin) > 0 {
		middlewares = append(middlewares, middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: serverConfig.AllowOrigin,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-Client-Id", echo.HeaderXRequestID},
		}))
	}
	// Sentry
	if cfg.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(cfg.Monitoring.Sentry.Dsn),
			TracesSampleRate: cfg.Monitoring.Sentry.SampleRate,
			Environment:      cfg.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		middlewares = append(middlewares, sentryecho.New(sentryecho.Options{}))
	}
	// Prometheus
	if cfg.Monitoring.Prometheus.Enabled {
		middlewares = append(middlewares, echoprometheus.NewMiddleware("mockbackend"))
		go func() {
			metrics := echo.New()
			metrics.HideBanner = true
			metrics.HidePort = true
			metrics.GET("/metrics", echoprometheus.NewHandler())
			err := metrics.Start(fmt.Sprintf(":%d", cfg.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// The object store stands in for the storage host of the attachments
	objectStore := mockbackend.NewObjectStore(string(mockConfig.JWTSecret))
	objectStore.Echo().Use(requestLogger)
	uploadBaseURL := fmt.Sprintf("http://%s:%d", serverConfig.Host, mockConfig.UploadPort)
	server, err := mockbackend.NewServer(
		mockbackend.WithConfig(mockConfig),
		mockbackend.WithObjectStore(objectStore, uploadBaseURL),
		mockbackend.WithMiddlewares(middlewares...),
	)
	if err != nil {
		slog.Error("mock backend initialization failed", "error", err)
		os.Exit(1)
	}
	// Start servers
	address := fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port)
	go func() {
		err := server.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("the mock backend failed", "error", err)
			os.Exit(1)
		}
	}()
	uploadAddress := fmt.Sprintf("%s:%d", serverConfig.Host, mockConfig.UploadPort)
	slog.Info("starting the upload server on address " + uploadAddress)
	go func() {
		err := objectStore.Echo().Start(uploadAddress)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("the upload server failed", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := objectStore.Echo().Shutdown(ctx); err != nil {
		slog.Error("shutting down the upload server gracefully failed", "error", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
}
