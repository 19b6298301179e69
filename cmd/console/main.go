package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gkmit/notify-console/internal/gwerrors"
)

var logLevel *slog.LevelVar = new(slog.LevelVar)
var jsonLogger *slog.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

func main() {
	slog.SetDefault(jsonLogger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	c := newConsole(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(c).ExecuteContext(ctx)
	if c.sentryEnabled {
		if err != nil {
			sentry.CaptureException(err)
		}
		sentry.Flush(2 * time.Second)
	}
	switch {
	case err == nil:
	case errors.Is(err, gwerrors.ErrSessionExpired):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
