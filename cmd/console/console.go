package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/gkmit/notify-console/internal/apiclient"
	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/notify"
	"github.com/gkmit/notify-console/internal/tokenstore"
	"github.com/spf13/cobra"
)

const sessionExpiredMessage string = "session expired, please log in again"

// console holds the services shared by the commands. They are built once so that
// the in-memory credentials survive between the commands of a shell session.
type console struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	// exit is called by the session expired hook
	exit func(code int)

	configDir     string
	debug         bool
	sentryEnabled bool

	once       sync.Once
	setupErr   error
	config     config.Config
	tokenStore *tokenstore.TokenStore
	client     *apiclient.Client
	service    *notify.Service
}

func newConsole(in io.Reader, out, errOut io.Writer) *console {
	return &console{in: in, out: out, errOut: errOut, exit: os.Exit}
}

func (c *console) sessionExpired(ctx context.Context) {
	fmt.Fprintln(c.errOut, sessionExpiredMessage)
	c.exit(2)
}

func (c *console) setup(cmd *cobra.Command, args []string) error {
	c.once.Do(func() {
		c.setupErr = c.initialize()
	})
	return c.setupErr
}

func (c *console) initialize() error {
	if c.configDir != "" {
		if err := os.Setenv("CONFIG_LOCATION", c.configDir); err != nil {
			return err
		}
	}
	ch := config.NewConfigHandler()
	cfg, err := ch.Config()
	if err != nil {
		return fmt.Errorf("loading the configuration failed: %w", err)
	}
	if cfg.DebugMode || c.debug {
		logLevel.Set(slog.LevelDebug)
	}
	slog.Debug("CONSOLE", "message", "loaded config", "config", cfg)
	c.config = cfg
	if cfg.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(cfg.Monitoring.Sentry.Dsn),
			TracesSampleRate: cfg.Monitoring.Sentry.SampleRate,
			Environment:      cfg.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("CONSOLE", "message", "sentry initialization failed", "error", err)
		} else {
			c.sentryEnabled = true
		}
	}
	c.tokenStore, err = tokenstore.NewTokenStore(tokenstore.WithConfig(cfg.Credentials))
	if err != nil {
		return fmt.Errorf("token store initialization failed: %w", err)
	}
	c.client, err = apiclient.NewClient(
		apiclient.WithConfig(cfg.API),
		apiclient.WithTokenStore(c.tokenStore),
		apiclient.WithSessionExpiredHandler(c.sessionExpired),
	)
	if err != nil {
		return fmt.Errorf("api client initialization failed: %w", err)
	}
	c.service, err = notify.NewService(c.client, c.tokenStore)
	if err != nil {
		return err
	}
	if cfg.Credentials.Type == config.CredentialsTypeMemory {
		slog.Debug("CONSOLE", "message", "the credentials are kept in memory, they are lost when the process exits")
	}
	return nil
}
