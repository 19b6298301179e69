package config

import "fmt"

type SentryConfig struct {
	Enabled     bool
	Dsn         RedactedString
	Environment string
	SampleRate  float64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type MonitoringConfig struct {
	Sentry     SentryConfig
	Prometheus PrometheusConfig
}

func (c MonitoringConfig) Validate() error {
	if c.Sentry.Enabled && c.Sentry.Dsn == "" {
		return fmt.Errorf("sentry is enabled but no DSN is configured")
	}
	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		return fmt.Errorf("the sentry sample rate must be between 0 and 1, got %v", c.Sentry.SampleRate)
	}
	if c.Prometheus.Enabled && c.Prometheus.Port <= 0 {
		return fmt.Errorf("prometheus is enabled but the metrics port %d is invalid", c.Prometheus.Port)
	}
	return nil
}
