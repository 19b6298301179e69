package config

import "fmt"

type StatusWatcherConfig struct {
	IntervalSeconds int
	// RatePerSecond limits the delivery status lookups sent to the backend
	RatePerSecond float64
	Burst         int
}

func (c StatusWatcherConfig) Validate() error {
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("invalid value for the status watcher interval (%d)", c.IntervalSeconds)
	}
	if c.RatePerSecond <= 0 || c.Burst <= 0 {
		return fmt.Errorf("the status watcher rate (%v) and burst (%d) must be positive", c.RatePerSecond, c.Burst)
	}
	return nil
}
