package config

import "fmt"

// ServerConfig is the listening side of the mock backend
type ServerConfig struct {
	Host        string
	Port        int
	RateLimits  RateLimits
	AllowOrigin []string
}

type RateLimits struct {
	Enabled bool
	Rate    float64
	Burst   int
}

func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Port)
	}
	if c.RateLimits.Enabled && (c.RateLimits.Rate <= 0 || c.RateLimits.Burst <= 0) {
		return fmt.Errorf(
			"the rate limit (%v) and burst (%d) must be positive when rate limiting is enabled",
			c.RateLimits.Rate,
			c.RateLimits.Burst,
		)
	}
	return nil
}
