package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const DefaultClientID string = "GKMIT"
const DefaultRequestTimeout time.Duration = 10 * time.Second

// APIConfig describes how the console reaches the notification backend
type APIConfig struct {
	BaseURL *url.URL
	// ClientID is sent with every request in the X-Client-Id header
	ClientID string
	Timeout  time.Duration
	// ExternalHosts are host suffixes (e.g. pre-signed upload hosts) that never receive the bearer token
	ExternalHosts []string
	ExtraHeaders  map[string]string
	// RefreshPath is the endpoint exchanging the refresh token, /refresh when empty
	RefreshPath string
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == nil {
		return fmt.Errorf("the api config is missing the base url of the backend")
	}
	if c.BaseURL.Scheme != "http" && c.BaseURL.Scheme != "https" {
		return fmt.Errorf("the api base url must use http or https, got %q", c.BaseURL.Scheme)
	}
	if c.ClientID == "" {
		return fmt.Errorf("the api config is missing the client ID")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("the api request timeout must be positive, got %s", c.Timeout)
	}
	if c.RefreshPath != "" && !strings.HasPrefix(c.RefreshPath, "/") {
		return fmt.Errorf("the api refresh path must start with a slash, got %q", c.RefreshPath)
	}
	return nil
}
