package config

import (
	"fmt"
	"time"
)

type MockBackendUser struct {
	Username string
	Password RedactedString
}

// MockBackendConfig configures the development double of the notification backend
type MockBackendConfig struct {
	Server ServerConfig
	// UploadPort serves the pre-signed uploads, a different port stands in for the storage host
	UploadPort      int
	JWTSecret       RedactedString
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Users           []MockBackendUser
}

func (c MockBackendConfig) Validate(e RunningEnvironment) error {
	if e != Development {
		return fmt.Errorf("the mock backend can only run in development")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("the mock backend jwt secret has to be at least 16 bytes long")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("the mock backend access token TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf(
			"the refresh token TTL (%s) cannot be shorter than the access token TTL (%s)",
			c.RefreshTokenTTL,
			c.AccessTokenTTL,
		)
	}
	if c.UploadPort == c.Server.Port && c.UploadPort != 0 {
		return fmt.Errorf("the upload port has to differ from the server port (%d)", c.Server.Port)
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("the mock backend needs at least one user")
	}
	return nil
}
