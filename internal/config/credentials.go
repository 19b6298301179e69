package config

import "fmt"

const CredentialsTypeMemory string = "memory"
const CredentialsTypeRedis string = "redis"
const CredentialsTypeRedisMock string = "redis-mock"

type TokenEncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

// CredentialsConfig selects where the session credentials are persisted
type CredentialsConfig struct {
	Type string
	// Namespace prefixes the persisted keys so that several consoles can share one redis
	Namespace       string
	TokenEncryption TokenEncryptionConfig
	Redis           RedisConfig
}

func (c CredentialsConfig) Validate(e RunningEnvironment) error {
	switch c.Type {
	case CredentialsTypeMemory:
	case CredentialsTypeRedis:
		err := c.Redis.Validate()
		if err != nil {
			return err
		}
	case CredentialsTypeRedisMock:
		if e != Development {
			return fmt.Errorf("credentials type cannot be \"redis-mock\" in production")
		}
	default:
		return fmt.Errorf("unknown credentials type %q (must be one of memory, redis, redis-mock)", c.Type)
	}
	if c.TokenEncryption.Enabled && len(c.TokenEncryption.SecretKey) != 32 {
		return fmt.Errorf(
			"token encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.TokenEncryption.SecretKey),
		)
	}
	return nil
}
