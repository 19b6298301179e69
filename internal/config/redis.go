package config

import "fmt"

type RedisConfig struct {
	Addresses  []string
	IsSentinel bool
	Password   RedactedString
	MasterName string
	DBIndex    int
}

func (c RedisConfig) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("at least one redis address is required")
	}
	if c.IsSentinel && c.MasterName == "" {
		return fmt.Errorf("the redis master name is required when using sentinel")
	}
	return nil
}
