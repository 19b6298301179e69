package config

type Config struct {
	RunningEnvironment RunningEnvironment
	DebugMode          bool
	API                APIConfig
	Credentials        CredentialsConfig
	StatusWatcher      StatusWatcherConfig
	MockBackend        MockBackendConfig
	Monitoring         MonitoringConfig
}

// Validate checks the parts of the configuration used by the console. The mock backend
// section is validated separately since it only matters when running the mock backend.
func (c *Config) Validate() error {
	err := c.RunningEnvironment.Validate()
	if err != nil {
		return err
	}
	err = c.API.Validate()
	if err != nil {
		return err
	}
	err = c.Credentials.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.StatusWatcher.Validate()
	if err != nil {
		return err
	}
	return c.Monitoring.Validate()
}
