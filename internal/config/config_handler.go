package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix string = "CONSOLE"

type ConfigHandler struct {
	mainViper   *viper.Viper
	secretViper *viper.Viper
	lock        *sync.Mutex
}

func (c *ConfigHandler) HandleChanges(callback func(Config, error)) {
	c.mainViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("CONFIG", "message", "main config file changed", "path", e.Name)
		callback(c.Config())
	})
	c.secretViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("CONFIG", "message", "secret config file changed", "path", e.Name)
		callback(c.Config())
	})
}

// Creates a configuration handler that reads the configuration files, merges them and can watch
// them for changes. Please note that the merges replace whole arrays - they do not merge arrays.
// The secret file will always overwrite anything in the non-secret / regular file. And any environment
// variables (prefixed with CONSOLE_) will always rewrite stuff in the secret config, so the order of
// preference from most preferred to least is environment variables, secret config, non-secret config,
// built-in defaults.
func NewConfigHandler() *ConfigHandler {
	main := viper.New()
	main.SetConfigType("yaml")
	main.SetConfigName("config")
	setDefaults(main)
	secret := viper.New()
	secret.SetConfigType("yaml")
	secret.SetConfigName("secret_config")
	// Viper will look through the list of paths and use the first one where there is a file
	// so the path specified in the env variable will always take precedence over the rest
	configPaths := []string{}
	configPathEnv := os.Getenv("CONFIG_LOCATION")
	if configPathEnv != "" {
		configPaths = append(configPaths, configPathEnv)
	}
	configPaths = append(configPaths, "/etc/notify-console", ".")
	for _, path := range configPaths {
		main.AddConfigPath(path)
		secret.AddConfigPath(path)
	}
	return &ConfigHandler{secretViper: secret, mainViper: main, lock: &sync.Mutex{}}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runningEnvironment", string(Production))
	v.SetDefault("debugMode", false)
	v.SetDefault("api.baseURL", "http://localhost:8080")
	v.SetDefault("api.clientID", DefaultClientID)
	v.SetDefault("api.timeout", DefaultRequestTimeout.String())
	v.SetDefault("api.externalHosts", []string{"amazonaws.com"})
	v.SetDefault("api.refreshPath", "/refresh")
	v.SetDefault("credentials.type", CredentialsTypeMemory)
	v.SetDefault("credentials.namespace", "")
	v.SetDefault("credentials.tokenEncryption.enabled", false)
	v.SetDefault("credentials.tokenEncryption.secretKey", "")
	v.SetDefault("credentials.redis.addresses", []string{"localhost:6379"})
	v.SetDefault("credentials.redis.isSentinel", false)
	v.SetDefault("credentials.redis.password", "")
	v.SetDefault("credentials.redis.masterName", "")
	v.SetDefault("credentials.redis.dbIndex", 0)
	v.SetDefault("statusWatcher.intervalSeconds", 5)
	v.SetDefault("statusWatcher.ratePerSecond", 5)
	v.SetDefault("statusWatcher.burst", 5)
	v.SetDefault("mockBackend.server.host", "localhost")
	v.SetDefault("mockBackend.server.port", 8080)
	v.SetDefault("mockBackend.server.rateLimits.enabled", false)
	v.SetDefault("mockBackend.server.rateLimits.rate", 20)
	v.SetDefault("mockBackend.server.rateLimits.burst", 40)
	v.SetDefault("mockBackend.uploadPort", 8081)
	v.SetDefault("mockBackend.jwtSecret", "")
	v.SetDefault("mockBackend.accessTokenTTL", "5m")
	v.SetDefault("mockBackend.refreshTokenTTL", "24h")
	v.SetDefault("monitoring.sentry.enabled", false)
	v.SetDefault("monitoring.sentry.dsn", "")
	v.SetDefault("monitoring.sentry.environment", "")
	v.SetDefault("monitoring.sentry.sampleRate", 0.0)
	v.SetDefault("monitoring.prometheus.enabled", false)
	v.SetDefault("monitoring.prometheus.port", 8765)
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			parseStringAsURL(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

func (c *ConfigHandler) merge() error {
	err := c.secretViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	var cm map[string]any
	err = c.secretViper.Unmarshal(&cm, decodeHook())
	if err != nil {
		return err
	}
	return c.mainViper.MergeConfigMap(cm)
}

func (c *ConfigHandler) getConfig() (Config, error) {
	var output Config
	err := c.mainViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		slog.Info("CONFIG", "message", "could not find a config file - only the defaults and environment variables will be used")
	}
	err = c.secretViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		slog.Info("CONFIG", "message", "could not find any secret config files - only the public file and environment variables will be used")
	}
	// the env variables will overwrite stuff in the secret config if set
	for _, key := range c.mainViper.AllKeys() {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		err := c.secretViper.BindEnv(key, envKey)
		if err != nil {
			return Config{}, fmt.Errorf("unable to bind env variable %s: %w", envKey, err)
		}
	}
	// here the secret config (with any env variables merged) will overwrite anything from the non-secret configuration
	err = c.merge()
	if err != nil {
		return Config{}, err
	}
	err = c.mainViper.Unmarshal(&output, decodeHook())
	if err != nil {
		return Config{}, err
	}
	err = output.Validate()
	if err != nil {
		return Config{}, err
	}
	return output, nil
}

func (c *ConfigHandler) Config() (Config, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.getConfig()
}

func (c *ConfigHandler) Watch() {
	c.mainViper.WatchConfig()
	c.secretViper.WatchConfig()
}

func parseStringAsURL() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (interface{}, error) {
		// Check that the data is string
		if f.Kind() != reflect.String {
			return data, nil
		}

		// Check that the target type is our custom type
		if t != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		// Return the parsed value
		dataStr, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("cannot cast URL value to string")
		}
		if dataStr == "" {
			return nil, fmt.Errorf("empty values are not allowed for URLs")
		}
		parsed, err := url.Parse(dataStr)
		if err != nil {
			return nil, err
		}
		return parsed, nil
	}
}
