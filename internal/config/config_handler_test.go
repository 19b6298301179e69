package config

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMainFile(fpath string) error {
	contents := `---
runningEnvironment: development
api:
  baseURL: https://notify.example.org/api
  timeout: 3s
  externalHosts:
    - amazonaws.com
    - storage.example.net
credentials:
  type: redis-mock
  namespace: console-a
  tokenEncryption:
    enabled: true
mockBackend:
  accessTokenTTL: 30s
  users:
    - username: admin@gkmit
      password: from-main-file
`
	return os.WriteFile(fpath, []byte(contents), 0666)
}

func createSecretFile(fpath string) error {
	contents := `---
credentials:
  tokenEncryption:
    secretKey: secret-key-from-secret-file-1234
mockBackend:
  jwtSecret: jwt-secret-from-secret-file
`
	return os.WriteFile(fpath, []byte(contents), 0666)
}

func TestReadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CONFIG_LOCATION", tmpDir)
	require.NoError(t, createMainFile(path.Join(tmpDir, "config.yaml")))
	require.NoError(t, createSecretFile(path.Join(tmpDir, "secret_config.yaml")))
	ch := NewConfigHandler()
	config, err := ch.Config()
	require.NoError(t, err)
	assert.Equal(t, Development, config.RunningEnvironment)
	assert.Equal(t, "https://notify.example.org/api", config.API.BaseURL.String())
	assert.Equal(t, 3*time.Second, config.API.Timeout)
	assert.Equal(t, DefaultClientID, config.API.ClientID)
	assert.Equal(t, []string{"amazonaws.com", "storage.example.net"}, config.API.ExternalHosts)
	assert.Equal(t, CredentialsTypeRedisMock, config.Credentials.Type)
	assert.Equal(t, "console-a", config.Credentials.Namespace)
	assert.Equal(t, RedactedString("secret-key-from-secret-file-1234"), config.Credentials.TokenEncryption.SecretKey)
	assert.Equal(t, RedactedString("jwt-secret-from-secret-file"), config.MockBackend.JWTSecret)
	assert.Equal(t, 30*time.Second, config.MockBackend.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, config.MockBackend.RefreshTokenTTL)
	require.Len(t, config.MockBackend.Users, 1)
	assert.Equal(t, "admin@gkmit", config.MockBackend.Users[0].Username)
	assert.NoError(t, config.MockBackend.Validate(config.RunningEnvironment))
}

func TestReadConfigWithEnvVars(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CONFIG_LOCATION", tmpDir)
	require.NoError(t, createMainFile(path.Join(tmpDir, "config.yaml")))
	require.NoError(t, createSecretFile(path.Join(tmpDir, "secret_config.yaml")))
	t.Setenv("CONSOLE_API_BASEURL", "http://localhost:9090")
	t.Setenv("CONSOLE_API_CLIENTID", "OTHER")
	t.Setenv("CONSOLE_CREDENTIALS_TOKENENCRYPTION_SECRETKEY", "token-encryption-key-12345678910")
	ch := NewConfigHandler()
	config, err := ch.Config()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", config.API.BaseURL.String())
	assert.Equal(t, "OTHER", config.API.ClientID)
	assert.Equal(t, RedactedString("token-encryption-key-12345678910"), config.Credentials.TokenEncryption.SecretKey)
	assert.Equal(t, RedactedString("jwt-secret-from-secret-file"), config.MockBackend.JWTSecret)
}

func TestReadConfigDefaultsOnly(t *testing.T) {
	t.Setenv("CONFIG_LOCATION", t.TempDir())
	ch := NewConfigHandler()
	config, err := ch.Config()
	require.NoError(t, err)
	assert.Equal(t, Production, config.RunningEnvironment)
	assert.Equal(t, "http://localhost:8080", config.API.BaseURL.String())
	assert.Equal(t, DefaultRequestTimeout, config.API.Timeout)
	assert.Equal(t, []string{"amazonaws.com"}, config.API.ExternalHosts)
	assert.Equal(t, "/refresh", config.API.RefreshPath)
	assert.Equal(t, CredentialsTypeMemory, config.Credentials.Type)
	assert.Equal(t, 5, config.StatusWatcher.IntervalSeconds)
}

func TestReadConfigInvalidEnvVar(t *testing.T) {
	t.Setenv("CONFIG_LOCATION", t.TempDir())
	t.Setenv("CONSOLE_CREDENTIALS_TYPE", "postgres")
	ch := NewConfigHandler()
	_, err := ch.Config()
	assert.ErrorContains(t, err, "unknown credentials type")
}

func TestWatchConfigChanges(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CONFIG_LOCATION", tmpDir)
	mainFile := path.Join(tmpDir, "config.yaml")
	require.NoError(t, createMainFile(mainFile))
	require.NoError(t, createSecretFile(path.Join(tmpDir, "secret_config.yaml")))
	ch := NewConfigHandler()
	config, err := ch.Config()
	require.NoError(t, err)
	require.False(t, config.DebugMode)
	changes := make(chan Config, 10)
	ch.HandleChanges(func(c Config, err error) {
		if err != nil {
			return
		}
		select {
		case changes <- c:
		default:
		}
	})
	ch.Watch()

	contents, err := os.ReadFile(mainFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mainFile, append(contents, []byte("debugMode: true\n")...), 0666))

	// a truncating write can be reported before the new contents are in place
	timeout := time.After(5 * time.Second)
	for {
		select {
		case changed := <-changes:
			if !changed.DebugMode {
				continue
			}
			assert.Equal(t, RedactedString("jwt-secret-from-secret-file"), changed.MockBackend.JWTSecret)
			return
		case <-timeout:
			t.Fatal("the debug mode change was not reported")
		}
	}
}
