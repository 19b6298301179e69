package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/mockbackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is written by the status watcher goroutine while the test reads it
type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

type testEnv struct {
	backend  *mockbackend.Server
	objects  *mockbackend.ObjectStore
	console  *console
	out      *syncBuffer
	errOut   *syncBuffer
	exitCode int
}

func newTestEnv(t *testing.T, input string) *testEnv {
	env := &testEnv{out: &syncBuffer{}, errOut: &syncBuffer{}, exitCode: -1}
	env.objects = mockbackend.NewObjectStore("upload-secret")
	uploads := httptest.NewServer(env.objects.Handler())
	t.Cleanup(uploads.Close)
	backend, err := mockbackend.NewServer(
		mockbackend.WithConfig(config.MockBackendConfig{
			JWTSecret:       "a-very-secret-test-key",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
			Users:           []config.MockBackendUser{{Username: "admin@gkmit", Password: "secret123"}},
		}),
		mockbackend.WithObjectStore(env.objects, uploads.URL),
	)
	require.NoError(t, err)
	env.backend = backend
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	t.Setenv("CONFIG_LOCATION", t.TempDir())
	t.Setenv("CONSOLE_API_BASEURL", server.URL)
	t.Setenv("CONSOLE_STATUSWATCHER_INTERVALSECONDS", "1")
	t.Setenv("CONSOLE_PASSWORD", "")
	env.console = newConsole(strings.NewReader(input), env.out, env.errOut)
	env.console.exit = func(code int) { env.exitCode = code }
	return env
}

func (e *testEnv) run(args ...string) error {
	root := newRootCmd(e.console)
	root.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return root.ExecuteContext(ctx)
}

func (e *testEnv) login(t *testing.T) {
	require.NoError(t, e.run("login", "--username", "admin@gkmit", "--password", "secret123"))
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	assert.Contains(t, env.out.String(), "Login successful")

	require.NoError(t, env.run("whoami"))
	assert.Contains(t, env.out.String(), "admin@gkmit (access token expires at")

	require.NoError(t, env.run("logout"))
	err := env.run("whoami")
	assert.ErrorIs(t, err, gwerrors.ErrMissingCredentials)
}

func TestLoginPasswordFromEnvironment(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("CONSOLE_PASSWORD", "secret123")
	require.NoError(t, env.run("login", "-u", "admin@gkmit"))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, "")
	err := env.run("login", "--username", "admin@gkmit", "--password", "wrongpass1")
	assert.ErrorIs(t, err, gwerrors.ErrInvalidCredentials)
	assert.Equal(t, -1, env.exitCode)
}

func TestSendAndList(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	require.NoError(t, env.run("send", "sms", "--to", "+919876543210", "--message", "hello"))
	require.NoError(t, env.run("send", "slack", "--channel", "C12345678", "--message", "deployed"))
	assert.Contains(t, env.out.String(), "Notification queued with id 2")

	err := env.run("send", "slack", "--channel", "general", "--message", "deployed")
	assert.ErrorIs(t, err, gwerrors.ErrValidation)

	require.NoError(t, env.run("logs", "--filter", "service=sms", "--page-size", "5"))
	out := env.out.String()
	assert.Contains(t, out, "+919876543210")
	assert.Contains(t, out, "Page 1 of 1 (1 rows)")

	assert.Error(t, env.run("logs", "--page-size", "7"))
	assert.Error(t, env.run("logs", "--filter", "service"))

	require.NoError(t, env.run("status", "1"))
	assert.Contains(t, env.out.String(), "processing")
	assert.ErrorIs(t, env.run("status", "42"), gwerrors.ErrNotFound)
}

func TestSendEmailWithAttachment(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some notes"), 0o600))
	require.NoError(t, env.run(
		"send", "email",
		"--to", "someone@example.com",
		"--subject", "Notes",
		"--body", "See attached",
		"--attach", path,
	))
	assert.Contains(t, env.out.String(), "Uploaded notes.txt")
	logs := env.backend.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Notes", logs[0].Message)
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	env.backend.ExpireAccessTokens()
	require.NoError(t, env.run("logs"))
	assert.Equal(t, 1, env.backend.RefreshCount())
	assert.Equal(t, -1, env.exitCode)
}

func TestSessionExpired(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	env.backend.ExpireAccessTokens()
	env.backend.RevokeRefreshTokens()
	err := env.run("logs")
	assert.ErrorIs(t, err, gwerrors.ErrSessionExpired)
	assert.Equal(t, 2, env.exitCode)
	assert.Contains(t, env.errOut.String(), sessionExpiredMessage)
}

func TestWatch(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	require.NoError(t, env.run("send", "slack", "--channel", "C12345678", "--message", "deployed"))
	require.NoError(t, env.run("watch"))
	out := env.out.String()
	assert.Contains(t, out, "Watching 1 notifications")
	assert.Contains(t, out, "1: pending -> processing")
	assert.Contains(t, out, "1: processing -> sent")

	require.NoError(t, env.run("watch"))
	assert.Contains(t, env.out.String(), "Nothing to watch")
}

func TestShell(t *testing.T) {
	env := newTestEnv(t, strings.Join([]string{
		"login --username admin@gkmit --password secret123",
		"",
		"whoami",
		"status abc",
		"shell",
		"exit",
		"logout",
	}, "\n"))
	require.NoError(t, env.run("shell"))
	assert.Contains(t, env.out.String(), "admin@gkmit (access token expires at")
	assert.Contains(t, env.errOut.String(), "the id has to be a number")
	assert.Contains(t, env.errOut.String(), "already in a shell")
	assert.NotContains(t, env.out.String(), "Logged out")
}

func TestBuildQuery(t *testing.T) {
	query, err := buildQuery(2, 75, []string{"service=email", "status=sent"}, "-id")
	require.NoError(t, err)
	assert.Equal(t, "/logs?page=2&limit=75&service=email&status=sent&sort=-id", query.Path())

	_, err = buildQuery(0, 0, []string{"unknown=1"}, "")
	assert.Error(t, err)
	_, err = buildQuery(0, 0, nil, "nope")
	assert.Error(t, err)
}
