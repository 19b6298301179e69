// Package apiclient implements the authenticated client of the notification backend.
// It attaches the bearer and client headers to outgoing requests and recovers from an
// expired access token with a single refresh call shared by all failing requests.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/gwerrors"
	"golang.org/x/oauth2"
)

const DefaultRefreshPath string = "/refresh"
const HeaderClientID string = "X-Client-Id"

// TokenStore is the part of the session credentials store used by the client
type TokenStore interface {
	Session(ctx context.Context) (*oauth2.Token, error)
	RefreshToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, value string) error
	Clear(ctx context.Context) error
}

// SessionExpiredHandler is called once per unrecoverable authentication failure,
// after the credentials have been cleared.
type SessionExpiredHandler func(ctx context.Context)

type Client struct {
	baseURL          *url.URL
	httpClient       *http.Client
	tokenStore       TokenStore
	onSessionExpired SessionExpiredHandler
	clientID         string
	timeout          time.Duration
	externalHosts    []string
	extraHeaders     map[string]string
	refreshPath      string

	// mu guards the refresh cycle and the default token
	mu           sync.Mutex
	cycle        *refreshCycle
	defaultToken string
}

// accessToken reads the current access token. An empty value means there is no session.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	session, err := c.tokenStore.Session(ctx)
	if err != nil {
		if errors.Is(err, gwerrors.ErrTokenNotFound) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.defaultToken, nil
		}
		return "", err
	}
	return session.AccessToken, nil
}

// attachesBearer reports whether the bearer token may be sent to the given URL.
// Only the backend host gets it, never the external (pre-signed upload) hosts.
func (c *Client) attachesBearer(u *url.URL) bool {
	if hostPort(u) != hostPort(c.baseURL) {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, external := range c.externalHosts {
		external = strings.ToLower(strings.TrimPrefix(external, "."))
		if external == "" {
			continue
		}
		if host == external || strings.HasSuffix(host, "."+external) {
			return false
		}
	}
	return true
}

func hostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return strings.ToLower(u.Hostname()) + ":" + port
}

// resolve turns a path relative to the base URL (or an absolute URL) into the request URL
func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}
	var output *url.URL
	if ref.IsAbs() {
		output = ref
	} else {
		output = c.baseURL.JoinPath(ref.Path)
		output.RawQuery = ref.RawQuery
	}
	if len(query) > 0 {
		merged := output.Query()
		for k, values := range query {
			for _, v := range values {
				merged.Add(k, v)
			}
		}
		output.RawQuery = merged.Encode()
	}
	return output, nil
}

// expireSession clears the credentials and fires the session expired hook
func (c *Client) expireSession(ctx context.Context) {
	c.mu.Lock()
	c.defaultToken = ""
	c.mu.Unlock()
	slog.Warn("API CLIENT", "message", "the session cannot be recovered, clearing credentials")
	err := c.tokenStore.Clear(ctx)
	if err != nil {
		slog.Error("API CLIENT", "message", "clearing the credentials failed", "error", err)
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired(ctx)
	}
}

// ClearSession removes the credentials without firing the session expired hook, used on logout
func (c *Client) ClearSession(ctx context.Context) error {
	c.mu.Lock()
	c.defaultToken = ""
	c.mu.Unlock()
	return c.tokenStore.Clear(ctx)
}

// BaseURL returns a copy of the backend base URL
func (c *Client) BaseURL() *url.URL {
	output := *c.baseURL
	return &output
}

type ClientOption func(*Client) error

// WithConfig applies the api section of the configuration
func WithConfig(apiConfig config.APIConfig) ClientOption {
	return func(c *Client) error {
		err := apiConfig.Validate()
		if err != nil {
			return err
		}
		c.baseURL = apiConfig.BaseURL
		c.clientID = apiConfig.ClientID
		c.timeout = apiConfig.Timeout
		c.externalHosts = apiConfig.ExternalHosts
		c.extraHeaders = apiConfig.ExtraHeaders
		if apiConfig.RefreshPath == "" {
			return nil
		}
		return WithRefreshPath(apiConfig.RefreshPath)(c)
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) error {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return err
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("the base url must use http or https, got %q", baseURL)
		}
		c.baseURL = parsed
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

func WithTokenStore(store TokenStore) ClientOption {
	return func(c *Client) error {
		c.tokenStore = store
		return nil
	}
}

func WithSessionExpiredHandler(handler SessionExpiredHandler) ClientOption {
	return func(c *Client) error {
		c.onSessionExpired = handler
		return nil
	}
}

func WithClientID(clientID string) ClientOption {
	return func(c *Client) error {
		c.clientID = clientID
		return nil
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("the request timeout must be positive, got %s", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

func WithExternalHosts(hosts ...string) ClientOption {
	return func(c *Client) error {
		c.externalHosts = hosts
		return nil
	}
}

// WithRefreshPath sets the endpoint, relative to the base URL, that exchanges the refresh token
func WithRefreshPath(path string) ClientOption {
	return func(c *Client) error {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("the refresh path must start with a slash, got %q", path)
		}
		c.refreshPath = path
		return nil
	}
}

// NewClient creates the authenticated client. The base URL and the token store are required.
func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{
		clientID:      config.DefaultClientID,
		timeout:       config.DefaultRequestTimeout,
		externalHosts: []string{"amazonaws.com"},
		refreshPath:   DefaultRefreshPath,
	}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.baseURL == nil {
		return &Client{}, fmt.Errorf("the base url of the backend is not set")
	}
	if c.tokenStore == nil {
		return &Client{}, fmt.Errorf("token store not initialized")
	}
	if c.clientID == "" {
		return &Client{}, fmt.Errorf("the client ID cannot be empty")
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return &c, nil
}
