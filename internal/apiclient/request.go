package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gkmit/notify-console/internal/utils"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
)

// Exemption tags the calls that are part of the authentication flow itself
type Exemption int

const (
	ExemptNone Exemption = iota
	// ExemptLogin marks the login call: a 401 means wrong credentials
	ExemptLogin
	// ExemptRefresh marks the refresh call: a 401 means the session cannot be recovered
	ExemptRefresh
)

func (e Exemption) String() string {
	switch e {
	case ExemptLogin:
		return "login"
	case ExemptRefresh:
		return "refresh"
	default:
		return "none"
	}
}

// call holds everything needed to send (and replay) a request
type call struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	headers     map[string]string
	exempt      Exemption
	retried     bool
}

type RequestOption func(*call)

func AuthExempt(exemption Exemption) RequestOption {
	return func(rc *call) {
		rc.exempt = exemption
	}
}

// WithHeaders sets additional headers, they take precedence over the default ones
func WithHeaders(headers map[string]string) RequestOption {
	return func(rc *call) {
		for k, v := range headers {
			rc.headers[k] = v
		}
	}
}

func WithQuery(query url.Values) RequestOption {
	return func(rc *call) {
		for k, values := range query {
			for _, v := range values {
				rc.query.Add(k, v)
			}
		}
	}
}

// encodeBody serializes the body once so that the request can be replayed.
// Raw bytes and readers are sent as is, anything else is encoded as JSON.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return b, echo.MIMEApplicationJSON, nil
	case []byte:
		return b, echo.MIMEOctetStream, nil
	case io.Reader:
		raw, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("cannot read the request body: %w", err)
		}
		return raw, echo.MIMEOctetStream, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("cannot encode the request body: %w", err)
		}
		return raw, echo.MIMEApplicationJSON, nil
	}
}

func newCall(method, path string, body any, opts ...RequestOption) (*call, error) {
	raw, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	rc := &call{
		method:      method,
		path:        path,
		query:       url.Values{},
		body:        raw,
		contentType: contentType,
		headers:     map[string]string{},
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc, nil
}

// send performs a single round trip with the given bearer token (empty for none)
func (c *Client) send(ctx context.Context, rc *call, token string) (*Response, error) {
	target, err := c.resolve(rc.path, rc.query)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var body io.Reader
	if rc.body != nil {
		body = bytes.NewReader(rc.body)
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, target.String(), body)
	if err != nil {
		return nil, err
	}
	requestID := utils.NewRequestID()
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if rc.contentType != "" {
		req.Header.Set(echo.HeaderContentType, rc.contentType)
	}
	req.Header.Set(HeaderClientID, c.clientID)
	req.Header.Set(echo.HeaderXRequestID, requestID)
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range rc.headers {
		req.Header.Set(k, v)
	}
	bearer := ""
	external := !c.attachesBearer(target)
	if token != "" && !external {
		bearer = token
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug(
			"API CLIENT",
			"message",
			"request failed",
			"method",
			rc.method,
			"host",
			target.Host,
			"path",
			target.Path,
			"requestID",
			requestID,
			"error",
			err,
		)
		return nil, fmt.Errorf("%s %s failed: %w", rc.method, target.Path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read the response of %s %s: %w", rc.method, target.Path, err)
	}
	slog.Debug(
		"API CLIENT",
		"message",
		"request completed",
		"method",
		rc.method,
		"host",
		target.Host,
		"path",
		target.Path,
		"status",
		res.StatusCode,
		"requestID",
		requestID,
		"retried",
		rc.retried,
		"exempt",
		rc.exempt,
	)
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: raw, bearer: bearer, external: external}, nil
}
