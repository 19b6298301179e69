package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gkmit/notify-console/internal/gwerrors"
)

// Request sends a request to the backend. The path is relative to the base URL unless it
// is an absolute URL. A 2xx response is returned as is, any other status becomes an *APIError.
// An expired access token is refreshed once and the request is replayed transparently.
func (c *Client) Request(
	ctx context.Context,
	method string,
	path string,
	body any,
	opts ...RequestOption,
) (*Response, error) {
	rc, err := newCall(method, path, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, rc)
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, body, opts...)
}

// Do sends the request and decodes the JSON response body into target
func (c *Client) Do(
	ctx context.Context,
	method string,
	path string,
	body any,
	target any,
	opts ...RequestOption,
) error {
	res, err := c.Request(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	return res.Decode(target)
}

func (c *Client) do(ctx context.Context, rc *call) (*Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.send(ctx, rc, token)
	if err != nil {
		return nil, err
	}
	if res.ok() {
		return res, nil
	}
	if res.StatusCode != http.StatusUnauthorized {
		return nil, res.apiError()
	}

	switch {
	case rc.exempt == ExemptLogin:
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrInvalidCredentials, res.apiError())
	case rc.exempt == ExemptRefresh:
		c.expireSession(ctx)
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrSessionExpired, res.apiError())
	case rc.retried:
		return nil, res.apiError()
	case res.external:
		// the bearer is never sent to external hosts, so their 401 is not about the session
		return nil, res.apiError()
	}

	rc.retried = true
	newToken, err := c.freshToken(ctx, res.bearer)
	if err != nil {
		return nil, err
	}
	res, err = c.send(ctx, rc, newToken)
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, res.apiError()
	}
	return res, nil
}
