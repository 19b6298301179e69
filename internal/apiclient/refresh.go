package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
)

type refreshResult struct {
	token string
	err   error
}

// pendingRequest is a request waiting for the refresh cycle to settle.
// The result channel is buffered so settling never blocks.
type pendingRequest struct {
	result chan refreshResult
}

func (p *pendingRequest) resume(token string) {
	p.result <- refreshResult{token: token}
}

func (p *pendingRequest) reject(err error) {
	p.result <- refreshResult{err: err}
}

// refreshCycle lives from the first 401 until the refresh call settles.
// Exactly one refresh call is made per cycle.
type refreshCycle struct {
	pending []*pendingRequest
}

func (rc *refreshCycle) enqueue() *pendingRequest {
	p := &pendingRequest{result: make(chan refreshResult, 1)}
	rc.pending = append(rc.pending, p)
	return p
}

func (rc *refreshCycle) remove(p *pendingRequest) bool {
	for i, other := range rc.pending {
		if other == p {
			rc.pending = append(rc.pending[:i], rc.pending[i+1:]...)
			return true
		}
	}
	return false
}

// freshToken returns the access token to replay a request that failed with the stale token.
// It joins the running refresh cycle or starts a new one.
func (c *Client) freshToken(ctx context.Context, staleToken string) (string, error) {
	c.mu.Lock()
	cycle := c.cycle
	if cycle == nil {
		// another cycle may have already replaced the token this request was sent with
		current, err := c.storedTokenLocked(ctx)
		if err != nil {
			c.mu.Unlock()
			return "", err
		}
		if current != "" && current != staleToken {
			c.mu.Unlock()
			slog.Debug("API CLIENT", "message", "token already refreshed, replaying request")
			return current, nil
		}
		cycle = &refreshCycle{}
		c.cycle = cycle
		p := cycle.enqueue()
		c.mu.Unlock()
		go c.runRefresh(context.WithoutCancel(ctx), cycle)
		return c.wait(ctx, cycle, p)
	}
	p := cycle.enqueue()
	c.mu.Unlock()
	slog.Debug("API CLIENT", "message", "refresh in flight, request queued")
	return c.wait(ctx, cycle, p)
}

// storedTokenLocked reads the access token while c.mu is held
func (c *Client) storedTokenLocked(ctx context.Context) (string, error) {
	session, err := c.tokenStore.Session(ctx)
	if err != nil {
		if errors.Is(err, gwerrors.ErrTokenNotFound) {
			return c.defaultToken, nil
		}
		return "", err
	}
	return session.AccessToken, nil
}

func (c *Client) wait(ctx context.Context, cycle *refreshCycle, p *pendingRequest) (string, error) {
	select {
	case res := <-p.result:
		return res.token, res.err
	case <-ctx.Done():
		c.mu.Lock()
		removed := cycle.remove(p)
		c.mu.Unlock()
		if removed {
			slog.Debug("API CLIENT", "message", "queued request cancelled")
		}
		return "", ctx.Err()
	}
}

// runRefresh performs the refresh call of a cycle and settles every pending request
func (c *Client) runRefresh(ctx context.Context, cycle *refreshCycle) {
	token, err := c.refresh(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.defaultToken = token
	}
	pending := cycle.pending
	cycle.pending = nil
	c.cycle = nil
	slog.Debug("API CLIENT", "message", "refresh cycle settled", "pending", len(pending), "success", err == nil)
	for _, p := range pending {
		if err != nil {
			p.reject(err)
		} else {
			p.resume(token)
		}
	}
}

// refresh exchanges the refresh token for a new access token. Every failure is
// unrecoverable: the credentials are cleared and the session expired hook fires.
func (c *Client) refresh(ctx context.Context) (string, error) {
	refreshToken, err := c.tokenStore.RefreshToken(ctx)
	switch {
	case err == nil:
	case errors.Is(err, gwerrors.ErrTokenNotFound):
		refreshToken = ""
	default:
		c.expireSession(ctx)
		return "", fmt.Errorf("%w: %w: %w", gwerrors.ErrSessionExpired, gwerrors.ErrRefreshFailed, err)
	}
	if refreshToken == "" {
		slog.Info("API CLIENT", "message", "no refresh token stored")
		c.expireSession(ctx)
		return "", gwerrors.ErrSessionExpired
	}

	rc, err := newCall(
		http.MethodPost,
		c.refreshPath,
		models.RefreshPayload{RefreshToken: refreshToken},
		AuthExempt(ExemptRefresh),
	)
	if err != nil {
		c.expireSession(ctx)
		return "", fmt.Errorf("%w: %w: %w", gwerrors.ErrSessionExpired, gwerrors.ErrRefreshFailed, err)
	}
	res, err := c.do(ctx, rc)
	if err != nil {
		if errors.Is(err, gwerrors.ErrSessionExpired) {
			// a 401 on the refresh call already cleared the session
			return "", err
		}
		c.expireSession(ctx)
		return "", fmt.Errorf("%w: %w: %w", gwerrors.ErrSessionExpired, gwerrors.ErrRefreshFailed, err)
	}
	var envelope models.Envelope[models.RefreshResponse]
	err = res.Decode(&envelope)
	if err == nil && envelope.Data.AccessToken == "" {
		err = fmt.Errorf("the refresh response has no access token")
	}
	if err == nil {
		err = c.tokenStore.SetAccessToken(ctx, envelope.Data.AccessToken)
	}
	if err != nil {
		c.expireSession(ctx)
		return "", fmt.Errorf("%w: %w: %w", gwerrors.ErrSessionExpired, gwerrors.ErrRefreshFailed, err)
	}
	slog.Info("API CLIENT", "message", "access token refreshed")
	return envelope.Data.AccessToken, nil
}
