// Package client provides the session-refresh transport used by Go
// consumers of the authentication API.
//
// The Coordinator wraps an http.RoundTripper and intercepts 401
// responses: it refreshes the session once, via a single flight shared
// by every concurrent request, then replays the original request. Tokens
// travel in cookies, so the enclosing http.Client must carry a cookie
// jar shared with the refresh call.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

type ctxKey int

const replayedKey ctxKey = iota

// ErrSessionExpired is returned when the refresh endpoint itself rejects
// the session. The caller must re-authenticate.
var ErrSessionExpired = errors.New("session expired")

const defaultRefreshWait = 10 * time.Second

// Coordinator is an http.RoundTripper that transparently refreshes an
// expired session. Safe for concurrent use.
type Coordinator struct {
	// Base is the wrapped transport. nil means http.DefaultTransport.
	Base http.RoundTripper
	// RefreshURL is the absolute URL of the refresh endpoint.
	RefreshURL string
	// RefreshClient performs the refresh call. It must share its cookie
	// jar with the client this Coordinator is installed on, and must NOT
	// use this Coordinator as its transport.
	RefreshClient *http.Client
	// Jar is the same cookie jar the enclosing client uses. The jar is
	// applied above the transport, so the replay has to re-stamp its
	// cookies here or it would resend the stale ones.
	Jar http.CookieJar
	// OnSessionExpired, if set, runs once per failed refresh. Consumers
	// hook their logout handling here.
	OnSessionExpired func()
	// RefreshWait bounds how long a request waits on an in-flight
	// refresh. Zero means a 10s default.
	RefreshWait time.Duration

	group singleflight.Group
}

// RoundTrip implements http.RoundTripper.
func (c *Coordinator) RoundTrip(req *http.Request) (*http.Response, error) {
	base := c.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	// Never intercept the refresh endpoint itself, and never replay a
	// request twice; a second 401 after a successful refresh is real.
	if req.URL.String() == c.RefreshURL || req.Context().Value(replayedKey) != nil {
		return resp, nil
	}

	replay, ok := replayableRequest(req)
	if !ok {
		return resp, nil
	}

	drain(resp)

	if err := c.awaitRefresh(req.Context()); err != nil {
		return nil, err
	}

	if c.Jar != nil {
		replay.Header.Del("Cookie")
		for _, cookie := range c.Jar.Cookies(replay.URL) {
			replay.AddCookie(cookie)
		}
	}
	return base.RoundTrip(replay)
}

// awaitRefresh joins the in-flight refresh or starts one. Exactly one
// refresh call reaches the server no matter how many requests hit 401
// at the same time.
func (c *Coordinator) awaitRefresh(ctx context.Context) error {
	wait := c.RefreshWait
	if wait <= 0 {
		wait = defaultRefreshWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ch := c.group.DoChan("refresh", func() (interface{}, error) {
		return nil, c.refresh()
	})

	select {
	case result := <-ch:
		return result.Err
	case <-ctx.Done():
		return fmt.Errorf("waiting for session refresh: %w", ctx.Err())
	}
}

func (c *Coordinator) refresh() error {
	client := c.RefreshClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequest(http.MethodPost, c.RefreshURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	drain(resp)

	if resp.StatusCode != http.StatusOK {
		if c.OnSessionExpired != nil {
			c.OnSessionExpired()
		}
		return ErrSessionExpired
	}
	return nil
}

// replayableRequest clones req for the post-refresh retry. Requests with
// a consumed one-shot body cannot be replayed.
func replayableRequest(req *http.Request) (*http.Request, bool) {
	out := req.Clone(context.WithValue(req.Context(), replayedKey, struct{}{}))
	if req.Body == nil || req.Body == http.NoBody {
		return out, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	out.Body = body
	return out, true
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
