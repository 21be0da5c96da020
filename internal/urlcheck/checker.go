// Package urlcheck validates the website and signup URLs of a submission: format,
// listing policy, then reachability.
package urlcheck

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/metrics"
)

// FetchFunc fetches a URL and returns the final HTTP status
type FetchFunc func(ctx context.Context, rawURL string) (int, error)

// Checker runs the URL checks
type Checker struct {
	timeout        time.Duration
	checkReachable bool
	fetch          FetchFunc
	metrics        *metrics.Metrics
}

// NewChecker creates a checker that fetches with a copy of client. Redirect hops are
// held to the same host rules as the submitted URL. A nil client gets one on
// NewTransport; m may be nil.
func NewChecker(cfg config.URLCheckConfig, client *http.Client, m *metrics.Metrics) *Checker {
	client = guardClient(client)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		timeout:        timeout,
		checkReachable: cfg.CheckReachable,
		fetch:          httpFetch(client),
		metrics:        m,
	}
}

// WithFetcher swaps the reachability fetch
func (c *Checker) WithFetcher(fetch FetchFunc) *Checker {
	c.fetch = fetch
	return c
}

// Check validates raw and returns its normalized form. Format and policy checks run
// before any network access. A *Rejection error carries the user-facing reason.
func (c *Checker) Check(ctx context.Context, raw string) (string, error) {
	u, err := Parse(raw)
	if err != nil {
		c.metrics.RecordURLCheck("invalid")
		return "", err
	}
	if err := CheckPolicy(u); err != nil {
		c.metrics.RecordURLCheck("blocked")
		return "", err
	}

	normalized := u.String()
	if !c.checkReachable {
		c.metrics.RecordURLCheck("valid")
		return normalized, nil
	}

	if err := c.reachable(ctx, normalized); err != nil {
		c.metrics.RecordURLCheck("unreachable")
		return "", err
	}
	c.metrics.RecordURLCheck("valid")
	return normalized, nil
}

// reachable fails closed: timeouts and network errors count as unreachable.
func (c *Checker) reachable(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.fetch(ctx, target)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return reject("URL did not respond in time")
		}
		return reject("URL could not be reached")
	}
	if !acceptableStatus(status) {
		return reject(fmt.Sprintf("URL responded with HTTP %d", status))
	}
	return nil
}

// acceptableStatus treats bot walls and auth prompts as proof the site exists.
func acceptableStatus(status int) bool {
	if status < http.StatusBadRequest {
		return true
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusMethodNotAllowed, http.StatusTooManyRequests:
		return true
	}
	return false
}

// httpFetch sends HEAD and retries with GET when the server refuses HEAD.
func httpFetch(client *http.Client) FetchFunc {
	return func(ctx context.Context, rawURL string) (int, error) {
		status, err := send(ctx, client, http.MethodHead, rawURL)
		if err != nil {
			return 0, err
		}
		if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
			return send(ctx, client, http.MethodGet, rawURL)
		}
		return status, nil
	}
}

func send(ctx context.Context, client *http.Client, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "affiliateboard-linkcheck/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}
