// Package steam is the presence source: a small Steam Web API client that
// turns player summaries into [presence.Snapshot] values and resolves
// community profile URLs to SteamID64s.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the public Steam Web API endpoint.
const DefaultBaseURL = "https://api.steampowered.com"

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

var (
	// ErrAuthInvalid means the API key was rejected (401/403). Polling can
	// continue; the key may be fixed by a reload.
	ErrAuthInvalid = errors.New("steam api key rejected")
	// ErrNotFound means the account or vanity name does not exist.
	ErrNotFound = errors.New("steam account not found")
	// ErrTransient covers network failures, 5xx responses and malformed
	// payloads. The caller retries on the next tick.
	ErrTransient = errors.New("steam api unavailable")
	// ErrInvalidID means a value is not a SteamID64 or profile URL.
	ErrInvalidID = errors.New("invalid steam id")
)

// RateLimitError is returned on HTTP 429. RetryAfter is zero when the
// response did not say how long to wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("steam api rate limited, retry after %s", e.RetryAfter)
	}
	return "steam api rate limited"
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Options tunes a [Client]. Zero values select the defaults.
type Options struct {
	// BaseURL overrides [DefaultBaseURL], mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP attempt (default 10s).
	Timeout time.Duration
	// RetryMax is the number of transport retries for transient failures
	// (default 2).
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the backoff between retries
	// (defaults 1s and 30s).
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Now replaces the clock used for ObservedAt and Retry-After dates.
	Now func() time.Time
}

// Client talks to the Steam Web API. It is safe for concurrent use; the API
// key can be swapped at any time with [Client.SetAPIKey].
type Client struct {
	base string
	http *retryablehttp.Client
	key  atomic.Pointer[string]
	now  func() time.Time
}

// New creates a client authenticated with apiKey.
func New(apiKey string, opts Options) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	if opts.RetryMax > 0 {
		hc.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		hc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		hc.RetryWaitMax = opts.RetryWaitMax
	}
	hc.HTTPClient.Timeout = 10 * time.Second
	if opts.Timeout > 0 {
		hc.HTTPClient.Timeout = opts.Timeout
	}
	hc.Logger = nil // suppress retryablehttp's default logging
	hc.CheckRetry = checkRetry
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		base: strings.TrimRight(DefaultBaseURL, "/"),
		http: hc,
		now:  time.Now,
	}
	if opts.BaseURL != "" {
		c.base = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Now != nil {
		c.now = opts.Now
	}
	c.SetAPIKey(apiKey)
	return c
}

// SetAPIKey replaces the credential used by subsequent requests.
func (c *Client) SetAPIKey(key string) {
	key = strings.TrimSpace(key)
	c.key.Store(&key)
}

// apiKey returns the current credential.
func (c *Client) apiKey() string {
	if k := c.key.Load(); k != nil {
		return *k
	}
	return ""
}

// checkRetry never retries responses that another attempt cannot fix.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, http.StatusNotFound:
			return false, nil
		}
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// getJSON calls a Web API method and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, method string, params url.Values, out any) error {
	key := c.apiKey()
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", key)
	params.Set("format", "json")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.base+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s", ErrTransient, redact(err.Error(), key))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthInvalid, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now())}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s status %d", ErrTransient, method, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransient, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parsing %s response: %v", ErrTransient, method, err)
	}
	return nil
}

// parseRetryAfter accepts delay-seconds or an HTTP-date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}

// redact removes the API key from error text that embeds the request URL.
func redact(msg, key string) string {
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, key, "REDACTED")
}
