package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond matches the platform's per-app web API tier.
	DefaultRequestsPerSecond = 1
	// DefaultBurst allows short spikes (announce + canvas refresh + reaction
	// on a single change) without tripping the limiter.
	DefaultBurst = 5

	maxAttempts      = 3
	defaultRetryWait = time.Second
)

var (
	// ErrNotOK is returned when the platform accepts the request but reports
	// a logical failure in the response body.
	ErrNotOK = errorString("platform: response not ok")
	// ErrRateLimited is returned when the platform keeps answering 429 past
	// the retry budget.
	ErrRateLimited = errorString("platform: rate limited")
)

type errorString string

func (e errorString) Error() string { return string(e) }

// Client talks to a Slack-compatible web API: JSON bodies, bearer token,
// 200-with-ok-flag responses and 429 backpressure with Retry-After.
type Client struct {
	baseURL   string
	token     string
	http      *http.Client
	limiter   *rate.Limiter
	retryWait time.Duration
}

// NewClient builds a client for the given API base URL ("https://host/api")
// and bot token. Outbound calls are throttled client-side so a burst of
// announcements cannot trip the platform's rate limits.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:   baseURL,
		token:     token,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultBurst),
		retryWait: defaultRetryWait,
	}
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type addReactionRequest struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
}

type upsertCanvasRequest struct {
	Channel  string `json:"channel"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// PostMessage posts text into a channel.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	return c.call(ctx, "chat.postMessage", postMessageRequest{Channel: channel, Text: text})
}

// AddReaction attaches an emoji reaction to the message identified by its
// platform timestamp. The moderator uses this to flag violating messages
// in place instead of replying to them.
func (c *Client) AddReaction(ctx context.Context, channel, timestamp, name string) error {
	return c.call(ctx, "reactions.add", addReactionRequest{Channel: channel, Timestamp: timestamp, Name: name})
}

// UpsertCanvas creates or replaces the channel's pinned canvas document.
func (c *Client) UpsertCanvas(ctx context.Context, channel, title, markdown string) error {
	return c.call(ctx, "canvases.upsert", upsertCanvasRequest{Channel: channel, Title: title, Markdown: markdown})
}

// call runs one API method with client-side throttling and a bounded retry
// on 429, honoring Retry-After when the platform sends one.
func (c *Client) call(ctx context.Context, method string, body any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("platform: marshal %s request: %w", method, err)
	}

	wait := time.Duration(0)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var callErr error
		wait, callErr = c.do(ctx, method, jsonBody)
		if callErr == nil {
			return nil
		}
		if wait < 0 {
			return callErr
		}
	}
	return fmt.Errorf("platform: %s: %w", method, ErrRateLimited)
}

// do performs a single request. A non-negative duration means the platform
// asked us to back off and the call may be retried after that long.
func (c *Client) do(ctx context.Context, method string, jsonBody []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+method, bytes.NewReader(jsonBody))
	if err != nil {
		return -1, fmt.Errorf("platform: create %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return -1, fmt.Errorf("platform: %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.retryAfterOf(resp), fmt.Errorf("platform: %s: %w", method, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("platform: %s: status %d", method, resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return -1, fmt.Errorf("platform: decode %s response: %w", method, err)
	}
	if !parsed.OK {
		return -1, fmt.Errorf("platform: %s: %s: %w", method, parsed.Error, ErrNotOK)
	}
	return -1, nil
}

func (c *Client) retryAfterOf(resp *http.Response) time.Duration {
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return c.retryWait
}
