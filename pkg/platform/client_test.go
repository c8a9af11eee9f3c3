package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestClient points a client at srv without throttling and with a fast
// retry fallback so the tests never sleep for real.
func newTestClient(t *testing.T, srv *httptest.Server, token string) *Client {
	t.Helper()
	c := NewClient(srv.URL, token)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.retryWait = time.Millisecond
	t.Cleanup(func() {
		c.http.CloseIdleConnections()
		srv.Close()
	})
	return c
}

func TestClient_PostMessage(t *testing.T) {
	var (
		path string
		auth string
		got  postMessageRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	c := newTestClient(t, srv, "xoxb-test")

	require.NoError(t, c.PostMessage(context.Background(), "C123", "the rules have changed"))
	assert.Equal(t, "/chat.postMessage", path)
	assert.Equal(t, "Bearer xoxb-test", auth)
	assert.Equal(t, postMessageRequest{Channel: "C123", Text: "the rules have changed"}, got)
}

func TestClient_AddReaction(t *testing.T) {
	var (
		path string
		got  addReactionRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	c := newTestClient(t, srv, "tok")

	require.NoError(t, c.AddReaction(context.Background(), "C123", "111.222", "rotating_light"))
	assert.Equal(t, "/reactions.add", path)
	assert.Equal(t, addReactionRequest{Channel: "C123", Timestamp: "111.222", Name: "rotating_light"}, got)
}

func TestClient_UpsertCanvas(t *testing.T) {
	var got upsertCanvasRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/canvases.upsert", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	c := newTestClient(t, srv, "tok")

	require.NoError(t, c.UpsertCanvas(context.Background(), "C123", "House Rules", "# House Rules"))
	assert.Equal(t, upsertCanvasRequest{Channel: "C123", Title: "House Rules", Markdown: "# House Rules"}, got)
}

func TestClient_RetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	c := newTestClient(t, srv, "tok")

	require.NoError(t, c.PostMessage(context.Background(), "C1", "hi"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	c := newTestClient(t, srv, "tok")

	err := c.PostMessage(context.Background(), "C1", "hi")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestClient_RetryAfterHeaderParsed(t *testing.T) {
	c := NewClient("http://unused", "tok")

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, c.retryAfterOf(resp))

	resp.Header.Set("Retry-After", "soon")
	assert.Equal(t, defaultRetryWait, c.retryAfterOf(resp))

	resp.Header.Del("Retry-After")
	assert.Equal(t, defaultRetryWait, c.retryAfterOf(resp))
}

func TestClient_LogicalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	c := newTestClient(t, srv, "tok")

	err := c.PostMessage(context.Background(), "C404", "hi")
	require.ErrorIs(t, err, ErrNotOK)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestClient_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c := newTestClient(t, srv, "tok")

	err := c.PostMessage(context.Background(), "C1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	c := newTestClient(t, srv, "tok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.PostMessage(ctx, "C1", "hi")
	require.ErrorIs(t, err, context.Canceled)
}
