package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupChecker_RemoteVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req lookupRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// The fake dictionary accepts only the word "kayak".
		_ = json.NewEncoder(w).Encode(lookupResponse{OK: req.Text == "kayak"})
	}))
	defer srv.Close()

	c := NewLookupChecker(srv.URL, srv.Client())

	ok, err := c.Check(context.Background(), Message{Text: "kayak"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(context.Background(), Message{Text: "zzzzz"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupChecker_ServiceErrorIsCheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewLookupChecker(srv.URL, srv.Client())
	_, err := c.Check(context.Background(), Message{Text: "anything"})
	require.Error(t, err)
}

func TestLookupChecker_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewLookupChecker(srv.URL, srv.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Check(ctx, Message{Text: "anything"})
	require.Error(t, err)
}
