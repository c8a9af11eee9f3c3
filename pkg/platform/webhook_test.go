package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webhookEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newWebhookFixture(secret string) (*WebhookServer, chan MessageEvent) {
	events := make(chan MessageEvent, 4)
	s := NewWebhookServer([]byte(secret), func(_ context.Context, ev MessageEvent) {
		events <- ev
	}, nil)
	s.now = func() time.Time { return webhookEpoch }
	return s, events
}

// signedRequest builds a POST whose signature headers are valid for the
// given secret and timestamp.
func signedRequest(t *testing.T, secret, body string, at time.Time) *http.Request {
	t.Helper()
	ts := strconv.FormatInt(at.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, Sign([]byte(secret), ts, []byte(body)))
	return req
}

func callbackBody(t *testing.T, ev innerEvent) string {
	t.Helper()
	b, err := json.Marshal(eventCallback{Type: "event_callback", Event: ev})
	require.NoError(t, err)
	return string(b)
}

func TestWebhookServer_DispatchesPlayerMessage(t *testing.T) {
	s, events := newWebhookFixture("hunter2")
	body := callbackBody(t, innerEvent{
		Type: "message", Channel: "C42", User: "U7", Text: "all lowercase", Timestamp: "111.222",
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, "hunter2", body, webhookEpoch))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, "C42", ev.Channel)
	assert.Equal(t, "U7", ev.User)
	assert.Equal(t, "all lowercase", ev.Text)
	assert.Equal(t, "111.222", ev.Timestamp)
}

func TestWebhookServer_ChallengeEcho(t *testing.T) {
	s, events := newWebhookFixture("hunter2")
	body := `{"type":"url_verification","challenge":"mirror-me"}`

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, "hunter2", body, webhookEpoch))

	require.Equal(t, http.StatusOK, rec.Code)
	var reply map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "mirror-me", reply["challenge"])
	assert.Empty(t, events)
}

func TestWebhookServer_RejectsTamperedBody(t *testing.T) {
	s, events := newWebhookFixture("hunter2")
	body := callbackBody(t, innerEvent{Type: "message", Channel: "C1", User: "U1", Text: "real"})
	ts := strconv.FormatInt(webhookEpoch.Unix(), 10)

	// Signature computed over the original body, delivered with a tampered one.
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(strings.Replace(body, "real", "fake", 1)))
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, Sign([]byte("hunter2"), ts, []byte(body)))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, events)
}

func TestWebhookServer_RejectsWrongSecret(t *testing.T) {
	s, events := newWebhookFixture("hunter2")
	body := callbackBody(t, innerEvent{Type: "message", Channel: "C1", User: "U1", Text: "hi"})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, "not-the-secret", body, webhookEpoch))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, events)
}

func TestWebhookServer_RejectsOutsideReplayWindow(t *testing.T) {
	s, events := newWebhookFixture("hunter2")
	body := callbackBody(t, innerEvent{Type: "message", Channel: "C1", User: "U1", Text: "hi"})

	for _, at := range []time.Time{
		webhookEpoch.Add(-6 * time.Minute),
		webhookEpoch.Add(6 * time.Minute),
	} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, signedRequest(t, "hunter2", body, at))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Empty(t, events)
}

func TestWebhookServer_RejectsMissingHeaders(t *testing.T) {
	s, events := newWebhookFixture("hunter2")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("{}")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, events)
}

func TestWebhookServer_IgnoresNonPlayerEvents(t *testing.T) {
	s, events := newWebhookFixture("hunter2")

	for _, ev := range []innerEvent{
		{Type: "message", Subtype: "message_changed", Channel: "C1", User: "U1", Text: "edited"},
		{Type: "message", BotID: "B99", Channel: "C1", Text: "our own announcement"},
		{Type: "reaction_added", Channel: "C1", User: "U1"},
	} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, signedRequest(t, "hunter2", callbackBody(t, ev), webhookEpoch))
		// Still acknowledged, or the platform would retry the delivery.
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, events)
}

func TestWebhookServer_MethodNotAllowed(t *testing.T) {
	s, _ := newWebhookFixture("hunter2")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := []byte("hunter2")
	body := []byte(`{"type":"event_callback"}`)

	sig := Sign(secret, "1700000000", body)
	assert.True(t, strings.HasPrefix(sig, "v0="))
	assert.True(t, VerifySignature(secret, "1700000000", body, sig))

	// A different timestamp, body, or secret breaks the signature.
	assert.False(t, VerifySignature(secret, "1700000001", body, sig))
	assert.False(t, VerifySignature(secret, "1700000000", []byte("other"), sig))
	assert.False(t, VerifySignature([]byte("other"), "1700000000", body, sig))

	// An unversioned or mis-versioned value never verifies.
	assert.False(t, VerifySignature(secret, "1700000000", body, strings.TrimPrefix(sig, "v0=")))
	assert.False(t, VerifySignature(secret, "1700000000", body, "v1="+strings.TrimPrefix(sig, "v0=")))
}
