package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// SignatureVersion prefixes both the signed base string and the signature
	// header value. Bumping it invalidates every outstanding signature.
	SignatureVersion = "v0"

	// HeaderSignature and HeaderTimestamp carry the request signature and the
	// sender's unix timestamp.
	HeaderSignature = "X-Gauntlet-Signature"
	HeaderTimestamp = "X-Gauntlet-Request-Timestamp"

	// replayWindow bounds how far a request timestamp may drift from our
	// clock, in either direction, before the request is refused.
	replayWindow = 5 * time.Minute

	maxBodyBytes = 1 << 20
)

// Sign computes the versioned signature for a request body:
// hex(HMAC-SHA256(secret, "v0:" + timestamp + ":" + body)) prefixed with
// "v0=". The sender puts this in HeaderSignature.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(SignatureVersion + ":" + timestamp + ":"))
	mac.Write(body)
	return SignatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against the shared secret
// using a constant-time compare.
func VerifySignature(secret []byte, timestamp string, body []byte, provided string) bool {
	if !strings.HasPrefix(provided, SignatureVersion+"=") {
		return false
	}
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// eventCallback is the outer wire shape for webhook deliveries.
type eventCallback struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge,omitempty"`
	Event     innerEvent `json:"event,omitempty"`
}

// innerEvent is the platform's event payload. Subtype and BotID mark
// messages the moderator must ignore (edits, joins, its own posts).
type innerEvent struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype,omitempty"`
	BotID     string `json:"bot_id,omitempty"`
	Channel   string `json:"channel"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"ts"`
}

// playerMessage filters an inner event down to a plain player message.
// Edits, joins, bot posts and other subtyped events are dropped; reacting to
// our own announcements would loop.
func playerMessage(ev innerEvent) (MessageEvent, bool) {
	if ev.Type != "message" || ev.Subtype != "" || ev.BotID != "" {
		return MessageEvent{}, false
	}
	return MessageEvent{
		Channel:   ev.Channel,
		User:      ev.User,
		Text:      ev.Text,
		Timestamp: ev.Timestamp,
	}, true
}

// WebhookServer receives signed event callbacks over HTTP and hands player
// messages to the configured handler. It answers URL-verification challenges
// so the platform can confirm endpoint ownership.
type WebhookServer struct {
	secret  []byte
	handler Handler
	logger  *slog.Logger
	now     func() time.Time
}

// NewWebhookServer builds a receiver. A nil logger falls back to the default
// slog logger.
func NewWebhookServer(secret []byte, handler Handler, logger *slog.Logger) *WebhookServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookServer{
		secret:  secret,
		handler: handler,
		logger:  logger.With("component", "webhook"),
		now:     time.Now,
	}
}

func (s *WebhookServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if err := s.authenticate(r, body); err != nil {
		s.logger.Warn("rejected webhook delivery", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var cb eventCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	switch cb.Type {
	case "url_verification":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"challenge": cb.Challenge})
	case "event_callback":
		if ev, ok := playerMessage(cb.Event); ok {
			s.handler(r.Context(), ev)
		}
		w.WriteHeader(http.StatusOK)
	default:
		// Unknown callback types are acknowledged so the platform does not
		// retry them forever.
		w.WriteHeader(http.StatusOK)
	}
}

func (s *WebhookServer) authenticate(r *http.Request, body []byte) error {
	ts := r.Header.Get(HeaderTimestamp)
	sig := r.Header.Get(HeaderSignature)
	if ts == "" || sig == "" {
		return fmt.Errorf("missing signature headers")
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}
	drift := s.now().Sub(time.Unix(unix, 0))
	if drift > replayWindow || drift < -replayWindow {
		return fmt.Errorf("timestamp outside replay window")
	}

	if !VerifySignature(s.secret, ts, body, sig) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
