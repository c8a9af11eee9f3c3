package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	dialBackoffMin = time.Second
	dialBackoffMax = 30 * time.Second
)

// socketEnvelope is one frame on the socket-mode connection. The platform
// sends "hello" after the handshake, "events_api" frames carrying event
// callbacks that must be acked by envelope id, and "disconnect" when it wants
// the client to reconnect elsewhere.
type socketEnvelope struct {
	Type       string          `json:"type"`
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type socketAck struct {
	EnvelopeID string `json:"envelope_id"`
}

// SocketListener maintains a socket-mode connection as an alternative to the
// webhook receiver, for deployments without a public HTTP endpoint. Lost
// connections are redialed with exponential backoff; server-requested
// disconnects reconnect immediately. Ping frames are answered by the
// transport during reads.
type SocketListener struct {
	url     string
	token   string
	handler Handler
	logger  *slog.Logger

	dialer     *websocket.Dialer
	backoffMin time.Duration
	backoffMax time.Duration
}

// NewSocketListener builds a listener for the given websocket URL. A nil
// logger falls back to the default slog logger.
func NewSocketListener(url, token string, handler Handler, logger *slog.Logger) *SocketListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketListener{
		url:        url,
		token:      token,
		handler:    handler,
		logger:     logger.With("component", "socket"),
		dialer:     websocket.DefaultDialer,
		backoffMin: dialBackoffMin,
		backoffMax: dialBackoffMax,
	}
}

// Run connects and processes frames until the context ends, reconnecting as
// needed. It always returns the context's error.
func (l *SocketListener) Run(ctx context.Context) error {
	backoff := l.backoffMin
	for {
		connected, err := l.runConn(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = l.backoffMin
		}
		if err == nil {
			// The server asked us to reconnect; no backoff needed.
			continue
		}

		l.logger.Warn("socket session ended", "error", err, "retry_in", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = min(backoff*2, l.backoffMax)
	}
}

// runConn runs a single connection. connected reports whether the session
// reached hello, which resets the redial backoff. A nil error means the
// server requested the disconnect.
func (l *SocketListener) runConn(ctx context.Context) (connected bool, err error) {
	header := http.Header{}
	if l.token != "" {
		header.Set("Authorization", "Bearer "+l.token)
	}

	conn, resp, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return false, fmt.Errorf("platform: dial socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Gorilla reads take no context; close the connection to unblock them
	// when the context ends.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-watchDone:
		}
	}()

	for {
		var env socketEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return connected, fmt.Errorf("platform: read socket envelope: %w", err)
		}

		// Every envelope gets acked, even types we do not handle; unacked
		// envelopes are redelivered.
		l.ack(conn, env.EnvelopeID)

		switch env.Type {
		case "hello":
			connected = true
			l.logger.Info("socket connected")
		case "events_api":
			l.dispatchPayload(ctx, env.Payload)
		case "disconnect":
			l.logger.Info("socket disconnect requested", "reason", env.Reason)
			return connected, nil
		default:
			l.logger.Debug("ignoring socket frame", "type", env.Type)
		}
	}
}

// ack must happen before the handler runs, or a slow handler would let the
// redelivery timer fire.
func (l *SocketListener) ack(conn *websocket.Conn, envelopeID string) {
	if envelopeID == "" {
		return
	}
	if err := conn.WriteJSON(socketAck{EnvelopeID: envelopeID}); err != nil {
		l.logger.Warn("ack failed", "envelope_id", envelopeID, "error", err)
	}
}

func (l *SocketListener) dispatchPayload(ctx context.Context, payload json.RawMessage) {
	var cb eventCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		l.logger.Warn("malformed events_api payload", "error", err)
		return
	}
	if ev, ok := playerMessage(cb.Event); ok {
		l.handler(ctx, ev)
	}
}
