// Package platform is the chat-platform gateway: a REST client for posting
// into channels, a webhook receiver and a socket-mode listener for message
// intake, and the canvas renderer for the rule book. The engine never talks
// to the platform directly; everything crosses this package.
package platform

import (
	"context"

	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
)

// MessageEvent is one player message as delivered by the platform, webhook
// and socket mode alike.
type MessageEvent struct {
	Channel   string `json:"channel"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"ts"`
}

// Message converts the event into the engine's message form. Text is
// NFC-normalized exactly once, here at intake, so every check sees the same
// byte sequence for visually identical input.
func (e MessageEvent) Message() catalog.Message {
	return catalog.Message{
		Text:    Normalize(e.Text),
		Channel: e.Channel,
		Author:  e.User,
	}
}

// Normalize applies Unicode NFC.
func Normalize(text string) string {
	return norm.NFC.String(text)
}

// Handler consumes inbound message events.
type Handler func(ctx context.Context, ev MessageEvent)
