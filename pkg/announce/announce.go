package announce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Announcer delivers a sealed change event somewhere players or systems can
// see it.
type Announcer interface {
	Announce(ctx context.Context, env Envelope) error
}

// LogAnnouncer writes changes to the structured log. It is the default when
// no chat or Redis delivery is configured.
type LogAnnouncer struct {
	logger *slog.Logger
}

// NewLogAnnouncer builds a log announcer; a nil logger uses the default.
func NewLogAnnouncer(logger *slog.Logger) *LogAnnouncer {
	if logger == nil {
		logger = slog.Default().With("component", "announce")
	}
	return &LogAnnouncer{logger: logger}
}

func (a *LogAnnouncer) Announce(_ context.Context, env Envelope) error {
	a.logger.Info("ruleset changed",
		"event_id", env.Event.ID,
		"reason", env.Event.Reason,
		"rules", strings.Join(env.Event.RuleIDs, ","),
		"difficulty", env.Event.Difficulty,
		"fingerprint", env.Event.Fingerprint,
		"key_id", env.KeyID,
	)
	return nil
}

// Poster posts a line of text into a chat channel. The platform client
// satisfies it.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// ChatAnnouncer posts a human-readable change line into the game channel.
type ChatAnnouncer struct {
	poster  Poster
	channel string
}

func NewChatAnnouncer(poster Poster, channel string) *ChatAnnouncer {
	return &ChatAnnouncer{poster: poster, channel: channel}
}

func (a *ChatAnnouncer) Announce(ctx context.Context, env Envelope) error {
	text := FormatChatLine(env.Event)
	if err := a.poster.PostMessage(ctx, a.channel, text); err != nil {
		return fmt.Errorf("announce to chat: %w", err)
	}
	return nil
}

// FormatChatLine renders the one-line announcement players see.
func FormatChatLine(ev Event) string {
	return fmt.Sprintf("The rules have changed (%s). Now in play: %s [difficulty %d]",
		ev.Reason, strings.Join(ev.RuleIDs, ", "), ev.Difficulty)
}

// Multi fans an announcement out to several announcers. Every announcer is
// attempted; the first error is returned.
type Multi []Announcer

func (m Multi) Announce(ctx context.Context, env Envelope) error {
	var first error
	for _, a := range m {
		if err := a.Announce(ctx, env); err != nil && first == nil {
			first = err
		}
	}
	return first
}
