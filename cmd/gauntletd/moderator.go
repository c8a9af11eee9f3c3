package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/announce"
	"github.com/Mindburn-Labs/gauntlet/pkg/archive"
	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/crypto"
	"github.com/Mindburn-Labs/gauntlet/pkg/observability"
	"github.com/Mindburn-Labs/gauntlet/pkg/platform"
	"github.com/Mindburn-Labs/gauntlet/pkg/score"
)

// standingsSnapshotLimit bounds the leaderboard captured into each archived
// episode.
const standingsSnapshotLimit = 10

// moderator glues the engine to the outside world. It consumes platform
// message events, applies the side effects of every ruleset change
// (announce, score, archive, rule book), and fronts the engine for the
// admin API.
type moderator struct {
	engine    *controller.Engine
	signer    crypto.Signer
	announcer announce.Announcer
	scores    score.Keeper
	archiver  *archive.Archiver
	client    *platform.Client
	channel   string
	obs       *observability.Provider
	logger    *slog.Logger
	now       func() time.Time

	// rules mirrors the active rule count for metric attributes, so the hot
	// path never takes the engine lock just to label a counter.
	rules atomic.Int64
}

func newModerator(
	engine *controller.Engine,
	signer crypto.Signer,
	announcer announce.Announcer,
	scores score.Keeper,
	archiver *archive.Archiver,
	client *platform.Client,
	channel string,
	obs *observability.Provider,
	logger *slog.Logger,
) *moderator {
	return &moderator{
		engine:    engine,
		signer:    signer,
		announcer: announcer,
		scores:    scores,
		archiver:  archiver,
		client:    client,
		channel:   channel,
		obs:       obs,
		logger:    logger.With("component", "moderator"),
		now:       time.Now,
	}
}

func (m *moderator) setRuleCount(n int) { m.rules.Store(int64(n)) }

// handleEvent is the platform.Handler for incoming messages. Side effects
// that fail (scores, reactions) are logged and skipped; a message is never
// retried, so the game keeps moving.
func (m *moderator) handleEvent(ctx context.Context, ev platform.MessageEvent) {
	start := time.Now()
	out, err := m.engine.EvaluateMessage(ctx, ev.Message())
	if err != nil {
		m.logger.Error("evaluation failed", "channel", ev.Channel, "error", err)
		return
	}
	m.obs.RecordEvaluation(ctx, time.Since(start), len(out.Violated),
		observability.EvaluationAttrs(ev.Channel, ev.User, int(m.rules.Load()))...)

	for _, f := range out.Failures {
		m.logger.Warn("check failed", "rule", f.RuleID, "error", f.Err)
	}

	if m.scores != nil {
		if err := m.scores.RecordOutcome(ctx, ev.Channel, ev.User, out.Violated); err != nil {
			m.logger.Warn("score record failed", "player", ev.User, "error", err)
		}
	}

	if !out.Clean() {
		m.logger.Info("violation", "channel", ev.Channel, "player", ev.User, "rules", out.Violated)
		if m.client != nil {
			if err := m.client.AddReaction(ctx, ev.Channel, ev.Timestamp, "rotating_light"); err != nil {
				m.logger.Warn("reaction failed", "error", err)
			}
		}
	}

	change, err := m.engine.RecordAndMaybeChange(out, m.now())
	if err != nil {
		m.logger.Warn("record outcome failed", "error", err)
		return
	}
	if change != nil {
		m.applyChange(ctx, change)
	}
}

// applyChange runs every side effect of a committed ruleset change. The
// change is already live in the engine when this runs, so failures here only
// cost visibility, never consistency.
func (m *moderator) applyChange(ctx context.Context, change *controller.Change) {
	m.setRuleCount(change.Set.Len())
	m.logger.Info("ruleset changed",
		"reason", change.Reason,
		"difficulty", change.Difficulty,
		"fingerprint", change.Fingerprint,
		"rules", change.Set.Len(),
	)

	ev := announce.NewEvent(change)
	env, sealErr := announce.Seal(ev, m.signer)
	if sealErr != nil {
		m.logger.Error("seal failed, skipping announcement", "error", sealErr)
	} else if err := m.announcer.Announce(ctx, env); err != nil {
		m.logger.Warn("announce failed", "error", err)
	}

	var standings []score.Standing
	if m.scores != nil {
		var err error
		standings, err = m.scores.Standings(ctx, m.channel, standingsSnapshotLimit)
		if err != nil {
			m.logger.Warn("standings snapshot failed", "error", err)
		}
	}

	if ref, err := m.archiver.Archive(ctx, archive.NewEpisode(ev, change, standings)); err != nil {
		m.logger.Warn("archive failed", "error", err)
	} else {
		m.logger.Info("episode archived", "ref", ref)
	}

	if m.client != nil {
		if desc, err := m.engine.DescribeActive(); err == nil {
			if err := platform.PublishRuleBook(ctx, m.client, m.channel, desc); err != nil {
				m.logger.Warn("rule book publish failed", "error", err)
			}
		}
	}

	observability.AddSpanEvent(ctx, "ruleset.change",
		observability.ChangeAttrs(m.channel, change.Reason, change.Fingerprint, change.Difficulty)...)
	m.obs.RecordChange(ctx, change.Reason, change.Difficulty,
		observability.AttrChannel.String(m.channel),
		observability.AttrFingerprint.String(change.Fingerprint),
	)
}

// DescribeActive implements api.Engine.
func (m *moderator) DescribeActive() (controller.Description, error) {
	return m.engine.DescribeActive()
}

// Rotate implements api.Engine. Operator rotations take the same side-effect
// path as clock and performance driven changes, so a rotation triggered over
// the API is announced, scored and archived like any other.
func (m *moderator) Rotate(ctx context.Context, reason string) (*controller.Change, error) {
	ctx, done := m.obs.TrackOperation(ctx, "rotate")
	change, err := m.engine.Rotate(reason, m.now())
	done(err)
	if err != nil {
		return nil, err
	}
	m.applyChange(ctx, change)
	return change, nil
}

// tickLoop drives the engine clock. Ticks only ever originate here, so wall
// time enters the engine through a single path.
func (m *moderator) tickLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			change, err := m.engine.Tick(m.now())
			if err != nil {
				m.logger.Warn("tick failed", "error", err)
				continue
			}
			if change != nil {
				m.applyChange(ctx, change)
			}
		}
	}
}
