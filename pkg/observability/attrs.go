package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Gauntlet semantic convention attributes.
var (
	// Game attributes
	AttrChannel = attribute.Key("gauntlet.channel")
	AttrPlayer  = attribute.Key("gauntlet.player")

	// Ruleset attributes
	AttrRuleID      = attribute.Key("gauntlet.rule.id")
	AttrRuleCount   = attribute.Key("gauntlet.rules.active")
	AttrFingerprint = attribute.Key("gauntlet.ruleset.fingerprint")
	AttrDifficulty  = attribute.Key("gauntlet.difficulty")

	// Change attributes
	AttrChangeReason = attribute.Key("gauntlet.change.reason")

	// Checker attributes
	AttrCheckerKind = attribute.Key("gauntlet.checker.kind")

	// Storage attributes
	AttrScoreBackend = attribute.Key("gauntlet.score.backend")
	AttrArchiveSink  = attribute.Key("gauntlet.archive.sink")
)

// EvaluationAttrs creates attributes for a message evaluation.
func EvaluationAttrs(channel, player string, ruleCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrChannel.String(channel),
		AttrPlayer.String(player),
		AttrRuleCount.Int(ruleCount),
	}
}

// ChangeAttrs creates attributes for an applied ruleset change.
func ChangeAttrs(channel, reason, fingerprint string, difficulty int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrChannel.String(channel),
		AttrChangeReason.String(reason),
		AttrFingerprint.String(fingerprint),
		AttrDifficulty.Int(difficulty),
	}
}

// CheckerAttrs creates attributes for a single checker run.
func CheckerAttrs(ruleID, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRuleID.String(ruleID),
		AttrCheckerKind.String(kind),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
