package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "gauntlet", config.ServiceName)
	require.Equal(t, "development", config.Environment)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestConfigFromEnv_DisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("GAUNTLET_ENV", "")
	t.Setenv("GAUNTLET_OTEL_INSECURE", "")
	t.Setenv("GAUNTLET_OTEL_SAMPLE_RATE", "")

	config := ConfigFromEnv()
	require.False(t, config.Enabled)
}

func TestConfigFromEnv_EndpointEnables(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	t.Setenv("GAUNTLET_ENV", "production")
	t.Setenv("GAUNTLET_OTEL_INSECURE", "true")
	t.Setenv("GAUNTLET_OTEL_SAMPLE_RATE", "0.1")

	config := ConfigFromEnv()
	require.True(t, config.Enabled)
	require.Equal(t, "collector:4317", config.OTLPEndpoint, "scheme is stripped for the gRPC dialer")
	require.Equal(t, "production", config.Environment)
	require.True(t, config.Insecure)
	require.Equal(t, 0.1, config.SampleRate)
}

func TestConfigFromEnv_BadSampleRateIgnored(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("GAUNTLET_OTEL_SAMPLE_RATE", "lots")

	config := ConfigFromEnv()
	require.Equal(t, 1.0, config.SampleRate)

	t.Setenv("GAUNTLET_OTEL_SAMPLE_RATE", "1.5")
	config = ConfigFromEnv()
	require.Equal(t, 1.0, config.SampleRate, "out-of-range rates fall back to the default")
}

func TestNewProviderDisabled(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)
	require.NotNil(t, p)

	// Should not fail even when disabled
	tracer := p.Tracer()
	require.NotNil(t, tracer)

	meter := p.Meter()
	require.NotNil(t, meter)
}

func TestTrackOperation(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()
	attrs := []attribute.KeyValue{
		attribute.String("test.key", "test.value"),
	}

	newCtx, finish := p.TrackOperation(ctx, "test.operation", attrs...)
	require.NotNil(t, newCtx)

	// Simulate some work
	time.Sleep(1 * time.Millisecond)

	// Call finish without error
	finish(nil)
}

func TestTrackOperationWithError(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()
	_, finish := p.TrackOperation(ctx, "test.operation.error")

	// Call finish with error
	testErr := errors.New("test error")
	finish(testErr)

	// Should not panic
}

func TestRecordMetrics(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()

	// These should not panic when provider is disabled
	p.RecordRequest(ctx, attribute.String("test", "value"))
	p.RecordError(ctx, errors.New("test"), attribute.String("test", "value"))
	p.RecordDuration(ctx, 100*time.Millisecond, attribute.String("test", "value"))
}

func TestRecordEngineMetrics(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()

	// These should not panic when provider is disabled
	p.RecordEvaluation(ctx, 2*time.Millisecond, 1, EvaluationAttrs("C1", "alice", 3)...)
	p.RecordEvaluation(ctx, 1*time.Millisecond, 0)
	p.RecordChange(ctx, "scheduled shake-up", 4, AttrChannel.String("C1"))
	p.RecordDifficulty(ctx, 4)
}

func TestStartSpan(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()
	newCtx, span := p.StartSpan(ctx, "test.span")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	span.End()
}

func TestShutdown(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.Shutdown(ctx)
	require.NoError(t, err)
}

// Test gauntlet-specific helpers

func TestEvaluationAttrs(t *testing.T) {
	attrs := EvaluationAttrs("C-GAME", "alice", 3)
	require.Len(t, attrs, 3)
	require.Equal(t, "gauntlet.channel", string(attrs[0].Key))
	require.Equal(t, "C-GAME", attrs[0].Value.AsString())
	require.Equal(t, int64(3), attrs[2].Value.AsInt64())
}

func TestChangeAttrs(t *testing.T) {
	attrs := ChangeAttrs("C-GAME", "losing streak", "sha256:abc", 2)
	require.Len(t, attrs, 4)
	require.Equal(t, "gauntlet.change.reason", string(attrs[1].Key))
	require.Equal(t, "losing streak", attrs[1].Value.AsString())
	require.Equal(t, int64(2), attrs[3].Value.AsInt64())
}

func TestCheckerAttrs(t *testing.T) {
	attrs := CheckerAttrs("no-spaces", "builtin")
	require.Len(t, attrs, 2)
	require.Equal(t, "gauntlet.rule.id", string(attrs[0].Key))
	require.Equal(t, "no-spaces", attrs[0].Value.AsString())
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()
	span := SpanFromContext(ctx)
	require.NotNil(t, span) // Returns a no-op span if none
}

func TestAddSpanEvent(t *testing.T) {
	ctx := context.Background()
	// Should not panic
	AddSpanEvent(ctx, "test.event", attribute.String("key", "value"))
}

func TestSetSpanStatus(t *testing.T) {
	ctx := context.Background()
	// Should not panic
	SetSpanStatus(ctx, errors.New("test error"))
	SetSpanStatus(ctx, nil)
}
