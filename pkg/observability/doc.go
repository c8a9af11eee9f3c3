// Package observability provides OpenTelemetry tracing and metrics for the
// gauntlet daemon. Export is OTLP over gRPC and is disabled unless an
// endpoint is configured, so nothing dials out on a bare deployment.
//
// Initialize at startup and shut down on exit:
//
//	obs, err := observability.New(ctx, observability.ConfigFromEnv())
//	defer obs.Shutdown(ctx)
//
// Record engine activity:
//
//	obs.RecordEvaluation(ctx, elapsed, len(violated),
//		observability.EvaluationAttrs(channel, player, ruleCount)...)
//	obs.RecordChange(ctx, change.Reason, change.Difficulty,
//		observability.AttrChannel.String(channel))
//
// Trace a slow path:
//
//	ctx, finish := obs.TrackOperation(ctx, "archive.store")
//	defer func() { finish(err) }()
package observability
