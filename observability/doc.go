// Package observability wires OpenTelemetry traces, metrics and logs to an
// OTLP/HTTP endpoint, typically the one a test environment publishes under
// "observability.endpoint".
//
//	var cfg observability.Config
//	_ = v.UnmarshalKey("observability", &cfg)
//	shutdown, err := observability.Setup(ctx, cfg)
//	defer shutdown(context.Background())
//
// Spans and instruments go through the global providers, so code that only
// calls StartSpan or NewLifecycleMetrics works unchanged whether Setup ran
// or not.
package observability
