package main

import (
	"context"

	"github.com/lumenlisp/lumen/lumen"
	"github.com/lumenlisp/lumen/profiler"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupProfiler wires a span-per-function-application profiler into s when
// --otel was passed, returning a cleanup func to call before the process
// exits. Without an exporter configured via the usual OpenTelemetry
// environment variables, spans are still generated and sampled but simply
// have nowhere to be shipped -- this flag exists to prove the wiring, not to
// replace a real collector setup.
func setupProfiler(s *lumen.State) func() {
	if !otelFlag {
		return func() {}
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)

	ann := profiler.NewOpenTelemetryAnnotator(s, context.Background())
	if err := ann.EnableTracing(); err == nil {
		s.Runtime.Profiler = ann
	}
	return func() {
		ann.Complete()
		tp.Shutdown(context.Background()) //nolint:errcheck // best-effort flush on exit
	}
}
