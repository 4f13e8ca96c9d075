package profiler_test

import (
	"context"
	"testing"

	"github.com/lumenlisp/lumen/lumen"
	"github.com/lumenlisp/lumen/profiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOpenTelemetryAnnotatorRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()))
	})
	otel.SetTracerProvider(tp)

	s := lumen.NewState(nil)
	ann := profiler.NewOpenTelemetryAnnotator(s, context.Background())
	require.NoError(t, ann.EnableTracing())
	s.Runtime.Profiler = ann

	_, err := s.RunSource(`(set inner (fn (x) (* x x)))
(set outer (fn (x) (+ (inner x) 1)))
(outer 3)`, "test.lumen", s.Global)
	require.Nil(t, err)
	ann.Complete()

	spans := exporter.GetSpans()
	assert.GreaterOrEqual(t, len(spans), 2, "expected a span per function application")
}

func TestOpenTelemetryAnnotatorSkipsWhenDisabled(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()))
	})
	otel.SetTracerProvider(tp)

	s := lumen.NewState(nil)
	ann := profiler.NewOpenTelemetryAnnotator(s, context.Background())
	s.Runtime.Profiler = ann // never enabled

	_, err := s.RunSource(`(set sq (fn (x) (* x x))) (sq 4)`, "test.lumen", s.Global)
	require.Nil(t, err)

	assert.Empty(t, exporter.GetSpans())
}
